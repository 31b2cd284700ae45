// SPDX-License-Identifier: BSD-2-Clause

package fec

// Modular arithmetic helpers for 16-bit RTP-style sequence numbers. All
// comparisons must go through these helpers rather than raw < or > on the
// uint16 values, since sequence numbers wrap around at 2^16.
//
// Convention: a < b iff (b - a) mod 2^16 is in [1, 2^15).

// seqLess reports whether a is strictly before b on the 16-bit ring.
func seqLess(a, b uint16) bool {
	d := b - a
	return d >= 1 && d < 1<<15
}

// seqLessEqual reports whether a is before or equal to b on the ring.
func seqLessEqual(a, b uint16) bool {
	return a == b || seqLess(a, b)
}

// seqDiff returns the signed forward distance from a to b, i.e. the value d
// such that a+d == b (mod 2^16), in the range [-2^15, 2^15).
func seqDiff(b, a uint16) int32 {
	return int32(int16(b - a))
}
