// SPDX-License-Identifier: BSD-2-Clause

package fec

// validateRepaired implements the repaired-packet validator (spec.md 4.4).
// It checks, in order: the packet has an RTP header, its source id matches
// the latched session source id, and its sequence number matches the
// expected position within the block. A nil error means every check
// passed; ErrForeignSourceID specifically must be treated by the caller as
// session-fatal rather than a soft drop.
func validateRepaired(pkt Packet, latchedSourceID uint32, curBlockSN uint16, pos int) error {
	hdr, hasRTP := pkt.RTP()
	if !hasRTP {
		return ErrNoSourceHeader
	}
	if hdr.SourceID != latchedSourceID {
		return ErrForeignSourceID
	}
	expected := curBlockSN + uint16(pos)
	if hdr.SeqNum != expected {
		return ErrSeqnumMismatch
	}
	return nil
}
