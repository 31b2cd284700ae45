// SPDX-License-Identifier: BSD-2-Clause

package fec

import "errors"

// Wire-data errors: the packet is always dropped, never escalated. These
// never escape Reader.Read as values; they are only attached to log events
// at the drop sites. No counter records these drops.
var (
	ErrStaleBlock        = errors.New("fec: packet belongs to a stale block")
	ErrDuplicatePosition = errors.New("fec: duplicate packet at position")
	ErrUnparseableRepair = errors.New("fec: repaired payload failed to parse as RTP")
	ErrSeqnumMismatch    = errors.New("fec: repaired packet has unexpected sequence number")
	ErrNoSourceHeader    = errors.New("fec: repaired payload has no RTP header")
)

// ErrForeignSourceID is the session-fatal condition: a repaired packet
// disagrees with the latched source id. Observing this transitions the
// Reader to the terminal dead state. The reader uses it to tell this case
// apart from the soft drops and attaches it to the log event; it is never
// returned from Read.
var ErrForeignSourceID = errors.New("fec: repaired packet has foreign source id")
