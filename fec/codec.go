// SPDX-License-Identifier: BSD-2-Clause

package fec

// Scheme selects the block erasure code used by a Reader.
type Scheme int

const (
	// SchemeReedSolomon is Reed-Solomon over GF(2^8), m=8.
	SchemeReedSolomon Scheme = iota
	// SchemeLDPCStaircase is LDPC-Staircase, PRNG-seeded.
	SchemeLDPCStaircase
)

func (s Scheme) String() string {
	switch s {
	case SchemeReedSolomon:
		return "reed-solomon-m8"
	case SchemeLDPCStaircase:
		return "ldpc-staircase"
	default:
		return "unknown"
	}
}

// Config is the configuration surface of the core (spec.md section 6).
type Config struct {
	Scheme Scheme

	// N is the number of source symbols per block.
	N int
	// M is the number of repair symbols per block.
	M int
	// S is the fixed symbol size in bytes.
	S int

	// SourceIDPolicy controls how the engine latches the session's
	// source id. Reserved for future policies; LatchFirst is the only
	// one implemented, matching spec.md's "latched on the first source
	// packet ever observed".
	SourceIDPolicy SourceIDPolicy

	// LDPCSeed and LDPCN1 configure SchemeLDPCStaircase; ignored for
	// SchemeReedSolomon.
	LDPCSeed uint32
	LDPCN1   int
}

// SourceIDPolicy selects how the reader decides the session's source id.
type SourceIDPolicy int

const (
	// SourceIDLatchFirst latches source_id from the first source packet
	// observed, per spec.md section 3.
	SourceIDLatchFirst SourceIDPolicy = iota
)

// BlockCodec is the pluggable block erasure codec contract (spec.md 4.1).
// A single instance is created per Reader and re-created (via Reset) once
// per block, matching the destructive "decode once per block" contract of
// the wrapped erasure-coding libraries.
type BlockCodec interface {
	// Set registers an available symbol at index in [0, N+M). payload
	// must be exactly S bytes. Re-registering an already-set index is a
	// programming error and panics.
	Set(index int, payload []byte)

	// Repair returns the payload for source position index if it can be
	// reconstructed from the currently-registered symbols, or (nil,
	// false) otherwise. The first call in a block that has at least N
	// registered symbols triggers one internal decode pass; later calls
	// in the same block are served from the cached result.
	Repair(index int) ([]byte, bool)

	// Reset discards all registered symbols and re-initializes the
	// codec. Must be called between blocks.
	Reset()
}

// NewBlockCodec constructs the BlockCodec adaptor selected by cfg.Scheme.
func NewBlockCodec(cfg Config) BlockCodec {
	switch cfg.Scheme {
	case SchemeLDPCStaircase:
		return newLDPCStaircaseCodec(cfg)
	default:
		return newReedSolomonCodec(cfg)
	}
}
