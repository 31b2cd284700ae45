// SPDX-License-Identifier: BSD-2-Clause

package fec

import "github.com/klauspost/reedsolomon"

// EncodeBlock computes the M repair shards for one block of N source
// shards, for the scheme and dimensions in cfg. Every shard, source and
// returned, must be exactly cfg.S bytes.
//
// The engine itself never encodes; sending is out of scope (spec.md
// section 1, Non-goals). EncodeBlock exists for tests and the fecbench
// harness, which need to produce a block's parity the same way a real
// sender would, matching the decode-side BlockCodec for the same scheme.
func EncodeBlock(cfg Config, sourceShards [][]byte) [][]byte {
	if len(sourceShards) != cfg.N {
		panicf("fec: EncodeBlock: got %d source shards, want %d", len(sourceShards), cfg.N)
	}
	for _, shard := range sourceShards {
		if len(shard) != cfg.S {
			panicf("fec: EncodeBlock: shard length %d != symbol size %d", len(shard), cfg.S)
		}
	}

	switch cfg.Scheme {
	case SchemeLDPCStaircase:
		return encodeLDPCStaircase(cfg, sourceShards)
	default:
		return encodeReedSolomon(cfg, sourceShards)
	}
}

func encodeReedSolomon(cfg Config, sourceShards [][]byte) [][]byte {
	enc, err := reedsolomon.New(cfg.N, cfg.M)
	if err != nil {
		panicf("fec: reedsolomon.New(%d, %d): %v", cfg.N, cfg.M, err)
	}

	shards := make([][]byte, cfg.N+cfg.M)
	copy(shards, sourceShards)
	for i := cfg.N; i < cfg.N+cfg.M; i++ {
		shards[i] = make([]byte, cfg.S)
	}
	if err := enc.Encode(shards); err != nil {
		panicf("fec: reedsolomon encode: %v", err)
	}
	return shards[cfg.N:]
}

func encodeLDPCStaircase(cfg Config, sourceShards [][]byte) [][]byte {
	n1 := cfg.LDPCN1
	if n1 <= 0 {
		n1 = 7
	}
	if n1 > cfg.N {
		n1 = cfg.N
	}
	equations := buildLDPCEquations(cfg.N, cfg.M, n1, cfg.LDPCSeed)

	repair := make([][]byte, cfg.M)
	for i, members := range equations {
		sym := make([]byte, cfg.S)
		for _, idx := range members {
			xorInto(sym, sourceShards[idx])
		}
		repair[i] = sym
	}
	return repair
}
