// SPDX-License-Identifier: BSD-2-Clause

package fec

import "math/rand"

// ldpcStaircaseCodec is a PRNG-seeded LDPC-Staircase style block codec.
// Parity-check structure and parameter names (prng_seed, N1) follow the
// OpenFEC LDPC-Staircase wrapper this engine was originally layered over
// (original_source/.../of_block_decoder.cpp): repair symbol i always
// includes source symbol i (the "staircase" diagonal), plus N1-1 further
// source symbols chosen pseudo-randomly from the seed.
//
// Decoding is iterative XOR elimination, in the spirit of the
// XOR-combination-of-a-subset-of-blocks approach used by google/gofountain's
// Luby Transform codec in this pack, adapted from an unbounded fountain
// code to equations fixed by a seeded parity-check matrix: repeatedly find
// an equation with exactly one unknown term and solve it, until a pass
// makes no further progress.
type ldpcStaircaseCodec struct {
	n, m int
	s    int
	n1   int
	seed uint32

	symbols [][]byte
	present []bool
	received int

	// equations[i] lists the source-symbol indices XORed together to
	// produce repair symbol i (always includes i itself).
	equations [][]int

	decoded  bool
}

func newLDPCStaircaseCodec(cfg Config) *ldpcStaircaseCodec {
	n1 := cfg.LDPCN1
	if n1 <= 0 {
		n1 = 7
	}
	if n1 > cfg.N {
		n1 = cfg.N
	}
	c := &ldpcStaircaseCodec{
		n:    cfg.N,
		m:    cfg.M,
		s:    cfg.S,
		n1:   n1,
		seed: cfg.LDPCSeed,
	}
	c.equations = buildLDPCEquations(cfg.N, cfg.M, n1, cfg.LDPCSeed)
	c.reset()
	return c
}

// buildLDPCEquations deterministically derives, for each repair index, the
// set of source indices it XORs together. Repair i always covers source
// symbol i (the staircase diagonal) plus n1-1 further distinct source
// indices chosen by a seeded PRNG, so the structure is reproducible between
// encoder and decoder without transmitting the matrix.
func buildLDPCEquations(n, m, n1 int, seed uint32) [][]int {
	rng := rand.New(rand.NewSource(int64(seed)))
	eqs := make([][]int, m)
	for i := 0; i < m; i++ {
		members := map[int]bool{i % n: true}
		for len(members) < n1 && len(members) < n {
			members[rng.Intn(n)] = true
		}
		idx := make([]int, 0, len(members))
		for k := range members {
			idx = append(idx, k)
		}
		eqs[i] = idx
	}
	return eqs
}

func (c *ldpcStaircaseCodec) Set(index int, payload []byte) {
	if index < 0 || index >= c.n+c.m {
		panicf("fec: ldpc: index %d out of range [0, %d)", index, c.n+c.m)
	}
	if len(payload) != c.s {
		panicf("fec: ldpc: payload length %d != symbol size %d", len(payload), c.s)
	}
	if c.present[index] {
		panicf("fec: ldpc: index %d already set", index)
	}

	buf := make([]byte, c.s)
	copy(buf, payload)
	c.symbols[index] = buf
	c.present[index] = true
	c.received++
}

func (c *ldpcStaircaseCodec) Repair(index int) ([]byte, bool) {
	if index < 0 || index >= c.n {
		panicf("fec: ldpc: repair index %d out of range [0, %d)", index, c.n)
	}
	if c.present[index] {
		return c.symbols[index], true
	}

	if !c.decoded {
		c.decoded = true
		if c.received >= c.n {
			c.solve()
		}
	}

	if c.symbols[index] == nil {
		return nil, false
	}
	return c.symbols[index], true
}

// solve performs belief-propagation-style XOR elimination: repeatedly scan
// the repair equations for one with exactly one unresolved source term and
// solve it by XORing the repair symbol with every other known term.
func (c *ldpcStaircaseCodec) solve() {
	for progress := true; progress; {
		progress = false
		for r, members := range c.equations {
			repairIdx := c.n + r
			if !c.present[repairIdx] {
				continue
			}

			var unknown = -1
			unknownCount := 0
			for _, src := range members {
				if c.symbols[src] == nil {
					unknownCount++
					unknown = src
				}
			}
			if unknownCount != 1 {
				continue
			}

			result := make([]byte, c.s)
			copy(result, c.symbols[repairIdx])
			for _, src := range members {
				if src == unknown {
					continue
				}
				xorInto(result, c.symbols[src])
			}
			c.symbols[unknown] = result
			progress = true
		}
	}
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

func (c *ldpcStaircaseCodec) Reset() {
	c.reset()
}

func (c *ldpcStaircaseCodec) reset() {
	c.symbols = make([][]byte, c.n+c.m)
	c.present = make([]bool, c.n+c.m)
	c.received = 0
	c.decoded = false
}
