// SPDX-License-Identifier: BSD-2-Clause

package fec

import "github.com/klauspost/reedsolomon"

// reedSolomonCodec adapts github.com/klauspost/reedsolomon to the
// BlockCodec contract. It mirrors the "collect into a shard slice, then one
// destructive ReconstructData pass, cache the result" shape that
// xtaci/kcp-go's fecDecoder uses around the same library, generalized from
// kcp-go's ever-advancing shard-id window to this engine's per-block reset
// lifecycle.
type reedSolomonCodec struct {
	n, m int
	s    int

	enc reedsolomon.Encoder

	shards  [][]byte
	present []bool
	received int

	decoded bool
	decodeOK bool
}

func newReedSolomonCodec(cfg Config) *reedSolomonCodec {
	enc, err := reedsolomon.New(cfg.N, cfg.M)
	if err != nil {
		panicf("fec: reedsolomon.New(%d, %d): %v", cfg.N, cfg.M, err)
	}
	c := &reedSolomonCodec{
		n: cfg.N,
		m: cfg.M,
		s: cfg.S,
	}
	c.enc = enc
	c.reset()
	return c
}

func (c *reedSolomonCodec) Set(index int, payload []byte) {
	if index < 0 || index >= c.n+c.m {
		panicf("fec: reedsolomon: index %d out of range [0, %d)", index, c.n+c.m)
	}
	if len(payload) != c.s {
		panicf("fec: reedsolomon: payload length %d != symbol size %d", len(payload), c.s)
	}
	if c.present[index] {
		panicf("fec: reedsolomon: index %d already set", index)
	}

	buf := make([]byte, c.s)
	copy(buf, payload)
	c.shards[index] = buf
	c.present[index] = true
	c.received++
}

func (c *reedSolomonCodec) Repair(index int) ([]byte, bool) {
	if index < 0 || index >= c.n {
		panicf("fec: reedsolomon: repair index %d out of range [0, %d)", index, c.n)
	}
	if c.present[index] {
		return c.shards[index], true
	}

	if !c.decoded {
		c.decoded = true
		if c.received >= c.n {
			if err := c.enc.ReconstructData(c.shards); err == nil {
				c.decodeOK = true
			}
		}
	}

	if !c.decodeOK {
		return nil, false
	}
	if c.shards[index] == nil {
		return nil, false
	}
	return c.shards[index], true
}

func (c *reedSolomonCodec) Reset() {
	c.reset()
}

func (c *reedSolomonCodec) reset() {
	c.shards = make([][]byte, c.n+c.m)
	c.present = make([]bool, c.n+c.m)
	c.received = 0
	c.decoded = false
	c.decodeOK = false
}
