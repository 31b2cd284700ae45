// SPDX-License-Identifier: BSD-2-Clause

package fec

import (
	"testing"

	"github.com/klauspost/reedsolomon"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/require"
)

// sliceReader is a PacketReader that serves packets from a fixed slice in
// order, one per call, returning (nil, false) once exhausted. It models a
// non-blocking upstream collaborator per spec.md section 6.
type sliceReader struct {
	items []Packet
	pos   int
}

func newSliceReader(items ...Packet) *sliceReader {
	return &sliceReader{items: items}
}

func (r *sliceReader) Read() (Packet, bool) {
	if r.pos >= len(r.items) {
		return nil, false
	}
	p := r.items[r.pos]
	r.pos++
	return p, true
}

// testBlock builds one block's worth of source and repair packets for
// Reed-Solomon, m=8. sourceID is latched as the RTP SSRC; blockSN is the
// block's starting sequence number, n/m/s its dimensions. overrideSSRC, if
// non-empty, overrides the SSRC for the packet at that source position
// (used to simulate a foreign-source repair scenario).
func testBlock(t *testing.T, sourceID uint32, blockSN uint16, n, m, s int, overrideSSRC map[int]uint32) (source []Packet, repair []Packet) {
	t.Helper()

	enc, err := reedsolomon.New(n, m)
	require.NoError(t, err)

	shards := make([][]byte, n+m)
	rtpPkts := make([]*rtp.Packet, n)
	for i := 0; i < n; i++ {
		ssrc := sourceID
		if overrideSSRC != nil {
			if v, ok := overrideSSRC[i]; ok {
				ssrc = v
			}
		}
		rtpPkts[i] = &rtp.Packet{
			Header: rtp.Header{
				Version:        2,
				SSRC:           ssrc,
				SequenceNumber: blockSN + uint16(i),
				PayloadType:    8,
				Marker:         i == 0,
			},
			Payload: []byte{byte(i), byte(i + 1), byte(i + 2)},
		}
		data, err := rtpPkts[i].Marshal()
		require.NoError(t, err)
		require.LessOrEqual(t, len(data), s)
		buf := make([]byte, s)
		copy(buf, data)
		shards[i] = buf
	}
	for i := n; i < n+m; i++ {
		shards[i] = make([]byte, s)
	}

	require.NoError(t, enc.Encode(shards))

	source = make([]Packet, n)
	for i := 0; i < n; i++ {
		source[i] = NewSourcePacket(rtpPkts[i], blockSN, uint16(i), uint16(n), s)
	}
	repair = make([]Packet, m)
	for i := 0; i < m; i++ {
		repair[i] = NewRepairPacket(shards[n+i], blockSN, uint16(n+i), uint16(n))
	}
	return source, repair
}

func seqnumsOf(t *testing.T, pkts []Packet) []uint16 {
	t.Helper()
	out := make([]uint16, len(pkts))
	for i, p := range pkts {
		hdr, ok := p.RTP()
		require.True(t, ok)
		out[i] = hdr.SeqNum
	}
	return out
}

func drainAll(r *Reader, max int) []Packet {
	var out []Packet
	for i := 0; i < max; i++ {
		pkt, ok := r.Read()
		if !ok {
			break
		}
		out = append(out, pkt)
	}
	return out
}

const (
	testN = 10
	testM = 5
	testS = 64
)

func TestReaderCleanBlockNoRepairNeeded(t *testing.T) {
	source, _ := testBlock(t, 7, 100, testN, testM, testS, nil)

	r := NewReader(Config{Scheme: SchemeReedSolomon, N: testN, M: testM, S: testS},
		newSliceReader(source...), newSliceReader(), RTPParser{})
	require.True(t, r.Valid())

	got := drainAll(r, testN+2)
	require.Len(t, got, testN)

	seqs := seqnumsOf(t, got)
	expected := make([]uint16, testN)
	for i := range expected {
		expected[i] = 100 + uint16(i)
	}
	require.Equal(t, expected, seqs)
}

func TestReaderLossyButRepairable(t *testing.T) {
	source, repair := testBlock(t, 7, 100, testN, testM, testS, nil)

	// lose source positions 2, 4, 6 (seqnums 102, 104, 106); keep repair 0,1,2
	var presentSource []Packet
	for i, p := range source {
		if i == 2 || i == 4 || i == 6 {
			continue
		}
		presentSource = append(presentSource, p)
	}
	presentRepair := repair[:3]

	r := NewReader(Config{Scheme: SchemeReedSolomon, N: testN, M: testM, S: testS},
		newSliceReader(presentSource...), newSliceReader(presentRepair...), RTPParser{})
	require.True(t, r.Valid())

	got := drainAll(r, testN+2)
	require.Len(t, got, testN)

	seqs := seqnumsOf(t, got)
	expected := make([]uint16, testN)
	for i := range expected {
		expected[i] = 100 + uint16(i)
	}
	require.Equal(t, expected, seqs)
}

func TestReaderUnrepairable(t *testing.T) {
	source, repair := testBlock(t, 7, 100, testN, testM, testS, nil)

	presentSource := source[:2]  // seqnums 100, 101
	presentRepair := repair[:1]  // only 1 parity symbol: 3 total < N

	r := NewReader(Config{Scheme: SchemeReedSolomon, N: testN, M: testM, S: testS},
		newSliceReader(presentSource...), newSliceReader(presentRepair...), RTPParser{})
	require.True(t, r.Valid())

	got := drainAll(r, testN+2)
	seqs := seqnumsOf(t, got)
	require.Equal(t, []uint16{100, 101}, seqs)
}

func TestReaderReorderAcrossBlocks(t *testing.T) {
	// A preceding, fully-present block establishes alignment at sn=100
	// before the reordered arrival described by the scenario plays out.
	priming, _ := testBlock(t, 7, 90, testN, testM, testS, nil)
	block1, _ := testBlock(t, 7, 100, testN, testM, testS, nil)
	block2, _ := testBlock(t, 7, 110, testN, testM, testS, nil)

	// arrival order: block2's first packet, then all of block1, then the
	// rest of block2 — block2[0] arrives before block1 is complete, but
	// since it is beyond the current block's boundary it is held in the
	// queue rather than consumed.
	arrival := append([]Packet{}, priming...)
	arrival = append(arrival, block2[0])
	arrival = append(arrival, block1...)
	arrival = append(arrival, block2[1:]...)

	r := NewReader(Config{Scheme: SchemeReedSolomon, N: testN, M: testM, S: testS},
		newSliceReader(arrival...), newSliceReader(), RTPParser{})
	require.True(t, r.Valid())

	got := drainAll(r, 3*testN+2)
	seqs := seqnumsOf(t, got)

	expected := make([]uint16, 0, 3*testN)
	for i := 0; i < testN; i++ {
		expected = append(expected, 90+uint16(i))
	}
	for i := 0; i < testN; i++ {
		expected = append(expected, 100+uint16(i))
	}
	for i := 0; i < testN; i++ {
		expected = append(expected, 110+uint16(i))
	}
	require.Equal(t, expected, seqs)
}

func TestReaderForeignSourceKillsSession(t *testing.T) {
	source, repair := testBlock(t, 7, 100, testN, testM, testS, map[int]uint32{3: 8})

	// Drop position 3 (the foreign one) from source so it must be
	// reconstructed from parity, surfacing the foreign SSRC.
	var presentSource []Packet
	for i, p := range source {
		if i == 3 {
			continue
		}
		presentSource = append(presentSource, p)
	}

	r := NewReader(Config{Scheme: SchemeReedSolomon, N: testN, M: testM, S: testS},
		newSliceReader(presentSource...), newSliceReader(repair...), RTPParser{})
	require.True(t, r.Valid())

	got := drainAll(r, testN+2)
	require.False(t, r.Alive())
	for _, pkt := range got {
		hdr, ok := pkt.RTP()
		require.True(t, ok)
		require.Equal(t, uint32(7), hdr.SourceID)
	}

	// Once dead, Read must return (nil, false) forever.
	pkt, ok := r.Read()
	require.False(t, ok)
	require.Nil(t, pkt)
}

func TestReaderSequenceNumberWrap(t *testing.T) {
	block1, _ := testBlock(t, 7, 65530, testN, testM, testS, nil)
	block2, _ := testBlock(t, 7, 4, testN, testM, testS, nil)

	arrival := append([]Packet{}, block1...)
	arrival = append(arrival, block2...)

	r := NewReader(Config{Scheme: SchemeReedSolomon, N: testN, M: testM, S: testS},
		newSliceReader(arrival...), newSliceReader(), RTPParser{})
	require.True(t, r.Valid())

	got := drainAll(r, 2*testN+2)
	seqs := seqnumsOf(t, got)

	expected := []uint16{65530, 65531, 65532, 65533, 65534, 65535, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13}
	require.Equal(t, expected, seqs)
}

func TestReaderDuplicateDeliveryDoesNotChangeOutput(t *testing.T) {
	source, _ := testBlock(t, 7, 100, testN, testM, testS, nil)

	withDup := append([]Packet{source[0]}, source...)

	r := NewReader(Config{Scheme: SchemeReedSolomon, N: testN, M: testM, S: testS},
		newSliceReader(withDup...), newSliceReader(), RTPParser{})
	require.True(t, r.Valid())

	got := drainAll(r, testN+2)
	seqs := seqnumsOf(t, got)
	expected := make([]uint16, testN)
	for i := range expected {
		expected[i] = 100 + uint16(i)
	}
	require.Equal(t, expected, seqs)
}

func TestReaderZeroSourceWithParityAloneEmitsNothing(t *testing.T) {
	block0, _ := testBlock(t, 7, 100, testN, testM, testS, nil)
	_, repair1 := testBlock(t, 7, 110, testN, testM, testS, nil)
	block2, _ := testBlock(t, 7, 120, testN, testM, testS, nil)

	sourceArrival := append([]Packet{}, block0...)
	sourceArrival = append(sourceArrival, block2...)

	r := NewReader(Config{Scheme: SchemeReedSolomon, N: testN, M: testM, S: testS},
		newSliceReader(sourceArrival...), newSliceReader(repair1...), RTPParser{})
	require.True(t, r.Valid())

	got := drainAll(r, 2*testN+2)
	seqs := seqnumsOf(t, got)

	expected := make([]uint16, 0, 2*testN)
	for i := 0; i < testN; i++ {
		expected = append(expected, 100+uint16(i))
	}
	for i := 0; i < testN; i++ {
		expected = append(expected, 120+uint16(i))
	}
	// block at sn=110 received zero source packets and only M (< N)
	// repair symbols, so it cannot be reconstructed and contributes
	// nothing to the output (spec.md B3).
	require.Equal(t, expected, seqs)
}
