// SPDX-License-Identifier: BSD-2-Clause

// Package fec implements a FEC-aware receive reordering and repair engine
// for a real-time audio transport. It consumes a source stream of
// payload-carrying packets and a repair stream of parity packets produced
// by a block erasure code, and delivers a contiguous, in-order sequence of
// source packets, reconstructing losses from parity when possible.
package fec

import (
	"fmt"

	"github.com/pion/rtp"
)

// RTPHeader is the subset of an RTP header the engine cares about.
type RTPHeader struct {
	SourceID    uint32
	SeqNum      uint16
	Marker      bool
	PayloadType uint8
}

// FECHeader carries the block-erasure-coding coordinates of a packet.
// BlockNumber identifies the block; SymbolID identifies the packet's
// position within the block: source symbols occupy
// [0, SourceBlockLength), repair symbols occupy
// [SourceBlockLength, SourceBlockLength+repairCount).
type FECHeader struct {
	BlockNumber       uint16
	SymbolID          uint16
	SourceBlockLength uint16
	Payload           []byte
}

// Packet is the opaque packet handle the engine operates on. Concrete
// implementations are supplied by the (out-of-scope) transport layer; the
// engine only ever calls these three accessors.
type Packet interface {
	// RTP returns the RTP header, if this packet carries one.
	RTP() (RTPHeader, bool)
	// FEC returns the FEC header, if this packet carries one.
	FEC() (FECHeader, bool)
	// Data returns the packet's raw wire bytes.
	Data() []byte
}

// Parser reconstructs a Packet from a reassembled payload buffer, as
// produced by a BlockCodec repair. It mirrors the external "packet parser"
// collaborator described by the spec: the FEC engine never parses RTP
// itself except for repaired payloads.
type Parser interface {
	Parse(buf []byte) (Packet, bool)
}

// rtpPacket is the concrete Packet implementation used by tests and the
// bench harness, wrapping a pion/rtp.Packet plus the FEC header passed to
// its constructor. Packets produced by RTPParser carry no FEC header.
type rtpPacket struct {
	rtp  *rtp.Packet
	fec  *FECHeader
	data []byte
}

// NewSourcePacket builds a Packet for a source-stream symbol: an RTP
// packet, tagged with its block coordinates. The FEC symbol carried by
// this packet is the packet's full wire bytes (header + payload),
// zero-padded to symbolSize, since a repaired symbol must be reparsed as a
// complete RTP packet (spec.md section 4.3.7).
func NewSourcePacket(rtpPkt *rtp.Packet, blockNumber, symbolID, sourceBlockLength uint16, symbolSize int) Packet {
	data, _ := rtpPkt.Marshal()
	if len(data) > symbolSize {
		panicf("fec: source packet wire size %d exceeds symbol size %d", len(data), symbolSize)
	}
	symbol := make([]byte, symbolSize)
	copy(symbol, data)
	return &rtpPacket{
		rtp: rtpPkt,
		fec: &FECHeader{
			BlockNumber:       blockNumber,
			SymbolID:          symbolID,
			SourceBlockLength: sourceBlockLength,
			Payload:           symbol,
		},
		data: data,
	}
}

// NewRepairPacket builds a Packet for a repair-stream symbol: a parity
// payload with no RTP header of its own.
func NewRepairPacket(payload []byte, blockNumber, symbolID, sourceBlockLength uint16) Packet {
	return &rtpPacket{
		fec: &FECHeader{
			BlockNumber:       blockNumber,
			SymbolID:          symbolID,
			SourceBlockLength: sourceBlockLength,
			Payload:           payload,
		},
		data: payload,
	}
}

func (p *rtpPacket) RTP() (RTPHeader, bool) {
	if p.rtp == nil {
		return RTPHeader{}, false
	}
	return RTPHeader{
		SourceID:    p.rtp.SSRC,
		SeqNum:      p.rtp.SequenceNumber,
		Marker:      p.rtp.Marker,
		PayloadType: p.rtp.PayloadType,
	}, true
}

func (p *rtpPacket) FEC() (FECHeader, bool) {
	if p.fec == nil {
		return FECHeader{}, false
	}
	return *p.fec, true
}

func (p *rtpPacket) Data() []byte { return p.data }

// RTPParser parses a reconstructed payload buffer as a bare RTP packet.
// This is the default Parser implementation, backed by pion/rtp, used when
// the repaired buffer is itself a full RTP packet (header + payload).
type RTPParser struct{}

func (RTPParser) Parse(buf []byte) (Packet, bool) {
	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(buf); err != nil {
		return nil, false
	}
	return &rtpPacket{rtp: pkt, data: buf}, true
}

func panicf(format string, args ...any) {
	panic(fmt.Sprintf(format, args...))
}
