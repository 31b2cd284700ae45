// SPDX-License-Identifier: BSD-2-Clause

package fec

import (
	"github.com/pion/rtcp"
	"github.com/rs/zerolog"
)

// PacketReader is the upstream packet source contract (spec.md section 6):
// non-blocking, returns (packet, true) when one is available or (nil,
// false) otherwise. The source reader MUST return packets with both RTP
// and FEC headers populated; the repair reader MUST return packets with an
// FEC header populated. Violating this is a programmer error in adjacent
// code and panics.
type PacketReader interface {
	Read() (Packet, bool)
}

// Reader is the FEC-aware receive reordering and repair engine (spec.md
// section 4.3). It pulls from a source and a repair PacketReader, aligns
// them onto a common block boundary, drives a BlockCodec to repair missing
// source packets, and emits source packets strictly in order.
//
// Reader is single-threaded and non-reentrant: Read must not be called
// concurrently with itself.
type Reader struct {
	cfg Config

	sourceReader PacketReader
	repairReader PacketReader
	parser       Parser
	codec        BlockCodec
	logger       zerolog.Logger

	sourceQueue *PacketQueue
	repairQueue *PacketQueue

	sourceWindow *BlockWindow
	repairWindow *BlockWindow

	valid     bool
	alive     bool
	started   bool
	canRepair bool

	nextPacket int
	curBlockSN uint16

	hasSourceID bool
	sourceID    uint32

	stats     blockStats
	lastStats blockStats

	nPackets uint64
}

// ReaderOption configures optional aspects of a Reader at construction.
type ReaderOption func(*Reader)

// WithLogger overrides the logger used by this Reader instance; by default
// Reader uses the package-level logger set via SetLogger.
func WithLogger(l zerolog.Logger) ReaderOption {
	return func(r *Reader) { r.logger = l }
}

// WithBlockCodec overrides the BlockCodec constructed from cfg, primarily
// for tests that want to inject a fake codec.
func WithBlockCodec(c BlockCodec) ReaderOption {
	return func(r *Reader) { r.codec = c }
}

// NewReader constructs a Reader. It returns a Reader with Valid() == false
// if cfg is unusable (non-positive N, M, or S); callers must check Valid()
// before using the reader, matching the construction-failure error class
// of spec.md section 7.
func NewReader(cfg Config, sourceReader, repairReader PacketReader, parser Parser, opts ...ReaderOption) *Reader {
	r := &Reader{
		cfg:          cfg,
		sourceReader: sourceReader,
		repairReader: repairReader,
		parser:       parser,
		logger:       defaultLogger(),
		alive:        true,
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.N <= 0 || cfg.M <= 0 || cfg.S <= 0 {
		return r
	}

	r.sourceQueue = NewPacketQueue()
	r.repairQueue = NewPacketQueue()
	r.sourceWindow = NewBlockWindow(cfg.N)
	r.repairWindow = NewBlockWindow(cfg.M)
	if r.codec == nil {
		r.codec = NewBlockCodec(cfg)
	}
	r.valid = true
	return r
}

// Valid reports whether construction succeeded.
func (r *Reader) Valid() bool { return r.valid }

// Started reports whether block-boundary alignment has completed.
func (r *Reader) Started() bool { return r.started }

// Alive reports whether the session is still usable. Once false, Read
// returns (nil, false) forever.
func (r *Reader) Alive() bool { return r.alive }

// Read returns the next source packet in delivery order, or (nil, false)
// if none is currently available. Callers should retry later in the
// latter case; once Alive() is false the reader never returns a packet
// again.
func (r *Reader) Read() (Packet, bool) {
	if !r.valid {
		panicf("fec: reader: Read called on invalid reader")
	}
	if !r.alive {
		return nil, false
	}

	pkt, ok := r.read()
	if ok {
		r.nPackets++
	}
	if !r.alive {
		return nil, false
	}
	return pkt, ok
}

func (r *Reader) read() (Packet, bool) {
	r.fetchPackets()

	if !r.started {
		head := r.sourceQueue.Head()
		if head != nil {
			rtpHdr, _ := head.RTP()
			if !r.hasSourceID {
				r.sourceID = rtpHdr.SourceID
				r.hasSourceID = true
			}
			r.curBlockSN = rtpHdr.SeqNum
			r.skipRepairPackets()
		}

		if head == nil {
			return nil, false
		}
		fecHdr, _ := head.FEC()
		if fecHdr.SymbolID > 0 {
			return r.sourceQueue.Read(), true
		}

		r.logger.Debug().
			Uint64("packets_before", r.nPackets).
			Uint16("block_sn", r.curBlockSN).
			Msg("fec reader: aligned, starting block decoding")

		r.started = true
	}

	return r.getNextPacket()
}

func (r *Reader) getNextPacket() (Packet, bool) {
	r.updatePackets()

	pkt := r.sourceWindow.Get(r.nextPacket)

	for {
		if pkt == nil {
			r.tryRepair()
			if !r.alive {
				return nil, false
			}

			pos := r.nextPacket
			for pos < r.sourceWindow.Len() && r.sourceWindow.Get(pos) == nil {
				pos++
			}

			if pos == r.sourceWindow.Len() {
				if r.sourceQueue.Size() == 0 {
					return nil, false
				}
			} else {
				pkt = r.sourceWindow.Get(pos)
				pos++
			}
			r.nextPacket = pos
		} else {
			r.nextPacket++
		}

		if r.nextPacket == r.sourceWindow.Len() {
			r.nextBlock()
		}

		if pkt != nil {
			break
		}
	}

	return pkt, true
}

func (r *Reader) nextBlock() {
	r.reportBlock()

	r.sourceWindow.Reset()
	r.repairWindow.Reset()

	r.curBlockSN += uint16(r.cfg.N)
	r.nextPacket = 0
	r.canRepair = false
	r.lastStats = r.stats
	r.stats.reset()

	r.updatePackets()
}

func (r *Reader) tryRepair() {
	if !r.canRepair {
		return
	}

	for n := 0; n < r.sourceWindow.Len(); n++ {
		if pkt := r.sourceWindow.Get(n); pkt != nil {
			// A packet repaired earlier in this block has no FEC header;
			// its Data() is the reconstructed symbol buffer.
			payload := pkt.Data()
			if fecHdr, ok := pkt.FEC(); ok {
				payload = fecHdr.Payload
			}
			r.codec.Set(n, payload)
		}
	}
	for n := 0; n < r.repairWindow.Len(); n++ {
		if pkt := r.repairWindow.Get(n); pkt != nil {
			fecHdr, _ := pkt.FEC()
			r.codec.Set(r.sourceWindow.Len()+n, fecHdr.Payload)
		}
	}

	for n := 0; n < r.sourceWindow.Len(); n++ {
		if r.sourceWindow.Get(n) != nil {
			continue
		}

		buf, ok := r.codec.Repair(n)
		if !ok {
			continue
		}

		pkt, ok := r.parser.Parse(buf)
		if !ok {
			r.logger.Debug().Err(ErrUnparseableRepair).Int("pos", n).Msg("fec reader: can't parse repaired packet")
			continue
		}

		if err := validateRepaired(pkt, r.sourceID, r.curBlockSN, n); err != nil {
			if err == ErrForeignSourceID {
				r.logger.Debug().
					Err(err).
					Int("pos", n).
					Uint32("expected_source", r.sourceID).
					Msg("fec reader: repaired packet has foreign source id, shutting down")
				r.alive = false
				r.codec.Reset()
				r.canRepair = false
				return
			}
			r.logger.Debug().Err(err).Int("pos", n).Msg("fec reader: dropping unexpected repaired packet")
			continue
		}

		r.sourceWindow.Set(n, pkt)
		r.stats.repaired++
	}

	r.codec.Reset()
	r.canRepair = false
}

func (r *Reader) fetchPackets() {
	for r.sourceQueue.Size() <= 2*r.sourceWindow.Len() {
		pkt, ok := r.sourceReader.Read()
		if !ok {
			break
		}
		if _, has := pkt.RTP(); !has {
			panicf("fec: reader: source packet without RTP header")
		}
		if _, has := pkt.FEC(); !has {
			panicf("fec: reader: source packet without FEC header")
		}
		r.sourceQueue.Write(pkt)
	}

	for r.repairQueue.Size() <= 2*r.repairWindow.Len() {
		pkt, ok := r.repairReader.Read()
		if !ok {
			break
		}
		if _, has := pkt.FEC(); !has {
			panicf("fec: reader: repair packet without FEC header")
		}
		r.repairQueue.Write(pkt)
	}
}

func (r *Reader) updatePackets() {
	r.updateSourcePackets()
	r.updateRepairPackets()
}

func (r *Reader) updateSourcePackets() {
	boundary := r.curBlockSN + uint16(r.sourceWindow.Len())

	for {
		pkt := r.sourceQueue.Head()
		if pkt == nil {
			break
		}
		fecHdr, _ := pkt.FEC()

		if !seqLess(fecHdr.BlockNumber, boundary) {
			break
		}
		r.sourceQueue.Read()

		if seqLess(fecHdr.BlockNumber, r.curBlockSN) {
			if Debug {
				r.logger.Trace().Err(ErrStaleBlock).Uint16("blk_sn", r.curBlockSN).Msg("fec reader: dropping stale source packet")
			}
			continue
		}

		if fecHdr.BlockNumber != r.curBlockSN {
			panicf("fec: reader: source packet block number %d != current block %d", fecHdr.BlockNumber, r.curBlockSN)
		}

		p := int(fecHdr.SymbolID)
		rtpHdr, _ := pkt.RTP()
		if seqDiff(rtpHdr.SeqNum, r.curBlockSN) != int32(p) {
			panicf("fec: reader: source packet seqnum %d does not match position %d at block %d", rtpHdr.SeqNum, p, r.curBlockSN)
		}

		if p >= r.sourceWindow.Len() {
			panicf("fec: reader: source packet position %d out of range", p)
		}

		if r.sourceWindow.Get(p) == nil {
			r.sourceWindow.Set(p, pkt)
			r.canRepair = true
			r.stats.sourceReceived++
		} else if Debug {
			r.logger.Trace().Err(ErrDuplicatePosition).Int("pos", p).Msg("fec reader: dropping duplicate source packet")
		}
	}
}

func (r *Reader) updateRepairPackets() {
	boundary := r.curBlockSN + uint16(r.sourceWindow.Len())

	for {
		pkt := r.repairQueue.Head()
		if pkt == nil {
			break
		}
		fecHdr, _ := pkt.FEC()

		if !seqLess(fecHdr.BlockNumber, boundary) {
			break
		}
		r.repairQueue.Read()

		if seqLess(fecHdr.BlockNumber, r.curBlockSN) {
			if Debug {
				r.logger.Trace().Err(ErrStaleBlock).Uint16("blk_sn", r.curBlockSN).Msg("fec reader: dropping stale repair packet")
			}
			continue
		}

		if fecHdr.BlockNumber != r.curBlockSN {
			panicf("fec: reader: repair packet block number %d != current block %d", fecHdr.BlockNumber, r.curBlockSN)
		}

		if fecHdr.SymbolID < fecHdr.SourceBlockLength {
			panicf("fec: reader: repair packet symbol id %d below source block length %d", fecHdr.SymbolID, fecHdr.SourceBlockLength)
		}
		p := int(fecHdr.SymbolID - fecHdr.SourceBlockLength)
		if p >= r.repairWindow.Len() {
			panicf("fec: reader: repair packet position %d out of range", p)
		}

		if r.repairWindow.Get(p) == nil {
			r.repairWindow.Set(p, pkt)
			r.canRepair = true
			r.stats.repairReceived++
		} else if Debug {
			r.logger.Trace().Err(ErrDuplicatePosition).Int("pos", p).Msg("fec reader: dropping duplicate repair packet")
		}
	}
}

func (r *Reader) skipRepairPackets() {
	for {
		pkt := r.repairQueue.Head()
		if pkt == nil {
			break
		}
		fecHdr, _ := pkt.FEC()
		if !seqLess(fecHdr.BlockNumber, r.curBlockSN) {
			break
		}
		r.repairQueue.Read()
		if Debug {
			r.logger.Trace().Err(ErrStaleBlock).Uint16("min_sn", r.curBlockSN).Msg("fec reader: dropping repair packet, decoding not started")
		}
	}
}

func (r *Reader) reportBlock() {
	for n := 0; n < r.sourceWindow.Len(); n++ {
		if r.sourceWindow.Get(n) == nil {
			r.stats.lost++
		}
	}
	if !r.stats.hasLoss() {
		return
	}
	r.logger.Debug().
		Uint16("blk_sn", r.curBlockSN).
		Int("source_received", r.stats.sourceReceived).
		Int("repair_received", r.stats.repairReceived).
		Int("repaired", r.stats.repaired).
		Int("lost", r.stats.lost).
		Msg("fec reader: block advance")
}

// LastReceiverReport renders the most recently completed block's loss
// counters as a pion/rtcp ReceiverReport fragment (spec.md section 4.5 /
// telemetry). Only meaningful immediately after a block advance; it is not
// reset until the next block completes.
func (r *Reader) LastReceiverReport() rtcp.ReceiverReport {
	return r.lastStats.receiverReport(r.sourceID, r.sourceWindow.Len())
}
