// SPDX-License-Identifier: BSD-2-Clause

// fecbench drives a fec.Reader over a synthetic source/repair stream with
// configurable, seeded packet loss, and reports how much of the loss was
// recovered. It exists to let the erasure-coding parameters (N, M, S,
// scheme) be tuned against a reproducible loss pattern without a live
// transport.
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/pion/rtp"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/rocaudio/fecreader/fec"
)

func main() {
	var (
		n       = flag.IntP("source-symbols", "n", 10, "source symbols per block (N)")
		m       = flag.IntP("repair-symbols", "m", 3, "repair symbols per block (M)")
		s       = flag.IntP("symbol-size", "s", 256, "fixed symbol size in bytes (S)")
		blocks  = flag.IntP("blocks", "b", 1000, "number of blocks to simulate")
		lossPct = flag.Float64P("loss", "l", 5.0, "source packet loss percentage")
		seed    = flag.Int64P("seed", "r", 1, "PRNG seed for the loss pattern and the LDPC-Staircase matrix")
		scheme  = flag.StringP("scheme", "c", "reed-solomon", "erasure code: reed-solomon or ldpc-staircase")
		verbose = flag.BoolP("verbose", "v", false, "enable fec package trace logging")
		help    = flag.Bool("help", false, "display help text")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "fecbench: replay a synthetic lossy FEC block stream\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}

	if *verbose {
		fec.Debug = true
		fec.SetLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())
	}

	cfg := fec.Config{N: *n, M: *m, S: *s}
	switch *scheme {
	case "ldpc-staircase":
		cfg.Scheme = fec.SchemeLDPCStaircase
		cfg.LDPCSeed = uint32(*seed)
		cfg.LDPCN1 = 7
	default:
		cfg.Scheme = fec.SchemeReedSolomon
	}

	rng := rand.New(rand.NewSource(*seed))
	sourcePkts, repairPkts := buildStream(cfg, *blocks, *lossPct, rng)

	reader := fec.NewReader(cfg, sliceReader(sourcePkts), sliceReader(repairPkts), fec.RTPParser{})
	if !reader.Valid() {
		fmt.Fprintln(os.Stderr, "fecbench: invalid configuration")
		os.Exit(1)
	}

	var delivered, wantTotal int
	wantTotal = *blocks * *n
	for {
		_, ok := reader.Read()
		if !ok {
			if !reader.Alive() {
				fmt.Fprintln(os.Stderr, "fecbench: session died (foreign source id)")
			}
			break
		}
		delivered++
		if delivered >= wantTotal {
			break
		}
	}

	lost := wantTotal - delivered
	fmt.Printf("scheme=%s N=%d M=%d S=%d blocks=%d loss=%.1f%%\n", cfg.Scheme, *n, *m, *s, *blocks, *lossPct)
	fmt.Printf("delivered=%d/%d undelivered=%d (%.3f%%)\n", delivered, wantTotal, lost, 100*float64(lost)/float64(wantTotal))
}

// buildStream generates blocks*n source packets and blocks*m repair
// packets for a sequential SSRC/sequence-number stream, dropping source
// packets at lossPct according to rng, and returns each stream's surviving
// packets in arrival order.
func buildStream(cfg fec.Config, blocks int, lossPct float64, rng *rand.Rand) (source, repair []fec.Packet) {
	const ssrc = 0xC0FFEE

	var blockSN uint16
	for b := 0; b < blocks; b++ {
		shards := make([][]byte, cfg.N)
		rtpPkts := make([]*rtp.Packet, cfg.N)

		for i := 0; i < cfg.N; i++ {
			rtpPkts[i] = &rtp.Packet{
				Header: rtp.Header{
					Version:        2,
					SSRC:           ssrc,
					SequenceNumber: blockSN + uint16(i),
					PayloadType:    8,
				},
				Payload: []byte{byte(b), byte(i)},
			}
			data, err := rtpPkts[i].Marshal()
			if err != nil {
				panic(err)
			}
			buf := make([]byte, cfg.S)
			copy(buf, data)
			shards[i] = buf
		}

		repairShards := fec.EncodeBlock(cfg, shards)

		for i := 0; i < cfg.N; i++ {
			if rng.Float64()*100 < lossPct {
				continue
			}
			source = append(source, fec.NewSourcePacket(rtpPkts[i], blockSN, uint16(i), uint16(cfg.N), cfg.S))
		}
		for i := 0; i < cfg.M; i++ {
			repair = append(repair, fec.NewRepairPacket(repairShards[i], blockSN, uint16(cfg.N+i), uint16(cfg.N)))
		}

		blockSN += uint16(cfg.N)
	}
	return source, repair
}

func sliceReader(items []fec.Packet) fec.PacketReader {
	return &sliceSource{items: items}
}

type sliceSource struct {
	items []fec.Packet
	pos   int
}

func (s *sliceSource) Read() (fec.Packet, bool) {
	if s.pos >= len(s.items) {
		return nil, false
	}
	p := s.items[s.pos]
	s.pos++
	return p, true
}
