// SPDX-License-Identifier: BSD-2-Clause

package fec

import "github.com/pion/rtcp"

// blockStats accumulates per-block loss/repair counters, grounded on the
// OpenFEC LDPC-Staircase wrapper's report_() (original_source/.../
// of_block_decoder.cpp), which logs a "repaired N/lost M/size T" trace line
// per block whenever there was any loss, and on reader.cpp's
// fetched/added/dropped queue-drain counters.
type blockStats struct {
	sourceReceived int
	repairReceived int
	repaired       int
	lost           int
}

func (s *blockStats) reset() {
	*s = blockStats{}
}

func (s *blockStats) hasLoss() bool {
	return s.lost > 0
}

// receiverReport renders the block's loss counters as a pion/rtcp
// ReceiverReport fragment, for a caller that wants to fold FEC-layer loss
// into outbound RTCP reporting. This never sends anything; it only builds
// the struct. blockSize is N (source symbols per block).
func (s *blockStats) receiverReport(sourceSSRC uint32, blockSize int) rtcp.ReceiverReport {
	var fraction uint8
	if blockSize > 0 {
		fraction = uint8(min((s.lost*256)/blockSize, 255))
	}
	return rtcp.ReceiverReport{
		Reports: []rtcp.ReceptionReport{
			{
				SSRC:         sourceSSRC,
				FractionLost: fraction,
				TotalLost:    uint32(s.lost),
			},
		},
	}
}
