// SPDX-License-Identifier: BSD-2-Clause

package fec

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Debug gates the per-packet trace events for dropped stale and duplicate
// packets. Off by default; flip it on for troubleshooting, mirroring the
// teacher's RTPDebug/RTCPDebug package-level switches.
var Debug = false

var pkgLogger = log.Logger

// SetLogger overrides the package-level logger used by Reader instances
// that were not given their own logger via WithLogger.
func SetLogger(l zerolog.Logger) {
	pkgLogger = l
}

func defaultLogger() zerolog.Logger {
	return pkgLogger
}
