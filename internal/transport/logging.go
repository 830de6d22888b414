// SPDX-License-Identifier: MIT
package transport

import (
	"sync/atomic"

	applog "spectro/internal/log"
)

// LoggingTransport counts frames and periodically logs the loudest bin.
// Useful during bring-up when no consumer is connected yet.
type LoggingTransport struct {
	frames   atomic.Uint64
	logEvery uint64 // log one frame per logEvery, 0 logs nothing
}

// NewLoggingTransport returns a transport that logs every n-th frame.
func NewLoggingTransport(logEvery uint64) *LoggingTransport {
	return &LoggingTransport{logEvery: logEvery}
}

func (t *LoggingTransport) Send(spectrum []float32) error {
	n := t.frames.Add(1)
	if t.logEvery == 0 || n%t.logEvery != 0 {
		return nil
	}

	peakBin := 0
	peakMag := float32(0)
	for i, m := range spectrum {
		if m > peakMag {
			peakMag = m
			peakBin = i
		}
	}
	applog.Debugf("Frame %d: %d bins, peak bin=%d mag=%.2f", n, len(spectrum), peakBin, peakMag)
	return nil
}

func (t *LoggingTransport) Close() error {
	applog.Debugf("Logging transport closed after %d frames", t.frames.Load())
	return nil
}

// Frames reports how many spectra were sent so far.
func (t *LoggingTransport) Frames() uint64 { return t.frames.Load() }

var _ Transport = (*LoggingTransport)(nil)
