// SPDX-License-Identifier: MIT
package utils

import (
	"math"
	"sync"
)

// CaptureTransport implements the transport interface for testing. It
// records every frame it is handed instead of transmitting, and is safe
// to use from publisher goroutines.
type CaptureTransport struct {
	mu     sync.Mutex
	frames [][]float32
	closed bool
}

// Send stores a copy of the frame for later inspection.
func (c *CaptureTransport) Send(data []float32) error {
	frame := make([]float32, len(data))
	copy(frame, data)

	c.mu.Lock()
	c.frames = append(c.frames, frame)
	c.mu.Unlock()
	return nil
}

// Close marks the transport closed. Frames stay available for inspection.
func (c *CaptureTransport) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

// Sent returns how many frames were captured so far.
func (c *CaptureTransport) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

// Last returns a copy of the most recent frame, or nil if none arrived.
func (c *CaptureTransport) Last() []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.frames) == 0 {
		return nil
	}
	last := c.frames[len(c.frames)-1]
	out := make([]float32, len(last))
	copy(out, last)
	return out
}

// Closed reports whether Close was called.
func (c *CaptureTransport) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// GenerateSineWave renders a pure tone as int32 capture samples at 90%
// of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = int32(math.Sin(2*math.Pi*frequency*t) * math.MaxInt32 * 0.9)
	}
	return buffer
}

// GenerateComplexWave renders a 440Hz fundamental with two harmonics,
// useful as a non-trivial capture signal.
func GenerateComplexWave(size int, sampleRate float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = int32(signal * math.MaxInt32 * 0.9)
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in
// magnitudes[startBin:endBin], clamping the range to the slice.
func FindPeakBin(magnitudes []float32, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
