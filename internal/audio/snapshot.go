// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"sync"

	"spectro/internal/analysis"
)

// SpectrumSnapshot holds the most recent magnitude spectrum produced by
// the engine. Writers and readers run on different goroutines, the
// audio callback updates it while publishers and analysis stages read,
// so access goes through a read-write lock. Before the first update all
// bins read as zero.
type SpectrumSnapshot struct {
	mu         sync.RWMutex
	magnitudes []float32
	sampleRate float64
	frames     uint64
}

var _ analysis.SpectrumProvider = (*SpectrumSnapshot)(nil)

// NewSpectrumSnapshot allocates a snapshot for spectra of the given
// bin count and capture rate.
func NewSpectrumSnapshot(bins int, sampleRate float64) *SpectrumSnapshot {
	return &SpectrumSnapshot{
		magnitudes: make([]float32, bins),
		sampleRate: sampleRate,
	}
}

// update replaces the stored spectrum. Called from the audio callback.
func (s *SpectrumSnapshot) update(src []float32) {
	s.mu.Lock()
	copy(s.magnitudes, src)
	s.frames++
	s.mu.Unlock()
}

// SpectrumInto copies the latest spectrum into dst, which must hold
// exactly Bins() values.
func (s *SpectrumSnapshot) SpectrumInto(dst []float32) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(dst) != len(s.magnitudes) {
		return fmt.Errorf("audio: snapshot needs %d bins, got %d", len(s.magnitudes), len(dst))
	}
	copy(dst, s.magnitudes)
	return nil
}

// Bins returns the number of bins per spectrum, equal to the block size.
func (s *SpectrumSnapshot) Bins() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.magnitudes)
}

// BinFrequency returns the center frequency in Hz of bin k, which is
// k * sampleRate / bins.
func (s *SpectrumSnapshot) BinFrequency(bin int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.magnitudes) == 0 {
		return 0
	}
	return float64(bin) * s.sampleRate / float64(len(s.magnitudes))
}

// SampleRate returns the capture rate behind the spectra.
func (s *SpectrumSnapshot) SampleRate() float64 {
	return s.sampleRate
}

// Frames reports how many spectra have landed so far.
func (s *SpectrumSnapshot) Frames() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frames
}
