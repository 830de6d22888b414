// SPDX-License-Identifier: MIT
package spectral

import (
	"fmt"
	"math"
	"sync"
)

// Processor computes magnitude spectra for sample blocks of one fixed
// length. The zero value is not usable; construct with New or
// NewWithTransformer.
type Processor struct {
	size      int
	transform Transformer

	mu    sync.Mutex
	block []complex64 // ...for the widened block, reused across calls
}

// New builds a Processor for blocks of exactly size samples. The transform
// plan is created once here and reused by every Process call. Returns
// ErrInvalidSize when size is not positive.
func New(size int) (*Processor, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	return &Processor{
		size:      size,
		transform: newTransformer(size),
		block:     make([]complex64, size),
	}, nil
}

// NewWithTransformer builds a Processor around a caller-supplied transform
// backend. The backend must accept blocks of exactly size samples.
func NewWithTransformer(size int, t Transformer) (*Processor, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, size)
	}
	if t == nil {
		return nil, fmt.Errorf("spectral: nil transformer")
	}
	return &Processor{
		size:      size,
		transform: t,
		block:     make([]complex64, size),
	}, nil
}

// Size returns the block length the Processor was built for.
func (p *Processor) Size() int { return p.size }

// Process runs one block through the forward transform and returns its
// magnitude spectrum as a fresh slice of Size bins.
//
// The samples slice must hold exactly Size values and is never modified.
// The spectrum is unnormalized and covers all Size bins: bin 0 carries the
// DC term, and for real input bin k mirrors bin Size-k. Any other input
// length returns ErrLengthMismatch and a nil slice.
func (p *Processor) Process(samples []float32) ([]float32, error) {
	if len(samples) != p.size {
		return nil, fmt.Errorf("%w: got %d samples, want %d", ErrLengthMismatch, len(samples), p.size)
	}
	spectrum := make([]float32, p.size)
	if err := p.processInto(spectrum, samples); err != nil {
		return nil, err
	}
	return spectrum, nil
}

// ProcessInto is the allocation-free variant of Process: the magnitude
// spectrum is written into dst, which must hold exactly Size values.
func (p *Processor) ProcessInto(dst, samples []float32) error {
	if len(samples) != p.size {
		return fmt.Errorf("%w: got %d samples, want %d", ErrLengthMismatch, len(samples), p.size)
	}
	if len(dst) != p.size {
		return fmt.Errorf("%w: destination holds %d bins, want %d", ErrLengthMismatch, len(dst), p.size)
	}
	return p.processInto(dst, samples)
}

// processInto assumes both lengths were validated by the caller.
func (p *Processor) processInto(dst, samples []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, s := range samples {
		p.block[i] = complex(s, 0)
	}
	if err := p.transform.Transform(p.block); err != nil {
		return fmt.Errorf("spectral: forward transform: %w", err)
	}
	for i, c := range p.block {
		re := float64(real(c))
		im := float64(imag(c))
		dst[i] = float32(math.Sqrt(re*re + im*im))
	}
	return nil
}
