// SPDX-License-Identifier: MIT
package spectral

import (
	"fmt"
	"spectro/pkg/bitint"

	algofft "github.com/MeKo-Christian/algo-fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Transformer executes one in-place forward FFT over a complex block.
//
// Implementations follow the unnormalized DFT convention (no scaling on
// the forward pass) and may keep internal scratch state between calls, so
// a Transformer must not be shared across goroutines without external
// serialization. Processor provides that serialization.
type Transformer interface {
	Transform(block []complex64) error
}

// newTransformer selects a transform backend for the given block length.
// Power-of-two lengths run on a pre-resolved complex64 codelet; all other
// lengths fall back to the generic complex128 transform, which plans any
// positive length. Codelet coverage is not guaranteed for every power of
// two, so a failed plan also lands on the generic backend.
func newTransformer(size int) Transformer {
	if bitint.IsPowerOfTwo(size) {
		if plan, err := algofft.NewFastPlan[complex64](size); err == nil {
			return &fastTransformer{plan: plan}
		}
	}
	return newCmplxTransformer(size)
}

// fastTransformer runs blocks through a power-of-two codelet with
// pre-allocated scratch. The plan skips per-call validation, so Transform
// must only ever see blocks of the planned length.
type fastTransformer struct {
	plan *algofft.FastPlan[complex64]
}

var _ Transformer = (*fastTransformer)(nil)

func (t *fastTransformer) Transform(block []complex64) error {
	t.plan.InPlace(block)
	return nil
}

// cmplxTransformer bridges blocks through a complex128 transform. The
// widening costs two extra passes per block but places no power-of-two
// constraint on the length.
type cmplxTransformer struct {
	fft  *fourier.CmplxFFT
	work []complex128 // ...for the widened block, transformed in place
}

var _ Transformer = (*cmplxTransformer)(nil)

func newCmplxTransformer(size int) *cmplxTransformer {
	return &cmplxTransformer{
		fft:  fourier.NewCmplxFFT(size),
		work: make([]complex128, size),
	}
}

func (t *cmplxTransformer) Transform(block []complex64) error {
	if len(block) != len(t.work) {
		return fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(block), len(t.work))
	}
	for i, c := range block {
		t.work[i] = complex128(c)
	}
	t.fft.Coefficients(t.work, t.work)
	for i, c := range t.work {
		block[i] = complex64(c)
	}
	return nil
}
