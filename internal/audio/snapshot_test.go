// SPDX-License-Identifier: MIT
package audio

import (
	"math"
	"sync"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	snap := NewSpectrumSnapshot(4, testSampleRate)

	// Before the first update every bin reads as zero.
	out := make([]float32, 4)
	if err := snap.SpectrumInto(out); err != nil {
		t.Fatalf("SpectrumInto: %v", err)
	}
	for i, v := range out {
		if v != 0 {
			t.Errorf("bin %d = %v before first update, want 0", i, v)
		}
	}

	snap.update([]float32{0, 2, 0, 2})
	if err := snap.SpectrumInto(out); err != nil {
		t.Fatalf("SpectrumInto: %v", err)
	}
	want := []float32{0, 2, 0, 2}
	for i, v := range want {
		if out[i] != v {
			t.Errorf("bin %d = %v, want %v", i, out[i], v)
		}
	}

	if got := snap.Frames(); got != 1 {
		t.Errorf("Frames = %d, want 1", got)
	}
	if got := snap.Bins(); got != 4 {
		t.Errorf("Bins = %d, want 4", got)
	}
}

func TestSnapshotLengthMismatch(t *testing.T) {
	snap := NewSpectrumSnapshot(8, testSampleRate)

	if err := snap.SpectrumInto(make([]float32, 4)); err == nil {
		t.Error("expected error for short destination")
	}
	if err := snap.SpectrumInto(make([]float32, 16)); err == nil {
		t.Error("expected error for long destination")
	}
}

func TestSnapshotBinFrequency(t *testing.T) {
	snap := NewSpectrumSnapshot(testFrameSize, testSampleRate)

	if got := snap.BinFrequency(0); got != 0 {
		t.Errorf("BinFrequency(0) = %v, want 0", got)
	}

	want := testSampleRate / testFrameSize
	if got := snap.BinFrequency(1); math.Abs(got-want) > 1e-9 {
		t.Errorf("BinFrequency(1) = %v, want %v", got, want)
	}

	// The Nyquist bin sits at half the sample rate.
	if got := snap.BinFrequency(testFrameSize / 2); math.Abs(got-testSampleRate/2) > 1e-9 {
		t.Errorf("BinFrequency(N/2) = %v, want %v", got, testSampleRate/2)
	}

	if got := snap.SampleRate(); got != testSampleRate {
		t.Errorf("SampleRate = %v, want %v", got, float64(testSampleRate))
	}
}

func TestSnapshotConcurrentAccess(t *testing.T) {
	snap := NewSpectrumSnapshot(64, testSampleRate)
	spectrum := make([]float32, 64)
	for i := range spectrum {
		spectrum[i] = float32(i)
	}

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for range 100 {
				snap.update(spectrum)
			}
		}()
		go func() {
			defer wg.Done()
			dst := make([]float32, 64)
			for range 100 {
				if err := snap.SpectrumInto(dst); err != nil {
					t.Errorf("SpectrumInto: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := snap.Frames(); got != 400 {
		t.Errorf("Frames = %d, want 400", got)
	}
}
