// SPDX-License-Identifier: MIT
package wavscan

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	testBlockSize  = 1024
	testSampleRate = 44100
)

// writeTestWAV renders a sine on channel 0 (other channels silent) and
// encodes it at the given depth.
func writeTestWAV(t *testing.T, path string, channels, bitDepth, frames int, freq float64) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, testSampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: channels,
			SampleRate:  testSampleRate,
		},
		SourceBitDepth: bitDepth,
		Data:           make([]int, frames*channels),
	}

	amp := float64(int64(1)<<(bitDepth-1)-1) * 0.9
	for i := 0; i < frames; i++ {
		s := int(math.Sin(2*math.Pi*freq*float64(i)/testSampleRate) * amp)
		buf.Data[i*channels] = s
	}

	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func TestAnalyzeFileSine(t *testing.T) {
	const cycles = 93
	freq := float64(cycles) * testSampleRate / testBlockSize
	path := filepath.Join(t.TempDir(), "sine.wav")

	// Four full blocks plus a 100 frame tail that must be discarded.
	writeTestWAV(t, path, 1, 16, 4*testBlockSize+100, freq)

	report, err := AnalyzeFile(path, testBlockSize, 0)
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}

	if report.SampleRate != testSampleRate {
		t.Errorf("SampleRate = %v, want %v", report.SampleRate, float64(testSampleRate))
	}
	if report.Channels != 1 {
		t.Errorf("Channels = %d, want 1", report.Channels)
	}
	if report.BitDepth != 16 {
		t.Errorf("BitDepth = %d, want 16", report.BitDepth)
	}
	if report.Blocks != 4 {
		t.Errorf("Blocks = %d, want 4", report.Blocks)
	}
	if report.Discarded != 100 {
		t.Errorf("Discarded = %d, want 100", report.Discarded)
	}
	if len(report.Average) != testBlockSize {
		t.Fatalf("Average has %d bins, want %d", len(report.Average), testBlockSize)
	}

	if report.PeakBin != cycles {
		t.Errorf("PeakBin = %d, want %d", report.PeakBin, cycles)
	}
	if math.Abs(report.PeakHz-freq) > 1e-6 {
		t.Errorf("PeakHz = %v, want %v", report.PeakHz, freq)
	}
	if report.PeakMag <= 0 {
		t.Errorf("PeakMag = %v, want > 0", report.PeakMag)
	}

	// A full-scale-ish tone on a bin center lands near 0.9 * N/2.
	want := 0.9 * testBlockSize / 2
	if math.Abs(float64(report.PeakMag)-want) > want*0.05 {
		t.Errorf("PeakMag = %v, want about %v", report.PeakMag, want)
	}
}

func TestAnalyzeFileStereoUsesFirstChannel(t *testing.T) {
	const cycles = 50
	freq := float64(cycles) * testSampleRate / testBlockSize
	path := filepath.Join(t.TempDir(), "stereo.wav")
	writeTestWAV(t, path, 2, 16, 2*testBlockSize, freq)

	report, err := AnalyzeFile(path, testBlockSize, 0)
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}

	if report.Channels != 2 {
		t.Errorf("Channels = %d, want 2", report.Channels)
	}
	if report.Blocks != 2 {
		t.Errorf("Blocks = %d, want 2", report.Blocks)
	}
	if report.PeakBin != cycles {
		t.Errorf("PeakBin = %d, want %d", report.PeakBin, cycles)
	}
}

func TestAnalyzeFileBands(t *testing.T) {
	const cycles = 93
	freq := float64(cycles) * testSampleRate / testBlockSize
	path := filepath.Join(t.TempDir(), "banded.wav")
	writeTestWAV(t, path, 1, 16, 2*testBlockSize, freq)

	report, err := AnalyzeFile(path, testBlockSize, 8)
	if err != nil {
		t.Fatalf("AnalyzeFile: %v", err)
	}
	if len(report.Bands) != 8 {
		t.Fatalf("got %d bands, want 8", len(report.Bands))
	}

	// The band containing the tone must carry the most energy.
	toneBand, maxBand := -1, 0
	for i, band := range report.Bands {
		if freq >= band.Low && freq < band.High {
			toneBand = i
		}
		if band.Energy > report.Bands[maxBand].Energy {
			maxBand = i
		}
	}
	if toneBand == -1 {
		t.Fatalf("no band covers %v Hz", freq)
	}
	if maxBand != toneBand {
		t.Errorf("loudest band = %d (%s), want %d (%s)",
			maxBand, report.Bands[maxBand].Name, toneBand, report.Bands[toneBand].Name)
	}
}

func TestAnalyzeFileErrors(t *testing.T) {
	dir := t.TempDir()

	if _, err := AnalyzeFile(filepath.Join(dir, "missing.wav"), testBlockSize, 0); err == nil {
		t.Error("expected error for missing file")
	}

	garbage := filepath.Join(dir, "garbage.wav")
	if err := os.WriteFile(garbage, []byte("not a wav file"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := AnalyzeFile(garbage, testBlockSize, 0); err == nil {
		t.Error("expected error for invalid file")
	}

	short := filepath.Join(dir, "short.wav")
	writeTestWAV(t, short, 1, 16, testBlockSize/2, 440)
	if _, err := AnalyzeFile(short, testBlockSize, 0); err == nil {
		t.Error("expected error for file shorter than one block")
	}
}
