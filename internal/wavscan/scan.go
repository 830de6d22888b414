// SPDX-License-Identifier: MIT
//
// Package wavscan runs the spectral pipeline offline over WAV files.
// The file is split into fixed-size blocks, each block goes through the
// same transform the live engine uses, and the magnitudes are averaged
// into a single spectrum for the whole file.
package wavscan

import (
	"fmt"
	"math"
	"os"

	"spectro/internal/analysis"
	"spectro/internal/spectral"
	"spectro/pkg/utils"

	"github.com/go-audio/wav"
)

// BandLevel is the averaged energy of one log-spaced frequency band.
type BandLevel struct {
	Name   string
	Low    float64 // Hz, inclusive
	High   float64 // Hz, exclusive
	Energy float64
}

// Report summarizes one analyzed file.
type Report struct {
	Path       string
	SampleRate float64
	Channels   int
	BitDepth   int

	Frames    int // frames decoded from the file
	Blocks    int // full blocks analyzed
	Discarded int // trailing frames short of a block

	Average []float32 // averaged magnitude spectrum, one value per bin
	PeakBin int       // strongest bin between DC and Nyquist
	PeakHz  float64
	PeakMag float32

	Bands []BandLevel
}

// AnalyzeFile decodes path and averages the magnitude spectrum over
// all full blocks of blockSize frames. Multichannel files are analyzed
// on channel 0, matching the live engine. The trailing partial block,
// if any, is discarded. bandCount controls the log-spaced band summary
// and may be 0 to skip it.
func AnalyzeFile(path string, blockSize, bandCount int) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavscan: %w", err)
	}
	defer f.Close()

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("wavscan: %s is not a valid WAV file", path)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wavscan: decoding %s: %w", path, err)
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		return nil, fmt.Errorf("wavscan: %s reports %d channels", path, channels)
	}
	bitDepth := int(decoder.BitDepth)
	sampleRate := float64(buf.Format.SampleRate)

	frames := len(buf.Data) / channels
	blocks := frames / blockSize
	if blocks == 0 {
		return nil, fmt.Errorf("wavscan: %s holds %d frames, need at least %d", path, frames, blockSize)
	}

	processor, err := spectral.New(blockSize)
	if err != nil {
		return nil, err
	}

	// Scale source samples onto [-1, 1) at their native depth.
	scale := float32(1) / float32(int64(1)<<(bitDepth-1))

	block := make([]float32, blockSize)
	magnitudes := make([]float32, blockSize)
	sum := make([]float64, blockSize)

	for b := 0; b < blocks; b++ {
		base := b * blockSize * channels
		for i := 0; i < blockSize; i++ {
			block[i] = float32(buf.Data[base+i*channels]) * scale
		}
		if err := processor.ProcessInto(magnitudes, block); err != nil {
			return nil, err
		}
		for i, m := range magnitudes {
			sum[i] += float64(m)
		}
	}

	average := make([]float32, blockSize)
	for i, s := range sum {
		average[i] = float32(s / float64(blocks))
	}

	report := &Report{
		Path:       path,
		SampleRate: sampleRate,
		Channels:   channels,
		BitDepth:   bitDepth,
		Frames:     frames,
		Blocks:     blocks,
		Discarded:  frames - blocks*blockSize,
		Average:    average,
	}

	// Peak search over the unique half, skipping DC.
	report.PeakBin = utils.FindPeakBin(average, 1, blockSize/2)
	report.PeakHz = float64(report.PeakBin) * sampleRate / float64(blockSize)
	report.PeakMag = average[report.PeakBin]

	if bandCount > 0 {
		report.Bands = foldBands(average, sampleRate, bandCount)
	}

	return report, nil
}

// foldBands aggregates the lower half of the spectrum into log-spaced
// bands, using the same energy convention as the live band stage.
func foldBands(spectrum []float32, sampleRate float64, bandCount int) []BandLevel {
	bands := analysis.LogSpacedBands(bandCount, sampleRate)
	if bands == nil {
		return nil
	}

	n := len(spectrum)
	levels := make([]BandLevel, len(bands))
	for i, band := range bands {
		levels[i] = BandLevel{Name: band.Name, Low: band.LowHz, High: band.HighHz}
	}

	sums := make([]float64, len(bands))
	counts := make([]int, len(bands))
	for bin := 1; bin <= n/2; bin++ {
		freq := float64(bin) * sampleRate / float64(n)
		for i, band := range bands {
			if freq >= band.LowHz && freq < band.HighHz {
				mag := float64(spectrum[bin])
				sums[i] += mag * mag
				counts[i]++
				break
			}
		}
	}

	for i := range levels {
		if counts[i] > 0 {
			levels[i].Energy = math.Sqrt(sums[i] / float64(counts[i]))
		}
	}
	return levels
}
