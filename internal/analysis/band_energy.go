// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math"

	applog "spectro/internal/log"
)

// FrequencyBand is one aggregation range for band energy.
type FrequencyBand struct {
	Name   string
	LowHz  float64
	HighHz float64
}

// BandFrame is the per-block band energy report sent to clients. Values
// follow the unnormalized magnitude convention of the spectra they are
// folded from; scaling for display belongs to the client.
type BandFrame struct {
	Type  string             `json:"type"` // always "band_energy"
	Bands map[string]float64 `json:"bands"`
}

// LogSpacedBands splits the range from 20Hz to the Nyquist frequency
// into count logarithmically spaced bands, the spacing that matches how
// pitch is perceived. Band names carry their range, e.g. "250-500hz".
func LogSpacedBands(count int, sampleRate float64) []FrequencyBand {
	const lowest = 20.0
	nyquist := sampleRate / 2
	if count <= 0 || nyquist <= lowest {
		return nil
	}

	bands := make([]FrequencyBand, 0, count)
	ratio := math.Pow(nyquist/lowest, 1/float64(count))
	low := lowest
	for i := 0; i < count; i++ {
		high := low * ratio
		if i == count-1 {
			high = nyquist // Absorb rounding drift in the last band.
		}
		bands = append(bands, FrequencyBand{
			Name:   fmt.Sprintf("%.0f-%.0fhz", low, high),
			LowHz:  low,
			HighHz: high,
		})
		low = high
	}
	return bands
}

// BandEnergyProcessor aggregates magnitude spectra into a small number
// of frequency bands, the shape most visualizers actually consume.
type BandEnergyProcessor struct {
	sink     FrameSink
	provider SpectrumProvider
	bands    []FrequencyBand

	spectrum []float32 // ...reused between Process calls
	energy   []float64
	binCount []int
}

// NewBandEnergyProcessor builds a processor that folds spectra from
// provider into the given bands and delivers BandFrames to sink.
func NewBandEnergyProcessor(sink FrameSink, provider SpectrumProvider, bands []FrequencyBand) (*BandEnergyProcessor, error) {
	if provider == nil {
		return nil, fmt.Errorf("analysis: band energy requires a spectrum provider")
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("analysis: band energy requires at least one band")
	}
	applog.Infof("Analysis: initializing band energy with %d bands", len(bands))
	return &BandEnergyProcessor{
		sink:     sink,
		provider: provider,
		bands:    bands,
		spectrum: make([]float32, provider.Bins()),
		energy:   make([]float64, len(bands)),
		binCount: make([]int, len(bands)),
	}, nil
}

// Process pulls the latest spectrum, folds its unique lower half into
// the configured bands and hands the frame to the sink. Bins above the
// Nyquist frequency mirror the lower half for real input and are
// skipped.
func (p *BandEnergyProcessor) Process() {
	if p.sink == nil {
		return
	}
	if err := p.provider.SpectrumInto(p.spectrum); err != nil {
		applog.Errorf("BandEnergy: fetching spectrum: %v", err)
		return
	}

	for i := range p.energy {
		p.energy[i] = 0
		p.binCount[i] = 0
	}

	half := len(p.spectrum) / 2
	for bin := 0; bin <= half && bin < len(p.spectrum); bin++ {
		freq := p.provider.BinFrequency(bin)
		for bi := range p.bands {
			if freq >= p.bands[bi].LowHz && freq < p.bands[bi].HighHz {
				mag := float64(p.spectrum[bin])
				p.energy[bi] += mag * mag
				p.binCount[bi]++
				break
			}
		}
	}

	frame := BandFrame{Type: "band_energy", Bands: make(map[string]float64, len(p.bands))}
	for bi := range p.bands {
		avg := 0.0
		if p.binCount[bi] > 0 {
			avg = p.energy[bi] / float64(p.binCount[bi])
		}
		frame.Bands[p.bands[bi].Name] = math.Sqrt(avg)
	}
	if err := p.sink.SendFrame(frame); err != nil {
		applog.Errorf("BandEnergy: sending frame: %v", err)
	}
}
