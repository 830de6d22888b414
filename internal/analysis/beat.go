// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"time"

	applog "spectro/internal/log"
)

// EventFrame is a discrete analysis event sent to clients.
type EventFrame struct {
	Type      string  `json:"type"` // always "event"
	Name      string  `json:"name"`
	Timestamp int64   `json:"timestamp_ms"`
	Energy    float64 `json:"energy"`
}

// Defaults that track typical music at common block sizes.
const (
	DefaultBeatThreshold   = 0.05
	DefaultBeatEnergyRatio = 1.5
	DefaultBeatCooldown    = 250 * time.Millisecond
)

// BeatDetector flags sudden energy rises in the raw capture stream,
// which tracks kick drums well enough to drive visualizer pulses.
type BeatDetector struct {
	threshold      float64       // RMS floor below which nothing triggers
	minEnergyRatio float64       // Rise over the previous block that counts as an onset
	cooldown       time.Duration // Minimum spacing between events
	sink           FrameSink

	lastEnergy float64
	lastBeat   time.Time
	now        func() time.Time // ...stubbed in tests
}

var _ AudioProcessor = (*BeatDetector)(nil)

// NewBeatDetector builds a detector that emits "beat" EventFrames to
// sink. threshold is the minimum block RMS in full-scale units,
// minEnergyRatio the rise over the previous block that counts as an
// onset, cooldown the minimum spacing between events.
func NewBeatDetector(threshold, minEnergyRatio float64, cooldown time.Duration, sink FrameSink) *BeatDetector {
	applog.Infof("Analysis: initializing beat detector (threshold %.3f, ratio %.2f, cooldown %s)",
		threshold, minEnergyRatio, cooldown)
	return &BeatDetector{
		threshold:      threshold,
		minEnergyRatio: minEnergyRatio,
		cooldown:       cooldown,
		sink:           sink,
		now:            time.Now,
	}
}

// Process computes the block RMS and emits a beat event when the energy
// clears the threshold and rose sharply against the previous block.
// Events inside the cooldown window are suppressed.
func (bd *BeatDetector) Process(buffer []int32) {
	currentEnergy := calculateRMS(buffer)
	triggered := currentEnergy >= bd.threshold &&
		(bd.lastEnergy == 0 || currentEnergy/bd.lastEnergy >= bd.minEnergyRatio)
	bd.lastEnergy = currentEnergy

	if !triggered || bd.sink == nil {
		return
	}
	now := bd.now()
	if now.Sub(bd.lastBeat) < bd.cooldown {
		return
	}
	bd.lastBeat = now

	frame := EventFrame{
		Type:      "event",
		Name:      "beat",
		Timestamp: now.UnixMilli(),
		Energy:    currentEnergy,
	}
	if err := bd.sink.SendFrame(frame); err != nil {
		applog.Errorf("BeatDetector: sending event: %v", err)
	}
}

// calculateRMS returns the root mean square of the block in full-scale
// units, so 1.0 corresponds to a square wave at digital maximum.
func calculateRMS(buffer []int32) float64 {
	if len(buffer) == 0 {
		return 0.0
	}

	var sumSquare float64
	for _, sample := range buffer {
		floatSample := float64(sample) / float64(0x7FFFFFFF)
		sumSquare += floatSample * floatSample
	}
	return math.Sqrt(sumSquare / float64(len(buffer)))
}
