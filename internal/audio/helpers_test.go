// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"math"

	"spectro/internal/config"
)

const (
	testSampleRate = 44100.0
	testFrameSize  = 1024

	lowThreshold  = math.MaxInt32 / 1000 // ~0.1% of full scale
	highThreshold = math.MaxInt32 / 2
)

// Buffers with known peak amplitudes for gate tests:
// quiet sits between the 0.0001 and 0.1 thresholds, loud between 0.1
// and 0.999.
var (
	testBuffer  = makeRampBuffer(1 << 28)
	quietBuffer = makeRampBuffer(1 << 20)
	loudBuffer  = makeRampBuffer(1 << 30)
)

// makeRampBuffer fills a frame with an alternating-sign ramp whose
// absolute peak is exactly peak.
func makeRampBuffer(peak int32) []int32 {
	buffer := make([]int32, testFrameSize)
	for i := range buffer {
		v := int64(peak) * int64(i%100) / 99
		if i%2 == 1 {
			v = -v
		}
		buffer[i] = int32(v)
	}
	return buffer
}

func newTestEngine() *Engine {
	return &Engine{
		config: &config.Config{
			Audio: config.AudioConfig{
				SampleRate:    testSampleRate,
				BlockSize:     testFrameSize,
				InputChannels: 2,
			},
			Recording: config.RecordingConfig{
				BitDepth: 32,
			},
		},
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%.4f", v)
}

func absFloat(x float64) float64 {
	return math.Abs(x)
}
