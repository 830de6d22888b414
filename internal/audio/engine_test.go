// SPDX-License-Identifier: MIT
package audio

import (
	"testing"

	"spectro/internal/config"
	"spectro/internal/spectral"
	"spectro/pkg/utils"
)

// newPipelineEngine builds an engine around a real spectral processor
// but no PortAudio stream, so processBuffer can be driven directly.
func newPipelineEngine(t *testing.T, blockSize, channels int) *Engine {
	t.Helper()

	processor, err := spectral.New(blockSize)
	if err != nil {
		t.Fatalf("spectral.New(%d): %v", blockSize, err)
	}

	return &Engine{
		config: &config.Config{
			Audio: config.AudioConfig{
				SampleRate:    testSampleRate,
				BlockSize:     blockSize,
				InputChannels: channels,
			},
		},
		inputBuffer: make([]int32, blockSize*channels),
		processor:   processor,
		monoInput:   make([]int32, blockSize),
		floatBlock:  make([]float32, blockSize),
		magnitudes:  make([]float32, blockSize),
		snapshot:    NewSpectrumSnapshot(blockSize, testSampleRate),
		gateEnabled: false,
	}
}

func TestProcessBufferPipeline(t *testing.T) {
	engine := newPipelineEngine(t, testFrameSize, 1)
	capture := &utils.CaptureTransport{}
	engine.AddTransport(capture)

	// 93 whole cycles per block keeps the tone on a bin center.
	const cycles = 93
	frequency := cycles * testSampleRate / testFrameSize
	block := utils.GenerateSineWave(testFrameSize, testSampleRate, frequency)

	engine.processBuffer(block)

	if got := capture.Sent(); got != 1 {
		t.Fatalf("transport received %d frames, want 1", got)
	}
	if got := engine.snapshot.Frames(); got != 1 {
		t.Fatalf("snapshot holds %d frames, want 1", got)
	}

	spectrum := capture.Last()
	if len(spectrum) != testFrameSize {
		t.Fatalf("spectrum has %d bins, want %d", len(spectrum), testFrameSize)
	}
	if peak := utils.FindPeakBin(spectrum, 1, testFrameSize/2); peak != cycles {
		t.Errorf("peak at bin %d, want %d", peak, cycles)
	}

	// The snapshot must serve the same spectrum the transport saw.
	fromSnapshot := make([]float32, testFrameSize)
	if err := engine.snapshot.SpectrumInto(fromSnapshot); err != nil {
		t.Fatalf("SpectrumInto: %v", err)
	}
	for i := range spectrum {
		if fromSnapshot[i] != spectrum[i] {
			t.Fatalf("snapshot bin %d = %v, transport saw %v", i, fromSnapshot[i], spectrum[i])
		}
	}
}

func TestProcessBufferGateSkipsQuietBlocks(t *testing.T) {
	engine := newPipelineEngine(t, testFrameSize, 1)
	capture := &utils.CaptureTransport{}
	engine.AddTransport(capture)
	engine.EnableGate()
	engine.SetGateThreshold(0.4)

	engine.processBuffer(quietBuffer)

	if got := capture.Sent(); got != 0 {
		t.Errorf("gate let %d frames through, want 0", got)
	}
	if got := engine.snapshot.Frames(); got != 0 {
		t.Errorf("snapshot holds %d frames, want 0", got)
	}

	// A loud block reopens the pipeline.
	engine.processBuffer(loudBuffer)
	if got := capture.Sent(); got != 1 {
		t.Errorf("loud block produced %d frames, want 1", got)
	}
}

func TestProcessBufferStereoUsesFirstChannel(t *testing.T) {
	engine := newPipelineEngine(t, testFrameSize, 2)
	capture := &utils.CaptureTransport{}
	engine.AddTransport(capture)

	const cycles = 50
	frequency := cycles * testSampleRate / testFrameSize
	mono := utils.GenerateSineWave(testFrameSize, testSampleRate, frequency)

	// Channel 0 carries the tone, channel 1 carries clutter that would
	// shift the peak if it leaked into the analysis.
	stereo := make([]int32, 2*testFrameSize)
	for i, s := range mono {
		stereo[2*i] = s
		stereo[2*i+1] = int32(i) * 1000000
	}

	engine.processBuffer(stereo)

	spectrum := capture.Last()
	if spectrum == nil {
		t.Fatal("no frame captured")
	}
	if peak := utils.FindPeakBin(spectrum, 1, testFrameSize/2); peak != cycles {
		t.Errorf("peak at bin %d, want %d", peak, cycles)
	}
}

// mockAnalyzer records the blocks it is handed.
type mockAnalyzer struct {
	blocks int
	lastN  int
}

func (m *mockAnalyzer) Process(inputBuffer []int32) {
	m.blocks++
	m.lastN = len(inputBuffer)
}

// mockConsumer counts spectrum notifications.
type mockConsumer struct {
	notified int
}

func (m *mockConsumer) Process() { m.notified++ }

func TestProcessBufferFansOut(t *testing.T) {
	engine := newPipelineEngine(t, testFrameSize, 1)
	analyzer := &mockAnalyzer{}
	consumer := &mockConsumer{}
	engine.AddAnalyzer(analyzer)
	engine.AddSpectrumConsumer(consumer)

	engine.processBuffer(loudBuffer)
	engine.processBuffer(loudBuffer)

	if analyzer.blocks != 2 {
		t.Errorf("analyzer saw %d blocks, want 2", analyzer.blocks)
	}
	if analyzer.lastN != testFrameSize {
		t.Errorf("analyzer block length %d, want %d", analyzer.lastN, testFrameSize)
	}
	if consumer.notified != 2 {
		t.Errorf("consumer notified %d times, want 2", consumer.notified)
	}
}

func TestProcessBufferZeroAllocs(t *testing.T) {
	engine := newPipelineEngine(t, testFrameSize, 1)

	allocs := testing.AllocsPerRun(100, func() {
		engine.processBuffer(testBuffer)
	})

	if allocs > 0 {
		t.Errorf("processBuffer allocated: got %.1f allocs, want 0", allocs)
	}
}

func BenchmarkProcessBufferHotPath(b *testing.B) {
	processor, err := spectral.New(testFrameSize)
	if err != nil {
		b.Fatalf("spectral.New: %v", err)
	}
	engine := &Engine{
		config: &config.Config{
			Audio: config.AudioConfig{
				SampleRate:    testSampleRate,
				BlockSize:     testFrameSize,
				InputChannels: 1,
			},
		},
		processor:     processor,
		monoInput:     make([]int32, testFrameSize),
		floatBlock:    make([]float32, testFrameSize),
		magnitudes:    make([]float32, testFrameSize),
		snapshot:      NewSpectrumSnapshot(testFrameSize, testSampleRate),
		gateEnabled:   true,
		gateThreshold: lowThreshold,
	}
	block := utils.GenerateComplexWave(testFrameSize, testSampleRate)

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		engine.processBuffer(block)
	}
}
