// SPDX-License-Identifier: MIT
/*
Package audio implements the real-time capture engine:
- Audio capture through PortAudio with pre-allocated buffers
- Magnitude spectrum computation per block via internal/spectral
- Noise gate with a branchless implementation
- WAV recording with atomic state management

Thread Safety:
- The capture callback runs on a locked OS thread
- All hot-path buffers are pre-allocated, no GC pressure per block
- The latest spectrum is published through SpectrumSnapshot
*/
package audio

import (
	"math"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"spectro/internal/analysis"
	"spectro/internal/config"
	applog "spectro/internal/log"
	"spectro/internal/spectral"
	"spectro/internal/transport"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"
)

// sampleScale maps int32 capture samples onto [-1, 1).
const sampleScale = 1.0 / 2147483648.0

// SpectrumConsumer is notified once per block after a new spectrum has
// landed in the snapshot. Band energy aggregation implements it.
type SpectrumConsumer interface {
	Process()
}

type Engine struct {
	// Core configuration and state.
	config *config.Config

	// Audio input handling.
	inputBuffer  []int32
	inputDevice  *portaudio.DeviceInfo
	inputLatency time.Duration
	inputStream  *portaudio.Stream

	// Spectral pipeline, every buffer pre-allocated for the callback.
	processor  *spectral.Processor
	monoInput  []int32   // channel 0 when capturing more than one channel
	floatBlock []float32 // normalized samples handed to the processor
	magnitudes []float32 // per-block magnitude spectrum
	snapshot   *SpectrumSnapshot

	// Downstream consumers, wired before the stream starts.
	transports []transport.Transport
	analyzers  []analysis.AudioProcessor
	consumers  []SpectrumConsumer

	// Noise gate for signal conditioning.
	gateEnabled   bool
	gateThreshold int32 // Absolute amplitude threshold (0-2147483647)

	// Recording state and buffers.
	isRecording       int32 // Atomic flag for thread-safe state
	outputFile        *os.File
	wavEncoder        *wav.Encoder
	sampleBuf         *audio.IntBuffer // Reusable buffer for format conversion
	sampleShift       uint             // Right shift from 32-bit capture to the recorded depth
	recordingDeadline time.Time        // Zero means unlimited
}

func NewEngine(cfg *config.Config) (*Engine, error) {
	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}

	processor, err := spectral.New(cfg.Audio.BlockSize)
	if err != nil {
		return nil, err
	}

	// I/O buffers sized for frames x channels, analysis buffers for
	// one mono block.
	inputSize := cfg.Audio.BlockSize * cfg.Audio.InputChannels

	engine := &Engine{
		config:        cfg,
		inputBuffer:   make([]int32, inputSize),
		inputDevice:   inputDevice,
		processor:     processor,
		monoInput:     make([]int32, cfg.Audio.BlockSize),
		floatBlock:    make([]float32, cfg.Audio.BlockSize),
		magnitudes:    make([]float32, cfg.Audio.BlockSize),
		snapshot:      NewSpectrumSnapshot(cfg.Audio.BlockSize, cfg.Audio.SampleRate),
		gateEnabled:   true,
		gateThreshold: math.MaxInt32 / 1000, // ~0.1% of full scale
	}

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
	}

	return engine, nil
}

// Snapshot exposes the engine's spectrum for publishers and analysis.
func (e *Engine) Snapshot() *SpectrumSnapshot {
	return e.snapshot
}

// AddTransport registers a spectrum transport. Not safe to call once
// the input stream is running.
func (e *Engine) AddTransport(t transport.Transport) {
	e.transports = append(e.transports, t)
}

// AddAnalyzer registers a consumer of raw mono sample blocks. Not safe
// to call once the input stream is running.
func (e *Engine) AddAnalyzer(a analysis.AudioProcessor) {
	e.analyzers = append(e.analyzers, a)
}

// AddSpectrumConsumer registers a per-spectrum hook. Not safe to call
// once the input stream is running.
func (e *Engine) AddSpectrumConsumer(c SpectrumConsumer) {
	e.consumers = append(e.consumers, c)
}

func (e *Engine) StartInputStream() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: e.config.Audio.InputChannels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 0, // No output device
			Device:   nil,
		},
		FramesPerBuffer: e.config.Audio.BlockSize,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processInputStream)
	if err != nil {
		return err
	}
	e.inputStream = stream

	if err := e.inputStream.Start(); err != nil {
		e.inputStream.Close()
		return err
	}

	applog.Infof("Engine: capturing from %q (%.0f Hz, block %d, %d ch)",
		e.inputDevice.Name, e.config.Audio.SampleRate,
		e.config.Audio.BlockSize, e.config.Audio.InputChannels)
	return nil
}

func (e *Engine) StopInputStream() error {
	if e.inputStream != nil {
		if err := e.inputStream.Stop(); err != nil {
			return err
		}

		if err := e.inputStream.Close(); err != nil {
			return err
		}

		e.inputStream = nil
	}

	return nil
}

// processInputStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processInputStream(in []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	copy(e.inputBuffer, in)
	e.processBuffer(e.inputBuffer)

	if atomic.LoadInt32(&e.isRecording) == 1 {
		if !e.recordingDeadline.IsZero() && time.Now().After(e.recordingDeadline) {
			applog.Infof("Engine: max recording duration reached, stopping recording")
			if err := e.StopRecording(); err != nil {
				applog.Errorf("Engine: stopping recording: %v", err)
			}
			return
		}
		e.writeRecordingBlock(e.inputBuffer)
	}
}

// processBuffer runs the spectral pipeline on one capture block.
// Performance Critical (Hot Path):
// - No allocations
// - Branchless noise gate implementation
// - Spectrum lands in the snapshot before consumers run
func (e *Engine) processBuffer(buffer []int32) {
	if e.gateEnabled && !e.gateOpen(buffer) {
		return
	}

	mono := buffer
	if channels := e.config.Audio.InputChannels; channels > 1 {
		for i := range e.monoInput {
			e.monoInput[i] = buffer[i*channels]
		}
		mono = e.monoInput
	}

	for i, sample := range mono {
		e.floatBlock[i] = float32(sample) * sampleScale
	}

	if err := e.processor.ProcessInto(e.magnitudes, e.floatBlock); err != nil {
		applog.Errorf("Engine: spectrum processing failed: %v", err)
		return
	}
	e.snapshot.update(e.magnitudes)

	for _, t := range e.transports {
		if err := t.Send(e.magnitudes); err != nil {
			applog.Debugf("Engine: transport send failed: %v", err)
		}
	}
	for _, a := range e.analyzers {
		a.Process(mono)
	}
	for _, c := range e.consumers {
		c.Process()
	}
}

// gateOpen reports whether the block's peak amplitude clears the
// threshold. Branchless abs and max keep the callback free of
// mispredicted branches.
func (e *Engine) gateOpen(buffer []int32) bool {
	var maxAmplitude int32
	for i := range buffer {
		sample := buffer[i]
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - maxAmplitude
		maxAmplitude += (diff & (diff >> 31)) ^ diff
	}
	return maxAmplitude > e.gateThreshold
}
