// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"

	applog "spectro/internal/log"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// StartRecording writes the raw capture stream to filename as WAV at
// the configured bit depth. Capture samples are 32-bit, shallower
// depths keep the most significant bits.
func (e *Engine) StartRecording(filename string) error {
	if atomic.LoadInt32(&e.isRecording) == 1 {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	e.outputFile = file

	bitDepth := e.config.Recording.BitDepth
	e.wavEncoder = wav.NewEncoder(file, int(e.config.Audio.SampleRate),
		bitDepth, e.config.Audio.InputChannels, 1)
	e.sampleShift = uint(32 - bitDepth)

	e.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: e.config.Audio.InputChannels,
			SampleRate:  int(e.config.Audio.SampleRate),
		},
		SourceBitDepth: bitDepth,
		Data:           make([]int, e.config.Audio.BlockSize*e.config.Audio.InputChannels),
	}

	e.recordingDeadline = time.Time{}
	if e.config.Recording.MaxDuration > 0 {
		e.recordingDeadline = time.Now().Add(time.Duration(e.config.Recording.MaxDuration) * time.Second)
	}

	atomic.StoreInt32(&e.isRecording, 1)
	applog.Infof("Engine: recording to %s (%d-bit)", filename, bitDepth)

	return nil
}

// StopRecording finalizes the WAV header and closes the file. Safe to
// call when not recording and safe to call concurrently, only one
// caller performs the shutdown.
func (e *Engine) StopRecording() error {
	if !atomic.CompareAndSwapInt32(&e.isRecording, 1, 0) {
		return nil
	}

	if e.wavEncoder != nil {
		if err := e.wavEncoder.Close(); err != nil {
			return err
		}
		e.wavEncoder = nil
	}

	if e.outputFile != nil {
		if err := e.outputFile.Close(); err != nil {
			return err
		}
		e.outputFile = nil
	}

	return nil
}

// writeRecordingBlock converts one capture block to the recorded bit
// depth and appends it. Runs on the audio callback, reuses sampleBuf.
func (e *Engine) writeRecordingBlock(buffer []int32) {
	if e.wavEncoder == nil {
		return
	}

	for i, sample := range buffer {
		e.sampleBuf.Data[i] = int(sample >> e.sampleShift)
	}
	e.sampleBuf.Data = e.sampleBuf.Data[:len(buffer)]

	if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
		applog.Errorf("Engine: writing WAV block: %v", err)
	}
}

// Close stops the input stream, then finalizes any active recording.
// The stream goes first so no callback can write into a closing encoder.
func (e *Engine) Close() error {
	if err := e.StopInputStream(); err != nil {
		return err
	}

	if atomic.LoadInt32(&e.isRecording) == 1 {
		if err := e.StopRecording(); err != nil {
			return err
		}
	}

	return nil
}
