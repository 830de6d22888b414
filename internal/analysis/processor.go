// SPDX-License-Identifier: MIT
package analysis

// AudioProcessor is implemented by components fed raw capture blocks.
// Process runs on the capture path, so implementations must be efficient
// and never block.
type AudioProcessor interface {
	Process(inputBuffer []int32)
}

// ClosableProcessor is an AudioProcessor that holds resources needing
// explicit release.
type ClosableProcessor interface {
	AudioProcessor
	Close() error
}

// SpectrumProvider hands analysis components the latest magnitude
// spectrum without coupling them to the engine that produced it.
type SpectrumProvider interface {
	// SpectrumInto copies the most recent magnitude spectrum into dst,
	// which must hold exactly Bins() values.
	SpectrumInto(dst []float32) error
	// Bins returns the number of bins per spectrum, equal to the block
	// length of the underlying transform.
	Bins() int
	// BinFrequency returns the center frequency in Hz for a bin index.
	BinFrequency(bin int) float64
	// SampleRate returns the capture rate behind the spectra.
	SampleRate() float64
}

// FrameSink receives finished analysis frames for delivery to clients.
// Implementations own the wire format and must not block the caller.
type FrameSink interface {
	SendFrame(frame any) error
}
