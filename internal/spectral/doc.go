// SPDX-License-Identifier: MIT
/*
Package spectral converts fixed-length blocks of real samples into
magnitude spectra.

A Processor binds a forward FFT plan to one block length at construction
and reuses it for every block, so the steady-state cost per block is the
transform itself plus two linear passes: widening the real samples to
complex values and reducing the transformed block to magnitudes.
Power-of-two lengths run on a pre-resolved complex64 codelet; every other
positive length goes through a generic complex128 transform.

Output convention:
  - Unnormalized DFT: magnitudes scale with the block length, so a full
    scale DC block of length N produces bin 0 equal to N times the offset
  - Full spectrum: all N bins are returned, including the mirrored upper
    half (for real input, bin k and bin N-k carry the same magnitude)
  - Bin k corresponds to frequency k*sampleRate/N; the package itself
    never sees a sample rate

Thread Safety:
  - A Processor serializes access to its scratch block internally and is
    safe for concurrent use
  - ProcessInto performs no allocations after construction
*/
package spectral
