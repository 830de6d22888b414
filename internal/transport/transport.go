// SPDX-License-Identifier: MIT
//
// Package transport delivers finished magnitude spectra to consumers:
// a logging stand-in for development, WebSocket with JSON frames for
// browser visualizers, and a binary UDP path (see the udp subpackage)
// for native ones. Implementations are safe for concurrent use and
// never block the analysis path; slow consumers lose frames instead.
package transport

// Transport is the delivery pipe for magnitude spectra. Send queues or
// drops, it never blocks. Close releases sockets and background
// goroutines; the Transport is unusable afterwards.
type Transport interface {
	Send(spectrum []float32) error
	Close() error
}
