// SPDX-License-Identifier: MIT
//
// Package udp streams magnitude spectra as compact binary datagrams to
// a fixed target, for native visualizers where JSON over WebSocket is
// too heavy. Delivery is fire and forget.
package udp

import (
	"fmt"
	"net"
	"sync"

	applog "spectro/internal/log"
)

// Sender owns the UDP socket. It is safe for concurrent use, though
// the publisher calls it from a single goroutine.
type Sender struct {
	conn   *net.UDPConn
	mu     sync.Mutex // guards conn against concurrent Close
	closed bool
}

// NewSender dials the target address ("host:port"). No packets flow
// until Send is called.
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve target %q: %w", targetAddress, err)
	}

	// nil local address, the OS picks a source port.
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("udp: dial %q: %w", targetAddress, err)
	}

	applog.Infof("UDP sender targeting %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send transmits data as one datagram.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("udp: sender is closed")
	}
	_, err := s.conn.Write(data)
	s.mu.Unlock()

	if err != nil {
		applog.Warnf("UDP send failed: %v", err)
		return fmt.Errorf("udp: send packet: %w", err)
	}
	return nil
}

// Close shuts the socket down. Safe to call more than once.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	applog.Debugf("UDP sender closing connection to %s", s.conn.RemoteAddr())
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("udp: close connection: %w", err)
	}
	return nil
}
