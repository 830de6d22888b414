// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"net"
	"testing"
	"time"
)

// fakeSource serves a fixed spectrum.
type fakeSource struct {
	spectrum []float32
}

func (f *fakeSource) SpectrumInto(dst []float32) error {
	copy(dst, f.spectrum)
	return nil
}

func (f *fakeSource) Bins() int { return len(f.spectrum) }

func TestPublisherPacketFormat(t *testing.T) {
	t.Parallel()

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	source := &fakeSource{spectrum: []float32{0, 2, 0, 2}}
	pub, err := NewPublisher(5*time.Millisecond, sender, source)
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	before := time.Now().UnixNano()
	pub.Start()
	defer pub.Stop()

	buf := make([]byte, 65536)
	listener.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := listener.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("ReadFromUDP: %v", err)
	}

	wantLen := 4 + 8 + 2 + 4*len(source.spectrum)
	if n != wantLen {
		t.Fatalf("packet length = %d, want %d", n, wantLen)
	}

	r := bytes.NewReader(buf[:n])
	var (
		seq       uint32
		timestamp int64
		count     uint16
	)
	if err := binary.Read(r, binary.BigEndian, &seq); err != nil {
		t.Fatalf("read sequence: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &timestamp); err != nil {
		t.Fatalf("read timestamp: %v", err)
	}
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		t.Fatalf("read count: %v", err)
	}

	if seq == 0 {
		t.Error("sequence number should start at 1")
	}
	after := time.Now().UnixNano()
	if timestamp < before || timestamp > after {
		t.Errorf("timestamp %d outside [%d, %d]", timestamp, before, after)
	}
	if int(count) != len(source.spectrum) {
		t.Errorf("count = %d, want %d", count, len(source.spectrum))
	}

	mags := make([]float32, count)
	if err := binary.Read(r, binary.BigEndian, mags); err != nil {
		t.Fatalf("read magnitudes: %v", err)
	}
	for i, want := range source.spectrum {
		if mags[i] != want {
			t.Errorf("magnitude %d = %v, want %v", i, mags[i], want)
		}
	}
}

func TestPublisherStopIdempotent(t *testing.T) {
	t.Parallel()

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	pub, err := NewPublisher(time.Millisecond, sender, &fakeSource{spectrum: make([]float32, 8)})
	if err != nil {
		t.Fatalf("NewPublisher: %v", err)
	}

	// Stop before Start is a no-op.
	if err := pub.Stop(); err != nil {
		t.Errorf("Stop before Start = %v", err)
	}

	pub.Start()
	if err := pub.Stop(); err != nil {
		t.Errorf("Stop = %v", err)
	}
	if err := pub.Stop(); err != nil {
		t.Errorf("second Stop = %v", err)
	}

	// Restart works after a full Stop.
	pub.Start()
	if err := pub.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
}

func TestNewPublisherValidation(t *testing.T) {
	t.Parallel()

	listener, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer listener.Close()

	sender, err := NewSender(listener.LocalAddr().String())
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}
	defer sender.Close()

	source := &fakeSource{spectrum: make([]float32, 8)}

	if _, err := NewPublisher(time.Second, nil, source); err == nil {
		t.Error("expected error for nil sender")
	}
	if _, err := NewPublisher(time.Second, sender, nil); err == nil {
		t.Error("expected error for nil source")
	}
	if _, err := NewPublisher(time.Second, sender, &fakeSource{spectrum: make([]float32, maxBins+1)}); err == nil {
		t.Error("expected error for oversized spectrum")
	}

	// Invalid interval falls back to a default instead of failing.
	pub, err := NewPublisher(0, sender, source)
	if err != nil {
		t.Fatalf("NewPublisher with zero interval: %v", err)
	}
	if pub.interval != 16*time.Millisecond {
		t.Errorf("default interval = %s, want 16ms", pub.interval)
	}
}

func TestSenderClose(t *testing.T) {
	t.Parallel()

	sender, err := NewSender("127.0.0.1:19999")
	if err != nil {
		t.Fatalf("NewSender: %v", err)
	}

	if err := sender.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := sender.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if err := sender.Send([]byte{1, 2, 3}); err == nil {
		t.Error("Send after Close should fail")
	}
}
