// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "spectro/internal/log"
)

// maxBins keeps the packet inside one legal UDP datagram:
// 65507 payload bytes minus the 14 byte header, 4 bytes per bin.
const maxBins = (65507 - 14) / 4

// SpectrumSource provides the latest magnitude spectrum. The engine's
// spectrum snapshot implements it.
type SpectrumSource interface {
	SpectrumInto(dst []float32) error
	Bins() int
}

// Publisher periodically fetches the current spectrum, packs it into a
// binary packet, and hands it to a Sender. The goroutine is managed by
// Start and Stop; both are safe to call repeatedly.
type Publisher struct {
	sender   *Sender
	source   SpectrumSource
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // guards ticker and doneChan across Start/Stop

	sequenceNum uint32

	// Reused across ticks so the steady state does not allocate.
	magBuffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher wires a publisher to its sender and spectrum source.
// An interval <= 0 falls back to 16ms, roughly 60Hz.
func NewPublisher(interval time.Duration, sender *Sender, source SpectrumSource) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp: publisher needs a sender")
	}
	if source == nil {
		return nil, fmt.Errorf("udp: publisher needs a spectrum source")
	}
	bins := source.Bins()
	if bins <= 0 || bins > maxBins {
		return nil, fmt.Errorf("udp: %d bins do not fit a datagram (max %d)", bins, maxBins)
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("UDP publisher: invalid interval, defaulting to %s", interval)
	}

	applog.Infof("UDP publisher initialized (interval %s, %d bins)", interval, bins)
	return &Publisher{
		sender:       sender,
		source:       source,
		interval:     interval,
		magBuffer:    make([]float32, bins),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start on a running
// publisher is a no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("UDP publisher: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{} // rearm for this run

	// Capture locals so the goroutine never races Start/Stop on the
	// struct fields.
	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Debugf("UDP publisher goroutine started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Safe to call
// multiple times and before Start.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Debugf("UDP publisher stopped after %d packets", p.sequenceNum)
	return nil
}

/*
Packet layout (all fields BigEndian):

|<-- 4 bytes -->|<---- 8 bytes ---->|<-- 2 bytes -->|<--- N * 4 bytes --->|
+---------------+-------------------+---------------+---------------------+
|   Sequence    |     Timestamp     |   Bin Count   |      Magnitudes     |
|   (uint32)    | (int64, unix ns)  |    (uint16)   |    (N * float32)    |
+---------------+-------------------+---------------+---------------------+
*/

func (p *Publisher) buildAndSendPacket() {
	if err := p.source.SpectrumInto(p.magBuffer); err != nil {
		applog.Errorf("UDP publisher: fetching spectrum: %v", err)
		return
	}

	p.sequenceNum++
	timestamp := time.Now().UnixNano()

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, uint16(len(p.magBuffer)))
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.magBuffer)
	}
	if err != nil {
		applog.Errorf("UDP publisher: packing packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		sendErrors.Inc()
		return
	}
	packetsSent.Inc()
	applog.Debugf("UDP publisher: sent packet %d (%d bytes)", p.sequenceNum, p.packetBuffer.Len())
}

// Close stops the publisher, satisfying the engine's closable contract.
func (p *Publisher) Close() error {
	return p.Stop()
}

var _ interface{ Close() error } = (*Publisher)(nil)
