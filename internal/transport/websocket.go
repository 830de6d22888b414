// SPDX-License-Identifier: MIT
package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	applog "spectro/internal/log"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrClosed is returned by Send after the transport has been closed.
var ErrClosed = errors.New("transport: closed")

// SpectrumMessage is the JSON frame pushed to WebSocket clients for
// every processed block. Seq increases by one per frame so clients can
// detect drops.
type SpectrumMessage struct {
	Type      string    `json:"type"` // always "spectrum"
	Seq       uint64    `json:"seq"`
	Timestamp int64     `json:"timestamp"` // unix milliseconds
	Bins      []float32 `json:"bins"`
}

// WebSocketTransport broadcasts spectra and analysis frames as JSON to
// every connected client. It also serves Prometheus metrics on
// /metrics of the same listener.
type WebSocketTransport struct {
	listener  net.Listener
	server    *http.Server
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]bool
	clientsMu sync.Mutex
	broadcast chan any
	seq       atomic.Uint64
	done      chan struct{}
	closeOnce sync.Once
}

// NewWebSocketTransport binds addr and starts serving /ws and /metrics.
// Binding happens here, not in a goroutine, so an occupied port fails
// fast and tests can pass ":0" and read the port back from Addr.
func NewWebSocketTransport(addr string) (*WebSocketTransport, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", addr, err)
	}

	wst := &WebSocketTransport{
		listener: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // visualizers are served from arbitrary origins
			},
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan any, 256),
		done:      make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wst.handleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())
	wst.server = &http.Server{Handler: mux}

	go func() {
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			applog.Errorf("WebSocket server error: %v", err)
		}
	}()
	go wst.handleBroadcasts()

	applog.Infof("WebSocket server listening on ws://%s/ws", wst.Addr())
	return wst, nil
}

// Addr reports the bound address, useful when the transport was
// created with port 0.
func (wst *WebSocketTransport) Addr() string {
	return wst.listener.Addr().String()
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		applog.Warnf("WebSocket upgrade failed: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = true
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	wsClients.Inc()
	applog.Infof("WebSocket client connected (%d total)", total)

	// Drain the connection until the client goes away. Incoming
	// messages are ignored, the protocol is push only.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.removeClient(conn)
				return
			}
		}
	}()
}

// removeClient unregisters and closes conn. Safe to call twice, only
// the first call touches the gauge.
func (wst *WebSocketTransport) removeClient(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, registered := wst.clients[conn]
	if registered {
		delete(wst.clients, conn)
	}
	total := len(wst.clients)
	wst.clientsMu.Unlock()

	conn.Close()
	if registered {
		wsClients.Dec()
		applog.Infof("WebSocket client disconnected (%d total)", total)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			wst.clientsMu.Lock()
			conns := make([]*websocket.Conn, 0, len(wst.clients))
			for client := range wst.clients {
				conns = append(conns, client)
			}
			wst.clientsMu.Unlock()

			for _, client := range conns {
				if err := client.WriteJSON(data); err != nil {
					applog.Debugf("WebSocket write failed, dropping client: %v", err)
					wst.removeClient(client)
					continue
				}
				wsFramesSent.Inc()
			}
		}
	}
}

// Send queues a spectrum frame for broadcast. The bins are copied, the
// caller may reuse its buffer immediately. When the queue is full the
// frame is dropped so the audio path never blocks on slow clients.
func (wst *WebSocketTransport) Send(spectrum []float32) error {
	bins := make([]float32, len(spectrum))
	copy(bins, spectrum)

	msg := SpectrumMessage{
		Type:      "spectrum",
		Seq:       wst.seq.Add(1),
		Timestamp: time.Now().UnixMilli(),
		Bins:      bins,
	}
	return wst.SendFrame(msg)
}

// SendFrame queues an arbitrary JSON-marshalable frame, used by the
// analysis stages for band energy and beat events.
func (wst *WebSocketTransport) SendFrame(frame any) error {
	select {
	case <-wst.done:
		return ErrClosed
	default:
	}

	select {
	case wst.broadcast <- frame:
	default:
		wsFramesDropped.Inc()
	}
	return nil
}

// Close stops the HTTP server and disconnects all clients. Websocket
// connections are hijacked from the server, so Shutdown does not wait
// for them and they are closed explicitly.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		close(wst.done)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		err = wst.server.Shutdown(ctx)

		wst.clientsMu.Lock()
		conns := make([]*websocket.Conn, 0, len(wst.clients))
		for client := range wst.clients {
			conns = append(conns, client)
		}
		wst.clientsMu.Unlock()
		for _, client := range conns {
			wst.removeClient(client)
		}
		applog.Info("WebSocket server closed")
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
