// SPDX-License-Identifier: MIT
package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registered once on the default registry, served by the WebSocket
// transport's /metrics endpoint.
var (
	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "spectro_websocket_clients",
		Help: "Number of currently connected WebSocket clients",
	})
	wsFramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spectro_websocket_frames_sent_total",
		Help: "Spectrum frames delivered to WebSocket clients",
	})
	wsFramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spectro_websocket_frames_dropped_total",
		Help: "Frames dropped because the broadcast queue was full",
	})
)
