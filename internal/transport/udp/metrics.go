// SPDX-License-Identifier: MIT
package udp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	packetsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spectro_udp_packets_sent_total",
		Help: "Spectrum packets written to the UDP socket",
	})
	sendErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spectro_udp_send_errors_total",
		Help: "UDP packet writes that returned an error",
	})
)
