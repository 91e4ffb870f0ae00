package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Packet results recorded per dispatched packet.
const (
	ResultHandled   = "handled"
	ResultUnknown   = "unknown"
	ResultMalformed = "malformed"
	ResultFailed    = "failed"
)

var (
	registerOnce sync.Once

	connectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "packetd",
			Subsystem: "conn",
			Name:      "active",
			Help:      "Currently open client connections.",
		},
	)
	connectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetd",
			Subsystem: "conn",
			Name:      "accepted_total",
			Help:      "Accepted client connections by transport.",
		},
		[]string{"transport"},
	)
	bytesReceived = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "packetd",
			Subsystem: "conn",
			Name:      "received_bytes_total",
			Help:      "Bytes read from client transports.",
		},
	)
	packetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetd",
			Subsystem: "packet",
			Name:      "dispatched_total",
			Help:      "Framed packets by kind and dispatch result.",
		},
		[]string{"packet", "result"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "packetd",
			Subsystem: "packet",
			Name:      "sent_total",
			Help:      "Frames written to client transports.",
		},
		[]string{"packet"},
	)
	bufferOverflows = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "packetd",
			Subsystem: "conn",
			Name:      "buffer_overflows_total",
			Help:      "Connections dropped for exceeding the unframed byte cap.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(connectionsActive, connectionsTotal, bytesReceived, packetsTotal, framesSent, bufferOverflows)
	})
}

func RecordConnOpened(transport string) {
	RegisterMetrics()
	connectionsTotal.WithLabelValues(transport).Inc()
	connectionsActive.Inc()
}

func RecordConnClosed() {
	RegisterMetrics()
	connectionsActive.Dec()
}

func RecordBytesReceived(n int) {
	RegisterMetrics()
	bytesReceived.Add(float64(n))
}

func RecordPacket(packet, result string) {
	RegisterMetrics()
	packetsTotal.WithLabelValues(packet, result).Inc()
}

func RecordFrameSent(packet string) {
	RegisterMetrics()
	framesSent.WithLabelValues(packet).Inc()
}

func RecordBufferOverflow() {
	RegisterMetrics()
	bufferOverflows.Inc()
}
