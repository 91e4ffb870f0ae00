package observability

import (
	"testing"

	"github.com/danmuck/packetd/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)
	RegisterMetrics()
	RegisterMetrics()

	RecordConnOpened("tcp")
	RecordBytesReceived(17)
	RecordPacket("handshake", ResultHandled)
	RecordFrameSent("handshake_reply")
	RecordBufferOverflow()
	RecordConnClosed()
}

func TestRecordPacketIncrements(t *testing.T) {
	testlog.Start(t)
	before := counterValue(t, packetsTotal.WithLabelValues("unknown", ResultUnknown))
	RecordPacket("unknown", ResultUnknown)
	RecordPacket("unknown", ResultUnknown)
	after := counterValue(t, packetsTotal.WithLabelValues("unknown", ResultUnknown))
	if after-before != 2 {
		t.Fatalf("counter delta got=%v want=2", after-before)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}
