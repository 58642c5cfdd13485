package observability

import (
    "testing"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCount(t *testing.T) {
    reg := prometheus.NewRegistry()
    m := NewMetrics(reg)
    m.FrameReceived("gps")
    m.FrameReceived("gps")
    m.DecodeError("crc_mismatch")
    m.Upload("ok")
    m.Duplicate()
    m.Neighbors(3)
    if v := testutil.ToFloat64(m.framesReceived.WithLabelValues("gps")); v != 2 { t.Fatalf("frames = %v", v) }
    if v := testutil.ToFloat64(m.decodeErrors.WithLabelValues("crc_mismatch")); v != 1 { t.Fatalf("decode errors = %v", v) }
    if v := testutil.ToFloat64(m.uploads.WithLabelValues("ok")); v != 1 { t.Fatalf("uploads = %v", v) }
    if v := testutil.ToFloat64(m.duplicates); v != 1 { t.Fatalf("duplicates = %v", v) }
    if v := testutil.ToFloat64(m.neighbors); v != 3 { t.Fatalf("neighbors = %v", v) }
    if n, err := testutil.GatherAndCount(reg); err != nil || n == 0 { t.Fatalf("gather: %d, %v", n, err) }
}

func TestNilMetricsIsNoop(t *testing.T) {
    var m *Metrics
    m.FrameReceived("gps")
    m.Relayed()
    m.Neighbors(1)
}
