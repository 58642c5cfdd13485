package observability

import (
    "github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the node counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
    framesReceived *prometheus.CounterVec
    decodeErrors   *prometheus.CounterVec
    relayed        prometheus.Counter
    serialLines    *prometheus.CounterVec
    uploads        *prometheus.CounterVec
    duplicates     prometheus.Counter
    queueDropped   prometheus.Counter
    reports        *prometheus.CounterVec
    sendStatus     *prometheus.CounterVec
    neighbors      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
    m := &Metrics{
        framesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "morty_frames_received_total",
            Help: "Frames decoded from the radio or the serial bridge, by message type.",
        }, []string{"type"}),
        decodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "morty_decode_errors_total",
            Help: "Frames or lines dropped because they failed to decode, by reason.",
        }, []string{"reason"}),
        relayed: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "morty_relays_broadcast_total",
            Help: "Gps samples wrapped in a Relay and re-broadcast.",
        }),
        serialLines: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "morty_serial_lines_total",
            Help: "Lines written to or read from the serial bridge.",
        }, []string{"direction"}),
        uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "morty_uploads_total",
            Help: "Location uploads attempted by the gateway, by result.",
        }, []string{"result"}),
        duplicates: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "morty_duplicates_suppressed_total",
            Help: "Samples discarded by the gateway because their uid was recently seen.",
        }),
        queueDropped: prometheus.NewCounter(prometheus.CounterOpts{
            Name: "morty_queue_dropped_total",
            Help: "Received frames lost to the drop_oldest inbox policy.",
        }),
        reports: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "morty_reports_sent_total",
            Help: "Gps samples broadcast by the source, by kind (fix, no_fix).",
        }, []string{"kind"}),
        sendStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
            Name: "morty_send_status_total",
            Help: "Radio send-status notifications, by status.",
        }, []string{"status"}),
        neighbors: prometheus.NewGauge(prometheus.GaugeOpts{
            Name: "morty_neighbors",
            Help: "Radios heard by this node.",
        }),
    }
    if reg != nil {
        reg.MustRegister(m.framesReceived, m.decodeErrors, m.relayed, m.serialLines, m.uploads,
            m.duplicates, m.queueDropped, m.reports, m.sendStatus, m.neighbors)
    }
    return m
}

func (m *Metrics) FrameReceived(typ string) { if m != nil { m.framesReceived.WithLabelValues(typ).Inc() } }
func (m *Metrics) DecodeError(reason string) { if m != nil { m.decodeErrors.WithLabelValues(reason).Inc() } }
func (m *Metrics) Relayed()                 { if m != nil { m.relayed.Inc() } }
func (m *Metrics) SerialLine(dir string)    { if m != nil { m.serialLines.WithLabelValues(dir).Inc() } }
func (m *Metrics) Upload(result string)     { if m != nil { m.uploads.WithLabelValues(result).Inc() } }
func (m *Metrics) Duplicate()               { if m != nil { m.duplicates.Inc() } }
func (m *Metrics) QueueDropped()            { if m != nil { m.queueDropped.Inc() } }
func (m *Metrics) Report(kind string)       { if m != nil { m.reports.WithLabelValues(kind).Inc() } }
func (m *Metrics) SendStatus(status string) { if m != nil { m.sendStatus.WithLabelValues(status).Inc() } }
func (m *Metrics) Neighbors(n int)          { if m != nil { m.neighbors.Set(float64(n)) } }
