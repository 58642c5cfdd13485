package role

import (
    "context"
    "fmt"
    "sync/atomic"
    "time"

    "github.com/google/uuid"
    "go.uber.org/zap"

    "mortymesh/pkg/led"
    "mortymesh/pkg/nmea"
    "mortymesh/pkg/observability"
    "mortymesh/pkg/power"
    "mortymesh/pkg/protocol"
    "mortymesh/pkg/rategate"
    "mortymesh/pkg/transport"
)

// SourceOptions configures a GpsSource.
type SourceOptions struct {
    ReportInterval time.Duration
    NoFixInterval  time.Duration
    DeepSleep      bool
    SleepInterval  time.Duration
    Brightness     uint8
}

// GpsSource turns sensor readings into Gps broadcasts. Readings with a fix
// are gated by ReportInterval, readings without one by NoFixInterval; both
// share one gate so a node never reports twice within the shorter window.
type GpsSource struct {
    opts    SourceOptions
    mesh    StatusBroadcaster
    sensor  ReadingSource
    power   power.Sensor
    led     *led.LED
    metrics *observability.Metrics

    gate *rategate.Gate
    // charging is written by the reading loop and read by the send-status
    // callback on the radio goroutine.
    charging atomic.Bool
    sleepCh  chan struct{}
    newUID   func() string
}

// NewUID mints a sample id: the first 6 characters of a random UUID.
func NewUID() string { return uuid.NewString()[:6] }

func NewGpsSource(mesh StatusBroadcaster, sensor ReadingSource, ps power.Sensor, l *led.LED, m *observability.Metrics, opts SourceOptions) *GpsSource {
    if opts.ReportInterval < 0 { opts.ReportInterval = 0 }
    if opts.NoFixInterval < 0 { opts.NoFixInterval = 0 }
    if ps == nil { ps = power.Static{} }
    s := &GpsSource{
        opts:    opts,
        mesh:    mesh,
        sensor:  sensor,
        power:   ps,
        led:     l,
        metrics: m,
        gate:    rategate.New(),
        sleepCh: make(chan struct{}, 1),
        newUID:  NewUID,
    }
    mesh.OnSendStatus(s.onSendStatus)
    return s
}

// Charging reports the last sampled charging state.
func (s *GpsSource) Charging() bool { return s.charging.Load() }

// Run consumes readings until ctx is done, the sensor fails, or a deep
// sleep is due. The latter ends with an error matching power.ErrDeepSleep;
// the caller is expected to sleep and start a fresh GpsSource.
func (s *GpsSource) Run(ctx context.Context) error {
    s.led.SetColor(led.Blue, s.opts.Brightness)

    ctx, cancel := context.WithCancel(ctx)
    defer cancel()
    readings := make(chan nmea.Reading)
    errc := make(chan error, 1)
    go func() {
        for {
            r, err := s.sensor.Next()
            if err != nil { errc <- err; return }
            select {
            case readings <- r:
            case <-ctx.Done():
                return
            }
        }
    }()

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-s.sleepCh:
            zap.L().Info("going to sleep", zap.Duration("for", s.opts.SleepInterval))
            return &power.SleepError{Duration: s.opts.SleepInterval}
        case err := <-errc:
            return fmt.Errorf("source: sensor: %w", err)
        case r := <-readings:
            s.Handle(r)
        }
    }
}

// Handle processes one reading and reports whether a sample was broadcast.
func (s *GpsSource) Handle(r nmea.Reading) bool {
    interval := s.opts.NoFixInterval
    if r.Fix {
        s.led.SetColor(led.Green, s.opts.Brightness)
        interval = s.opts.ReportInterval
    } else {
        s.led.SetColor(led.Red, s.opts.Brightness)
    }
    if !s.gate.ShouldFire(interval) { return false }

    pr, err := s.power.Read()
    if err != nil { zap.L().Warn("power sense failed", zap.Error(err)) }
    s.charging.Store(pr.Charging)

    msg := protocol.Gps{UID: s.newUID(), Charging: pr.Charging, BatteryVoltage: pr.Voltage}
    kind, blink := "no_fix", led.Red
    if r.Fix {
        msg.Latitude = r.Latitude
        msg.Longitude = r.Longitude
        msg.Satellites = r.Satellites
        msg.FixQuality = r.FixQuality
        msg.HDOP = r.HDOP
        msg.UTC = r.UTC
        kind, blink = "fix", led.Purple
    }
    s.led.Blink(blink, s.opts.Brightness, 300*time.Millisecond, 2)

    if err := s.mesh.Broadcast(msg); err != nil {
        zap.L().Warn("gps broadcast failed", zap.String("uid", msg.UID), zap.Error(err))
        return false
    }
    s.metrics.Report(kind)
    zap.L().Info("gps sample sent", zap.String("uid", msg.UID), zap.String("kind", kind),
        zap.Float64("lat", msg.Latitude), zap.Float64("lon", msg.Longitude),
        zap.Bool("charging", msg.Charging), zap.Float32("vbat", msg.BatteryVoltage))
    return true
}

// onSendStatus runs on the radio goroutine.
func (s *GpsSource) onSendStatus(st transport.SendStatus) {
    s.metrics.SendStatus(st.String())
    if st != transport.SendSuccess {
        zap.L().Warn("gps send not acknowledged by radio")
        return
    }
    if !s.opts.DeepSleep { return }
    if s.charging.Load() {
        zap.L().Debug("charging, staying awake")
        return
    }
    select {
    case s.sleepCh <- struct{}{}:
    default:
    }
}
