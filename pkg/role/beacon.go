package role

import (
    "context"
    "errors"
    "sync"
    "time"

    "go.uber.org/zap"

    "mortymesh/pkg/led"
    "mortymesh/pkg/observability"
    "mortymesh/pkg/peers"
    "mortymesh/pkg/protocol"
    "mortymesh/pkg/transport"
)

// BeaconOptions configures a RelayBeacon.
type BeaconOptions struct {
    PresenceInterval time.Duration
    Brightness       uint8
}

// RelayBeacon announces itself periodically and relays what it hears: a Gps
// sample is wrapped once in a Relay, re-broadcast and forwarded over the
// bridge; a Relay is only forwarded over the bridge, never re-broadcast.
type RelayBeacon struct {
    opts      BeaconOptions
    mesh      Receiver
    bridge    FrameWriter
    led       *led.LED
    metrics   *observability.Metrics
    neighbors *peers.Table
    nowFn     func() time.Time
}

func NewRelayBeacon(mesh Receiver, bridge FrameWriter, l *led.LED, m *observability.Metrics, nt *peers.Table, opts BeaconOptions) *RelayBeacon {
    if opts.PresenceInterval <= 0 { opts.PresenceInterval = 10 * time.Second }
    if nt == nil { nt = peers.NewTable(0) }
    return &RelayBeacon{opts: opts, mesh: mesh, bridge: bridge, led: l, metrics: m, neighbors: nt, nowFn: time.Now}
}

func (b *RelayBeacon) Neighbors() *peers.Table { return b.neighbors }

// Run starts the presence loop and the relay worker and waits for both.
func (b *RelayBeacon) Run(ctx context.Context) error {
    b.led.SetColor(led.Green, b.opts.Brightness)
    var wg sync.WaitGroup
    wg.Add(2)
    go func() { defer wg.Done(); b.presenceLoop(ctx) }()
    var werr error
    go func() { defer wg.Done(); werr = b.worker(ctx) }()
    wg.Wait()
    if werr != nil && !errors.Is(werr, context.Canceled) && !errors.Is(werr, context.DeadlineExceeded) { return werr }
    return ctx.Err()
}

func (b *RelayBeacon) presenceLoop(ctx context.Context) {
    t := time.NewTicker(b.opts.PresenceInterval)
    defer t.Stop()
    for {
        msg := protocol.BeaconPresent{Timestamp: b.nowFn().Unix()}
        if err := b.mesh.Broadcast(msg); err != nil {
            zap.L().Warn("beacon present broadcast failed", zap.Error(err))
        }
        select {
        case <-ctx.Done():
            return
        case <-t.C:
        }
        if n := b.neighbors.Prune(); n > 0 { b.metrics.Neighbors(b.neighbors.Len()) }
    }
}

func (b *RelayBeacon) worker(ctx context.Context) error {
    for {
        p, err := b.mesh.Next(ctx)
        if err != nil {
            if errors.Is(err, transport.ErrClosed) { return nil }
            return err
        }
        b.Handle(p)
    }
}

// Handle processes one received frame. Failures are logged and dropped.
func (b *RelayBeacon) Handle(p transport.Packet) {
    src := p.From.String()
    msg, err := protocol.Decode(p.Data)
    if err != nil {
        b.metrics.DecodeError(protocol.Reason(err))
        if errors.Is(err, protocol.ErrEmptyMessage) {
            zap.L().Warn("no message received", zap.String("from", src))
            return
        }
        zap.L().Error("error decoding message", zap.String("from", src), zap.Int("len", len(p.Data)),
            observability.Frame("frame", p.Data), zap.Error(err))
        return
    }
    b.metrics.FrameReceived(msg.Type().String())
    if b.neighbors.Record(p.From, msg) { b.metrics.Neighbors(b.neighbors.Len()) }

    switch m := msg.(type) {
    case protocol.Gps:
        zap.L().Info("gps received", zap.String("from", src), zap.String("uid", m.UID), zap.Bool("fix", m.HasFix()))
        frame, err := protocol.Encode(protocol.Relay{Timestamp: b.nowFn().Unix(), Src: src, Msg: m})
        if err != nil {
            zap.L().Error("encode relay", zap.Error(err))
            return
        }
        if err := b.mesh.BroadcastFrame(frame); err != nil {
            zap.L().Warn("relay broadcast failed", zap.String("uid", m.UID), zap.Error(err))
        } else {
            b.metrics.Relayed()
        }
        b.forward(frame, m.UID)
        b.led.Blink(led.Purple, b.opts.Brightness, 300*time.Millisecond, 2)
    case protocol.Relay:
        zap.L().Info("relay received", zap.String("from", src), zap.String("relay_src", m.Src))
        frame, err := protocol.Encode(m)
        if err != nil {
            zap.L().Error("encode relay", zap.Error(err))
            return
        }
        uid := ""
        if g, ok := m.Msg.(protocol.Gps); ok { uid = g.UID }
        b.forward(frame, uid)
        b.led.Blink(led.Blue, b.opts.Brightness, 100*time.Millisecond, 2)
    case protocol.BeaconPresent:
        zap.L().Info("beacon present", zap.String("from", src), zap.Int64("timestamp", m.Timestamp))
    default:
        zap.L().Warn("unexpected message", zap.String("from", src), zap.Stringer("type", msg.Type()))
    }
}

func (b *RelayBeacon) forward(frame []byte, uid string) {
    if err := b.bridge.WriteFrame(frame); err != nil {
        zap.L().Error("serial forward failed", zap.String("uid", uid), zap.Error(err))
        return
    }
    b.metrics.SerialLine("out")
    observability.HexDump("serial frame written", frame)
}
