package role

import (
    "context"
    "errors"
    "fmt"
    "time"

    "go.uber.org/zap"

    "mortymesh/pkg/dedup"
    "mortymesh/pkg/led"
    "mortymesh/pkg/observability"
    "mortymesh/pkg/protocol"
    "mortymesh/pkg/serialbridge"
    "mortymesh/pkg/upload"
)

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
    DedupCapacity int
    Brightness    uint8
}

// Gateway reads bridge lines, keeps the first copy of every sample (by uid)
// and uploads it. The dedup cache belongs to the Run goroutine.
type Gateway struct {
    opts    GatewayOptions
    lines   FrameReader
    up      Uploader
    cache   *dedup.Cache
    led     *led.LED
    metrics *observability.Metrics
}

func NewGateway(lines FrameReader, up Uploader, l *led.LED, m *observability.Metrics, opts GatewayOptions) *Gateway {
    return &Gateway{opts: opts, lines: lines, up: up, cache: dedup.New(opts.DedupCapacity), led: l, metrics: m}
}

type lineResult struct {
    frame []byte
    err   error
}

// Run processes lines until ctx is done or the link fails. The reader is
// not interruptible; callers unblock it by closing the link.
func (g *Gateway) Run(ctx context.Context) error {
    g.led.SetColor(led.Green, g.opts.Brightness)
    ctx, cancel := context.WithCancel(ctx)
    defer cancel()
    lines := make(chan lineResult)
    go func() {
        for {
            f, err := g.lines.ReadFrame()
            if err != nil && !serialbridge.IsLineError(err) {
                select {
                case lines <- lineResult{err: fmt.Errorf("gateway: link: %w", err)}:
                case <-ctx.Done():
                }
                return
            }
            select {
            case lines <- lineResult{frame: f, err: err}:
            case <-ctx.Done():
                return
            }
        }
    }()
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case lr := <-lines:
            if lr.err != nil && !serialbridge.IsLineError(lr.err) { return lr.err }
            g.metrics.SerialLine("in")
            if lr.err != nil {
                g.metrics.DecodeError(reasonOf(lr.err))
                zap.L().Warn("invalid line", zap.Error(lr.err))
                continue
            }
            g.HandleFrame(ctx, lr.frame)
        }
    }
}

func reasonOf(err error) string {
    if errors.Is(err, serialbridge.ErrFraming) { return "framing" }
    return protocol.Reason(err)
}

// HandleFrame decodes and acts on one frame. It reports whether an upload
// was attempted.
func (g *Gateway) HandleFrame(ctx context.Context, frame []byte) bool {
    msg, err := protocol.Decode(frame)
    if err != nil {
        g.metrics.DecodeError(protocol.Reason(err))
        zap.L().Error("error decoding line", observability.Frame("frame", frame), zap.Error(err))
        return false
    }
    g.metrics.FrameReceived(msg.Type().String())
    rel, ok := msg.(protocol.Relay)
    if !ok {
        zap.L().Info("ignoring message", zap.Stringer("type", msg.Type()))
        return false
    }
    gps, ok := rel.Msg.(protocol.Gps)
    if !ok {
        zap.L().Info("ignoring relay without gps", zap.String("src", rel.Src))
        return false
    }
    g.led.Blink(led.Blue, g.opts.Brightness, 100*time.Millisecond, 2)
    return g.handleGps(ctx, rel, gps)
}

func (g *Gateway) handleGps(ctx context.Context, rel protocol.Relay, gps protocol.Gps) bool {
    if g.cache.Contains(gps.UID) {
        g.metrics.Duplicate()
        zap.L().Debug("duplicate sample", zap.String("uid", gps.UID), zap.String("src", rel.Src))
        return false
    }
    start := time.Now()
    err := g.up.PostLocation(ctx, rel.Src, upload.FromRelay(rel, gps))
    // cached even when the upload failed
    g.cache.Add(gps.UID)
    if err != nil {
        g.metrics.Upload("error")
        zap.L().Error("upload failed", zap.String("uid", gps.UID), zap.String("src", rel.Src), zap.Error(err))
        return true
    }
    g.metrics.Upload("ok")
    zap.L().Info("location uploaded", zap.String("uid", gps.UID), zap.String("src", rel.Src),
        zap.Bool("fix", gps.HasFix()), zap.Duration("took", time.Since(start)))
    return true
}
