// Package node assembles a morty node from its configuration: radio, sensor,
// serial link, LED, metrics and the role state machine.
package node

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net"
    "net/http"
    "strings"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/prometheus/client_golang/prometheus/promhttp"
    "go.uber.org/zap"

    "mortymesh/pkg/config"
    "mortymesh/pkg/led"
    "mortymesh/pkg/nmea"
    "mortymesh/pkg/observability"
    "mortymesh/pkg/peers"
    "mortymesh/pkg/power"
    "mortymesh/pkg/protocol"
    "mortymesh/pkg/protocol/codec"
    "mortymesh/pkg/role"
    "mortymesh/pkg/serialbridge"
    "mortymesh/pkg/transport"
    "mortymesh/pkg/transport/mem"
    "mortymesh/pkg/transport/udp"
    "mortymesh/pkg/upload"
)

// Role names accepted by ParseRole.
const (
    RoleGps     = "gps"
    RoleBeacon  = "beacon"
    RoleGateway = "gateway"
)

var ErrUnknownRole = errors.New("node: unknown role")

// ParseRole normalizes a role name.
func ParseRole(s string) (string, error) {
    switch r := strings.ToLower(strings.TrimSpace(s)); r {
    case RoleGps, "source":
        return RoleGps, nil
    case RoleBeacon, "relay":
        return RoleBeacon, nil
    case RoleGateway:
        return RoleGateway, nil
    default:
        return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
    }
}

// Node owns the shared pieces of one process. Metrics, LED and Neighbors
// are set by New; Air is only needed for radio kind mem.
type Node struct {
    Config    *config.Config
    Registry  *prometheus.Registry
    Metrics   *observability.Metrics
    LED       *led.LED
    Neighbors *peers.Table
    Air       *mem.Medium
    Sleeper   power.Sleeper
}

func New(cfg *config.Config) *Node {
    reg := prometheus.NewRegistry()
    return &Node{
        Config:    cfg,
        Registry:  reg,
        Metrics:   observability.NewMetrics(reg),
        LED:       led.New(led.LogDriver{}, 16),
        Neighbors: peers.NewTable(0),
        Sleeper:   power.HostSleeper{},
    }
}

// RadioAddr returns the configured radio address, or one derived from the
// node name.
func (n *Node) RadioAddr() (transport.Addr, error) {
    if n.Config.Radio.Address != "" { return transport.ParseAddr(n.Config.Radio.Address) }
    return transport.AddrFromName(n.Config.NodeName), nil
}

// OpenRadio builds the configured radio driver and wraps it in a Mesh.
func (n *Node) OpenRadio() (*transport.Mesh, error) {
    rc := n.Config.Radio
    kind, err := transport.ParseKind(rc.Kind)
    if err != nil { return nil, err }
    policy, err := transport.ParsePolicy(rc.QueuePolicy)
    if err != nil { return nil, err }
    addr, err := n.RadioAddr()
    if err != nil { return nil, fmt.Errorf("node: radio address: %w", err) }

    var drv transport.Driver
    switch kind {
    case transport.KindUDP:
        r, err := udp.Open(udp.Config{Listen: rc.Listen, Broadcast: rc.Broadcast, Channel: rc.Channel, Addr: addr})
        if err != nil { return nil, err }
        drv = r
        zap.L().Info("udp radio up", zap.Stringer("addr", addr), zap.String("listen", r.ListenAddr().String()), zap.Uint8("channel", rc.Channel))
    case transport.KindMem:
        if n.Air == nil { n.Air = mem.NewMedium() }
        drv = n.Air.Join(addr, rc.Channel)
        zap.L().Info("mem radio up", zap.Stringer("addr", addr), zap.Uint8("channel", rc.Channel))
    default:
        return nil, fmt.Errorf("%w: %s", transport.ErrUnknownKind, kind)
    }
    return transport.NewMesh(drv, transport.Options{
        QueueSize: rc.QueueSize,
        Policy:    policy,
        OnDrop:    func(transport.Packet) { n.Metrics.QueueDropped() },
    }), nil
}

// OpenSensor opens the NMEA source. Closing the returned closer unblocks a
// pending Next.
func (n *Node) OpenSensor(ctx context.Context) (role.ReadingSource, io.Closer, error) {
    sc := n.Config.Source.Sensor
    var rc io.ReadCloser
    switch sc.Kind {
    case "file":
        r, err := nmea.Replay(ctx, sc.Path, sc.LineDelay, sc.Loop)
        if err != nil { return nil, nil, fmt.Errorf("node: sensor replay: %w", err) }
        rc = r
    case "serial", "":
        p, err := serialbridge.OpenSerial(sc.Device, sc.Baud)
        if err != nil { return nil, nil, err }
        rc = p
    default:
        return nil, nil, fmt.Errorf("node: unknown sensor kind %q", sc.Kind)
    }
    return nmea.NewStream(rc), rc, nil
}

// PowerSensor returns the configured power sensor.
func (n *Node) PowerSensor() power.Sensor {
    pc := n.Config.Source.Power
    if pc.ChargingFile != "" { return power.FileSensor{Path: pc.ChargingFile, Voltage: pc.Voltage} }
    return power.Static{Charging: pc.Charging, Voltage: pc.Voltage}
}

// OpenLink opens the serial bridge link.
func (n *Node) OpenLink(ctx context.Context) (io.ReadWriteCloser, error) {
    sc := n.Config.Serial
    return serialbridge.Open(ctx, serialbridge.LinkConfig{Kind: sc.Kind, Device: sc.Device, Baud: sc.Baud, Address: sc.Address})
}

// Uploader returns the backend client for the gateway role.
func (n *Node) Uploader() (*upload.Client, error) {
    if err := n.Config.RequireGateway(); err != nil { return nil, err }
    reg, err := codec.Default()
    if err != nil { return nil, err }
    c, err := reg.ForFormat(n.Config.Gateway.Format)
    if err != nil { return nil, err }
    return upload.NewClient(n.Config.Gateway.Endpoint, c, n.Config.Gateway.UploadTimeout, nil)
}

// Run starts the LED and the given role and blocks until ctx is done or the
// role fails.
func (n *Node) Run(ctx context.Context, roleName string) error {
    r, err := ParseRole(roleName)
    if err != nil { return err }
    go func() { _ = n.LED.Run(ctx) }()
    switch r {
    case RoleGps:
        return n.RunSource(ctx)
    case RoleBeacon:
        return n.RunBeacon(ctx)
    default:
        return n.RunGateway(ctx)
    }
}

// RunSource runs GPS source cycles. A cycle that ends in deep sleep releases
// radio and sensor, sleeps, and starts over from scratch.
func (n *Node) RunSource(ctx context.Context) error {
    sc := n.Config.Source
    for {
        err := n.sourceCycle(ctx)
        var se *power.SleepError
        if !errors.As(err, &se) { return err }
        zap.L().Info("deep sleep", zap.Duration("for", se.Duration))
        n.LED.SetColor(led.Black, 0)
        if err := n.Sleeper.Sleep(ctx, se.Duration); err != nil { return err }
        zap.L().Info("woke up, restarting", zap.Duration("report_interval", sc.ReportInterval))
    }
}

func (n *Node) sourceCycle(ctx context.Context) error {
    mesh, err := n.OpenRadio()
    if err != nil { return err }
    defer mesh.Close()
    sensor, closer, err := n.OpenSensor(ctx)
    if err != nil { return err }
    defer closer.Close()

    sc := n.Config.Source
    src := role.NewGpsSource(mesh, sensor, n.PowerSensor(), n.LED, n.Metrics, role.SourceOptions{
        ReportInterval: sc.ReportInterval,
        NoFixInterval:  sc.NoFixInterval,
        DeepSleep:      sc.DeepSleep,
        SleepInterval:  sc.SleepInterval,
        Brightness:     n.Config.LED.Brightness,
    })
    return src.Run(ctx)
}

// RunBeacon runs the relay beacon until ctx is done.
func (n *Node) RunBeacon(ctx context.Context) error {
    mesh, err := n.OpenRadio()
    if err != nil { return err }
    defer mesh.Close()
    link, err := n.OpenLink(ctx)
    if err != nil { return err }
    defer link.Close()
    return n.runBeacon(ctx, mesh, serialbridge.NewWriter(link))
}

func (n *Node) runBeacon(ctx context.Context, mesh *transport.Mesh, w role.FrameWriter) error {
    b := role.NewRelayBeacon(mesh, w, n.LED, n.Metrics, n.Neighbors, role.BeaconOptions{
        PresenceInterval: n.Config.Beacon.PresenceInterval,
        Brightness:       n.Config.LED.Brightness,
    })
    return b.Run(ctx)
}

// RunGateway runs the gateway until ctx is done or the link fails.
func (n *Node) RunGateway(ctx context.Context) error {
    up, err := n.Uploader()
    if err != nil { return err }
    link, err := n.OpenLink(ctx)
    if err != nil { return err }
    // closing the link unblocks the line reader
    stop := context.AfterFunc(ctx, func() { _ = link.Close() })
    defer stop()
    defer link.Close()
    return n.runGateway(ctx, serialbridge.NewReader(link), up)
}

func (n *Node) runGateway(ctx context.Context, r role.FrameReader, up role.Uploader) error {
    g := role.NewGateway(r, up, n.LED, n.Metrics, role.GatewayOptions{
        DedupCapacity: n.Config.Gateway.DedupCapacity,
        Brightness:    n.Config.LED.Brightness,
    })
    return g.Run(ctx)
}

// Handler serves /metrics and /neighbors.
func (n *Node) Handler() http.Handler {
    mux := http.NewServeMux()
    mux.Handle("/metrics", promhttp.HandlerFor(n.Registry, promhttp.HandlerOpts{Registry: n.Registry}))
    mux.HandleFunc("/neighbors", func(w http.ResponseWriter, r *http.Request) {
        w.Header().Set("Content-Type", protocol.ContentJSON)
        _ = json.NewEncoder(w).Encode(n.Neighbors.List())
    })
    return mux
}

// ServeMetrics listens on addr until ctx is done. The listener is bound
// before it returns so callers see address errors immediately.
func (n *Node) ServeMetrics(ctx context.Context, addr string) (net.Addr, <-chan error, error) {
    ln, err := net.Listen("tcp", addr)
    if err != nil { return nil, nil, fmt.Errorf("node: metrics listen: %w", err) }
    srv := &http.Server{Handler: n.Handler(), ReadHeaderTimeout: 5 * time.Second}
    errc := make(chan error, 1)
    go func() {
        <-ctx.Done()
        sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
        defer cancel()
        _ = srv.Shutdown(sctx)
    }()
    go func() {
        err := srv.Serve(ln)
        if errors.Is(err, http.ErrServerClosed) { err = nil }
        errc <- err
    }()
    zap.L().Info("metrics listening", zap.String("addr", ln.Addr().String()))
    return ln.Addr(), errc, nil
}
