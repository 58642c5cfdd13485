package node

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "testing"
    "time"

    "mortymesh/pkg/config"
    "mortymesh/pkg/peers"
    "mortymesh/pkg/power"
    "mortymesh/pkg/protocol"
    "mortymesh/pkg/serialbridge"
    "mortymesh/pkg/transport"
    "mortymesh/pkg/transport/mem"
    "mortymesh/pkg/upload"
)

const ggaFix = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"

func memConfig(name string) *config.Config {
    cfg := config.Default()
    cfg.NodeName = name
    cfg.Radio.Kind = "mem"
    return cfg
}

func TestParseRole(t *testing.T) {
    cases := map[string]string{"gps": RoleGps, "Source": RoleGps, "beacon": RoleBeacon, "relay": RoleBeacon, " gateway ": RoleGateway}
    for in, want := range cases {
        got, err := ParseRole(in)
        if err != nil || got != want { t.Fatalf("ParseRole(%q) = %q, %v", in, got, err) }
    }
    if _, err := ParseRole("router"); !errors.Is(err, ErrUnknownRole) { t.Fatalf("err = %v", err) }
}

func TestRadioAddr(t *testing.T) {
    n := New(memConfig("beacon-7"))
    a, err := n.RadioAddr()
    if err != nil || a != transport.AddrFromName("beacon-7") { t.Fatalf("derived addr %s, %v", a, err) }
    n.Config.Radio.Address = "02:00:00:00:00:42"
    a, err = n.RadioAddr()
    if err != nil || a.String() != "02:00:00:00:00:42" { t.Fatalf("explicit addr %s, %v", a, err) }
    n.Config.Radio.Address = "nope"
    if _, err := n.OpenRadio(); err == nil { t.Fatalf("bad address accepted") }
}

func TestOpenRadioSharedMedium(t *testing.T) {
    air := mem.NewMedium()
    a, b := New(memConfig("a")), New(memConfig("b"))
    a.Air, b.Air = air, air
    ma, err := a.OpenRadio()
    if err != nil { t.Fatalf("open a: %v", err) }
    defer ma.Close()
    mb, err := b.OpenRadio()
    if err != nil { t.Fatalf("open b: %v", err) }
    defer mb.Close()

    if err := ma.Broadcast(protocol.BeaconPresent{Timestamp: 3}); err != nil { t.Fatalf("broadcast: %v", err) }
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    p, err := mb.Next(ctx)
    if err != nil { t.Fatalf("next: %v", err) }
    if p.From != ma.LocalAddr() { t.Fatalf("from %s", p.From) }
}

func TestOpenRadioRejectsBadPolicy(t *testing.T) {
    cfg := memConfig("a")
    cfg.Radio.QueuePolicy = "lifo"
    if _, err := New(cfg).OpenRadio(); err == nil { t.Fatalf("bad policy accepted") }
}

func TestPowerSensorSelection(t *testing.T) {
    cfg := memConfig("a")
    cfg.Source.Power = config.PowerConfig{Charging: true, Voltage: 3.9}
    r, err := New(cfg).PowerSensor().Read()
    if err != nil || !r.Charging || r.Voltage != 3.9 { t.Fatalf("static = %+v, %v", r, err) }

    p := filepath.Join(t.TempDir(), "charging")
    if err := os.WriteFile(p, []byte("0\n"), 0o644); err != nil { t.Fatal(err) }
    cfg.Source.Power.ChargingFile = p
    r, err = New(cfg).PowerSensor().Read()
    if err != nil || r.Charging { t.Fatalf("file = %+v, %v", r, err) }
}

func TestUploaderNeedsEndpoint(t *testing.T) {
    n := New(memConfig("gw"))
    if _, err := n.Uploader(); err == nil { t.Fatalf("missing endpoint accepted") }
    n.Config.Gateway.Endpoint = "http://backend.local"
    n.Config.Gateway.Format = "cbor"
    c, err := n.Uploader()
    if err != nil { t.Fatalf("uploader: %v", err) }
    if c.LocationURL("aa") != "http://backend.local/api/v1/source/aa/location" { t.Fatalf("url %s", c.LocationURL("aa")) }
}

type countingSleeper struct {
    mu     sync.Mutex
    n      int
    d      time.Duration
    cancel context.CancelFunc
}

func (s *countingSleeper) Sleep(ctx context.Context, d time.Duration) error {
    s.mu.Lock(); defer s.mu.Unlock()
    s.n++
    s.d = d
    if s.n == 2 { s.cancel(); return ctx.Err() }
    return nil
}

func TestRunSourceRestartsAfterDeepSleep(t *testing.T) {
    p := filepath.Join(t.TempDir(), "track.nmea")
    if err := os.WriteFile(p, []byte(ggaFix+"\r\n"), 0o644); err != nil { t.Fatal(err) }
    cfg := memConfig("gps-1")
    cfg.Source.Sensor = config.SensorConfig{Kind: "file", Path: p, Loop: true, LineDelay: 20 * time.Millisecond}
    cfg.Source.DeepSleep = true
    cfg.Source.SleepInterval = time.Minute
    cfg.Source.Power = config.PowerConfig{Voltage: 3.7}

    n := New(cfg)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    sl := &countingSleeper{cancel: cancel}
    n.Sleeper = sl

    err := n.RunSource(ctx)
    if !errors.Is(err, context.Canceled) { t.Fatalf("RunSource = %v", err) }
    if sl.n != 2 || sl.d != time.Minute { t.Fatalf("slept %d times for %s", sl.n, sl.d) }
}

var _ power.Sleeper = (*countingSleeper)(nil)

func TestBeaconToGatewayOverPipe(t *testing.T) {
    got := make(chan upload.Location, 2)
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        var loc upload.Location
        _ = json.NewDecoder(r.Body).Decode(&loc)
        got <- loc
    }))
    defer srv.Close()

    air := mem.NewMedium()
    bn, gn := New(memConfig("beacon")), New(memConfig("gateway"))
    bn.Air = air
    gn.Config.Gateway.Endpoint = srv.URL
    up, err := gn.Uploader()
    if err != nil { t.Fatalf("uploader: %v", err) }

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    mesh, err := bn.OpenRadio()
    if err != nil { t.Fatalf("radio: %v", err) }
    defer mesh.Close()
    pr, pw := io.Pipe()
    defer pw.Close()
    go func() { _ = bn.runBeacon(ctx, mesh, serialbridge.NewWriter(pw)) }()
    go func() { _ = gn.runGateway(ctx, serialbridge.NewReader(pr), up) }()

    src := transport.NewMesh(air.Join(transport.Addr{0x02, 1, 1, 1, 1, 1}, 1), transport.Options{})
    defer src.Close()
    if err := src.Broadcast(protocol.Gps{UID: "abc123", Latitude: 48.1}); err != nil { t.Fatalf("broadcast: %v", err) }

    select {
    case loc := <-got:
        if loc.UID != "abc123" || loc.Latitude != 48.1 { t.Fatalf("uploaded %+v", loc) }
    case <-time.After(2 * time.Second):
        t.Fatalf("nothing uploaded")
    }
    deadline := time.Now().Add(2 * time.Second)
    for bn.Neighbors.Len() == 0 && time.Now().Before(deadline) { time.Sleep(2 * time.Millisecond) }

    rec := httptest.NewRecorder()
    bn.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/neighbors", nil))
    var list []peers.Neighbor
    if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 || list[0].Gps != 1 {
        t.Fatalf("neighbors %s, %v", rec.Body.String(), err)
    }
    rec = httptest.NewRecorder()
    bn.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
    if !strings.Contains(rec.Body.String(), "morty_relays_broadcast_total 1") { t.Fatalf("metrics:\n%s", rec.Body.String()) }
}

func TestServeMetrics(t *testing.T) {
    n := New(memConfig("m"))
    ctx, cancel := context.WithCancel(context.Background())
    addr, errc, err := n.ServeMetrics(ctx, "127.0.0.1:0")
    if err != nil { t.Fatalf("serve: %v", err) }
    resp, err := http.Get("http://" + addr.String() + "/neighbors")
    if err != nil { t.Fatalf("get: %v", err) }
    resp.Body.Close()
    if resp.StatusCode != http.StatusOK { t.Fatalf("status %d", resp.StatusCode) }
    cancel()
    select {
    case err := <-errc:
        if err != nil { t.Fatalf("serve: %v", err) }
    case <-time.After(3 * time.Second):
        t.Fatalf("server did not stop")
    }
}
