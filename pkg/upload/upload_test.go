package upload

import (
    "context"
    "encoding/json"
    "errors"
    "io"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "mortymesh/pkg/protocol"
    "mortymesh/pkg/protocol/codec"
)

func TestPostLocationJSON(t *testing.T) {
    type seen struct {
        path, ctype, clen string
        body              map[string]any
    }
    got := make(chan seen, 1)
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.Method != http.MethodPost { t.Errorf("method = %s", r.Method) }
        b, _ := io.ReadAll(r.Body)
        var m map[string]any
        if err := json.Unmarshal(b, &m); err != nil { t.Errorf("body: %v", err) }
        got <- seen{r.URL.Path, r.Header.Get("Content-Type"), r.Header.Get("Content-Length"), m}
        w.WriteHeader(http.StatusCreated)
    }))
    defer srv.Close()

    c, err := NewClient(srv.URL+"/", nil, time.Second, srv.Client())
    if err != nil { t.Fatalf("client: %v", err) }
    rel := protocol.Relay{Timestamp: 1700000000, Src: "aa:bb:cc:dd:ee:ff"}
    g := protocol.Gps{Latitude: 52.1, Longitude: 4.3, Satellites: 7, FixQuality: 1, HDOP: 0.5, UTC: 3600, UID: "abc123", Charging: true, BatteryVoltage: 4}
    if err := c.PostLocation(context.Background(), rel.Src, FromRelay(rel, g)); err != nil { t.Fatalf("post: %v", err) }

    s := <-got
    if s.path != "/api/v1/source/aa:bb:cc:dd:ee:ff/location" { t.Fatalf("path = %s", s.path) }
    if s.ctype != "application/json" || s.clen == "" || s.clen == "0" { t.Fatalf("headers = %q %q", s.ctype, s.clen) }
    for _, k := range []string{"latitude", "longitude", "hdop", "timestamp", "utc", "fix_quality", "satellites", "uid", "charging", "battery_voltage"} {
        if _, ok := s.body[k]; !ok { t.Fatalf("missing %s in %v", k, s.body) }
    }
    if s.body["uid"] != "abc123" || s.body["timestamp"].(float64) != 1700000000 || s.body["charging"] != true {
        t.Fatalf("body = %v", s.body)
    }
}

func TestPostLocationCBOR(t *testing.T) {
    cb, err := codec.CBOR()
    if err != nil { t.Fatalf("cbor: %v", err) }
    got := make(chan Location, 1)
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        b, _ := io.ReadAll(r.Body)
        var loc Location
        if err := cb.Unmarshal(b, &loc); err != nil { t.Errorf("decode: %v", err) }
        if r.Header.Get("Content-Type") != "application/cbor" { t.Errorf("content type = %s", r.Header.Get("Content-Type")) }
        got <- loc
    }))
    defer srv.Close()
    c, _ := NewClient(srv.URL, cb, time.Second, nil)
    want := Location{UID: "zz9x01", Latitude: -1.5}
    if err := c.PostLocation(context.Background(), "01:02:03:04:05:06", want); err != nil { t.Fatalf("post: %v", err) }
    if loc := <-got; loc != want { t.Fatalf("got %+v", loc) }
}

func TestPostLocationErrors(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "nope", http.StatusInternalServerError)
    }))
    defer srv.Close()
    c, _ := NewClient(srv.URL, nil, time.Second, nil)
    var se *StatusError
    if err := c.PostLocation(context.Background(), "x", Location{}); !errors.As(err, &se) || se.Code != 500 || se.Body != "nope" {
        t.Fatalf("err = %v", err)
    }

    slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        select {
        case <-r.Context().Done():
        case <-time.After(2 * time.Second):
        }
    }))
    defer slow.Close()
    c, _ = NewClient(slow.URL, nil, 20*time.Millisecond, nil)
    if err := c.PostLocation(context.Background(), "x", Location{}); !errors.Is(err, context.DeadlineExceeded) { t.Fatalf("timeout err = %v", err) }

    if _, err := NewClient("morty.example.org", nil, 0, nil); err == nil { t.Fatalf("endpoint without scheme accepted") }
}

func TestLocationURLEscapesSourceOnce(t *testing.T) {
    c, err := NewClient("https://h.example/base", nil, time.Second, nil)
    if err != nil { t.Fatalf("client: %v", err) }
    cases := map[string]string{
        "02:a1:b2:c3:d4:e5": "https://h.example/base/api/v1/source/02:a1:b2:c3:d4:e5/location",
        "beacon 1":          "https://h.example/base/api/v1/source/beacon%201/location",
        "a/b":               "https://h.example/base/api/v1/source/a%2Fb/location",
    }
    for src, want := range cases {
        if got := c.LocationURL(src); got != want { t.Fatalf("%q: got %s want %s", src, got, want) }
    }
}
