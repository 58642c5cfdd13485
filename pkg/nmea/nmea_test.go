package nmea

import (
    "context"
    "errors"
    "io"
    "math"
    "os"
    "path/filepath"
    "strings"
    "testing"
)

const (
    ggaFix   = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
    ggaNoFix = "$GPGGA,123520,,,,,0,00,,,M,,M,,*61"
    rmc      = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W*6A"
)

func TestParseGGAFix(t *testing.T) {
    r, err := ParseGGA(ggaFix)
    if err != nil { t.Fatalf("parse: %v", err) }
    if !r.Fix || r.Satellites != 8 || r.FixQuality != 1 { t.Fatalf("reading = %+v", r) }
    if math.Abs(r.Latitude-48.1173) > 1e-4 || math.Abs(r.Longitude-11.516666) > 1e-4 { t.Fatalf("position = %v,%v", r.Latitude, r.Longitude) }
    if r.UTC != 12*3600+35*60+19 { t.Fatalf("utc = %d", r.UTC) }
    if math.Abs(float64(r.HDOP)-0.9) > 1e-6 { t.Fatalf("hdop = %v", r.HDOP) }
}

func TestParseGGANoFix(t *testing.T) {
    r, err := ParseGGA(ggaNoFix)
    if err != nil { t.Fatalf("parse: %v", err) }
    if r.Fix || r.Latitude != 0 || r.Satellites != 0 { t.Fatalf("reading = %+v", r) }
    if _, err := ParseGGA(rmc); !errors.Is(err, ErrNotGGA) { t.Fatalf("rmc err = %v", err) }
}

func TestStreamResynchronizes(t *testing.T) {
    in := strings.Join([]string{
        "garbage$GPGGA,123519,4807.0", // truncated sentence
        rmc,
        strings.Replace(ggaFix, "*47", "*00", 1), // bad checksum
        "noise " + ggaFix,
        ggaNoFix,
    }, "\r\n") + "\r\n"
    s := NewStream(strings.NewReader(in))
    r, err := s.Next()
    if err != nil || !r.Fix { t.Fatalf("first = %+v, %v", r, err) }
    r, err = s.Next()
    if err != nil || r.Fix { t.Fatalf("second = %+v, %v", r, err) }
    if _, err := s.Next(); !errors.Is(err, io.EOF) { t.Fatalf("want EOF, got %v", err) }
}

func TestReplay(t *testing.T) {
    p := filepath.Join(t.TempDir(), "track.nmea")
    if err := os.WriteFile(p, []byte(ggaFix+"\n"+ggaNoFix+"\n"), 0o644); err != nil { t.Fatalf("write: %v", err) }
    rc, err := Replay(context.Background(), p, 0, true)
    if err != nil { t.Fatalf("replay: %v", err) }
    s := NewStream(rc)
    for i := 0; i < 5; i++ {
        r, err := s.Next()
        if err != nil { t.Fatalf("next %d: %v", i, err) }
        if r.Fix != (i%2 == 0) { t.Fatalf("reading %d fix = %v", i, r.Fix) }
    }
    _ = rc.Close()
}

func TestReplayKeepsEveryLine(t *testing.T) {
    p := filepath.Join(t.TempDir(), "three.nmea")
    lines := []string{ggaFix, ggaNoFix, ggaFix}
    if err := os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil { t.Fatal(err) }
    rc, err := Replay(context.Background(), p, 0, false)
    if err != nil { t.Fatalf("replay: %v", err) }
    defer rc.Close()
    got, err := io.ReadAll(rc)
    if err != nil { t.Fatalf("read: %v", err) }
    want := strings.Join(lines, "\r\n") + "\r\n"
    if string(got) != want { t.Fatalf("replayed %q\nwant %q", got, want) }

    n := 0
    s := NewStream(strings.NewReader(want))
    for {
        if _, err := s.Next(); err != nil { break }
        n++
    }
    if n != 3 { t.Fatalf("got %d readings from 3 GGA lines", n) }
}
