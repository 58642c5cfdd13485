package power

import (
    "context"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "testing"
    "time"
)

func TestSleepErrorMatches(t *testing.T) {
    err := fmt.Errorf("source: %w", &SleepError{Duration: 10 * time.Second})
    if !errors.Is(err, ErrDeepSleep) { t.Fatalf("not a deep sleep: %v", err) }
    var se *SleepError
    if !errors.As(err, &se) || se.Duration != 10*time.Second { t.Fatalf("duration lost") }
}

func TestFileSensor(t *testing.T) {
    p := filepath.Join(t.TempDir(), "vbus")
    s := FileSensor{Path: p, Voltage: 3.9}
    if _, err := s.Read(); err == nil { t.Fatalf("missing file accepted") }
    _ = os.WriteFile(p, []byte("1\n"), 0o644)
    if r, err := s.Read(); err != nil || !r.Charging || r.Voltage != 3.9 { t.Fatalf("got %+v, %v", r, err) }
    _ = os.WriteFile(p, []byte("0"), 0o644)
    if r, _ := s.Read(); r.Charging { t.Fatalf("charging on 0") }
}

func TestHostSleeperCancel(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    if err := (HostSleeper{}).Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) { t.Fatalf("err = %v", err) }
    if err := (HostSleeper{}).Sleep(context.Background(), time.Millisecond); err != nil { t.Fatalf("err = %v", err) }
    if v := VoltageFromADC(1048); v < 3.99 || v > 4.01 { t.Fatalf("voltage = %v", v) }
}
