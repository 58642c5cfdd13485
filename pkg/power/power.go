// Package power models the battery sense lines and the deep-sleep
// transition of a source node.
package power

import (
    "context"
    "errors"
    "fmt"
    "os"
    "strings"
    "time"
)

// ErrDeepSleep marks the terminal transition of a source: the running task
// ends and the node restarts from scratch after the sleep.
var ErrDeepSleep = errors.New("power: deep sleep")

// SleepError carries the requested sleep duration and matches ErrDeepSleep.
type SleepError struct {
    Duration time.Duration
}

func (e *SleepError) Error() string        { return fmt.Sprintf("power: deep sleep for %s", e.Duration) }
func (e *SleepError) Is(target error) bool { return target == ErrDeepSleep }

// Reading is one sample of the power lines.
type Reading struct {
    Charging bool
    Voltage  float32
}

// Sensor reports whether the node runs on external power and the battery voltage.
type Sensor interface {
    Read() (Reading, error)
}

// Static always returns the same reading.
type Static Reading

func (s Static) Read() (Reading, error) { return Reading(s), nil }

// FileSensor reads the charging flag from a file ("1", "true", "on" mean
// charging); the voltage is fixed.
type FileSensor struct {
    Path    string
    Voltage float32
}

func (f FileSensor) Read() (Reading, error) {
    b, err := os.ReadFile(f.Path)
    if err != nil { return Reading{Voltage: f.Voltage}, fmt.Errorf("power: read %s: %w", f.Path, err) }
    switch strings.ToLower(strings.TrimSpace(string(b))) {
    case "1", "true", "on", "yes":
        return Reading{Charging: true, Voltage: f.Voltage}, nil
    default:
        return Reading{Voltage: f.Voltage}, nil
    }
}

// VoltageFromADC converts a raw battery ADC sample (millivolts behind the
// divider) to volts.
func VoltageFromADC(raw uint16) float32 { return float32(raw) / 262.0 }

// Sleeper performs a deep sleep. Implementations return once the node is
// awake again (or ctx is done).
type Sleeper interface {
    Sleep(ctx context.Context, d time.Duration) error
}

// HostSleeper emulates deep sleep with a cancellable wait.
type HostSleeper struct{}

func (HostSleeper) Sleep(ctx context.Context, d time.Duration) error {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return ctx.Err()
    case <-t.C:
        return nil
    }
}
