// Package led drives the single status pixel. The LED is an actor: callers
// enqueue commands and a dedicated goroutine performs the (slow) writes, so
// a blink never stalls the caller.
package led

import (
    "context"
    "fmt"
    "time"

    "go.uber.org/zap"
)

// Color is an RGB pixel value.
type Color struct{ R, G, B uint8 }

func (c Color) String() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

var (
    Black  = Color{}
    Red    = Color{255, 0, 0}
    Green  = Color{0, 128, 0}
    Blue   = Color{0, 0, 255}
    Purple = Color{128, 0, 128}
)

// Scale applies brightness the way the pixel firmware does: c*(b+1)/256.
func Scale(c Color, brightness uint8) Color {
    f := func(v uint8) uint8 { return uint8(uint16(v) * (uint16(brightness) + 1) / 256) }
    return Color{f(c.R), f(c.G), f(c.B)}
}

// Driver writes one color to the hardware. Writes may block.
type Driver interface {
    Write(Color) error
}

type command struct {
    color      Color
    brightness uint8
    blink      bool
    period     time.Duration
    duty       int // percent on
    times      int
}

// LED is the actor handle. A nil *LED ignores every command.
type LED struct {
    drv  Driver
    cmds chan command
}

// New returns an LED with a command queue of depth queue. Commands issued
// while the queue is full are dropped.
func New(drv Driver, queue int) *LED {
    if queue < 1 { queue = 16 }
    return &LED{drv: drv, cmds: make(chan command, queue)}
}

// SetColor switches the LED to c.
func (l *LED) SetColor(c Color, brightness uint8) { l.push(command{color: c, brightness: brightness}) }

// Blink flashes c times with a 50% duty cycle, then restores the last color.
func (l *LED) Blink(c Color, brightness uint8, period time.Duration, times int) {
    l.push(command{color: c, brightness: brightness, blink: true, period: period, duty: 50, times: times})
}

func (l *LED) push(c command) {
    if l == nil { return }
    select {
    case l.cmds <- c:
    default:
        zap.L().Debug("led queue full, command dropped", zap.Stringer("color", c.color))
    }
}

// Run executes commands until ctx is done, then turns the LED off.
func (l *LED) Run(ctx context.Context) error {
    current := Black
    defer func() { _ = l.drv.Write(Black) }()
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case c := <-l.cmds:
            col := Scale(c.color, c.brightness)
            if !c.blink {
                current = col
                l.write(current)
                continue
            }
            on := c.period * time.Duration(c.duty) / 100
            off := c.period - on
            for i := 0; i < c.times; i++ {
                l.write(col)
                if !sleep(ctx, on) { return ctx.Err() }
                l.write(Black)
                if !sleep(ctx, off) { return ctx.Err() }
            }
            l.write(current)
        }
    }
}

func (l *LED) write(c Color) {
    if err := l.drv.Write(c); err != nil { zap.L().Warn("led write failed", zap.Error(err)) }
}

func sleep(ctx context.Context, d time.Duration) bool {
    if d <= 0 { return ctx.Err() == nil }
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

// LogDriver reports colors through the logger; used on hosts without a pixel.
type LogDriver struct{}

func (LogDriver) Write(c Color) error {
    zap.L().Debug("led", zap.Stringer("color", c))
    return nil
}
