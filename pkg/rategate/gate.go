// Package rategate provides the time gate used to throttle periodic reports.
package rategate

import "time"

// Gate fires at most once per interval. A gate that never fired is treated
// as having fired infinitely long ago. Not safe for concurrent use; each
// gate belongs to a single loop.
type Gate struct {
    last  time.Time
    fired bool
    nowFn func() time.Time
}

// New returns a gate reading the wall clock (with its monotonic component).
func New() *Gate { return &Gate{nowFn: time.Now} }

// NewWithClock returns a gate reading time from nowFn.
func NewWithClock(nowFn func() time.Time) *Gate {
    if nowFn == nil { nowFn = time.Now }
    return &Gate{nowFn: nowFn}
}

// ShouldFire reports whether at least interval elapsed since the last true
// result (or whether this is the first call) and, if so, records now.
// A false result leaves the gate untouched.
func (g *Gate) ShouldFire(interval time.Duration) bool {
    now := g.nowFn()
    if g.fired && now.Sub(g.last) < interval { return false }
    g.last = now
    g.fired = true
    return true
}

// Reset forgets the last firing so the next call fires.
func (g *Gate) Reset() { g.fired = false; g.last = time.Time{} }

// LastFired returns the time of the last true result and whether there was one.
func (g *Gate) LastFired() (time.Time, bool) { return g.last, g.fired }
