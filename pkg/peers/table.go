// Package peers keeps the neighbor table of a node: every radio it heard,
// when, and what it sent.
package peers

import (
    "bytes"
    "sort"
    "sync"
    "time"

    "go.uber.org/zap"

    "mortymesh/pkg/protocol"
    "mortymesh/pkg/transport"
)

// DefaultTTL drops neighbors not heard for this long.
const DefaultTTL = 5 * time.Minute

// Neighbor is the record of one radio.
type Neighbor struct {
    Addr      transport.Addr `json:"-"`
    Address   string         `json:"address"`
    FirstSeen time.Time      `json:"first_seen"`
    LastSeen  time.Time      `json:"last_seen"`
    Frames    uint64         `json:"frames"`
    Gps       uint64         `json:"gps"`
    Relays    uint64         `json:"relays"`
    // Beacon is set once the radio announced itself with BeaconPresent
    Beacon          bool  `json:"beacon"`
    BeaconTimestamp int64 `json:"beacon_timestamp,omitempty"`
}

// Table is safe for concurrent use.
type Table struct {
    mu    sync.RWMutex
    m     map[transport.Addr]*Neighbor
    ttl   time.Duration
    nowFn func() time.Time
}

func NewTable(ttl time.Duration) *Table {
    if ttl <= 0 { ttl = DefaultTTL }
    return &Table{m: make(map[transport.Addr]*Neighbor), ttl: ttl, nowFn: time.Now}
}

// Record notes a decoded message from addr and reports whether addr is new.
func (t *Table) Record(addr transport.Addr, msg protocol.Message) bool {
    now := t.nowFn()
    t.mu.Lock(); defer t.mu.Unlock()
    n, ok := t.m[addr]
    if !ok {
        n = &Neighbor{Addr: addr, Address: addr.String(), FirstSeen: now}
        t.m[addr] = n
        zap.L().Info("new neighbor", zap.Stringer("addr", addr), zap.Stringer("type", protocol.TypeOf(msg)))
    }
    n.LastSeen = now
    n.Frames++
    switch m := msg.(type) {
    case protocol.Gps:
        n.Gps++
    case protocol.Relay:
        n.Relays++
    case protocol.BeaconPresent:
        n.Beacon = true
        n.BeaconTimestamp = m.Timestamp
    }
    return !ok
}

// Get returns a copy of the record for addr.
func (t *Table) Get(addr transport.Addr) (Neighbor, bool) {
    t.mu.RLock(); defer t.mu.RUnlock()
    n, ok := t.m[addr]
    if !ok { return Neighbor{}, false }
    return *n, true
}

// List returns all records ordered by address.
func (t *Table) List() []Neighbor {
    t.mu.RLock()
    out := make([]Neighbor, 0, len(t.m))
    for _, n := range t.m { out = append(out, *n) }
    t.mu.RUnlock()
    sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Addr[:], out[j].Addr[:]) < 0 })
    return out
}

// Beacons returns the neighbors that announced themselves as beacons.
func (t *Table) Beacons() []Neighbor {
    var out []Neighbor
    for _, n := range t.List() {
        if n.Beacon { out = append(out, n) }
    }
    return out
}

// Prune removes neighbors not heard within the TTL and returns how many.
func (t *Table) Prune() int {
    cutoff := t.nowFn().Add(-t.ttl)
    t.mu.Lock(); defer t.mu.Unlock()
    removed := 0
    for a, n := range t.m {
        if n.LastSeen.Before(cutoff) {
            delete(t.m, a)
            removed++
            zap.L().Debug("neighbor expired", zap.Stringer("addr", a))
        }
    }
    return removed
}

func (t *Table) Len() int { t.mu.RLock(); defer t.mu.RUnlock(); return len(t.m) }
