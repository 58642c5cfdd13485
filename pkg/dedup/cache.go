// Package dedup holds the bounded recency set used by the gateway to drop
// samples that reached it through more than one beacon.
package dedup

// DefaultCapacity matches the gateway firmware.
const DefaultCapacity = 10

// Cache is a fixed-capacity FIFO set of ids. When full, Add evicts the oldest
// inserted id regardless of lookups (not LRU). Not safe for concurrent use.
type Cache struct {
    ids  []string // ring buffer
    head int      // index of the oldest entry
    n    int
}

// New returns a cache holding at most capacity ids. capacity < 1 selects
// DefaultCapacity.
func New(capacity int) *Cache {
    if capacity < 1 { capacity = DefaultCapacity }
    return &Cache{ids: make([]string, capacity)}
}

// Add appends id and evicts the oldest entry when capacity is exceeded.
// It returns the evicted id, if any.
func (c *Cache) Add(id string) (evicted string, ok bool) {
    if c.n < len(c.ids) {
        c.ids[(c.head+c.n)%len(c.ids)] = id
        c.n++
        return "", false
    }
    evicted = c.ids[c.head]
    c.ids[c.head] = id
    c.head = (c.head + 1) % len(c.ids)
    return evicted, true
}

// Contains reports whether id is currently held.
func (c *Cache) Contains(id string) bool {
    for i := 0; i < c.n; i++ {
        if c.ids[(c.head+i)%len(c.ids)] == id { return true }
    }
    return false
}

func (c *Cache) Len() int      { return c.n }
func (c *Cache) Capacity() int { return len(c.ids) }

// Snapshot returns the held ids, oldest first.
func (c *Cache) Snapshot() []string {
    out := make([]string, 0, c.n)
    for i := 0; i < c.n; i++ { out = append(out, c.ids[(c.head+i)%len(c.ids)]) }
    return out
}
