package transport

import (
    "context"
    "fmt"
    "strings"
    "sync"
    "sync/atomic"

    "go.uber.org/zap"

    "mortymesh/pkg/protocol"
)

// QueuePolicy decides what the receive handoff does when the inbox is full.
type QueuePolicy int

const (
    // PolicyBlock stalls the radio callback until the worker frees a slot.
    // No received frame is lost, at the cost of driver responsiveness.
    PolicyBlock QueuePolicy = iota
    // PolicyDropOldest discards the oldest queued frame to make room.
    PolicyDropOldest
)

func (p QueuePolicy) String() string {
    if p == PolicyDropOldest { return "drop_oldest" }
    return "block"
}

// ParsePolicy maps a config string to a QueuePolicy.
func ParsePolicy(s string) (QueuePolicy, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "", "block":
        return PolicyBlock, nil
    case "drop_oldest", "drop-oldest":
        return PolicyDropOldest, nil
    default:
        return PolicyBlock, fmt.Errorf("transport: unknown queue policy %q", s)
    }
}

// DefaultQueueSize is the inbox depth of the beacon firmware.
const DefaultQueueSize = 2

// Packet is a received frame with its sender. Data is owned by the receiver.
type Packet struct {
    From Addr
    Data []byte
}

// Options tunes a Mesh.
type Options struct {
    QueueSize int
    Policy    QueuePolicy
    // OnDrop is called for every frame discarded by PolicyDropOldest.
    OnDrop func(Packet)
}

// Mesh wraps a Driver with a bounded receive inbox and send-status fan-out.
// Broadcast is safe for concurrent use; Inbox is meant for a single consumer.
type Mesh struct {
    drv    Driver
    inbox  chan Packet
    policy QueuePolicy
    onDrop func(Packet)

    pushMu sync.Mutex // serializes drop-oldest pushes

    statusMu sync.RWMutex
    status   []func(SendStatus)

    done      chan struct{}
    closeOnce sync.Once

    received atomic.Uint64
    dropped  atomic.Uint64
}

// NewMesh takes ownership of drv and installs its receive and status handlers.
func NewMesh(drv Driver, opts Options) *Mesh {
    if opts.QueueSize < 1 { opts.QueueSize = DefaultQueueSize }
    m := &Mesh{
        drv:    drv,
        inbox:  make(chan Packet, opts.QueueSize),
        policy: opts.Policy,
        onDrop: opts.OnDrop,
        done:   make(chan struct{}),
    }
    drv.SetReceiveHandler(m.handoff)
    drv.SetSendStatusHandler(m.dispatchStatus)
    return m
}

func (m *Mesh) LocalAddr() Addr     { return m.drv.LocalAddr() }
func (m *Mesh) Kind() Kind          { return m.drv.Kind() }
func (m *Mesh) Policy() QueuePolicy { return m.policy }

// Inbox yields received frames in arrival order.
func (m *Mesh) Inbox() <-chan Packet { return m.inbox }

// Done is closed when the mesh is closed.
func (m *Mesh) Done() <-chan struct{} { return m.done }

// Stats returns how many frames were handed off and how many were dropped.
func (m *Mesh) Stats() (received, dropped uint64) { return m.received.Load(), m.dropped.Load() }

// Broadcast encodes msg and sends it to all peers.
func (m *Mesh) Broadcast(msg protocol.Message) error {
    frame, err := protocol.Encode(msg)
    if err != nil { return fmt.Errorf("encode %s: %w", protocol.TypeOf(msg), err) }
    return m.BroadcastFrame(frame)
}

// BroadcastFrame sends an already encoded frame to all peers.
func (m *Mesh) BroadcastFrame(frame []byte) error {
    select {
    case <-m.done:
        return ErrClosed
    default:
    }
    if err := m.drv.Send(frame); err != nil { return fmt.Errorf("%w: %v", ErrSendFailed, err) }
    return nil
}

// OnSendStatus registers fn for every send-status notification. fn runs on
// the driver goroutine and must not block.
func (m *Mesh) OnSendStatus(fn func(SendStatus)) {
    m.statusMu.Lock(); defer m.statusMu.Unlock()
    m.status = append(m.status, fn)
}

func (m *Mesh) dispatchStatus(_ Addr, st SendStatus) {
    m.statusMu.RLock(); defer m.statusMu.RUnlock()
    for _, fn := range m.status { fn(st) }
}

// handoff runs in the driver's receive context: copy and enqueue only.
func (m *Mesh) handoff(from Addr, data []byte) {
    p := Packet{From: from, Data: append([]byte(nil), data...)}
    if m.policy == PolicyDropOldest {
        m.pushDropOldest(p)
        return
    }
    select {
    case m.inbox <- p:
        m.received.Add(1)
    case <-m.done:
    }
}

func (m *Mesh) pushDropOldest(p Packet) {
    m.pushMu.Lock(); defer m.pushMu.Unlock()
    for {
        select {
        case m.inbox <- p:
            m.received.Add(1)
            return
        default:
        }
        select {
        case old := <-m.inbox:
            m.dropped.Add(1)
            zap.L().Debug("mesh inbox full, dropped oldest frame", zap.Stringer("from", old.From), zap.Int("len", len(old.Data)))
            if m.onDrop != nil { m.onDrop(old) }
        default:
        }
    }
}

// Next blocks until a frame is available, ctx is done or the mesh is closed.
func (m *Mesh) Next(ctx context.Context) (Packet, error) {
    select {
    case p := <-m.inbox:
        return p, nil
    case <-ctx.Done():
        return Packet{}, ctx.Err()
    case <-m.done:
        return Packet{}, ErrClosed
    }
}

// Close stops the handoff and closes the driver.
func (m *Mesh) Close() error {
    var err error
    m.closeOnce.Do(func() {
        close(m.done)
        err = m.drv.Close()
    })
    return err
}
