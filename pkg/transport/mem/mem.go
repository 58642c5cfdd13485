// Package mem is an in-process radio: every Radio joined to a Medium on the
// same channel hears every other Radio's broadcasts. Useful for tests and
// single-process simulations.
package mem

import (
    "errors"
    "sync"

    "go.uber.org/zap"

    "mortymesh/pkg/transport"
)

const airQueue = 64

// Medium is the shared air.
type Medium struct {
    mu     sync.Mutex
    radios map[*Radio]struct{}
    fail   bool
}

func NewMedium() *Medium { return &Medium{radios: make(map[*Radio]struct{})} }

// SetFail makes every subsequent send fail (status SendFail, no delivery).
func (m *Medium) SetFail(fail bool) { m.mu.Lock(); m.fail = fail; m.mu.Unlock() }

// Join attaches a radio with address addr listening on channel.
func (m *Medium) Join(addr transport.Addr, channel uint8) *Radio {
    r := &Radio{
        medium:  m,
        addr:    addr,
        channel: channel,
        rxCh:    make(chan rxFrame, airQueue),
        stCh:    make(chan transport.SendStatus, airQueue),
        closeCh: make(chan struct{}),
    }
    m.mu.Lock(); m.radios[r] = struct{}{}; m.mu.Unlock()
    go r.rxLoop()
    go r.statusLoop()
    return r
}

func (m *Medium) deliver(from *Radio, frame []byte) bool {
    m.mu.Lock(); defer m.mu.Unlock()
    if m.fail { return false }
    for r := range m.radios {
        if r == from || r.channel != from.channel { continue }
        pkt := rxFrame{from: from.addr, data: append([]byte(nil), frame...)}
        select {
        case r.rxCh <- pkt:
        default:
            // lost in the air
            zap.L().Debug("mem radio rx overflow", zap.Stringer("to", r.addr))
        }
    }
    return true
}

func (m *Medium) leave(r *Radio) { m.mu.Lock(); delete(m.radios, r); m.mu.Unlock() }

type rxFrame struct {
    from transport.Addr
    data []byte
}

// Radio implements transport.Driver on a Medium.
type Radio struct {
    medium  *Medium
    addr    transport.Addr
    channel uint8

    hmu      sync.RWMutex
    onRecv   transport.ReceiveHandler
    onStatus transport.SendStatusHandler

    rxCh      chan rxFrame
    stCh      chan transport.SendStatus
    closeCh   chan struct{}
    closeOnce sync.Once
}

func (r *Radio) Kind() transport.Kind           { return transport.KindMem }
func (r *Radio) LocalAddr() transport.Addr      { return r.addr }
func (r *Radio) SetReceiveHandler(h transport.ReceiveHandler) { r.hmu.Lock(); r.onRecv = h; r.hmu.Unlock() }
func (r *Radio) SetSendStatusHandler(h transport.SendStatusHandler) { r.hmu.Lock(); r.onStatus = h; r.hmu.Unlock() }

func (r *Radio) Send(frame []byte) error {
    select {
    case <-r.closeCh:
        return errors.New("mem: radio closed")
    default:
    }
    st := transport.SendFail
    if r.medium.deliver(r, frame) { st = transport.SendSuccess }
    select {
    case r.stCh <- st:
    default:
        zap.L().Debug("mem radio status overflow", zap.Stringer("addr", r.addr))
    }
    return nil
}

func (r *Radio) rxLoop() {
    for {
        select {
        case <-r.closeCh:
            return
        case f := <-r.rxCh:
            r.hmu.RLock(); h := r.onRecv; r.hmu.RUnlock()
            if h != nil { h(f.from, f.data) }
        }
    }
}

func (r *Radio) statusLoop() {
    for {
        select {
        case <-r.closeCh:
            return
        case st := <-r.stCh:
            r.hmu.RLock(); h := r.onStatus; r.hmu.RUnlock()
            if h != nil { h(transport.BroadcastAddr, st) }
        }
    }
}

// Close detaches the radio from the medium. A receive handler blocked in
// the handoff must be released by its owner (Mesh.Close) first.
func (r *Radio) Close() error {
    r.closeOnce.Do(func() {
        r.medium.leave(r)
        close(r.closeCh)
    })
    return nil
}

// Inject delivers frame to r as if it had been broadcast by from.
func (r *Radio) Inject(from transport.Addr, frame []byte) {
    select {
    case r.rxCh <- rxFrame{from: from, data: append([]byte(nil), frame...)}:
    case <-r.closeCh:
    }
}
