// Package udp emulates the broadcast radio over UDP datagrams so nodes can
// run on ordinary hosts. Each datagram carries one frame:
//
//  0      Magic   'M' (0x4d)
//  1      Channel u8
//  2 ..7  Source  transport.Addr
//  8 ..   Frame
package udp

import (
    "errors"
    "fmt"
    "net"
    "sync"

    "go.uber.org/zap"

    "mortymesh/pkg/transport"
)

const (
    magic      = 0x4d
    headerSize = 8
    maxFrame   = 250 // radio payload limit
)

// Config describes one UDP radio.
type Config struct {
    // Listen is the local UDP address, e.g. ":4210".
    Listen string
    // Broadcast lists the destinations that make up "all peers", e.g.
    // "255.255.255.255:4210" or explicit host:port pairs.
    Broadcast []string
    Channel   uint8
    Addr      transport.Addr
}

// Radio implements transport.Driver.
type Radio struct {
    conn    *net.UDPConn
    targets []*net.UDPAddr
    channel uint8
    addr    transport.Addr

    hmu      sync.RWMutex
    onRecv   transport.ReceiveHandler
    onStatus transport.SendStatusHandler

    stCh      chan transport.SendStatus
    closeCh   chan struct{}
    closeOnce sync.Once
}

// Open binds the socket and starts the receive and status goroutines.
func Open(cfg Config) (*Radio, error) {
    laddr, err := net.ResolveUDPAddr("udp", cfg.Listen)
    if err != nil { return nil, fmt.Errorf("udp: listen addr: %w", err) }
    var targets []*net.UDPAddr
    for _, b := range cfg.Broadcast {
        ua, err := net.ResolveUDPAddr("udp", b)
        if err != nil { return nil, fmt.Errorf("udp: broadcast addr %q: %w", b, err) }
        targets = append(targets, ua)
    }
    if len(targets) == 0 { return nil, errors.New("udp: no broadcast destinations") }
    c, err := net.ListenUDP("udp", laddr)
    if err != nil { return nil, err }
    r := &Radio{
        conn:    c,
        targets: targets,
        channel: cfg.Channel,
        addr:    cfg.Addr,
        stCh:    make(chan transport.SendStatus, 64),
        closeCh: make(chan struct{}),
    }
    go r.readLoop()
    go r.statusLoop()
    return r, nil
}

func (r *Radio) Kind() transport.Kind      { return transport.KindUDP }
func (r *Radio) LocalAddr() transport.Addr { return r.addr }

// ListenAddr returns the bound socket address.
func (r *Radio) ListenAddr() net.Addr { return r.conn.LocalAddr() }

func (r *Radio) SetReceiveHandler(h transport.ReceiveHandler) { r.hmu.Lock(); r.onRecv = h; r.hmu.Unlock() }
func (r *Radio) SetSendStatusHandler(h transport.SendStatusHandler) { r.hmu.Lock(); r.onStatus = h; r.hmu.Unlock() }

func (r *Radio) Send(frame []byte) error {
    if len(frame) > maxFrame { return fmt.Errorf("udp: frame too large (%d > %d)", len(frame), maxFrame) }
    select {
    case <-r.closeCh:
        return errors.New("udp: radio closed")
    default:
    }
    pkt := make([]byte, headerSize, headerSize+len(frame))
    pkt[0] = magic
    pkt[1] = r.channel
    copy(pkt[2:headerSize], r.addr[:])
    pkt = append(pkt, frame...)

    st := transport.SendSuccess
    for _, t := range r.targets {
        if _, err := r.conn.WriteToUDP(pkt, t); err != nil {
            zap.L().Debug("udp radio write failed", zap.Stringer("target", t), zap.Error(err))
            st = transport.SendFail
        }
    }
    select {
    case r.stCh <- st:
    default:
    }
    return nil
}

func (r *Radio) readLoop() {
    buf := make([]byte, 64*1024)
    for {
        n, _, err := r.conn.ReadFromUDP(buf)
        if err != nil {
            select {
            case <-r.closeCh:
                return
            default:
            }
            var ne net.Error
            if errors.As(err, &ne) && ne.Timeout() { continue }
            zap.L().Warn("udp radio read failed", zap.Error(err))
            return
        }
        if n < headerSize || buf[0] != magic || buf[1] != r.channel { continue }
        var from transport.Addr
        copy(from[:], buf[2:headerSize])
        if from == r.addr { continue }
        r.hmu.RLock(); h := r.onRecv; r.hmu.RUnlock()
        if h != nil { h(from, buf[headerSize:n]) }
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

func (r *Radio) Close() error {
    var err error
    r.closeOnce.Do(func() {
        close(r.closeCh)
        err = r.conn.Close()
    })
    return err
}
