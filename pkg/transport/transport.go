// Package transport carries frames over a broadcast-only radio. A Driver is
// the raw radio (udp, mem); Mesh layers the receive handoff queue and
// send-status fan-out on top of it.
//
// Key concepts:
// - Driver: sends to the single "all peers" address, reports completion later
// - Mesh: copies received frames into a bounded inbox drained by one worker
// - SendStatus: asynchronous outcome of a broadcast; no acks, no retries
package transport

import (
    "errors"
    "fmt"
    "strings"
)

// Kind identifies the radio implementation.
type Kind int

const (
    KindUnknown Kind = iota
    KindUDP
    KindMem
)

func (k Kind) String() string {
    switch k {
    case KindUDP:
        return "udp"
    case KindMem:
        return "mem"
    default:
        return "unknown"
    }
}

// ParseKind maps a config string to a Kind.
func ParseKind(s string) (Kind, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "udp":
        return KindUDP, nil
    case "mem":
        return KindMem, nil
    default:
        return KindUnknown, fmt.Errorf("%w: %q", ErrUnknownKind, s)
    }
}

var (
    ErrUnknownKind = errors.New("transport: unknown radio kind")
    ErrClosed      = errors.New("transport: closed")
    // ErrSendFailed marks a broadcast the driver could not hand to the radio.
    ErrSendFailed = errors.New("transport: send failed")
)

// SendStatus is the asynchronous outcome of a broadcast.
type SendStatus int

const (
    SendSuccess SendStatus = iota
    SendFail
)

func (s SendStatus) String() string {
    if s == SendSuccess { return "success" }
    return "fail"
}

// ReceiveHandler is invoked from the driver's own goroutine for every frame
// heard from another radio. data is only valid for the duration of the call.
type ReceiveHandler func(from Addr, data []byte)

// SendStatusHandler is invoked from the driver's goroutine once per Send.
type SendStatusHandler func(to Addr, status SendStatus)

// Driver is a broadcast radio on a fixed channel. Send must be safe for
// concurrent use.
type Driver interface {
    Kind() Kind
    LocalAddr() Addr
    // Send queues frame for transmission to BroadcastAddr. A nil error only
    // means the frame was accepted; the outcome arrives via the status handler.
    Send(frame []byte) error
    SetReceiveHandler(ReceiveHandler)
    SetSendStatusHandler(SendStatusHandler)
    Close() error
}
