// Package role holds the three node state machines: the GPS source, the
// relay beacon and the gateway. Each Run blocks until its context is done
// (or, for the source, until it decides to deep sleep).
package role

import (
    "context"

    "mortymesh/pkg/nmea"
    "mortymesh/pkg/protocol"
    "mortymesh/pkg/transport"
    "mortymesh/pkg/upload"
)

// Broadcaster is the send side of the mesh. Safe for concurrent use.
type Broadcaster interface {
    Broadcast(protocol.Message) error
    BroadcastFrame([]byte) error
}

// StatusBroadcaster also delivers send-status notifications.
type StatusBroadcaster interface {
    Broadcaster
    OnSendStatus(func(transport.SendStatus))
}

// Receiver yields received frames in arrival order.
type Receiver interface {
    Broadcaster
    Next(ctx context.Context) (transport.Packet, error)
}

// FrameWriter forwards frames toward the gateway (serial bridge).
type FrameWriter interface {
    WriteFrame([]byte) error
}

// FrameReader yields frames from the serial bridge. Errors for which
// serialbridge.IsLineError is true concern one line only.
type FrameReader interface {
    ReadFrame() ([]byte, error)
}

// ReadingSource yields sensor readings; nmea.Stream implements it.
type ReadingSource interface {
    Next() (nmea.Reading, error)
}

// Uploader delivers a location to the backend.
type Uploader interface {
    PostLocation(ctx context.Context, src string, loc upload.Location) error
}
