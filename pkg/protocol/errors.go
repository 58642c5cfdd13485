package protocol

import (
    "errors"
    "fmt"
)

var (
    // ErrMalformed is returned when a frame is too short or its payload
    // cannot be deserialized into a message.
    ErrMalformed = errors.New("protocol: malformed frame")
    // ErrEmptyMessage is returned when a well-formed payload carries no variant.
    ErrEmptyMessage = errors.New("protocol: empty message")
    // ErrUnsupported is returned by Encode for values it cannot place on the wire.
    ErrUnsupported = errors.New("protocol: unsupported message")
)

// CRCMismatchError reports a frame whose checksum byte disagrees with the
// checksum computed over its payload.
type CRCMismatchError struct {
    Frame    uint8 // value carried in the frame
    Computed uint8 // value computed over the payload
}

func (e *CRCMismatchError) Error() string {
    return fmt.Sprintf("protocol: crc mismatch: frame=0x%02x computed=0x%02x", e.Frame, e.Computed)
}

// IsCRCMismatch reports whether err is (or wraps) a CRCMismatchError.
func IsCRCMismatch(err error) bool {
    var ce *CRCMismatchError
    return errors.As(err, &ce)
}

// Reason maps a decode error to a short label suitable for logs and metrics.
func Reason(err error) string {
    switch {
    case err == nil:
        return "ok"
    case IsCRCMismatch(err):
        return "crc_mismatch"
    case errors.Is(err, ErrEmptyMessage):
        return "empty"
    case errors.Is(err, ErrMalformed):
        return "malformed"
    default:
        return "other"
    }
}
