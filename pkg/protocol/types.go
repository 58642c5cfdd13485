package protocol

import "fmt"

// MsgType is the first byte of every frame. It mirrors the payload variant
// but is not covered by the checksum and is not trusted on decode.
type MsgType uint8

const (
    MsgNone          MsgType = iota // no variant set
    MsgBeaconPresent                // beacon liveness announcement
    MsgGps                          // gps sample from a source
    MsgRelay                        // envelope added by a relay beacon
)

func (t MsgType) String() string {
    switch t {
    case MsgNone:
        return "none"
    case MsgBeaconPresent:
        return "beacon_present"
    case MsgGps:
        return "gps"
    case MsgRelay:
        return "relay"
    default:
        return fmt.Sprintf("unknown(%d)", uint8(t))
    }
}

// Content types of the upload body codecs.
const (
    ContentCBOR = "application/cbor"
    ContentJSON = "application/json"
)
