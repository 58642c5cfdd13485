package protocol

import (
    "fmt"

    "github.com/sigurn/crc8"
)

// Frame layout used on the radio and inside serial lines:
//
//  0      Type  u8  (MsgType, informational)
//  1      CRC8  u8  (poly 0x07, MSB first, init 0) over bytes 2..
//  2 ..   Payload   (MarshalPayload)
const frameHeaderSize = 2

var crcTable = crc8.MakeTable(crc8.CRC8)

// Checksum returns the CRC8 of payload as stored in byte 1 of a frame.
func Checksum(payload []byte) uint8 { return crc8.Checksum(payload, crcTable) }

// Encode serializes m into a frame. A nil m encodes the "none" frame.
func Encode(m Message) ([]byte, error) {
    payload, err := MarshalPayload(m)
    if err != nil { return nil, err }
    out := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
    out[0] = byte(TypeOf(m))
    out[1] = Checksum(payload)
    return append(out, payload...), nil
}

// MustEncode is Encode for values known to be encodable. It panics on error.
func MustEncode(m Message) []byte {
    b, err := Encode(m)
    if err != nil { panic(err) }
    return b
}

// Decode verifies the checksum of frame and parses its payload. The type
// byte is not cross-checked against the decoded variant.
func Decode(frame []byte) (Message, error) {
    if len(frame) < frameHeaderSize {
        return nil, fmt.Errorf("%w: frame length %d < %d", ErrMalformed, len(frame), frameHeaderSize)
    }
    payload := frame[frameHeaderSize:]
    if sum := Checksum(payload); sum != frame[1] {
        return nil, &CRCMismatchError{Frame: frame[1], Computed: sum}
    }
    return UnmarshalPayload(payload)
}

// PeekType returns the declared type byte of frame without validating it.
func PeekType(frame []byte) MsgType {
    if len(frame) == 0 { return MsgNone }
    return MsgType(frame[0])
}
