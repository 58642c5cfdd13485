package protocol

import (
    "bytes"
    "errors"
    "reflect"
    "testing"
)

func sampleGps() Gps {
    return Gps{
        Latitude:       52.1,
        Longitude:      21.05,
        Satellites:     7,
        FixQuality:     1,
        HDOP:           0.9,
        UTC:            45296,
        UID:            "abc123",
        Charging:       true,
        BatteryVoltage: 4.07,
    }
}

func TestChecksumKnownVector(t *testing.T) {
    // CRC-8/SMBUS check value
    if got := Checksum([]byte("123456789")); got != 0xF4 {
        t.Fatalf("checksum = 0x%02x, want 0xf4", got)
    }
    if got := Checksum(nil); got != 0 {
        t.Fatalf("checksum of empty = 0x%02x", got)
    }
}

func TestFrameRoundtrip(t *testing.T) {
    cases := []struct {
        name string
        msg  Message
        typ  MsgType
    }{
        {"beacon", BeaconPresent{Timestamp: 1700000000123}, MsgBeaconPresent},
        {"beacon_zero", BeaconPresent{}, MsgBeaconPresent},
        {"gps", sampleGps(), MsgGps},
        {"gps_empty", Gps{UID: "zz9x01", BatteryVoltage: 3.7}, MsgGps},
        {"gps_negative", Gps{Latitude: -33.86, Longitude: -151.2, UTC: -1, UID: "neg001"}, MsgGps},
        {"relay", Relay{Timestamp: 42, Src: "aa:bb:cc:dd:ee:ff", Msg: sampleGps()}, MsgRelay},
        {"relay_nested", Relay{Timestamp: 43, Src: "01:02:03:04:05:06", Msg: Relay{Timestamp: 42, Src: "aa:bb:cc:dd:ee:ff", Msg: sampleGps()}}, MsgRelay},
        {"relay_empty", Relay{Src: "00:00:00:00:00:01"}, MsgRelay},
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            b, err := Encode(tc.msg)
            if err != nil { t.Fatalf("encode: %v", err) }
            if MsgType(b[0]) != tc.typ { t.Fatalf("type byte = %d, want %d", b[0], tc.typ) }
            if b[1] != Checksum(b[2:]) { t.Fatalf("crc byte mismatch") }
            got, err := Decode(b)
            if err != nil { t.Fatalf("decode: %v", err) }
            if !reflect.DeepEqual(got, tc.msg) { t.Fatalf("roundtrip mismatch:\n got %#v\nwant %#v", got, tc.msg) }
        })
    }
}

func TestEncodeDeterministic(t *testing.T) {
    a := MustEncode(Relay{Timestamp: 7, Src: "x", Msg: sampleGps()})
    b := MustEncode(Relay{Timestamp: 7, Src: "x", Msg: sampleGps()})
    if !bytes.Equal(a, b) { t.Fatalf("encode not deterministic") }
}

func TestDecodeDetectsEveryPayloadBitFlip(t *testing.T) {
    frame := MustEncode(Relay{Timestamp: 99, Src: "aa:bb:cc:dd:ee:ff", Msg: sampleGps()})
    for i := 2; i < len(frame); i++ {
        for bit := 0; bit < 8; bit++ {
            c := append([]byte(nil), frame...)
            c[i] ^= 1 << bit
            _, err := Decode(c)
            var ce *CRCMismatchError
            if !errors.As(err, &ce) { t.Fatalf("byte %d bit %d: err = %v, want crc mismatch", i, bit, err) }
            if ce.Frame != frame[1] || ce.Computed != Checksum(c[2:]) {
                t.Fatalf("mismatch values = %+v", ce)
            }
        }
    }
}

func TestDecodeCorruptedByteFive(t *testing.T) {
    frame := MustEncode(sampleGps())
    frame[5] ^= 0xff
    if _, err := Decode(frame); !IsCRCMismatch(err) {
        t.Fatalf("err = %v, want crc mismatch", err)
    }
}

func TestDecodeShortFrame(t *testing.T) {
    for _, in := range [][]byte{nil, {}, {2}} {
        _, err := Decode(in)
        if !errors.Is(err, ErrMalformed) { t.Fatalf("len %d: err = %v, want malformed", len(in), err) }
    }
}

func TestDecodeTypeByteNotCrossChecked(t *testing.T) {
    frame := MustEncode(sampleGps())
    frame[0] = byte(MsgBeaconPresent)
    m, err := Decode(frame)
    if err != nil { t.Fatalf("decode: %v", err) }
    if _, ok := m.(Gps); !ok { t.Fatalf("decoded %T, want Gps", m) }
}

func TestDecodeEmptyAndMalformed(t *testing.T) {
    none := MustEncode(nil)
    if !bytes.Equal(none, []byte{0, 0}) { t.Fatalf("none frame = %x", none) }
    if _, err := Decode(none); !errors.Is(err, ErrEmptyMessage) { t.Fatalf("err = %v, want empty", err) }

    // truncated length-delimited field with a valid checksum
    payload := []byte{0x12, 0x05, 0x09}
    frame := append([]byte{byte(MsgGps), Checksum(payload)}, payload...)
    if _, err := Decode(frame); !errors.Is(err, ErrMalformed) { t.Fatalf("err = %v, want malformed", err) }

    // gps sent with the wrong wire type
    payload = []byte{0x10, 0x01}
    frame = append([]byte{byte(MsgGps), Checksum(payload)}, payload...)
    if _, err := Decode(frame); !errors.Is(err, ErrMalformed) { t.Fatalf("err = %v, want malformed", err) }
}

func TestDecodeSkipsUnknownFields(t *testing.T) {
    payload := MustEncode(BeaconPresent{Timestamp: 5})[2:]
    // field 15, varint 1
    payload = append([]byte{0x78, 0x01}, payload...)
    frame := append([]byte{byte(MsgBeaconPresent), Checksum(payload)}, payload...)
    m, err := Decode(frame)
    if err != nil { t.Fatalf("decode: %v", err) }
    if m != (BeaconPresent{Timestamp: 5}) { t.Fatalf("got %#v", m) }
}

func TestEncodeRejectsUnknownRelayPayload(t *testing.T) {
    type bogus struct{ RelayPayload }
    if _, err := Encode(Relay{Msg: bogus{}}); !errors.Is(err, ErrUnsupported) {
        t.Fatalf("err = %v, want unsupported", err)
    }
}

func TestReason(t *testing.T) {
    if Reason(&CRCMismatchError{}) != "crc_mismatch" { t.Fatalf("crc reason") }
    if Reason(ErrEmptyMessage) != "empty" { t.Fatalf("empty reason") }
    if Reason(ErrMalformed) != "malformed" { t.Fatalf("malformed reason") }
    if MsgRelay.String() != "relay" || MsgType(9).String() != "unknown(9)" { t.Fatalf("type names") }
}
