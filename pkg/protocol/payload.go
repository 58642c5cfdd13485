package protocol

import (
    "fmt"
    "math"

    "google.golang.org/protobuf/encoding/protowire"
)

// Payload wire schema (protobuf, proto3 semantics):
//
//  MortyMessage     { oneof msg { BeaconPresentMsg beacon_present = 1; GpsMsg gps = 2; RelayMsg relay = 3; } }
//  BeaconPresentMsg { int64 timestamp = 1; }
//  GpsMsg           { double latitude = 1; double longitude = 2; int32 satellites = 3; int32 fix_quality = 4;
//                     float hdop = 5; int32 utc = 6; string uid = 7; bool charging = 8; float battery_voltage = 9; }
//  RelayMsg         { int64 timestamp = 1; string src = 2; oneof msg { GpsMsg gps = 3; RelayMsg relay = 4; } }
//
// Scalars equal to their zero value are omitted; oneof members are always written.
const (
    fieldMsgBeaconPresent protowire.Number = 1
    fieldMsgGps           protowire.Number = 2
    fieldMsgRelay         protowire.Number = 3

    fieldBeaconTimestamp protowire.Number = 1

    fieldGpsLatitude       protowire.Number = 1
    fieldGpsLongitude      protowire.Number = 2
    fieldGpsSatellites     protowire.Number = 3
    fieldGpsFixQuality     protowire.Number = 4
    fieldGpsHDOP           protowire.Number = 5
    fieldGpsUTC            protowire.Number = 6
    fieldGpsUID            protowire.Number = 7
    fieldGpsCharging       protowire.Number = 8
    fieldGpsBatteryVoltage protowire.Number = 9

    fieldRelayTimestamp protowire.Number = 1
    fieldRelaySrc       protowire.Number = 2
    fieldRelayGps       protowire.Number = 3
    fieldRelayRelay     protowire.Number = 4
)

// MarshalPayload serializes m as a MortyMessage. A nil m yields an empty payload.
func MarshalPayload(m Message) ([]byte, error) {
    var b []byte
    switch v := m.(type) {
    case nil:
        return []byte{}, nil
    case BeaconPresent:
        b = protowire.AppendTag(b, fieldMsgBeaconPresent, protowire.BytesType)
        b = protowire.AppendBytes(b, appendBeacon(nil, v))
    case Gps:
        b = protowire.AppendTag(b, fieldMsgGps, protowire.BytesType)
        b = protowire.AppendBytes(b, appendGps(nil, v))
    case Relay:
        sub, err := appendRelay(nil, v)
        if err != nil { return nil, err }
        b = protowire.AppendTag(b, fieldMsgRelay, protowire.BytesType)
        b = protowire.AppendBytes(b, sub)
    default:
        return nil, fmt.Errorf("%w: %T", ErrUnsupported, m)
    }
    return b, nil
}

// UnmarshalPayload parses a MortyMessage. A payload without a variant returns
// ErrEmptyMessage; any wire error is reported as ErrMalformed.
func UnmarshalPayload(b []byte) (Message, error) {
    var out Message
    err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, _ uint64) error {
        switch num {
        case fieldMsgBeaconPresent:
            if typ != protowire.BytesType { return wireTypeErr("beacon_present", typ) }
            m, err := parseBeacon(v)
            if err != nil { return err }
            out = m
        case fieldMsgGps:
            if typ != protowire.BytesType { return wireTypeErr("gps", typ) }
            m, err := parseGps(v)
            if err != nil { return err }
            out = m
        case fieldMsgRelay:
            if typ != protowire.BytesType { return wireTypeErr("relay", typ) }
            m, err := parseRelay(v)
            if err != nil { return err }
            out = m
        }
        return nil
    })
    if err != nil { return nil, err }
    if out == nil { return nil, ErrEmptyMessage }
    return out, nil
}

func appendBeacon(b []byte, m BeaconPresent) []byte {
    if m.Timestamp != 0 {
        b = protowire.AppendTag(b, fieldBeaconTimestamp, protowire.VarintType)
        b = protowire.AppendVarint(b, uint64(m.Timestamp))
    }
    return b
}

func appendGps(b []byte, m Gps) []byte {
    b = appendDouble(b, fieldGpsLatitude, m.Latitude)
    b = appendDouble(b, fieldGpsLongitude, m.Longitude)
    b = appendInt32(b, fieldGpsSatellites, m.Satellites)
    b = appendInt32(b, fieldGpsFixQuality, m.FixQuality)
    b = appendFloat(b, fieldGpsHDOP, m.HDOP)
    b = appendInt32(b, fieldGpsUTC, m.UTC)
    if m.UID != "" {
        b = protowire.AppendTag(b, fieldGpsUID, protowire.BytesType)
        b = protowire.AppendString(b, m.UID)
    }
    if m.Charging {
        b = protowire.AppendTag(b, fieldGpsCharging, protowire.VarintType)
        b = protowire.AppendVarint(b, protowire.EncodeBool(true))
    }
    b = appendFloat(b, fieldGpsBatteryVoltage, m.BatteryVoltage)
    return b
}

func appendRelay(b []byte, m Relay) ([]byte, error) {
    if m.Timestamp != 0 {
        b = protowire.AppendTag(b, fieldRelayTimestamp, protowire.VarintType)
        b = protowire.AppendVarint(b, uint64(m.Timestamp))
    }
    if m.Src != "" {
        b = protowire.AppendTag(b, fieldRelaySrc, protowire.BytesType)
        b = protowire.AppendString(b, m.Src)
    }
    switch v := m.Msg.(type) {
    case nil:
    case Gps:
        b = protowire.AppendTag(b, fieldRelayGps, protowire.BytesType)
        b = protowire.AppendBytes(b, appendGps(nil, v))
    case Relay:
        sub, err := appendRelay(nil, v)
        if err != nil { return nil, err }
        b = protowire.AppendTag(b, fieldRelayRelay, protowire.BytesType)
        b = protowire.AppendBytes(b, sub)
    default:
        return nil, fmt.Errorf("%w: relay cannot carry %T", ErrUnsupported, m.Msg)
    }
    return b, nil
}

func parseBeacon(b []byte) (BeaconPresent, error) {
    var m BeaconPresent
    err := walk(b, func(num protowire.Number, typ protowire.Type, _ []byte, x uint64) error {
        if num == fieldBeaconTimestamp {
            if typ != protowire.VarintType { return wireTypeErr("beacon_present.timestamp", typ) }
            m.Timestamp = int64(x)
        }
        return nil
    })
    return m, err
}

func parseGps(b []byte) (Gps, error) {
    var m Gps
    err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
        switch num {
        case fieldGpsLatitude:
            if typ != protowire.Fixed64Type { return wireTypeErr("gps.latitude", typ) }
            m.Latitude = math.Float64frombits(x)
        case fieldGpsLongitude:
            if typ != protowire.Fixed64Type { return wireTypeErr("gps.longitude", typ) }
            m.Longitude = math.Float64frombits(x)
        case fieldGpsSatellites:
            if typ != protowire.VarintType { return wireTypeErr("gps.satellites", typ) }
            m.Satellites = int32(x)
        case fieldGpsFixQuality:
            if typ != protowire.VarintType { return wireTypeErr("gps.fix_quality", typ) }
            m.FixQuality = int32(x)
        case fieldGpsHDOP:
            if typ != protowire.Fixed32Type { return wireTypeErr("gps.hdop", typ) }
            m.HDOP = math.Float32frombits(uint32(x))
        case fieldGpsUTC:
            if typ != protowire.VarintType { return wireTypeErr("gps.utc", typ) }
            m.UTC = int32(x)
        case fieldGpsUID:
            if typ != protowire.BytesType { return wireTypeErr("gps.uid", typ) }
            m.UID = string(v)
        case fieldGpsCharging:
            if typ != protowire.VarintType { return wireTypeErr("gps.charging", typ) }
            m.Charging = protowire.DecodeBool(x)
        case fieldGpsBatteryVoltage:
            if typ != protowire.Fixed32Type { return wireTypeErr("gps.battery_voltage", typ) }
            m.BatteryVoltage = math.Float32frombits(uint32(x))
        }
        return nil
    })
    return m, err
}

func parseRelay(b []byte) (Relay, error) {
    var m Relay
    err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
        switch num {
        case fieldRelayTimestamp:
            if typ != protowire.VarintType { return wireTypeErr("relay.timestamp", typ) }
            m.Timestamp = int64(x)
        case fieldRelaySrc:
            if typ != protowire.BytesType { return wireTypeErr("relay.src", typ) }
            m.Src = string(v)
        case fieldRelayGps:
            if typ != protowire.BytesType { return wireTypeErr("relay.gps", typ) }
            g, err := parseGps(v)
            if err != nil { return err }
            m.Msg = g
        case fieldRelayRelay:
            if typ != protowire.BytesType { return wireTypeErr("relay.relay", typ) }
            r, err := parseRelay(v)
            if err != nil { return err }
            m.Msg = r
        }
        return nil
    })
    return m, err
}

// walk iterates over the fields of a serialized message. For length-delimited
// fields v holds the bytes; for varint and fixed fields x holds the value.
// Unknown fields are handed to fn as well and ignored there.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
    for len(b) > 0 {
        num, typ, n := protowire.ConsumeTag(b)
        if n < 0 { return fmt.Errorf("%w: tag: %v", ErrMalformed, protowire.ParseError(n)) }
        b = b[n:]
        var (
            v []byte
            x uint64
        )
        switch typ {
        case protowire.VarintType:
            x, n = protowire.ConsumeVarint(b)
        case protowire.Fixed32Type:
            var x32 uint32
            x32, n = protowire.ConsumeFixed32(b)
            x = uint64(x32)
        case protowire.Fixed64Type:
            x, n = protowire.ConsumeFixed64(b)
        case protowire.BytesType:
            v, n = protowire.ConsumeBytes(b)
        default:
            n = protowire.ConsumeFieldValue(num, typ, b)
        }
        if n < 0 { return fmt.Errorf("%w: field %d: %v", ErrMalformed, num, protowire.ParseError(n)) }
        b = b[n:]
        if err := fn(num, typ, v, x); err != nil { return err }
    }
    return nil
}

func wireTypeErr(field string, typ protowire.Type) error {
    return fmt.Errorf("%w: %s: unexpected wire type %d", ErrMalformed, field, typ)
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
    if v == 0 { return b }
    b = protowire.AppendTag(b, num, protowire.Fixed64Type)
    return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
    if v == 0 { return b }
    b = protowire.AppendTag(b, num, protowire.Fixed32Type)
    return protowire.AppendFixed32(b, math.Float32bits(v))
}

func appendInt32(b []byte, num protowire.Number, v int32) []byte {
    if v == 0 { return b }
    b = protowire.AppendTag(b, num, protowire.VarintType)
    return protowire.AppendVarint(b, uint64(int64(v)))
}
