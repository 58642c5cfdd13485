package protocol

// Message is one of BeaconPresent, Gps or Relay.
type Message interface {
    Type() MsgType
    isMessage()
}

// RelayPayload is a message that may be carried inside a Relay: Gps or Relay.
type RelayPayload interface {
    Message
    isRelayPayload()
}

// BeaconPresent announces that a relay beacon is alive.
type BeaconPresent struct {
    Timestamp int64
}

// Gps is a single sample produced by a source. A sample without a satellite
// fix keeps only UID, Charging and BatteryVoltage.
type Gps struct {
    Latitude       float64
    Longitude      float64
    Satellites     int32
    FixQuality     int32
    HDOP           float32
    UTC            int32 // seconds since midnight UTC
    UID            string
    Charging       bool
    BatteryVoltage float32
}

// Relay records which beacon re-transmitted Msg and when. Msg is nil when the
// envelope arrived without an inner message.
type Relay struct {
    Timestamp int64
    Src       string
    Msg       RelayPayload
}

func (BeaconPresent) Type() MsgType { return MsgBeaconPresent }
func (Gps) Type() MsgType           { return MsgGps }
func (Relay) Type() MsgType         { return MsgRelay }

func (BeaconPresent) isMessage() {}
func (Gps) isMessage()           {}
func (Relay) isMessage()         {}

func (Gps) isRelayPayload()   {}
func (Relay) isRelayPayload() {}

// HasFix reports whether the sample carries a position.
func (g Gps) HasFix() bool { return g.FixQuality > 0 || g.Satellites > 0 || g.Latitude != 0 || g.Longitude != 0 }

// TypeOf returns the frame type for m; nil maps to MsgNone.
func TypeOf(m Message) MsgType {
    if m == nil { return MsgNone }
    return m.Type()
}
