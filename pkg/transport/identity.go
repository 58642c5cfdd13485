package transport

import (
    "encoding/hex"
    "fmt"
    "strings"

    "github.com/cespare/xxhash/v2"
)

// Addr is a 6-byte radio (MAC style) address.
type Addr [6]byte

// BroadcastAddr is the single logical destination of every send.
var BroadcastAddr = Addr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// String formats the address as lowercase hex octets joined by ':'. This is
// the form carried in Relay.src.
func (a Addr) String() string {
    var sb strings.Builder
    sb.Grow(17)
    for i, b := range a {
        if i > 0 { sb.WriteByte(':') }
        sb.WriteString(hex.EncodeToString([]byte{b}))
    }
    return sb.String()
}

func (a Addr) IsBroadcast() bool { return a == BroadcastAddr }

// ParseAddr parses "aa:bb:cc:dd:ee:ff" (also accepts '-' separators).
func ParseAddr(s string) (Addr, error) {
    var a Addr
    parts := strings.FieldsFunc(strings.TrimSpace(s), func(r rune) bool { return r == ':' || r == '-' })
    if len(parts) != len(a) { return a, fmt.Errorf("transport: bad address %q", s) }
    for i, p := range parts {
        b, err := hex.DecodeString(p)
        if err != nil || len(b) != 1 { return a, fmt.Errorf("transport: bad address %q", s) }
        a[i] = b[0]
    }
    return a, nil
}

// AddrFromName derives a stable locally administered unicast address from a
// node name, for radios without a burned-in address.
func AddrFromName(name string) Addr {
    var a Addr
    h := xxhash.Sum64String(name)
    for i := range a { a[i] = byte(h >> (8 * i)) }
    a[0] = (a[0] | 0x02) &^ 0x01
    return a
}
