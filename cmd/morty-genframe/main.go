package main

import (
    "encoding/hex"
    "flag"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"

    "mortymesh/pkg/protocol"
    "mortymesh/pkg/serialbridge"
)

// sampleGps is a fix at 12:35:19 UTC; UTC is seconds since midnight.
var sampleGps = protocol.Gps{
    Latitude: 48.1173, Longitude: 11.516667, Satellites: 8, FixQuality: 1, HDOP: 0.9,
    UTC: 12*3600 + 35*60 + 19, UID: "abc123", Charging: false, BatteryVoltage: 3.92,
}

func main() {
    outDir := flag.String("out", "testdata/frame", "output directory for binary frames and serial lines")
    decode := flag.String("decode", "", "decode a serial line (MORTYGPS...) or a hex frame and exit")
    flag.Parse()

    if *decode != "" {
        if err := decodeOne(*decode); err != nil { log.Fatal(err) }
        return
    }
    if err := os.MkdirAll(*outDir, 0o755); err != nil { log.Fatal(err) }

    gps := sampleGps
    samples := []struct {
        name string
        msg  protocol.Message
    }{
        {"gps_fix", gps},
        {"gps_nofix", protocol.Gps{UID: "def456", BatteryVoltage: 4.1, Charging: true}},
        {"relay_gps", protocol.Relay{Timestamp: 1700000000, Src: "02:a1:b2:c3:d4:e5", Msg: gps}},
        {"beacon_present", protocol.BeaconPresent{Timestamp: 1700000000}},
        {"empty", nil},
    }

    var lines []string
    for _, s := range samples {
        frame := protocol.MustEncode(s.msg)
        writeOut(*outDir, s.name+".bin", frame)
        lines = append(lines, string(serialbridge.EncodeLine(frame)))
    }
    p := filepath.Join(*outDir, "serial_lines.txt")
    if err := os.WriteFile(p, []byte(strings.Join(lines, "")), 0o644); err != nil { log.Fatal(err) }

    fmt.Println("Generated frames in", *outDir)
}

func decodeOne(s string) error {
    var frame []byte
    var err error
    if strings.HasPrefix(s, serialbridge.Header) {
        frame, err = serialbridge.DecodeLine([]byte(s))
    } else {
        frame, err = hex.DecodeString(strings.ReplaceAll(s, " ", ""))
    }
    if err != nil { return err }
    fmt.Printf("frame   %s\n", shortHex(frame, 128))
    msg, err := protocol.Decode(frame)
    if err != nil { return err }
    fmt.Printf("type    %s\n", protocol.TypeOf(msg))
    fmt.Printf("message %+v\n", msg)
    return nil
}

func writeOut(dir, name string, b []byte) {
    p := filepath.Join(dir, name)
    if err := os.WriteFile(p, b, 0o644); err != nil { log.Fatal(err) }
    fmt.Printf("%-20s %5d bytes  head: %s\n", name, len(b), shortHex(b, 64))
}

func shortHex(b []byte, n int) string {
    if len(b) == 0 { return "" }
    if n > len(b) { n = len(b) }
    enc := hex.EncodeToString(b[:n])
    if len(b) > n { enc += "..." }
    var out []string
    for i := 0; i < len(enc); i += 4 {
        j := i + 4
        if j > len(enc) { j = len(enc) }
        out = append(out, enc[i:j])
    }
    return strings.Join(out, " ")
}
