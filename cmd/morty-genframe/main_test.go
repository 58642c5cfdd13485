package main

import (
    "testing"

    "mortymesh/pkg/protocol"
    "mortymesh/pkg/serialbridge"
)

func TestSampleGpsUTCIsSecondsSinceMidnight(t *testing.T) {
    if sampleGps.UTC != 45319 { t.Fatalf("utc = %d", sampleGps.UTC) }
    if sampleGps.UTC < 0 || sampleGps.UTC > 86399 { t.Fatalf("utc out of day range: %d", sampleGps.UTC) }
}

func TestDecodeOneAcceptsLine(t *testing.T) {
    line := serialbridge.EncodeLine(protocol.MustEncode(sampleGps))
    if err := decodeOne(string(line[:len(line)-1])); err != nil { t.Fatalf("decode: %v", err) }
    if err := decodeOne("zz"); err == nil { t.Fatalf("bad hex accepted") }
}
