// Package nmea turns the byte stream of a GPS module into fix / no-fix
// readings. Only GGA sentences matter; everything else, including sentences
// with bad checksums, is skipped silently and the stream resynchronizes on
// the next '$'.
package nmea

import (
    "bufio"
    "bytes"
    "errors"
    "io"
    "strconv"
    "strings"

    gonmea "github.com/adrianmo/go-nmea"
)

// maxSentence bounds a sentence; NMEA 0183 allows 82 characters.
const maxSentence = 256

// Reading is a decoded GGA sentence. When Fix is false only UTC may be set.
type Reading struct {
    Fix        bool
    Latitude   float64
    Longitude  float64
    Satellites int32
    FixQuality int32
    HDOP       float32
    UTC        int32 // seconds since midnight
}

// ErrNotGGA is returned by ParseGGA for valid sentences of another type.
var ErrNotGGA = errors.New("nmea: not a GGA sentence")

// ParseGGA parses one sentence.
func ParseGGA(line string) (Reading, error) {
    line = strings.TrimSpace(line)
    s, err := gonmea.Parse(line)
    if err != nil {
        // some receivers leave position fields empty while searching,
        // which the parser rejects; a checksummed GGA with quality 0 is still "no fix"
        if r, ok := noFix(line); ok { return r, nil }
        return Reading{}, err
    }
    if s.DataType() != gonmea.TypeGGA { return Reading{}, ErrNotGGA }
    gga, ok := s.(gonmea.GGA)
    if !ok { return Reading{}, ErrNotGGA }

    var r Reading
    if gga.Time.Valid {
        r.UTC = int32(gga.Time.Hour*3600 + gga.Time.Minute*60 + gga.Time.Second)
    }
    q, _ := strconv.Atoi(gga.FixQuality)
    if gga.FixQuality == "" || gga.FixQuality == gonmea.Invalid || q <= 0 { return r, nil }
    r.Fix = true
    r.Latitude = gga.Latitude
    r.Longitude = gga.Longitude
    r.Satellites = int32(gga.NumSatellites)
    r.FixQuality = int32(q)
    r.HDOP = float32(gga.HDOP)
    return r, nil
}

func noFix(line string) (Reading, bool) {
    star := strings.LastIndexByte(line, '*')
    if !strings.HasPrefix(line, "$") || star < 0 || len(line) < star+3 { return Reading{}, false }
    body := line[1:star]
    var sum byte
    for i := 0; i < len(body); i++ { sum ^= body[i] }
    want, err := strconv.ParseUint(line[star+1:star+3], 16, 8)
    if err != nil || byte(want) != sum { return Reading{}, false }
    f := strings.Split(body, ",")
    if len(f) < 7 || !strings.HasSuffix(f[0], "GGA") || (f[6] != "" && f[6] != "0") { return Reading{}, false }
    var r Reading
    if len(f[1]) >= 6 {
        h, e1 := strconv.Atoi(f[1][0:2])
        m, e2 := strconv.Atoi(f[1][2:4])
        sec, e3 := strconv.Atoi(f[1][4:6])
        if e1 == nil && e2 == nil && e3 == nil { r.UTC = int32(h*3600 + m*60 + sec) }
    }
    return r, true
}

// Stream reads GGA readings from a sensor byte source.
type Stream struct {
    br *bufio.Reader
}

func NewStream(r io.Reader) *Stream { return &Stream{br: bufio.NewReaderSize(r, maxSentence)} }

// Next blocks until the next GGA sentence and returns its reading. Only
// errors of the underlying reader are returned.
func (s *Stream) Next() (Reading, error) {
    for {
        line, err := s.br.ReadSlice('\n')
        if errors.Is(err, bufio.ErrBufferFull) { continue }
        if len(line) > 0 {
            if i := bytes.LastIndexByte(line, '$'); i >= 0 {
                if r, perr := ParseGGA(string(line[i:])); perr == nil { return r, nil }
            }
        }
        if err != nil { return Reading{}, err }
    }
}
