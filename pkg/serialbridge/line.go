// Package serialbridge moves frames between a beacon and the gateway over a
// byte link (UART, TCP, pipe) as text lines:
//
//  "MORTYGPS" + base64(frame) + "\n"
package serialbridge

import (
    "bytes"
    "encoding/base64"
    "errors"
    "fmt"
)

// Header prefixes every line.
const Header = "MORTYGPS"

// ErrFraming reports a line without the header or with invalid base64.
var ErrFraming = errors.New("serialbridge: bad line framing")

var header = []byte(Header)

// EncodeLine returns the line carrying frame, including the trailing newline.
func EncodeLine(frame []byte) []byte {
    out := make([]byte, 0, len(header)+base64.StdEncoding.EncodedLen(len(frame))+1)
    out = append(out, header...)
    out = base64.StdEncoding.AppendEncode(out, frame)
    return append(out, '\n')
}

// DecodeLine extracts the frame from line. Whitespace around the base64 body,
// including the line terminator, is ignored.
func DecodeLine(line []byte) ([]byte, error) {
    line = bytes.TrimRight(line, "\r\n")
    if !bytes.HasPrefix(line, header) {
        return nil, fmt.Errorf("%w: missing %s header", ErrFraming, Header)
    }
    body := bytes.TrimSpace(line[len(header):])
    frame := make([]byte, base64.StdEncoding.DecodedLen(len(body)))
    n, err := base64.StdEncoding.Decode(frame, body)
    if err != nil { return nil, fmt.Errorf("%w: %v", ErrFraming, err) }
    return frame[:n], nil
}
