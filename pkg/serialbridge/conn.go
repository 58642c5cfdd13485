package serialbridge

import (
    "bufio"
    "errors"
    "fmt"
    "io"
    "sync"

    "mortymesh/pkg/protocol"
)

// MaxLineLen bounds a single line; longer input is discarded up to the next
// newline and reported as a framing error.
const MaxLineLen = 1024

// Writer emits frames as lines. Safe for concurrent use.
type Writer struct {
    mu sync.Mutex
    bw *bufio.Writer
}

func NewWriter(w io.Writer) *Writer { return &Writer{bw: bufio.NewWriter(w)} }

// WriteFrame writes one line and flushes it.
func (w *Writer) WriteFrame(frame []byte) error {
    w.mu.Lock(); defer w.mu.Unlock()
    if _, err := w.bw.Write(EncodeLine(frame)); err != nil { return err }
    return w.bw.Flush()
}

// WriteMessage encodes msg and writes it as one line.
func (w *Writer) WriteMessage(msg protocol.Message) error {
    frame, err := protocol.Encode(msg)
    if err != nil { return err }
    return w.WriteFrame(frame)
}

// Reader splits a byte stream into frames. Exactly one goroutine may read.
type Reader struct {
    br *bufio.Reader
}

func NewReader(r io.Reader) *Reader { return &Reader{br: bufio.NewReaderSize(r, MaxLineLen)} }

// ReadFrame returns the next frame. Errors wrapping ErrFraming concern only
// the offending line and the caller may keep reading; any other error comes
// from the underlying stream. A final unterminated line is still decoded.
func (r *Reader) ReadFrame() ([]byte, error) {
    line, err := r.br.ReadSlice('\n')
    switch {
    case errors.Is(err, bufio.ErrBufferFull):
        if derr := r.discardLine(); derr != nil && !errors.Is(derr, io.EOF) { return nil, derr }
        return nil, fmt.Errorf("%w: line longer than %d bytes", ErrFraming, MaxLineLen)
    case err != nil && len(line) == 0:
        return nil, err
    }
    if len(line) == 0 || (len(line) == 1 && line[0] == '\n') {
        return nil, fmt.Errorf("%w: empty line", ErrFraming)
    }
    return DecodeLine(line)
}

// ReadMessage reads the next frame and decodes it. Framing and decode errors
// are per-line.
func (r *Reader) ReadMessage() (protocol.Message, error) {
    frame, err := r.ReadFrame()
    if err != nil { return nil, err }
    return protocol.Decode(frame)
}

func (r *Reader) discardLine() error {
    for {
        _, err := r.br.ReadSlice('\n')
        if errors.Is(err, bufio.ErrBufferFull) { continue }
        return err
    }
}

// IsLineError reports whether err concerns a single line rather than the link.
func IsLineError(err error) bool {
    return errors.Is(err, ErrFraming) || errors.Is(err, protocol.ErrMalformed) ||
        errors.Is(err, protocol.ErrEmptyMessage) || protocol.IsCRCMismatch(err)
}
