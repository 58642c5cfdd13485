package nmea

import (
    "bufio"
    "context"
    "io"
    "os"
    "time"
)

// Replay streams a recorded NMEA log as if it came from a GPS module, one
// line every delay. With loop set the file restarts at EOF. Closing the
// returned reader (or cancelling ctx) stops the replay.
func Replay(ctx context.Context, path string, delay time.Duration, loop bool) (io.ReadCloser, error) {
    f, err := os.Open(path)
    if err != nil { return nil, err }
    pr, pw := io.Pipe()
    ctx, cancel := context.WithCancel(ctx)
    go func() {
        defer f.Close()
        defer cancel()
        for {
            sc := bufio.NewScanner(f)
            for sc.Scan() {
                // sc.Bytes aliases the scanner buffer, so copy before appending
                line := make([]byte, 0, len(sc.Bytes())+2)
                line = append(append(line, sc.Bytes()...), '\r', '\n')
                if _, err := pw.Write(line); err != nil { return }
                if delay > 0 {
                    select {
                    case <-ctx.Done():
                        _ = pw.CloseWithError(ctx.Err())
                        return
                    case <-time.After(delay):
                    }
                }
            }
            if err := sc.Err(); err != nil { _ = pw.CloseWithError(err); return }
            if !loop { _ = pw.Close(); return }
            if _, err := f.Seek(0, io.SeekStart); err != nil { _ = pw.CloseWithError(err); return }
        }
    }()
    return &replay{PipeReader: pr, cancel: cancel}, nil
}

type replay struct {
    *io.PipeReader
    cancel context.CancelFunc
}

func (r *replay) Close() error { r.cancel(); return r.PipeReader.Close() }
