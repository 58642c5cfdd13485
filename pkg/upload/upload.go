// Package upload posts gateway locations to the backend:
//
//  POST <endpoint>/api/v1/source/<src>/location
package upload

import (
    "bytes"
    "context"
    "errors"
    "fmt"
    "io"
    "net/http"
    "net/url"
    "strconv"
    "strings"
    "time"

    "go.uber.org/zap"

    "mortymesh/pkg/protocol"
    "mortymesh/pkg/protocol/codec"
)

// Location is the upload body.
type Location struct {
    Latitude       float64 `json:"latitude"`
    Longitude      float64 `json:"longitude"`
    HDOP           float32 `json:"hdop"`
    Timestamp      int64   `json:"timestamp"`
    UTC            int32   `json:"utc"`
    FixQuality     int32   `json:"fix_quality"`
    Satellites     int32   `json:"satellites"`
    UID            string  `json:"uid"`
    Charging       bool    `json:"charging"`
    BatteryVoltage float32 `json:"battery_voltage"`
}

// FromRelay builds the body for a Gps sample carried by a relay envelope.
// The relay's timestamp is the time the beacon heard the sample.
func FromRelay(r protocol.Relay, g protocol.Gps) Location {
    return Location{
        Latitude:       g.Latitude,
        Longitude:      g.Longitude,
        HDOP:           g.HDOP,
        Timestamp:      r.Timestamp,
        UTC:            g.UTC,
        FixQuality:     g.FixQuality,
        Satellites:     g.Satellites,
        UID:            g.UID,
        Charging:       g.Charging,
        BatteryVoltage: g.BatteryVoltage,
    }
}

// StatusError reports a non-2xx response.
type StatusError struct {
    Code int
    Body string
}

func (e *StatusError) Error() string { return fmt.Sprintf("upload: backend returned %d: %s", e.Code, e.Body) }

// Client posts locations with a per-request timeout.
type Client struct {
    base    *url.URL
    http    *http.Client
    codec   codec.Codec
    timeout time.Duration
}

// NewClient returns a client for the backend at endpoint (scheme and host,
// optionally a path prefix). c selects the body encoding.
func NewClient(endpoint string, c codec.Codec, timeout time.Duration, hc *http.Client) (*Client, error) {
    u, err := url.Parse(strings.TrimRight(endpoint, "/"))
    if err != nil { return nil, fmt.Errorf("upload: endpoint: %w", err) }
    if u.Scheme == "" || u.Host == "" { return nil, fmt.Errorf("upload: endpoint %q needs scheme and host", endpoint) }
    if c == nil { c = codec.JSON() }
    if hc == nil { hc = &http.Client{} }
    if timeout <= 0 { timeout = 10 * time.Second }
    return &Client{base: u, http: hc, codec: c, timeout: timeout}, nil
}

// LocationURL returns the POST target for src.
func (c *Client) LocationURL(src string) string {
    u := *c.base
    u.Path = c.base.Path + "/api/v1/source/" + src + "/location"
    u.RawPath = c.base.EscapedPath() + "/api/v1/source/" + url.PathEscape(src) + "/location"
    return u.String()
}

// PostLocation uploads loc on behalf of the relay that heard it.
func (c *Client) PostLocation(ctx context.Context, src string, loc Location) error {
    if src == "" { return errors.New("upload: empty source") }
    body, err := c.codec.Marshal(loc)
    if err != nil { return fmt.Errorf("upload: encode: %w", err) }

    ctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()
    req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.LocationURL(src), bytes.NewReader(body))
    if err != nil { return fmt.Errorf("upload: request: %w", err) }
    req.Header.Set("Content-Type", c.codec.ContentType())
    req.Header.Set("Content-Length", strconv.Itoa(len(body)))
    req.ContentLength = int64(len(body))

    resp, err := c.http.Do(req)
    if err != nil { return fmt.Errorf("upload: post: %w", err) }
    defer resp.Body.Close()
    rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
    zap.L().Debug("upload response", zap.Int("status", resp.StatusCode), zap.ByteString("body", rb))
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(rb))}
    }
    return nil
}
