package serialbridge

import (
    "context"
    "errors"
    "fmt"
    "io"
    "net"
    "os"
    "strings"

    "go.bug.st/serial"
    "go.uber.org/zap"
)

// LinkKind selects how the bridge bytes are carried.
type LinkKind string

const (
    LinkSerial    LinkKind = "serial"     // UART device, e.g. /dev/ttyUSB0 or COM3
    LinkTCP       LinkKind = "tcp"        // dial host:port
    LinkTCPListen LinkKind = "tcp-listen" // accept one connection on host:port
    LinkPipe       LinkKind = "pipe"        // Windows named pipe, e.g. \\.\pipe\morty
    LinkPipeListen LinkKind = "pipe-listen" // serve one Windows named pipe client
    LinkStdio     LinkKind = "stdio"      // process stdin/stdout
)

var ErrUnknownLink = errors.New("serialbridge: unknown link kind")

// LinkConfig describes the byte link.
type LinkConfig struct {
    Kind    string
    Device  string
    Baud    int
    Address string
}

// Open returns the byte link described by cfg. For tcp-listen it blocks until
// a peer connects or ctx is done.
func Open(ctx context.Context, cfg LinkConfig) (io.ReadWriteCloser, error) {
    switch LinkKind(strings.ToLower(strings.TrimSpace(cfg.Kind))) {
    case LinkSerial:
        return OpenSerial(cfg.Device, cfg.Baud)
    case LinkTCP:
        d := &net.Dialer{}
        c, err := d.DialContext(ctx, "tcp", cfg.Address)
        if err != nil { return nil, fmt.Errorf("serialbridge: dial %s: %w", cfg.Address, err) }
        return c, nil
    case LinkTCPListen:
        return acceptOne(ctx, cfg.Address)
    case LinkPipe:
        return dialPipe(ctx, cfg.Address)
    case LinkPipeListen:
        return acceptPipe(ctx, cfg.Address)
    case LinkStdio:
        return stdio{}, nil
    default:
        return nil, fmt.Errorf("%w: %q", ErrUnknownLink, cfg.Kind)
    }
}

// OpenSerial opens a UART at baud 8N1.
func OpenSerial(device string, baud int) (serial.Port, error) {
    mode := &serial.Mode{BaudRate: baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
    p, err := serial.Open(device, mode)
    if err != nil { return nil, fmt.Errorf("serialbridge: open %s: %w", device, err) }
    zap.L().Info("serial port opened", zap.String("device", device), zap.Int("baud", baud))
    return p, nil
}

// Ports lists the serial ports visible to the host.
func Ports() ([]string, error) { return serial.GetPortsList() }

func acceptOne(ctx context.Context, address string) (net.Conn, error) {
    var lc net.ListenConfig
    l, err := lc.Listen(ctx, "tcp", address)
    if err != nil { return nil, fmt.Errorf("serialbridge: listen %s: %w", address, err) }
    defer l.Close()
    zap.L().Info("waiting for bridge peer", zap.String("addr", l.Addr().String()))
    stop := context.AfterFunc(ctx, func() { _ = l.Close() })
    defer stop()
    c, err := l.Accept()
    if err != nil {
        if ctx.Err() != nil { return nil, ctx.Err() }
        return nil, fmt.Errorf("serialbridge: accept: %w", err)
    }
    zap.L().Info("bridge peer connected", zap.String("remote", c.RemoteAddr().String()))
    return c, nil
}

type stdio struct{}

func (stdio) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdio) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdio) Close() error                { return nil }
