//go:build windows

package serialbridge

import (
    "context"
    "fmt"
    "io"

    "github.com/Microsoft/go-winio"
    "go.uber.org/zap"
)

func dialPipe(ctx context.Context, name string) (io.ReadWriteCloser, error) {
    c, err := winio.DialPipeContext(ctx, name)
    if err != nil { return nil, fmt.Errorf("serialbridge: dial pipe %s: %w", name, err) }
    return c, nil
}

func acceptPipe(ctx context.Context, name string) (io.ReadWriteCloser, error) {
    l, err := winio.ListenPipe(name, nil)
    if err != nil { return nil, fmt.Errorf("serialbridge: listen pipe %s: %w", name, err) }
    defer l.Close()
    zap.L().Info("waiting for bridge peer", zap.String("pipe", name))
    stop := context.AfterFunc(ctx, func() { _ = l.Close() })
    defer stop()
    c, err := l.Accept()
    if err != nil {
        if ctx.Err() != nil { return nil, ctx.Err() }
        return nil, fmt.Errorf("serialbridge: accept pipe: %w", err)
    }
    return c, nil
}
