//go:build !windows

package serialbridge

import (
    "context"
    "fmt"
    "io"
)

func dialPipe(context.Context, string) (io.ReadWriteCloser, error) {
    return nil, fmt.Errorf("serialbridge: pipe link is not supported on this platform")
}

func acceptPipe(context.Context, string) (io.ReadWriteCloser, error) {
    return nil, fmt.Errorf("serialbridge: pipe link is not supported on this platform")
}
