package main

import (
    "context"
    "errors"
    "fmt"
    "io"
    "os/signal"
    "syscall"

    "go.uber.org/zap"
    "gopkg.in/yaml.v3"

    "mortymesh/pkg/config"
    "mortymesh/pkg/node"
    "mortymesh/pkg/observability"
    "mortymesh/pkg/serialbridge"
)

// run is the main entry point after CLI parsing.
func run(opts Options, out, errOut io.Writer) int {
    if opts.ListPorts {
        ports, err := serialbridge.Ports()
        if err != nil {
            fmt.Fprintf(errOut, "failed to list serial ports: %v\n", err)
            return 1
        }
        for _, p := range ports { fmt.Fprintln(out, p) }
        return 0
    }

    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        fmt.Fprintf(errOut, "failed to load config: %v\n", err)
        return 1
    }

    if opts.Validate {
        if opts.Role != "" {
            if code := checkRole(cfg, opts.Role, errOut); code != 0 { return code }
        }
        enc := yaml.NewEncoder(out)
        enc.SetIndent(2)
        if err := enc.Encode(cfg); err != nil {
            fmt.Fprintf(errOut, "failed to render config: %v\n", err)
            return 1
        }
        _ = enc.Close()
        return 0
    }

    if code := checkRole(cfg, opts.Role, errOut); code != 0 { return code }

    logger, err := observability.SetupLogger(cfg.Log, zap.String("node", cfg.NodeName), zap.String("role", opts.Role))
    if err != nil {
        fmt.Fprintf(errOut, "failed to setup logger: %v\n", err)
        return 1
    }
    defer func() { _ = logger.Sync() }()

    zap.L().Info("morty-node started")
    zap.L().Info("effective configuration", zap.Any("config", cfg))

    ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer stop()

    n := node.New(cfg)
    if cfg.Metrics.Addr != "" {
        if _, _, err := n.ServeMetrics(ctx, cfg.Metrics.Addr); err != nil {
            zap.L().Error("metrics server", zap.Error(err))
            return 1
        }
    }

    err = n.Run(ctx, opts.Role)
    switch {
    case err == nil, errors.Is(err, context.Canceled):
        zap.L().Info("morty-node stopped")
        return 0
    default:
        zap.L().Error("node failed", zap.Error(err))
        return 1
    }
}

func checkRole(cfg *config.Config, role string, errOut io.Writer) int {
    r, err := node.ParseRole(role)
    if err != nil {
        fmt.Fprintf(errOut, "%v (use -role gps|beacon|gateway)\n", err)
        return 2
    }
    if r == node.RoleGateway {
        if err := cfg.RequireGateway(); err != nil {
            fmt.Fprintf(errOut, "%v\n", err)
            return 1
        }
    }
    return 0
}
