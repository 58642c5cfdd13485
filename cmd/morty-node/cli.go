package main

import (
    "flag"
    "io"
)

// Options holds CLI options for the node.
type Options struct {
    ConfigPath string
    Role       string
    // Validate prints the effective configuration and exits
    Validate  bool
    ListPorts bool
}

// ParseFlags parses CLI flags from args and returns Options.
func ParseFlags(args []string, errOut io.Writer) (Options, error) {
    fs := flag.NewFlagSet("morty-node", flag.ContinueOnError)
    fs.SetOutput(errOut)
    var opts Options
    fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file")
    fs.StringVar(&opts.Role, "role", "", "Node role: gps, beacon or gateway")
    fs.BoolVar(&opts.Validate, "validate", false, "Load and validate the config, print it as YAML and exit")
    fs.BoolVar(&opts.ListPorts, "list-ports", false, "List serial ports and exit")
    err := fs.Parse(args)
    return opts, err
}
