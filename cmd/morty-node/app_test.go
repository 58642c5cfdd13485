package main

import (
    "bytes"
    "os"
    "path/filepath"
    "strings"
    "testing"

    "gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
    t.Helper()
    p := filepath.Join(t.TempDir(), "morty.yaml")
    if err := os.WriteFile(p, []byte(body), 0o644); err != nil { t.Fatal(err) }
    return p
}

func TestParseFlags(t *testing.T) {
    opts, err := ParseFlags([]string{"-role", "beacon", "-config", "x.yaml", "-validate"}, &bytes.Buffer{})
    if err != nil { t.Fatalf("parse: %v", err) }
    if opts.Role != "beacon" || opts.ConfigPath != "x.yaml" || !opts.Validate { t.Fatalf("opts %+v", opts) }
    if _, err := ParseFlags([]string{"-bogus"}, &bytes.Buffer{}); err == nil { t.Fatalf("unknown flag accepted") }
}

func TestValidatePrintsEffectiveConfig(t *testing.T) {
    p := writeConfig(t, "node_name: beacon-3\nbeacon:\n  presence_interval: 30s\n")
    var out, errOut bytes.Buffer
    if code := run(Options{ConfigPath: p, Validate: true}, &out, &errOut); code != 0 { t.Fatalf("code %d: %s", code, errOut.String()) }
    var got map[string]any
    if err := yaml.Unmarshal(out.Bytes(), &got); err != nil { t.Fatalf("yaml: %v\n%s", err, out.String()) }
    if got["node_name"] != "beacon-3" { t.Fatalf("node_name = %v", got["node_name"]) }
    if !strings.Contains(out.String(), "presence_interval: 30s") { t.Fatalf("output:\n%s", out.String()) }
}

func TestRunRejectsBadRole(t *testing.T) {
    p := writeConfig(t, "node_name: x\n")
    var out, errOut bytes.Buffer
    if code := run(Options{ConfigPath: p, Role: "router"}, &out, &errOut); code != 2 { t.Fatalf("code %d", code) }
    if code := run(Options{ConfigPath: p}, &out, &errOut); code != 2 { t.Fatalf("missing role: code %d", code) }
}

func TestGatewayRoleNeedsEndpoint(t *testing.T) {
    p := writeConfig(t, "node_name: gw\n")
    var out, errOut bytes.Buffer
    if code := run(Options{ConfigPath: p, Role: "gateway", Validate: true}, &out, &errOut); code != 1 { t.Fatalf("code %d", code) }
    if !strings.Contains(errOut.String(), "gateway.endpoint") { t.Fatalf("stderr: %s", errOut.String()) }
}

func TestBadConfigFails(t *testing.T) {
    p := writeConfig(t, "radio:\n  queue_policy: lifo\n")
    var out, errOut bytes.Buffer
    if code := run(Options{ConfigPath: p, Role: "beacon"}, &out, &errOut); code != 1 { t.Fatalf("code %d", code) }
}
