package codec

import (
    "fmt"
    "strings"

    "mortymesh/pkg/protocol"
)

// Codec defines a simple interface for marshaling typed messages.
// Used to serialize upload bodies; implementations should be deterministic.
type Codec interface {
    ContentType() string
    Marshal(v any) ([]byte, error)
    Unmarshal(data []byte, v any) error
}

// Registry maps format/content type aliases to codecs.
type Registry struct { byType map[string]Codec }

// NewRegistry constructs a registry preloaded with JSON.
// CBOR can be added explicitly via Register(CBOR()).
func NewRegistry() *Registry {
    r := &Registry{byType: make(map[string]Codec)}
    r.Register(JSON())
    return r
}

// Register adds a codec.
func (r *Registry) Register(c Codec) { r.byType[c.ContentType()] = c }

// Get returns a codec by content type, or nil.
func (r *Registry) Get(contentType string) Codec { return r.byType[contentType] }

// ForFormat resolves a short format name (json, cbor) or a content type.
func (r *Registry) ForFormat(format string) (Codec, error) {
    switch strings.ToLower(strings.TrimSpace(format)) {
    case "", "json":
        format = protocol.ContentJSON
    case "cbor":
        format = protocol.ContentCBOR
    }
    if c := r.Get(format); c != nil { return c, nil }
    return nil, fmt.Errorf("codec: unknown format %q", format)
}

// Default returns a registry with JSON and CBOR registered.
func Default() (*Registry, error) {
    r := NewRegistry()
    c, err := CBOR()
    if err != nil { return nil, fmt.Errorf("codec: cbor: %w", err) }
    r.Register(c)
    return r, nil
}
