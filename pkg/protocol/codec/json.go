package codec

import (
    "bytes"
    "encoding/json"

    "mortymesh/pkg/protocol"
)

type jsonCodec struct{}

// JSON returns the upload body codec the backend expects by default.
// Output is compact, without HTML escaping and without a trailing newline.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) ContentType() string { return protocol.ContentJSON }

func (jsonCodec) Marshal(v any) ([]byte, error) {
    var buf bytes.Buffer
    enc := json.NewEncoder(&buf)
    enc.SetEscapeHTML(false)
    if err := enc.Encode(v); err != nil { return nil, err }
    return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Unmarshal accepts a single JSON value; trailing data is an error.
func (jsonCodec) Unmarshal(data []byte, v any) error {
    dec := json.NewDecoder(bytes.NewReader(data))
    if err := dec.Decode(v); err != nil { return err }
    if dec.More() { return &json.SyntaxError{Offset: dec.InputOffset()} }
    return nil
}
