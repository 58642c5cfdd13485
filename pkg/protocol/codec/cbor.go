package codec

import (
    cbor "github.com/fxamacker/cbor/v2"

    "mortymesh/pkg/protocol"
)

type cborCodec struct{ enc cbor.EncMode; dec cbor.DecMode }

// CBOR returns a deterministic CBOR codec (RFC 8949 core deterministic
// encoding). Struct fields use their json tags as map keys, so the same
// location body serializes with identical field names in both formats.
func CBOR() (Codec, error) {
    opts := cbor.CoreDetEncOptions()
    opts.ShortestFloat = cbor.ShortestFloatNone
    em, err := opts.EncMode()
    if err != nil { return nil, err }
    dm, err := cbor.DecOptions{DupMapKey: cbor.DupMapKeyEnforcedAPF}.DecMode()
    if err != nil { return nil, err }
    return cborCodec{enc: em, dec: dm}, nil
}

func (c cborCodec) ContentType() string { return protocol.ContentCBOR }
func (c cborCodec) Marshal(v any) ([]byte, error) { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
