package sync

import (
	"github.com/rotisserie/eris"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeusync/arena/pkg/encoding"
)

// EncodeBinary packs the compressed form of d with msgpack.
func EncodeBinary(d encoding.Data) ([]byte, error) {
	b, err := msgpack.Marshal(Compress(d))
	if err != nil {
		return nil, eris.Wrap(err, "msgpack encode")
	}
	return b, nil
}

// DecodeBinary reverses EncodeBinary.
func DecodeBinary(b []byte) (encoding.Data, error) {
	var raw map[string]any
	if err := msgpack.Unmarshal(b, &raw); err != nil {
		return nil, eris.Wrap(err, "msgpack decode")
	}
	return Decompress(normalize(raw).(encoding.Data))
}

// normalize converts decoder specific container types into value tree nodes.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, x := range val {
			val[k] = normalize(x)
		}
		return val
	case map[any]any:
		out := make(encoding.Data, len(val))
		for k, x := range val {
			if ks, ok := k.(string); ok {
				out[ks] = normalize(x)
			}
		}
		return out
	case []any:
		for i, x := range val {
			val[i] = normalize(x)
		}
		return val
	default:
		return val
	}
}
