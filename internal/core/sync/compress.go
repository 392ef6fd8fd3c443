package sync

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/zeusync/arena/pkg/encoding"
)

// Compress rewrites a tree for transport: object keys become dictionary codes
// and numbers become "!" followed by the decimal digits of their float32 bit
// pattern. Strings already starting with "!" get a second "!".
func Compress(d encoding.Data) encoding.Data {
	return compressValue(d).(encoding.Data)
}

func compressValue(v any) any {
	switch val := v.(type) {
	case encoding.Data:
		out := make(encoding.Data, len(val))
		for k, x := range val {
			out[CompressKey(k)] = compressValue(x)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, x := range val {
			out[i] = compressValue(x)
		}
		return out
	case string:
		if strings.HasPrefix(val, "!") {
			return "!" + val
		}
		return val
	case nil, bool:
		return val
	default:
		if f, ok := encoding.ToFloat(val); ok {
			return "!" + EncodeNumber(f)
		}
		return val
	}
}

// Decompress reverses Compress.
func Decompress(d encoding.Data) (encoding.Data, error) {
	v, err := decompressValue(d)
	if err != nil {
		return nil, err
	}
	return v.(encoding.Data), nil
}

func decompressValue(v any) (any, error) {
	switch val := v.(type) {
	case encoding.Data:
		out := make(encoding.Data, len(val))
		for k, x := range val {
			dx, err := decompressValue(x)
			if err != nil {
				return nil, err
			}
			out[DecompressKey(k)] = dx
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, x := range val {
			dx, err := decompressValue(x)
			if err != nil {
				return nil, err
			}
			out[i] = dx
		}
		return out, nil
	case string:
		switch {
		case strings.HasPrefix(val, "!!"):
			return val[1:], nil
		case strings.HasPrefix(val, "!"):
			return DecodeNumber(val[1:])
		default:
			return val, nil
		}
	default:
		return val, nil
	}
}

// EncodeNumber renders f as the decimal digits of its float32 bit pattern.
func EncodeNumber(f float64) string {
	return strconv.FormatUint(uint64(math.Float32bits(float32(f))), 10)
}

// DecodeNumber reverses EncodeNumber.
func DecodeNumber(s string) (float64, error) {
	bits, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, eris.Wrapf(ErrMalformed, "number %q", s)
	}
	return float64(math.Float32frombits(uint32(bits))), nil
}

// Quantize rounds f the way the wire does.
func Quantize(f float64) float64 {
	return float64(float32(f))
}
