// Package encoding defines the value tree exchanged between the simulation and
// the sync layer.
package encoding

// Data is an object node of a value tree. Leaves are nil, bool, float64,
// string, []any or Data.
type Data = map[string]any

// Serializable provides a clean, simple interface for turning state into a
// value tree and merging a (possibly partial) tree back in.
type Serializable interface {
	Serialize() Data
	Deserialize(Data)
}

// Float reads a numeric leaf. Integer kinds produced by decoders are accepted.
func Float(d Data, key string) (float64, bool) {
	return ToFloat(d[key])
}

// ToFloat converts a numeric leaf to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func String(d Data, key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

func Bool(d Data, key string) (bool, bool) {
	b, ok := d[key].(bool)
	return b, ok
}

// Object reads a nested object node.
func Object(d Data, key string) (Data, bool) {
	o, ok := d[key].(Data)
	return o, ok
}

func Array(d Data, key string) ([]any, bool) {
	a, ok := d[key].([]any)
	return a, ok
}

// Has reports whether key is present, including keys holding the deletion marker.
func Has(d Data, key string) bool {
	_, ok := d[key]
	return ok
}
