// Package sync turns value trees into patches and compact wire forms and
// applies them on the receiving side.
package sync

import (
	"github.com/brunoga/deep"
	"github.com/zeusync/arena/pkg/encoding"
)

// Diff returns the patch turning prev into cur. Equal keys are omitted, changed
// scalars and arrays carry their new value, nested objects are diffed
// recursively and keys missing from cur are set to nil. The patch may share
// subtrees with cur.
func Diff(prev, cur encoding.Data) encoding.Data {
	out := encoding.Data{}
	for k, cv := range cur {
		pv, ok := prev[k]
		if !ok {
			out[k] = cv
			continue
		}
		pObj, pIsObj := pv.(encoding.Data)
		cObj, cIsObj := cv.(encoding.Data)
		if pIsObj && cIsObj {
			if sub := Diff(pObj, cObj); len(sub) > 0 {
				out[k] = sub
			}
			continue
		}
		if !Equal(pv, cv) {
			out[k] = cv
		}
	}
	for k := range prev {
		if _, ok := cur[k]; !ok {
			out[k] = nil
		}
	}
	return out
}

// Apply merges patch into base in place and returns base. Nil values delete
// keys. Values taken from the patch are deep copies.
func Apply(base, patch encoding.Data) encoding.Data {
	if base == nil {
		base = encoding.Data{}
	}
	for k, v := range patch {
		if v == nil {
			delete(base, k)
			continue
		}
		if pObj, ok := v.(encoding.Data); ok {
			if bObj, ok := base[k].(encoding.Data); ok {
				base[k] = Apply(bObj, pObj)
				continue
			}
			base[k] = Apply(encoding.Data{}, pObj)
			continue
		}
		base[k] = copyValue(v)
	}
	return base
}

// Equal compares two value trees structurally.
func Equal(a, b any) bool {
	switch av := a.(type) {
	case encoding.Data:
		bv, ok := b.(encoding.Data)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, x := range av {
			y, ok := bv[k]
			if !ok || !Equal(x, y) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	default:
		if af, ok := encoding.ToFloat(a); ok {
			bf, ok := encoding.ToFloat(b)
			return ok && af == bf
		}
		return a == b
	}
}

// Copy deep copies a value tree.
func Copy(d encoding.Data) encoding.Data {
	if d == nil {
		return encoding.Data{}
	}
	return deep.MustCopy(d)
}

func copyValue(v any) any {
	switch v.(type) {
	case encoding.Data, []any:
		return deep.MustCopy(v)
	default:
		return v
	}
}
