package sync

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/arena/pkg/encoding"
)

func TestDiffOmitsEqualKeys(t *testing.T) {
	prev := encoding.Data{
		"a": 1.0,
		"b": "x",
		"o": encoding.Data{"k": 1.0, "j": true},
		"l": []any{1.0, 2.0},
	}
	cur := encoding.Data{
		"a": 1.0,
		"b": "y",
		"o": encoding.Data{"k": 2.0, "j": true},
		"l": []any{1.0, 2.0},
		"n": encoding.Data{"z": 0.0},
	}

	patch := Diff(prev, cur)
	assert.Equal(t, encoding.Data{
		"b": "y",
		"o": encoding.Data{"k": 2.0},
		"n": encoding.Data{"z": 0.0},
	}, patch)
}

func TestDiffMarksRemovedKeys(t *testing.T) {
	prev := encoding.Data{"a": 1.0, "o": encoding.Data{"gone": 1.0, "kept": 1.0}}
	cur := encoding.Data{"o": encoding.Data{"kept": 1.0}}

	patch := Diff(prev, cur)
	assert.Equal(t, encoding.Data{"a": nil, "o": encoding.Data{"gone": nil}}, patch)
}

func TestDiffArraysAreAtomic(t *testing.T) {
	patch := Diff(encoding.Data{"l": []any{1.0, 2.0}}, encoding.Data{"l": []any{1.0, 3.0}})
	assert.Equal(t, encoding.Data{"l": []any{1.0, 3.0}}, patch)
}

func TestDiffObjectReplacedByScalar(t *testing.T) {
	patch := Diff(encoding.Data{"v": encoding.Data{"x": 1.0}}, encoding.Data{"v": 2.0})
	assert.Equal(t, encoding.Data{"v": 2.0}, patch)

	base := Apply(encoding.Data{"v": encoding.Data{"x": 1.0}}, patch)
	assert.Equal(t, encoding.Data{"v": 2.0}, base)
}

func TestApplyCopiesPatchValues(t *testing.T) {
	patch := encoding.Data{"o": encoding.Data{"l": []any{1.0}}}
	base := Apply(nil, patch)

	patch["o"].(encoding.Data)["l"].([]any)[0] = 9.0
	assert.Equal(t, 1.0, base["o"].(encoding.Data)["l"].([]any)[0])
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(1.0, 1))
	assert.True(t, Equal(nil, nil))
	assert.False(t, Equal(nil, 0.0))
	assert.False(t, Equal("1", 1.0))
	assert.True(t, Equal([]any{encoding.Data{"a": 1.0}}, []any{encoding.Data{"a": 1.0}}))
	assert.False(t, Equal(encoding.Data{"a": 1.0}, encoding.Data{"b": 1.0}))
}

func randomTree(r *rand.Rand, depth int) encoding.Data {
	out := encoding.Data{}
	n := r.Intn(5)
	for i := 0; i < n; i++ {
		key := strconv.Itoa(r.Intn(8))
		switch r.Intn(5) {
		case 0:
			out[key] = float64(r.Intn(4))
		case 1:
			out[key] = r.Intn(2) == 0
		case 2:
			out[key] = []any{float64(r.Intn(3)), "s"}
		case 3:
			out[key] = "v" + strconv.Itoa(r.Intn(3))
		default:
			if depth > 0 {
				out[key] = randomTree(r, depth-1)
			}
		}
	}
	return out
}

func TestPatchesConverge(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	var tracker Tracker

	s0 := randomTree(r, 3)
	tracker.Reset(s0)
	consumer := Copy(s0)

	for i := 0; i < 200; i++ {
		next := randomTree(r, 3)
		patch := tracker.Diff(next)
		Apply(consumer, patch)
		require.True(t, Equal(next, consumer), "step %d diverged", i)
	}
}

func TestTrackerRepeatedDiffIsEmpty(t *testing.T) {
	var tracker Tracker
	snap := func() encoding.Data { return encoding.Data{"a": 1.0, "o": encoding.Data{"b": "c"}} }

	assert.NotEmpty(t, tracker.Diff(snap()))
	assert.Empty(t, tracker.Diff(snap()))
	assert.Empty(t, tracker.Diff(snap()))

	base, ok := tracker.Baseline()
	require.True(t, ok)
	assert.Equal(t, snap(), base)
	assert.Equal(t, Checksum(snap()), tracker.Checksum())
}
