package sync

import "github.com/zeusync/arena/pkg/encoding"

// Tracker remembers the last snapshot handed out so the next one can be sent
// as a patch.
type Tracker struct {
	prev encoding.Data
	set  bool
}

// Diff returns the patch from the previous snapshot to cur and makes cur the
// new baseline. Callers must not mutate cur afterwards.
func (t *Tracker) Diff(cur encoding.Data) encoding.Data {
	patch := Diff(t.prev, cur)
	t.prev, t.set = cur, true
	return patch
}

// Reset makes cur the baseline without producing a patch.
func (t *Tracker) Reset(cur encoding.Data) {
	t.prev, t.set = cur, true
}

// Baseline returns a copy of the current baseline and whether one exists.
func (t *Tracker) Baseline() (encoding.Data, bool) {
	if !t.set {
		return encoding.Data{}, false
	}
	return Copy(t.prev), true
}

// Checksum hashes the current baseline.
func (t *Tracker) Checksum() uint64 {
	return Checksum(t.prev)
}
