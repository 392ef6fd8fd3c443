package sync

import "github.com/zeusync/arena/pkg/encoding"

// Replica is a consumer side copy of a producer snapshot. It is fed the same
// full snapshots and patches as the local state so divergence can be detected
// through Checksum.
type Replica struct {
	state encoding.Data
}

func NewReplica() *Replica {
	return &Replica{state: encoding.Data{}}
}

// Reset replaces the state with a full snapshot.
func (r *Replica) Reset(full encoding.Data) {
	r.state = Copy(full)
	delete(r.state, "deleted")
}

// Apply merges a patch. The deleted list is not part of the state.
func (r *Replica) Apply(patch encoding.Data) {
	Apply(r.state, patch)
	delete(r.state, "deleted")
}

// State returns a copy of the current state.
func (r *Replica) State() encoding.Data {
	return Copy(r.state)
}

func (r *Replica) Checksum() uint64 {
	return Checksum(r.state)
}

// Matches reports whether the state hashes to the formatted checksum sum.
// An absent checksum always matches.
func (r *Replica) Matches(sum string) bool {
	if sum == "" {
		return true
	}
	want, ok := ParseChecksum(sum)
	return ok && want == r.Checksum()
}
