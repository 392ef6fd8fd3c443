package sync

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/zeusync/arena/pkg/encoding"
)

// Checksum hashes the text form of d. Trees equal after float32 rounding hash
// the same.
func Checksum(d encoding.Data) uint64 {
	if d == nil {
		d = encoding.Data{}
	}
	s, err := Write(d)
	if err != nil {
		return 0
	}
	return xxhash.Sum64String(s)
}

// FormatChecksum renders a checksum for transport as a string leaf.
func FormatChecksum(sum uint64) string {
	return strconv.FormatUint(sum, 16)
}

// ParseChecksum reverses FormatChecksum.
func ParseChecksum(s string) (uint64, bool) {
	v, err := strconv.ParseUint(s, 16, 64)
	return v, err == nil
}
