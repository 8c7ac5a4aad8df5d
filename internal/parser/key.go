package parser

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Key identifies a cached parse result: the same filename with the same
// modification time and content fingerprint parses to the same result.
type Key struct {
	Filename    string
	Modified    int64 // unix milliseconds
	Fingerprint uint64
}

// NewKey fingerprints an input buffer into a cache key.
func NewKey(in Input) Key {
	return Key{
		Filename:    in.Filename,
		Modified:    in.Modified.UnixMilli(),
		Fingerprint: xxhash.Sum64(in.Buffer),
	}
}

// String returns a stable single-string form, used by backends that key on
// one column.
func (k Key) String() string {
	return fmt.Sprintf("%s@%d#%016x", k.Filename, k.Modified, k.Fingerprint)
}
