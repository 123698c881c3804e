package grouping

import (
	"encoding/binary"
	"slices"

	"github.com/cespare/xxhash/v2"

	"github.com/openfga/flwor/pkg/compare"
)

// Index maps composite comparison keys to group ordinals. Keys are hashed
// with xxhash; colliding keys are told apart by full comparison.
type Index struct {
	buckets map[uint64][]int
	keys    [][]compare.Key
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{buckets: map[uint64][]int{}}
}

func digest(keys []compare.Key) uint64 {
	d := xxhash.New()
	var length [binary.MaxVarintLen64]byte
	for _, k := range keys {
		b := k.Bytes()
		n := binary.PutUvarint(length[:], uint64(len(b)))
		_, _ = d.Write(length[:n])
		_, _ = d.Write(b)
	}
	return d.Sum64()
}

// Lookup returns the ordinal of the group with the given keys.
func (x *Index) Lookup(keys []compare.Key) (int, bool) {
	for _, ordinal := range x.buckets[digest(keys)] {
		if slices.Equal(x.keys[ordinal], keys) {
			return ordinal, true
		}
	}
	return 0, false
}

// Insert records keys as a new group and returns its ordinal. Ordinals are
// assigned in insertion order starting at 0.
func (x *Index) Insert(keys []compare.Key) int {
	ordinal := len(x.keys)
	x.keys = append(x.keys, keys)
	h := digest(keys)
	x.buckets[h] = append(x.buckets[h], ordinal)
	return ordinal
}

// Len returns the number of groups in the index.
func (x *Index) Len() int {
	return len(x.keys)
}
