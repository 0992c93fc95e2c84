package base

import "bytes"

// Cell pairs a key with its Value. Cells are what flow through the merge
// path, where multiple generations (MemTable plus every SSTable) may each
// hold a Value for the same key.
type Cell struct {
	Key   []byte
	Value Value
}

// Less implements Cell.COMPARATOR: ascending by key, then descending by
// timestamp, so that of two Cells sharing a key the fresher one sorts
// first. Comparison is unsigned lexicographic over the key bytes, matching
// Go's native byte-wise string/slice comparison.
func Less(a, b Cell) bool {
	if c := bytes.Compare(a.Key, b.Key); c != 0 {
		return c < 0
	}
	return a.Value.Timestamp() > b.Value.Timestamp()
}
