package sstable

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maksimshengeliia/lsmkv/internal/base"
	"github.com/maksimshengeliia/lsmkv/internal/iterator"
	"github.com/maksimshengeliia/lsmkv/internal/lsmerr"
)

func cells() []base.Cell {
	return []base.Cell{
		{Key: []byte("a"), Value: base.Live(1, []byte("1"))},
		{Key: []byte("b"), Value: base.Tombstone(2)},
		{Key: []byte("c"), Value: base.Live(3, []byte("333"))},
		{Key: []byte("e"), Value: base.Live(4, []byte(""))},
	}
}

func writeTestTable(t *testing.T) *SSTable {
	t.Helper()
	path := filepath.Join(t.TempDir(), "0.dat")
	cs := cells()
	require.NoError(t, Serialize(path, iterator.NewSlice(cs), len(cs)))
	tbl, err := Open(path, 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })
	return tbl
}

func TestSerializationRoundTrip(t *testing.T) {
	tbl := writeTestTable(t)
	assert.Equal(t, 4, tbl.Rows())

	it := tbl.Iterator(nil)
	var got []base.Cell
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, c)
	}
	require.NoError(t, it.Err())
	require.Len(t, got, 4)

	want := cells()
	for i := range want {
		assert.Equal(t, string(want[i].Key), string(got[i].Key))
		assert.Equal(t, want[i].Value.IsRemoved(), got[i].Value.IsRemoved())
		assert.Equal(t, want[i].Value.Timestamp(), got[i].Value.Timestamp())
		if !want[i].Value.IsRemoved() {
			assert.Equal(t, want[i].Value.Data(), got[i].Value.Data())
		}
	}
}

func TestBinarySearchExactAndLowerBound(t *testing.T) {
	tbl := writeTestTable(t)

	for _, tc := range []struct {
		from string
		want int
	}{
		{"a", 0},
		{"b", 1},
		{"c", 2},
		{"e", 3},
		{"", 0},       // before everything
		{"aa", 1},     // between a and b -> first greater is b at index 1
		{"d", 3},      // between c and e -> first greater is e at index 3
		{"z", 4},      // after everything -> rows
	} {
		idx, err := tbl.binarySearch([]byte(tc.from))
		require.NoError(t, err)
		assert.Equal(t, tc.want, idx, "from=%q", tc.from)
	}
}

func TestIteratorStartsAtLowerBound(t *testing.T) {
	tbl := writeTestTable(t)
	it := tbl.Iterator([]byte("b"))

	var keys []string
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, string(c.Key))
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []string{"b", "c", "e"}, keys)
}

func TestMutationNotSupported(t *testing.T) {
	tbl := writeTestTable(t)
	assert.ErrorIs(t, tbl.Upsert([]byte("a"), []byte("1")), lsmerr.ErrNotSupported)
	assert.ErrorIs(t, tbl.Remove([]byte("a")), lsmerr.ErrNotSupported)
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.dat")
	require.NoError(t, os.WriteFile(path, []byte{0, 0}, 0o644))
	_, err := Open(path, 0)
	assert.ErrorIs(t, err, lsmerr.ErrMalformed)
}

func TestOpenRejectsInconsistentFooter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.dat")
	cs := cells()
	require.NoError(t, Serialize(path, iterator.NewSlice(cs), len(cs)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Overwrite the footer's row count with an implausibly large value so
	// the declared offsets region no longer fits within the file.
	data[len(data)-1] = 0x7f
	data[len(data)-2] = 0x7f
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Open(path, 0)
	assert.ErrorIs(t, err, lsmerr.ErrMalformed)
}

func TestEmptyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "0.dat")
	require.NoError(t, Serialize(path, iterator.NewSlice(nil), 0))
	tbl, err := Open(path, 0)
	require.NoError(t, err)
	defer tbl.Close()

	assert.Equal(t, 0, tbl.Rows())
	_, ok := tbl.Iterator(nil).Next()
	assert.False(t, ok)
}
