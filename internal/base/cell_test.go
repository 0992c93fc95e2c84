package base

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLessOrdersByKeyThenDescendingTimestamp(t *testing.T) {
	a := Cell{Key: []byte("a"), Value: Live(10, []byte("1"))}
	b := Cell{Key: []byte("b"), Value: Live(10, []byte("1"))}
	assert.True(t, Less(a, b))
	assert.False(t, Less(b, a))

	fresh := Cell{Key: []byte("a"), Value: Live(20, []byte("2"))}
	stale := Cell{Key: []byte("a"), Value: Live(10, []byte("1"))}
	assert.True(t, Less(fresh, stale), "same key: higher timestamp sorts first")
	assert.False(t, Less(stale, fresh))
}

func TestValueTombstoneHasNoPayloadLen(t *testing.T) {
	live := Live(1, []byte("hello"))
	assert.Equal(t, 5, live.PayloadLen())
	assert.False(t, live.IsRemoved())

	tomb := Tombstone(2)
	assert.Equal(t, 0, tomb.PayloadLen())
	assert.True(t, tomb.IsRemoved())
}

func TestDataPanicsOnTombstone(t *testing.T) {
	tomb := Tombstone(1)
	assert.Panics(t, func() { tomb.Data() })
}

func TestConstructorsRejectNonPositiveTimestamp(t *testing.T) {
	assert.Panics(t, func() { Live(0, []byte("x")) })
	assert.Panics(t, func() { Tombstone(-1) })
}
