package session

import (
	"strconv"
	"testing"

	"github.com/richardl62/richards-old-games-server/game/gameerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_DefaultRange(t *testing.T) {
	a := NewDefaultAllocator()

	for i := 0; i < 100; i++ {
		id, err := a.Allocate(nil)
		require.NoError(t, err)
		assert.Len(t, id, 6)

		n, err := strconv.Atoi(id)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, DefaultIDMin)
		assert.LessOrEqual(t, n, DefaultIDMax)
	}
}

func TestAllocator_SkipsExisting(t *testing.T) {
	a := NewAllocator(1, 3, 10)
	seq := []int{0, 0, 1}
	a.intN = func(int) int {
		v := seq[0]
		seq = seq[1:]
		return v
	}

	id, err := a.Allocate(func(id string) bool { return id == "1" })
	require.NoError(t, err)
	assert.Equal(t, "2", id)
}

func TestAllocator_Exhausted(t *testing.T) {
	a := NewAllocator(0, 9, 10)
	calls := 0

	id, err := a.Allocate(func(string) bool {
		calls++
		return true
	})

	assert.Empty(t, id)
	assert.ErrorIs(t, err, gameerr.ErrAllocationExhausted)
	assert.Equal(t, 10, calls, "allocator should stop at its retry bound")
}

func TestNewAllocator_Normalizes(t *testing.T) {
	a := NewAllocator(9, 1, 0)
	assert.Equal(t, 1, a.min)
	assert.Equal(t, 9, a.max)
	assert.Equal(t, DefaultAttempts, a.attempts)
}
