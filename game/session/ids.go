package session

import (
	"math/rand/v2"
	"strconv"

	"github.com/richardl62/richards-old-games-server/game/gameerr"
)

// Defaults for server-assigned session IDs: six decimal digits, ten tries.
const (
	DefaultIDMin    = 100000
	DefaultIDMax    = 999999
	DefaultAttempts = 10
)

// Allocator draws random session IDs from a bounded numeric range.
type Allocator struct {
	min, max int
	attempts int
	intN     func(n int) int
}

// NewAllocator returns an allocator for IDs in [min, max] that gives up
// after attempts collisions.
func NewAllocator(min, max, attempts int) *Allocator {
	if max < min {
		min, max = max, min
	}
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	return &Allocator{
		min:      min,
		max:      max,
		attempts: attempts,
		intN:     rand.IntN,
	}
}

// NewDefaultAllocator returns the six-digit allocator.
func NewDefaultAllocator() *Allocator {
	return NewAllocator(DefaultIDMin, DefaultIDMax, DefaultAttempts)
}

// Allocate returns a candidate for which exists reports false. It fails with
// ErrAllocationExhausted once every attempt has collided.
func (a *Allocator) Allocate(exists func(id string) bool) (string, error) {
	for i := 0; i < a.attempts; i++ {
		candidate := strconv.Itoa(a.min + a.intN(a.max-a.min+1))
		if exists == nil || !exists(candidate) {
			return candidate, nil
		}
	}
	return "", gameerr.New(gameerr.ErrAllocationExhausted,
		"could not allocate a session id after %d attempts", a.attempts)
}
