// Package clock provides the time and randomness seams for the game engine.
// Production code runs on the system clock; tests drive timers with the fake
// clock from k8s.io/utils/clock/testing.
package clock

import (
	"math/rand"
	"sync"
	"time"

	utilclock "k8s.io/utils/clock"
)

// Clock is the injectable time source. It covers Now/Since plus delayed
// execution via AfterFunc, which is all the timer service needs.
type Clock = utilclock.WithDelayedExecution

// Timer is the cancel handle returned by Clock.AfterFunc.
type Timer = utilclock.Timer

// Real returns the system-clock implementation.
func Real() Clock {
	return utilclock.RealClock{}
}

// Rand is a seedable uniform random source safe for concurrent use. A single
// instance is shared by every room for palette picks, word sampling and hint
// positions.
type Rand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRand returns a Rand seeded with the given value. Fixed seeds make game
// flows reproducible in tests.
func NewRand(seed int64) *Rand {
	return &Rand{r: rand.New(rand.NewSource(seed))}
}

// NewTimeSeededRand returns a Rand seeded from the current time.
func NewTimeSeededRand() *Rand {
	return NewRand(time.Now().UnixNano())
}

// Intn returns a uniform int in [0, n). Panics if n <= 0, like math/rand.
func (r *Rand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Intn(n)
}

// Perm returns a uniform permutation of [0, n).
func (r *Rand) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.r.Perm(n)
}

// Shuffle pseudo-randomizes the order of n elements through swap.
func (r *Rand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.r.Shuffle(n, swap)
}
