package realm

import (
	"math/rand"
	"sync"
)

// Rand is the random source every probabilistic decision goes through, so
// tests can force deterministic draws. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a seeded source. Seed 0 is honored as-is; callers wanting
// clock seeding pass time.Now().UnixNano() themselves.
func NewRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

// lockedRand serializes access to an underlying source. *math/rand.Rand is
// not safe for concurrent use and engine events arrive from many goroutines.
type lockedRand struct {
	mu  sync.Mutex
	src Rand
}

// NewLockedRand wraps src for concurrent use.
func NewLockedRand(src Rand) Rand {
	return &lockedRand{src: src}
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.src.Shuffle(n, swap)
}
