// Package floodgate throttles inbound client traffic with an adaptive
// allowance. A client that keeps hitting the ceiling gets squeezed further;
// sustained good behavior earns the rate back.
//
// Example usage:
//
//	gate := floodgate.New(5, 1, 20, 1, 0.5)
//	if !gate.Allow() {
//	    // reject the frame
//	}
package floodgate

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// recoveryQuiet is how long a client must stay under the limit before
// its allowance starts growing again.
const recoveryQuiet = 10 * time.Second

// Gate manages a per-client rate limit that adjusts automatically.
// It shrinks every time the client is denied and grows back while the
// client behaves. Safe for concurrent use.
type Gate struct {
	mu         sync.Mutex
	limiter    *rate.Limiter
	minLimit   rate.Limit
	maxLimit   rate.Limit
	stepUp     rate.Limit
	stepDown   float64
	lastStrike time.Time
}

// New creates a Gate.
//
// Parameters:
//   - initial: starting events per second
//   - min: floor the allowance never drops below
//   - max: ceiling the allowance never grows past
//   - stepUp: increment while the client behaves
//   - stepDown: multiplier applied on a strike (e.g. 0.5 to halve)
func New(initial, min, max, stepUp rate.Limit, stepDown float64) *Gate {
	if initial < 1 {
		initial = 1
	}
	if min < 1 {
		min = 1
	}
	burst := maxInt(1, int(initial))
	return &Gate{
		limiter:  rate.NewLimiter(initial, burst),
		minLimit: min,
		maxLimit: max,
		stepUp:   stepUp,
		stepDown: stepDown,
	}
}

// Allow reports whether one more event fits the client's allowance.
// A denial counts as a strike and shrinks the allowance; an accepted
// event after a quiet stretch grows it.
func (g *Gate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.limiter.Allow() {
		g.lastStrike = time.Now()
		g.adjustLimit(rate.Limit(float64(g.limiter.Limit()) * g.stepDown))
		return false
	}
	if time.Since(g.lastStrike) > recoveryQuiet {
		g.adjustLimit(g.limiter.Limit() + g.stepUp)
	}
	return true
}

// CurrentLimit returns the current events per second.
func (g *Gate) CurrentLimit() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return float64(g.limiter.Limit())
}

// CurrentBurst returns the current burst size.
func (g *Gate) CurrentBurst() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.limiter.Burst()
}

// MaxLimit returns the configured ceiling.
func (g *Gate) MaxLimit() rate.Limit { return g.maxLimit }

// MinLimit returns the configured floor.
func (g *Gate) MinLimit() rate.Limit { return g.minLimit }

// adjustLimit sets the limiter to a new rate, respecting min/max boundaries.
func (g *Gate) adjustLimit(newLimit rate.Limit) {
	oldLimit := g.limiter.Limit()

	if newLimit > g.maxLimit {
		newLimit = g.maxLimit
	} else if newLimit < g.minLimit {
		newLimit = g.minLimit
	}

	if newLimit != oldLimit {
		g.limiter.SetLimit(newLimit)
		g.limiter.SetBurst(maxInt(1, int(newLimit)))
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
