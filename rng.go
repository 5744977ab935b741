package mockdir

import (
	"math/rand"
	"sync"
)

// DecisionSource is the random source behind all fault decisions.
//
// Isolating randomness behind this interface keeps every injection check
// a pure function of (policy, draw); tests substitute a scripted source
// to force specific decisions.
//
// Implementations must be safe for concurrent use. They need not be
// linearizable: under contention the draw order across goroutines is
// unspecified, but single-goroutine sequences are deterministic for a
// fixed seed.
type DecisionSource interface {
	// Float64 returns a draw in [0.0, 1.0).
	Float64() float64

	// Intn returns a draw in [0, n).
	Intn(n int) int
}

// lockedSource wraps a seeded math/rand generator with a mutex.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewDecisionSource returns a seeded, mutex-guarded DecisionSource.
func NewDecisionSource(seed int64) DecisionSource {
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}
