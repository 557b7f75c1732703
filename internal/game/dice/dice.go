// Package dice provides the randomness abstraction used by every probabilistic
// step of a match: strategy sampling, troop counts, answer rolls and the
// starting question.
package dice

import (
	"fmt"
	"sync"
)

// Source is the randomness provider for the game engine.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float64 in [0.0, 1.0).
	Float64() float64
}

// Scripted is a Source that replays fixed sequences. Floats and ints are
// consumed independently and wrap around when exhausted.
//
// Invariant: Float64 values are clamped to [0, 1).
type Scripted struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
	fi, ii int
}

// NewScripted returns a Scripted source replaying floats and ints in order.
//
// Precondition: at least one of floats or ints is non-empty for the draws the
// caller intends to make; an empty sequence yields 0.
func NewScripted(floats []float64, ints ...int) *Scripted {
	return &Scripted{floats: floats, ints: ints}
}

// Fixed returns a Scripted source that always yields v for Float64 and
// floor(v*n) for Intn.
func Fixed(v float64) *Scripted {
	return NewScripted([]float64{v})
}

// Float64 returns the next scripted float.
func (s *Scripted) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[s.fi%len(s.floats)]
	s.fi++
	switch {
	case v < 0:
		return 0
	case v >= 1:
		return 1 - 1e-12
	}
	return v
}

// Intn returns the next scripted int reduced mod n. When no ints were
// scripted the next float is scaled into [0, n) instead.
//
// Precondition: n > 0.
func (s *Scripted) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("dice: Intn called with n <= 0 (%d)", n))
	}
	s.mu.Lock()
	if len(s.ints) == 0 {
		s.mu.Unlock()
		return int(s.Float64() * float64(n))
	}
	v := s.ints[s.ii%len(s.ints)]
	s.ii++
	s.mu.Unlock()
	v %= n
	if v < 0 {
		v += n
	}
	return v
}
