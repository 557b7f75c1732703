package ai

import (
	"fmt"
	"math"
)

// Strategy is one of the three mutually exclusive actions a side may take.
type Strategy int

const (
	Answer Strategy = iota
	Attack
	Defend
)

// Strategies lists every strategy in band order.
var Strategies = [...]Strategy{Answer, Attack, Defend}

// String returns the lower-case strategy name.
func (s Strategy) String() string {
	switch s {
	case Answer:
		return "answer"
	case Attack:
		return "attack"
	case Defend:
		return "defend"
	default:
		return "unknown"
	}
}

// ParseStrategy maps a strategy name back to its Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for _, s := range Strategies {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown strategy %q", name)
}

// Weights is the sampling distribution over the three strategies.
//
// Invariant (after Normalize): each weight >= 0 and the sum is 1.
type Weights struct {
	Answer float64 `yaml:"answer"`
	Attack float64 `yaml:"attack"`
	Defend float64 `yaml:"defend"`
}

// Uniform is the fallback distribution used when every weight is zero.
var Uniform = Weights{Answer: 1.0 / 3, Attack: 1.0 / 3, Defend: 1.0 / 3}

// Total returns the sum of the three weights.
func (w Weights) Total() float64 {
	return w.Answer + w.Attack + w.Defend
}

// Get returns the weight for s.
func (w Weights) Get(s Strategy) float64 {
	switch s {
	case Answer:
		return w.Answer
	case Attack:
		return w.Attack
	case Defend:
		return w.Defend
	}
	return 0
}

// Add returns a copy of w with delta added to the weight of s.
func (w Weights) Add(s Strategy, delta float64) Weights {
	switch s {
	case Answer:
		w.Answer += delta
	case Attack:
		w.Attack += delta
	case Defend:
		w.Defend += delta
	}
	return w
}

// Valid reports whether all weights are finite and non-negative.
func (w Weights) Valid() bool {
	for _, v := range [...]float64{w.Answer, w.Attack, w.Defend} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Normalize scales w to sum to 1. An all-zero vector becomes Uniform.
//
// Postcondition: |Total() - 1| <= 1e-9.
func (w Weights) Normalize() Weights {
	total := w.Total()
	if total <= 0 {
		return Uniform
	}
	return Weights{
		Answer: w.Answer / total,
		Attack: w.Attack / total,
		Defend: w.Defend / total,
	}
}

// Pick maps a draw r in [0, Total()) onto the contiguous bands
// answer, attack, defend.
//
// Postcondition: returns Defend for any r at or beyond Answer+Attack.
func (w Weights) Pick(r float64) Strategy {
	if r < w.Answer {
		return Answer
	}
	if r < w.Answer+w.Attack {
		return Attack
	}
	return Defend
}

// Dominant returns the strategy with the largest weight; ties favour band order.
func (w Weights) Dominant() Strategy {
	best := Answer
	for _, s := range Strategies[1:] {
		if w.Get(s) > w.Get(best) {
			best = s
		}
	}
	return best
}
