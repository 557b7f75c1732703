package ai

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/game/dice"
)

// ScriptCaller is the interface required by the Policy to evaluate Lua
// override conditions.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(vm, hook string, args ...lua.LValue) (lua.LValue, error)
}

// Trait growth per successful action and the starting trait level.
const (
	traitStep          = 0.1
	traitStart         = 0.5
	knowledgePerAnswer = 5
)

// Traits are descriptive personality counters that drift with outcomes.
// They never influence selection; the presentation layer may display them.
type Traits struct {
	Knowledge     int
	Aggression    float64
	Defensiveness float64
}

// Policy chooses the computer side's strategy and learns from outcomes.
//
// A Policy belongs to exactly one match and is not safe for concurrent use;
// the owning engine serialises access.
type Policy struct {
	profile *Profile
	src     dice.Source
	caller  ScriptCaller
	logger  *zap.Logger

	weights  Weights
	traits   Traits
	lastRule string
}

// NewPolicy constructs a Policy for profile.
//
// Precondition: profile, src and logger must not be nil; profile must be valid.
// caller may be nil, in which case script rules never match.
// Postcondition: weights equal the normalized profile initial weights.
func NewPolicy(profile *Profile, src dice.Source, caller ScriptCaller, logger *zap.Logger) *Policy {
	if profile == nil {
		panic("ai.NewPolicy: profile must not be nil")
	}
	if src == nil {
		panic("ai.NewPolicy: src must not be nil")
	}
	if logger == nil {
		panic("ai.NewPolicy: logger must not be nil")
	}
	p := &Policy{profile: profile, src: src, caller: caller, logger: logger}
	p.Reset()
	return p
}

// Reset restores the initial weights and traits.
func (p *Policy) Reset() {
	p.weights = p.profile.Initial.Normalize()
	p.traits = Traits{Aggression: traitStart, Defensiveness: traitStart}
	p.lastRule = ""
}

// Weights returns the current normalized weights.
func (p *Policy) Weights() Weights { return p.weights }

// Traits returns the current trait counters.
func (p *Policy) Traits() Traits { return p.traits }

// LastRule returns the ID of the override that fired on the most recent
// decision, or "" when the learned weights were used.
func (p *Policy) LastRule() string { return p.lastRule }

// Override runs the override chain against sit. The first matching rule
// replaces the weights; the result is renormalized either way.
//
// Postcondition: returns the fired rule ID or ""; Weights().Total() == 1.
func (p *Policy) Override(sit Situation) string {
	p.lastRule = ""
	for _, r := range p.profile.Rules {
		if !p.ruleMatches(r, sit) {
			continue
		}
		p.weights = r.Weights
		p.lastRule = r.ID
		break
	}
	p.weights = p.weights.Normalize()
	return p.lastRule
}

// Choose applies the override chain and samples one strategy with a single
// uniform draw over the weight bands.
//
// Postcondition: returns one of Answer, Attack, Defend.
func (p *Policy) Choose(sit Situation) Strategy {
	rule := p.Override(sit)
	r := p.src.Float64() * p.weights.Total()
	s := p.weights.Pick(r)
	p.logger.Debug("strategy chosen",
		zap.String("profile", p.profile.ID),
		zap.String("override", rule),
		zap.Float64("answer", p.weights.Answer),
		zap.Float64("attack", p.weights.Attack),
		zap.Float64("defend", p.weights.Defend),
		zap.Float64("draw", r),
		zap.Stringer("strategy", s),
	)
	return s
}

// Adapt nudges the weight of s upward by the learning rate when out counts
// as a success, updates traits, and renormalizes.
//
// Postcondition: Weights().Total() == 1.
func (p *Policy) Adapt(s Strategy, out Outcome) {
	if out.Succeeded(s) {
		p.weights = p.weights.Add(s, p.profile.LearningRate)
		switch s {
		case Answer:
			p.traits.Knowledge += knowledgePerAnswer
		case Attack:
			p.traits.Aggression = capTrait(p.traits.Aggression + traitStep)
		case Defend:
			p.traits.Defensiveness = capTrait(p.traits.Defensiveness + traitStep)
		}
	}
	p.weights = p.weights.Normalize()
}

// ruleMatches evaluates r, dispatching script rules to the caller. Script
// failures are treated as a non-match.
func (p *Policy) ruleMatches(r *Rule, sit Situation) bool {
	if r.When != Script {
		return r.matches(sit)
	}
	if p.caller == nil {
		return false
	}
	val, err := p.caller.CallHook(p.profile.ID, r.Hook,
		lua.LNumber(sit.Self.Health),
		lua.LNumber(sit.Opponent.Health),
		lua.LNumber(sit.Self.Knowledge),
		lua.LNumber(sit.CurrentTurn),
		lua.LNumber(sit.MaxTurns),
	)
	if err != nil {
		p.logger.Warn("override hook failed",
			zap.String("profile", p.profile.ID),
			zap.String("rule", r.ID),
			zap.Error(err),
		)
		return false
	}
	return val == lua.LTrue
}

func capTrait(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
