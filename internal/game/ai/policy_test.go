package ai_test

import (
	"errors"
	"math"
	"testing"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/quizwar/internal/game/ai"
	"github.com/cory-johannsen/quizwar/internal/game/dice"
)

// mockScriptCaller always returns the given value for any hook call and
// records the last arguments.
type mockScriptCaller struct {
	returnVal lua.LValue
	err       error
	calls     int
	lastVM    string
	lastHook  string
	lastArgs  []lua.LValue
}

func (m *mockScriptCaller) CallHook(vm, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.calls++
	m.lastVM = vm
	m.lastHook = hook
	m.lastArgs = args
	if m.err != nil {
		return lua.LNil, m.err
	}
	if m.returnVal == nil {
		return lua.LNil, nil
	}
	return m.returnVal, nil
}

func calmSituation() ai.Situation {
	return ai.Situation{
		Self:        ai.SideState{Health: 100, Defense: 10, Troops: 5, Knowledge: 50},
		Opponent:    ai.SideState{Health: 100, Defense: 10, Troops: 5},
		CurrentTurn: 1,
		MaxTurns:    10,
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) <= 1e-9 }

func TestPolicy_InitialWeights(t *testing.T) {
	p := ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(0), nil, zaptest.NewLogger(t))
	w := p.Weights()
	if !approx(w.Answer, 0.4) || !approx(w.Attack, 0.4) || !approx(w.Defend, 0.2) {
		t.Fatalf("unexpected initial weights %+v", w)
	}
	if tr := p.Traits(); tr.Aggression != 0.5 || tr.Defensiveness != 0.5 || tr.Knowledge != 0 {
		t.Fatalf("unexpected initial traits %+v", tr)
	}
}

func TestPolicy_Choose_BandsWithoutOverride(t *testing.T) {
	cases := []struct {
		draw float64
		want ai.Strategy
	}{
		{0.0, ai.Answer},
		{0.39, ai.Answer},
		{0.41, ai.Attack},
		{0.79, ai.Attack},
		{0.81, ai.Defend},
		{0.99, ai.Defend},
	}
	for _, tc := range cases {
		p := ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(tc.draw), nil, zaptest.NewLogger(t))
		if got := p.Choose(calmSituation()); got != tc.want {
			t.Errorf("draw %v: want %v, got %v", tc.draw, tc.want, got)
		}
		if p.LastRule() != "" {
			t.Errorf("draw %v: expected no override, got %q", tc.draw, p.LastRule())
		}
	}
}

func TestPolicy_Override_DesperationDefense(t *testing.T) {
	p := ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(0.5), nil, zaptest.NewLogger(t))
	sit := calmSituation()
	sit.Self.Health = 20
	if got := p.Choose(sit); got != ai.Defend {
		t.Fatalf("expected defend, got %v", got)
	}
	if p.LastRule() != "desperation_defense" {
		t.Fatalf("expected desperation_defense, got %q", p.LastRule())
	}
	w := p.Weights()
	if !approx(w.Answer, 0.2) || !approx(w.Attack, 0.2) || !approx(w.Defend, 0.6) {
		t.Fatalf("unexpected weights %+v", w)
	}
}

func TestPolicy_Override_FirstMatchWins(t *testing.T) {
	p := ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(0), nil, zaptest.NewLogger(t))
	sit := calmSituation()
	// Both own and opponent health are low; the earlier rule must win.
	sit.Self.Health = 10
	sit.Opponent.Health = 10
	p.Override(sit)
	if p.LastRule() != "desperation_defense" {
		t.Fatalf("expected desperation_defense, got %q", p.LastRule())
	}
}

func TestPolicy_Override_EachRule(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ai.Situation)
		rule   string
	}{
		{"opponent low", func(s *ai.Situation) { s.Opponent.Health = 29 }, "opportunistic_attack"},
		{"knowledge low", func(s *ai.Situation) { s.Self.Knowledge = 19 }, "catch_up_learning"},
		{"late game", func(s *ai.Situation) { s.CurrentTurn = 8 }, "endgame_aggression"},
		{"health ratio", func(s *ai.Situation) { s.Self.Health = 40 }, "survival_caution"},
		{"boundary health", func(s *ai.Situation) { s.Self.Health = 50 }, ""},
		{"boundary turn", func(s *ai.Situation) { s.CurrentTurn = 7 }, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(0), nil, zaptest.NewLogger(t))
			sit := calmSituation()
			tc.mutate(&sit)
			if got := p.Override(sit); got != tc.rule {
				t.Fatalf("want %q, got %q", tc.rule, got)
			}
		})
	}
}

func TestPolicy_Adapt_SuccessRaisesWeight(t *testing.T) {
	p := ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(0), nil, zaptest.NewLogger(t))
	p.Adapt(ai.Answer, ai.Outcome{Correct: true})
	w := p.Weights()
	if !approx(w.Answer, 0.45/1.05) {
		t.Fatalf("expected answer weight %v, got %v", 0.45/1.05, w.Answer)
	}
	if !approx(w.Total(), 1) {
		t.Fatalf("weights not normalized: %+v", w)
	}
	if p.Traits().Knowledge != 5 {
		t.Fatalf("expected knowledge trait 5, got %d", p.Traits().Knowledge)
	}
}

func TestPolicy_Adapt_FailureLeavesWeights(t *testing.T) {
	p := ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(0), nil, zaptest.NewLogger(t))
	before := p.Weights()
	p.Adapt(ai.Attack, ai.Outcome{Damage: 0})
	p.Adapt(ai.Answer, ai.Outcome{Correct: false})
	after := p.Weights()
	if !approx(before.Answer, after.Answer) || !approx(before.Attack, after.Attack) {
		t.Fatalf("weights changed on failure: %+v -> %+v", before, after)
	}
	if p.Traits().Aggression != 0.5 {
		t.Fatalf("aggression changed on failed attack: %v", p.Traits().Aggression)
	}
}

func TestPolicy_Adapt_TraitsCapAtOne(t *testing.T) {
	p := ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(0), nil, zaptest.NewLogger(t))
	for i := 0; i < 20; i++ {
		p.Adapt(ai.Attack, ai.Outcome{Damage: 10})
		p.Adapt(ai.Defend, ai.Outcome{Fortified: true})
	}
	tr := p.Traits()
	if tr.Aggression != 1 || tr.Defensiveness != 1 {
		t.Fatalf("traits must cap at 1, got %+v", tr)
	}
}

func TestPolicy_Reset_RestoresInitial(t *testing.T) {
	p := ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(0), nil, zaptest.NewLogger(t))
	p.Adapt(ai.Defend, ai.Outcome{Fortified: true})
	sit := calmSituation()
	sit.Self.Health = 5
	p.Override(sit)
	p.Reset()
	w := p.Weights()
	if !approx(w.Answer, 0.4) || p.LastRule() != "" || p.Traits().Defensiveness != 0.5 {
		t.Fatalf("reset incomplete: %+v %q %+v", w, p.LastRule(), p.Traits())
	}
}

func TestPolicy_ZeroOverrideWeights_FallBackToUniform(t *testing.T) {
	profile := &ai.Profile{
		ID:           "zero",
		LearningRate: 0.05,
		Initial:      ai.Weights{Answer: 1},
		Rules: []*ai.Rule{
			{ID: "dead", When: ai.SelfHealthBelow, Threshold: 1000, Weights: ai.Weights{}},
		},
	}
	p := ai.NewPolicy(profile, dice.Fixed(0.5), nil, zaptest.NewLogger(t))
	if got := p.Choose(calmSituation()); got != ai.Attack {
		t.Fatalf("uniform draw 0.5 should land in attack band, got %v", got)
	}
	if p.Weights() != ai.Uniform {
		t.Fatalf("expected uniform weights, got %+v", p.Weights())
	}
}

func scriptProfile() *ai.Profile {
	return &ai.Profile{
		ID:           "scripted",
		LearningRate: 0.05,
		Initial:      ai.Weights{Answer: 0.4, Attack: 0.4, Defend: 0.2},
		Rules: []*ai.Rule{
			{ID: "hooked", When: ai.Script, Hook: "all_in", Weights: ai.Weights{Attack: 1}},
		},
	}
}

func TestPolicy_ScriptRule_FiresOnTrue(t *testing.T) {
	caller := &mockScriptCaller{returnVal: lua.LTrue}
	p := ai.NewPolicy(scriptProfile(), dice.Fixed(0), caller, zaptest.NewLogger(t))
	if got := p.Choose(calmSituation()); got != ai.Attack {
		t.Fatalf("expected attack, got %v", got)
	}
	if caller.lastVM != "scripted" || caller.lastHook != "all_in" {
		t.Fatalf("unexpected hook target %q/%q", caller.lastVM, caller.lastHook)
	}
	if len(caller.lastArgs) != 5 || caller.lastArgs[0] != lua.LNumber(100) || caller.lastArgs[4] != lua.LNumber(10) {
		t.Fatalf("unexpected hook args %v", caller.lastArgs)
	}
}

func TestPolicy_ScriptRule_NilCallerNeverFires(t *testing.T) {
	p := ai.NewPolicy(scriptProfile(), dice.Fixed(0), nil, zaptest.NewLogger(t))
	if rule := p.Override(calmSituation()); rule != "" {
		t.Fatalf("expected no override, got %q", rule)
	}
}

func TestPolicy_ScriptRule_ErrorIsNonMatch(t *testing.T) {
	caller := &mockScriptCaller{err: errors.New("boom")}
	p := ai.NewPolicy(scriptProfile(), dice.Fixed(0), caller, zaptest.NewLogger(t))
	if rule := p.Override(calmSituation()); rule != "" {
		t.Fatalf("expected no override, got %q", rule)
	}
	if caller.calls != 1 {
		t.Fatalf("expected one hook call, got %d", caller.calls)
	}
}

func TestPolicy_ScriptRule_NonBooleanIsNonMatch(t *testing.T) {
	caller := &mockScriptCaller{returnVal: lua.LNumber(1)}
	p := ai.NewPolicy(scriptProfile(), dice.Fixed(0), caller, zaptest.NewLogger(t))
	if rule := p.Override(calmSituation()); rule != "" {
		t.Fatalf("expected no override, got %q", rule)
	}
}

func TestNewPolicy_PanicsOnNil(t *testing.T) {
	logger := zaptest.NewLogger(t)
	for name, fn := range map[string]func(){
		"profile": func() { ai.NewPolicy(nil, dice.Fixed(0), nil, logger) },
		"source":  func() { ai.NewPolicy(ai.DefaultProfile(), nil, nil, logger) },
		"logger":  func() { ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(0), nil, nil) },
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestProperty_Policy_WeightsStayNormalized(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		draw := rapid.Float64Range(0, 0.999).Draw(rt, "draw")
		p := ai.NewPolicy(ai.DefaultProfile(), dice.Fixed(draw), nil, zaptest.NewLogger(t))
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			sit := ai.Situation{
				Self: ai.SideState{
					Health:    rapid.IntRange(-50, 150).Draw(rt, "selfHealth"),
					Knowledge: rapid.IntRange(0, 100).Draw(rt, "knowledge"),
				},
				Opponent:    ai.SideState{Health: rapid.IntRange(-50, 150).Draw(rt, "oppHealth")},
				CurrentTurn: rapid.IntRange(1, 10).Draw(rt, "turn"),
				MaxTurns:    10,
			}
			s := p.Choose(sit)
			p.Adapt(s, ai.Outcome{
				Correct:   rapid.Bool().Draw(rt, "correct"),
				Damage:    rapid.IntRange(0, 50).Draw(rt, "damage"),
				Fortified: true,
			})
			w := p.Weights()
			if !w.Valid() || !approx(w.Total(), 1) {
				rt.Fatalf("weights not normalized: %+v", w)
			}
		}
	})
}
