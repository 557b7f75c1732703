package ai_test

import (
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"

	"github.com/cory-johannsen/quizwar/internal/game/ai"
)

const minimalProfileYAML = `profile:
  id: cautious
  learning_rate: 0.1
  initial:
    answer: 0.5
    attack: 0.2
    defend: 0.3
  rules:
    - id: hold_on
      when: self_health_below
      threshold: 50
      weights:
        answer: 0.1
        attack: 0.1
        defend: 0.8
    - id: lua_check
      when: script
      hook: should_rush
      weights:
        attack: 1
`

func TestDefaultProfile_Shape(t *testing.T) {
	p := ai.DefaultProfile()
	if p.ID != "default" || p.LearningRate != 0.05 {
		t.Fatalf("unexpected profile header %+v", p)
	}
	want := []string{"desperation_defense", "opportunistic_attack", "catch_up_learning", "endgame_aggression", "survival_caution"}
	if len(p.Rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(p.Rules))
	}
	for i, id := range want {
		if p.Rules[i].ID != id {
			t.Fatalf("rule %d: want %q, got %q", i, id, p.Rules[i].ID)
		}
	}
	if p.HasScriptRules() {
		t.Fatal("default profile has no script rules")
	}
}

func TestDefaultProfile_ReturnsFreshCopy(t *testing.T) {
	a := ai.DefaultProfile()
	a.Rules[0].Threshold = 99
	if ai.DefaultProfile().Rules[0].Threshold == 99 {
		t.Fatal("DefaultProfile must not share state")
	}
}

func TestParseProfile_Minimal(t *testing.T) {
	p, err := ai.ParseProfile([]byte(minimalProfileYAML))
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	if !p.HasScriptRules() {
		t.Fatal("expected script rule")
	}
	r := p.Rules[len(p.Rules)-1]
	if r.ID != "lua_check" || r.Hook != "should_rush" || r.Weights.Attack != 1 {
		t.Fatalf("unexpected rule %+v", r)
	}
	if ai.DefaultProfile().HasScriptRules() {
		t.Fatal("built-in profile must not need a script caller")
	}
}

func TestParseProfile_MissingKey(t *testing.T) {
	if _, err := ai.ParseProfile([]byte("id: x\n")); err == nil {
		t.Fatal("expected error for missing profile key")
	}
}

func TestParseProfile_BadYAML(t *testing.T) {
	if _, err := ai.ParseProfile([]byte("profile: [")); err == nil {
		t.Fatal("expected YAML error")
	}
}

func TestProfile_Validate_Rejections(t *testing.T) {
	base := func() *ai.Profile {
		return &ai.Profile{ID: "p", LearningRate: 0.05, Initial: ai.Weights{Answer: 1}}
	}
	cases := map[string]func(*ai.Profile){
		"empty id":       func(p *ai.Profile) { p.ID = "" },
		"negative rate":  func(p *ai.Profile) { p.LearningRate = -1 },
		"zero initial":   func(p *ai.Profile) { p.Initial = ai.Weights{} },
		"negative init":  func(p *ai.Profile) { p.Initial.Attack = -1 },
		"empty rule id":  func(p *ai.Profile) { p.Rules = []*ai.Rule{{When: ai.SelfHealthBelow}} },
		"nil rule":       func(p *ai.Profile) { p.Rules = []*ai.Rule{nil} },
		"unknown kind":   func(p *ai.Profile) { p.Rules = []*ai.Rule{{ID: "r", When: "moon_phase"}} },
		"script no hook": func(p *ai.Profile) { p.Rules = []*ai.Rule{{ID: "r", When: ai.Script}} },
		"bad weights": func(p *ai.Profile) {
			p.Rules = []*ai.Rule{{ID: "r", When: ai.SelfHealthBelow, Weights: ai.Weights{Defend: -2}}}
		},
		"duplicate rule": func(p *ai.Profile) {
			p.Rules = []*ai.Rule{{ID: "r", When: ai.SelfHealthBelow}, {ID: "r", When: ai.TurnRatioAbove}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base()
			mutate(p)
			if err := p.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("base profile should be valid: %v", err)
	}
}

func TestLoadProfiles_ReadsYAMLOnly(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "cautious.yaml"), []byte(minimalProfileYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}
	profiles, err := ai.LoadProfiles(dir)
	if err != nil {
		t.Fatalf("LoadProfiles: %v", err)
	}
	if len(profiles) != 1 || profiles[0].ID != "cautious" {
		t.Fatalf("unexpected profiles %v", profiles)
	}
}

func TestLoadProfiles_PropagatesErrors(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("profile:\n  id: \"\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ai.LoadProfiles(dir); err == nil {
		t.Fatal("expected error for invalid profile")
	}
	if _, err := ai.LoadProfiles(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing dir")
	}
}

func TestProperty_Profile_ValidWeightsAlwaysValidate(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		p := &ai.Profile{
			ID:           rapid.StringMatching(`[a-z]{1,10}`).Draw(rt, "id"),
			LearningRate: rapid.Float64Range(0, 1).Draw(rt, "rate"),
			Initial: ai.Weights{
				Answer: rapid.Float64Range(0.01, 5).Draw(rt, "answer"),
				Attack: rapid.Float64Range(0, 5).Draw(rt, "attack"),
				Defend: rapid.Float64Range(0, 5).Draw(rt, "defend"),
			},
		}
		if err := p.Validate(); err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}
	})
}
