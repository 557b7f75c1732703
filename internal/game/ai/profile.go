// Package ai implements the adaptive strategy policy for the computer side.
//
// A Profile declares initial weights, a learning rate and an ordered override
// chain. Before every decision the first matching override replaces the weight
// vector; after every action a successful strategy is nudged upward. Override
// conditions are either built-in threshold checks or Lua hooks.
package ai

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_profile.yaml
var defaultProfileYAML []byte

// RuleKind names the condition an override rule tests.
type RuleKind string

const (
	SelfHealthBelow      RuleKind = "self_health_below"
	OpponentHealthBelow  RuleKind = "opponent_health_below"
	SelfKnowledgeBelow   RuleKind = "self_knowledge_below"
	TurnRatioAbove       RuleKind = "turn_ratio_above"
	SelfHealthRatioBelow RuleKind = "self_health_ratio_below"
	Script               RuleKind = "script"
)

var validKinds = map[RuleKind]bool{
	SelfHealthBelow:      true,
	OpponentHealthBelow:  true,
	SelfKnowledgeBelow:   true,
	TurnRatioAbove:       true,
	SelfHealthRatioBelow: true,
	Script:               true,
}

// Rule is one link of the override chain.
//
// Precondition: Hook is required when When == Script and ignored otherwise.
type Rule struct {
	ID        string   `yaml:"id"`
	When      RuleKind `yaml:"when"`
	Threshold float64  `yaml:"threshold"`
	Hook      string   `yaml:"hook"`
	Weights   Weights  `yaml:"weights"`
}

// matches evaluates the built-in condition against sit. Script rules are
// evaluated by the Policy and never match here.
func (r *Rule) matches(sit Situation) bool {
	switch r.When {
	case SelfHealthBelow:
		return float64(sit.Self.Health) < r.Threshold
	case OpponentHealthBelow:
		return float64(sit.Opponent.Health) < r.Threshold
	case SelfKnowledgeBelow:
		return float64(sit.Self.Knowledge) < r.Threshold
	case TurnRatioAbove:
		return sit.TurnRatio() > r.Threshold
	case SelfHealthRatioBelow:
		return sit.Self.HealthRatio() < r.Threshold
	}
	return false
}

// Profile is a complete, named strategy configuration.
//
// Invariant: rule IDs are unique; Rules are evaluated in declaration order.
type Profile struct {
	ID           string  `yaml:"id"`
	Description  string  `yaml:"description"`
	LearningRate float64 `yaml:"learning_rate"`
	Initial      Weights `yaml:"initial"`
	Rules        []*Rule `yaml:"rules"`
}

// Validate checks all required fields and cross-field constraints.
//
// Postcondition: nil return guarantees a non-empty ID, a non-negative
// learning rate, valid initial weights with a positive total, and rules with
// unique non-empty IDs, known kinds, valid weights and hooks where required.
func (p *Profile) Validate() error {
	if p.ID == "" {
		return errors.New("ai.Profile: ID must not be empty")
	}
	if p.LearningRate < 0 {
		return fmt.Errorf("ai.Profile %q: learning_rate must be >= 0, got %v", p.ID, p.LearningRate)
	}
	if !p.Initial.Valid() || p.Initial.Total() <= 0 {
		return fmt.Errorf("ai.Profile %q: initial weights must be non-negative with a positive total", p.ID)
	}
	ids := make(map[string]struct{}, len(p.Rules))
	for i, r := range p.Rules {
		if r == nil || r.ID == "" {
			return fmt.Errorf("ai.Profile %q: rule %d has empty ID", p.ID, i)
		}
		if _, dup := ids[r.ID]; dup {
			return fmt.Errorf("ai.Profile %q: duplicate rule ID %q", p.ID, r.ID)
		}
		ids[r.ID] = struct{}{}
		if !validKinds[r.When] {
			return fmt.Errorf("ai.Profile %q rule %q: unknown condition %q", p.ID, r.ID, r.When)
		}
		if r.When == Script && r.Hook == "" {
			return fmt.Errorf("ai.Profile %q rule %q: script rules require a hook", p.ID, r.ID)
		}
		if !r.Weights.Valid() {
			return fmt.Errorf("ai.Profile %q rule %q: weights must be non-negative", p.ID, r.ID)
		}
	}
	return nil
}

// HasScriptRules reports whether any rule needs a script caller.
func (p *Profile) HasScriptRules() bool {
	for _, r := range p.Rules {
		if r.When == Script {
			return true
		}
	}
	return false
}

// yamlProfileFile wraps the YAML top-level key.
type yamlProfileFile struct {
	Profile *Profile `yaml:"profile"`
}

// ParseProfile decodes and validates a single profile document.
func ParseProfile(data []byte) (*Profile, error) {
	var f yamlProfileFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("ai.ParseProfile: %w", err)
	}
	if f.Profile == nil {
		return nil, errors.New("ai.ParseProfile: missing top-level 'profile' key")
	}
	if err := f.Profile.Validate(); err != nil {
		return nil, err
	}
	return f.Profile, nil
}

// LoadProfile reads and validates the profile at path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ai.LoadProfile: reading %q: %w", path, err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// LoadProfiles reads all *.yaml files from dir and returns parsed Profiles.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any YAML file fails to parse or validate.
// Postcondition: returns (nil, nil) if dir contains no .yaml files.
func LoadProfiles(dir string) ([]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ai.LoadProfiles: reading %q: %w", dir, err)
	}
	var profiles []*Profile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		p, err := LoadProfile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// DefaultProfile returns a fresh copy of the built-in profile: weights
// {0.4, 0.4, 0.2}, learning rate 0.05 and the five-rule override chain.
func DefaultProfile() *Profile {
	p, err := ParseProfile(defaultProfileYAML)
	if err != nil {
		panic("ai: embedded default profile is invalid: " + err.Error())
	}
	return p
}
