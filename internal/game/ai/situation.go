package ai

// BaseHealth is the health a side starts with; health ratios are relative to it.
const BaseHealth = 100

// SideState captures one side's stats at decision time.
type SideState struct {
	Health    int
	Defense   int
	Troops    int
	Knowledge int
	Score     float64
}

// HealthRatio returns Health relative to BaseHealth.
func (s SideState) HealthRatio() float64 {
	return float64(s.Health) / BaseHealth
}

// Situation is the snapshot the policy decides from.
type Situation struct {
	Self        SideState
	Opponent    SideState
	CurrentTurn int
	MaxTurns    int
}

// TurnRatio returns CurrentTurn / MaxTurns; 0 if MaxTurns <= 0.
func (s Situation) TurnRatio() float64 {
	if s.MaxTurns <= 0 {
		return 0
	}
	return float64(s.CurrentTurn) / float64(s.MaxTurns)
}

// Outcome is the result of executing a strategy, fed back into Adapt.
type Outcome struct {
	// Correct is true when an answer was right.
	Correct bool
	// Damage is the health removed by an attack.
	Damage int
	// Fortified is true when a defend left the house fortified.
	Fortified bool
}

// Succeeded reports whether the outcome counts as a success for s:
// answer iff correct, attack iff damage > 0, defend iff fortified.
func (o Outcome) Succeeded(s Strategy) bool {
	switch s {
	case Answer:
		return o.Correct
	case Attack:
		return o.Damage > 0
	case Defend:
		return o.Fortified
	}
	return false
}
