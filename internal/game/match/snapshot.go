package match

import (
	"github.com/cory-johannsen/quizwar/internal/game/ai"
	"github.com/cory-johannsen/quizwar/internal/game/question"
)

// StrategyView exposes the computer side's current policy for display.
type StrategyView struct {
	Weights  ai.Weights
	Traits   ai.Traits
	Dominant ai.Strategy
	// LastRule is the override that fired on the last decision, or "".
	LastRule string
}

// Snapshot is a self-contained copy of an Engine's state.
type Snapshot struct {
	State         State
	Home          PlayerRecord
	Away          PlayerRecord
	Question      question.Question
	QuestionIndex int
	Log           []Entry
	Strategy      StrategyView
	// Summary is set once the game is over.
	Summary *Summary
}

// Record returns the record for side.
func (s Snapshot) Record(side Side) PlayerRecord {
	if side == Home {
		return s.Home
	}
	return s.Away
}

// LogLines renders every log entry.
func (s Snapshot) LogLines() []string {
	lines := make([]string, len(s.Log))
	for i, e := range s.Log {
		lines[i] = e.String()
	}
	return lines
}
