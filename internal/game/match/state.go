// Package match implements the turn engine: the two-sided state machine that
// enforces turn ownership, applies answer, attack and defend actions,
// and ends the game once the turn budget is spent.
package match

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by Engine operations. Every failed call leaves the
// engine unchanged unless documented otherwise.
var (
	ErrNotYourTurn       = errors.New("match: not this side's turn")
	ErrGameOver          = errors.New("match: game is over")
	ErrNoTroops          = errors.New("match: no troops to send")
	ErrInvalidDifficulty = errors.New("match: invalid difficulty")
	ErrInvalidSide       = errors.New("match: invalid side")
)

// Default game parameters.
const (
	DefaultMaxTurns    = 20
	DefaultLogCapacity = 20

	StartingHealth  = 100
	StartingDefense = 50
	StartingTroops  = 10

	PointsPerAnswer    = 10
	KnowledgePerAnswer = 5
	DefenseBonus       = 20
)

// Side identifies one of the two contestants.
type Side int

const (
	Home Side = iota
	Away
)

// String returns "home" or "away".
func (s Side) String() string {
	switch s {
	case Home:
		return "home"
	case Away:
		return "away"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Valid reports whether s is Home or Away.
func (s Side) Valid() bool { return s == Home || s == Away }

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == Home {
		return Away
	}
	return Home
}

// ParseSide maps "home" or "away" to a Side.
//
// Postcondition: returns ErrInvalidSide for any other input.
func ParseSide(name string) (Side, error) {
	switch name {
	case "home":
		return Home, nil
	case "away":
		return Away, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidSide, name)
}

// Winner is the terminal verdict of a game.
type Winner int

const (
	WinnerNone Winner = iota
	WinnerHome
	WinnerAway
	WinnerDraw
)

func (w Winner) String() string {
	switch w {
	case WinnerHome:
		return "home"
	case WinnerAway:
		return "away"
	case WinnerDraw:
		return "draw"
	default:
		return "none"
	}
}

// Difficulty scales how often the computer side answers correctly.
type Difficulty int

// DifficultyUnset is the zero value. NewEngine resolves it to Medium; it is
// never a game's difficulty.
const (
	DifficultyUnset Difficulty = iota
	Easy
	Medium
	Hard
)

// String returns the lower-case difficulty name.
func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

// Valid reports whether d is one of Easy, Medium, Hard.
func (d Difficulty) Valid() bool { return d >= Easy && d <= Hard }

// CorrectChance returns the probability that the computer side answers
// correctly: easy 0.6, medium 0.75, hard 0.9, and 0.75 for anything else.
func (d Difficulty) CorrectChance() float64 {
	switch d {
	case Easy:
		return 0.6
	case Hard:
		return 0.9
	default:
		return 0.75
	}
}

// ParseDifficulty maps "easy", "medium" or "hard" to a Difficulty.
//
// Postcondition: returns ErrInvalidDifficulty for any other input.
func ParseDifficulty(name string) (Difficulty, error) {
	switch name {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDifficulty, name)
}

// State is the turn bookkeeping of a game.
//
// Invariant: GameOver implies Winner != WinnerNone; CurrentTurn >= 1 and never
// decreases.
type State struct {
	CurrentTurn    int
	MaxTurns       int
	ActiveSide     Side
	GameOver       bool
	Winner         Winner
	Difficulty     Difficulty
	ControlledSide Side
}

// PlayerRecord holds one side's mutable stats.
//
// Health may drop below zero; use DisplayHealth for presentation.
type PlayerRecord struct {
	Score         float64
	Health        int
	Defense       int
	Troops        int
	Knowledge     int
	HouseDefended bool
}

// NewPlayerRecord returns the starting record
// {score 0, health 100, defense 50, troops 10, knowledge 0, not defended}.
func NewPlayerRecord() PlayerRecord {
	return PlayerRecord{
		Health:  StartingHealth,
		Defense: StartingDefense,
		Troops:  StartingTroops,
	}
}

// DisplayHealth returns Health clamped at zero.
func (p PlayerRecord) DisplayHealth() int {
	if p.Health < 0 {
		return 0
	}
	return p.Health
}
