package match

import "math"

// Rating returns a 0..100 performance rating for rec over a game of
// totalTurns turns. Score, health and knowledge contribute on top of a base
// of 50.
func Rating(rec PlayerRecord, totalTurns int) int {
	if totalTurns <= 0 {
		totalTurns = DefaultMaxTurns
	}
	rating := 50.0

	maxScore := float64(totalTurns * 15)
	rating += math.Min(rec.Score/maxScore, 1) * 30

	rating += float64(rec.Health) / StartingHealth * 10

	maxKnowledge := float64(totalTurns * KnowledgePerAnswer)
	rating += math.Min(float64(rec.Knowledge)/maxKnowledge, 1) * 10

	r := int(math.Floor(rating))
	switch {
	case r > 100:
		return 100
	case r < 0:
		return 0
	}
	return r
}

// WinMargin returns how far winnerScore exceeds loserScore as a rounded
// percentage of loserScore; a zero loser score yields 100.
func WinMargin(winnerScore, loserScore float64) int {
	if loserScore == 0 {
		return 100
	}
	return int(math.Round((winnerScore - loserScore) / loserScore * 100))
}

// Summary is the end-of-game report.
type Summary struct {
	Winner     Winner
	HomeRating int
	AwayRating int
	// WinMargin is 0 on a draw.
	WinMargin int
}

func summarize(st State, home, away PlayerRecord) *Summary {
	s := &Summary{
		Winner:     st.Winner,
		HomeRating: Rating(home, st.MaxTurns),
		AwayRating: Rating(away, st.MaxTurns),
	}
	switch st.Winner {
	case WinnerHome:
		s.WinMargin = WinMargin(home.Score, away.Score)
	case WinnerAway:
		s.WinMargin = WinMargin(away.Score, home.Score)
	}
	return s
}
