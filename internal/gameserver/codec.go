package gameserver

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/quizwar/internal/game/ai"
	"github.com/cory-johannsen/quizwar/internal/game/match"
)

// Request and response field names.
const (
	FieldGameID     = "game_id"
	FieldProfile    = "profile"
	FieldDifficulty = "difficulty"
	FieldMaxTurns   = "max_turns"
	FieldOption     = "option"
	FieldTroops     = "troops"
	FieldSide       = "side"
	FieldSnapshot   = "snapshot"
	FieldResult     = "result"
	FieldStrategy   = "strategy"
)

// fieldError reports a missing or malformed request field.
type fieldError struct {
	field  string
	reason string
}

func (e *fieldError) Error() string {
	return fmt.Sprintf("field %q %s", e.field, e.reason)
}

func stringField(req *structpb.Struct, name string) (string, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return "", &fieldError{field: name, reason: "is required"}
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", &fieldError{field: name, reason: "must be a string"}
	}
	return s.StringValue, nil
}

func optionalString(req *structpb.Struct, name string) (string, error) {
	if _, ok := req.GetFields()[name]; !ok {
		return "", nil
	}
	return stringField(req, name)
}

func intField(req *structpb.Struct, name string) (int, error) {
	v, ok := req.GetFields()[name]
	if !ok {
		return 0, &fieldError{field: name, reason: "is required"}
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, &fieldError{field: name, reason: "must be a number"}
	}
	f := n.NumberValue
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return 0, &fieldError{field: name, reason: "must be an integer"}
	}
	return int(f), nil
}

func optionalInt(req *structpb.Struct, name string) (int, error) {
	if _, ok := req.GetFields()[name]; !ok {
		return 0, nil
	}
	return intField(req, name)
}

func recordMap(p match.PlayerRecord) map[string]any {
	return map[string]any{
		"score":          p.Score,
		"health":         p.DisplayHealth(),
		"defense":        p.Defense,
		"troops":         p.Troops,
		"knowledge":      p.Knowledge,
		"house_defended": p.HouseDefended,
	}
}

func weightsMap(w ai.Weights) map[string]any {
	return map[string]any{
		ai.Answer.String(): w.Answer,
		ai.Attack.String(): w.Attack,
		ai.Defend.String(): w.Defend,
	}
}

// snapshotMap renders a snapshot for clients. The correct answer index is
// never included.
func snapshotMap(gameID string, s match.Snapshot) map[string]any {
	options := make([]any, len(s.Question.Options))
	for i, o := range s.Question.Options {
		options[i] = o
	}
	lines := s.LogLines()
	logLines := make([]any, len(lines))
	for i, l := range lines {
		logLines[i] = l
	}

	m := map[string]any{
		FieldGameID:       gameID,
		"turn":            s.State.CurrentTurn,
		FieldMaxTurns:     s.State.MaxTurns,
		"active_side":     s.State.ActiveSide.String(),
		"game_over":       s.State.GameOver,
		"winner":          s.State.Winner.String(),
		FieldDifficulty:   s.State.Difficulty.String(),
		"controlled_side": s.State.ControlledSide.String(),
		"home":            recordMap(s.Home),
		"away":            recordMap(s.Away),
		"question": map[string]any{
			"index":   s.QuestionIndex,
			"text":    s.Question.Text,
			"options": options,
		},
		"log": logLines,
		FieldStrategy: map[string]any{
			"weights":   weightsMap(s.Strategy.Weights),
			"dominant":  s.Strategy.Dominant.String(),
			"last_rule": s.Strategy.LastRule,
			"traits": map[string]any{
				"knowledge":     s.Strategy.Traits.Knowledge,
				"aggression":    s.Strategy.Traits.Aggression,
				"defensiveness": s.Strategy.Traits.Defensiveness,
			},
		},
	}
	if s.Summary != nil {
		m["summary"] = map[string]any{
			"winner":      s.Summary.Winner.String(),
			"home_rating": s.Summary.HomeRating,
			"away_rating": s.Summary.AwayRating,
			"win_margin":  s.Summary.WinMargin,
		}
	}
	return m
}

func resultMap(r match.ActionResult) map[string]any {
	m := map[string]any{"kind": r.Kind.String()}
	switch r.Kind {
	case match.ActionAnswer:
		m["success"] = r.Success
		m["points"] = r.Points
	case match.ActionAttack:
		m["troops_sent"] = r.TroopsSent
		m["damage"] = r.Damage
	case match.ActionDefend:
		m["defended"] = r.Defended
	}
	return m
}

func snapshotStruct(gameID string, s match.Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{FieldSnapshot: snapshotMap(gameID, s)})
}

func actionStruct(gameID string, r match.ActionResult, s match.Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		FieldResult:   resultMap(r),
		FieldSnapshot: snapshotMap(gameID, s),
	})
}

func aiTurnStruct(gameID string, t match.AITurn, s match.Snapshot) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		FieldStrategy: t.Strategy.String(),
		FieldResult:   resultMap(t.Result),
		FieldSnapshot: snapshotMap(gameID, s),
	})
}
