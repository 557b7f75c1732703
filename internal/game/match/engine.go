package match

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/game/ai"
	"github.com/cory-johannsen/quizwar/internal/game/combat"
	"github.com/cory-johannsen/quizwar/internal/game/dice"
	"github.com/cory-johannsen/quizwar/internal/game/question"
)

// Strategist chooses and learns the computer side's strategy.
// *ai.Policy satisfies it.
type Strategist interface {
	Choose(sit ai.Situation) ai.Strategy
	Adapt(s ai.Strategy, out ai.Outcome)
	Reset()
	Weights() ai.Weights
	Traits() ai.Traits
	LastRule() string
}

// ActionKind tags an ActionResult.
type ActionKind int

const (
	ActionAnswer ActionKind = iota
	ActionAttack
	ActionDefend
)

func (k ActionKind) String() string {
	switch k {
	case ActionAnswer:
		return "answer"
	case ActionAttack:
		return "attack"
	case ActionDefend:
		return "defend"
	default:
		return "unknown"
	}
}

// ActionResult reports what an action did. Only the fields for Kind are set.
type ActionResult struct {
	Kind ActionKind

	// answer
	Success bool
	Points  int

	// attack
	TroopsSent int
	Damage     int

	// defend
	Defended bool
}

// AITurn is the result of AITakeTurn.
type AITurn struct {
	Strategy ai.Strategy
	Result   ActionResult
}

// Config carries the tunable engine parameters.
type Config struct {
	MaxTurns int
	// Difficulty defaults to Medium when left unset.
	Difficulty  Difficulty
	LogCapacity int
	// Clock stamps log entries; nil selects time.Now.
	Clock func() time.Time
}

// Engine is the turn engine for a single game.
//
// All methods are safe for concurrent use; one mutex guards the whole
// aggregate so a Snapshot never observes a half-applied action.
type Engine struct {
	mu       sync.Mutex
	bank     *question.Bank
	policy   Strategist
	src      dice.Source
	logger   *zap.Logger
	maxTurns int

	state  State
	home   PlayerRecord
	away   PlayerRecord
	cursor int
	log    *BattleLog
}

// NewEngine constructs an Engine and runs Init.
//
// Precondition: policy, src and logger must not be nil.
// Postcondition: returns question.ErrEmptyBank if bank is nil or empty, or
// ErrInvalidDifficulty if cfg.Difficulty is out of range. An unset difficulty
// plays as Medium.
func NewEngine(bank *question.Bank, policy Strategist, src dice.Source, cfg Config, logger *zap.Logger) (*Engine, error) {
	if bank == nil || bank.Len() == 0 {
		return nil, question.ErrEmptyBank
	}
	if policy == nil {
		panic("match.NewEngine: policy must not be nil")
	}
	if src == nil {
		panic("match.NewEngine: src must not be nil")
	}
	if logger == nil {
		panic("match.NewEngine: logger must not be nil")
	}
	if cfg.Difficulty == DifficultyUnset {
		cfg.Difficulty = Medium
	}
	if !cfg.Difficulty.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDifficulty, int(cfg.Difficulty))
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	e := &Engine{
		bank:     bank,
		policy:   policy,
		src:      src,
		logger:   logger,
		maxTurns: maxTurns,
		log:      NewBattleLog(cfg.LogCapacity, cfg.Clock),
		state:    State{Difficulty: cfg.Difficulty, ControlledSide: Home},
	}
	e.Init()
	return e, nil
}

// Init starts a fresh game.
//
// Postcondition: turn 1, home to act, both records at their starting values,
// policy reset, a uniformly random current question, and a log holding a
// single "game started" entry. Difficulty and ControlledSide are kept.
func (e *Engine) Init() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = State{
		CurrentTurn:    1,
		MaxTurns:       e.maxTurns,
		ActiveSide:     Home,
		Winner:         WinnerNone,
		Difficulty:     e.state.Difficulty,
		ControlledSide: e.state.ControlledSide,
	}
	e.home = NewPlayerRecord()
	e.away = NewPlayerRecord()
	e.policy.Reset()
	e.cursor = e.src.Intn(e.bank.Len())
	e.log.Reset()
	e.log.Append("Game started! Home goes first.")
	e.logger.Debug("game initialized",
		zap.Int("question", e.cursor),
		zap.Stringer("difficulty", e.state.Difficulty),
		zap.Stringer("controlled", e.state.ControlledSide),
	)
}

// Snapshot returns a deep copy of the full game state.
//
// Postcondition: mutating the result never affects the engine, and two calls
// with no mutation in between return equal values.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := Snapshot{
		State:         e.state,
		Home:          e.home,
		Away:          e.away,
		Question:      e.bank.At(e.cursor),
		QuestionIndex: e.cursor,
		Log:           e.log.Entries(),
		Strategy: StrategyView{
			Weights:  e.policy.Weights(),
			Traits:   e.policy.Traits(),
			Dominant: e.policy.Weights().Dominant(),
			LastRule: e.policy.LastRule(),
		},
	}
	if e.state.GameOver {
		s.Summary = summarize(e.state, e.home, e.away)
	}
	return s
}

// guard checks game-over first, then turn ownership.
func (e *Engine) guard(side Side) error {
	if e.state.GameOver {
		return ErrGameOver
	}
	if e.state.ActiveSide != side {
		return ErrNotYourTurn
	}
	return nil
}

func (e *Engine) record(side Side) *PlayerRecord {
	if side == Home {
		return &e.home
	}
	return &e.away
}

// AnswerQuestion answers the current question for the home side.
//
// Precondition: home is active and the game is not over.
// Postcondition: on a correct option score +10 and knowledge +5; the question
// cursor advances by one and the turn passes to away either way.
func (e *Engine) AnswerQuestion(option int) (ActionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(Home); err != nil {
		return ActionResult{}, err
	}
	res := e.answer(Home, e.bank.At(e.cursor).IsCorrect(option))
	e.advanceTurn()
	return res, nil
}

// SendTroops attacks the away side with up to requested home troops.
//
// Precondition: home is active and the game is not over.
// Postcondition: if min(requested, troops) <= 0, logs "no troops" and returns
// ErrNoTroops without advancing; otherwise troops are spent, damage applied,
// half the damage credited to home's score, and the turn advances.
func (e *Engine) SendTroops(requested int) (ActionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(Home); err != nil {
		return ActionResult{}, err
	}
	troops := min(requested, e.home.Troops)
	if troops <= 0 {
		e.log.Append("Home has no troops to send!")
		return ActionResult{}, ErrNoTroops
	}
	res := e.attack(Home, troops)
	e.advanceTurn()
	return res, nil
}

// DefendHouse fortifies the home side.
//
// Precondition: home is active and the game is not over.
// Postcondition: home is fortified with defense +20 and the turn advances.
func (e *Engine) DefendHouse() (ActionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(Home); err != nil {
		return ActionResult{}, err
	}
	res := e.defend(Home)
	e.advanceTurn()
	return res, nil
}

// AITakeTurn lets the policy choose and execute the away side's action,
// feeds the outcome back to the policy, and advances the turn.
//
// Precondition: away is active and the game is not over.
func (e *Engine) AITakeTurn() (AITurn, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.guard(Away); err != nil {
		return AITurn{}, err
	}

	strategy := e.policy.Choose(e.situation())
	var (
		res ActionResult
		out ai.Outcome
	)
	switch strategy {
	case ai.Answer:
		res = e.answer(Away, e.src.Float64() < e.state.Difficulty.CorrectChance())
		out.Correct = res.Success
	case ai.Attack:
		troops := combat.SampleTroops(e.away.Troops, e.src)
		if troops <= 0 {
			e.log.Append("Away has no troops to send!")
			res = ActionResult{Kind: ActionAttack}
		} else {
			res = e.attack(Away, troops)
		}
		out.Damage = res.Damage
	default:
		res = e.defend(Away)
		out.Fortified = res.Defended
	}
	e.policy.Adapt(strategy, out)
	e.logger.Debug("ai turn",
		zap.Stringer("strategy", strategy),
		zap.String("override", e.policy.LastRule()),
		zap.Int("turn", e.state.CurrentTurn),
	)
	e.advanceTurn()
	return AITurn{Strategy: strategy, Result: res}, nil
}

// situation presents the away side's view to the policy.
func (e *Engine) situation() ai.Situation {
	view := func(p PlayerRecord) ai.SideState {
		return ai.SideState{
			Health:    p.Health,
			Defense:   p.Defense,
			Troops:    p.Troops,
			Knowledge: p.Knowledge,
			Score:     p.Score,
		}
	}
	return ai.Situation{
		Self:        view(e.away),
		Opponent:    view(e.home),
		CurrentTurn: e.state.CurrentTurn,
		MaxTurns:    e.state.MaxTurns,
	}
}

func (e *Engine) answer(side Side, correct bool) ActionResult {
	rec := e.record(side)
	res := ActionResult{Kind: ActionAnswer, Success: correct}
	if correct {
		res.Points = PointsPerAnswer
		rec.Score += PointsPerAnswer
		rec.Knowledge += KnowledgePerAnswer
		e.log.Append(fmt.Sprintf("%s answered correctly! +%d points. Knowledge increased.", label(side), PointsPerAnswer))
	} else {
		e.log.Append(fmt.Sprintf("%s answered incorrectly. No points gained.", label(side)))
	}
	e.cursor = (e.cursor + 1) % e.bank.Len()
	e.logger.Debug("answer",
		zap.Stringer("side", side),
		zap.Bool("correct", correct),
		zap.Int("turn", e.state.CurrentTurn),
	)
	return res
}

func (e *Engine) attack(side Side, troops int) ActionResult {
	atk, def := e.record(side), e.record(side.Other())
	atk.Troops -= troops
	out := combat.Resolve(troops, combat.Defender{Defense: def.Defense, Fortified: def.HouseDefended})
	if out.Halved {
		e.log.Append(fmt.Sprintf("%s sent %d troops! %s's defense reduced damage by 50%%.", label(side), troops, label(side.Other())))
	} else {
		e.log.Append(fmt.Sprintf("%s sent %d troops! Attacking %s's house.", label(side), troops, label(side.Other())))
	}
	def.Health -= out.Damage
	atk.Score += out.ScoreCredit()
	if out.Blocked() {
		e.log.Append(fmt.Sprintf("Attack blocked by %s's defense.", label(side.Other())))
	} else {
		e.log.Append(fmt.Sprintf("Attack successful! %s lost %d health.", label(side.Other()), out.Damage))
	}
	e.logger.Debug("attack",
		zap.Stringer("side", side),
		zap.Int("troops", troops),
		zap.Int("damage", out.Damage),
		zap.Int("turn", e.state.CurrentTurn),
	)
	return ActionResult{Kind: ActionAttack, TroopsSent: troops, Damage: out.Damage}
}

func (e *Engine) defend(side Side) ActionResult {
	rec := e.record(side)
	rec.HouseDefended = true
	rec.Defense += DefenseBonus
	e.log.Append(fmt.Sprintf("%s fortified their house! Defense increased.", label(side)))
	e.logger.Debug("defend",
		zap.Stringer("side", side),
		zap.Int("defense", rec.Defense),
		zap.Int("turn", e.state.CurrentTurn),
	)
	return ActionResult{Kind: ActionDefend, Defended: true}
}

// advanceTurn hands the turn to the other side. An away to home hand-off
// increments CurrentTurn and ends the game once it passes MaxTurns. Only the
// side whose turn is starting has its fortification cleared, so a defense
// raised on one turn holds through the opponent's reply.
func (e *Engine) advanceTurn() {
	if e.state.GameOver {
		return
	}
	next := e.state.ActiveSide.Other()
	e.state.ActiveSide = next
	if next == Home {
		e.state.CurrentTurn++
		if e.state.CurrentTurn > e.state.MaxTurns {
			e.endGame()
			return
		}
	}
	e.record(next).HouseDefended = false
	e.log.Append(fmt.Sprintf("Turn %d: %s's turn", e.state.CurrentTurn, label(next)))
}

// endGame marks the game over and names the side with the strictly higher
// score, or a draw.
func (e *Engine) endGame() {
	e.state.GameOver = true
	switch {
	case e.home.Score > e.away.Score:
		e.state.Winner = WinnerHome
		e.log.Append(fmt.Sprintf("Game over! Home wins with %g points!", e.home.Score))
	case e.away.Score > e.home.Score:
		e.state.Winner = WinnerAway
		e.log.Append(fmt.Sprintf("Game over! Away wins with %g points!", e.away.Score))
	default:
		e.state.Winner = WinnerDraw
		e.log.Append(fmt.Sprintf("Game over! It's a draw with %g points each!", e.home.Score))
	}
	e.logger.Info("game over",
		zap.Stringer("winner", e.state.Winner),
		zap.Float64("home_score", e.home.Score),
		zap.Float64("away_score", e.away.Score),
		zap.Int("turn", e.state.CurrentTurn),
	)
}

// EndGame ends the game immediately and scores it as if the turn budget had
// run out.
//
// Postcondition: returns ErrGameOver if the game has already ended.
func (e *Engine) EndGame() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.GameOver {
		return ErrGameOver
	}
	e.log.Append("Game ended early.")
	e.endGame()
	return nil
}

// SetDifficulty changes the computer side's answer accuracy.
//
// Postcondition: returns ErrInvalidDifficulty and changes nothing if d is
// outside the closed enum.
func (e *Engine) SetDifficulty(d Difficulty) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !d.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidDifficulty, int(d))
	}
	e.state.Difficulty = d
	e.log.Append(fmt.Sprintf("Difficulty set to %s", d))
	return nil
}

// SetControlledSide records which side the human operates.
//
// Postcondition: returns ErrInvalidSide and changes nothing if s is invalid.
func (e *Engine) SetControlledSide(s Side) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !s.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSide, int(s))
	}
	e.state.ControlledSide = s
	e.log.Append(fmt.Sprintf("Player now controls %s side", label(s)))
	return nil
}

// SwapSides exchanges the two player records wholesale.
func (e *Engine) SwapSides() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.home, e.away = e.away, e.home
	e.log.Append("Player controls swapped - home side is now computer-controlled and vice versa")
}

func label(s Side) string {
	switch s {
	case Home:
		return "Home"
	case Away:
		return "Away"
	}
	return s.String()
}
