package gameserver

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/game/ai"
	"github.com/cory-johannsen/quizwar/internal/game/dice"
	"github.com/cory-johannsen/quizwar/internal/game/match"
	"github.com/cory-johannsen/quizwar/internal/game/question"
)

// ErrUnknownProfile is returned when a game names a strategy profile that is
// not registered.
var ErrUnknownProfile = errors.New("unknown strategy profile")

// GameOptions are the per-game overrides a client may request.
// Zero values select the factory defaults.
type GameOptions struct {
	Profile    string
	Difficulty string
	MaxTurns   int
}

// EngineFactory builds a fresh Engine and Policy for every hosted game.
type EngineFactory struct {
	bank           *question.Bank
	profiles       *ai.Registry
	defaultProfile string
	scripts        ai.ScriptCaller
	src            dice.Source
	cfg            match.Config
	logger         *zap.Logger
}

// NewEngineFactory validates its inputs and returns an EngineFactory.
//
// Precondition: bank, profiles, src and logger must be non-nil. scripts may
// be nil, in which case script override rules never fire.
// Postcondition: Returns ErrUnknownProfile if defaultProfile is not registered.
func NewEngineFactory(
	bank *question.Bank,
	profiles *ai.Registry,
	defaultProfile string,
	scripts ai.ScriptCaller,
	src dice.Source,
	cfg match.Config,
	logger *zap.Logger,
) (*EngineFactory, error) {
	if bank == nil || profiles == nil || src == nil || logger == nil {
		panic("gameserver.NewEngineFactory: bank, profiles, src and logger must not be nil")
	}
	if _, ok := profiles.ProfileFor(defaultProfile); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, defaultProfile)
	}
	return &EngineFactory{
		bank:           bank,
		profiles:       profiles,
		defaultProfile: defaultProfile,
		scripts:        scripts,
		src:            src,
		cfg:            cfg,
		logger:         logger,
	}, nil
}

// New builds an initialized Engine for opts.
//
// Postcondition: Returns ErrUnknownProfile or match.ErrInvalidDifficulty for
// bad options, otherwise an Engine ready for Home's first move.
func (f *EngineFactory) New(opts GameOptions) (*match.Engine, error) {
	id := opts.Profile
	if id == "" {
		id = f.defaultProfile
	}
	profile, ok := f.profiles.ProfileFor(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, id)
	}

	cfg := f.cfg
	if opts.Difficulty != "" {
		d, err := match.ParseDifficulty(opts.Difficulty)
		if err != nil {
			return nil, err
		}
		cfg.Difficulty = d
	}
	if opts.MaxTurns > 0 {
		cfg.MaxTurns = opts.MaxTurns
	}

	logger := f.logger.With(zap.String("profile", profile.ID))
	policy := ai.NewPolicy(profile, f.src, f.scripts, logger)
	return match.NewEngine(f.bank, policy, f.src, cfg, logger)
}

// Profiles returns the registered strategy profile IDs.
func (f *EngineFactory) Profiles() []string {
	return f.profiles.IDs()
}
