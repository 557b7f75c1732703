// Package bootstrap builds the shared game dependencies described by a
// config.Config: the question bank, strategy profiles, Lua override hooks,
// randomness and engine settings.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/config"
	"github.com/cory-johannsen/quizwar/internal/game/ai"
	"github.com/cory-johannsen/quizwar/internal/game/dice"
	"github.com/cory-johannsen/quizwar/internal/game/match"
	"github.com/cory-johannsen/quizwar/internal/game/question"
	"github.com/cory-johannsen/quizwar/internal/scripting"
	"github.com/cory-johannsen/quizwar/internal/storage/postgres"
)

// Profiles is the registered strategy profiles plus the one new games use
// when they name none.
type Profiles struct {
	Registry *ai.Registry
	Default  string
}

// NewQuestionBank loads the bank selected by cfg.Questions.
//
// Precondition: cfg must have passed Validate.
// Postcondition: Returns a non-empty bank or a non-nil error.
func NewQuestionBank(ctx context.Context, cfg config.Config, logger *zap.Logger) (*question.Bank, error) {
	var (
		bank *question.Bank
		err  error
	)
	switch cfg.Questions.Source {
	case config.SourceBuiltin:
		bank = question.Default()
	case config.SourceFile:
		bank, err = question.LoadFile(cfg.Questions.Path)
	case config.SourcePostgres:
		bank, err = loadBankFromDB(ctx, cfg)
	default:
		err = fmt.Errorf("unknown question source %q", cfg.Questions.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("loading question bank: %w", err)
	}
	logger.Info("question bank loaded",
		zap.String("source", cfg.Questions.Source),
		zap.Int("questions", bank.Len()),
	)
	return bank, nil
}

func loadBankFromDB(ctx context.Context, cfg config.Config) (*question.Bank, error) {
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	defer pool.Close()
	if err := pool.RequireSchema(ctx); err != nil {
		return nil, err
	}
	return postgres.NewQuestionRepository(pool.DB()).LoadBank(ctx, cfg.Questions.Bank)
}

// NewProfiles registers the built-in profile, every profile in
// cfg.Strategy.ProfileDir, and the profile file cfg.Strategy.Profile. The
// profile file, when set, becomes the default; it may also live in
// ProfileDir.
func NewProfiles(cfg config.Config, logger *zap.Logger) (*Profiles, error) {
	reg := ai.NewRegistry()
	builtin := ai.DefaultProfile()
	if err := reg.Register(builtin); err != nil {
		return nil, err
	}
	p := &Profiles{Registry: reg, Default: builtin.ID}

	if cfg.Strategy.ProfileDir != "" {
		found, err := ai.LoadProfiles(cfg.Strategy.ProfileDir)
		if err != nil {
			return nil, fmt.Errorf("loading strategy profiles: %w", err)
		}
		for _, prof := range found {
			if err := reg.Register(prof); err != nil {
				return nil, fmt.Errorf("registering strategy profile: %w", err)
			}
		}
		logger.Info("strategy profiles loaded",
			zap.String("dir", cfg.Strategy.ProfileDir),
			zap.Strings("profiles", reg.IDs()),
		)
	}

	if cfg.Strategy.Profile == "" {
		return p, nil
	}
	custom, err := ai.LoadProfile(cfg.Strategy.Profile)
	if err != nil {
		return nil, fmt.Errorf("loading strategy profile: %w", err)
	}
	if _, seen := reg.ProfileFor(custom.ID); !seen {
		if err := reg.Register(custom); err != nil {
			return nil, fmt.Errorf("registering strategy profile: %w", err)
		}
	}
	p.Default = custom.ID
	logger.Info("default strategy profile",
		zap.String("profile", custom.ID),
		zap.String("path", cfg.Strategy.Profile),
	)
	return p, nil
}

// NewDiceSource returns the production randomness source with debug logging
// of every draw.
func NewDiceSource(logger *zap.Logger) dice.Source {
	return dice.NewLoggedSource(dice.NewCryptoSource(), logger)
}

// NewScripts loads the Lua override hooks in cfg.Strategy.ScriptDir. The
// top-level files form the shared VM. Each registered profile with script
// rules and a subdirectory named after its ID gets a VM of its own; other
// profiles resolve their hooks in the shared VM. With no script directory it
// returns a nil caller, under which script rules never match.
//
// Postcondition: the returned cleanup must be called once the caller is no
// longer used; it is never nil on success.
func NewScripts(cfg config.Config, profiles *Profiles, src dice.Source, logger *zap.Logger) (ai.ScriptCaller, func(), error) {
	dir := cfg.Strategy.ScriptDir
	if dir == "" {
		return nil, func() {}, nil
	}
	limit := cfg.Strategy.InstructionLimit
	mgr := scripting.NewManager(src, logger)
	if err := mgr.LoadGlobal(dir, limit); err != nil {
		mgr.Close()
		return nil, nil, fmt.Errorf("loading strategy scripts: %w", err)
	}
	for _, id := range profiles.Registry.IDs() {
		prof, _ := profiles.Registry.ProfileFor(id)
		if !prof.HasScriptRules() {
			continue
		}
		own := filepath.Join(dir, id)
		if info, err := os.Stat(own); err != nil || !info.IsDir() {
			logger.Debug("profile hooks use the shared VM", zap.String("profile", id))
			continue
		}
		if err := mgr.LoadProfile(id, own, limit); err != nil {
			mgr.Close()
			return nil, nil, fmt.Errorf("loading %s strategy scripts: %w", id, err)
		}
	}
	logger.Info("strategy scripts loaded", zap.String("dir", dir))
	return mgr, mgr.Close, nil
}

// NewMatchConfig converts cfg.Game into engine settings.
func NewMatchConfig(cfg config.Config) (match.Config, error) {
	d, err := match.ParseDifficulty(cfg.Game.Difficulty)
	if err != nil {
		return match.Config{}, err
	}
	return match.Config{
		MaxTurns:    cfg.Game.MaxTurns,
		Difficulty:  d,
		LogCapacity: cfg.Game.LogCapacity,
	}, nil
}
