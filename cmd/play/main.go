// Package main runs a single quizwar game in the terminal against the
// computer side.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/bootstrap"
	"github.com/cory-johannsen/quizwar/internal/config"
	"github.com/cory-johannsen/quizwar/internal/game/ai"
	"github.com/cory-johannsen/quizwar/internal/game/match"
	"github.com/cory-johannsen/quizwar/internal/observability"
	"github.com/cory-johannsen/quizwar/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file; empty uses defaults")
	logFile := flag.String("log", "quizwar-play.log", "log file path; the terminal is reserved for the game")
	difficulty := flag.String("difficulty", "", "override game.difficulty: easy, medium or hard")
	turns := flag.Int("turns", 0, "override game.max_turns")
	profile := flag.String("profile", "", "strategy profile ID for the computer side; empty uses the default")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *difficulty != "" {
		cfg.Game.Difficulty = *difficulty
	}
	if *turns > 0 {
		cfg.Game.MaxTurns = *turns
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = *logFile
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	if err := run(context.Background(), cfg, *profile, logger); err != nil {
		logger.Error("play failed", zap.Error(err))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, profileID string, logger *zap.Logger) error {
	eng, cleanup, err := newEngine(ctx, cfg, profileID, logger)
	if err != nil {
		return err
	}
	defer cleanup()
	return tui.Run(eng, cfg.Game.AIThinkDelay, logger)
}

// newEngine builds a local engine from cfg. An empty profileID selects the
// configured default strategy profile.
func newEngine(ctx context.Context, cfg config.Config, profileID string, logger *zap.Logger) (*match.Engine, func(), error) {
	bank, err := bootstrap.NewQuestionBank(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	profiles, err := bootstrap.NewProfiles(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	mcfg, err := bootstrap.NewMatchConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	src := bootstrap.NewDiceSource(logger)
	if profileID == "" {
		profileID = profiles.Default
	}
	profile, ok := profiles.Registry.ProfileFor(profileID)
	if !ok {
		return nil, nil, fmt.Errorf("unknown strategy profile %q; registered: %s",
			profileID, strings.Join(profiles.Registry.IDs(), ", "))
	}
	scripts, cleanup, err := bootstrap.NewScripts(cfg, profiles, src, logger)
	if err != nil {
		return nil, nil, err
	}

	policy := ai.NewPolicy(profile, src, scripts, logger.With(zap.String("profile", profile.ID)))
	eng, err := match.NewEngine(bank, policy, src, mcfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return eng, cleanup, nil
}
