package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/quizwar/internal/config"
	"github.com/cory-johannsen/quizwar/internal/game/ai"
	"github.com/cory-johannsen/quizwar/internal/game/match"
)

func TestNewEngine_FromDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Game.Difficulty = "hard"
	cfg.Game.MaxTurns = 4

	eng, cleanup, err := newEngine(context.Background(), cfg, "", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cleanup()

	snap := eng.Snapshot()
	assert.Equal(t, match.Hard, snap.State.Difficulty)
	assert.Equal(t, 4, snap.State.MaxTurns)
	assert.Equal(t, 1, snap.State.CurrentTurn)
}

func TestNewEngine_InvalidDifficulty(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Game.Difficulty = "impossible"

	_, _, err = newEngine(context.Background(), cfg, "", zaptest.NewLogger(t))
	assert.ErrorIs(t, err, match.ErrInvalidDifficulty)
}

func TestNewEngine_SelectsRegisteredProfile(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Strategy.ProfileDir = filepath.Join("..", "..", "content", "strategy")
	cfg.Strategy.ScriptDir = filepath.Join("..", "..", "content", "strategy", "scripts")

	eng, cleanup, err := newEngine(context.Background(), cfg, "berserker", zaptest.NewLogger(t))
	require.NoError(t, err)
	defer cleanup()
	// berserker's initial weights lean on attack.
	assert.Equal(t, ai.Attack, eng.Snapshot().Strategy.Dominant)

	_, _, err = newEngine(context.Background(), cfg, "pacifist", zaptest.NewLogger(t))
	assert.ErrorContains(t, err, `unknown strategy profile "pacifist"`)
}
