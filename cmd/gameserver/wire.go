//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/quizwar/internal/bootstrap"
	"github.com/cory-johannsen/quizwar/internal/config"
	"github.com/cory-johannsen/quizwar/internal/gameserver"
	"github.com/cory-johannsen/quizwar/internal/server"
)

// initializeServer wires every game host dependency from cfg. The cleanup
// releases the Lua VMs.
func initializeServer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*server.Lifecycle, func(), error) {
	wire.Build(
		bootstrap.NewQuestionBank,
		bootstrap.NewProfiles,
		bootstrap.NewDiceSource,
		bootstrap.NewScripts,
		bootstrap.NewMatchConfig,
		provideEngineFactory,
		provideSessions,
		gameserver.NewGameServiceServer,
		provideReaper,
		provideGRPCServer,
		provideLifecycle,
	)
	return nil, nil, nil
}
