package main

import (
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/quizwar/internal/bootstrap"
	"github.com/cory-johannsen/quizwar/internal/config"
	"github.com/cory-johannsen/quizwar/internal/game/ai"
	"github.com/cory-johannsen/quizwar/internal/game/dice"
	"github.com/cory-johannsen/quizwar/internal/game/match"
	"github.com/cory-johannsen/quizwar/internal/game/question"
	"github.com/cory-johannsen/quizwar/internal/game/session"
	"github.com/cory-johannsen/quizwar/internal/gameserver"
	"github.com/cory-johannsen/quizwar/internal/server"
)

// shutdownGrace bounds how long in-flight RPCs may run after a stop signal.
const shutdownGrace = 10 * time.Second

func provideEngineFactory(
	bank *question.Bank,
	profiles *bootstrap.Profiles,
	scripts ai.ScriptCaller,
	src dice.Source,
	mcfg match.Config,
	logger *zap.Logger,
) (*gameserver.EngineFactory, error) {
	return gameserver.NewEngineFactory(bank, profiles.Registry, profiles.Default, scripts, src, mcfg, logger)
}

func provideSessions(cfg config.Config) *session.Manager {
	return session.NewManager(nil, cfg.GameServer.FeedBuffer)
}

func provideReaper(cfg config.Config, sessions *session.Manager, logger *zap.Logger) *gameserver.Reaper {
	return gameserver.NewReaper(sessions, cfg.GameServer.ReapInterval, cfg.GameServer.SessionIdleTimeout, nil, logger)
}

func provideGRPCServer(svc *gameserver.GameServiceServer) *grpc.Server {
	srv := grpc.NewServer()
	gameserver.RegisterGameServiceServer(srv, svc)
	hs := health.NewServer()
	hs.SetServingStatus(gameserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

func provideLifecycle(cfg config.Config, srv *grpc.Server, reaper *gameserver.Reaper, logger *zap.Logger) *server.Lifecycle {
	lc := server.NewLifecycle(logger)
	lc.Add("grpc", server.NewGRPCService(cfg.GameServer.Addr(), srv, shutdownGrace, logger))
	lc.Add("reaper", server.NewContextService(reaper.Start))
	return lc
}
