// Package gameserver hosts quizwar games over gRPC.
package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/quizwar/internal/game/match"
	"github.com/cory-johannsen/quizwar/internal/game/session"
	"github.com/cory-johannsen/quizwar/internal/observability"
)

// GameServiceServer implements GameServiceHandler on top of a session.Manager.
type GameServiceServer struct {
	sessions *session.Manager
	factory  *EngineFactory
	logger   *zap.Logger
}

// NewGameServiceServer creates a GameServiceServer with the given dependencies.
//
// Precondition: sessions, factory and logger must be non-nil.
// Postcondition: Returns a fully initialised GameServiceServer.
func NewGameServiceServer(sessions *session.Manager, factory *EngineFactory, logger *zap.Logger) *GameServiceServer {
	if sessions == nil || factory == nil || logger == nil {
		panic("gameserver.NewGameServiceServer: sessions, factory and logger must not be nil")
	}
	return &GameServiceServer{
		sessions: sessions,
		factory:  factory,
		logger:   logger,
	}
}

var _ GameServiceHandler = (*GameServiceServer)(nil)

// NewGame creates and registers a game.
// Optional request fields: profile, difficulty, max_turns.
func (s *GameServiceServer) NewGame(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var opts GameOptions
	var err error
	if opts.Profile, err = optionalString(req, FieldProfile); err != nil {
		return nil, toStatus(err)
	}
	if opts.Difficulty, err = optionalString(req, FieldDifficulty); err != nil {
		return nil, toStatus(err)
	}
	if opts.MaxTurns, err = optionalInt(req, FieldMaxTurns); err != nil {
		return nil, toStatus(err)
	}

	engine, err := s.factory.New(opts)
	if err != nil {
		return nil, toStatus(err)
	}
	g, err := s.sessions.Create(engine)
	if err != nil {
		return nil, toStatus(err)
	}

	snap := engine.Snapshot()
	s.logger.Info("game created",
		observability.GameID(g.ID),
		zap.String("profile", opts.Profile),
		zap.Stringer("difficulty", snap.State.Difficulty),
		zap.Int("max_turns", snap.State.MaxTurns),
	)
	return s.respond(snapshotStruct(g.ID, snap))
}

// GetSnapshot returns the current state of a game.
func (s *GameServiceServer) GetSnapshot(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.game(req)
	if err != nil {
		return nil, err
	}
	return s.respond(snapshotStruct(g.ID, g.Engine.Snapshot()))
}

// AnswerQuestion submits Home's answer. Required field: option.
func (s *GameServiceServer) AnswerQuestion(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.game(req)
	if err != nil {
		return nil, err
	}
	option, err := intField(req, FieldOption)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.action(g, func() (match.ActionResult, error) { return g.Engine.AnswerQuestion(option) })
}

// SendTroops attacks with Home's troops. Required field: troops.
func (s *GameServiceServer) SendTroops(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.game(req)
	if err != nil {
		return nil, err
	}
	troops, err := intField(req, FieldTroops)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.action(g, func() (match.ActionResult, error) { return g.Engine.SendTroops(troops) })
}

// DefendHouse fortifies Home.
func (s *GameServiceServer) DefendHouse(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.game(req)
	if err != nil {
		return nil, err
	}
	return s.action(g, g.Engine.DefendHouse)
}

// AITakeTurn plays Away's turn with the game's policy.
func (s *GameServiceServer) AITakeTurn(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.game(req)
	if err != nil {
		return nil, err
	}
	turn, err := g.Engine.AITakeTurn()
	if err != nil {
		return nil, toStatus(err)
	}
	snap := s.publish(g)
	return s.respond(aiTurnStruct(g.ID, turn, snap))
}

// SetDifficulty changes the computer side's answer accuracy. Required field: difficulty.
func (s *GameServiceServer) SetDifficulty(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.game(req)
	if err != nil {
		return nil, err
	}
	name, err := stringField(req, FieldDifficulty)
	if err != nil {
		return nil, toStatus(err)
	}
	d, err := match.ParseDifficulty(name)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.control(g, func() error { return g.Engine.SetDifficulty(d) })
}

// SetControlledSide selects which side the human plays. Required field: side.
func (s *GameServiceServer) SetControlledSide(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.game(req)
	if err != nil {
		return nil, err
	}
	name, err := stringField(req, FieldSide)
	if err != nil {
		return nil, toStatus(err)
	}
	side, err := match.ParseSide(name)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.control(g, func() error { return g.Engine.SetControlledSide(side) })
}

// SwapSides flips the human-controlled side.
func (s *GameServiceServer) SwapSides(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.game(req)
	if err != nil {
		return nil, err
	}
	return s.control(g, func() error {
		g.Engine.SwapSides()
		return nil
	})
}

// Restart reinitializes a game, keeping its difficulty and controlled side.
func (s *GameServiceServer) Restart(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.game(req)
	if err != nil {
		return nil, err
	}
	return s.control(g, func() error {
		g.Engine.Init()
		return nil
	})
}

// EndGame finishes a game early and scores it.
func (s *GameServiceServer) EndGame(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	g, err := s.game(req)
	if err != nil {
		return nil, err
	}
	return s.control(g, g.Engine.EndGame)
}

// Watch streams a snapshot after every change to a game until the game is
// removed or the client goes away. The first message is the current state.
// Each game's feed has a single consumer; concurrent watchers of the same
// game share its events.
func (s *GameServiceServer) Watch(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	g, err := s.game(req)
	if err != nil {
		return err
	}

	events := g.Feed.Events()
	// Events buffered before the watcher arrived are superseded by the
	// snapshot sent below.
drain:
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return nil
			}
		default:
			break drain
		}
	}

	first, err := snapshotStruct(g.ID, g.Engine.Snapshot())
	if err != nil {
		return toStatus(err)
	}
	if err := stream.Send(first); err != nil {
		return err
	}

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case data, ok := <-events:
			if !ok {
				return nil
			}
			msg := new(structpb.Struct)
			if err := proto.Unmarshal(data, msg); err != nil {
				return toStatus(err)
			}
			if err := stream.Send(msg); err != nil {
				return err
			}
		}
	}
}

// game resolves the game_id field and marks the game as seen.
func (s *GameServiceServer) game(req *structpb.Struct) (*session.Game, error) {
	id, err := stringField(req, FieldGameID)
	if err != nil {
		return nil, toStatus(err)
	}
	g, err := s.sessions.Get(id)
	if err != nil {
		return nil, toStatus(err)
	}
	_ = s.sessions.Touch(id)
	return g, nil
}

func (s *GameServiceServer) action(g *session.Game, do func() (match.ActionResult, error)) (*structpb.Struct, error) {
	res, err := do()
	if errors.Is(err, match.ErrNoTroops) {
		// The refused attack is still logged, so watchers see it.
		s.publish(g)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	snap := s.publish(g)
	return s.respond(actionStruct(g.ID, res, snap))
}

func (s *GameServiceServer) control(g *session.Game, do func() error) (*structpb.Struct, error) {
	if err := do(); err != nil {
		return nil, toStatus(err)
	}
	snap := s.publish(g)
	return s.respond(snapshotStruct(g.ID, snap))
}

// publish pushes the game's current snapshot to its feed and returns it.
// A full or closed feed drops the event.
func (s *GameServiceServer) publish(g *session.Game) match.Snapshot {
	snap := g.Engine.Snapshot()
	msg, err := snapshotStruct(g.ID, snap)
	if err != nil {
		s.logger.Warn("encoding snapshot", observability.GameID(g.ID), zap.Error(err))
		return snap
	}
	data, err := proto.Marshal(msg)
	if err != nil {
		s.logger.Warn("marshalling snapshot", observability.GameID(g.ID), zap.Error(err))
		return snap
	}
	if err := g.Feed.Push(data); err != nil {
		s.logger.Debug("feed event dropped", observability.GameID(g.ID), zap.Error(err))
	}
	return snap
}

func (s *GameServiceServer) respond(msg *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, toStatus(err)
	}
	return msg, nil
}
