package gameserver

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/quizwar/internal/game/match"
	"github.com/cory-johannsen/quizwar/internal/game/session"
)

// toStatus maps domain errors to gRPC status errors.
//
// Postcondition: Returns nil for nil; otherwise an error carrying a status code.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	var fe *fieldError
	switch {
	case errors.As(err, &fe):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, session.ErrGameNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrUnknownProfile),
		errors.Is(err, match.ErrInvalidDifficulty),
		errors.Is(err, match.ErrInvalidSide):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, match.ErrNotYourTurn),
		errors.Is(err, match.ErrGameOver),
		errors.Is(err, match.ErrNoTroops):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
