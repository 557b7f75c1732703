package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "quizwar.game.v1.GameService"

// GameServiceHandler is the server API for the game service. Every message is
// a structpb.Struct; field names are the Field* constants.
type GameServiceHandler interface {
	NewGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSnapshot(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AnswerQuestion(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SendTroops(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DefendHouse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	AITakeTurn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetDifficulty(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SetControlledSide(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SwapSides(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Restart(context.Context, *structpb.Struct) (*structpb.Struct, error)
	EndGame(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Watch(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

type unaryCall func(GameServiceHandler, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			h := srv.(GameServiceHandler)
			if interceptor == nil {
				return call(h, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(h, ctx, req.(*structpb.Struct))
			})
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(GameServiceHandler).Watch(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// GameServiceDesc describes the game service for registration and client
// stream creation.
var GameServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServiceHandler)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("NewGame", GameServiceHandler.NewGame),
		unaryMethod("GetSnapshot", GameServiceHandler.GetSnapshot),
		unaryMethod("AnswerQuestion", GameServiceHandler.AnswerQuestion),
		unaryMethod("SendTroops", GameServiceHandler.SendTroops),
		unaryMethod("DefendHouse", GameServiceHandler.DefendHouse),
		unaryMethod("AITakeTurn", GameServiceHandler.AITakeTurn),
		unaryMethod("SetDifficulty", GameServiceHandler.SetDifficulty),
		unaryMethod("SetControlledSide", GameServiceHandler.SetControlledSide),
		unaryMethod("SwapSides", GameServiceHandler.SwapSides),
		unaryMethod("Restart", GameServiceHandler.Restart),
		unaryMethod("EndGame", GameServiceHandler.EndGame),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "quizwar/game/v1/game.proto",
}

// RegisterGameServiceServer registers h on s.
//
// Precondition: s and h must be non-nil.
func RegisterGameServiceServer(s grpc.ServiceRegistrar, h GameServiceHandler) {
	s.RegisterService(&GameServiceDesc, h)
}
