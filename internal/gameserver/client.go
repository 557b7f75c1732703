package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a typed wrapper over a connection to a game host.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc.
//
// Precondition: cc must be non-nil.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, fields map[string]any) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func gameFields(gameID string) map[string]any {
	return map[string]any{FieldGameID: gameID}
}

// NewGame starts a game. Zero-valued options select server defaults.
func (c *Client) NewGame(ctx context.Context, opts GameOptions) (*structpb.Struct, error) {
	fields := map[string]any{}
	if opts.Profile != "" {
		fields[FieldProfile] = opts.Profile
	}
	if opts.Difficulty != "" {
		fields[FieldDifficulty] = opts.Difficulty
	}
	if opts.MaxTurns > 0 {
		fields[FieldMaxTurns] = opts.MaxTurns
	}
	return c.invoke(ctx, "NewGame", fields)
}

// GetSnapshot fetches the current state of a game.
func (c *Client) GetSnapshot(ctx context.Context, gameID string) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetSnapshot", gameFields(gameID))
}

// AnswerQuestion submits Home's answer.
func (c *Client) AnswerQuestion(ctx context.Context, gameID string, option int) (*structpb.Struct, error) {
	f := gameFields(gameID)
	f[FieldOption] = option
	return c.invoke(ctx, "AnswerQuestion", f)
}

// SendTroops attacks with up to troops of Home's troops.
func (c *Client) SendTroops(ctx context.Context, gameID string, troops int) (*structpb.Struct, error) {
	f := gameFields(gameID)
	f[FieldTroops] = troops
	return c.invoke(ctx, "SendTroops", f)
}

// DefendHouse fortifies Home.
func (c *Client) DefendHouse(ctx context.Context, gameID string) (*structpb.Struct, error) {
	return c.invoke(ctx, "DefendHouse", gameFields(gameID))
}

// AITakeTurn asks the host to play Away's turn.
func (c *Client) AITakeTurn(ctx context.Context, gameID string) (*structpb.Struct, error) {
	return c.invoke(ctx, "AITakeTurn", gameFields(gameID))
}

// SetDifficulty sets the computer side's difficulty by name.
func (c *Client) SetDifficulty(ctx context.Context, gameID, difficulty string) (*structpb.Struct, error) {
	f := gameFields(gameID)
	f[FieldDifficulty] = difficulty
	return c.invoke(ctx, "SetDifficulty", f)
}

// SetControlledSide selects the human side by name.
func (c *Client) SetControlledSide(ctx context.Context, gameID, side string) (*structpb.Struct, error) {
	f := gameFields(gameID)
	f[FieldSide] = side
	return c.invoke(ctx, "SetControlledSide", f)
}

// SwapSides flips the human side.
func (c *Client) SwapSides(ctx context.Context, gameID string) (*structpb.Struct, error) {
	return c.invoke(ctx, "SwapSides", gameFields(gameID))
}

// Restart reinitializes a game.
func (c *Client) Restart(ctx context.Context, gameID string) (*structpb.Struct, error) {
	return c.invoke(ctx, "Restart", gameFields(gameID))
}

// EndGame finishes a game early.
func (c *Client) EndGame(ctx context.Context, gameID string) (*structpb.Struct, error) {
	return c.invoke(ctx, "EndGame", gameFields(gameID))
}

// Watch opens a snapshot stream for a game.
//
// Postcondition: The first Recv returns the current snapshot.
func (c *Client) Watch(ctx context.Context, gameID string) (grpc.ServerStreamingClient[structpb.Struct], error) {
	in, err := structpb.NewStruct(gameFields(gameID))
	if err != nil {
		return nil, err
	}
	stream, err := c.cc.NewStream(ctx, &GameServiceDesc.Streams[0], "/"+ServiceName+"/Watch")
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// SnapshotOf extracts the snapshot object from a response.
func SnapshotOf(resp *structpb.Struct) *structpb.Struct {
	return resp.GetFields()[FieldSnapshot].GetStructValue()
}
