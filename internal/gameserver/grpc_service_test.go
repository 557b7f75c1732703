package gameserver_test

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cory-johannsen/quizwar/internal/game/ai"
	"github.com/cory-johannsen/quizwar/internal/game/dice"
	"github.com/cory-johannsen/quizwar/internal/game/match"
	"github.com/cory-johannsen/quizwar/internal/game/question"
	"github.com/cory-johannsen/quizwar/internal/game/session"
	"github.com/cory-johannsen/quizwar/internal/gameserver"
)

func newTestFactory(t *testing.T) *gameserver.EngineFactory {
	t.Helper()
	reg := ai.NewRegistry()
	require.NoError(t, reg.Register(ai.DefaultProfile()))
	f, err := gameserver.NewEngineFactory(
		question.Default(), reg, ai.DefaultProfile().ID, nil,
		dice.Fixed(0.5), match.Config{}, zaptest.NewLogger(t),
	)
	require.NoError(t, err)
	return f
}

func newTestEngine(t *testing.T) *match.Engine {
	t.Helper()
	e, err := newTestFactory(t).New(gameserver.GameOptions{})
	require.NoError(t, err)
	return e
}

// testGRPCServer starts an in-process gRPC server and returns a connected client.
func testGRPCServer(t *testing.T) (*gameserver.Client, *session.Manager) {
	t.Helper()

	sessions := session.NewManager(nil, 0)
	svc := gameserver.NewGameServiceServer(sessions, newTestFactory(t), zaptest.NewLogger(t))

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	grpcServer := grpc.NewServer()
	gameserver.RegisterGameServiceServer(grpcServer, svc)

	go func() { _ = grpcServer.Serve(lis) }()
	t.Cleanup(func() { grpcServer.Stop() })

	conn, err := grpc.NewClient(lis.Addr().String(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return gameserver.NewClient(conn), sessions
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func str(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func num(s *structpb.Struct, key string) int {
	return int(s.GetFields()[key].GetNumberValue())
}

func boolean(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func sub(s *structpb.Struct, key string) *structpb.Struct {
	return s.GetFields()[key].GetStructValue()
}

func newGame(t *testing.T, c *gameserver.Client, opts gameserver.GameOptions) (string, *structpb.Struct) {
	t.Helper()
	resp, err := c.NewGame(testContext(t), opts)
	require.NoError(t, err)
	snap := gameserver.SnapshotOf(resp)
	require.NotNil(t, snap)
	return str(snap, "game_id"), snap
}

func correctOption(snap *structpb.Struct) int {
	idx := num(sub(snap, "question"), "index")
	return question.Default().At(idx).CorrectIndex
}

func assertCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "expected gRPC status, got %v", err)
	assert.Equal(t, code, st.Code(), st.Message())
}

func TestGRPCService_NewGame(t *testing.T) {
	client, sessions := testGRPCServer(t)
	id, snap := newGame(t, client, gameserver.GameOptions{})

	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, 1, sessions.Count())
	assert.Equal(t, 1, num(snap, "turn"))
	assert.Equal(t, match.DefaultMaxTurns, num(snap, "max_turns"))
	assert.Equal(t, "home", str(snap, "active_side"))
	assert.Equal(t, "medium", str(snap, "difficulty"))
	assert.False(t, boolean(snap, "game_over"))
	assert.Equal(t, 100, num(sub(snap, "home"), "health"))
	assert.Equal(t, 10, num(sub(snap, "away"), "troops"))

	q := sub(snap, "question")
	assert.NotEmpty(t, str(q, "text"))
	assert.Len(t, q.GetFields()["options"].GetListValue().GetValues(), question.OptionCount)
	_, leaked := q.GetFields()["correct"]
	assert.False(t, leaked, "the correct answer must not be sent to clients")
}

func TestGRPCService_NewGameOptions(t *testing.T) {
	client, _ := testGRPCServer(t)
	_, snap := newGame(t, client, gameserver.GameOptions{Difficulty: "hard", MaxTurns: 3})
	assert.Equal(t, "hard", str(snap, "difficulty"))
	assert.Equal(t, 3, num(snap, "max_turns"))

	_, err := client.NewGame(testContext(t), gameserver.GameOptions{Difficulty: "nightmare"})
	assertCode(t, err, codes.InvalidArgument)

	_, err = client.NewGame(testContext(t), gameserver.GameOptions{Profile: "nobody"})
	assertCode(t, err, codes.InvalidArgument)
}

func TestGRPCService_UnknownGame(t *testing.T) {
	client, _ := testGRPCServer(t)
	_, err := client.GetSnapshot(testContext(t), "missing")
	assertCode(t, err, codes.NotFound)

	_, err = client.DefendHouse(testContext(t), uuid.NewString())
	assertCode(t, err, codes.NotFound)
}

func TestGRPCService_AnswerThenAITurn(t *testing.T) {
	client, _ := testGRPCServer(t)
	ctx := testContext(t)
	id, snap := newGame(t, client, gameserver.GameOptions{})

	resp, err := client.AnswerQuestion(ctx, id, correctOption(snap))
	require.NoError(t, err)
	result := sub(resp, "result")
	assert.Equal(t, "answer", str(result, "kind"))
	assert.True(t, boolean(result, "success"))
	assert.Equal(t, match.PointsPerAnswer, num(result, "points"))

	after := gameserver.SnapshotOf(resp)
	assert.Equal(t, "away", str(after, "active_side"))
	assert.Equal(t, match.KnowledgePerAnswer, num(sub(after, "home"), "knowledge"))

	_, err = client.AnswerQuestion(ctx, id, 0)
	assertCode(t, err, codes.FailedPrecondition)

	resp, err = client.AITakeTurn(ctx, id)
	require.NoError(t, err)
	_, err = ai.ParseStrategy(str(resp, "strategy"))
	assert.NoError(t, err)
	after = gameserver.SnapshotOf(resp)
	assert.Equal(t, 2, num(after, "turn"))
	assert.Equal(t, "home", str(after, "active_side"))

	_, err = client.AITakeTurn(ctx, id)
	assertCode(t, err, codes.FailedPrecondition)
}

func TestGRPCService_SendTroopsAndDefend(t *testing.T) {
	client, _ := testGRPCServer(t)
	ctx := testContext(t)
	id, _ := newGame(t, client, gameserver.GameOptions{})

	_, err := client.SendTroops(ctx, id, 0)
	assertCode(t, err, codes.FailedPrecondition)

	resp, err := client.SendTroops(ctx, id, 4)
	require.NoError(t, err)
	result := sub(resp, "result")
	assert.Equal(t, "attack", str(result, "kind"))
	assert.Equal(t, 4, num(result, "troops_sent"))
	assert.Equal(t, 6, num(sub(gameserver.SnapshotOf(resp), "home"), "troops"))

	_, err = client.AITakeTurn(ctx, id)
	require.NoError(t, err)

	resp, err = client.DefendHouse(ctx, id)
	require.NoError(t, err)
	assert.True(t, boolean(sub(resp, "result"), "defended"))
	assert.True(t, boolean(sub(gameserver.SnapshotOf(resp), "home"), "house_defended"))
}

func TestGRPCService_RejectsMalformedFields(t *testing.T) {
	client, _ := testGRPCServer(t)
	ctx := testContext(t)
	id, _ := newGame(t, client, gameserver.GameOptions{})

	_, err := client.SetDifficulty(ctx, id, "impossible")
	assertCode(t, err, codes.InvalidArgument)

	_, err = client.SetControlledSide(ctx, id, "middle")
	assertCode(t, err, codes.InvalidArgument)
}

func TestGameServiceServer_FieldValidation(t *testing.T) {
	sessions := session.NewManager(nil, 0)
	svc := gameserver.NewGameServiceServer(sessions, newTestFactory(t), zaptest.NewLogger(t))
	g, err := sessions.Create(newTestEngine(t))
	require.NoError(t, err)
	ctx := testContext(t)

	cases := []struct {
		name   string
		fields map[string]any
	}{
		{"missing game id", map[string]any{"option": 1}},
		{"game id not a string", map[string]any{"game_id": 7, "option": 1}},
		{"missing option", map[string]any{"game_id": g.ID}},
		{"fractional option", map[string]any{"game_id": g.ID, "option": 1.5}},
		{"option not a number", map[string]any{"game_id": g.ID, "option": "one"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in, err := structpb.NewStruct(tc.fields)
			require.NoError(t, err)
			_, err = svc.AnswerQuestion(ctx, in)
			assertCode(t, err, codes.InvalidArgument)
		})
	}

	in, err := structpb.NewStruct(map[string]any{"max_turns": "ten"})
	require.NoError(t, err)
	_, err = svc.NewGame(ctx, in)
	assertCode(t, err, codes.InvalidArgument)
}

func TestGRPCService_SideControls(t *testing.T) {
	client, _ := testGRPCServer(t)
	ctx := testContext(t)
	id, _ := newGame(t, client, gameserver.GameOptions{})

	resp, err := client.SetDifficulty(ctx, id, "easy")
	require.NoError(t, err)
	assert.Equal(t, "easy", str(gameserver.SnapshotOf(resp), "difficulty"))

	resp, err = client.SetControlledSide(ctx, id, "away")
	require.NoError(t, err)
	assert.Equal(t, "away", str(gameserver.SnapshotOf(resp), "controlled_side"))

	resp, err = client.SendTroops(ctx, id, 3)
	require.NoError(t, err)
	before := gameserver.SnapshotOf(resp)
	require.Equal(t, 7, num(sub(before, "home"), "troops"))

	resp, err = client.SwapSides(ctx, id)
	require.NoError(t, err)
	after := gameserver.SnapshotOf(resp)
	assert.Equal(t, "away", str(after, "controlled_side"))
	for _, field := range []string{"health", "troops", "defense", "knowledge"} {
		assert.Equal(t, num(sub(before, "away"), field), num(sub(after, "home"), field), field)
		assert.Equal(t, num(sub(before, "home"), field), num(sub(after, "away"), field), field)
	}
}

func TestGRPCService_EndGameAndRestart(t *testing.T) {
	client, _ := testGRPCServer(t)
	ctx := testContext(t)
	id, snap := newGame(t, client, gameserver.GameOptions{})

	_, err := client.AnswerQuestion(ctx, id, correctOption(snap))
	require.NoError(t, err)

	resp, err := client.EndGame(ctx, id)
	require.NoError(t, err)
	over := gameserver.SnapshotOf(resp)
	assert.True(t, boolean(over, "game_over"))
	assert.Equal(t, "home", str(over, "winner"))
	summary := sub(over, "summary")
	require.NotNil(t, summary)
	assert.Equal(t, "home", str(summary, "winner"))
	assert.Equal(t, 100, num(summary, "win_margin"))

	_, err = client.DefendHouse(ctx, id)
	assertCode(t, err, codes.FailedPrecondition)

	resp, err = client.Restart(ctx, id)
	require.NoError(t, err)
	fresh := gameserver.SnapshotOf(resp)
	assert.False(t, boolean(fresh, "game_over"))
	assert.Equal(t, 1, num(fresh, "turn"))
	assert.Zero(t, num(sub(fresh, "home"), "score"))
	_, hasSummary := fresh.GetFields()["summary"]
	assert.False(t, hasSummary)
}

func TestGRPCService_PlaysToTurnCap(t *testing.T) {
	client, _ := testGRPCServer(t)
	ctx := testContext(t)
	id, _ := newGame(t, client, gameserver.GameOptions{MaxTurns: 2})

	var last *structpb.Struct
	for i := 0; i < 2; i++ {
		_, err := client.DefendHouse(ctx, id)
		require.NoError(t, err)
		resp, err := client.AITakeTurn(ctx, id)
		require.NoError(t, err)
		last = gameserver.SnapshotOf(resp)
	}
	assert.True(t, boolean(last, "game_over"))
	assert.Equal(t, 3, num(last, "turn"))
	assert.NotEqual(t, "none", str(last, "winner"))
}

func TestGRPCService_Watch(t *testing.T) {
	client, _ := testGRPCServer(t)
	ctx := testContext(t)
	id, _ := newGame(t, client, gameserver.GameOptions{})

	stream, err := client.Watch(ctx, id)
	require.NoError(t, err)

	first, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, id, str(gameserver.SnapshotOf(first), "game_id"))
	assert.False(t, boolean(sub(gameserver.SnapshotOf(first), "home"), "house_defended"))

	_, err = client.DefendHouse(ctx, id)
	require.NoError(t, err)

	next, err := stream.Recv()
	require.NoError(t, err)
	assert.True(t, boolean(sub(gameserver.SnapshotOf(next), "home"), "house_defended"))
	assert.Equal(t, "away", str(gameserver.SnapshotOf(next), "active_side"))
}

func TestGRPCService_WatchSeesRefusedAttack(t *testing.T) {
	client, _ := testGRPCServer(t)
	ctx := testContext(t)
	id, _ := newGame(t, client, gameserver.GameOptions{})

	stream, err := client.Watch(ctx, id)
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)

	_, err = client.SendTroops(ctx, id, 0)
	assertCode(t, err, codes.FailedPrecondition)

	next, err := stream.Recv()
	require.NoError(t, err)
	snap := gameserver.SnapshotOf(next)
	assert.Equal(t, "home", str(snap, "active_side"))
	lines := snap.GetFields()["log"].GetListValue().GetValues()
	require.NotEmpty(t, lines)
	assert.Contains(t, lines[len(lines)-1].GetStringValue(), "Home has no troops to send!")
}

func TestGRPCService_WatchEndsWhenGameRemoved(t *testing.T) {
	client, sessions := testGRPCServer(t)
	ctx := testContext(t)
	id, _ := newGame(t, client, gameserver.GameOptions{})

	stream, err := client.Watch(ctx, id)
	require.NoError(t, err)
	_, err = stream.Recv()
	require.NoError(t, err)

	require.NoError(t, sessions.Remove(id))
	_, err = stream.Recv()
	assert.ErrorIs(t, err, io.EOF)
}

func TestGRPCService_WatchUnknownGame(t *testing.T) {
	client, _ := testGRPCServer(t)
	stream, err := client.Watch(testContext(t), "missing")
	require.NoError(t, err)
	_, err = stream.Recv()
	assertCode(t, err, codes.NotFound)
}
