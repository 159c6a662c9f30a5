package service_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardl62/richards-old-games-server/game/config"
	"github.com/richardl62/richards-old-games-server/game/engine"
	"github.com/richardl62/richards-old-games-server/game/gameerr"
	"github.com/richardl62/richards-old-games-server/game/player"
	"github.com/richardl62/richards-old-games-server/game/session"
	"github.com/richardl62/richards-old-games-server/game/service"
	"github.com/richardl62/richards-old-games-server/game/state"
)

type nopBroadcaster struct{}

func (nopBroadcaster) Emit(string, string, any, player.Connection) int { return 0 }

type nopConn struct{ id string }

func (c *nopConn) ID() string       { return c.id }
func (c *nopConn) JoinRoom(string)  {}
func (c *nopConn) LeaveRoom(string) {}
func (c *nopConn) Close() error     { return nil }

func setupService(t *testing.T, cfg *config.Config) (service.GameService, *engine.Engine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	eng := engine.New(nopBroadcaster{}, engine.Options{
		Logger:      logger,
		Kinds:       cfg.KindNames(),
		DefaultKind: cfg.DefaultKind(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go eng.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-eng.Done()
	})
	return service.NewGameService(eng, cfg), eng
}

func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, config.Default())

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Len(t, info.ID, 6)
	assert.Equal(t, "default", info.Kind)
	assert.Zero(t, info.Members)

	named, err := svc.CreateSession(ctx, service.CreateSessionRequest{ID: "lobby", Kind: "chess"})
	require.NoError(t, err)
	assert.Equal(t, "lobby", named.ID)
	assert.Equal(t, "chess", named.Kind)

	_, err = svc.CreateSession(ctx, service.CreateSessionRequest{ID: "lobby", Kind: "chess"})
	assert.ErrorIs(t, err, gameerr.ErrAlreadyExists)

	_, err = svc.CreateSession(ctx, service.CreateSessionRequest{ID: "bad id!", Kind: "chess"})
	assert.ErrorIs(t, err, gameerr.ErrInvalidArgument)
}

func TestGameService_CreateSessionRespectsCatalog(t *testing.T) {
	cfg := config.Default()
	cfg.Kinds = []config.Kind{{Name: "chess"}, {Name: "default"}}
	svc, _ := setupService(t, cfg)

	_, err := svc.CreateSession(context.Background(), service.CreateSessionRequest{Kind: "poker"})
	assert.ErrorIs(t, err, gameerr.ErrInvalidArgument)

	kinds, err := svc.ListKinds(context.Background())
	require.NoError(t, err)
	assert.True(t, kinds.Restricted)
	assert.Equal(t, "default", kinds.DefaultKind)
	assert.Len(t, kinds.Kinds, 2)
}

func TestGameService_GetSessionAndState(t *testing.T) {
	ctx := context.Background()
	svc, eng := setupService(t, config.Default())

	conn := &nopConn{id: "c1"}
	_, err := eng.Connect(ctx, conn)
	require.NoError(t, err)
	ack, err := eng.Join(ctx, conn, engine.JoinRequest{Kind: "chess", State: state.Document{"turn": 1}})
	require.NoError(t, err)

	info, err := svc.GetSession(ctx, ack.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, info.Members)
	assert.Equal(t, []player.Info{{PlayerID: 1, DisplayName: "Player 1"}}, info.Players)
	assert.Equal(t, state.Document{"turn": 1}, info.State)
	assert.NotNil(t, info.LastActivityAt)

	doc, err := svc.GetSessionState(ctx, ack.SessionID)
	require.NoError(t, err)
	assert.Equal(t, state.Document{"turn": 1}, doc)

	_, err = svc.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, gameerr.ErrNotFound)
}

func TestGameService_GetSessionStateEmpty(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, config.Default())

	info, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	require.NoError(t, err)

	doc, err := svc.GetSessionState(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, state.Document{}, doc)
}

func TestGameService_ListDeleteClear(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, config.Default())

	for _, id := range []string{"b", "a", "c"} {
		_, err := svc.CreateSession(ctx, service.CreateSessionRequest{ID: id})
		require.NoError(t, err)
	}

	list, err := svc.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)

	require.NoError(t, svc.DeleteSession(ctx, "b"))
	assert.ErrorIs(t, svc.DeleteSession(ctx, "b"), gameerr.ErrNotFound)

	n, err := svc.ClearSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Sessions)
}

func TestGameService_ListKindsOpenCatalog(t *testing.T) {
	svc, _ := setupService(t, config.Default())

	kinds, err := svc.ListKinds(context.Background())
	require.NoError(t, err)
	assert.False(t, kinds.Restricted)
	assert.Empty(t, kinds.Kinds)
}

// failingEngine reports the same error for every call.
type failingEngine struct{ err error }

func (f failingEngine) ListSessions(context.Context) ([]session.Summary, error) { return nil, f.err }
func (f failingEngine) StartSession(context.Context, string, string) (session.Summary, error) {
	return session.Summary{}, f.err
}
func (f failingEngine) GetSession(context.Context, string) (*engine.SessionInfo, error) {
	return nil, f.err
}
func (f failingEngine) RemoveSession(context.Context, string) error { return f.err }
func (f failingEngine) ClearSessions(context.Context) (int, error)  { return 0, f.err }
func (f failingEngine) Stats(context.Context) (engine.Stats, error) { return engine.Stats{}, f.err }

func TestGameService_PropagatesEngineErrors(t *testing.T) {
	ctx := context.Background()
	svc := service.NewGameService(failingEngine{err: engine.ErrStopped}, config.Default())

	_, err := svc.CreateSession(ctx, service.CreateSessionRequest{})
	assert.ErrorIs(t, err, engine.ErrStopped)
	assert.Contains(t, err.Error(), "failed to create session")

	_, err = svc.ListSessions(ctx)
	assert.True(t, errors.Is(err, engine.ErrStopped))

	_, err = svc.GetSessionState(ctx, "x")
	assert.ErrorIs(t, err, engine.ErrStopped)

	_, err = svc.Stats(ctx)
	assert.ErrorIs(t, err, engine.ErrStopped)
}
