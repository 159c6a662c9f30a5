package service

import (
	"context"

	"github.com/richardl62/richards-old-games-server/game/config"
	"github.com/richardl62/richards-old-games-server/game/engine"
	"github.com/richardl62/richards-old-games-server/game/session"
	"github.com/richardl62/richards-old-games-server/game/state"
)

// GameService defines the administrative session operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error
	ClearSessions(ctx context.Context) (int, error)

	// Session State
	GetSessionState(ctx context.Context, sessionID string) (state.Document, error)

	// Configuration
	ListKinds(ctx context.Context) (*KindsInfo, error)

	// Health
	Stats(ctx context.Context) (*engine.Stats, error)
}

// SessionEngine is the part of the engine the service drives
type SessionEngine interface {
	ListSessions(ctx context.Context) ([]session.Summary, error)
	StartSession(ctx context.Context, id, kind string) (session.Summary, error)
	GetSession(ctx context.Context, id string) (*engine.SessionInfo, error)
	RemoveSession(ctx context.Context, id string) error
	ClearSessions(ctx context.Context) (int, error)
	Stats(ctx context.Context) (engine.Stats, error)
}

// KindCatalog provides the configured session kinds
type KindCatalog interface {
	ListKinds() []config.Kind
	DefaultKind() string
}
