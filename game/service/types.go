package service

import (
	"time"

	"github.com/richardl62/richards-old-games-server/game/config"
	"github.com/richardl62/richards-old-games-server/game/player"
	"github.com/richardl62/richards-old-games-server/game/state"
)

// CreateSessionRequest starts a session without members
type CreateSessionRequest struct {
	ID   string `json:"id,omitempty"` // Proposed ID; allocated when empty
	Kind string `json:"kind,omitempty"`
}

// SessionInfo provides information about a session
type SessionInfo struct {
	ID             string         `json:"id"`
	Kind           string         `json:"kind"`
	Members        int            `json:"members"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt *time.Time     `json:"last_activity_at,omitempty"`
	Players        []player.Info  `json:"players,omitempty"`
	State          state.Document `json:"state,omitempty"`
}

// KindsInfo describes the session kind catalog
type KindsInfo struct {
	DefaultKind string        `json:"default_kind"`
	Restricted  bool          `json:"restricted"` // Only listed kinds may be created
	Kinds       []config.Kind `json:"kinds"`
}
