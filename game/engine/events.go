package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/richardl62/richards-old-games-server/game/player"
	"github.com/richardl62/richards-old-games-server/game/session"
	"github.com/richardl62/richards-old-games-server/game/state"
)

// Inbound event names.
const (
	EventJoin  = "join"
	EventLeave = "leave"
	EventState = "state"
)

// Outbound event names.
const (
	EventPlayerJoined  = "player-joined"
	EventPlayerLeft    = "player-left"
	EventSessionClosed = "session-closed"
)

// SenderKey is added to every fanned-out payload.
const SenderKey = "sender_player_id"

// DefaultRelayEvents are the opaque events fanned out verbatim.
var DefaultRelayEvents = []string{"action", "chat", "move", "transient"}

// SessionID accepts either a JSON string or a JSON number.
type SessionID string

func (id *SessionID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SessionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("session id must be a string or number: %w", err)
	}
	*id = SessionID(n.String())
	return nil
}

// JoinRequest asks to join (or create) a session. Without an ID a new
// session of Kind is allocated. With an ID the session must exist, unless
// Create is set, in which case the ID is claimed for a new session.
type JoinRequest struct {
	ID     SessionID      `json:"id,omitempty"`
	Kind   string         `json:"kind,omitempty"`
	Create bool           `json:"create,omitempty"`
	State  state.Document `json:"state,omitempty"`
}

// JoinAck acknowledges a successful join.
type JoinAck struct {
	PlayerID     uint64         `json:"player_id"`
	SessionID    string         `json:"session_id"`
	SessionState state.Document `json:"session_state"`
	Kind         string         `json:"kind"`
	DisplayName  string         `json:"display_name"`
}

// SessionInfo is the detailed administrative view of a session.
type SessionInfo struct {
	session.Summary
	State   state.Document `json:"state"`
	Players []player.Info  `json:"players"`
}

// Stats counts live sessions and connected players.
type Stats struct {
	Sessions int `json:"sessions"`
	Players  int `json:"players"`
}
