package engine

import (
	"context"
	"time"

	"github.com/richardl62/richards-old-games-server/game/gameerr"
	"github.com/richardl62/richards-old-games-server/game/player"
	"github.com/richardl62/richards-old-games-server/game/session"
	"github.com/richardl62/richards-old-games-server/game/state"
)

var now = time.Now

// Connect registers a player for a newly established connection.
func (e *Engine) Connect(ctx context.Context, conn player.Connection) (player.Info, error) {
	var info player.Info
	err := e.do(ctx, "connect", func() error {
		p, err := e.players.Register(conn)
		if err != nil {
			return err
		}
		info = p.Info()
		e.logger.Debug("Player connected", "player_id", p.ID, "conn_id", conn.ID())
		return nil
	})
	if err != nil {
		return player.Info{}, err
	}
	return info, nil
}

// Join attaches the player on conn to a session and returns the
// acknowledgement for the caller.
func (e *Engine) Join(ctx context.Context, conn player.Connection, req JoinRequest) (*JoinAck, error) {
	var ack *JoinAck
	err := e.do(ctx, EventJoin, func() error {
		var err error
		ack, err = e.join(conn, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ack, nil
}

// Leave detaches the player on conn from its session.
func (e *Engine) Leave(ctx context.Context, conn player.Connection) error {
	return e.do(ctx, EventLeave, func() error {
		p, _, err := e.member(conn)
		if err != nil {
			return err
		}
		e.leave(p)
		return nil
	})
}

// UpdateState merges partial into the sender's session state, fans the
// partial document out to the other members and returns the merged state.
func (e *Engine) UpdateState(ctx context.Context, conn player.Connection, partial state.Document) (state.Document, error) {
	var merged state.Document
	err := e.do(ctx, EventState, func() error {
		p, s, err := e.member(conn)
		if err != nil {
			return err
		}

		doc, err := state.FromValue(map[string]any(partial))
		if err != nil {
			return err
		}

		if doc != nil {
			s.State = state.Merge(s.State, doc)
			s.Touch(now())
			e.broadcast(s, EventState, map[string]any{"state": doc.Clone()}, p)
		}
		merged = s.State.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return merged, nil
}

// Relay fans an opaque payload out to the sender's session under event.
func (e *Engine) Relay(ctx context.Context, conn player.Connection, event string, payload any) error {
	label := event
	if !e.relay[event] {
		label = "unknown"
	}
	return e.do(ctx, label, func() error {
		if !e.relay[event] {
			return gameerr.New(gameerr.ErrInvalidArgument, "unknown event %q", event)
		}

		p, s, err := e.member(conn)
		if err != nil {
			return err
		}

		s.Touch(now())
		e.broadcast(s, event, payload, p)
		return nil
	})
}

// IsRelayEvent reports whether event is fanned out by Relay.
func (e *Engine) IsRelayEvent(event string) bool {
	return e.relay[event]
}

// Disconnect handles the loss of conn: the remaining members are told, the
// player is removed and its connection released. Unknown connections are
// ignored.
func (e *Engine) Disconnect(ctx context.Context, conn player.Connection) error {
	return e.do(ctx, "disconnect", func() error {
		p, ok := e.players.Lookup(conn)
		if !ok {
			return nil
		}

		e.leave(p)
		if _, err := e.players.Remove(conn); err != nil {
			e.logger.Warn("Release connection failed", "player_id", p.ID, "error", err)
		}
		e.logger.Debug("Player disconnected", "player_id", p.ID, "conn_id", conn.ID())
		return nil
	})
}

// ListSessions enumerates the live sessions.
func (e *Engine) ListSessions(ctx context.Context) ([]session.Summary, error) {
	var list []session.Summary
	err := e.do(ctx, "list", func() error {
		sessions := e.sessions.List()
		list = make([]session.Summary, 0, len(sessions))
		for _, s := range sessions {
			list = append(list, s.Summary())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// StartSession creates a session without members. An empty id is
// allocated.
func (e *Engine) StartSession(ctx context.Context, id, kind string) (session.Summary, error) {
	var sum session.Summary
	err := e.do(ctx, "start", func() error {
		s, err := e.sessions.Create(id, kind)
		if err != nil {
			return err
		}
		e.metrics.created()
		e.logger.Info("Session started", "session_id", s.ID, "kind", s.Kind)
		sum = s.Summary()
		return nil
	})
	if err != nil {
		return session.Summary{}, err
	}
	return sum, nil
}

// GetSession returns the detailed view of one session.
func (e *Engine) GetSession(ctx context.Context, id string) (*SessionInfo, error) {
	var info *SessionInfo
	err := e.do(ctx, "get", func() error {
		s, ok := e.sessions.Get(id)
		if !ok {
			return gameerr.Wrap(gameerr.ErrNotFound, session.ErrSessionNotFound, "session %s not found", id)
		}

		info = &SessionInfo{
			Summary: s.Summary(),
			State:   s.State.Clone(),
			Players: make([]player.Info, 0, s.MemberCount()),
		}
		for _, pid := range s.MemberIDs() {
			if p, ok := e.players.Get(pid); ok {
				info.Players = append(info.Players, p.Info())
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// RemoveSession detaches every member of a session and destroys it.
func (e *Engine) RemoveSession(ctx context.Context, id string) error {
	return e.do(ctx, "remove", func() error {
		s, ok := e.sessions.Get(id)
		if !ok {
			return gameerr.Wrap(gameerr.ErrNotFound, session.ErrSessionNotFound, "session %s not found", id)
		}
		e.detachAll(s, "removed")
		e.destroy(s, "removed")
		return nil
	})
}

// ClearSessions detaches every player and destroys every session. It is an
// administrative reset and returns the number of sessions removed.
func (e *Engine) ClearSessions(ctx context.Context) (int, error) {
	var n int
	err := e.do(ctx, "clear", func() error {
		for _, s := range e.sessions.List() {
			e.detachAll(s, "cleared")
		}
		n = e.sessions.Clear()
		if n > 0 {
			e.metrics.destroyedN("cleared", n)
		}
		e.logger.Info("Sessions cleared", "count", n)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Stats reports the number of live sessions and players.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := e.do(ctx, "stats", func() error {
		st = Stats{Sessions: e.sessions.Count(), Players: e.players.Count()}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}
