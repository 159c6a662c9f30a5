package engine

import (
	"fmt"

	"github.com/richardl62/richards-old-games-server/game/gameerr"
	"github.com/richardl62/richards-old-games-server/game/player"
	"github.com/richardl62/richards-old-games-server/game/session"
	"github.com/richardl62/richards-old-games-server/game/state"
)

// ErrNotJoined is returned when a player sends session traffic before
// joining a session.
var ErrNotJoined = fmt.Errorf("session membership %w", gameerr.ErrNotFound)

// join attaches the player on conn to the requested session. Every
// validation runs before the first mutation, so a failed join leaves both
// registries untouched.
func (e *Engine) join(conn player.Connection, req JoinRequest) (*JoinAck, error) {
	p, err := e.players.LookupRequired(conn)
	if err != nil {
		return nil, err
	}

	seed, err := state.FromValue(map[string]any(req.State))
	if err != nil {
		return nil, err
	}

	id := string(req.ID)
	kind := req.Kind
	if kind == "" {
		kind = e.defaultKind
	}

	var s *session.Session
	created := false
	switch {
	case id == "" || req.Create:
		s, err = e.sessions.Create(id, kind)
		if err != nil {
			return nil, err
		}
		created = true
		e.metrics.created()
		e.logger.Info("Session created", "session_id", s.ID, "kind", s.Kind, "player_id", p.ID)

	default:
		var ok bool
		s, ok = e.sessions.Get(id)
		if !ok {
			e.logger.Info("Could not join session", "session_id", id, "player_id", p.ID)
			return nil, gameerr.Wrap(gameerr.ErrNotFound, session.ErrSessionNotFound, "Could not join session %s", id)
		}
	}

	if p.Session == s {
		s.Touch(now())
		return e.ack(p, s), nil
	}

	if p.Session != nil {
		e.leave(p)
	}
	e.attach(p, s)

	if created || len(s.State) == 0 {
		s.State = state.Merge(s.State, seed)
	}

	e.logger.Info("Player joined",
		"session_id", s.ID,
		"player_id", p.ID,
		"members", s.MemberCount())

	e.broadcast(s, EventPlayerJoined, map[string]any{"display_name": p.DisplayName}, p)
	return e.ack(p, s), nil
}

func (e *Engine) attach(p *player.Player, s *session.Session) {
	s.AddMember(p.ID)
	p.Session = s
	p.Conn.JoinRoom(s.Room())
	p.DisplayName = fmt.Sprintf("Player %d", s.MemberCount())
	s.Touch(now())
}

func (e *Engine) ack(p *player.Player, s *session.Session) *JoinAck {
	doc := s.State.Clone()
	if doc == nil {
		doc = state.Document{}
	}
	return &JoinAck{
		PlayerID:     p.ID,
		SessionID:    s.ID,
		SessionState: doc,
		Kind:         s.Kind,
		DisplayName:  p.DisplayName,
	}
}

// leave detaches the player from its session, tells the remaining members
// and destroys the session once it is empty.
func (e *Engine) leave(p *player.Player) {
	s := p.Session
	if s == nil {
		return
	}

	s.RemoveMember(p.ID)
	p.Conn.LeaveRoom(s.Room())
	p.Session = nil
	name := p.DisplayName
	p.DisplayName = ""
	s.Touch(now())

	e.logger.Info("Player left",
		"session_id", s.ID,
		"player_id", p.ID,
		"members", s.MemberCount())

	e.broadcast(s, EventPlayerLeft, map[string]any{"display_name": name}, p)

	if s.MemberCount() == 0 {
		e.destroy(s, "empty")
	}
}

// detachAll removes every member from s without destroying it. Members are
// told first so they can reset their view.
func (e *Engine) detachAll(s *session.Session, reason string) {
	e.broadcast(s, EventSessionClosed, map[string]any{"session_id": s.ID, "reason": reason}, nil)

	for _, id := range s.MemberIDs() {
		s.RemoveMember(id)

		p, ok := e.players.Get(id)
		if !ok {
			e.logger.Error("Session member not registered", "session_id", s.ID, "player_id", id)
			continue
		}
		if p.Session != s {
			e.logger.Error("Session member points at another session", "session_id", s.ID, "player_id", id)
			continue
		}
		p.Conn.LeaveRoom(s.Room())
		p.Session = nil
		p.DisplayName = ""
	}
}

func (e *Engine) destroy(s *session.Session, reason string) {
	if err := e.sessions.Remove(s.ID); err != nil {
		e.logger.Error("Session already gone", "session_id", s.ID, "error", err)
		return
	}
	e.metrics.destroyed(reason)
	e.logger.Info("Session destroyed", "session_id", s.ID, "reason", reason)
}

// member returns the sender on conn and its session, verifying that the
// registries agree about the membership.
func (e *Engine) member(conn player.Connection) (*player.Player, *session.Session, error) {
	p, err := e.players.LookupRequired(conn)
	if err != nil {
		return nil, nil, err
	}

	s := p.Session
	if s == nil {
		return nil, nil, gameerr.Wrap(gameerr.ErrNotFound, ErrNotJoined, "player %d has not joined a session", p.ID)
	}

	live, ok := e.sessions.Get(s.ID)
	if !ok || live != s || !s.HasMember(p.ID) {
		e.logger.Error("Membership drift", "session_id", s.ID, "player_id", p.ID)
		return nil, nil, gameerr.New(gameerr.ErrInternalInconsistency, "player %d is not a member of session %s", p.ID, s.ID)
	}
	return p, s, nil
}
