package service

import (
	"context"
	"fmt"

	"github.com/richardl62/richards-old-games-server/game/engine"
	"github.com/richardl62/richards-old-games-server/game/session"
	"github.com/richardl62/richards-old-games-server/game/state"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	engine SessionEngine
	kinds  KindCatalog
}

// NewGameService creates a new game service instance
func NewGameService(eng SessionEngine, kinds KindCatalog) GameService {
	return &gameServiceImpl{
		engine: eng,
		kinds:  kinds,
	}
}

// CreateSession starts a session with no members. It is removed by the idle
// sweep unless someone joins.
func (s *gameServiceImpl) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionInfo, error) {
	kind := req.Kind
	if kind == "" {
		kind = s.kinds.DefaultKind()
	}

	sum, err := s.engine.StartSession(ctx, req.ID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return fromSummary(sum), nil
}

// GetSession retrieves session information including players and state
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	info, err := s.engine.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	out := fromSummary(info.Summary)
	out.Players = info.Players
	out.State = info.State
	return out, nil
}

// ListSessions returns all live sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	sums, err := s.engine.ListSessions(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*SessionInfo, 0, len(sums))
	for _, sum := range sums {
		result = append(result, fromSummary(sum))
	}
	return result, nil
}

// DeleteSession detaches the members of a session and removes it
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	return s.engine.RemoveSession(ctx, sessionID)
}

// ClearSessions removes every session and returns how many were removed
func (s *gameServiceImpl) ClearSessions(ctx context.Context) (int, error) {
	return s.engine.ClearSessions(ctx)
}

// GetSessionState returns the shared state of a session. A session without
// state yields an empty document.
func (s *gameServiceImpl) GetSessionState(ctx context.Context, sessionID string) (state.Document, error) {
	info, err := s.engine.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if info.State == nil {
		return state.Document{}, nil
	}
	return info.State, nil
}

// ListKinds returns the kind catalog
func (s *gameServiceImpl) ListKinds(ctx context.Context) (*KindsInfo, error) {
	kinds := s.kinds.ListKinds()
	return &KindsInfo{
		DefaultKind: s.kinds.DefaultKind(),
		Restricted:  len(kinds) > 0,
		Kinds:       kinds,
	}, nil
}

// Stats reports live session and player counts
func (s *gameServiceImpl) Stats(ctx context.Context) (*engine.Stats, error) {
	st, err := s.engine.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func fromSummary(sum session.Summary) *SessionInfo {
	info := &SessionInfo{
		ID:        sum.ID,
		Kind:      sum.Kind,
		Members:   sum.Members,
		CreatedAt: sum.CreatedAt,
	}
	if !sum.LastActivityAt.IsZero() {
		last := sum.LastActivityAt
		info.LastActivityAt = &last
	}
	return info
}
