package session

import (
	"sort"
	"time"

	"github.com/richardl62/richards-old-games-server/game/state"
)

// Session is a live shared context: a kind label, a state document and the
// set of player IDs attached to it. The engine keeps the member set in step
// with each player's session reference.
type Session struct {
	ID             string
	Kind           string
	State          state.Document
	CreatedAt      time.Time
	LastActivityAt time.Time

	members map[uint64]struct{}
}

func newSession(id, kind string, now time.Time) *Session {
	return &Session{
		ID:             id,
		Kind:           kind,
		State:          state.Document{},
		CreatedAt:      now,
		LastActivityAt: now,
		members:        make(map[uint64]struct{}),
	}
}

// Room is the transport room name for the session.
func (s *Session) Room() string {
	return "room" + s.ID
}

// AddMember records playerID as a member. It reports false if the player
// was already a member.
func (s *Session) AddMember(playerID uint64) bool {
	if _, ok := s.members[playerID]; ok {
		return false
	}
	s.members[playerID] = struct{}{}
	return true
}

// RemoveMember drops playerID. It reports false if the player was not a
// member.
func (s *Session) RemoveMember(playerID uint64) bool {
	if _, ok := s.members[playerID]; !ok {
		return false
	}
	delete(s.members, playerID)
	return true
}

// HasMember reports whether playerID is a member.
func (s *Session) HasMember(playerID uint64) bool {
	_, ok := s.members[playerID]
	return ok
}

// MemberCount returns the number of members.
func (s *Session) MemberCount() int {
	return len(s.members)
}

// MemberIDs returns the member IDs in ascending order.
func (s *Session) MemberIDs() []uint64 {
	ids := make([]uint64, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Touch records activity on the session.
func (s *Session) Touch(now time.Time) {
	s.LastActivityAt = now
}

// Summary is the administrative view of a session.
type Summary struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"`
	Members        int       `json:"members"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Summary returns the session's administrative view.
func (s *Session) Summary() Summary {
	return Summary{
		ID:             s.ID,
		Kind:           s.Kind,
		Members:        s.MemberCount(),
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
}
