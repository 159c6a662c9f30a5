// Package player tracks connected players and the connection each one owns.
package player

import (
	"fmt"
	"sort"
	"time"

	"github.com/richardl62/richards-old-games-server/game/gameerr"
	"github.com/richardl62/richards-old-games-server/game/session"
)

var (
	ErrPlayerNotFound    = fmt.Errorf("player %w", gameerr.ErrNotFound)
	ErrAlreadyRegistered = fmt.Errorf("connection %w", gameerr.ErrAlreadyRegistered)
)

// Connection is one player's channel as provided by the transport.
// Implementations must be comparable (pointer types are).
type Connection interface {
	// ID identifies the connection in logs.
	ID() string
	// JoinRoom adds the connection to a broadcast room.
	JoinRoom(room string)
	// LeaveRoom removes the connection from a broadcast room.
	LeaveRoom(room string)
	// Close releases the connection.
	Close() error
}

// Player is a connected participant, attached to at most one session.
type Player struct {
	ID          uint64
	Conn        Connection
	Session     *session.Session
	DisplayName string
	ConnectedAt time.Time
}

// Info is the externally visible part of a player.
type Info struct {
	PlayerID    uint64 `json:"player_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// Info returns the player's externally visible fields.
func (p *Player) Info() Info {
	return Info{PlayerID: p.ID, DisplayName: p.DisplayName}
}

// Registry maps connections to players. It is not safe for concurrent use.
type Registry struct {
	byConn map[Connection]*Player
	byID   map[uint64]*Player
	nextID uint64
}

// NewRegistry creates an empty registry. Player IDs start at 1.
func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[Connection]*Player),
		byID:   make(map[uint64]*Player),
		nextID: 1,
	}
}

// Register creates the player for conn.
func (r *Registry) Register(conn Connection) (*Player, error) {
	if conn == nil {
		return nil, gameerr.New(gameerr.ErrInvalidArgument, "connection not supplied")
	}
	if _, ok := r.byConn[conn]; ok {
		return nil, gameerr.Wrap(gameerr.ErrAlreadyRegistered, ErrAlreadyRegistered,
			"player already assigned to connection %s", conn.ID())
	}

	p := &Player{
		ID:          r.nextID,
		Conn:        conn,
		ConnectedAt: time.Now(),
	}
	r.nextID++

	r.byConn[conn] = p
	r.byID[p.ID] = p
	return p, nil
}

// Lookup returns the player registered for conn, if any.
func (r *Registry) Lookup(conn Connection) (*Player, bool) {
	p, ok := r.byConn[conn]
	return p, ok
}

// LookupRequired is Lookup that treats a missing player as an error.
func (r *Registry) LookupRequired(conn Connection) (*Player, error) {
	p, ok := r.byConn[conn]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	return p, nil
}

// Get returns the player with the given ID.
func (r *Registry) Get(id uint64) (*Player, bool) {
	p, ok := r.byID[id]
	return p, ok
}

// Remove detaches the player for conn from its session, releases the
// connection and forgets the player.
func (r *Registry) Remove(conn Connection) (*Player, error) {
	p, ok := r.byConn[conn]
	if !ok {
		return nil, ErrPlayerNotFound
	}

	if s := p.Session; s != nil {
		s.RemoveMember(p.ID)
		conn.LeaveRoom(s.Room())
		p.Session = nil
	}

	delete(r.byConn, conn)
	delete(r.byID, p.ID)

	if err := conn.Close(); err != nil {
		return p, fmt.Errorf("release connection %s: %w", conn.ID(), err)
	}
	return p, nil
}

// All returns every registered player ordered by ID.
func (r *Registry) All() []*Player {
	players := make([]*Player, 0, len(r.byID))
	for _, p := range r.byID {
		players = append(players, p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	return players
}

// Count returns the number of registered players.
func (r *Registry) Count() int {
	return len(r.byConn)
}
