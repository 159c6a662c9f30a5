package session

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/richardl62/richards-old-games-server/game/gameerr"
)

var (
	ErrSessionNotFound      = fmt.Errorf("session %w", gameerr.ErrNotFound)
	ErrSessionAlreadyExists = fmt.Errorf("session %w", gameerr.ErrAlreadyExists)
	ErrInvalidSessionID     = fmt.Errorf("%w: session id", gameerr.ErrInvalidArgument)
	ErrInvalidKind          = fmt.Errorf("%w: session kind", gameerr.ErrInvalidArgument)
)

var (
	idPattern   = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,31}$`)
	kindPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,63}$`)
)

// Registry owns the set of live sessions. It is not safe for concurrent
// use; the engine confines it to its event loop.
type Registry struct {
	sessions map[string]*Session
	alloc    *Allocator
	kinds    map[string]struct{}
}

// NewRegistry creates a registry that assigns IDs with alloc. When kinds is
// non-empty, only those kinds may be created.
func NewRegistry(alloc *Allocator, kinds []string) *Registry {
	if alloc == nil {
		alloc = NewDefaultAllocator()
	}
	r := &Registry{
		sessions: make(map[string]*Session),
		alloc:    alloc,
	}
	if len(kinds) > 0 {
		r.kinds = make(map[string]struct{}, len(kinds))
		for _, k := range kinds {
			r.kinds[k] = struct{}{}
		}
	}
	return r
}

// ValidKind reports whether kind is a well-formed kind name.
func ValidKind(kind string) bool {
	return kindPattern.MatchString(kind)
}

// ValidateKind checks that kind is well formed and, when a catalog is
// configured, listed in it.
func (r *Registry) ValidateKind(kind string) error {
	if !ValidKind(kind) {
		return gameerr.Wrap(gameerr.ErrInvalidArgument, ErrInvalidKind, "invalid session kind %q", kind)
	}
	if r.kinds != nil {
		if _, ok := r.kinds[kind]; !ok {
			return gameerr.Wrap(gameerr.ErrInvalidArgument, ErrInvalidKind, "unknown session kind %q", kind)
		}
	}
	return nil
}

// Create registers a new session. An empty id is allocated; a proposed id
// must be well formed and not in use.
func (r *Registry) Create(id, kind string) (*Session, error) {
	if err := r.ValidateKind(kind); err != nil {
		return nil, err
	}

	if id == "" {
		allocated, err := r.alloc.Allocate(r.exists)
		if err != nil {
			return nil, err
		}
		id = allocated
	} else {
		if !idPattern.MatchString(id) {
			return nil, gameerr.Wrap(gameerr.ErrInvalidArgument, ErrInvalidSessionID, "invalid session id %q", id)
		}
		if r.exists(id) {
			return nil, gameerr.Wrap(gameerr.ErrAlreadyExists, ErrSessionAlreadyExists, "session %s already exists", id)
		}
	}

	s := newSession(id, kind, time.Now())
	r.sessions[key(id)] = s
	return s, nil
}

// Get retrieves a session by ID (case-insensitive).
func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[key(id)]
	return s, ok
}

// Remove detaches a session from the registry. Members are not touched.
func (r *Registry) Remove(id string) error {
	k := key(id)
	if _, ok := r.sessions[k]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, k)
	return nil
}

// List returns the live sessions ordered by ID.
func (r *Registry) List() []*Session {
	result := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Clear removes every session and returns how many were removed.
func (r *Registry) Clear() int {
	n := len(r.sessions)
	r.sessions = make(map[string]*Session)
	return n
}

// Sweep removes sessions without members whose last activity is before
// cutoff, returning them.
func (r *Registry) Sweep(cutoff time.Time) []*Session {
	var removed []*Session
	for k, s := range r.sessions {
		if s.MemberCount() == 0 && s.LastActivityAt.Before(cutoff) {
			delete(r.sessions, k)
			removed = append(removed, s)
		}
	}
	return removed
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	return len(r.sessions)
}

func (r *Registry) exists(id string) bool {
	_, ok := r.sessions[key(id)]
	return ok
}

func key(id string) string {
	return strings.ToLower(id)
}
