package roomstate

import (
	"sync"
	"time"
)

// Snapshot is what a late joiner needs to catch up.
type Snapshot struct {
	Code    string `json:"code"`
	Version int64  `json:"version"`
}

// State is a point-in-time copy of a room.
type State struct {
	Code         string
	Version      int64
	LastActivity time.Time
}

func (s State) Snapshot() Snapshot { return Snapshot{Code: s.Code, Version: s.Version} }

type room struct {
	mu           sync.Mutex
	code         string
	version      int64
	lastActivity time.Time
	removed      bool // set by a sweep; writers must re-resolve the room
}

func (r *room) state() State {
	return State{Code: r.code, Version: r.version, LastActivity: r.lastActivity}
}

type Option func(*Store)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEvictHook registers fn to be called, outside any lock, for every room a
// sweep removes.
func WithEvictHook(fn func(roomID string)) Option {
	return func(s *Store) { s.onEvict = fn }
}

// Store holds the document state of every room. Operations on one room are
// serialized by that room's mutex; different rooms never share a lock.
type Store struct {
	rooms   sync.Map // roomID -> *room
	now     func() time.Time
	onEvict func(roomID string)
}

func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// acquire returns the live room for roomID, locked, creating it if needed.
// A room tombstoned by a concurrent sweep is skipped and recreated.
func (s *Store) acquire(roomID string) (r *room, created bool) {
	for {
		fresh := &room{lastActivity: s.now()}
		v, loaded := s.rooms.LoadOrStore(roomID, fresh)
		r = v.(*room)
		r.mu.Lock()
		if r.removed {
			r.mu.Unlock()
			continue
		}
		return r, !loaded
	}
}

// GetOrCreate returns the room's state, creating an empty room on first use.
// Joining connections go through Join instead, which also marks the room active.
func (s *Store) GetOrCreate(roomID string) State {
	r, _ := s.acquire(roomID)
	defer r.mu.Unlock()
	return r.state()
}

// Join is GetOrCreate for a joining connection: it also marks the room active.
func (s *Store) Join(roomID string) (Snapshot, bool) {
	r, created := s.acquire(roomID)
	defer r.mu.Unlock()
	r.lastActivity = s.now()
	return r.state().Snapshot(), created
}

// TryApply stores code at version iff version is newer than what the room
// holds. Stale or equal versions leave the room untouched.
func (s *Store) TryApply(roomID, code string, version int64) bool {
	r, _ := s.acquire(roomID)
	defer r.mu.Unlock()
	if version <= r.version {
		return false
	}
	r.code = code
	r.version = version
	r.lastActivity = s.now()
	return true
}

// Snapshot returns the current code and version without creating the room.
func (s *Store) Snapshot(roomID string) (Snapshot, bool) {
	st, ok := s.State(roomID)
	return st.Snapshot(), ok
}

func (s *Store) State(roomID string) (State, bool) {
	v, ok := s.rooms.Load(roomID)
	if !ok {
		return State{}, false
	}
	r := v.(*room)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removed {
		return State{}, false
	}
	return r.state(), true
}

// SweepInactive removes every room idle for longer than retention and
// returns how many were removed.
func (s *Store) SweepInactive(now time.Time, retention time.Duration) int {
	var evicted []string
	s.rooms.Range(func(k, v any) bool {
		r := v.(*room)
		r.mu.Lock()
		if !r.removed && now.Sub(r.lastActivity) > retention {
			r.removed = true
			s.rooms.CompareAndDelete(k, r)
			evicted = append(evicted, k.(string))
		}
		r.mu.Unlock()
		return true
	})
	if s.onEvict != nil {
		for _, id := range evicted {
			s.onEvict(id)
		}
	}
	return len(evicted)
}

func (s *Store) Len() int {
	n := 0
	s.rooms.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
