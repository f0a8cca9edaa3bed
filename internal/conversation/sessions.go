package conversation

import (
	"sync"
	"time"
)

// DefaultTTL is how long an unfinished wizard is remembered.
const DefaultTTL = 15 * time.Minute

// Key identifies one dialog: an actor talking in one chat. The same actor
// may run separate wizards in different chats.
type Key struct {
	Actor   int64
	Context int64
}

type session struct {
	state State
	exp   time.Time
}

// Sessions keeps the wizard state of each dialog, forgetting it after a
// period of silence.
type Sessions struct {
	mu  sync.Mutex
	m   map[Key]session
	ttl time.Duration
	now func() time.Time
}

// NewSessions creates a session map. A ttl of zero means DefaultTTL.
func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Sessions{m: make(map[Key]session), ttl: ttl, now: time.Now}
}

// Get returns the state of k, or Idle when none is stored or it expired.
func (s *Sessions) Get(k Key) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[k]
	if !ok || s.now().After(e.exp) {
		delete(s.m, k)
		return Idle{}
	}
	return e.state
}

// Put stores state for k and restarts its expiry. Storing Idle forgets k.
func (s *Sessions) Put(k Key, state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, idle := state.(Idle); idle || state == nil {
		delete(s.m, k)
		return
	}
	s.m[k] = session{state: state, exp: s.now().Add(s.ttl)}
}

// Prune drops expired sessions and returns how many remain.
func (s *Sessions) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.m {
		if now.After(e.exp) {
			delete(s.m, k)
		}
	}
	return len(s.m)
}
