package binding

import (
	"sync"
	"time"

	"github.com/solatis/ducktest/internal/types"
)

// Session is the capability handed to class constructors.
// One session owns exactly one root object for its lifetime.
type Session struct {
	id        types.SessionID
	client    types.ClientID
	createdAt time.Time

	mu      sync.Mutex
	closed  bool
	onClose []func()
}

// NewSession creates an open session for the given client.
func NewSession(client types.ClientID) *Session {
	return &Session{
		id:        types.NewSessionID(),
		client:    client,
		createdAt: time.Now().UTC(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() types.SessionID { return s.id }

// ClientID returns the client that opened the session.
func (s *Session) ClientID() types.ClientID { return s.client }

// CreatedAt returns the UTC creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// OnClose registers fn to run once when the session closes.
// Runs immediately if the session is already closed.
func (s *Session) OnClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()
		return
	}
	s.onClose = append(s.onClose, fn)
	s.mu.Unlock()
}

// Close marks the session closed and runs close hooks in reverse order.
// Returns false if the session was already closed.
func (s *Session) Close() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	hooks := s.onClose
	s.onClose = nil
	s.mu.Unlock()

	for i := len(hooks) - 1; i >= 0; i-- {
		hooks[i]()
	}
	return true
}

// Root is the embeddable base for objects served as a session root.
// Embedding it gives the object access to its owning session.
type Root struct {
	session *Session
}

// NewRoot binds a root to its session.
func NewRoot(s *Session) Root {
	return Root{session: s}
}

// Session returns the owning session.
func (r Root) Session() *Session {
	return r.session
}
