package annotation

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store owns one State and applies commands to it one at a time.
type Store struct {
	mu    sync.Mutex
	state State

	newID func() string
	now   func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithIDFunc overrides id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithClock overrides the creation timestamp source.
func WithClock(fn func() time.Time) Option {
	return func(s *Store) { s.now = fn }
}

// NewStore creates a store holding the initial state.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: NewState(),
		newID: uuid.NewString,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Dispatch applies cmd and reports whether the state changed.
func (s *Store) Dispatch(cmd Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cmd.apply(&s.state)
}

// Create records a new annotation over [start, end) and makes it active.
// It returns false without touching the state when start >= end.
func (s *Store) Create(textID string, start, end int, text string) (Annotation, bool) {
	if start >= end {
		return Annotation{}, false
	}
	cmd := Create{
		ID:     s.newID(),
		TextID: textID,
		Start:  start,
		End:    end,
		Text:   text,
		At:     s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !cmd.apply(&s.state) {
		return Annotation{}, false
	}
	return s.state.Get(cmd.ID)
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Get looks up an annotation by id.
func (s *Store) Get(id string) (Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Get(id)
}

// Active returns the active annotation, if it still exists.
func (s *Store) Active() (Annotation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Active()
}

// ActiveID returns the active pointer, which may be stale.
func (s *Store) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ActiveID
}

// Annotations returns the annotations of textID; empty means all.
func (s *Store) Annotations(textID string) []Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ForText(textID)
}
