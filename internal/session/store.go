package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DeafMist/blog-search/backend/internal/searchfilter"
)

// Session is one live search box: its results container and the component
// that renders into it.
type Session struct {
	ID        string
	Results   *searchfilter.Buffer
	Component *searchfilter.Component
}

// Factory builds the component for a fresh session. The component must be
// fully configured on return; the store publishes it right after.
type Factory func(id string, results *searchfilter.Buffer) *searchfilter.Component

const compactSlack = 16

type touch struct {
	id string
	ts time.Time
}

type item struct {
	sess *Session
	seen time.Time
}

// Store keeps a bounded set of sessions, evicting the least recently
// touched ones once capacity or the idle ttl is exceeded.
type Store struct {
	mu       sync.Mutex
	items    map[string]item
	order    []touch
	capacity int
	ttl      time.Duration
	factory  Factory
	now      func() time.Time
}

// NewStore creates a store with the provided capacity and idle ttl.
func NewStore(capacity int, ttl time.Duration, factory Factory) *Store {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{
		items:    make(map[string]item, capacity),
		order:    make([]touch, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
}

// Create registers a new session with a random id.
func (s *Store) Create() *Session {
	results := &searchfilter.Buffer{}
	sess := &Session{ID: uuid.NewString(), Results: results}
	if s.factory != nil {
		sess.Component = s.factory(sess.ID, results)
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[sess.ID] = item{sess: sess, seen: now}
	s.order = append(s.order, touch{id: sess.ID, ts: now})
	s.compact(now)
	return sess
}

// Get returns the session for id if it is still alive and marks it as used.
func (s *Store) Get(id string) (*Session, bool) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	it, ok := s.items[id]
	if !ok || now.Sub(it.seen) > s.ttl {
		return nil, false
	}
	if !it.seen.Equal(now) {
		it.seen = now
		s.items[id] = it
		s.order = append(s.order, touch{id: id, ts: now})
	}
	s.compact(now)
	return it.sess, true
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) compact(now time.Time) {
	cutoff := now.Add(-s.ttl)

	for len(s.order) > 0 && (len(s.items) > s.capacity || s.order[0].ts.Before(cutoff) || s.stale(s.order[0])) {
		oldest := s.order[0]
		s.order = s.order[1:]

		if it, ok := s.items[oldest.id]; ok && it.seen.Equal(oldest.ts) {
			delete(s.items, oldest.id)
		}
	}

	// Superseded touches of hot sessions pile up behind the head.
	if len(s.order) > 2*len(s.items)+compactSlack {
		live := make([]touch, 0, len(s.items))
		for _, t := range s.order {
			if !s.stale(t) {
				live = append(live, t)
			}
		}
		s.order = live
	}
}

// stale reports whether a touch record has been superseded by a newer one.
func (s *Store) stale(t touch) bool {
	it, ok := s.items[t.id]
	return !ok || !it.seen.Equal(t.ts)
}
