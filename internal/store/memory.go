package store

import (
	"sync"
	"time"

	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/observability"
)

// MemoryStore is a concurrency-safe in-memory implementation of a session store.
type MemoryStore struct {
	mu sync.RWMutex

	// key: session id
	data map[string]*dashboard.Session

	// retention configuration
	maxSessions int           // max number of sessions held (0 = unlimited)
	maxAge      time.Duration // max idle time before a session is pruned (0 = unlimited)

	metrics *observability.Metrics
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxSessions is <= 0, it is treated as unlimited.
func NewMemoryStore(maxSessions int, maxAge time.Duration, metrics *observability.Metrics) *MemoryStore {
	return &MemoryStore{
		data:        make(map[string]*dashboard.Session),
		maxSessions: maxSessions,
		maxAge:      maxAge,
		metrics:     metrics,
	}
}

// Save stores a session and enforces the count limit by evicting the least
// recently seen sessions.
func (s *MemoryStore) Save(sess *dashboard.Session) {
	var evicted []*dashboard.Session

	s.mu.Lock()
	s.data[sess.ID] = sess

	for s.maxSessions > 0 && len(s.data) > s.maxSessions {
		oldest := s.oldestLocked(sess.ID)
		if oldest == nil {
			break
		}
		delete(s.data, oldest.ID)
		evicted = append(evicted, oldest)
	}
	s.updateGaugeLocked()
	s.mu.Unlock()

	s.closeEvicted(evicted)
}

// Get returns the session with the given id.
func (s *MemoryStore) Get(id string) (*dashboard.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[id]
	if !ok {
		return nil, dashboard.ErrNotFound
	}
	return sess, nil
}

// Delete removes and closes a session.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.data[id]
	if ok {
		delete(s.data, id)
		s.updateGaugeLocked()
	}
	s.mu.Unlock()

	if !ok {
		return dashboard.ErrNotFound
	}
	sess.Close()
	return nil
}

// All returns every stored session in no particular order.
func (s *MemoryStore) All() []*dashboard.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*dashboard.Session, 0, len(s.data))
	for _, sess := range s.data {
		out = append(out, sess)
	}
	return out
}

// Prune removes sessions idle for longer than maxAge and returns how many.
func (s *MemoryStore) Prune(now time.Time) int {
	if s.maxAge <= 0 {
		return 0
	}
	cutoff := now.Add(-s.maxAge)

	var evicted []*dashboard.Session

	s.mu.Lock()
	for id, sess := range s.data {
		if sess.LastSeen().Before(cutoff) {
			delete(s.data, id)
			evicted = append(evicted, sess)
		}
	}
	s.updateGaugeLocked()
	s.mu.Unlock()

	s.closeEvicted(evicted)
	return len(evicted)
}

// Len returns the number of stored sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *MemoryStore) oldestLocked(keep string) *dashboard.Session {
	var oldest *dashboard.Session
	for id, sess := range s.data {
		if id == keep {
			continue
		}
		if oldest == nil || sess.LastSeen().Before(oldest.LastSeen()) {
			oldest = sess
		}
	}
	return oldest
}

func (s *MemoryStore) closeEvicted(sessions []*dashboard.Session) {
	for _, sess := range sessions {
		sess.Close()
	}
	if s.metrics != nil && len(sessions) > 0 {
		s.metrics.SessionsEvicted.Add(float64(len(sessions)))
	}
}

func (s *MemoryStore) updateGaugeLocked() {
	if s.metrics != nil {
		s.metrics.SessionsActive.Set(float64(len(s.data)))
	}
}
