package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skilldepot/skilldepot/pkg/cerr"
)

// MemoryStore keeps sessions in process memory. It is the default for
// single-instance deployments and the test double everywhere else.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, folders []Folder) (*Session, error) {
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Folders:   folders,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || sess.Expired(s.now()) {
		return nil, cerr.NewError(cerr.NotFound, "session not found", nil)
	}
	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *MemoryStore) Cleanup(_ context.Context) (int, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}
