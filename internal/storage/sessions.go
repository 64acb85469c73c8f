package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/miladpirayegar-hash/scholar/internal/domain"
)

// SessionStore is the in-memory session registry. Each session is mutated
// only by its own pipeline run; the mutex protects the map itself and
// makes the attempt fencing atomic. Readers always receive copies, so a
// poll may observe any intermediate state of a run.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
	order    []string
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: map[string]*domain.Session{},
	}
}

func (s *SessionStore) Create(audioPath, title string) domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := &domain.Session{
		ID:        uuid.NewString(),
		Title:     title,
		AudioPath: audioPath,
		Status:    domain.StatusProcessing,
		CreatedAt: time.Now().Unix(),
	}

	s.sessions[sess.ID] = sess
	s.order = append(s.order, sess.ID)

	return *sess
}

func (s *SessionStore) Get(id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("session %s not found", id)
	}
	return *sess, nil
}

// List returns all sessions, newest first.
func (s *SessionStore) List() []domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]domain.Session, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		sessions = append(sessions, *s.sessions[s.order[i]])
	}
	return sessions
}

// BeginAttempt clears everything derived from a previous run, resets the
// session to its initial processing state and returns the new attempt
// number. The audio reference is kept; reprocessing operates on the same
// upload.
func (s *SessionStore) BeginAttempt(id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return 0, fmt.Errorf("session %s not found", id)
	}

	sess.Attempt++
	sess.Transcript = ""
	sess.Insights = nil
	sess.Status = domain.StatusProcessing
	sess.Progress = 0
	sess.Error = ""
	sess.ProcessedAt = 0

	return sess.Attempt, nil
}

// Apply runs mutate against the session if and only if the given attempt
// is still current. Writes from a superseded run are discarded and Apply
// reports false.
func (s *SessionStore) Apply(id string, attempt int64, mutate func(*domain.Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || sess.Attempt != attempt {
		return false
	}

	mutate(sess)
	return true
}
