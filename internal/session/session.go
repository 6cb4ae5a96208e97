package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found")

// Session is the server-side state of one logged-in user.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	GradeLevel  string    `json:"grade_level,omitempty"`
	Role        string    `json:"role"`
	QuestionIDs []string  `json:"question_ids"`
	Index       int       `json:"index"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// CurrentQuestionID returns "" when no problem set is loaded.
func (s Session) CurrentQuestionID() string {
	if s.Index < 0 || s.Index >= len(s.QuestionIDs) {
		return ""
	}
	return s.QuestionIDs[s.Index]
}

type Store interface {
	Create(ctx context.Context, s Session) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session) error
	Delete(ctx context.Context, id string) error
}

type memoryStore struct {
	mu       sync.RWMutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]Session
}

// NewMemoryStore keeps sessions in process. ttl <= 0 means sessions never expire.
func NewMemoryStore(ttl time.Duration, now func() time.Time) Store {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{ttl: ttl, now: now, sessions: map[string]Session{}}
}

func (m *memoryStore) Create(_ context.Context, s Session) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gc()
	s.ID = uuid.NewString()
	s.CreatedAt = m.now()
	if m.ttl > 0 {
		s.ExpiresAt = s.CreatedAt.Add(m.ttl)
	}
	s.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	m.sessions[s.ID] = s
	return s, nil
}

func (m *memoryStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok || m.expired(s) {
		return Session{}, ErrNotFound
	}
	s.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	return s, nil
}

func (m *memoryStore) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok || m.expired(cur) {
		return ErrNotFound
	}
	s.CreatedAt, s.ExpiresAt = cur.CreatedAt, cur.ExpiresAt
	s.QuestionIDs = append([]string(nil), s.QuestionIDs...)
	m.sessions[s.ID] = s
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) expired(s Session) bool {
	return !s.ExpiresAt.IsZero() && !m.now().Before(s.ExpiresAt)
}

// gc drops expired sessions; caller holds the write lock.
func (m *memoryStore) gc() {
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
		}
	}
}
