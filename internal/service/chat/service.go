package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zhouzirui/lumen-chat/backend/internal/model/chat"
)

var ErrSessionNotFound = errors.New("session not found")

// Service keeps the live sessions of this process. Nothing outlives the process.
type Service struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*Session
}

// NewService creates an empty registry. A ttl of zero keeps sessions until they are ended.
func NewService(ttl time.Duration) *Service {
	return &Service{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// CreateSession provisions an empty session with the theme flag off.
func (s *Service) CreateSession(_ context.Context) *Session {
	now := s.now().UTC()
	session := &Session{
		id:         uuid.NewString(),
		createdAt:  now,
		lastSeen:   now,
		transcript: make([]chat.Entry, 0, 16),
		now:        s.now,
	}

	s.mu.Lock()
	s.sweepLocked(now)
	s.sessions[session.id] = session
	s.mu.Unlock()

	return session
}

// GetSession retrieves a live session and marks it as seen.
func (s *Service) GetSession(_ context.Context, sessionID string) (*Session, error) {
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(now)
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.touch(now)
	return session, nil
}

// EndSession discards a session and everything it holds.
func (s *Service) EndSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	return nil
}

// Sweep drops idle sessions and reports how many were removed.
func (s *Service) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now().UTC())
}

// Len reports the number of live sessions.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Service) sweepLocked(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	removed := 0
	for id, session := range s.sessions {
		if now.Sub(session.seenAt()) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
