package memory

import (
	"context"
	"sync"

	"couplegame-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// A single store-wide mutex serializes writers; sessions are copied in and out.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
	// active maps creator+gameType to the id of the in_progress session.
	active map[activeKey]string
}

type activeKey struct {
	creator  string
	gameType domain.GameType
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
		active:   make(map[activeKey]string),
	}
}

func (s *SessionStore) Create(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := activeKey{creator: session.Creator, gameType: session.GameType}
	if session.Status == domain.StatusInProgress {
		if _, ok := s.active[key]; ok {
			return domain.ErrDuplicateActiveSession
		}
		s.active[key] = session.ID
	}
	session = session.Clone()
	session.Version = 1
	s.sessions[session.ID] = session
	return nil
}

func (s *SessionStore) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session.Clone(), nil
}

func (s *SessionStore) Update(_ context.Context, id string, mutate func(*domain.Session) error) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	next := current.Clone()
	if err := mutate(&next); err != nil {
		return domain.Session{}, err
	}
	next.Version = current.Version + 1
	s.sessions[id] = next

	key := activeKey{creator: next.Creator, gameType: next.GameType}
	if next.Status.Terminal() && s.active[key] == id {
		delete(s.active, key)
	}
	return next.Clone(), nil
}

func (s *SessionStore) ListActive(_ context.Context, playerID string) ([]domain.Session, error) {
	return s.list(playerID, func(st domain.Status) bool { return st == domain.StatusInProgress }), nil
}

func (s *SessionStore) ListHistory(_ context.Context, playerID string) ([]domain.Session, error) {
	return s.list(playerID, domain.Status.Terminal), nil
}

func (s *SessionStore) list(playerID string, keep func(domain.Status) bool) []domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Session{}
	for _, session := range s.sessions {
		if keep(session.Status) && session.IsParticipant(playerID) {
			out = append(out, session.Clone())
		}
	}
	domain.SortNewestFirst(out)
	return out
}
