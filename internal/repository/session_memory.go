package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vibe-be/internal/domain"
)

// memorySessionStore keeps sessions in a mutex-guarded map. It backs
// DB-less development runs and tests; the mutex gives it the same per-key
// merge atomicity the PostgreSQL store gets from its row lock.
type memorySessionStore struct {
	mu         sync.Mutex
	sessions   map[string]*domain.AnonymousSession
	maxActions int
	ttl        time.Duration
}

// NewMemorySessionStore creates a new in-memory session store
func NewMemorySessionStore(maxActions int, ttl time.Duration) SessionStore {
	return &memorySessionStore{
		sessions:   make(map[string]*domain.AnonymousSession),
		maxActions: maxActions,
		ttl:        ttl,
	}
}

func (s *memorySessionStore) Create(ctx context.Context, sessionID string, actions []domain.ActionRecord, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(sessionID, actions, now)
}

func (s *memorySessionStore) createLocked(sessionID string, actions []domain.ActionRecord, now time.Time) error {
	if err := domain.ValidateBatch(0, actions, now, s.maxActions); err != nil {
		return err
	}

	s.sessions[sessionID] = &domain.AnonymousSession{
		SessionID: sessionID,
		Actions:   append([]domain.ActionRecord(nil), actions...),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	return nil
}

func (s *memorySessionStore) Merge(ctx context.Context, sessionID string, actions []domain.ActionRecord, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return s.createLocked(sessionID, actions, now)
	}

	if session.IsProcessed() {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionProcessed)
	}

	// Expired sessions are removed on sight, never resurrected
	if session.IsExpired(now) {
		delete(s.sessions, sessionID)
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionExpired)
	}

	if err := domain.ValidateBatch(len(session.Actions), actions, now, s.maxActions); err != nil {
		return err
	}

	session.Actions = append(session.Actions, actions...)
	session.ExpiresAt = now.Add(s.ttl)
	return nil
}

func (s *memorySessionStore) Get(ctx context.Context, sessionID string, now time.Time) (*domain.AnonymousSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.IsExpired(now) {
		return nil, nil
	}
	return copySession(session), nil
}

func (s *memorySessionStore) ClaimForProcessing(ctx context.Context, sessionID string, now time.Time) (*domain.AnonymousSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok || session.IsExpired(now) || session.IsProcessed() {
		return nil, nil
	}

	processedAt := now
	session.ProcessedAt = &processedAt
	return copySession(session), nil
}

func (s *memorySessionStore) DeleteExpiredBefore(ctx context.Context, now time.Time) ([]domain.DeletedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []domain.DeletedSession
	for id, session := range s.sessions {
		if session.IsExpired(now) {
			deleted = append(deleted, domain.DeletedSession{
				SessionID:   id,
				ActionCount: len(session.Actions),
				CreatedAt:   session.CreatedAt,
			})
			delete(s.sessions, id)
		}
	}
	return deleted, nil
}

// copySession returns a snapshot detached from the store's own record
func copySession(session *domain.AnonymousSession) *domain.AnonymousSession {
	out := *session
	out.Actions = append([]domain.ActionRecord(nil), session.Actions...)
	if session.ProcessedAt != nil {
		processedAt := *session.ProcessedAt
		out.ProcessedAt = &processedAt
	}
	return &out
}
