package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"vibe-be/internal/domain"
)

// MemorySearchHistoryStore collects search history rows in memory; it backs
// DB-less development runs and tests
type MemorySearchHistoryStore struct {
	mu      sync.Mutex
	entries []domain.SearchHistoryEntry
}

// NewMemorySearchHistoryStore creates a new in-memory search history sink
func NewMemorySearchHistoryStore() *MemorySearchHistoryStore {
	return &MemorySearchHistoryStore{}
}

func (s *MemorySearchHistoryStore) Append(ctx context.Context, entry *domain.SearchHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

// Entries returns a snapshot of everything appended so far
func (s *MemorySearchHistoryStore) Entries() []domain.SearchHistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SearchHistoryEntry(nil), s.entries...)
}

// MemoryAuditStore collects audit events in memory
type MemoryAuditStore struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

// NewMemoryAuditStore creates a new in-memory audit sink
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) Record(ctx context.Context, event *domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, *event)
	return nil
}

// Events returns a snapshot of everything recorded so far
func (s *MemoryAuditStore) Events() []domain.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEvent(nil), s.events...)
}
