package repository

import (
	"context"
	"time"

	"vibe-be/internal/domain"
)

// SessionStore is the durable keyed record of anonymous sessions and their
// buffered actions. Implementations must make the read-modify-write inside
// Merge atomic per sessionID; two concurrent merges for the same session may
// serialize in either order but neither batch may be lost.
type SessionStore interface {
	// Create inserts a fresh session holding the given batch; the batch is
	// validated against the skew window and the per-session cap first
	Create(ctx context.Context, sessionID string, actions []domain.ActionRecord, now time.Time) error

	// Merge appends a batch to an existing session, refreshing the sliding
	// TTL on success. An unknown sessionID behaves like Create. Merging
	// into an expired session deletes it and fails with ErrSessionExpired;
	// merging into a processed session fails with ErrSessionProcessed.
	// Validation failures reject the whole batch and leave the session
	// untouched.
	Merge(ctx context.Context, sessionID string, actions []domain.ActionRecord, now time.Time) error

	// Get returns the session, or nil without error when it is unknown or
	// its TTL lapsed at or before now (lazy expiry; no eviction happens here)
	Get(ctx context.Context, sessionID string, now time.Time) (*domain.AnonymousSession, error)

	// ClaimForProcessing atomically stamps processedAt on an active,
	// unprocessed session and returns its snapshot. It returns nil without
	// error when the session is unknown, expired, or already claimed, so
	// concurrent reconcile calls cannot both win.
	ClaimForProcessing(ctx context.Context, sessionID string, now time.Time) (*domain.AnonymousSession, error)

	// DeleteExpiredBefore removes every session whose TTL lapsed at or
	// before now and summarizes what was deleted
	DeleteExpiredBefore(ctx context.Context, now time.Time) ([]domain.DeletedSession, error)
}

// SearchHistoryStore is the append-only search history collaborator keyed by
// authenticated user
type SearchHistoryStore interface {
	Append(ctx context.Context, entry *domain.SearchHistoryEntry) error
}

// AuditStore is the append-only audit/security event sink
type AuditStore interface {
	Record(ctx context.Context, event *domain.AuditEvent) error
}
