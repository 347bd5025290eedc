package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"vibe-be/internal/domain"
	"vibe-be/pkg/database"
)

// sessionRepository stores anonymous sessions in PostgreSQL. Merge runs as a
// single transaction with the session row locked, so concurrent batches for
// one sessionID serialize instead of racing.
type sessionRepository struct {
	db         *database.PostgresDB
	maxActions int
	ttl        time.Duration
}

// NewSessionRepository creates a new PostgreSQL-backed session store
func NewSessionRepository(db *database.PostgresDB, maxActions int, ttl time.Duration) SessionStore {
	return &sessionRepository{
		db:         db,
		maxActions: maxActions,
		ttl:        ttl,
	}
}

// Create inserts a fresh session holding the given batch
func (r *sessionRepository) Create(ctx context.Context, sessionID string, actions []domain.ActionRecord, now time.Time) error {
	if err := domain.ValidateBatch(0, actions, now, r.maxActions); err != nil {
		return err
	}

	encoded, err := json.Marshal(actions)
	if err != nil {
		return fmt.Errorf("failed to encode actions: %w", err)
	}

	query := `
		INSERT INTO anonymous_sessions (session_id, actions, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.Pool.Exec(ctx, query, sessionID, encoded, now, now.Add(r.ttl)); err != nil {
		return fmt.Errorf("failed to create anonymous session: %w", err)
	}

	return nil
}

// Merge appends a batch to the session under a row lock, refreshing the
// sliding TTL; unknown sessions are created instead
func (r *sessionRepository) Merge(ctx context.Context, sessionID string, actions []domain.ActionRecord, now time.Time) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin merge transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		SELECT actions, expires_at, processed_at
		FROM anonymous_sessions
		WHERE session_id = $1
		FOR UPDATE
	`

	var encoded []byte
	var expiresAt time.Time
	var processedAt *time.Time
	err = tx.QueryRow(ctx, query, sessionID).Scan(&encoded, &expiresAt, &processedAt)
	if err == pgx.ErrNoRows {
		if err := domain.ValidateBatch(0, actions, now, r.maxActions); err != nil {
			return err
		}
		fresh, err := json.Marshal(actions)
		if err != nil {
			return fmt.Errorf("failed to encode actions: %w", err)
		}
		insert := `
			INSERT INTO anonymous_sessions (session_id, actions, created_at, expires_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.Exec(ctx, insert, sessionID, fresh, now, now.Add(r.ttl)); err != nil {
			return fmt.Errorf("failed to create anonymous session: %w", err)
		}
		return tx.Commit(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to lock anonymous session: %w", err)
	}

	if processedAt != nil {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionProcessed)
	}

	// Expired sessions are removed on sight, never resurrected
	if !expiresAt.After(now) {
		if _, err := tx.Exec(ctx, `DELETE FROM anonymous_sessions WHERE session_id = $1`, sessionID); err != nil {
			return fmt.Errorf("failed to delete expired session: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit expired session delete: %w", err)
		}
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionExpired)
	}

	var existing []domain.ActionRecord
	if err := json.Unmarshal(encoded, &existing); err != nil {
		return fmt.Errorf("failed to decode stored actions: %w", err)
	}

	if err := domain.ValidateBatch(len(existing), actions, now, r.maxActions); err != nil {
		return err
	}

	merged, err := json.Marshal(append(existing, actions...))
	if err != nil {
		return fmt.Errorf("failed to encode merged actions: %w", err)
	}

	update := `
		UPDATE anonymous_sessions
		SET actions = $2, expires_at = $3
		WHERE session_id = $1
	`
	if _, err := tx.Exec(ctx, update, sessionID, merged, now.Add(r.ttl)); err != nil {
		return fmt.Errorf("failed to update anonymous session: %w", err)
	}

	return tx.Commit(ctx)
}

// Get retrieves an unexpired session; expired or unknown ids read as absent
func (r *sessionRepository) Get(ctx context.Context, sessionID string, now time.Time) (*domain.AnonymousSession, error) {
	query := `
		SELECT actions, created_at, expires_at, processed_at
		FROM anonymous_sessions
		WHERE session_id = $1 AND expires_at > $2
	`

	session := &domain.AnonymousSession{SessionID: sessionID}
	var encoded []byte
	err := r.db.Pool.QueryRow(ctx, query, sessionID, now).Scan(
		&encoded,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.ProcessedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get anonymous session: %w", err)
	}

	if err := json.Unmarshal(encoded, &session.Actions); err != nil {
		return nil, fmt.Errorf("failed to decode stored actions: %w", err)
	}

	return session, nil
}

// ClaimForProcessing stamps processedAt with a conditional write; only one
// concurrent caller observes a non-nil session
func (r *sessionRepository) ClaimForProcessing(ctx context.Context, sessionID string, now time.Time) (*domain.AnonymousSession, error) {
	query := `
		UPDATE anonymous_sessions
		SET processed_at = $2
		WHERE session_id = $1 AND processed_at IS NULL AND expires_at > $2
		RETURNING actions, created_at, expires_at
	`

	session := &domain.AnonymousSession{SessionID: sessionID, ProcessedAt: &now}
	var encoded []byte
	err := r.db.Pool.QueryRow(ctx, query, sessionID, now).Scan(
		&encoded,
		&session.CreatedAt,
		&session.ExpiresAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim anonymous session: %w", err)
	}

	if err := json.Unmarshal(encoded, &session.Actions); err != nil {
		return nil, fmt.Errorf("failed to decode stored actions: %w", err)
	}

	return session, nil
}

// DeleteExpiredBefore removes lapsed sessions and reports what was deleted
func (r *sessionRepository) DeleteExpiredBefore(ctx context.Context, now time.Time) ([]domain.DeletedSession, error) {
	query := `
		DELETE FROM anonymous_sessions
		WHERE expires_at <= $1
		RETURNING session_id, jsonb_array_length(actions), created_at
	`

	rows, err := r.db.Pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	defer rows.Close()

	var deleted []domain.DeletedSession
	for rows.Next() {
		var d domain.DeletedSession
		if err := rows.Scan(&d.SessionID, &d.ActionCount, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan deleted session row: %w", err)
		}
		deleted = append(deleted, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading deleted session rows: %w", err)
	}

	return deleted, nil
}
