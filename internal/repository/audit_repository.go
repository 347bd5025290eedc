package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"vibe-be/internal/domain"
	"vibe-be/pkg/database"
)

// auditRepository appends audit events to PostgreSQL
type auditRepository struct {
	db *database.PostgresDB
}

// NewAuditRepository creates a new PostgreSQL-backed audit sink
func NewAuditRepository(db *database.PostgresDB) AuditStore {
	return &auditRepository{
		db: db,
	}
}

// Record inserts one audit event, assigning an id when the caller left it empty
func (r *auditRepository) Record(ctx context.Context, event *domain.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	details, err := json.Marshal(event.Details)
	if err != nil {
		return fmt.Errorf("failed to encode audit event details: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, event_type, details, created_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.Pool.Exec(ctx, query, event.ID, event.EventType, details, event.CreatedAt); err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}
