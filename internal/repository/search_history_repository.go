package repository

import (
	"context"
	"fmt"

	"vibe-be/internal/domain"
	"vibe-be/pkg/database"
)

// searchHistoryRepository appends to the authenticated users' search history
// in PostgreSQL
type searchHistoryRepository struct {
	db *database.PostgresDB
}

// NewSearchHistoryRepository creates a new PostgreSQL-backed search history sink
func NewSearchHistoryRepository(db *database.PostgresDB) SearchHistoryStore {
	return &searchHistoryRepository{
		db: db,
	}
}

// Append inserts one search history row
func (r *searchHistoryRepository) Append(ctx context.Context, entry *domain.SearchHistoryEntry) error {
	query := `
		INSERT INTO search_history (user_id, query, result_count, category, searched_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		entry.UserID,
		entry.Query,
		entry.ResultCount,
		entry.Category,
		entry.SearchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append search history entry: %w", err)
	}

	return nil
}
