package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/db"
)

// MaxHistoryLimit caps a single history listing.
const MaxHistoryLimit = 50

// HistoryRepository handles the append-only case history.
type HistoryRepository struct {
	q db.Querier
}

// NewHistoryRepository creates a new HistoryRepository instance.
func NewHistoryRepository(q db.Querier) *HistoryRepository {
	return &HistoryRepository{q: q}
}

// WithTx returns a repository bound to tx.
func (r *HistoryRepository) WithTx(tx pgx.Tx) *HistoryRepository {
	return &HistoryRepository{q: tx}
}

// Append records that userID won itemID at the given time.
func (r *HistoryRepository) Append(ctx context.Context, userID, itemID int64, at time.Time) (*model.HistoryEntry, error) {
	const query = `
		INSERT INTO case_history (user_id, case_item_id, won_at)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, case_item_id, won_at
	`

	var entry model.HistoryEntry
	err := r.q.QueryRow(ctx, query, userID, itemID, at).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.ItemID,
		&entry.WonAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to append case history: %w", err)
	}

	return &entry, nil
}

// ListFor returns the user's most recent wins joined with item details,
// newest first. A limit outside [1, MaxHistoryLimit] means MaxHistoryLimit.
func (r *HistoryRepository) ListFor(ctx context.Context, userID int64, limit int) ([]model.HistoryView, error) {
	const query = `
		SELECT h.won_at, i.name, i.rarity, i.value
		FROM case_history h
		JOIN case_items i ON i.id = h.case_item_id
		WHERE h.user_id = $1
		ORDER BY h.won_at DESC, h.id DESC
		LIMIT $2
	`

	if limit <= 0 || limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list case history: %w", err)
	}
	defer rows.Close()

	history := make([]model.HistoryView, 0, limit)
	for rows.Next() {
		var v model.HistoryView
		if err := rows.Scan(&v.WonAt, &v.ItemName, &v.Rarity, &v.Value); err != nil {
			return nil, fmt.Errorf("failed to scan case history: %w", err)
		}
		history = append(history, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case history: %w", err)
	}

	return history, nil
}
