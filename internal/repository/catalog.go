package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/db"
)

// CatalogRepository reads case items. Items are maintained by the shop
// admin tooling; this service never writes them.
type CatalogRepository struct {
	q db.Querier
}

// NewCatalogRepository creates a new CatalogRepository instance.
func NewCatalogRepository(q db.Querier) *CatalogRepository {
	return &CatalogRepository{q: q}
}

// WithTx returns a repository bound to tx.
func (r *CatalogRepository) WithTx(tx pgx.Tx) *CatalogRepository {
	return &CatalogRepository{q: tx}
}

// ListActive returns active items, rarest first.
func (r *CatalogRepository) ListActive(ctx context.Context) ([]model.CatalogItem, error) {
	const query = `
		SELECT id, name, description, rarity, item_type, value, chance, icon, is_active
		FROM case_items
		WHERE is_active = TRUE
		ORDER BY chance ASC, id ASC
	`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list case items: %w", err)
	}
	defer rows.Close()

	items := make([]model.CatalogItem, 0)
	for rows.Next() {
		var (
			item model.CatalogItem
			kind string
		)
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Description,
			&item.Rarity,
			&kind,
			&item.PayoutValue,
			&item.Weight,
			&item.Icon,
			&item.IsActive,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan case item: %w", err)
		}
		item.PayoutKind = model.PayoutKind(kind)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating case items: %w", err)
	}

	return items, nil
}
