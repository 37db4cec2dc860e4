package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/db"
)

// InsertUser creates a user row with the given Steam ID and balance
// and returns its id.
func InsertUser(t *testing.T, pool *db.Pool, steamID string, balance int64) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO users (steam_id, username, avatar_url, balance)
		VALUES ($1, $2, '', $3)
		RETURNING id
	`, steamID, "player_"+steamID, balance).Scan(&id)
	require.NoError(t, err)
	return id
}

// SetLastDrawAt overwrites a user's last daily spin time.
func SetLastDrawAt(t *testing.T, pool *db.Pool, userID int64, at *time.Time) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		`UPDATE users SET last_daily_spin = $2 WHERE id = $1`, userID, at)
	require.NoError(t, err)
}

// InsertItem creates a catalog row and returns it with its id filled in.
func InsertItem(t *testing.T, pool *db.Pool, item model.CatalogItem) model.CatalogItem {
	t.Helper()

	err := pool.QueryRow(context.Background(), `
		INSERT INTO case_items (name, description, rarity, item_type, value, chance, icon, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, item.Name, item.Description, item.Rarity, string(item.PayoutKind),
		item.PayoutValue, item.Weight, item.Icon, item.IsActive,
	).Scan(&item.ID)
	require.NoError(t, err)
	return item
}

// CountHistory returns the number of case history rows for a user.
func CountHistory(t *testing.T, pool *db.Pool, userID int64) int {
	t.Helper()

	var n int
	err := pool.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM case_history WHERE user_id = $1`, userID).Scan(&n)
	require.NoError(t, err)
	return n
}
