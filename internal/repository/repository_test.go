// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/testutil"
)

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_GetByID(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	id := testutil.InsertUser(t, pool, "STEAM_0:1:100", 250)

	user, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "STEAM_0:1:100", user.SteamID)
	assert.Equal(t, int64(250), user.Balance)
	assert.Equal(t, "user", user.Privilege)
	assert.Nil(t, user.LastDrawAt)

	_, err = repo.GetByID(ctx, id+1000)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_GetBySteamID(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	id := testutil.InsertUser(t, pool, "STEAM_0:0:42", 0)

	user, err := repo.GetBySteamID(ctx, "STEAM_0:0:42")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)

	_, err = repo.GetBySteamID(ctx, "STEAM_0:0:43")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_ApplyReward(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	id := testutil.InsertUser(t, pool, "STEAM_0:1:7", 100)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Balance is additive
	user, err := repo.ApplyReward(ctx, id, model.Reward{Kind: model.PayoutBalance, Amount: 50}, at)
	require.NoError(t, err)
	assert.Equal(t, int64(150), user.Balance)
	assert.Equal(t, "user", user.Privilege)
	require.NotNil(t, user.LastDrawAt)
	assert.True(t, at.Equal(*user.LastDrawAt))

	// Privilege overwrites, balance untouched
	user, err = repo.ApplyReward(ctx, id, model.Reward{Kind: model.PayoutPrivilege, Privilege: "vip"}, at.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(150), user.Balance)
	assert.Equal(t, "vip", user.Privilege)

	// None only stamps the spin time
	later := at.Add(48 * time.Hour)
	user, err = repo.ApplyReward(ctx, id, model.Reward{Kind: model.PayoutNone}, later)
	require.NoError(t, err)
	assert.Equal(t, int64(150), user.Balance)
	assert.Equal(t, "vip", user.Privilege)
	assert.True(t, later.Equal(*user.LastDrawAt))

	_, err = repo.ApplyReward(ctx, id+1000, model.Reward{Kind: model.PayoutNone}, later)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_GetForUpdateInTx(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	id := testutil.InsertUser(t, pool, "STEAM_0:1:8", 0)

	err := pool.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		user, err := repo.WithTx(tx).GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		assert.Equal(t, id, user.ID)
		return nil
	})
	require.NoError(t, err)

	err = pool.WithTx(ctx, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := repo.WithTx(tx).GetForUpdate(ctx, id+1000)
		return err
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_UpsertMirrored(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	p := model.Player{
		SteamID:   "STEAM_0:0:555",
		Username:  "first",
		Balance:   10,
		Privilege: "user",
		PlayTime:  60,
	}

	created, err := repo.UpsertMirrored(ctx, p, "https://example.com/a.png", false)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.png", created.AvatarURL)

	p.Username = "second"
	p.Balance = 3
	p.Privilege = "admin"
	p.PlayTime = 90

	// Avatar kept when not mirrored
	updated, err := repo.UpsertMirrored(ctx, p, "https://example.com/b.png", false)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "second", updated.Username)
	assert.Equal(t, int64(3), updated.Balance, "balance is overwritten, not added")
	assert.Equal(t, "admin", updated.Privilege)
	assert.Equal(t, int64(90), updated.PlayTime)
	assert.Equal(t, "https://example.com/a.png", updated.AvatarURL)

	updated, err = repo.UpsertMirrored(ctx, p, "https://example.com/c.png", true)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/c.png", updated.AvatarURL)
}

// ============================================================================
// CatalogRepository Tests
// ============================================================================

func TestCatalogRepository_ListActive(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := NewCatalogRepository(pool)
	ctx := context.Background()

	empty, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	common := testutil.InsertItem(t, pool, model.CatalogItem{
		Name: "100 coins", Rarity: "common", PayoutKind: model.PayoutBalance,
		PayoutValue: "100", Weight: 70, IsActive: true,
	})
	rare := testutil.InsertItem(t, pool, model.CatalogItem{
		Name: "VIP Bronze", Rarity: "rare", PayoutKind: model.PayoutPrivilege,
		PayoutValue: "vip", Weight: 5, Icon: "crown", IsActive: true,
	})
	testutil.InsertItem(t, pool, model.CatalogItem{
		Name: "Retired", Rarity: "legendary", PayoutKind: model.PayoutNone,
		Weight: 1, IsActive: false,
	})

	items, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, rare.ID, items[0].ID)
	assert.Equal(t, model.PayoutPrivilege, items[0].PayoutKind)
	assert.Equal(t, "crown", items[0].Icon)
	assert.Equal(t, common.ID, items[1].ID)
	assert.Equal(t, 70.0, items[1].Weight)
}

// ============================================================================
// HistoryRepository Tests
// ============================================================================

func TestHistoryRepository_ListForCapsAtFiftyNewestFirst(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := NewHistoryRepository(pool)
	ctx := context.Background()

	userID := testutil.InsertUser(t, pool, "STEAM_0:1:60", 0)
	item := testutil.InsertItem(t, pool, model.CatalogItem{
		Name: "Sticker", Rarity: "common", PayoutKind: model.PayoutNone, Weight: 1, IsActive: true,
	})

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		_, err := repo.Append(ctx, userID, item.ID, base.Add(time.Duration(i)*24*time.Hour))
		require.NoError(t, err, fmt.Sprintf("append %d", i))
	}

	history, err := repo.ListFor(ctx, userID, 100)
	require.NoError(t, err)
	require.Len(t, history, 50)

	assert.True(t, base.Add(59*24*time.Hour).Equal(history[0].WonAt))
	assert.True(t, base.Add(10*24*time.Hour).Equal(history[49].WonAt))
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i-1].WonAt.After(history[i].WonAt), "entry %d out of order", i)
	}
	assert.Equal(t, "Sticker", history[0].ItemName)
	assert.Equal(t, "common", history[0].Rarity)

	few, err := repo.ListFor(ctx, userID, 5)
	require.NoError(t, err)
	assert.Len(t, few, 5)

	other, err := repo.ListFor(ctx, userID+1000, 50)
	require.NoError(t, err)
	assert.Empty(t, other)
}
