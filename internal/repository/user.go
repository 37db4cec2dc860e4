// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/pkg/db"
)

// Common errors for repository operations.
var (
	ErrUserNotFound = errors.New("user not found")
)

const userColumns = `id, steam_id, username, avatar_url, balance, privilege,
	play_time, last_daily_spin, created_at, updated_at`

// UserRepository handles user data persistence.
type UserRepository struct {
	q db.Querier
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(q db.Querier) *UserRepository {
	return &UserRepository{q: q}
}

// WithTx returns a repository bound to tx.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	return &UserRepository{q: tx}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.SteamID,
		&user.Username,
		&user.AvatarURL,
		&user.Balance,
		&user.Privilege,
		&user.PlayTime,
		&user.LastDrawAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by id.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetBySteamID retrieves a user by Steam ID.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetBySteamID(ctx context.Context, steamID string) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE steam_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, steamID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by steam id: %w", err)
	}
	return user, nil
}

// GetForUpdate retrieves a user and locks the row until the surrounding
// transaction ends. Must be called on a repository bound with WithTx.
func (r *UserRepository) GetForUpdate(ctx context.Context, id int64) (*model.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return user, nil
}

// ApplyReward applies reward and stamps the last daily spin in one statement.
// Balance is incremented in SQL so concurrent writers never lose an update.
func (r *UserRepository) ApplyReward(ctx context.Context, id int64, reward model.Reward, at time.Time) (*model.User, error) {
	const query = `
		UPDATE users
		SET balance = balance + $2,
			privilege = COALESCE($3::text, privilege),
			last_daily_spin = $4,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var (
		amount    int64
		privilege *string
	)
	switch reward.Kind {
	case model.PayoutBalance:
		amount = reward.Amount
	case model.PayoutPrivilege:
		privilege = &reward.Privilege
	case model.PayoutNone:
	default:
		return nil, fmt.Errorf("unknown payout kind %q", reward.Kind)
	}

	user, err := scanUser(r.q.QueryRow(ctx, query, id, amount, privilege, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to apply reward: %w", err)
	}
	return user, nil
}

// UpsertMirrored inserts or overwrites the mirrored fields of the user with
// the player's Steam ID. avatar is stored on insert; existing avatars are
// replaced only when overwriteAvatar is set.
func (r *UserRepository) UpsertMirrored(ctx context.Context, p model.Player, avatar string, overwriteAvatar bool) (*model.User, error) {
	const query = `
		INSERT INTO users (steam_id, username, avatar_url, balance, privilege, play_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (steam_id) DO UPDATE SET
			username = EXCLUDED.username,
			avatar_url = CASE WHEN $7::boolean THEN EXCLUDED.avatar_url ELSE users.avatar_url END,
			balance = EXCLUDED.balance,
			privilege = EXCLUDED.privilege,
			play_time = EXCLUDED.play_time,
			updated_at = NOW()
		RETURNING ` + userColumns

	user, err := scanUser(r.q.QueryRow(ctx, query,
		p.SteamID, p.Username, avatar, p.Balance, p.Privilege, p.PlayTime, overwriteAvatar,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user %s: %w", p.SteamID, err)
	}
	return user, nil
}
