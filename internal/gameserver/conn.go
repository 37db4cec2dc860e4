// Package gameserver reads the CS 1.6 server's MySQL database: the players
// table mirrored into website accounts and the live match settings.
package gameserver

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/config"
)

const connectAttempts = 5

// Open connects to the game server database, retrying with a linear backoff.
func Open(ctx context.Context, cfg *config.GameServerConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open game server database: %w", err)
	}

	for i := 0; i < connectAttempts; i++ {
		err = db.PingContext(ctx)
		if err == nil {
			break
		}
		if i == connectAttempts-1 {
			db.Close()
			return nil, fmt.Errorf("failed to ping game server database after %d attempts: %w", connectAttempts, err)
		}

		log.Warn().Err(err).Int("attempt", i+1).Msg("Game server database not reachable, retrying")
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second * time.Duration(i+1)):
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Name).
		Msg("Successfully connected to game server MySQL")

	return db, nil
}
