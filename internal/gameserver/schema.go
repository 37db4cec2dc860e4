package gameserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// ErrSchema is returned when the game server database lacks a required
// table or column.
var ErrSchema = errors.New("game server schema check failed")

// Columns the players table must have for reconciliation.
var requiredPlayerColumns = []string{"steam_id", "username", "balance", "privilege", "play_time"}

// Capabilities describes the optional parts of the game server schema.
// It is negotiated once at startup instead of probing on every request.
type Capabilities struct {
	PlayerAvatars  bool // players.avatar_url exists
	OnlineFlag     bool // players.online exists
	ServerSettings bool // server_settings table exists
}

// SchemaGuard validates the game server schema through INFORMATION_SCHEMA.
type SchemaGuard struct {
	db *sql.DB
}

// NewSchemaGuard creates a new schema guard.
func NewSchemaGuard(db *sql.DB) *SchemaGuard {
	return &SchemaGuard{db: db}
}

// Columns returns the lower-cased column names of table in the current
// database. A missing table yields an empty set.
func (g *SchemaGuard) Columns(ctx context.Context, table string) (map[string]bool, error) {
	const query = `
		SELECT COLUMN_NAME
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE()
		AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	rows, err := g.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, fmt.Errorf("failed to query table schema for %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan column info: %w", err)
		}
		cols[strings.ToLower(name)] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}
	return cols, nil
}

// Negotiate checks the required players columns and reports which optional
// features the schema supports.
func (g *SchemaGuard) Negotiate(ctx context.Context) (Capabilities, error) {
	players, err := g.Columns(ctx, "players")
	if err != nil {
		return Capabilities{}, err
	}
	if len(players) == 0 {
		return Capabilities{}, fmt.Errorf("%w: table players not found", ErrSchema)
	}

	var missing []string
	for _, col := range requiredPlayerColumns {
		if !players[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return Capabilities{}, fmt.Errorf("%w: players is missing columns %s", ErrSchema, strings.Join(missing, ", "))
	}

	settings, err := g.Columns(ctx, "server_settings")
	if err != nil {
		return Capabilities{}, err
	}

	return Capabilities{
		PlayerAvatars:  players["avatar_url"],
		OnlineFlag:     players["online"],
		ServerSettings: settings["name"] && settings["value"],
	}, nil
}
