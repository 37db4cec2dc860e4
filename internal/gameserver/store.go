package gameserver

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/pr-poehali-dev/cs16-server-dashboard/internal/model"
)

const (
	defaultMap       = "de_dust2"
	defaultPrivilege = "user"
)

// Store reads players and match state from the game server database.
type Store struct {
	db         *sql.DB
	caps       Capabilities
	serverIP   string
	maxPlayers int
}

// NewStore creates a Store for a schema with the given capabilities.
func NewStore(db *sql.DB, caps Capabilities, serverIP string, maxPlayers int) *Store {
	return &Store{db: db, caps: caps, serverIP: serverIP, maxPlayers: maxPlayers}
}

// TracksAvatars reports whether players carry an avatar URL.
func (s *Store) TracksAvatars() bool {
	return s.caps.PlayerAvatars
}

// ListPlayers returns every player with a non-empty Steam ID.
// NULL balance and play time read as zero, NULL privilege as "user".
func (s *Store) ListPlayers(ctx context.Context) ([]model.Player, error) {
	query := `
		SELECT steam_id, username, balance, privilege, play_time
		FROM players
		WHERE steam_id IS NOT NULL AND steam_id != ''
	`
	if s.caps.PlayerAvatars {
		query = `
		SELECT steam_id, username, balance, privilege, play_time, avatar_url
		FROM players
		WHERE steam_id IS NOT NULL AND steam_id != ''
	`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := make([]model.Player, 0)
	for rows.Next() {
		var (
			p         model.Player
			username  sql.NullString
			balance   sql.NullInt64
			privilege sql.NullString
			playTime  sql.NullInt64
			avatar    sql.NullString
		)
		dest := []any{&p.SteamID, &username, &balance, &privilege, &playTime}
		if s.caps.PlayerAvatars {
			dest = append(dest, &avatar)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}

		p.Username = username.String
		p.Balance = balance.Int64
		p.PlayTime = playTime.Int64
		p.Privilege = defaultPrivilege
		if privilege.Valid && privilege.String != "" {
			p.Privilege = privilege.String
		}
		p.AvatarURL = avatar.String
		players = append(players, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// ServerStats returns the current player count and match state.
// Settings that are absent keep their defaults.
func (s *Store) ServerStats(ctx context.Context) (*model.ServerStats, error) {
	stats := &model.ServerStats{
		MaxPlayers: s.maxPlayers,
		CurrentMap: defaultMap,
		ServerIP:   s.serverIP,
	}

	if s.caps.OnlineFlag {
		const query = `SELECT COUNT(*) FROM players WHERE online = 1`
		if err := s.db.QueryRowContext(ctx, query).Scan(&stats.PlayersOnline); err != nil {
			return nil, fmt.Errorf("failed to count online players: %w", err)
		}
	}

	if !s.caps.ServerSettings {
		return stats, nil
	}

	const query = `
		SELECT name, value
		FROM server_settings
		WHERE name IN ('current_map', 'ct_score', 't_score')
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query server settings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan server setting: %w", err)
		}
		switch name {
		case "current_map":
			stats.CurrentMap = value
		case "ct_score":
			stats.CTScore = parseScore(name, value)
		case "t_score":
			stats.TScore = parseScore(name, value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating server settings: %w", err)
	}

	return stats, nil
}

func parseScore(name, value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Str("setting", name).Str("value", value).Msg("Ignoring non-numeric score")
		return 0
	}
	return n
}
