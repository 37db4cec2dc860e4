// Package model defines the data models for the community dashboard.
package model

import "time"

// PayoutKind tells the reward applier how a catalog item changes a user.
type PayoutKind string

// Payout kinds stored in case_items.item_type.
const (
	PayoutBalance   PayoutKind = "balance"   // credit value to balance
	PayoutPrivilege PayoutKind = "privilege" // overwrite privilege tier
	PayoutNone      PayoutKind = "none"      // cosmetic, no state change
)

// Valid reports whether k is a known payout kind.
func (k PayoutKind) Valid() bool {
	switch k {
	case PayoutBalance, PayoutPrivilege, PayoutNone:
		return true
	}
	return false
}

// CatalogItem is a reward that can be won from the daily case.
type CatalogItem struct {
	ID          int64      `db:"id" json:"id"`
	Name        string     `db:"name" json:"name"`
	Description string     `db:"description" json:"description"`
	Rarity      string     `db:"rarity" json:"rarity"`
	PayoutKind  PayoutKind `db:"item_type" json:"type"`
	PayoutValue string     `db:"value" json:"value"`
	Weight      float64    `db:"chance" json:"chance"`
	Icon        string     `db:"icon" json:"icon"`
	IsActive    bool       `db:"is_active" json:"is_active"`
}

// Reward is the state change a won item applies to a user.
type Reward struct {
	Kind      PayoutKind
	Amount    int64  // balance credit, PayoutBalance only
	Privilege string // new tier, PayoutPrivilege only
}

// User represents a website account keyed by Steam ID.
type User struct {
	ID         int64      `db:"id" json:"id"`
	SteamID    string     `db:"steam_id" json:"steam_id"`
	Username   string     `db:"username" json:"username"`
	AvatarURL  string     `db:"avatar_url" json:"avatar_url"`
	Balance    int64      `db:"balance" json:"balance"`
	Privilege  string     `db:"privilege" json:"privilege"`
	PlayTime   int64      `db:"play_time" json:"play_time"`
	LastDrawAt *time.Time `db:"last_daily_spin" json:"last_daily_spin"`
	CreatedAt  time.Time  `db:"created_at" json:"-"`
	UpdatedAt  time.Time  `db:"updated_at" json:"-"`
}

// HistoryEntry is one row of the append-only case history.
type HistoryEntry struct {
	ID     int64     `db:"id"`
	UserID int64     `db:"user_id"`
	ItemID int64     `db:"case_item_id"`
	WonAt  time.Time `db:"won_at"`
}

// HistoryView is a history entry joined with the item it awarded.
type HistoryView struct {
	WonAt    time.Time `json:"won_at"`
	ItemName string    `json:"name"`
	Rarity   string    `json:"rarity"`
	Value    string    `json:"value"`
}

// Player is a row of the game server's players table.
type Player struct {
	SteamID   string
	Username  string
	Balance   int64
	Privilege string
	PlayTime  int64
	// AvatarURL is empty when the game server does not track avatars.
	AvatarURL string
}

// ServerStats is a snapshot of the live game server.
type ServerStats struct {
	PlayersOnline int    `json:"players_online"`
	MaxPlayers    int    `json:"max_players"`
	CurrentMap    string `json:"current_map"`
	CTScore       int    `json:"ct_score"`
	TScore        int    `json:"t_score"`
	ServerIP      string `json:"server_ip"`
}
