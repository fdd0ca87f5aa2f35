// models/catalog.go
package models

import "time"

// QuantityType on a material requirement.
const (
	QuantityPerUser = "PER_USER" // scales by player count
	QuantityTotal   = "TOTAL"    // fixed regardless of player count
)

// Game is one mini-game definition from the remote catalog.
type Game struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description,omitempty"`
	MinPlayers   int      `json:"min_players"`
	MaxPlayers   int      `json:"max_players"`
	IsPremium    bool     `json:"is_premium"`
	TimerSeconds int      `json:"timer_seconds,omitempty"` // 0 = no timer configured
	Materials    []string `json:"materials,omitempty"`     // plain names, legacy matching
}

// MaterialAlternative is one allowed substitution for a required material.
// Alternatives only count when the owning game flags them as allowed.
type MaterialAlternative struct {
	MaterialName string `json:"material_name"`
	Allowed      bool   `json:"allowed"`
}

// MaterialRequirement is the structured requirement data for one material of
// one game, fetched from the catalog.
type MaterialRequirement struct {
	GameID       string                `json:"game_id"`
	MaterialName string                `json:"material_name"`
	Quantity     int                   `json:"quantity"`
	QuantityType string                `json:"quantity_type"` // PER_USER | TOTAL
	Alternatives []MaterialAlternative `json:"alternatives,omitempty"`
}

// Punishment is a loser-punishment from the catalog.
type Punishment struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// GameFilter narrows a filtered catalog query.
type GameFilter struct {
	MinPlayers     int      `json:"min_players"`
	MaxPlayers     int      `json:"max_players"`
	AvailableItems []string `json:"available_items,omitempty"`
	IsPremium      *bool    `json:"is_premium,omitempty"`
	Limit          int      `json:"limit,omitempty"`
	Random         bool     `json:"random,omitempty"`
}

// RemotePlayer mirrors the catalog's player record. Ids assigned remotely
// supersede locally generated offline ids once reconciliation succeeds.
type RemotePlayer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// RemoteSession mirrors the catalog's game-session record.
type RemoteSession struct {
	ID           string     `json:"id"`
	GameMode     string     `json:"game_mode"`
	Status       string     `json:"status"`
	Player1Name  string     `json:"player1_name"`
	Player2Name  string     `json:"player2_name"`
	Player1Score int        `json:"player1_score"`
	Player2Score int        `json:"player2_score"`
	CurrentIndex int        `json:"current_game_index"`
	Punishment   string     `json:"punishment,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// MatchHistory is the completed-session record pushed to the catalog.
type MatchHistory struct {
	SessionID   string    `json:"session_id"`
	GameMode    string    `json:"game_mode"`
	WinnerName  string    `json:"winner_name"`
	LoserName   string    `json:"loser_name"`
	FinalScore  string    `json:"final_score"`
	Punishment  string    `json:"punishment,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// MaterialInventory is the user's own declared material list kept remotely.
type MaterialInventory struct {
	UserID    string    `json:"user_id"`
	Materials []string  `json:"materials"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// CatalogBundle is the published snapshot of the catalog (games +
// punishments) served from object storage for offline seeding.
type CatalogBundle struct {
	Games       []Game       `json:"games"`
	Punishments []Punishment `json:"punishments"`
	PublishedAt time.Time    `json:"published_at"`
}
