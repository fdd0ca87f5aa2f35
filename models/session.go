// models/session.go
package models

import "time"

// Game modes supported by the app.
const (
	GameMode1v1        = "1v1"
	GameMode2v2        = "2v2"
	GameModeCoop       = "coop"
	GameModeTournament = "tournament"
)

// SessionStatus is the lifecycle stage of a match session.
type SessionStatus string

const (
	StatusSetup               SessionStatus = "SETUP"
	StatusPlayerSelection     SessionStatus = "PLAYER_SELECTION"
	StatusPunishmentSelection SessionStatus = "PUNISHMENT_SELECTION"
	StatusItemGathering       SessionStatus = "ITEM_GATHERING"
	StatusGameInstructions    SessionStatus = "GAME_INSTRUCTIONS"
	StatusGameplay            SessionStatus = "GAMEPLAY"
	StatusScoring             SessionStatus = "SCORING"
	StatusGameComplete        SessionStatus = "GAME_COMPLETE"
	StatusCancelled           SessionStatus = "CANCELLED"
)

// Handicap types. Only TimeReduction is produced today; the other two are
// declared variants with no producer yet.
const (
	HandicapTimeReduction   = "time_reduction"
	HandicapExtraChallenge  = "extra_challenge"
	HandicapItemRestriction = "item_restriction"
)

// WinningScore is the first-to-N round count that ends a session.
const WinningScore = 3

// MaxRounds is the length of the pre-drawn game plan (best-of-5).
const MaxRounds = 5

// PlayerHandicap is a temporary disadvantage attached to the leading player.
// Advisory only: enforcement (e.g. actually shortening a timer) is the UI's job.
type PlayerHandicap struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	GameID      string `json:"game_id"`
	Round       int    `json:"round"`
}

// GameRoundResult records one completed round won by a player.
type GameRoundResult struct {
	GameID      string          `json:"game_id"`
	GameTitle   string          `json:"game_title"`
	Round       int             `json:"round"`
	CompletedAt time.Time       `json:"completed_at"`
	Handicap    *PlayerHandicap `json:"handicap,omitempty"`
}

// Player is one contestant in a session.
type Player struct {
	ID string `json:"id"`
	// Name may be decorated for display; OriginalName is the stable label
	// used for handicap descriptions and match history.
	Name            string            `json:"name"`
	OriginalName    string            `json:"original_name"`
	Score           int               `json:"score"`
	Wins            []GameRoundResult `json:"wins"`
	CurrentHandicap *PlayerHandicap   `json:"current_handicap,omitempty"`
}

// Session is the authoritative state of one best-of-5 match.
type Session struct {
	ID             string        `json:"id"`
	GameMode       string        `json:"game_mode"`
	Status         SessionStatus `json:"status"`
	Player1        Player        `json:"player1"`
	Player2        Player        `json:"player2"`
	SelectedGames  []string      `json:"selected_games"`
	CurrentGameIdx int           `json:"current_game_index"`
	CurrentRound   int           `json:"current_round"`
	MaxRounds      int           `json:"max_rounds"`
	AvailableItems []string      `json:"available_items"`
	Punishment     string        `json:"punishment,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

// PlayerByID resolves "player1" / "player2" to the matching player.
func (s *Session) PlayerByID(id string) *Player {
	switch id {
	case "player1":
		return &s.Player1
	case "player2":
		return &s.Player2
	}
	return nil
}

// Clone returns a deep copy safe to hand to subscribers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.SelectedGames = append([]string(nil), s.SelectedGames...)
	out.AvailableItems = append([]string(nil), s.AvailableItems...)
	out.Player1 = s.Player1.Clone()
	out.Player2 = s.Player2.Clone()
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// Clone returns a deep copy of the player.
func (p Player) Clone() Player {
	out := p
	out.Wins = append([]GameRoundResult(nil), p.Wins...)
	if p.CurrentHandicap != nil {
		h := *p.CurrentHandicap
		out.CurrentHandicap = &h
	}
	return out
}
