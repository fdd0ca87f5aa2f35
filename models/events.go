// models/events.go
package models

import "time"

// SessionEventType tags one kind of session event.
type SessionEventType string

const (
	EventSessionStarted     SessionEventType = "SESSION_STARTED"
	EventPlayerAdded        SessionEventType = "PLAYER_ADDED"
	EventPunishmentSelected SessionEventType = "PUNISHMENT_SELECTED"
	EventItemsConfirmed     SessionEventType = "ITEMS_CONFIRMED"
	EventGamesSelected      SessionEventType = "GAMES_SELECTED"
	EventRoundCompleted     SessionEventType = "ROUND_COMPLETED"
	EventSessionCompleted   SessionEventType = "SESSION_COMPLETED"
	EventHandicapApplied    SessionEventType = "HANDICAP_APPLIED"
	EventSessionCancelled   SessionEventType = "SESSION_CANCELLED"
)

// EventPayload is implemented by exactly one payload struct per event kind.
type EventPayload interface {
	eventPayload()
}

// SessionEvent is one entry in a session's event history.
type SessionEvent struct {
	Type    SessionEventType `json:"type"`
	At      time.Time        `json:"at"`
	Payload EventPayload     `json:"payload,omitempty"`
}

type SessionStartedPayload struct {
	SessionID string `json:"session_id"`
	GameMode  string `json:"game_mode"`
}

type PlayerAddedPayload struct {
	Player1ID   string `json:"player1_id"`
	Player1Name string `json:"player1_name"`
	Player2ID   string `json:"player2_id"`
	Player2Name string `json:"player2_name"`
}

type PunishmentSelectedPayload struct {
	Punishment string `json:"punishment"`
}

type ItemsConfirmedPayload struct {
	Items []string `json:"items"`
}

type GamesSelectedPayload struct {
	GameIDs []string `json:"game_ids"`
}

type RoundCompletedPayload struct {
	WinnerID string `json:"winner_id"`
	GameID   string `json:"game_id"`
	Round    int    `json:"round"`
}

type SessionCompletedPayload struct {
	WinnerID   string `json:"winner_id"`
	WinnerName string `json:"winner_name"`
}

type HandicapAppliedPayload struct {
	PlayerID string          `json:"player_id"`
	Handicap *PlayerHandicap `json:"handicap"`
}

type SessionCancelledPayload struct {
	SessionID string `json:"session_id"`
}

func (SessionStartedPayload) eventPayload()     {}
func (PlayerAddedPayload) eventPayload()        {}
func (PunishmentSelectedPayload) eventPayload() {}
func (ItemsConfirmedPayload) eventPayload()     {}
func (GamesSelectedPayload) eventPayload()      {}
func (RoundCompletedPayload) eventPayload()     {}
func (SessionCompletedPayload) eventPayload()   {}
func (HandicapAppliedPayload) eventPayload()    {}
func (SessionCancelledPayload) eventPayload()   {}
