// models/sync.go
package models

import (
	"encoding/json"
	"time"
)

// Sync operation types. Each queued operation is an independent deferred
// write, replayed once connectivity returns.
const (
	OpCreateSession      = "CREATE_SESSION"
	OpUpdateSession      = "UPDATE_SESSION"
	OpCreateMatchHistory = "CREATE_MATCH_HISTORY"
	OpCreatePlayer       = "CREATE_PLAYER"
)

// MaxSyncRetries bounds how often a queued operation is retried before it is
// dropped for good.
const MaxSyncRetries = 3

// SyncOperation is one deferred write in the durable sync queue.
type SyncOperation struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
}

// OfflineSessionSnapshot mirrors a Session for local persistence, plus flags
// the sync engine uses to reconcile it with the remote store.
type OfflineSessionSnapshot struct {
	Session   *Session  `json:"session"`
	Completed bool      `json:"completed"`
	Synced    bool      `json:"synced"`
	SavedAt   time.Time `json:"saved_at"`
}

// StorageEntry is the single key→JSON row every offline-store bucket is
// built on. Keys are versioned so a format change is a new key, not a
// migration.
type StorageEntry struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// SyncState reported to sync subscribers.
type SyncState string

const (
	SyncStateSyncing   SyncState = "syncing"
	SyncStateCompleted SyncState = "completed"
	SyncStateError     SyncState = "error"
)

// SyncStatus is one progress report from a sync pass. Current/Total are only
// set while the queue is draining.
type SyncStatus struct {
	State   SyncState `json:"state"`
	Current int       `json:"current,omitempty"`
	Total   int       `json:"total,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// StorageInfo summarizes the offline store for debug/stats views.
type StorageInfo struct {
	CachedGames       int        `json:"cached_games"`
	CachedPunishments int        `json:"cached_punishments"`
	OfflineSessions   int        `json:"offline_sessions"`
	PendingSyncOps    int        `json:"pending_sync_ops"`
	CachedPlayers     int        `json:"cached_players"`
	LastSyncAt        *time.Time `json:"last_sync_at,omitempty"`
}
