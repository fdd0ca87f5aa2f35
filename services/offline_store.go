// services/offline_store.go
package services

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"party-game-system/models"
)

// Versioned storage keys. A format change gets a new key, not a migration.
const (
	keyCachedGames       = "@partygame:cached_games_v1"
	keyCachedPunishments = "@partygame:cached_punishments_v1"
	keyOfflineSessions   = "@partygame:offline_sessions_v1"
	keySyncQueue         = "@partygame:sync_queue_v1"
	keyCachedPlayers     = "@partygame:cached_players_v1"
	keyLastSync          = "@partygame:last_sync_v1"
)

// OfflineStore is the local durable cache: catalog snapshot, pending session
// snapshots, the sync queue, cached players and the last-sync stamp. It is
// built entirely on the storage_entries key→JSON table.
type OfflineStore struct {
	DB *gorm.DB
}

func NewOfflineStore(db *gorm.DB) *OfflineStore {
	return &OfflineStore{DB: db}
}

type cachedGames struct {
	Games    []models.Game `json:"games"`
	CachedAt time.Time     `json:"cached_at"`
}

type cachedPunishments struct {
	Punishments []models.Punishment `json:"punishments"`
	CachedAt    time.Time           `json:"cached_at"`
}

// getJSON loads and decodes one bucket. found is false when the key has
// never been written.
func (s *OfflineStore) getJSON(key string, out interface{}) (bool, error) {
	var entry models.StorageEntry
	if err := s.DB.Where("key = ?", key).First(&entry).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(entry.Value), out); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

func (s *OfflineStore) setJSON(key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	entry := models.StorageEntry{Key: key, Value: string(data), UpdatedAt: time.Now()}
	if err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *OfflineStore) remove(key string) error {
	return s.DB.Where("key = ?", key).Delete(&models.StorageEntry{}).Error
}

// --- catalog cache ---

func (s *OfflineStore) CacheGames(games []models.Game) error {
	return s.setJSON(keyCachedGames, cachedGames{Games: games, CachedAt: time.Now()})
}

func (s *OfflineStore) CachedGames() ([]models.Game, *time.Time, error) {
	var bucket cachedGames
	found, err := s.getJSON(keyCachedGames, &bucket)
	if err != nil || !found {
		return nil, nil, err
	}
	return bucket.Games, &bucket.CachedAt, nil
}

func (s *OfflineStore) CachePunishments(punishments []models.Punishment) error {
	return s.setJSON(keyCachedPunishments, cachedPunishments{Punishments: punishments, CachedAt: time.Now()})
}

func (s *OfflineStore) CachedPunishments() ([]models.Punishment, error) {
	var bucket cachedPunishments
	found, err := s.getJSON(keyCachedPunishments, &bucket)
	if err != nil || !found {
		return nil, err
	}
	return bucket.Punishments, nil
}

// --- session snapshots ---

// SaveSessionSnapshot upserts one offline session snapshot, keyed by
// session id.
func (s *OfflineStore) SaveSessionSnapshot(snap models.OfflineSessionSnapshot) error {
	if snap.Session == nil {
		return fmt.Errorf("snapshot without session")
	}
	sessions := map[string]models.OfflineSessionSnapshot{}
	if _, err := s.getJSON(keyOfflineSessions, &sessions); err != nil {
		return err
	}
	snap.SavedAt = time.Now()
	sessions[snap.Session.ID] = snap
	return s.setJSON(keyOfflineSessions, sessions)
}

func (s *OfflineStore) SessionSnapshots() ([]models.OfflineSessionSnapshot, error) {
	sessions := map[string]models.OfflineSessionSnapshot{}
	if _, err := s.getJSON(keyOfflineSessions, &sessions); err != nil {
		return nil, err
	}
	out := make([]models.OfflineSessionSnapshot, 0, len(sessions))
	for _, snap := range sessions {
		out = append(out, snap)
	}
	return out, nil
}

func (s *OfflineStore) MarkSessionSynced(sessionID string) error {
	sessions := map[string]models.OfflineSessionSnapshot{}
	if _, err := s.getJSON(keyOfflineSessions, &sessions); err != nil {
		return err
	}
	snap, ok := sessions[sessionID]
	if !ok {
		return nil
	}
	snap.Synced = true
	sessions[sessionID] = snap
	return s.setJSON(keyOfflineSessions, sessions)
}

// --- sync queue ---

func (s *OfflineStore) EnqueueSyncOperation(op models.SyncOperation) error {
	var queue []models.SyncOperation
	if _, err := s.getJSON(keySyncQueue, &queue); err != nil {
		return err
	}
	queue = append(queue, op)
	return s.setJSON(keySyncQueue, queue)
}

func (s *OfflineStore) PendingSyncOperations() ([]models.SyncOperation, error) {
	var queue []models.SyncOperation
	if _, err := s.getJSON(keySyncQueue, &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

func (s *OfflineStore) RemoveSyncOperation(id string) error {
	var queue []models.SyncOperation
	if _, err := s.getJSON(keySyncQueue, &queue); err != nil {
		return err
	}
	kept := queue[:0]
	for _, op := range queue {
		if op.ID != id {
			kept = append(kept, op)
		}
	}
	return s.setJSON(keySyncQueue, kept)
}

// BumpSyncRetry increments an operation's retry count. Once the count
// reaches its max the operation is removed for good and dropped=true is
// returned; this is the only place failed writes are silently discarded.
func (s *OfflineStore) BumpSyncRetry(id string) (dropped bool, err error) {
	var queue []models.SyncOperation
	if _, err := s.getJSON(keySyncQueue, &queue); err != nil {
		return false, err
	}
	kept := queue[:0]
	for _, op := range queue {
		if op.ID != id {
			kept = append(kept, op)
			continue
		}
		op.RetryCount++
		if op.RetryCount >= op.MaxRetries {
			dropped = true
			log.Printf("[STORE] ⚠️ Dropping sync operation %s (%s) after %d failed attempts", op.ID, op.Type, op.RetryCount)
			continue
		}
		kept = append(kept, op)
	}
	return dropped, s.setJSON(keySyncQueue, kept)
}

// --- cached players ---

func (s *OfflineStore) CachePlayer(player models.RemotePlayer) error {
	players := map[string]models.RemotePlayer{}
	if _, err := s.getJSON(keyCachedPlayers, &players); err != nil {
		return err
	}
	players[player.ID] = player
	return s.setJSON(keyCachedPlayers, players)
}

func (s *OfflineStore) CachedPlayers() ([]models.RemotePlayer, error) {
	players := map[string]models.RemotePlayer{}
	if _, err := s.getJSON(keyCachedPlayers, &players); err != nil {
		return nil, err
	}
	out := make([]models.RemotePlayer, 0, len(players))
	for _, p := range players {
		out = append(out, p)
	}
	return out, nil
}

// --- sync stamp ---

func (s *OfflineStore) SetLastSyncTime(t time.Time) error {
	return s.setJSON(keyLastSync, t)
}

func (s *OfflineStore) LastSyncTime() (*time.Time, error) {
	var t time.Time
	found, err := s.getJSON(keyLastSync, &t)
	if err != nil || !found {
		return nil, err
	}
	return &t, nil
}

// --- derived reads ---

// PlayableGamesCount reports how many cached 2-player, non-premium games are
// playable with the given items. Offline there is no structured alternative
// data, so this is restricted to the legacy alias matcher.
func (s *OfflineStore) PlayableGamesCount(items []string, playerCount int) (int, error) {
	games, _, err := s.CachedGames()
	if err != nil {
		return 0, err
	}
	matcher := NewLegacyAliasMatcher()
	count := 0
	for _, game := range games {
		if game.IsPremium {
			continue
		}
		if game.MinPlayers > playerCount || game.MaxPlayers < playerCount {
			continue
		}
		if matcher.CanPlay(game, items, playerCount) {
			count++
		}
	}
	return count, nil
}

// ClearAll wipes every bucket. Reset/debug flows only.
func (s *OfflineStore) ClearAll() error {
	for _, key := range []string{
		keyCachedGames, keyCachedPunishments, keyOfflineSessions,
		keySyncQueue, keyCachedPlayers, keyLastSync,
	} {
		if err := s.remove(key); err != nil {
			return err
		}
	}
	return nil
}

// StorageInfo summarizes bucket sizes plus the last successful sync time.
func (s *OfflineStore) StorageInfo() (*models.StorageInfo, error) {
	info := &models.StorageInfo{}

	games, _, err := s.CachedGames()
	if err != nil {
		return nil, err
	}
	info.CachedGames = len(games)

	punishments, err := s.CachedPunishments()
	if err != nil {
		return nil, err
	}
	info.CachedPunishments = len(punishments)

	snapshots, err := s.SessionSnapshots()
	if err != nil {
		return nil, err
	}
	info.OfflineSessions = len(snapshots)

	queue, err := s.PendingSyncOperations()
	if err != nil {
		return nil, err
	}
	info.PendingSyncOps = len(queue)

	players, err := s.CachedPlayers()
	if err != nil {
		return nil, err
	}
	info.CachedPlayers = len(players)

	info.LastSyncAt, err = s.LastSyncTime()
	if err != nil {
		return nil, err
	}
	return info, nil
}
