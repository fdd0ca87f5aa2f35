// workers/sync_worker.go
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"

	"party-game-system/models"
	"party-game-system/services"
	"party-game-system/utils"
)

type syncListener struct {
	id int
	fn func(models.SyncStatus)
}

// SyncWorker reconciles the offline store with the remote catalog: it
// refreshes the local catalog cache, drains the durable sync queue and
// pushes offline session snapshots. Passes are exclusive — a trigger while
// one is in flight is a no-op.
type SyncWorker struct {
	catalog services.Catalog
	store   *services.OfflineStore

	inFlight atomic.Bool

	mu        sync.Mutex
	listeners []syncListener
	nextID    int
}

func NewSyncWorker(catalog services.Catalog, store *services.OfflineStore) *SyncWorker {
	return &SyncWorker{catalog: catalog, store: store}
}

// Subscribe registers a sync-status listener and returns its unsubscribe
// function.
func (w *SyncWorker) Subscribe(fn func(models.SyncStatus)) func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.nextID
	w.nextID++
	w.listeners = append(w.listeners, syncListener{id: id, fn: fn})
	return func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, l := range w.listeners {
			if l.id == id {
				w.listeners = append(w.listeners[:i], w.listeners[i+1:]...)
				return
			}
		}
	}
}

func (w *SyncWorker) report(status models.SyncStatus) {
	w.mu.Lock()
	listeners := append([]syncListener(nil), w.listeners...)
	w.mu.Unlock()
	for _, l := range listeners {
		l.fn(status)
	}
}

// RunSync performs one full sync pass. Safe to call from connectivity
// callbacks, the scheduler and the manual force-sync endpoint at once.
func (w *SyncWorker) RunSync(ctx context.Context) error {
	if !w.inFlight.CompareAndSwap(false, true) {
		log.Println("[SYNC] Pass already in flight, skipping trigger")
		return nil
	}
	defer w.inFlight.Store(false)

	log.Println("[SYNC] 🔁 Starting sync pass...")
	w.report(models.SyncStatus{State: models.SyncStateSyncing})

	var passErr error

	if err := w.refreshCatalogCache(ctx); err != nil {
		// A stale cache is not fatal; the queue still drains below.
		log.Printf("[SYNC] ⚠️ Catalog cache refresh failed: %v", err)
		passErr = err
	}

	if err := w.drainQueue(ctx); err != nil {
		log.Printf("[SYNC] ❌ Queue drain aborted: %v", err)
		passErr = err
	}

	if err := w.reconcileSessions(ctx); err != nil {
		log.Printf("[SYNC] ⚠️ Session reconciliation incomplete: %v", err)
		passErr = err
	}

	if err := w.store.SetLastSyncTime(time.Now()); err != nil {
		log.Printf("[SYNC] ⚠️ Failed to record sync timestamp: %v", err)
		passErr = err
	}

	if passErr != nil {
		w.report(models.SyncStatus{State: models.SyncStateError, Error: passErr.Error()})
		return passErr
	}
	log.Println("[SYNC] ✅ Sync pass completed")
	w.report(models.SyncStatus{State: models.SyncStateCompleted})
	return nil
}

// refreshCatalogCache pulls the full catalog into the offline store, falling
// back to the published R2 bundle when the catalog service list calls fail.
func (w *SyncWorker) refreshCatalogCache(ctx context.Context) error {
	games, gamesErr := w.catalog.GetAllGames(ctx)
	punishments, punishErr := w.catalog.GetAllPunishments(ctx)

	if gamesErr == nil && punishErr == nil {
		if err := w.store.CacheGames(games); err != nil {
			return err
		}
		if err := w.store.CachePunishments(punishments); err != nil {
			return err
		}
		log.Printf("[SYNC] 📥 Cached %d games, %d punishments", len(games), len(punishments))
		return nil
	}

	if utils.R2Enabled() {
		bundle, err := utils.DownloadCatalogBundle(ctx)
		if err != nil {
			return fmt.Errorf("catalog fetch and bundle fallback both failed: %w", err)
		}
		if err := w.store.CacheGames(bundle.Games); err != nil {
			return err
		}
		if err := w.store.CachePunishments(bundle.Punishments); err != nil {
			return err
		}
		log.Printf("[SYNC] 📥 Cached catalog bundle published at %s", bundle.PublishedAt.Format(time.RFC3339))
		return nil
	}

	if gamesErr != nil {
		return gamesErr
	}
	return punishErr
}

// drainQueue replays every queued write. Success removes the operation;
// failure bumps its retry count, dropping it for good at the bound.
func (w *SyncWorker) drainQueue(ctx context.Context) error {
	queue, err := w.store.PendingSyncOperations()
	if err != nil {
		return err
	}
	total := len(queue)
	if total == 0 {
		return nil
	}
	log.Printf("[SYNC] Draining %d queued operation(s)...", total)

	for i, op := range queue {
		w.report(models.SyncStatus{State: models.SyncStateSyncing, Current: i + 1, Total: total})

		if err := w.dispatch(ctx, op); err != nil {
			log.Printf("[SYNC] ⚠️ Operation %s (%s) failed (attempt %d/%d): %v",
				op.ID, op.Type, op.RetryCount+1, op.MaxRetries, err)
			if _, bumpErr := w.store.BumpSyncRetry(op.ID); bumpErr != nil {
				return bumpErr
			}
			continue
		}
		if err := w.store.RemoveSyncOperation(op.ID); err != nil {
			return err
		}
	}
	return nil
}

// dispatch routes one queued operation to the matching gateway write.
func (w *SyncWorker) dispatch(ctx context.Context, op models.SyncOperation) error {
	switch op.Type {
	case models.OpCreateSession:
		var session models.RemoteSession
		if err := json.Unmarshal(op.Payload, &session); err != nil {
			return fmt.Errorf("bad CREATE_SESSION payload: %w", err)
		}
		_, err := w.catalog.CreateGameSession(ctx, session)
		return err
	case models.OpUpdateSession:
		var session models.RemoteSession
		if err := json.Unmarshal(op.Payload, &session); err != nil {
			return fmt.Errorf("bad UPDATE_SESSION payload: %w", err)
		}
		if err := w.catalog.UpdateGameSession(ctx, session); err != nil {
			if errors.Is(err, services.ErrCatalogNotFound) {
				_, createErr := w.catalog.CreateGameSession(ctx, session)
				return createErr
			}
			return err
		}
		return nil
	case models.OpCreateMatchHistory:
		var history models.MatchHistory
		if err := json.Unmarshal(op.Payload, &history); err != nil {
			return fmt.Errorf("bad CREATE_MATCH_HISTORY payload: %w", err)
		}
		return w.catalog.CreateMatchHistory(ctx, history)
	case models.OpCreatePlayer:
		var player models.RemotePlayer
		if err := json.Unmarshal(op.Payload, &player); err != nil {
			return fmt.Errorf("bad CREATE_PLAYER payload: %w", err)
		}
		remote, err := w.catalog.CreatePlayer(ctx, player.Name)
		if err != nil {
			return err
		}
		if err := w.store.CachePlayer(*remote); err != nil {
			log.Printf("[SYNC] ⚠️ Failed to cache reconciled player %s: %v", remote.ID, err)
		}
		return nil
	}
	return fmt.Errorf("unknown sync operation type %q", op.Type)
}

// reconcileSessions pushes every offline snapshot not yet marked synced:
// update-if-exists, else create.
func (w *SyncWorker) reconcileSessions(ctx context.Context) error {
	snapshots, err := w.store.SessionSnapshots()
	if err != nil {
		return err
	}

	var firstErr error
	for _, snap := range snapshots {
		if snap.Synced || snap.Session == nil {
			continue
		}
		payload := snapshotPayload(snap)
		if err := w.catalog.UpdateGameSession(ctx, payload); err != nil {
			if errors.Is(err, services.ErrCatalogNotFound) {
				_, err = w.catalog.CreateGameSession(ctx, payload)
			}
			if err != nil {
				log.Printf("[SYNC] ⚠️ Failed to push session %s: %v", snap.Session.ID, err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
		}
		if err := w.store.MarkSessionSynced(snap.Session.ID); err != nil {
			return err
		}
	}
	return firstErr
}

func snapshotPayload(snap models.OfflineSessionSnapshot) models.RemoteSession {
	sess := snap.Session
	return models.RemoteSession{
		ID:           sess.ID,
		GameMode:     sess.GameMode,
		Status:       string(sess.Status),
		Player1Name:  sess.Player1.OriginalName,
		Player2Name:  sess.Player2.OriginalName,
		Player1Score: sess.Player1.Score,
		Player2Score: sess.Player2.Score,
		CurrentIndex: sess.CurrentGameIdx,
		Punishment:   sess.Punishment,
		StartedAt:    sess.StartedAt,
		CompletedAt:  sess.CompletedAt,
	}
}

// StartScheduler runs periodic background passes while online.
func (w *SyncWorker) StartScheduler(ctx context.Context, interval time.Duration, online func() bool) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if !online() {
				return
			}
			if err := w.RunSync(ctx); err != nil {
				log.Printf("[SYNC] Scheduled pass failed: %v", err)
			}
		}),
	)

	go func() {
		<-ctx.Done()
		_ = sched.Shutdown()
	}()
}
