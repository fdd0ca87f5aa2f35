// services/session_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"party-game-system/models"
	"party-game-system/utils"
)

// DefaultTimerSeconds is used when a game has no timer configured or the
// lookup fails.
const DefaultTimerSeconds = 90

const sessionPlayerCount = 2

// instructionScreens maps the current game index to its instruction screen.
var instructionScreens = [models.MaxRounds]string{
	"GameInstructions1",
	"GameInstructions2",
	"GameInstructions3",
	"GameInstructions4",
	"GameInstructions5",
}

// RoundOutcome reports a completed round. The local mutation always
// succeeded when a RoundOutcome is returned; RemoteSynced/RemoteErr say
// whether the best-effort remote push made it too.
type RoundOutcome struct {
	Session      *models.Session
	RemoteSynced bool
	RemoteErr    error
}

type sessionListener struct {
	id int
	fn func(*models.Session)
}

// SessionService owns the in-memory authoritative session: players, scores,
// the pre-drawn game plan, handicap state and status. All state-changing
// operations snapshot to the offline store and notify subscribers strictly
// after mutation.
type SessionService struct {
	mu sync.Mutex

	catalog Catalog
	store   *OfflineStore
	network Connectivity

	session      *models.Session
	events       []models.SessionEvent
	listeners    []sessionListener
	nextListener int
	remoteExists bool
	createQueued bool
}

func NewSessionService(catalog Catalog, store *OfflineStore, network Connectivity) *SessionService {
	return &SessionService{
		catalog: catalog,
		store:   store,
		network: network,
	}
}

// Subscribe registers a listener invoked with the full session snapshot
// after every state-mutating operation. Returns an unsubscribe function.
func (s *SessionService) Subscribe(fn func(*models.Session)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListener
	s.nextListener++
	s.listeners = append(s.listeners, sessionListener{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// emit appends to the event history. Caller holds the lock.
func (s *SessionService) emit(eventType models.SessionEventType, payload models.EventPayload) {
	s.events = append(s.events, models.SessionEvent{
		Type:    eventType,
		At:      time.Now(),
		Payload: payload,
	})
}

// snapshotAndNotify persists the current session and delivers it to
// subscribers. Caller must NOT hold the lock.
func (s *SessionService) snapshotAndNotify() {
	s.mu.Lock()
	snap := s.session.Clone()
	listeners := append([]sessionListener(nil), s.listeners...)
	s.mu.Unlock()

	if snap != nil {
		err := s.store.SaveSessionSnapshot(models.OfflineSessionSnapshot{
			Session:   snap,
			Completed: snap.Status == models.StatusGameComplete,
			Synced:    false,
		})
		if err != nil {
			log.Printf("[SESSION] ⚠️ Failed to persist session snapshot: %v", err)
		}
	}

	for _, l := range listeners {
		l.fn(snap.Clone())
	}
}

// queueSyncOp appends a deferred write to the durable sync queue.
func (s *SessionService) queueSyncOp(opType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[SESSION] ⚠️ Failed to encode %s sync payload: %v", opType, err)
		return
	}
	op := models.SyncOperation{
		ID:         uuid.NewString(),
		Type:       opType,
		Payload:    data,
		CreatedAt:  time.Now(),
		MaxRetries: models.MaxSyncRetries,
	}
	if err := s.store.EnqueueSyncOperation(op); err != nil {
		log.Printf("[SESSION] ⚠️ Failed to enqueue %s sync operation: %v", opType, err)
	}
}

// remotePayload builds the remote session record from the given state.
func remotePayload(sess *models.Session) models.RemoteSession {
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

// CreateSession allocates a fresh session, overwriting any prior one. Never
// fails.
func (s *SessionService) CreateSession(gameMode string) *models.Session {
	s.mu.Lock()
	s.session = &models.Session{
		ID:           uuid.NewString(),
		GameMode:     gameMode,
		Status:       models.StatusSetup,
		Player1:      models.Player{},
		Player2:      models.Player{},
		CurrentRound: 1,
		MaxRounds:    models.MaxRounds,
		StartedAt:    time.Now(),
	}
	s.events = nil
	s.remoteExists = false
	s.createQueued = false
	s.emit(models.EventSessionStarted, models.SessionStartedPayload{
		SessionID: s.session.ID,
		GameMode:  gameMode,
	})
	snap := s.session.Clone()
	s.mu.Unlock()

	s.snapshotAndNotify()
	return snap
}

// GetSession returns the current session or nil. Pure read.
func (s *SessionService) GetSession() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Clone()
}

// ResetSession clears the in-memory session and event history. Idempotent.
func (s *SessionService) ResetSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.events = nil
	s.remoteExists = false
	s.createQueued = false
}

// EventHistory returns the events emitted since the session was created.
func (s *SessionService) EventHistory() []models.SessionEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SessionEvent(nil), s.events...)
}

// CancelSession moves a non-terminal session to CANCELLED.
func (s *SessionService) CancelSession() error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	if s.session.Status == models.StatusGameComplete || s.session.Status == models.StatusCancelled {
		s.mu.Unlock()
		return fmt.Errorf("session already %s", s.session.Status)
	}
	s.session.Status = models.StatusCancelled
	s.emit(models.EventSessionCancelled, models.SessionCancelledPayload{SessionID: s.session.ID})
	s.mu.Unlock()

	s.snapshotAndNotify()
	return nil
}

// SetPlayers writes both player names and resolves durable identities via
// the catalog when online. On failure, or offline, a locally-unique fallback
// id is generated and a CREATE_PLAYER sync operation is queued per player.
func (s *SessionService) SetPlayers(ctx context.Context, name1, name2 string) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	s.mu.Unlock()

	ids := make([]string, 2)
	names := []string{name1, name2}
	for i, name := range names {
		if s.network.IsOnline() {
			remote, err := s.catalog.CreatePlayer(ctx, name)
			if err == nil {
				ids[i] = remote.ID
				if cacheErr := s.store.CachePlayer(*remote); cacheErr != nil {
					log.Printf("[SESSION] ⚠️ Failed to cache player %s: %v", remote.ID, cacheErr)
				}
				continue
			}
			log.Printf("[SESSION] ⚠️ Remote player creation failed for %q, using offline id: %v", name, err)
		}
		ids[i] = utils.NewOfflineID("player")
		s.queueSyncOp(models.OpCreatePlayer, models.RemotePlayer{ID: ids[i], Name: name})
	}

	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	s.session.Player1 = models.Player{ID: ids[0], Name: name1, OriginalName: name1}
	s.session.Player2 = models.Player{ID: ids[1], Name: name2, OriginalName: name2}
	s.session.Status = models.StatusPlayerSelection
	s.emit(models.EventPlayerAdded, models.PlayerAddedPayload{
		Player1ID:   ids[0],
		Player1Name: name1,
		Player2ID:   ids[1],
		Player2Name: name2,
	})
	s.mu.Unlock()

	s.snapshotAndNotify()
	return nil
}

// SetPunishment stores the chosen loser-punishment.
func (s *SessionService) SetPunishment(text string) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	s.session.Punishment = text
	s.session.Status = models.StatusPunishmentSelection
	s.emit(models.EventPunishmentSelected, models.PunishmentSelectedPayload{Punishment: text})
	s.mu.Unlock()

	s.snapshotAndNotify()
	return nil
}

// SetAvailableItems stores the material set the players declared on hand.
func (s *SessionService) SetAvailableItems(items []string) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	s.session.AvailableItems = append([]string(nil), items...)
	s.session.Status = models.StatusItemGathering
	s.emit(models.EventItemsConfirmed, models.ItemsConfirmedPayload{Items: items})
	s.mu.Unlock()

	s.snapshotAndNotify()
	return nil
}

// SelectGames draws the best-of-5 game plan under the current material
// constraints. Online it queries the catalog; offline it filters the cached
// catalog with the legacy matcher. Every pick is re-validated before it is
// committed.
func (s *SessionService) SelectGames(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	items := append([]string(nil), s.session.AvailableItems...)
	sessionSnapshot := remotePayload(s.session)
	remoteExists := s.remoteExists
	s.mu.Unlock()

	var candidates []models.Game
	var matcher GameMatcher

	if s.network.IsOnline() {
		games, m, err := s.selectOnline(ctx, items, sessionSnapshot, remoteExists)
		if err != nil {
			return nil, err
		}
		candidates, matcher = games, m
	} else {
		games, err := s.selectOffline(items)
		if err != nil {
			return nil, err
		}
		candidates, matcher = games, NewLegacyAliasMatcher()
	}

	// Defensive double-check: drop anything the matcher rejects.
	valid := candidates[:0]
	for _, game := range candidates {
		if matcher.CanPlay(game, items, sessionPlayerCount) {
			valid = append(valid, game)
		} else {
			log.Printf("[SESSION] Dropping game %s (%s): failed material re-validation", game.ID, game.Title)
		}
	}
	if len(valid) == 0 {
		return nil, ErrNoPlayableGames
	}
	if len(valid) > models.MaxRounds {
		valid = valid[:models.MaxRounds]
	}

	ids := make([]string, len(valid))
	for i, game := range valid {
		ids[i] = game.ID
	}

	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	s.session.SelectedGames = ids
	s.session.Status = models.StatusGameInstructions
	s.emit(models.EventGamesSelected, models.GamesSelectedPayload{GameIDs: ids})
	s.mu.Unlock()

	s.snapshotAndNotify()
	return ids, nil
}

// selectOnline asks the catalog for 5 random matching games and builds the
// structured matcher from their requirement data, falling back to the legacy
// matcher when that data cannot be fetched. It also makes sure a remote
// session record exists.
func (s *SessionService) selectOnline(ctx context.Context, items []string, payload models.RemoteSession, remoteExists bool) ([]models.Game, GameMatcher, error) {
	notPremium := false
	games, err := s.catalog.GetFilteredGames(ctx, models.GameFilter{
		MinPlayers:     sessionPlayerCount,
		MaxPlayers:     sessionPlayerCount,
		AvailableItems: items,
		IsPremium:      &notPremium,
		Limit:          models.MaxRounds,
		Random:         true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("game selection failed: %w", err)
	}

	var matcher GameMatcher
	reqs := map[string][]models.MaterialRequirement{}
	structured := true
	for _, game := range games {
		materials, err := s.catalog.GetGameMaterials(ctx, game.ID)
		if err != nil {
			log.Printf("[SESSION] ⚠️ Material requirements unavailable for %s, falling back to alias matcher: %v", game.ID, err)
			structured = false
			break
		}
		reqs[game.ID] = materials
	}
	if structured {
		matcher = NewStructuredMatcher(reqs)
	} else {
		matcher = NewLegacyAliasMatcher()
	}

	if !remoteExists {
		if _, err := s.catalog.CreateGameSession(ctx, payload); err != nil {
			log.Printf("[SESSION] ⚠️ Remote session creation failed, queueing for sync: %v", err)
			s.mu.Lock()
			queued := s.createQueued
			s.createQueued = true
			s.mu.Unlock()
			if !queued {
				s.queueSyncOp(models.OpCreateSession, payload)
			}
		} else {
			s.mu.Lock()
			s.remoteExists = true
			s.mu.Unlock()
		}
	}

	return games, matcher, nil
}

// selectOffline filters the cached catalog to playable 2-player, non-premium
// games and randomly picks up to 5.
func (s *SessionService) selectOffline(items []string) ([]models.Game, error) {
	cached, _, err := s.store.CachedGames()
	if err != nil {
		return nil, fmt.Errorf("game selection failed: %w", err)
	}
	if len(cached) == 0 {
		return nil, ErrNoCachedGames
	}

	matcher := NewLegacyAliasMatcher()
	var eligible []models.Game
	for _, game := range cached {
		if game.IsPremium {
			continue
		}
		if game.MinPlayers > sessionPlayerCount || game.MaxPlayers < sessionPlayerCount {
			continue
		}
		if matcher.CanPlay(game, items, sessionPlayerCount) {
			eligible = append(eligible, game)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoMatchingGames
	}

	rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if len(eligible) > models.MaxRounds {
		eligible = eligible[:models.MaxRounds]
	}

	// The session was planned offline; the remote record is created by the
	// sync engine later. A re-roll of the plan must not queue a second
	// create for the same session.
	s.mu.Lock()
	queue := s.session != nil && !s.createQueued && !s.remoteExists
	var payload models.RemoteSession
	if queue {
		payload = remotePayload(s.session)
		s.createQueued = true
	}
	s.mu.Unlock()
	if queue {
		s.queueSyncOp(models.OpCreateSession, payload)
	}

	return eligible, nil
}

// GetCurrentGame returns the id of the game at the cursor, or "" when the
// plan is empty or exhausted. Pure read.
func (s *SessionService) GetCurrentGame() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ""
	}
	idx := s.session.CurrentGameIdx
	if idx < 0 || idx >= len(s.session.SelectedGames) {
		return ""
	}
	return s.session.SelectedGames[idx]
}

// GetNextGameInstructions maps the game cursor to its instruction screen,
// falling back to the first for out-of-range indices.
func (s *SessionService) GetNextGameInstructions() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return instructionScreens[0]
	}
	idx := s.session.CurrentGameIdx
	if idx < 0 || idx >= len(instructionScreens) {
		return instructionScreens[0]
	}
	return instructionScreens[idx]
}

// GetGameTimerDurationByID resolves a game's timer length. Never fails:
// lookup errors and unset timers are masked by the default.
func (s *SessionService) GetGameTimerDurationByID(ctx context.Context, id string) int {
	if id == "" {
		return DefaultTimerSeconds
	}
	if s.network.IsOnline() {
		game, err := s.catalog.GetGameByID(ctx, id)
		if err == nil && game.TimerSeconds > 0 {
			return game.TimerSeconds
		}
		if err != nil {
			log.Printf("[SESSION] Timer lookup failed for game %s, using default: %v", id, err)
		}
		return DefaultTimerSeconds
	}

	games, _, err := s.store.CachedGames()
	if err != nil {
		log.Printf("[SESSION] Cached timer lookup failed for game %s, using default: %v", id, err)
		return DefaultTimerSeconds
	}
	for _, game := range games {
		if game.ID == id && game.TimerSeconds > 0 {
			return game.TimerSeconds
		}
	}
	return DefaultTimerSeconds
}

// GetGameTimerDurationByTitle resolves a timer length by game title with the
// same defaulting rules.
func (s *SessionService) GetGameTimerDurationByTitle(ctx context.Context, title string) int {
	if s.network.IsOnline() {
		game, err := s.catalog.GetGameByTitle(ctx, title)
		if err == nil && game.TimerSeconds > 0 {
			return game.TimerSeconds
		}
		if err != nil {
			log.Printf("[SESSION] Timer lookup failed for title %q, using default: %v", title, err)
		}
		return DefaultTimerSeconds
	}

	games, _, err := s.store.CachedGames()
	if err != nil {
		log.Printf("[SESSION] Cached timer lookup failed for title %q, using default: %v", title, err)
		return DefaultTimerSeconds
	}
	want := normalizeMaterial(title)
	for _, game := range games {
		if normalizeMaterial(game.Title) == want && game.TimerSeconds > 0 {
			return game.TimerSeconds
		}
	}
	return DefaultTimerSeconds
}

// GetCurrentGameTimerDuration resolves the timer for the game at the cursor.
func (s *SessionService) GetCurrentGameTimerDuration(ctx context.Context) int {
	return s.GetGameTimerDurationByID(ctx, s.GetCurrentGame())
}

// StartGameplay moves from the instruction screen into active play.
func (s *SessionService) StartGameplay() error {
	return s.transition(models.StatusGameInstructions, models.StatusGameplay)
}

// EndGameplay moves from active play to the scoring screen.
func (s *SessionService) EndGameplay() error {
	return s.transition(models.StatusGameplay, models.StatusScoring)
}

func (s *SessionService) transition(from, to models.SessionStatus) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	if s.session.Status != from {
		status := s.session.Status
		s.mu.Unlock()
		return fmt.Errorf("cannot move to %s from %s", to, status)
	}
	s.session.Status = to
	s.mu.Unlock()

	s.snapshotAndNotify()
	return nil
}

// CompleteRound records a round win, advances the cursor and round counter,
// clears handicaps and pushes the update remotely when possible. The local
// mutation always wins: remote failures are reported on the outcome, never
// returned as errors.
func (s *SessionService) CompleteRound(ctx context.Context, winnerID string) (*RoundOutcome, error) {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	if s.session.Status == models.StatusGameComplete || s.session.Status == models.StatusCancelled {
		status := s.session.Status
		s.mu.Unlock()
		return nil, fmt.Errorf("session already %s", status)
	}
	winner := s.session.PlayerByID(winnerID)
	if winner == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("unknown player id %q", winnerID)
	}

	gameID := ""
	if idx := s.session.CurrentGameIdx; idx >= 0 && idx < len(s.session.SelectedGames) {
		gameID = s.session.SelectedGames[idx]
	}
	round := s.session.CurrentRound
	var handicap *models.PlayerHandicap
	if winner.CurrentHandicap != nil {
		h := *winner.CurrentHandicap
		handicap = &h
	}
	s.mu.Unlock()

	// Best-effort enrichment: the title lookup must never block the score
	// update.
	title := s.resolveGameTitle(ctx, gameID)

	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return nil, ErrNoActiveSession
	}
	// Re-check: the session may have finished while the title lookup ran.
	if s.session.Status == models.StatusGameComplete || s.session.Status == models.StatusCancelled {
		status := s.session.Status
		s.mu.Unlock()
		return nil, fmt.Errorf("session already %s", status)
	}
	winner = s.session.PlayerByID(winnerID)
	winner.Score++
	winner.Wins = append(winner.Wins, models.GameRoundResult{
		GameID:      gameID,
		GameTitle:   title,
		Round:       round,
		CompletedAt: time.Now(),
		Handicap:    handicap,
	})
	s.session.CurrentGameIdx++
	s.session.CurrentRound++
	s.session.Player1.CurrentHandicap = nil
	s.session.Player2.CurrentHandicap = nil

	s.emit(models.EventRoundCompleted, models.RoundCompletedPayload{
		WinnerID: winnerID,
		GameID:   gameID,
		Round:    round,
	})

	completed := s.session.Player1.Score >= models.WinningScore || s.session.Player2.Score >= models.WinningScore
	if completed {
		now := time.Now()
		s.session.Status = models.StatusGameComplete
		s.session.CompletedAt = &now
		s.emit(models.EventSessionCompleted, models.SessionCompletedPayload{
			WinnerID:   winnerID,
			WinnerName: winner.OriginalName,
		})
	} else {
		s.session.Status = models.StatusGameInstructions
	}

	payload := remotePayload(s.session)
	history := s.matchHistory()
	remoteExists := s.remoteExists
	outcome := &RoundOutcome{Session: s.session.Clone()}
	s.mu.Unlock()

	// Local-first: the snapshot is written regardless of connectivity.
	s.snapshotAndNotify()

	if s.network.IsOnline() && remoteExists {
		if err := s.catalog.UpdateGameSession(ctx, payload); err != nil {
			log.Printf("[SESSION] ⚠️ Remote session update failed (local state kept): %v", err)
			outcome.RemoteErr = err
		} else if completed && history != nil {
			if err := s.catalog.CreateMatchHistory(ctx, *history); err != nil {
				log.Printf("[SESSION] ⚠️ Match history creation failed (local state kept): %v", err)
				outcome.RemoteErr = err
			} else {
				outcome.RemoteSynced = true
			}
		} else {
			outcome.RemoteSynced = true
		}
	} else {
		s.queueSyncOp(models.OpUpdateSession, payload)
		if completed && history != nil {
			s.queueSyncOp(models.OpCreateMatchHistory, *history)
		}
	}

	return outcome, nil
}

// resolveGameTitle looks up the game's display title, substituting
// "Unknown Game" on any failure.
func (s *SessionService) resolveGameTitle(ctx context.Context, gameID string) string {
	const unknown = "Unknown Game"
	if gameID == "" {
		return unknown
	}
	if s.network.IsOnline() {
		game, err := s.catalog.GetGameByID(ctx, gameID)
		if err != nil {
			log.Printf("[SESSION] Title lookup failed for game %s: %v", gameID, err)
			return unknown
		}
		return game.Title
	}
	games, _, err := s.store.CachedGames()
	if err != nil {
		return unknown
	}
	for _, game := range games {
		if game.ID == gameID {
			return game.Title
		}
	}
	return unknown
}

// matchHistory builds the completed-session record. Caller holds the lock.
// Returns nil while the session is incomplete.
func (s *SessionService) matchHistory() *models.MatchHistory {
	sess := s.session
	if sess == nil || sess.CompletedAt == nil {
		return nil
	}
	winner, loser := &sess.Player1, &sess.Player2
	if sess.Player2.Score > sess.Player1.Score {
		winner, loser = loser, winner
	}
	return &models.MatchHistory{
		SessionID:   sess.ID,
		GameMode:    sess.GameMode,
		WinnerName:  winner.OriginalName,
		LoserName:   loser.OriginalName,
		FinalScore:  fmt.Sprintf("%d-%d", winner.Score, loser.Score),
		Punishment:  sess.Punishment,
		CompletedAt: *sess.CompletedAt,
	}
}

// IsGameComplete reports whether either player has reached the winning
// score. Pure.
func (s *SessionService) IsGameComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return false
	}
	return s.session.Player1.Score >= models.WinningScore || s.session.Player2.Score >= models.WinningScore
}

// GetWinner returns the player with the winning score, or nil. Pure.
func (s *SessionService) GetWinner() *models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	if s.session.Player1.Score >= models.WinningScore {
		p := s.session.Player1.Clone()
		return &p
	}
	if s.session.Player2.Score >= models.WinningScore {
		p := s.session.Player2.Clone()
		return &p
	}
	return nil
}

// GetLeadingPlayer returns the strictly-higher-scored player, or nil on a
// tie. Pure.
func (s *SessionService) GetLeadingPlayer() *models.Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	switch {
	case s.session.Player1.Score > s.session.Player2.Score:
		p := s.session.Player1.Clone()
		return &p
	case s.session.Player2.Score > s.session.Player1.Score:
		p := s.session.Player2.Clone()
		return &p
	}
	return nil
}

// CheckHandicapCondition reports whether the score gap has reached the
// handicap threshold. Pure.
func (s *SessionService) CheckHandicapCondition() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return false
	}
	gap := s.session.Player1.Score - s.session.Player2.Score
	if gap < 0 {
		gap = -gap
	}
	return gap >= 2
}

// ApplyHandicap attaches a time-reduction handicap to the given player for
// the given game. Advisory metadata only; the UI enforces it.
func (s *SessionService) ApplyHandicap(playerID, gameID string) error {
	s.mu.Lock()
	if s.session == nil {
		s.mu.Unlock()
		return ErrNoActiveSession
	}
	player := s.session.PlayerByID(playerID)
	if player == nil {
		s.mu.Unlock()
		return fmt.Errorf("unknown player id %q", playerID)
	}
	handicap := &models.PlayerHandicap{
		Type:        models.HandicapTimeReduction,
		Description: fmt.Sprintf("%s gets 15 seconds less time", player.OriginalName),
		GameID:      gameID,
		Round:       s.session.CurrentRound,
	}
	player.CurrentHandicap = handicap
	s.emit(models.EventHandicapApplied, models.HandicapAppliedPayload{
		PlayerID: playerID,
		Handicap: handicap,
	})
	s.mu.Unlock()

	s.snapshotAndNotify()
	return nil
}

// GetPlayerHandicap returns the player's current handicap, or nil. Pure.
func (s *SessionService) GetPlayerHandicap(playerID string) *models.PlayerHandicap {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	player := s.session.PlayerByID(playerID)
	if player == nil || player.CurrentHandicap == nil {
		return nil
	}
	h := *player.CurrentHandicap
	return &h
}

// GetNextScreenForCurrentState maps the session status to the navigation
// target the UI should route to next.
func (s *SessionService) GetNextScreenForCurrentState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return "Home"
	}
	switch s.session.Status {
	case models.StatusSetup:
		return "PlayerSelection"
	case models.StatusPlayerSelection:
		return "PunishmentSelection"
	case models.StatusPunishmentSelection:
		return "ItemGathering"
	case models.StatusItemGathering:
		return "GameInstructions"
	case models.StatusGameInstructions:
		return "Gameplay"
	case models.StatusGameplay:
		return "Scoring"
	case models.StatusScoring:
		return "GameInstructions"
	case models.StatusGameComplete:
		return "PunishmentReveal"
	case models.StatusCancelled:
		return "Home"
	}
	return "Home"
}

// CanProceedToNextRound reports whether the scoring screen may advance to
// the next round.
func (s *SessionService) CanProceedToNextRound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil || s.session.Status != models.StatusScoring {
		return false
	}
	return s.session.Player1.Score < models.WinningScore && s.session.Player2.Score < models.WinningScore
}

// RandomPunishment draws a punishment suggestion, falling back to the cached
// list while offline.
func (s *SessionService) RandomPunishment(ctx context.Context) (*models.Punishment, error) {
	if s.network.IsOnline() {
		p, err := s.catalog.GetRandomPunishment(ctx)
		if err == nil {
			return p, nil
		}
		log.Printf("[SESSION] Random punishment fetch failed, trying cache: %v", err)
	}
	punishments, err := s.store.CachedPunishments()
	if err != nil {
		return nil, err
	}
	if len(punishments) == 0 {
		return nil, fmt.Errorf("no punishments available offline")
	}
	p := punishments[rand.Intn(len(punishments))]
	return &p, nil
}
