package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"party-game-system/models"
)

// fakeCatalog is an in-memory Catalog implementation.
type fakeCatalog struct {
	games     []models.Game
	materials map[string][]models.MaterialRequirement

	punishments []models.Punishment

	healthErr        error
	filterErr        error
	materialsErr     error
	createPlayerErr  error
	createSessionErr error
	updateErr        error
	historyErr       error

	playerSeq       int
	createdPlayers  []models.RemotePlayer
	createdSessions []models.RemoteSession
	updatedSessions []models.RemoteSession
	histories       []models.MatchHistory
}

func (f *fakeCatalog) Health(ctx context.Context) error { return f.healthErr }

func (f *fakeCatalog) GetAllGames(ctx context.Context) ([]models.Game, error) {
	return f.games, nil
}

func (f *fakeCatalog) GetGameByID(ctx context.Context, id string) (*models.Game, error) {
	for i := range f.games {
		if f.games[i].ID == id {
			return &f.games[i], nil
		}
	}
	return nil, ErrCatalogNotFound
}

func (f *fakeCatalog) GetGameByTitle(ctx context.Context, title string) (*models.Game, error) {
	for i := range f.games {
		if f.games[i].Title == title {
			return &f.games[i], nil
		}
	}
	return nil, ErrCatalogNotFound
}

func (f *fakeCatalog) GetFilteredGames(ctx context.Context, filter models.GameFilter) ([]models.Game, error) {
	if f.filterErr != nil {
		return nil, f.filterErr
	}
	return f.games, nil
}

func (f *fakeCatalog) GetGameMaterials(ctx context.Context, gameID string) ([]models.MaterialRequirement, error) {
	if f.materialsErr != nil {
		return nil, f.materialsErr
	}
	return f.materials[gameID], nil
}

func (f *fakeCatalog) GetAllPunishments(ctx context.Context) ([]models.Punishment, error) {
	return f.punishments, nil
}

func (f *fakeCatalog) GetRandomPunishment(ctx context.Context) (*models.Punishment, error) {
	if len(f.punishments) == 0 {
		return nil, ErrCatalogNotFound
	}
	return &f.punishments[0], nil
}

func (f *fakeCatalog) CreatePlayer(ctx context.Context, name string) (*models.RemotePlayer, error) {
	if f.createPlayerErr != nil {
		return nil, f.createPlayerErr
	}
	f.playerSeq++
	player := models.RemotePlayer{ID: fmt.Sprintf("remote-%d", f.playerSeq), Name: name}
	f.createdPlayers = append(f.createdPlayers, player)
	return &player, nil
}

func (f *fakeCatalog) GetPlayer(ctx context.Context, id string) (*models.RemotePlayer, error) {
	return nil, ErrCatalogNotFound
}

func (f *fakeCatalog) UpdatePlayer(ctx context.Context, player models.RemotePlayer) error {
	return nil
}

func (f *fakeCatalog) CreateGameSession(ctx context.Context, session models.RemoteSession) (*models.RemoteSession, error) {
	if f.createSessionErr != nil {
		return nil, f.createSessionErr
	}
	f.createdSessions = append(f.createdSessions, session)
	return &session, nil
}

func (f *fakeCatalog) GetGameSession(ctx context.Context, id string) (*models.RemoteSession, error) {
	return nil, ErrCatalogNotFound
}

func (f *fakeCatalog) UpdateGameSession(ctx context.Context, session models.RemoteSession) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updatedSessions = append(f.updatedSessions, session)
	return nil
}

func (f *fakeCatalog) CreateMatchHistory(ctx context.Context, history models.MatchHistory) error {
	if f.historyErr != nil {
		return f.historyErr
	}
	f.histories = append(f.histories, history)
	return nil
}

func (f *fakeCatalog) GetUserMaterials(ctx context.Context, userID string) (*models.MaterialInventory, error) {
	return nil, ErrCatalogNotFound
}

func (f *fakeCatalog) UpdateUserMaterials(ctx context.Context, inventory models.MaterialInventory) error {
	return nil
}

type fakeNetwork struct {
	status NetworkStatus
}

func (f *fakeNetwork) Status() NetworkStatus { return f.status }
func (f *fakeNetwork) IsOnline() bool        { return f.status == NetworkOnline }
func (f *fakeNetwork) IsOffline() bool       { return f.status == NetworkOffline }

func newTestStore(t *testing.T) *OfflineStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	if err := db.AutoMigrate(&models.StorageEntry{}); err != nil {
		t.Fatalf("migrate store: %v", err)
	}
	return NewOfflineStore(db)
}

func testGames(n int) []models.Game {
	games := make([]models.Game, n)
	for i := range games {
		games[i] = models.Game{
			ID:         fmt.Sprintf("game-%d", i+1),
			Title:      fmt.Sprintf("Game %d", i+1),
			MinPlayers: 2,
			MaxPlayers: 2,
			Materials:  []string{"Spoon", "Bowl"},
		}
	}
	return games
}

func newTestService(t *testing.T, catalog *fakeCatalog, status NetworkStatus) (*SessionService, *OfflineStore) {
	t.Helper()
	store := newTestStore(t)
	svc := NewSessionService(catalog, store, &fakeNetwork{status: status})
	return svc, store
}

func TestCreateSessionFresh(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{}, NetworkOffline)

	session := svc.CreateSession(models.GameMode1v1)

	if session.Status != models.StatusSetup {
		t.Errorf("status = %s, want %s", session.Status, models.StatusSetup)
	}
	if session.Player1.Score != 0 || session.Player2.Score != 0 {
		t.Errorf("scores = %d/%d, want 0/0", session.Player1.Score, session.Player2.Score)
	}
	if len(session.SelectedGames) != 0 {
		t.Errorf("selected games = %d, want 0", len(session.SelectedGames))
	}
	if session.CurrentGameIdx != 0 || session.CurrentRound != 1 {
		t.Errorf("index/round = %d/%d, want 0/1", session.CurrentGameIdx, session.CurrentRound)
	}
	if session.ID == "" {
		t.Error("session id must be set at creation")
	}
}

func TestCreateSessionOverwritesPrior(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{}, NetworkOffline)

	first := svc.CreateSession(models.GameMode1v1)
	second := svc.CreateSession(models.GameMode2v2)

	if first.ID == second.ID {
		t.Error("new session must get a fresh id")
	}
	if got := svc.GetSession(); got.GameMode != models.GameMode2v2 {
		t.Errorf("game mode = %s, want %s", got.GameMode, models.GameMode2v2)
	}
}

func TestResetSessionIdempotent(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{}, NetworkOffline)

	svc.ResetSession() // never created
	svc.ResetSession()
	if svc.GetSession() != nil {
		t.Error("session must be nil after reset")
	}

	svc.CreateSession(models.GameMode1v1)
	svc.ResetSession()
	svc.ResetSession()
	if svc.GetSession() != nil {
		t.Error("session must be nil after double reset")
	}
	if len(svc.EventHistory()) != 0 {
		t.Error("event history must be cleared by reset")
	}
}

func TestMutationsRequireActiveSession(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	if err := svc.SetPlayers(ctx, "A", "B"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("SetPlayers err = %v, want ErrNoActiveSession", err)
	}
	if err := svc.SetPunishment("sing a song"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("SetPunishment err = %v, want ErrNoActiveSession", err)
	}
	if err := svc.SetAvailableItems([]string{"Spoon"}); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("SetAvailableItems err = %v, want ErrNoActiveSession", err)
	}
	if _, err := svc.SelectGames(ctx); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("SelectGames err = %v, want ErrNoActiveSession", err)
	}
	if _, err := svc.CompleteRound(ctx, "player1"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("CompleteRound err = %v, want ErrNoActiveSession", err)
	}
	if err := svc.ApplyHandicap("player1", "g1"); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("ApplyHandicap err = %v, want ErrNoActiveSession", err)
	}
}

// setupMatch drives a session through setup to selected games, offline with
// a seeded cache.
func setupMatch(t *testing.T, svc *SessionService, store *OfflineStore) []string {
	t.Helper()
	ctx := context.Background()

	if err := store.CacheGames(testGames(5)); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	svc.CreateSession(models.GameMode1v1)
	if err := svc.SetPlayers(ctx, "A", "B"); err != nil {
		t.Fatalf("set players: %v", err)
	}
	if err := svc.SetPunishment("do the dishes"); err != nil {
		t.Fatalf("set punishment: %v", err)
	}
	if err := svc.SetAvailableItems([]string{"Spoon", "Bowl"}); err != nil {
		t.Fatalf("set items: %v", err)
	}
	ids, err := svc.SelectGames(ctx)
	if err != nil {
		t.Fatalf("select games: %v", err)
	}
	return ids
}

func TestFullMatchSweep(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	ids := setupMatch(t, svc, store)
	if len(ids) != 5 {
		t.Fatalf("selected %d games, want 5", len(ids))
	}
	if got := svc.GetSession().Status; got != models.StatusGameInstructions {
		t.Fatalf("status = %s, want %s", got, models.StatusGameInstructions)
	}

	for i := 0; i < 3; i++ {
		outcome, err := svc.CompleteRound(ctx, "player1")
		if err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
		if outcome.RemoteSynced {
			t.Error("offline round must not be remote-synced")
		}
	}

	session := svc.GetSession()
	if session.Status != models.StatusGameComplete {
		t.Errorf("status = %s, want %s", session.Status, models.StatusGameComplete)
	}
	if session.Player1.Score != 3 || session.Player2.Score != 0 {
		t.Errorf("scores = %d/%d, want 3/0", session.Player1.Score, session.Player2.Score)
	}
	if session.CompletedAt == nil {
		t.Error("completedAt must be set on completion")
	}
	winner := svc.GetWinner()
	if winner == nil || winner.Name != "A" {
		t.Fatalf("winner = %+v, want A", winner)
	}
	if !svc.IsGameComplete() {
		t.Error("IsGameComplete must be true after the third win")
	}
	if len(winner.Wins) != 3 {
		t.Errorf("winner has %d win records, want 3", len(winner.Wins))
	}

	// Offline progress defers every write to the sync queue:
	// 2 players + 1 session create + 3 updates + 1 match history.
	queue, err := store.PendingSyncOperations()
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	if len(queue) != 7 {
		t.Errorf("queued ops = %d, want 7", len(queue))
	}
}

func TestCompleteRoundRejectedOnFinishedSession(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	setupMatch(t, svc, store)
	for i := 0; i < 3; i++ {
		if _, err := svc.CompleteRound(ctx, "player1"); err != nil {
			t.Fatalf("round %d: %v", i+1, err)
		}
	}
	finished := svc.GetSession()
	completedAt := finished.CompletedAt

	for i := 0; i < 3; i++ {
		if _, err := svc.CompleteRound(ctx, "player2"); err == nil {
			t.Fatal("completing a round on a finished session must fail")
		}
	}

	session := svc.GetSession()
	if session.Player1.Score != 3 || session.Player2.Score != 0 {
		t.Errorf("scores = %d/%d, want 3/0 untouched", session.Player1.Score, session.Player2.Score)
	}
	if session.Player1.Score >= models.WinningScore && session.Player2.Score >= models.WinningScore {
		t.Error("both players at winning score")
	}
	if !session.CompletedAt.Equal(*completedAt) {
		t.Error("completedAt must be set exactly once")
	}

	completedEvents := 0
	for _, event := range svc.EventHistory() {
		if event.Type == models.EventSessionCompleted {
			completedEvents++
		}
	}
	if completedEvents != 1 {
		t.Errorf("SESSION_COMPLETED events = %d, want 1", completedEvents)
	}
}

func TestCompleteRoundRejectedOnCancelledSession(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	setupMatch(t, svc, store)
	if err := svc.CancelSession(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if _, err := svc.CompleteRound(ctx, "player1"); err == nil {
		t.Fatal("completing a round on a cancelled session must fail")
	}
	if got := svc.GetSession().Player1.Score; got != 0 {
		t.Errorf("score = %d, want 0", got)
	}
}

func TestScoreMonotonicityAndCoupling(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	setupMatch(t, svc, store)

	winners := []string{"player1", "player2", "player1", "player2"}
	prev1, prev2 := 0, 0
	for n, winnerID := range winners {
		if _, err := svc.CompleteRound(ctx, winnerID); err != nil {
			t.Fatalf("round %d: %v", n+1, err)
		}
		session := svc.GetSession()
		if session.Player1.Score < prev1 || session.Player2.Score < prev2 {
			t.Fatal("scores must never decrease")
		}
		if session.Player1.Score+session.Player2.Score != n+1 {
			t.Errorf("after %d rounds score sum = %d", n+1, session.Player1.Score+session.Player2.Score)
		}
		if session.CurrentGameIdx != n+1 {
			t.Errorf("after %d rounds index = %d", n+1, session.CurrentGameIdx)
		}
		if session.CurrentRound != n+2 {
			t.Errorf("after %d rounds round = %d", n+1, session.CurrentRound)
		}
		prev1, prev2 = session.Player1.Score, session.Player2.Score
	}
}

func TestHandicapFlow(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	setupMatch(t, svc, store)

	svc.CompleteRound(ctx, "player1")
	svc.CompleteRound(ctx, "player1")

	if !svc.CheckHandicapCondition() {
		t.Fatal("handicap condition must hold at a 2-0 lead")
	}
	leader := svc.GetLeadingPlayer()
	if leader == nil || leader.Name != "A" {
		t.Fatalf("leading player = %+v, want A", leader)
	}

	if err := svc.ApplyHandicap("player1", svc.GetCurrentGame()); err != nil {
		t.Fatalf("apply handicap: %v", err)
	}
	handicap := svc.GetPlayerHandicap("player1")
	if handicap == nil {
		t.Fatal("handicap must be set after ApplyHandicap")
	}
	if handicap.Type != models.HandicapTimeReduction {
		t.Errorf("handicap type = %s, want %s", handicap.Type, models.HandicapTimeReduction)
	}

	// Cleared unconditionally after every round, whoever held it.
	if _, err := svc.CompleteRound(ctx, "player2"); err != nil {
		t.Fatalf("round: %v", err)
	}
	if svc.GetPlayerHandicap("player1") != nil {
		t.Error("handicap must be cleared after the round")
	}
	if svc.GetPlayerHandicap("player2") != nil {
		t.Error("player2 handicap must stay clear")
	}
}

func TestHandicapRecordedOnWin(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	setupMatch(t, svc, store)
	svc.CompleteRound(ctx, "player1")
	svc.CompleteRound(ctx, "player1")
	svc.ApplyHandicap("player1", svc.GetCurrentGame())

	// The handicapped player wins anyway; the win record keeps the handicap.
	if _, err := svc.CompleteRound(ctx, "player1"); err != nil {
		t.Fatalf("round: %v", err)
	}
	wins := svc.GetSession().Player1.Wins
	last := wins[len(wins)-1]
	if last.Handicap == nil || last.Handicap.Type != models.HandicapTimeReduction {
		t.Errorf("win record handicap = %+v, want time_reduction", last.Handicap)
	}
}

func TestSelectGamesOfflineFailures(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	svc.CreateSession(models.GameMode1v1)
	svc.SetPlayers(ctx, "A", "B")
	svc.SetAvailableItems([]string{"Spoon"})

	// Empty cache.
	if _, err := svc.SelectGames(ctx); !errors.Is(err, ErrNoCachedGames) {
		t.Errorf("err = %v, want ErrNoCachedGames", err)
	}
	if got := svc.GetSession().Status; got != models.StatusItemGathering {
		t.Errorf("status = %s, want %s (selection failure must not advance)", got, models.StatusItemGathering)
	}
}

func TestSelectGamesOfflineReRollQueuesOneCreate(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	setupMatch(t, svc, store)

	// Re-rolling the plan for the same session must not queue a second
	// remote create.
	if _, err := svc.SelectGames(ctx); err != nil {
		t.Fatalf("re-roll: %v", err)
	}

	queue, err := store.PendingSyncOperations()
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	createOps := 0
	for _, op := range queue {
		if op.Type == models.OpCreateSession {
			createOps++
		}
	}
	if createOps != 1 {
		t.Errorf("queued CREATE_SESSION ops = %d, want 1", createOps)
	}
}

func TestSelectGamesOfflineNoMatch(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	if err := store.CacheGames(testGames(3)); err != nil {
		t.Fatalf("seed cache: %v", err)
	}
	svc.CreateSession(models.GameMode1v1)
	svc.SetPlayers(ctx, "A", "B")
	svc.SetAvailableItems([]string{"Balloon"}) // games need Spoon+Bowl

	if _, err := svc.SelectGames(ctx); !errors.Is(err, ErrNoMatchingGames) {
		t.Errorf("err = %v, want ErrNoMatchingGames", err)
	}
}

func TestSelectGamesOnlineRevalidationDropsAll(t *testing.T) {
	catalog := &fakeCatalog{
		games: []models.Game{{ID: "g1", Title: "Origami Race", MinPlayers: 2, MaxPlayers: 2}},
		materials: map[string][]models.MaterialRequirement{
			"g1": {{GameID: "g1", MaterialName: "Paper Cup", Quantity: 1, QuantityType: models.QuantityTotal}},
		},
	}
	svc, _ := newTestService(t, catalog, NetworkOnline)
	ctx := context.Background()

	svc.CreateSession(models.GameMode1v1)
	svc.SetPlayers(ctx, "A", "B")
	svc.SetAvailableItems([]string{"Paper"}) // must not satisfy "Paper Cup"

	if _, err := svc.SelectGames(ctx); !errors.Is(err, ErrNoPlayableGames) {
		t.Errorf("err = %v, want ErrNoPlayableGames", err)
	}
}

func TestSelectGamesOnline(t *testing.T) {
	games := testGames(5)
	materials := map[string][]models.MaterialRequirement{}
	for _, g := range games {
		materials[g.ID] = []models.MaterialRequirement{
			{GameID: g.ID, MaterialName: "Spoon", Quantity: 1, QuantityType: models.QuantityTotal},
		}
	}
	catalog := &fakeCatalog{games: games, materials: materials}
	svc, _ := newTestService(t, catalog, NetworkOnline)
	ctx := context.Background()

	svc.CreateSession(models.GameMode1v1)
	svc.SetPlayers(ctx, "A", "B")
	svc.SetAvailableItems([]string{"Spoon", "Bowl"})

	ids, err := svc.SelectGames(ctx)
	if err != nil {
		t.Fatalf("select games: %v", err)
	}
	if len(ids) != 5 {
		t.Errorf("selected %d games, want 5", len(ids))
	}
	if len(catalog.createdSessions) != 1 {
		t.Errorf("remote sessions created = %d, want 1", len(catalog.createdSessions))
	}
	if len(catalog.createdPlayers) != 2 {
		t.Errorf("remote players created = %d, want 2", len(catalog.createdPlayers))
	}
}

func TestCompleteRoundOnlinePushesUpdate(t *testing.T) {
	games := testGames(5)
	materials := map[string][]models.MaterialRequirement{}
	for _, g := range games {
		materials[g.ID] = []models.MaterialRequirement{}
	}
	catalog := &fakeCatalog{games: games, materials: materials}
	svc, _ := newTestService(t, catalog, NetworkOnline)
	ctx := context.Background()

	svc.CreateSession(models.GameMode1v1)
	svc.SetPlayers(ctx, "A", "B")
	svc.SetAvailableItems(nil)
	if _, err := svc.SelectGames(ctx); err != nil {
		t.Fatalf("select games: %v", err)
	}

	outcome, err := svc.CompleteRound(ctx, "player2")
	if err != nil {
		t.Fatalf("complete round: %v", err)
	}
	if !outcome.RemoteSynced {
		t.Error("online round must be remote-synced")
	}
	if len(catalog.updatedSessions) != 1 {
		t.Fatalf("remote updates = %d, want 1", len(catalog.updatedSessions))
	}
	if got := catalog.updatedSessions[0].Player2Score; got != 1 {
		t.Errorf("pushed player2 score = %d, want 1", got)
	}

	// Title enrichment resolved from the catalog.
	wins := svc.GetSession().Player2.Wins
	if wins[0].GameTitle == "Unknown Game" {
		t.Errorf("round win title = %q, want a resolved title", wins[0].GameTitle)
	}
}

func TestCompleteRoundRemoteFailureKeepsLocalState(t *testing.T) {
	games := testGames(5)
	materials := map[string][]models.MaterialRequirement{}
	for _, g := range games {
		materials[g.ID] = []models.MaterialRequirement{}
	}
	catalog := &fakeCatalog{
		games:     games,
		materials: materials,
		updateErr: errors.New("boom"),
	}
	svc, _ := newTestService(t, catalog, NetworkOnline)
	ctx := context.Background()

	svc.CreateSession(models.GameMode1v1)
	svc.SetPlayers(ctx, "A", "B")
	svc.SetAvailableItems(nil)
	if _, err := svc.SelectGames(ctx); err != nil {
		t.Fatalf("select games: %v", err)
	}

	outcome, err := svc.CompleteRound(ctx, "player1")
	if err != nil {
		t.Fatalf("local mutation must succeed despite remote failure: %v", err)
	}
	if outcome.RemoteSynced {
		t.Error("outcome must flag the failed remote push")
	}
	if outcome.RemoteErr == nil {
		t.Error("outcome must carry the remote error")
	}
	if got := svc.GetSession().Player1.Score; got != 1 {
		t.Errorf("score = %d, want 1", got)
	}
}

func TestGameplayTransitions(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)

	setupMatch(t, svc, store)

	if svc.CanProceedToNextRound() {
		t.Error("cannot proceed before scoring")
	}
	if err := svc.StartGameplay(); err != nil {
		t.Fatalf("start gameplay: %v", err)
	}
	if err := svc.StartGameplay(); err == nil {
		t.Error("double start must fail")
	}
	if err := svc.EndGameplay(); err != nil {
		t.Fatalf("end gameplay: %v", err)
	}
	if !svc.CanProceedToNextRound() {
		t.Error("scoring with no winner yet must allow proceeding")
	}
}

func TestNextScreenMapping(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{}, NetworkOffline)

	if got := svc.GetNextScreenForCurrentState(); got != "Home" {
		t.Errorf("no session screen = %q, want Home", got)
	}

	svc.CreateSession(models.GameMode1v1)
	tests := []struct {
		status models.SessionStatus
		want   string
	}{
		{models.StatusSetup, "PlayerSelection"},
		{models.StatusPlayerSelection, "PunishmentSelection"},
		{models.StatusPunishmentSelection, "ItemGathering"},
		{models.StatusItemGathering, "GameInstructions"},
		{models.StatusGameInstructions, "Gameplay"},
		{models.StatusGameplay, "Scoring"},
		{models.StatusScoring, "GameInstructions"},
		{models.StatusGameComplete, "PunishmentReveal"},
		{models.StatusCancelled, "Home"},
	}
	for _, tt := range tests {
		svc.mu.Lock()
		svc.session.Status = tt.status
		svc.mu.Unlock()
		if got := svc.GetNextScreenForCurrentState(); got != tt.want {
			t.Errorf("screen for %s = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestInstructionScreens(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	setupMatch(t, svc, store)

	if got := svc.GetNextGameInstructions(); got != "GameInstructions1" {
		t.Errorf("screen = %q, want GameInstructions1", got)
	}
	svc.CompleteRound(ctx, "player1")
	if got := svc.GetNextGameInstructions(); got != "GameInstructions2" {
		t.Errorf("screen = %q, want GameInstructions2", got)
	}

	// Out of range falls back to the first.
	svc.mu.Lock()
	svc.session.CurrentGameIdx = 9
	svc.mu.Unlock()
	if got := svc.GetNextGameInstructions(); got != "GameInstructions1" {
		t.Errorf("out-of-range screen = %q, want GameInstructions1", got)
	}
}

func TestTimerDurations(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	if got := svc.GetCurrentGameTimerDuration(ctx); got != DefaultTimerSeconds {
		t.Errorf("no session timer = %d, want %d", got, DefaultTimerSeconds)
	}

	games := testGames(5)
	games[0].TimerSeconds = 45
	games[1].Title = "Cup Stack"
	games[1].TimerSeconds = 60
	if err := store.CacheGames(games); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	if got := svc.GetGameTimerDurationByID(ctx, "game-1"); got != 45 {
		t.Errorf("timer = %d, want 45", got)
	}
	if got := svc.GetGameTimerDurationByID(ctx, "game-3"); got != DefaultTimerSeconds {
		t.Errorf("unset timer = %d, want default", got)
	}
	if got := svc.GetGameTimerDurationByID(ctx, "missing"); got != DefaultTimerSeconds {
		t.Errorf("missing game timer = %d, want default", got)
	}
	if got := svc.GetGameTimerDurationByTitle(ctx, "Game 1"); got != 45 {
		t.Errorf("timer by title = %d, want 45", got)
	}
	// Whole-title equality: a partial title must not resolve a timer.
	if got := svc.GetGameTimerDurationByTitle(ctx, "Cup"); got != DefaultTimerSeconds {
		t.Errorf("partial title timer = %d, want default", got)
	}
	if got := svc.GetGameTimerDurationByTitle(ctx, "  cup stack "); got != 60 {
		t.Errorf("normalized title timer = %d, want 60", got)
	}
}

func TestGetCurrentGameOutOfRange(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	if svc.GetCurrentGame() != "" {
		t.Error("no session must yield empty current game")
	}

	setupMatch(t, svc, store)
	for i := 0; i < 3; i++ {
		svc.CompleteRound(ctx, "player1")
	}
	// Completed: cursor may run past the plan without panicking.
	svc.mu.Lock()
	svc.session.CurrentGameIdx = len(svc.session.SelectedGames)
	svc.mu.Unlock()
	if svc.GetCurrentGame() != "" {
		t.Error("exhausted plan must yield empty current game")
	}
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{}, NetworkOffline)

	var calls int
	unsubscribe := svc.Subscribe(func(snapshot *models.Session) {
		calls++
		if snapshot == nil {
			t.Error("subscriber must receive the session snapshot")
		}
	})

	svc.CreateSession(models.GameMode1v1)
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	unsubscribe()
	svc.SetPunishment("hop on one leg")
	if calls != 1 {
		t.Errorf("calls after unsubscribe = %d, want 1", calls)
	}
}

func TestCancelSession(t *testing.T) {
	svc, _ := newTestService(t, &fakeCatalog{}, NetworkOffline)

	if err := svc.CancelSession(); !errors.Is(err, ErrNoActiveSession) {
		t.Errorf("err = %v, want ErrNoActiveSession", err)
	}

	svc.CreateSession(models.GameMode1v1)
	if err := svc.CancelSession(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := svc.GetSession().Status; got != models.StatusCancelled {
		t.Errorf("status = %s, want %s", got, models.StatusCancelled)
	}
	if err := svc.CancelSession(); err == nil {
		t.Error("cancelling a cancelled session must fail")
	}
}

func TestEventHistoryOrder(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)

	setupMatch(t, svc, store)

	events := svc.EventHistory()
	wantOrder := []models.SessionEventType{
		models.EventSessionStarted,
		models.EventPlayerAdded,
		models.EventPunishmentSelected,
		models.EventItemsConfirmed,
		models.EventGamesSelected,
	}
	if len(events) != len(wantOrder) {
		t.Fatalf("events = %d, want %d", len(events), len(wantOrder))
	}
	for i, want := range wantOrder {
		if events[i].Type != want {
			t.Errorf("event[%d] = %s, want %s", i, events[i].Type, want)
		}
	}
}

func TestOfflinePlayersGetFallbackIDs(t *testing.T) {
	svc, store := newTestService(t, &fakeCatalog{}, NetworkOffline)
	ctx := context.Background()

	svc.CreateSession(models.GameMode1v1)
	if err := svc.SetPlayers(ctx, "A", "B"); err != nil {
		t.Fatalf("set players: %v", err)
	}

	session := svc.GetSession()
	if session.Player1.ID == "" || session.Player2.ID == "" {
		t.Fatal("offline players must get fallback ids")
	}
	if session.Player1.ID == session.Player2.ID {
		t.Error("fallback ids must be unique")
	}

	queue, err := store.PendingSyncOperations()
	if err != nil {
		t.Fatalf("read queue: %v", err)
	}
	playerOps := 0
	for _, op := range queue {
		if op.Type == models.OpCreatePlayer {
			playerOps++
		}
	}
	if playerOps != 2 {
		t.Errorf("queued CREATE_PLAYER ops = %d, want 2", playerOps)
	}
}
