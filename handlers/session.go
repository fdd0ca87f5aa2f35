// handlers/session.go
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"party-game-system/services"
)

// SetupSessionRoutes exposes the session state machine to the UI layer. The
// core never navigates; callers translate next_screen values into actual
// transitions.
func SetupSessionRoutes(app *fiber.App, sessions *services.SessionService) {
	app.Post("/sessions", func(c *fiber.Ctx) error {
		var req struct {
			GameMode string `json:"game_mode"`
		}
		if err := c.BodyParser(&req); err != nil || req.GameMode == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "game_mode is required",
			})
		}
		session := sessions.CreateSession(req.GameMode)
		return c.Status(fiber.StatusCreated).JSON(session)
	})

	app.Get("/sessions/current", func(c *fiber.Ctx) error {
		session := sessions.GetSession()
		if session == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "no active session",
			})
		}
		return c.JSON(session)
	})

	app.Delete("/sessions/current", func(c *fiber.Ctx) error {
		if c.QueryBool("cancel") {
			if err := sessions.CancelSession(); err != nil {
				return sessionError(c, err)
			}
		}
		sessions.ResetSession()
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/sessions/current/history", func(c *fiber.Ctx) error {
		return c.JSON(sessions.EventHistory())
	})

	app.Post("/sessions/current/players", func(c *fiber.Ctx) error {
		var req struct {
			Player1 string `json:"player1"`
			Player2 string `json:"player2"`
		}
		if err := c.BodyParser(&req); err != nil || req.Player1 == "" || req.Player2 == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "player1 and player2 are required",
			})
		}
		if err := sessions.SetPlayers(c.Context(), req.Player1, req.Player2); err != nil {
			return sessionError(c, err)
		}
		return c.JSON(sessions.GetSession())
	})

	app.Post("/sessions/current/punishment", func(c *fiber.Ctx) error {
		var req struct {
			Punishment string `json:"punishment"`
		}
		if err := c.BodyParser(&req); err != nil || req.Punishment == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "punishment is required",
			})
		}
		if err := sessions.SetPunishment(req.Punishment); err != nil {
			return sessionError(c, err)
		}
		return c.JSON(sessions.GetSession())
	})

	app.Get("/punishments/random", func(c *fiber.Ctx) error {
		p, err := sessions.RandomPunishment(c.Context())
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "failed to draw punishment",
				"cause": err.Error(),
			})
		}
		return c.JSON(p)
	})

	app.Post("/sessions/current/items", func(c *fiber.Ctx) error {
		var req struct {
			Items []string `json:"items"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
			})
		}
		if err := sessions.SetAvailableItems(req.Items); err != nil {
			return sessionError(c, err)
		}
		return c.JSON(sessions.GetSession())
	})

	app.Post("/sessions/current/games", func(c *fiber.Ctx) error {
		ids, err := sessions.SelectGames(c.Context())
		if err != nil {
			return sessionError(c, err)
		}
		return c.JSON(fiber.Map{
			"selected_games": ids,
			"next_screen":    sessions.GetNextScreenForCurrentState(),
		})
	})

	app.Get("/sessions/current/game", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"game_id":            sessions.GetCurrentGame(),
			"timer_seconds":      sessions.GetCurrentGameTimerDuration(c.Context()),
			"instruction_screen": sessions.GetNextGameInstructions(),
			"next_screen":        sessions.GetNextScreenForCurrentState(),
			"can_proceed":        sessions.CanProceedToNextRound(),
			"handicap_condition": sessions.CheckHandicapCondition(),
		})
	})

	app.Post("/sessions/current/gameplay/start", func(c *fiber.Ctx) error {
		if err := sessions.StartGameplay(); err != nil {
			return sessionError(c, err)
		}
		return c.JSON(sessions.GetSession())
	})

	app.Post("/sessions/current/gameplay/end", func(c *fiber.Ctx) error {
		if err := sessions.EndGameplay(); err != nil {
			return sessionError(c, err)
		}
		return c.JSON(sessions.GetSession())
	})

	app.Post("/sessions/current/rounds", func(c *fiber.Ctx) error {
		var req struct {
			WinnerID string `json:"winner_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.WinnerID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "winner_id is required",
			})
		}
		outcome, err := sessions.CompleteRound(c.Context(), req.WinnerID)
		if err != nil {
			return sessionError(c, err)
		}
		resp := fiber.Map{
			"session":       outcome.Session,
			"remote_synced": outcome.RemoteSynced,
			"next_screen":   sessions.GetNextScreenForCurrentState(),
		}
		if outcome.RemoteErr != nil {
			resp["remote_error"] = outcome.RemoteErr.Error()
		}
		if winner := sessions.GetWinner(); winner != nil {
			resp["winner"] = winner
		}
		return c.JSON(resp)
	})

	app.Post("/sessions/current/handicap", func(c *fiber.Ctx) error {
		var req struct {
			PlayerID string `json:"player_id"`
			GameID   string `json:"game_id"`
		}
		if err := c.BodyParser(&req); err != nil || req.PlayerID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "player_id is required",
			})
		}
		if err := sessions.ApplyHandicap(req.PlayerID, req.GameID); err != nil {
			return sessionError(c, err)
		}
		return c.JSON(fiber.Map{
			"handicap": sessions.GetPlayerHandicap(req.PlayerID),
		})
	})

	app.Get("/sessions/current/handicap/:player_id", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"handicap": sessions.GetPlayerHandicap(c.Params("player_id")),
		})
	})
}

// sessionError maps core errors onto the three remediation buckets the UI
// distinguishes: no connectivity/content, bad request, unexpected failure.
func sessionError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrNoActiveSession):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "NO_ACTIVE_SESSION",
		})
	case errors.Is(err, services.ErrNoCachedGames):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "NO_CACHED_GAMES",
		})
	case errors.Is(err, services.ErrNoMatchingGames):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "NO_MATCHING_GAMES",
		})
	case errors.Is(err, services.ErrNoPlayableGames):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
			"code":  "NO_PLAYABLE_GAMES",
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "unexpected failure",
		"cause": err.Error(),
	})
}
