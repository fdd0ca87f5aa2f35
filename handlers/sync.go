// handlers/sync.go
package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"

	"party-game-system/services"
	"party-game-system/workers"
)

// SetupSyncRoutes exposes the sync engine, the offline store summary and the
// connectivity monitor.
func SetupSyncRoutes(app *fiber.App, worker *workers.SyncWorker, store *services.OfflineStore, monitor *services.NetworkMonitor) {
	// Force sync. The pass runs in the background; an in-flight pass makes
	// this a no-op trigger.
	app.Post("/sync", func(c *fiber.Ctx) error {
		go func() {
			if err := worker.RunSync(context.Background()); err != nil {
				log.Printf("[SYNC] Forced pass failed: %v", err)
			}
		}()
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"message": "sync triggered",
		})
	})

	app.Get("/storage/info", func(c *fiber.Ctx) error {
		info, err := store.StorageInfo()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read storage info",
				"cause": err.Error(),
			})
		}
		return c.JSON(info)
	})

	app.Get("/storage/playable-count", func(c *fiber.Ctx) error {
		var req struct {
			Items []string `json:"items"`
		}
		if err := c.QueryParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid items",
			})
		}
		count, err := store.PlayableGamesCount(req.Items, 2)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to count playable games",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"playable_games": count})
	})

	// Debug/reset flow.
	app.Delete("/storage", func(c *fiber.Ctx) error {
		if err := store.ClearAll(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to clear storage",
				"cause": err.Error(),
			})
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/network", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": monitor.Status(),
			"online": monitor.IsOnline(),
		})
	})

	app.Post("/network/check", func(c *fiber.Ctx) error {
		status := monitor.CheckNow(c.Context())
		return c.JSON(fiber.Map{
			"status": status,
			"online": status == services.NetworkOnline,
		})
	})
}
