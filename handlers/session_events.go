// handlers/session_events.go
package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"party-game-system/models"
	"party-game-system/services"
)

// SetupSessionEventStream streams session snapshots to the UI over SSE: one
// event per state-mutating operation.
func SetupSessionEventStream(app *fiber.App, sessions *services.SessionService) {
	app.Get("/sessions/current/events", func(c *fiber.Ctx) error {
		// SSE headers
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")
		c.Set("X-Accel-Buffering", "no") // nginx

		updates := make(chan *models.Session, 16)
		unsubscribe := sessions.Subscribe(func(snapshot *models.Session) {
			select {
			case updates <- snapshot:
			default:
				// Slow consumer: drop the update, the next one carries the
				// full state anyway.
			}
		})

		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			defer unsubscribe()

			ticker := time.NewTicker(15 * time.Second)
			defer ticker.Stop()

			// Initial keepalive (comment event)
			w.WriteString(":\n\n")
			if err := w.Flush(); err != nil {
				return
			}

			for {
				select {
				case snapshot := <-updates:
					payload, err := json.Marshal(snapshot)
					if err != nil {
						continue
					}
					fmt.Fprintf(w, "event: session\ndata: %s\n\n", payload)
					if err := w.Flush(); err != nil {
						// Client disconnected
						return
					}

				case <-ticker.C:
					w.WriteString(":\n\n")
					if err := w.Flush(); err != nil {
						return
					}

				case <-c.Context().Done():
					return
				}
			}
		})

		return nil
	})
}
