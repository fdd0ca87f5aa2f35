// middleware/client_auth.go
package middleware

import (
	"crypto/subtle"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientAuthMiddleware gates every route behind the shared app token. The
// mobile app sends "Authorization: Bearer <token>"; a bare token is accepted
// too so local tooling can skip the prefix.
func ClientAuthMiddleware() fiber.Handler {
	secret := os.Getenv("CLIENT_APP_TOKEN")
	if secret == "" {
		log.Fatal("❌ CLIENT_APP_TOKEN is not set — refusing to serve unauthenticated")
	}

	return func(c *fiber.Ctx) error {
		presented := c.Get(fiber.HeaderAuthorization)
		if after, ok := strings.CutPrefix(presented, "Bearer "); ok {
			presented = after
		}
		if presented == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "client authentication token missing",
			})
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) != 1 {
			log.Printf("🚫 [AUTH] Rejected request to %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid client authentication token",
			})
		}

		return c.Next()
	}
}
