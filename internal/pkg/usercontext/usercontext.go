package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxaria/voxpremium/internal/pkg/sessionstore"
)

// Locals key under which middleware stores the resolved session.
const KeySession = "WEB_SESSION"

// GetSession retrieves the authenticated session for this request, or nil for
// anonymous callers.
func GetSession(c *fiber.Ctx) *sessionstore.Session {
	if v := c.Locals(KeySession); v != nil {
		if sess, ok := v.(*sessionstore.Session); ok {
			return sess
		}
	}
	return nil
}

// IsLoggedIn checks if the current request carries a valid session.
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetSession(c) != nil
}
