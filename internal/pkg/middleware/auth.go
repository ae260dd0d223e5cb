package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxaria/voxpremium/internal/pkg/sessionstore"
	"github.com/voxaria/voxpremium/internal/pkg/usercontext"
)

// SessionCookieName is the browser cookie carrying the session id.
const SessionCookieName = "session_id"

// ResolveSession loads the web session for the request, if any, into locals.
// It never rejects; pair it with RequireSession on protected routes.
func ResolveSession(store *sessionstore.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sid := c.Cookies(SessionCookieName)
		if sid != "" {
			sess, err := store.Get(c.UserContext(), sid)
			if err != nil {
				// Storage failure: treat as anonymous, surface nothing.
				return c.Next()
			}
			if sess != nil {
				c.Locals(usercontext.KeySession, sess)
			}
		}
		return c.Next()
	}
}

// RequireSession rejects anonymous API calls with a JSON 401.
func RequireSession(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}
