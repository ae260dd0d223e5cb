package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/voxaria/voxpremium/internal/pkg/env"
	"github.com/voxaria/voxpremium/internal/pkg/middleware"
	"github.com/voxaria/voxpremium/internal/pkg/usercontext"
)

// HandleLogin starts the Discord OAuth flow.
func HandleLogin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow, creates the server-side
// session and sets the session cookie.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warnf("oauth callback failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "oauth_failed"})
	}

	ttl := time.Duration(env.GetEnvInt("SESSION_TTL_DAYS", 7)) * 24 * time.Hour
	sid, err := sessions.Create(c.UserContext(), u.UserID, u.NickName, u.AccessToken, ttl)
	if err != nil {
		log.Errorf("session create failed for user %s: %v", u.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session_create_failed"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sid,
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   !env.IsDev(),
		SameSite: "Lax",
		Path:     "/",
	})

	return c.Redirect(env.GetEnv("FRONTEND_AFTER_LOGIN_URL", "/"), fiber.StatusSeeOther)
}

// HandleLogout deletes the session server-side and clears the cookie.
func HandleLogout(c *fiber.Ctx) error {
	if sid := c.Cookies(middleware.SessionCookieName); sid != "" {
		if err := sessions.Delete(c.UserContext(), sid); err != nil {
			log.Errorf("session delete failed: %v", err)
		}
	}
	c.ClearCookie(middleware.SessionCookieName)
	return c.JSON(fiber.Map{"ok": true})
}

// HandleMe returns the logged-in identity for the dashboard.
func HandleMe(c *fiber.Ctx) error {
	sess := usercontext.GetSession(c)
	return c.JSON(fiber.Map{
		"discord_user_id": sess.DiscordUserID,
		"username":        sess.Username,
		"expires_at":      sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
