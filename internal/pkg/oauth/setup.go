package oauth

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/discord"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/voxaria/voxpremium/internal/pkg/cache"
	"github.com/voxaria/voxpremium/internal/pkg/env"
)

// Setup registers the Discord provider and backs the OAuth state session with
// Redis. Safe to call multiple times; providers are just re-registered.
func Setup(c *cache.Cache) {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}

	goth.UseProviders(
		discord.New(
			env.GetEnv("DISCORD_CLIENT_ID", ""),
			env.GetEnv("DISCORD_CLIENT_SECRET", ""),
			strings.TrimSpace(env.GetEnv("DISCORD_REDIRECT_URI", base+"/auth/discord/callback")),
			discord.ScopeIdentify, discord.ScopeGuilds,
		),
	)

	host, port := "127.0.0.1", 6379
	username, password := "", ""
	if c != nil {
		opts := c.Client().Options()
		if opts != nil && opts.Addr != "" {
			if h, p, err := net.SplitHostPort(opts.Addr); err == nil {
				host = h
				if parsed, e := strconv.Atoi(p); e == nil {
					port = parsed
				}
			} else {
				host = opts.Addr
			}
		}
		if opts != nil {
			username, password = opts.Username, opts.Password
		}
	}

	// OAuth state only; the login session itself lives in the session store.
	gothfiber.SessionStore = session.New(session.Config{
		Storage: redisstorage.New(redisstorage.Config{
			Host:     host,
			Port:     port,
			Username: username,
			Password: password,
			Database: 1,
			Reset:    false,
		}),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     15 * time.Minute,
	})
}
