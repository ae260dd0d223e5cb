package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxaria/voxpremium/app/controllers"
	"github.com/voxaria/voxpremium/internal/pkg/constants"
	"github.com/voxaria/voxpremium/internal/pkg/middleware"
	"github.com/voxaria/voxpremium/internal/pkg/oauth"
)

// WebRouter owns the browser-facing routes: the OAuth login flow and the
// Stripe webhook. The webhook lives here because it authenticates with its
// signature, not a session, and must not sit behind the API rate limiter.
type WebRouter struct {
	deps Dependencies
}

func (h WebRouter) InstallRouter(app *fiber.App) {
	oauth.Setup(h.deps.Cache)

	// Resolve the session cookie on every request; protected routes add
	// RequireSession on top.
	app.Use(middleware.ResolveSession(h.deps.Sessions))

	app.Get(constants.AuthRoute, controllers.HandleLogin)
	app.Get(constants.AuthCallbackRoute, controllers.HandleOAuthCallback)

	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)
}

func NewWebRouter(deps Dependencies) *WebRouter {
	return &WebRouter{deps: deps}
}
