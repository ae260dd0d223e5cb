package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voxaria/voxpremium/internal/pkg/cache"
	"github.com/voxaria/voxpremium/internal/pkg/sessionstore"
)

// Dependencies carries the collaborators the routers need to wire up.
type Dependencies struct {
	Sessions *sessionstore.Store
	Cache    *cache.Cache
}

type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App, deps Dependencies) {
	// The web router goes first: it initializes the oauth providers and the
	// global session middleware the API routes depend on.
	setup(app, NewWebRouter(deps), NewAPIRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
