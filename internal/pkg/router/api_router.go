package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/voxaria/voxpremium/app/controllers"
	"github.com/voxaria/voxpremium/internal/pkg/constants"
	"github.com/voxaria/voxpremium/internal/pkg/middleware"
)

type APIRouter struct {
	deps Dependencies
}

func (h APIRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{Max: 60}))

	api.Get("/auth/me", middleware.RequireSession, controllers.HandleMe)
	api.Post("/auth/logout", controllers.HandleLogout)

	api.Get("/billing/config", controllers.HandleBillingConfig)

	billing := api.Group("/billing", middleware.RequireSession)
	billing.Get("/status", controllers.HandleBillingStatus)
	billing.Post("/checkout", controllers.HandleCreateCheckoutSession)
	billing.Post("/boost", controllers.HandleBoostGuild)
	billing.Post("/unboost", controllers.HandleUnboostGuild)

	guilds := api.Group("/guilds", middleware.RequireSession)
	guilds.Get("/", controllers.HandleListGuilds)
	guilds.Get("/:guild_id/settings", controllers.HandleGetGuildSettings)
	guilds.Patch("/:guild_id/settings", controllers.HandleUpdateGuildSettings)
	guilds.Get("/:guild_id/dict", controllers.HandleGetGuildDict)
	guilds.Post("/:guild_id/dict", controllers.HandleAddGuildDict)
	guilds.Delete("/:guild_id/dict/:word", controllers.HandleDeleteGuildDict)
}

func NewAPIRouter(deps Dependencies) *APIRouter {
	return &APIRouter{deps: deps}
}
