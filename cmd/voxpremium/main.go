package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/voxaria/voxpremium/app/controllers"
	"github.com/voxaria/voxpremium/internal/pkg/billing"
	"github.com/voxaria/voxpremium/internal/pkg/cache"
	"github.com/voxaria/voxpremium/internal/pkg/crypto"
	"github.com/voxaria/voxpremium/internal/pkg/database"
	"github.com/voxaria/voxpremium/internal/pkg/discord"
	"github.com/voxaria/voxpremium/internal/pkg/env"
	"github.com/voxaria/voxpremium/internal/pkg/guilds"
	"github.com/voxaria/voxpremium/internal/pkg/maintenance"
	"github.com/voxaria/voxpremium/internal/pkg/router"
	"github.com/voxaria/voxpremium/internal/pkg/sessionstore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	app, manager := NewApplication()

	// Graceful shutdown: stop accepting requests, then stop the cleanup
	// worker, then release the database pool.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("shutdown signal received")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Errorf("server shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Errorf("server stopped: %v", err)
	}

	manager.Stop(shutdownTimeout)
	if err := database.Close(); err != nil {
		log.Errorf("closing database: %v", err)
	}
}

func NewApplication() (*fiber.App, *maintenance.Manager) {
	env.SetupEnvFile()
	database.SetupDatabase()
	db := database.GetDB()

	redisCache, err := cache.NewFromEnv(5 * time.Minute)
	if err != nil {
		log.Fatalf("connecting to redis: %v", err)
	}
	cipher, err := crypto.NewTokenCipherFromEnv()
	if err != nil {
		log.Fatalf("loading encryption key: %v", err)
	}

	sessions := sessionstore.New(db, cipher)
	billingSvc := billing.NewService(db, redisCache)
	guildsSvc := guilds.NewService(db)
	discordClient := discord.NewClientFromEnv(redisCache)
	stripeClient := billing.NewStripeClientFromEnv()

	controllers.Setup(billingSvc, guildsSvc, sessions, discordClient, stripeClient)

	app := fiber.New(fiber.Config{
		AppName: "voxpremium",
	})
	app.Use(recover.New(), logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     env.GetEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowCredentials: true,
		AllowMethods:     "GET,POST,PATCH,DELETE,OPTIONS",
	}))

	router.InstallRouter(app, router.Dependencies{
		Sessions: sessions,
		Cache:    redisCache,
	})

	manager := maintenance.NewManager(sessions, billingSvc)
	manager.Start()

	return app, manager
}
