package database

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/voxaria/voxpremium/app/models"
	"github.com/voxaria/voxpremium/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

var DB *gorm.DB

func SetupDatabase() {
	var err error
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_NAME", ""),
		env.GetEnv("DB_PORT", "5432"),
		env.GetEnv("DB_SSLMODE", "disable"),
	)

	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			DB.AutoMigrate(
				&models.User{},
				&models.GuildBoost{},
				&models.ProcessedStripeEvent{},
				&models.WebSession{},
				&models.BotInstance{},
				&models.GuildSettings{},
				&models.GuildDict{},
			)
			return
		}

		log.Errorf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// GetDB returns the shared GORM handle. Nil until SetupDatabase has run.
func GetDB() *gorm.DB {
	return DB
}

// SetDB swaps the shared handle; used by tests to inject a mocked connection.
func SetDB(db *gorm.DB) {
	DB = db
}

// Close releases the underlying connection pool. Callers must stop background
// workers first so no cleanup transaction is cut off mid-flight.
func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
