package main

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/voxaria/voxpremium/internal/pkg/env"
)

func main() {
	env.SetupEnvFile()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		url.QueryEscape(env.GetEnv("DB_USER", "voxpremium")),
		url.QueryEscape(env.GetEnv("DB_PASSWORD", "voxpremium")),
		env.GetEnv("DB_HOST", "db"),
		env.GetEnv("DB_PORT", "5432"),
		env.GetEnv("DB_NAME", "voxpremium"),
		env.GetEnv("DB_SSLMODE", "disable"),
	)

	log.Printf("connecting to %s@%s:%s/%s",
		env.GetEnv("DB_USER", "voxpremium"),
		env.GetEnv("DB_HOST", "db"),
		env.GetEnv("DB_PORT", "5432"),
		env.GetEnv("DB_NAME", "voxpremium"),
	)

	m, err := migrate.New("file://migrations", dbURL)
	if err != nil {
		log.Fatalf("initializing migrations: %v", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("closing migration resources: %v, %v", sourceErr, dbErr)
		}
	}()

	switch command {
	case "up":
		if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
			log.Println("no changes: database is up to date")
		} else if err != nil {
			log.Fatalf("running migrations: %v", err)
		} else {
			log.Println("migrations applied")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatalf("rolling back last migration: %v", err)
		}
		log.Println("last migration rolled back")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatalf("goto requires a version number")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("invalid version number: %v", err)
		}
		if err := m.Migrate(uint(version)); errors.Is(err, migrate.ErrNoChange) {
			log.Printf("no changes: database is already at version %d", version)
		} else if err != nil {
			log.Fatalf("migrating to version %d: %v", version, err)
		} else {
			log.Printf("migrated to version %d", version)
		}

	case "status":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Println("no migrations applied yet")
		} else if err != nil {
			log.Fatalf("reading migration version: %v", err)
		} else {
			dirtyStatus := ""
			if dirty {
				dirtyStatus = " (dirty)"
			}
			log.Printf("current migration version: %d%s", version, dirtyStatus)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("usage: go run cmd/migrate/main.go [command]")
	fmt.Println("commands:")
	fmt.Println("  up     - apply all pending migrations")
	fmt.Println("  down   - roll back the last migration")
	fmt.Println("  goto N - migrate to version N")
	fmt.Println("  status - print the current migration version")
}
