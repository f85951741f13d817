package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"paywall-service/internal/db"

	"github.com/caarlos0/env/v11"
	"github.com/golang-migrate/migrate/v4"
	"github.com/joho/godotenv"
)

type migrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MIGRATE] No .env file found, relying on system env vars")
	}

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]

	cfg, err := env.ParseAs[migrateConfig]()
	if err != nil {
		log.Fatalf("[MIGRATE] invalid configuration: %v", err)
	}

	m, err := db.NewMigrator(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[MIGRATE] %v", err)
	}
	defer func() {
		if sourceErr, dbErr := m.Close(); sourceErr != nil || dbErr != nil {
			log.Printf("[MIGRATE] failed to close migration resources: %v, %v", sourceErr, dbErr)
		}
	}()

	switch command {
	case "up":
		if err := m.Up(); errors.Is(err, migrate.ErrNoChange) {
			log.Println("[MIGRATE] no change: schema is up to date")
		} else if err != nil {
			log.Fatalf("[MIGRATE] failed to apply migrations: %v", err)
		} else {
			log.Println("[MIGRATE] migrations applied")
		}

	case "down":
		if err := m.Steps(-1); err != nil {
			log.Fatalf("[MIGRATE] failed to roll back last migration: %v", err)
		}
		log.Println("[MIGRATE] rolled back last migration")

	case "goto":
		if len(os.Args) < 3 {
			log.Fatalf("[MIGRATE] goto needs a version number")
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			log.Fatalf("[MIGRATE] invalid version: %v", err)
		}
		if err := m.Migrate(uint(version)); errors.Is(err, migrate.ErrNoChange) {
			log.Printf("[MIGRATE] no change: already at version %d", version)
		} else if err != nil {
			log.Fatalf("[MIGRATE] failed to migrate to version %d: %v", version, err)
		} else {
			log.Printf("[MIGRATE] migrated to version %d", version)
		}

	case "status":
		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			log.Println("[MIGRATE] no migrations applied yet")
		case err != nil:
			log.Fatalf("[MIGRATE] failed to read version: %v", err)
		case dirty:
			log.Printf("[MIGRATE] version %d (dirty)", version)
		default:
			log.Printf("[MIGRATE] version %d", version)
		}

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: migrate <command>")
	fmt.Println("Commands:")
	fmt.Println("  up     - apply all pending migrations")
	fmt.Println("  down   - roll back the last migration")
	fmt.Println("  goto N - migrate to version N")
	fmt.Println("  status - print the current version")
}
