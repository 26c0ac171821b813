package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ajharbinger/pacman-arcade/internal/database"
	"github.com/ajharbinger/pacman-arcade/internal/logger"
	"github.com/ajharbinger/pacman-arcade/pkg/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command>\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  up            apply all pending migrations")
	fmt.Fprintln(os.Stderr, "  down [steps]  roll back steps migrations (default 1)")
	fmt.Fprintln(os.Stderr, "  version       print the current schema version")
}

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	cfg := config.New()
	log := logger.New(cfg.Environment, cfg.LogLevel)
	if envErr != nil {
		log.Debug("No .env file found")
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required", nil)
	}

	switch os.Args[1] {
	case "up":
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatal("Migration failed", err)
		}
		log.Info("Migrations applied")

	case "down":
		steps := 1
		if len(os.Args) > 2 {
			n, err := strconv.Atoi(os.Args[2])
			if err != nil || n <= 0 {
				log.Fatal("steps must be a positive integer", err, "steps", os.Args[2])
			}
			steps = n
		}
		if err := database.RollbackMigrations(cfg.DatabaseURL, steps); err != nil {
			log.Fatal("Rollback failed", err)
		}
		log.Info("Migrations rolled back", "steps", steps)

	case "version":
		version, dirty, err := database.MigrationVersion(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to read schema version", err)
		}
		fmt.Printf("version=%d dirty=%v\n", version, dirty)

	default:
		usage()
		os.Exit(2)
	}
}
