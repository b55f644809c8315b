package main

import (
	"errors"
	"log"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/meryambn/ScaleUpMessaging/internal/config"
	"github.com/meryambn/ScaleUpMessaging/internal/obs"
)

func main() {
	cfg, err := config.LoadMigrateConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := obs.NewLogger(cfg.AppEnv)

	migrationsPath, err := filepath.Abs(cfg.MigrationsPath)
	if err != nil {
		log.Fatalf("Failed to resolve migrations path: %v", err)
	}
	if info, err := os.Stat(migrationsPath); err != nil || !info.IsDir() {
		log.Fatalf("Migrations directory not found: %s", migrationsPath)
	}

	m, err := migrate.New("file://"+migrationsPath, cfg.DBUrl)
	if err != nil {
		log.Fatalf("Failed to open migrator: %v", err)
	}

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration up failed: %v", err)
		}
		logger.Info("migrations applied", "path", migrationsPath)
	case "down":
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("Migration down failed: %v", err)
		}
		logger.Info("migrations rolled back", "path", migrationsPath)
	case "version":
		version, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			log.Fatalf("Failed to read version: %v", err)
		}
		logger.Info("migration state", "version", version, "dirty", dirty)
	default:
		log.Fatalf("Unknown command %q (expected up, down, or version)", cmd)
	}
}
