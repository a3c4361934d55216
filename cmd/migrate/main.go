package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/pkg/config"
	"github.com/paperloop/paperloop-backend/pkg/database"
	"github.com/paperloop/paperloop-backend/pkg/logger"
)

func main() {
	var (
		driver  = flag.String("driver", "", "Database driver: postgres or sqlite (default from storage config)")
		dsn     = flag.String("dsn", "", "Database connection string (default from config)")
		up      = flag.Bool("up", false, "Run all up migrations")
		down    = flag.Bool("down", false, "Run all down migrations")
		steps   = flag.Int("steps", 0, "Number of migrations (positive=up, negative=down)")
		version = flag.Bool("version", false, "Print current migration version")
		force   = flag.Int("force", -1, "Force set version (use with caution)")
	)
	flag.Parse()

	forceSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "force" {
			forceSet = true
		}
	})

	cfg, err := config.Load("migrate")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("migrate", cfg.Server.Environment)

	if *driver == "" {
		*driver = cfg.Storage.Driver
	}
	if *dsn == "" {
		switch *driver {
		case database.DriverPostgres:
			*dsn = cfg.Database.DSN()
		case database.DriverSQLite:
			*dsn = cfg.SQLite.DSN()
		}
	}
	if *driver != database.DriverPostgres && *driver != database.DriverSQLite {
		log.Fatal().Str("driver", *driver).Msg("migrations only apply to postgres or sqlite storage")
	}

	fsys, dir := repository.Migrations(*driver)
	m, err := database.NewMigrator(*driver, *dsn, fsys, dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create migrator")
	}
	defer m.Close()

	switch {
	case *version:
		v, dirty, err := m.Version()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to get version")
		}
		fmt.Printf("version: %d, dirty: %v\n", v, dirty)
	case forceSet:
		if err := m.Force(*force); err != nil {
			log.Fatal().Err(err).Msg("failed to force version")
		}
		fmt.Printf("forced to version %d\n", *force)
	case *up:
		if err := m.Up(); err != nil {
			log.Fatal().Err(err).Msg("up migrations failed")
		}
		fmt.Println("migrations applied successfully")
	case *down:
		if err := m.Down(); err != nil {
			log.Fatal().Err(err).Msg("down migrations failed")
		}
		fmt.Println("migrations reverted successfully")
	case *steps != 0:
		if err := m.Steps(*steps); err != nil {
			log.Fatal().Err(err).Msg("migration steps failed")
		}
		fmt.Printf("applied %d migration steps\n", *steps)
	default:
		fmt.Println("usage: migrate [-driver postgres|sqlite] [-dsn <connection-string>] [-up|-down|-steps N|-version|-force N]")
		flag.PrintDefaults()
	}
}
