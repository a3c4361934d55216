package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/paperloop/paperloop-backend/pkg/config"
	"github.com/paperloop/paperloop-backend/pkg/database"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// Store bundles the repositories of one configured backend
type Store struct {
	Sessions  SessionRepository
	Directory DirectoryRepository
	Driver    string

	db    *database.DB
	redis *redis.Client
}

// Open connects the backend selected by cfg.Storage.Driver. SQLite
// databases are migrated on open; Postgres is migrated by cmd/migrate.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Store, error) {
	store := &Store{Driver: cfg.Storage.Driver}

	switch cfg.Storage.Driver {
	case config.StorageMemory:
		store.Sessions = NewMemorySessionRepository(SystemClock)
		store.Directory = NewMemoryDirectory()

	case config.StorageSQLite:
		fsys, dir := Migrations(database.DriverSQLite)
		if err := database.MigrateUp(database.DriverSQLite, cfg.SQLite.DSN(), fsys, dir); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
		fallthrough

	case config.StoragePostgres:
		db, err := database.New(cfg, log)
		if err != nil {
			return nil, err
		}
		store.db = db
		store.Sessions = NewSQLSessionRepository(db, SystemClock)
		store.Directory = NewSQLDirectory(db)

	case config.StorageRedis:
		client, err := ConnectRedis(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, err
		}
		store.redis = client
		store.Sessions = NewRedisSessionRepository(client, cfg.Redis.KeyPrefix, SystemClock)
		store.Directory = NewRedisDirectory(client, cfg.Redis.KeyPrefix)

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	log.Info().Str("driver", store.Driver).Msg("collection storage ready")
	return store, nil
}

// Health reports the backend connection status
func (s *Store) Health(ctx context.Context) map[string]string {
	switch {
	case s.db != nil:
		return s.db.Health(ctx)
	case s.redis != nil:
		status := map[string]string{"status": "up", "driver": config.StorageRedis}
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			status["status"] = "down"
			status["error"] = err.Error()
		}
		return status
	}
	return map[string]string{"status": "up", "driver": s.Driver}
}

// Close releases the backend connection
func (s *Store) Close() error {
	switch {
	case s.db != nil:
		return s.db.Close()
	case s.redis != nil:
		return s.redis.Close()
	}
	return nil
}
