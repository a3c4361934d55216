package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/paperloop/paperloop-backend/pkg/config"
	"github.com/paperloop/paperloop-backend/pkg/database"
	"github.com/paperloop/paperloop-backend/pkg/logger"
)

// EnvRedisURL points integration tests at a running Redis
const EnvRedisURL = "PAPERLOOP_TEST_REDIS_URL"

var (
	// Shared across all integration tests of a package
	globalContainer *PostgresContainer
	containerOnce   sync.Once
	containerErr    error
)

// sharedPostgres returns the package-wide container, starting it on first use
func sharedPostgres(ctx context.Context) (*PostgresContainer, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
	})
	return globalContainer, containerErr
}

// PostgresDSN returns the DSN of a fresh database in the shared container.
// The test is skipped in -short mode or when Docker is unavailable.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	SkipIfShort(t)

	ctx := DefaultTestContext(t)
	container, err := sharedPostgres(ctx)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}

	name := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	dsn, err := container.CreateDatabase(ctx, name)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	return dsn
}

// SQLiteDSN returns the DSN of a database file in the test's temp dir
func SQLiteDSN(t *testing.T) string {
	t.Helper()
	cfg := config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "paperloop.db")}
	return cfg.DSN()
}

// OpenDB connects to dsn and closes the connection when the test ends
func OpenDB(t *testing.T, driver, dsn string) *database.DB {
	t.Helper()
	db, err := database.Open(driver, dsn, logger.Nop())
	if err != nil {
		t.Fatalf("failed to open %s database: %v", driver, err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// RedisURL returns the Redis URL from the environment or skips the test
func RedisURL(t *testing.T) string {
	t.Helper()
	SkipIfShort(t)
	redisURL := os.Getenv(EnvRedisURL)
	if redisURL == "" {
		t.Skipf("%s not set", EnvRedisURL)
	}
	return redisURL
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}
