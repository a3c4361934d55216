package repository_test

import (
	"path/filepath"
	"testing"

	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/pkg/config"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/paperloop/paperloop-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)

	t.Run("memory", func(t *testing.T) {
		store, err := repository.Open(ctx, &config.Config{Storage: config.StorageConfig{Driver: config.StorageMemory}}, logger.Nop())
		require.NoError(t, err)
		defer store.Close()

		assert.IsType(t, &repository.MemorySessionRepository{}, store.Sessions)
		assert.Equal(t, "up", store.Health(ctx)["status"])
	})

	t.Run("sqlite migrates on open", func(t *testing.T) {
		cfg := &config.Config{
			Storage: config.StorageConfig{Driver: config.StorageSQLite},
			SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "collection.db")},
		}
		store, err := repository.Open(ctx, cfg, logger.Nop())
		require.NoError(t, err)
		defer store.Close()

		f := testutil.NewFixtureFactory()
		s := f.Session(f.Coordinator())
		require.NoError(t, store.Sessions.Save(ctx, s, 0))

		all, err := store.Sessions.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
		assert.Equal(t, "up", store.Health(ctx)["status"])
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := repository.Open(ctx, &config.Config{Storage: config.StorageConfig{Driver: "etcd"}}, logger.Nop())
		assert.Error(t, err)
	})
}
