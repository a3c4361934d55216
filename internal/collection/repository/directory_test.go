package repository_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/pkg/actor"
	"github.com/paperloop/paperloop-backend/pkg/database"
	"github.com/paperloop/paperloop-backend/pkg/errors"
	"github.com/paperloop/paperloop-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryRepository(t *testing.T) {
	directories := map[string]func(t *testing.T) repository.DirectoryRepository{
		"memory": func(t *testing.T) repository.DirectoryRepository {
			return repository.NewMemoryDirectory()
		},
		"sqlite": func(t *testing.T) repository.DirectoryRepository {
			return repository.NewSQLDirectory(migratedSQL(t, database.DriverSQLite, testutil.SQLiteDSN(t)))
		},
		"redis": func(t *testing.T) repository.DirectoryRepository {
			client, err := repository.ConnectRedis(context.Background(), testutil.RedisURL(t))
			require.NoError(t, err)
			t.Cleanup(func() { client.Close() })
			return repository.NewRedisDirectory(client, "test-"+uuid.NewString())
		},
	}

	for name, open := range directories {
		open := open
		t.Run(name, func(t *testing.T) {
			dir := open(t)
			ctx := testutil.DefaultTestContext(t)

			entry := &actor.DirectoryEntry{UserID: "u-1", Name: "Ada Lovelace", Email: "ada@paperloop.test", RoleName: "coordinator"}
			require.NoError(t, dir.Set(ctx, entry))

			got, err := dir.Get(ctx, "u-1")
			require.NoError(t, err)
			assert.Equal(t, entry, got)

			// upsert
			entry.Name = "Augusta Ada King"
			require.NoError(t, dir.Set(ctx, entry))
			got, err = dir.Get(ctx, "u-1")
			require.NoError(t, err)
			assert.Equal(t, "Augusta Ada King", got.Name)

			require.NoError(t, dir.Delete(ctx, "u-1"))
			_, err = dir.Get(ctx, "u-1")
			assert.True(t, errors.Is(err, errors.ErrNotFound))

			// deleting an unknown user is not an error
			assert.NoError(t, dir.Delete(ctx, "u-1"))
		})
	}
}
