package repository_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/internal/collection/repository"
	"github.com/paperloop/paperloop-backend/pkg/database"
	"github.com/paperloop/paperloop-backend/pkg/errors"
	"github.com/paperloop/paperloop-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var savedAt = time.Date(2026, 3, 2, 18, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return savedAt }

type backend struct {
	name string
	open func(t *testing.T) repository.SessionRepository
}

func migratedSQL(t *testing.T, driver, dsn string) *database.DB {
	t.Helper()
	fsys, dir := repository.Migrations(driver)
	require.NoError(t, database.MigrateUp(driver, dsn, fsys, dir))
	return testutil.OpenDB(t, driver, dsn)
}

func backends() []backend {
	return []backend{
		{
			name: "memory",
			open: func(t *testing.T) repository.SessionRepository {
				return repository.NewMemorySessionRepository(fixedClock)
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) repository.SessionRepository {
				db := migratedSQL(t, database.DriverSQLite, testutil.SQLiteDSN(t))
				return repository.NewSQLSessionRepository(db, fixedClock)
			},
		},
		{
			name: "postgres",
			open: func(t *testing.T) repository.SessionRepository {
				db := migratedSQL(t, database.DriverPostgres, testutil.PostgresDSN(t))
				return repository.NewSQLSessionRepository(db, fixedClock)
			},
		},
		{
			name: "redis",
			open: func(t *testing.T) repository.SessionRepository {
				client, err := repository.ConnectRedis(context.Background(), testutil.RedisURL(t))
				require.NoError(t, err)
				t.Cleanup(func() { client.Close() })
				return repository.NewRedisSessionRepository(client, "test-"+uuid.NewString(), fixedClock)
			},
		},
	}
}

// richSession is a completed session with one resolved and one open
// problem and two comments
func richSession(t *testing.T, f *testutil.FixtureFactory) *domain.CollectionSession {
	t.Helper()
	coordinator := f.Coordinator()
	s := f.Session(coordinator)
	s.MarketerID = "marketer-1"
	s.MarketerName = "Mona Marketer"

	start := testutil.FixtureTime.Add(15 * time.Minute)
	require.NoError(t, s.Transition(domain.StatusInProgress, start, nil))

	_, err := s.ApplyCollectionData(domain.CollectionDataUpdate{
		PaperTypes: &domain.PaperTypes{Carton: 40, Mixed: 20.5, SortedWhite: 10, SortedColor: 5, Newspaper: 4.5},
	})
	require.NoError(t, err)

	p1, err := domain.NewProblemReport("p-1", s.ID, "forklift broke down", domain.PriorityHigh, coordinator, start.Add(time.Hour))
	require.NoError(t, err)
	s.AddProblem(p1)
	_, err = s.ResolveProblem("p-1", "spare forklift borrowed", coordinator, start.Add(2*time.Hour))
	require.NoError(t, err)

	p2, err := domain.NewProblemReport("p-2", s.ID, "gate closed early", domain.PriorityLow, coordinator, start.Add(3*time.Hour))
	require.NoError(t, err)
	s.AddProblem(p2)

	for i, text := range []string{"arrived on site", "loading finished"} {
		c, err := domain.NewComment(fmt.Sprintf("c-%d", i+1), s.ID, text, "", coordinator, start.Add(time.Duration(i+1)*time.Hour))
		require.NoError(t, err)
		s.AddComment(c)
	}

	require.NoError(t, s.Transition(domain.StatusCompleted, start.Add(6*time.Hour), domain.NewCalculator(nil)))
	return s
}

func TestSessionRepository_Contract(t *testing.T) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Run("insert and load round trip", func(t *testing.T) {
				repo := b.open(t)
				ctx := testutil.DefaultTestContext(t)
				s := richSession(t, testutil.NewFixtureFactory())

				require.NoError(t, repo.Save(ctx, s, 0))
				assert.Equal(t, int64(1), s.Version)
				assert.Equal(t, savedAt, s.UpdatedAt)

				loaded, err := repo.Load(ctx, s.ID)
				require.NoError(t, err)
				assert.Equal(t, s, loaded)
			})

			t.Run("load missing session", func(t *testing.T) {
				repo := b.open(t)
				_, err := repo.Load(testutil.DefaultTestContext(t), uuid.NewString())
				assert.True(t, errors.Is(err, errors.ErrNotFound))
			})

			t.Run("insert twice conflicts", func(t *testing.T) {
				repo := b.open(t)
				ctx := testutil.DefaultTestContext(t)
				f := testutil.NewFixtureFactory()
				s := f.Session(f.Coordinator())

				require.NoError(t, repo.Save(ctx, s, 0))
				dup := s.Clone()
				err := repo.Save(ctx, dup, 0)
				assert.True(t, errors.Is(err, errors.ErrConflict), "got %v", err)
			})

			t.Run("update with current version", func(t *testing.T) {
				repo := b.open(t)
				ctx := testutil.DefaultTestContext(t)
				f := testutil.NewFixtureFactory()
				coordinator := f.Coordinator()
				s := f.Session(coordinator)
				require.NoError(t, repo.Save(ctx, s, 0))

				loaded, err := repo.Load(ctx, s.ID)
				require.NoError(t, err)
				require.NoError(t, loaded.Transition(domain.StatusInProgress, testutil.FixtureTime, nil))
				c, err := domain.NewComment("c-1", s.ID, "on the way", "status", coordinator, testutil.FixtureTime)
				require.NoError(t, err)
				loaded.AddComment(c)

				require.NoError(t, repo.Save(ctx, loaded, loaded.Version))
				assert.Equal(t, int64(2), loaded.Version)

				reloaded, err := repo.Load(ctx, s.ID)
				require.NoError(t, err)
				assert.Equal(t, domain.StatusInProgress, reloaded.Status)
				assert.Equal(t, int64(2), reloaded.Version)
				require.Len(t, reloaded.Comments, 1)
				assert.Equal(t, "status", reloaded.Comments[0].Type)
			})

			t.Run("stale version conflicts and leaves state untouched", func(t *testing.T) {
				repo := b.open(t)
				ctx := testutil.DefaultTestContext(t)
				f := testutil.NewFixtureFactory()
				s := f.Session(f.Coordinator())
				require.NoError(t, repo.Save(ctx, s, 0))

				first, _ := repo.Load(ctx, s.ID)
				second, _ := repo.Load(ctx, s.ID)

				require.NoError(t, first.Transition(domain.StatusInProgress, testutil.FixtureTime, nil))
				require.NoError(t, repo.Save(ctx, first, 1))

				require.NoError(t, second.Transition(domain.StatusCancelled, testutil.FixtureTime, nil))
				err := repo.Save(ctx, second, 1)
				assert.True(t, errors.Is(err, errors.ErrConflict), "got %v", err)
				assert.Equal(t, int64(1), second.Version)

				stored, err := repo.Load(ctx, s.ID)
				require.NoError(t, err)
				assert.Equal(t, domain.StatusInProgress, stored.Status)
				assert.Equal(t, int64(2), stored.Version)
			})

			t.Run("update of missing session", func(t *testing.T) {
				repo := b.open(t)
				f := testutil.NewFixtureFactory()
				s := f.Session(f.Coordinator())
				err := repo.Save(testutil.DefaultTestContext(t), s, 3)
				assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
			})

			t.Run("delete", func(t *testing.T) {
				repo := b.open(t)
				ctx := testutil.DefaultTestContext(t)
				s := richSession(t, testutil.NewFixtureFactory())
				require.NoError(t, repo.Save(ctx, s, 0))

				require.NoError(t, repo.Delete(ctx, s.ID))

				_, err := repo.Load(ctx, s.ID)
				assert.True(t, errors.Is(err, errors.ErrNotFound))
				err = repo.Delete(ctx, s.ID)
				assert.True(t, errors.Is(err, errors.ErrNotFound))

				all, err := repo.ListAll(ctx)
				require.NoError(t, err)
				assert.Empty(t, all)
			})

			t.Run("list newest first", func(t *testing.T) {
				repo := b.open(t)
				ctx := testutil.DefaultTestContext(t)
				f := testutil.NewFixtureFactory()
				coordinator := f.Coordinator()

				var ids []string
				for i := 0; i < 3; i++ {
					s := f.Session(coordinator)
					require.NoError(t, repo.Save(ctx, s, 0))
					ids = append(ids, s.ID)
				}

				all, err := repo.ListAll(ctx)
				require.NoError(t, err)
				require.Len(t, all, 3)
				assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{all[0].ID, all[1].ID, all[2].ID})
			})

			t.Run("loaded sessions are independent copies", func(t *testing.T) {
				repo := b.open(t)
				ctx := testutil.DefaultTestContext(t)
				s := richSession(t, testutil.NewFixtureFactory())
				require.NoError(t, repo.Save(ctx, s, 0))

				loaded, err := repo.Load(ctx, s.ID)
				require.NoError(t, err)
				loaded.Problems[0].Description = "changed"
				loaded.SupplierName = "changed"
				s.Comments[0].Comment = "changed"

				again, err := repo.Load(ctx, s.ID)
				require.NoError(t, err)
				assert.Equal(t, "forklift broke down", again.Problems[0].Description)
				assert.NotEqual(t, "changed", again.SupplierName)
				assert.Equal(t, "arrived on site", again.Comments[0].Comment)
			})

			t.Run("concurrent writers on one version", func(t *testing.T) {
				repo := b.open(t)
				ctx := testutil.DefaultTestContext(t)
				f := testutil.NewFixtureFactory()
				s := f.Session(f.Coordinator())
				require.NoError(t, repo.Save(ctx, s, 0))

				const writers = 5
				copies := make([]*domain.CollectionSession, writers)
				for i := range copies {
					loaded, err := repo.Load(ctx, s.ID)
					require.NoError(t, err)
					copies[i] = loaded
				}

				var wg sync.WaitGroup
				errs := make([]error, writers)
				for i := range copies {
					wg.Add(1)
					go func(i int) {
						defer wg.Done()
						errs[i] = repo.Save(ctx, copies[i], 1)
					}(i)
				}
				wg.Wait()

				var ok, conflicts int
				for _, err := range errs {
					switch {
					case err == nil:
						ok++
					case errors.Is(err, errors.ErrConflict):
						conflicts++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}
				assert.Equal(t, 1, ok)
				assert.Equal(t, writers-1, conflicts)
			})

			t.Run("rejects invalid save arguments", func(t *testing.T) {
				repo := b.open(t)
				ctx := testutil.DefaultTestContext(t)
				err := repo.Save(ctx, &domain.CollectionSession{}, 0)
				assert.True(t, errors.Is(err, errors.ErrBadRequest))

				f := testutil.NewFixtureFactory()
				err = repo.Save(ctx, f.Session(f.Coordinator()), -1)
				assert.True(t, errors.Is(err, errors.ErrBadRequest))
			})
		})
	}
}
