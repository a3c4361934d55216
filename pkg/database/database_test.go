package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	apperrors "github.com/paperloop/paperloop-backend/pkg/errors"
	"github.com/paperloop/paperloop-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return &DB{DB: sqlx.NewDb(raw, "postgres"), logger: logger.Nop()}, mock
}

func TestTransaction_Commit(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM session_comments").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := db.Transaction(context.Background(), func(tx *sqlx.Tx) error {
		_, err := tx.Exec("DELETE FROM session_comments WHERE session_id = $1", "s-1")
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransaction_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := db.Transaction(context.Background(), func(tx *sqlx.Tx) error {
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_SQLiteRebindsToQuestionMarks(t *testing.T) {
	db, err := Open(DriverSQLite, "file:"+t.TempDir()+"/rebind.db", logger.Nop())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "SELECT * FROM t WHERE a = ? AND b = ?", db.Rebind("SELECT * FROM t WHERE a = ? AND b = ?"))
	assert.Equal(t, "up", db.Health(context.Background())["status"])
}

func TestMapPQError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantNil    bool
		wantCode   string
		wantDetail string
	}{
		{
			name:    "not a pq error",
			err:     errors.New("plain"),
			wantNil: true,
		},
		{
			name:     "unique session number",
			err:      &pq.Error{Code: "23505", Constraint: "collection_sessions_session_number_key"},
			wantCode: "CONFLICT",
		},
		{
			name:       "status check",
			err:        &pq.Error{Code: "23514", Constraint: "collection_sessions_status_valid"},
			wantCode:   "VALIDATION_ERROR",
			wantDetail: "status",
		},
		{
			name:       "priority check",
			err:        &pq.Error{Code: "23514", Constraint: "session_problems_priority_valid"},
			wantCode:   "VALIDATION_ERROR",
			wantDetail: "priority",
		},
		{
			name:     "foreign key",
			err:      &pq.Error{Code: "23503"},
			wantCode: "BAD_REQUEST",
		},
		{
			name:       "not null",
			err:        &pq.Error{Code: "23502", Column: "site_location"},
			wantCode:   "VALIDATION_ERROR",
			wantDetail: "site_location",
		},
		{
			name:    "unmapped code",
			err:     &pq.Error{Code: "40001"},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapPQError(tt.err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			if tt.wantDetail != "" {
				assert.Contains(t, got.Details, tt.wantDetail)
			}
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Nil(t, MapError(nil))
	assert.Nil(t, MapError(apperrors.NotFound("session")))
}
