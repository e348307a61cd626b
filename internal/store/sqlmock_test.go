package store

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assapir/golem/pkg/golem"
)

// These tests drive the store against a mocked driver rather than a real
// database, so a single failing statement can be asserted without needing
// to corrupt a real SQLite file.
func TestStoreReturnsWrappedErrorOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO memory").
		WillReturnError(errors.New("disk full"))

	s := fromDB(db)
	err = s.Store(context.Background(), golem.NewTaskEntry("task"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCredentialPropagatesQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT data FROM credentials").
		WillReturnError(errors.New("connection reset"))

	s := fromDB(db)
	_, _, err = s.GetCredential(context.Background(), "anthropic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetConfigValueReturnsStoredRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"value"}).AddRow("claude-sonnet-4-20250514")
	mock.ExpectQuery("SELECT value FROM config").WithArgs("model").WillReturnRows(rows)

	s := fromDB(db)
	value, ok, err := s.GetConfigValue(context.Background(), "model")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "claude-sonnet-4-20250514", value)
	require.NoError(t, mock.ExpectationsWereMet())
}
