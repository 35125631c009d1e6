package database

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobon/tankobon/pkg/config"
)

func TestIsBusyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"database is locked", errors.New("database is locked"), true},
		{"table is locked", errors.New("database table is locked: books"), true},
		{"sqlite busy", errors.New("SQLITE_BUSY: cannot commit"), true},
		{"sqlite locked", errors.New("SQLITE_LOCKED"), true},
		{"other", errors.New("no such table: books"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsBusyError(tt.err))
		})
	}
}

func TestRetryBusy_RetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryBusy(context.Background(), 3, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryBusy_GivesUp(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryBusy(context.Background(), 2, func() error {
		calls++
		return errors.New("database is locked")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
	assert.Equal(t, 3, calls)
}

func TestRetryBusy_DoesNotRetryOtherErrors(t *testing.T) {
	t.Parallel()

	calls := 0
	err := RetryBusy(context.Background(), 5, func() error {
		calls++
		return errors.New("constraint failed")
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestNew_InMemory(t *testing.T) {
	t.Parallel()

	db, err := New(config.NewForTest())
	require.NoError(t, err)
	defer db.Close()

	var fk int
	err = db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	require.NoError(t, err)
	assert.Equal(t, 1, fk)
	require.NoError(t, Ping(context.Background(), db))
}
