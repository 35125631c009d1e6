package database

import (
	"context"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

// IsBusyError checks if the error is a SQLite BUSY or LOCKED error.
// Works with both mattn/go-sqlite3 and modernc.org/sqlite drivers.
func IsBusyError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked") ||
		strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "SQLITE_LOCKED")
}

// RetryBusy runs fn, retrying with exponential backoff while it keeps failing
// with a busy/locked error. Any other error is returned immediately.
func RetryBusy(ctx context.Context, maxRetries int, fn func() error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(uint(maxRetries)+1),
		retry.Delay(50*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.MaxJitter(25*time.Millisecond),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.RetryIf(IsBusyError),
		retry.LastErrorOnly(true),
	)
}
