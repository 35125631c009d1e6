package readprogress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/testutils"
	"github.com/uptrace/bun"
)

func countProgress(t *testing.T, db *bun.DB, userID int) int {
	t.Helper()
	count, err := db.NewSelect().Model((*models.ReadProgress)(nil)).Where("user_id = ?", userID).Count(context.Background())
	require.NoError(t, err)
	return count
}

func TestMarkReadThenUnread(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db, 0)
	ctx := context.Background()

	library := testutils.CreateLibrary(t, db, "Comics", "/comics")
	series := testutils.CreateSeries(t, db, library, "Alpha")
	book := testutils.CreateBook(t, db, series, 1, testutils.BookOptions{MediaStatus: models.MediaStatusReady, PageCount: 10})
	user := testutils.CreateUser(t, db, "reader", false, nil)

	require.NoError(t, svc.MarkRead(ctx, book, user.ID))
	progress, err := svc.RetrieveForBooks(ctx, user.ID, []int{book.ID})
	require.NoError(t, err)
	require.Contains(t, progress, book.ID)
	assert.True(t, progress[book.ID].Completed)
	assert.Equal(t, 10, progress[book.ID].Page)

	// Idempotent.
	require.NoError(t, svc.MarkRead(ctx, book, user.ID))
	assert.Equal(t, 1, countProgress(t, db, user.ID))

	require.NoError(t, svc.MarkUnread(ctx, book.ID, user.ID))
	assert.Equal(t, 0, countProgress(t, db, user.ID))

	// Unread without progress is a no-op.
	require.NoError(t, svc.MarkUnread(ctx, book.ID, user.ID))
}

func TestMarkRead_IsolatedPerUser(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db, 0)
	ctx := context.Background()

	library := testutils.CreateLibrary(t, db, "Comics", "/comics")
	series := testutils.CreateSeries(t, db, library, "Alpha")
	book := testutils.CreateBook(t, db, series, 1)
	alice := testutils.CreateUser(t, db, "alice", false, nil)
	bob := testutils.CreateUser(t, db, "bob", false, nil)

	require.NoError(t, svc.MarkRead(ctx, book, alice.ID))
	require.NoError(t, svc.MarkRead(ctx, book, bob.ID))
	require.NoError(t, svc.MarkUnread(ctx, book.ID, alice.ID))

	assert.Equal(t, 0, countProgress(t, db, alice.ID))
	assert.Equal(t, 1, countProgress(t, db, bob.ID))
}

func TestMarkSeriesRead(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db, 0)
	ctx := context.Background()

	library := testutils.CreateLibrary(t, db, "Comics", "/comics")
	series := testutils.CreateSeries(t, db, library, "Alpha")
	other := testutils.CreateSeries(t, db, library, "Beta")
	books := []*models.Book{}
	for i := 1; i <= 5; i++ {
		books = append(books, testutils.CreateBook(t, db, series, float64(i), testutils.BookOptions{MediaStatus: models.MediaStatusReady, PageCount: 20}))
	}
	testutils.CreateBook(t, db, other, 1)
	user := testutils.CreateUser(t, db, "reader", false, nil)

	// Some books already have partial progress.
	_, err := svc.UpdateProgress(ctx, books[1], user.ID, UpdateProgressOptions{Page: 3})
	require.NoError(t, err)
	require.NoError(t, svc.MarkRead(ctx, books[3], user.ID))

	applied, err := svc.MarkSeriesRead(ctx, series.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, applied)

	progress := []*models.ReadProgress{}
	require.NoError(t, db.NewSelect().Model(&progress).Where("user_id = ?", user.ID).Scan(ctx))
	require.Len(t, progress, 5)
	for _, p := range progress {
		assert.True(t, p.Completed, "book %d", p.BookID)
		assert.Equal(t, 20, p.Page)
	}

	applied, err = svc.MarkSeriesUnread(ctx, series.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, applied)
	assert.Equal(t, 0, countProgress(t, db, user.ID))
}

func TestUpdateProgress(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db, 0)
	ctx := context.Background()

	library := testutils.CreateLibrary(t, db, "Comics", "/comics")
	series := testutils.CreateSeries(t, db, library, "Alpha")
	book := testutils.CreateBook(t, db, series, 1, testutils.BookOptions{MediaStatus: models.MediaStatusReady, PageCount: 10})
	unanalyzed := testutils.CreateBook(t, db, series, 2)
	user := testutils.CreateUser(t, db, "reader", false, nil)

	p, err := svc.UpdateProgress(ctx, book, user.ID, UpdateProgressOptions{Page: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, p.Page)
	assert.False(t, p.Completed)

	p, err = svc.UpdateProgress(ctx, book, user.ID, UpdateProgressOptions{Page: 10})
	require.NoError(t, err)
	assert.True(t, p.Completed)
	assert.Equal(t, 1, countProgress(t, db, user.ID))

	for _, page := range []int{0, 11} {
		_, err = svc.UpdateProgress(ctx, book, user.ID, UpdateProgressOptions{Page: page})
		require.Error(t, err)
		assert.True(t, errcodes.HasCode(err, errcodes.CodeValidation))
	}

	_, err = svc.UpdateProgress(ctx, unanalyzed, user.ID, UpdateProgressOptions{Page: 1})
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeValidation))
}
