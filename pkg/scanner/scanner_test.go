package scanner

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/testutils"
)

type fakeSubmitter struct {
	mu        sync.Mutex
	submitted map[string][]int
}

func (f *fakeSubmitter) Submit(_ context.Context, kind string, bookID int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitted == nil {
		f.submitted = map[string][]int{}
	}
	f.submitted[kind] = append(f.submitted[kind], bookID)
	return true, nil
}

type fakeThumbnails struct {
	deleted []int
}

func (f *fakeThumbnails) DeleteThumbnail(bookID int) error {
	f.deleted = append(f.deleted, bookID)
	return nil
}

func TestScan(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	ctx := context.Background()
	root := t.TempDir()
	library := testutils.CreateLibrary(t, db, "Comics", root)

	testutils.WriteCBZ(t, filepath.Join(root, "The Alpha", "The Alpha v02.cbz"), 2, nil)
	testutils.WriteCBZ(t, filepath.Join(root, "The Alpha", "The Alpha v01.cbz"), 2, nil)
	testutils.WriteCBZ(t, filepath.Join(root, "Beta", "Oneshot.zip"), 1, nil)
	testutils.WriteCBZ(t, filepath.Join(root, ".trash", "Deleted v01.cbz"), 1, nil)
	require.NoError(t, os.WriteFile(filepath.Join(root, "Beta", "notes.txt"), []byte("x"), 0o644))

	submitter := &fakeSubmitter{}
	thumbnails := &fakeThumbnails{}
	s := New(db, submitter, thumbnails)

	result, err := s.Scan(ctx, library)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SeriesAdded)
	assert.Equal(t, 3, result.BooksAdded)
	assert.Equal(t, 6, result.TasksSubmitted)
	assert.Len(t, submitter.submitted[models.TaskKindAnalyze], 3)
	assert.Len(t, submitter.submitted[models.TaskKindRefreshMetadata], 3)

	series := []*models.Series{}
	require.NoError(t, db.NewSelect().Model(&series).Order("s.name ASC").Scan(ctx))
	require.Len(t, series, 2)
	assert.Equal(t, "Beta", series[0].Name)
	assert.Equal(t, "The Alpha", series[1].Name)
	assert.Equal(t, "Alpha, The", series[1].TitleSort)
	assert.Equal(t, filepath.Join(root, "The Alpha"), series[1].URL)

	books := []*models.Book{}
	require.NoError(t, db.NewSelect().Model(&books).Order("b.path ASC").Scan(ctx))
	require.Len(t, books, 3)
	assert.Equal(t, "Oneshot.zip", books[0].Name)
	assert.Equal(t, "1", books[0].Number)
	assert.Equal(t, "The Alpha v01", books[1].Title)
	assert.Equal(t, "1", books[1].Number)
	assert.Equal(t, "2", books[2].Number)
	assert.InDelta(t, 2.0, books[2].NumberSort, 0.0001)
	assert.Equal(t, models.MediaStatusUnknown, books[2].MediaStatus)
	assert.NotNil(t, books[2].FileLastModified)

	// Nothing changed.
	submitter.submitted = nil
	result, err = s.Scan(ctx, library)
	require.NoError(t, err)
	assert.Equal(t, Result{}, *result)

	// A modified file is re-submitted.
	testutils.WriteCBZ(t, filepath.Join(root, "The Alpha", "The Alpha v02.cbz"), 5, nil)
	result, err = s.Scan(ctx, library)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BooksUpdated)
	assert.Equal(t, 2, result.TasksSubmitted)
	assert.Equal(t, []int{books[2].ID}, submitter.submitted[models.TaskKindAnalyze])

	// Vanished files take their series with them once it's empty.
	require.NoError(t, os.RemoveAll(filepath.Join(root, "Beta")))
	result, err = s.Scan(ctx, library)
	require.NoError(t, err)
	assert.Equal(t, 1, result.BooksRemoved)
	assert.Equal(t, 1, result.SeriesRemoved)
	assert.Equal(t, []int{books[0].ID}, thumbnails.deleted)

	count, err := db.NewSelect().Model((*models.Series)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestScan_MissingRoot(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	library := testutils.CreateLibrary(t, db, "Comics", filepath.Join(t.TempDir(), "missing"))

	_, err := New(db, &fakeSubmitter{}, nil).Scan(context.Background(), library)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeValidation))
}

// blockingSubmitter holds the first submission until released.
type blockingSubmitter struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (b *blockingSubmitter) Submit(_ context.Context, _ string, _ int) (bool, error) {
	b.once.Do(func() {
		close(b.started)
		<-b.release
	})
	return true, nil
}

func TestScan_OneAtATimePerLibrary(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	ctx := context.Background()
	root := t.TempDir()
	library := testutils.CreateLibrary(t, db, "Comics", root)
	other := testutils.CreateLibrary(t, db, "Manga", t.TempDir())
	testutils.WriteCBZ(t, filepath.Join(root, "Alpha", "Alpha v01.cbz"), 1, nil)

	submitter := &blockingSubmitter{started: make(chan struct{}), release: make(chan struct{})}
	s := New(db, submitter, &fakeThumbnails{})

	done := make(chan error, 1)
	go func() {
		_, err := s.Scan(ctx, library)
		done <- err
	}()
	<-submitter.started

	_, err := s.Scan(ctx, library)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeConflict))

	// Other libraries aren't held up.
	_, err = s.Scan(ctx, other)
	assert.NoError(t, err)

	close(submitter.release)
	require.NoError(t, <-done)

	result, err := s.Scan(ctx, library)
	require.NoError(t, err)
	assert.Equal(t, 0, result.BooksAdded)
}
