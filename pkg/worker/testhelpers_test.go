package worker

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/stretchr/testify/require"
	"github.com/tankobon/tankobon/pkg/config"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/testutils"
	"github.com/uptrace/bun"
)

// testContext holds a worker backed by an in-memory database and a temp
// library root.
type testContext struct {
	t       *testing.T
	ctx     context.Context
	db      *bun.DB
	cfg     *config.Config
	worker  *Worker
	root    string
	library *models.Library
	calls   map[string]*atomic.Int32
}

func newTestContext(t *testing.T) *testContext {
	t.Helper()

	db := testutils.NewDB(t)
	cfg := config.NewForTest()
	cfg.CacheDir = t.TempDir()
	root := t.TempDir()

	w := New(cfg, db)

	// Count executions per kind.
	calls := map[string]*atomic.Int32{}
	for kind, fn := range w.processFuncs {
		counter := &atomic.Int32{}
		calls[kind] = counter
		fn := fn
		w.processFuncs[kind] = func(ctx context.Context, book *models.Book) error {
			counter.Add(1)
			return fn(ctx, book)
		}
	}

	return &testContext{
		t:       t,
		ctx:     logger.New().WithContext(context.Background()),
		db:      db,
		cfg:     cfg,
		worker:  w,
		root:    root,
		library: testutils.CreateLibrary(t, db, "Comics", root),
		calls:   calls,
	}
}

func (tc *testContext) start() {
	tc.worker.Start()
	tc.t.Cleanup(tc.worker.Shutdown)
}

// wait blocks until no task is queued or running.
func (tc *testContext) wait() {
	tc.t.Helper()
	require.Eventually(tc.t, func() bool {
		return tc.worker.Pending() == 0
	}, 10*time.Second, 10*time.Millisecond)
}

func (tc *testContext) createSeries(name string) *models.Series {
	return testutils.CreateSeries(tc.t, tc.db, tc.library, name)
}

// createBook creates a book whose file is a CBZ with the given number of
// pages. With pages < 0 no file is written.
func (tc *testContext) createBook(series *models.Series, number float64, filename string, pages int, extra map[string][]byte) *models.Book {
	path := filepath.Join(series.URL, filename)
	if pages >= 0 {
		testutils.WriteCBZ(tc.t, path, pages, extra)
	}
	return testutils.CreateBook(tc.t, tc.db, series, number, testutils.BookOptions{Path: path})
}

func (tc *testContext) reloadBook(id int) *models.Book {
	book := &models.Book{}
	err := tc.db.NewSelect().Model(book).Where("b.id = ?", id).Scan(tc.ctx)
	require.NoError(tc.t, err)
	return book
}

func (tc *testContext) reloadSeries(id int) *models.Series {
	series := &models.Series{}
	err := tc.db.NewSelect().Model(series).Where("s.id = ?", id).Scan(tc.ctx)
	require.NoError(tc.t, err)
	return series
}

func (tc *testContext) tasksFor(bookID int) []*models.Task {
	records := []*models.Task{}
	err := tc.db.NewSelect().Model(&records).Where("t.book_id = ?", bookID).Order("t.id ASC").Scan(tc.ctx)
	require.NoError(tc.t, err)
	return records
}
