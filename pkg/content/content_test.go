package content

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobon/tankobon/pkg/config"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/imaging"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/testutils"
	"github.com/uptrace/bun"
)

type fixture struct {
	db      *bun.DB
	svc     *Service
	root    string
	library *models.Library
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutils.NewDB(t)
	cfg := config.NewForTest()
	cfg.CacheDir = t.TempDir()
	cfg.ThumbnailWidth = 20
	root := t.TempDir()

	return &fixture{
		db:      db,
		svc:     NewService(db, cfg),
		root:    root,
		library: testutils.CreateLibrary(t, db, "Comics", root),
	}
}

func TestResolveSeriesThumbnail_SiblingFileWins(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	series := testutils.CreateSeries(t, f.db, f.library, "Alpha")
	// The book file doesn't exist, so consulting the book-level thumbnail
	// would fail.
	testutils.CreateBook(t, f.db, series, 1)

	sibling := testutils.JPEG(t, 10, 10, color.White)
	require.NoError(t, os.WriteFile(series.URL+".jpg", sibling, 0o644))
	require.NoError(t, os.WriteFile(series.URL+".png", []byte("lower priority"), 0o644))

	c, err := f.svc.ResolveSeriesThumbnail(ctx, series)
	require.NoError(t, err)
	assert.Equal(t, sibling, c.Data)
	assert.Equal(t, imaging.MediaTypeJPEG, c.MediaType)
}

func TestResolveSeriesThumbnail_ExtensionOrder(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	series := testutils.CreateSeries(t, f.db, f.library, "Alpha")
	testutils.CreateBook(t, f.db, series, 1)

	require.NoError(t, os.WriteFile(series.URL+".webp", []byte("webp"), 0o644))
	require.NoError(t, os.WriteFile(series.URL+".gif", []byte("gif"), 0o644))

	c, err := f.svc.ResolveSeriesThumbnail(context.Background(), series)
	require.NoError(t, err)
	assert.Equal(t, []byte("webp"), c.Data)
}

func TestResolveSeriesThumbnail_FallsBackToFirstBook(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	series := testutils.CreateSeries(t, f.db, f.library, "Alpha")
	second := testutils.CreateBook(t, f.db, series, 2)
	first := testutils.CreateBook(t, f.db, series, 1)
	testutils.WriteCBZ(t, first.Path, 3, nil)
	testutils.WriteCBZ(t, second.Path, 3, nil)

	c, err := f.svc.ResolveSeriesThumbnail(ctx, series)
	require.NoError(t, err)
	assert.Equal(t, imaging.MediaTypeJPEG, c.MediaType)

	cached, err := os.ReadFile(f.svc.ThumbnailPath(first.ID))
	require.NoError(t, err)
	assert.Equal(t, cached, c.Data)
	assert.NoFileExists(t, f.svc.ThumbnailPath(second.ID))

	cfg, _, err := image.DecodeConfig(bytes.NewReader(c.Data))
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Width)
}

func TestResolveSeriesThumbnail_NoBooks(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	series := testutils.CreateSeries(t, f.db, f.library, "Empty")
	require.NoError(t, os.WriteFile(series.URL+".jpg", []byte("ignored"), 0o644))

	_, err := f.svc.ResolveSeriesThumbnail(context.Background(), series)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound))
}

func TestResolveBookThumbnail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	series := testutils.CreateSeries(t, f.db, f.library, "Alpha")
	book := testutils.CreateBook(t, f.db, series, 1)
	testutils.WriteCBZ(t, book.Path, 2, nil)

	generated, err := f.svc.ResolveBookThumbnail(ctx, book)
	require.NoError(t, err)
	assert.FileExists(t, f.svc.ThumbnailPath(book.ID))

	sidecar := testutils.JPEG(t, 5, 5, color.Black)
	require.NoError(t, os.WriteFile(filepath.Join(series.URL, "1.jpg"), sidecar, 0o644))

	c, err := f.svc.ResolveBookThumbnail(ctx, book)
	require.NoError(t, err)
	assert.Equal(t, sidecar, c.Data)
	assert.NotEqual(t, generated.Data, c.Data)

	missing := testutils.CreateBook(t, f.db, series, 9, testutils.BookOptions{Path: filepath.Join(f.root, "elsewhere", "9.cbz")})
	_, err = f.svc.ResolveBookThumbnail(ctx, missing)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeUnreadable))
}

func TestResolveBookPage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	series := testutils.CreateSeries(t, f.db, f.library, "Alpha")
	book := testutils.CreateBook(t, f.db, series, 1)
	testutils.WriteCBZ(t, book.Path, 3, nil)

	t.Run("original bytes", func(t *testing.T) {
		c, err := f.svc.ResolveBookPage(ctx, book, 2, "")
		require.NoError(t, err)
		assert.Equal(t, imaging.MediaTypeJPEG, c.MediaType)
		_, format, err := image.Decode(bytes.NewReader(c.Data))
		require.NoError(t, err)
		assert.Equal(t, "jpeg", format)
	})

	t.Run("converted", func(t *testing.T) {
		c, err := f.svc.ResolveBookPage(ctx, book, 1, "png")
		require.NoError(t, err)
		assert.Equal(t, imaging.MediaTypePNG, c.MediaType)
	})

	t.Run("unsupported conversion", func(t *testing.T) {
		_, err := f.svc.ResolveBookPage(ctx, book, 1, "bmp")
		require.Error(t, err)
		assert.True(t, errcodes.HasCode(err, errcodes.CodeUnsupportedFormat))
	})

	t.Run("out of range", func(t *testing.T) {
		for _, n := range []int{0, 4} {
			_, err := f.svc.ResolveBookPage(ctx, book, n, "")
			require.Error(t, err)
			assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound))
		}
	})

	t.Run("out of range for an analyzed book", func(t *testing.T) {
		ready := *book
		ready.MediaStatus = models.MediaStatusReady
		ready.MediaPageCount = 3
		_, err := f.svc.ResolveBookPage(ctx, &ready, 4, "")
		require.Error(t, err)
		assert.True(t, errcodes.HasCode(err, errcodes.CodeNotFound))
	})

	t.Run("missing file", func(t *testing.T) {
		gone := *book
		gone.Path = filepath.Join(f.root, "nope.cbz")
		_, err := f.svc.ResolveBookPage(ctx, &gone, 1, "")
		require.Error(t, err)
		assert.True(t, errcodes.HasCode(err, errcodes.CodeUnreadable))
	})

	t.Run("failed analysis", func(t *testing.T) {
		broken := *book
		broken.MediaStatus = models.MediaStatusError
		_, err := f.svc.ResolveBookPage(ctx, &broken, 1, "")
		require.Error(t, err)
		assert.True(t, errcodes.HasCode(err, errcodes.CodeUnreadable))
	})

	t.Run("page thumbnail", func(t *testing.T) {
		c, err := f.svc.ResolvePageThumbnail(ctx, book, 1)
		require.NoError(t, err)
		cfg, _, err := image.DecodeConfig(bytes.NewReader(c.Data))
		require.NoError(t, err)
		assert.Equal(t, 20, cfg.Width)
	})
}

func TestSidecarCandidates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"/lib/Alpha.jpg", "/lib/Alpha.jpeg", "/lib/Alpha.png", "/lib/Alpha.webp", "/lib/Alpha.gif",
	}, seriesSidecarCandidates("/lib/Alpha/v01.cbz"))
	assert.Nil(t, seriesSidecarCandidates("v01.cbz"))

	candidates := bookSidecarCandidates("/lib/Alpha/v01.cbz")
	assert.Equal(t, "/lib/Alpha/v01.jpg", candidates[0])
	assert.Equal(t, "/lib/Alpha/cover.jpg", candidates[len(CoverExtensions)])
}
