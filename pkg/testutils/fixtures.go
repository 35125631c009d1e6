// Package testutils provides shared fixtures for package tests: an in-memory
// catalog database, catalog rows and on-disk book archives.
package testutils

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tankobon/tankobon/pkg/migrations"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewDB returns a migrated in-memory database that is closed when the test ends.
func NewDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys=ON")
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func CreateLibrary(t *testing.T, db *bun.DB, name, root string) *models.Library {
	t.Helper()

	now := time.Now()
	library := &models.Library{Name: name, Root: root, CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(library).Exec(context.Background())
	require.NoError(t, err)
	return library
}

func CreateSeries(t *testing.T, db *bun.DB, library *models.Library, name string) *models.Series {
	t.Helper()

	now := time.Now()
	series := &models.Series{
		CreatedAt: now,
		UpdatedAt: now,
		LibraryID: library.ID,
		Name:      name,
		URL:       filepath.Join(library.Root, name),
		Title:     name,
		TitleSort: name,
		Status:    models.SeriesStatusOngoing,
	}
	_, err := db.NewInsert().Model(series).Exec(context.Background())
	require.NoError(t, err)
	return series
}

type BookOptions struct {
	// Path defaults to "<series url>/<number>.cbz".
	Path        string
	Title       string
	MediaStatus string
	PageCount   int
	CreatedAt   time.Time
}

func CreateBook(t *testing.T, db *bun.DB, series *models.Series, number float64, opts ...BookOptions) *models.Book {
	t.Helper()

	o := BookOptions{}
	if len(opts) > 0 {
		o = opts[0]
	}

	numberStr := strconv.FormatFloat(number, 'f', -1, 64)
	path := o.Path
	if path == "" {
		path = filepath.Join(series.URL, numberStr+".cbz")
	}
	title := o.Title
	if title == "" {
		title = fmt.Sprintf("%s %s", series.Name, numberStr)
	}
	createdAt := o.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	status := o.MediaStatus
	if status == "" {
		status = models.MediaStatusUnknown
	}

	book := &models.Book{
		LibraryID:      series.LibraryID,
		SeriesID:       series.ID,
		Name:           filepath.Base(path),
		Path:           path,
		Title:          title,
		Number:         numberStr,
		NumberSort:     number,
		MediaStatus:    status,
		MediaPageCount: o.PageCount,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	_, err := db.NewInsert().Model(book).Exec(context.Background())
	require.NoError(t, err)
	return book
}

// CreateUser inserts a user. A nil libraryIDs grants access to every library.
func CreateUser(t *testing.T, db *bun.DB, username string, isAdmin bool, libraryIDs []int) *models.User {
	t.Helper()
	ctx := context.Background()

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     username,
		PasswordHash: "hash",
		IsAdmin:      isAdmin,
		IsActive:     true,
	}
	_, err := db.NewInsert().Model(user).Exec(ctx)
	require.NoError(t, err)

	if libraryIDs == nil {
		user.LibraryAccess = []*models.UserLibraryAccess{{UserID: user.ID, CreatedAt: now}}
	} else {
		for _, id := range libraryIDs {
			id := id
			user.LibraryAccess = append(user.LibraryAccess, &models.UserLibraryAccess{UserID: user.ID, LibraryID: &id, CreatedAt: now})
		}
	}
	if len(user.LibraryAccess) > 0 {
		_, err = db.NewInsert().Model(&user.LibraryAccess).Exec(ctx)
		require.NoError(t, err)
	}

	return user
}

// JPEG encodes a solid-colored image.
func JPEG(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, img, nil))
	return buf.Bytes()
}

// WriteCBZ writes a zip archive with the given number of JPEG pages named
// "page1.jpg", "page2.jpg", ... stored in reverse order so that readers have
// to sort them. Extra entries are written as-is.
func WriteCBZ(t *testing.T, path string, pages int, extra map[string][]byte) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := zip.NewWriter(f)
	for i := pages; i >= 1; i-- {
		entry, err := w.Create(fmt.Sprintf("page%d.jpg", i))
		require.NoError(t, err)
		shade := uint8(i * 20 % 256)
		_, err = entry.Write(JPEG(t, 40, 60, color.RGBA{R: shade, G: 100, B: 200, A: 255}))
		require.NoError(t, err)
	}
	for name, data := range extra {
		entry, err := w.Create(name)
		require.NoError(t, err)
		_, err = entry.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}
