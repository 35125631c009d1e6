// Package scanner reconciles the catalog with a library's directory tree.
// Every directory holding book files is a series and every file a book.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/archive"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/metadata"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/uptrace/bun"
)

// BookExtensions are the file extensions picked up as books.
var BookExtensions = map[string]bool{
	".cbz": true,
	".zip": true,
	".pdf": true,
}

// Submitter queues work for a book.
type Submitter interface {
	Submit(ctx context.Context, kind string, bookID int) (bool, error)
}

// ThumbnailRemover drops derived artifacts of deleted books.
type ThumbnailRemover interface {
	DeleteThumbnail(bookID int) error
}

type Result struct {
	SeriesAdded    int `json:"series_added"`
	SeriesRemoved  int `json:"series_removed"`
	BooksAdded     int `json:"books_added"`
	BooksUpdated   int `json:"books_updated"`
	BooksRemoved   int `json:"books_removed"`
	TasksSubmitted int `json:"tasks_submitted"`
}

type Scanner struct {
	db         *bun.DB
	submitter  Submitter
	thumbnails ThumbnailRemover

	mu       sync.Mutex
	scanning map[int]bool
}

func New(db *bun.DB, submitter Submitter, thumbnails ThumbnailRemover) *Scanner {
	return &Scanner{db: db, submitter: submitter, thumbnails: thumbnails, scanning: map[int]bool{}}
}

// claim marks the library as being scanned. It returns false if a scan of it
// is already running.
func (s *Scanner) claim(libraryID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scanning[libraryID] {
		return false
	}
	s.scanning[libraryID] = true
	return true
}

func (s *Scanner) release(libraryID int) {
	s.mu.Lock()
	delete(s.scanning, libraryID)
	s.mu.Unlock()
}

type bookFile struct {
	path    string
	size    int64
	modTime time.Time
}

// Scan walks the library root and brings series and books in line with it.
// New and modified books get ANALYZE and REFRESH_METADATA submitted. Only one
// scan of a library runs at a time; a second one fails with CONFLICT.
func (s *Scanner) Scan(ctx context.Context, library *models.Library) (*Result, error) {
	log := logger.FromContext(ctx).Data(logger.Data{"library_id": library.ID, "root": library.Root})

	if !s.claim(library.ID) {
		return nil, errcodes.Conflict("Library is already being scanned.")
	}
	defer s.release(library.ID)

	dirs, err := walk(library.Root)
	if err != nil {
		return nil, err
	}

	existingSeries := []*models.Series{}
	err = s.db.NewSelect().Model(&existingSeries).Where("s.library_id = ?", library.ID).Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	seriesByURL := map[string]*models.Series{}
	for _, series := range existingSeries {
		seriesByURL[series.URL] = series
	}

	existingBooks := []*models.Book{}
	err = s.db.NewSelect().Model(&existingBooks).Where("b.library_id = ?", library.ID).Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	booksByPath := map[string]*models.Book{}
	for _, book := range existingBooks {
		booksByPath[book.Path] = book
	}

	result := &Result{}
	seen := map[string]bool{}
	toSubmit := []int{}

	dirNames := make([]string, 0, len(dirs))
	for dir := range dirs {
		dirNames = append(dirNames, dir)
	}
	sort.Strings(dirNames)

	for _, dir := range dirNames {
		files := dirs[dir]
		series, existed := seriesByURL[dir]
		if !existed {
			series, err = s.createSeries(ctx, library, dir)
			if err != nil {
				return nil, err
			}
			seriesByURL[dir] = series
			result.SeriesAdded++
		}

		changed := false
		for i, file := range files {
			seen[file.path] = true
			book, ok := booksByPath[file.path]
			if !ok {
				book, err = s.createBook(ctx, series, file, i+1)
				if err != nil {
					return nil, err
				}
				toSubmit = append(toSubmit, book.ID)
				result.BooksAdded++
				changed = true
				continue
			}
			if modified(book, file) {
				if err := s.updateBookFile(ctx, book, file); err != nil {
					return nil, err
				}
				toSubmit = append(toSubmit, book.ID)
				result.BooksUpdated++
				changed = true
			}
		}
		if changed && existed {
			if err := s.touchSeries(ctx, series); err != nil {
				return nil, err
			}
		}
	}

	for _, book := range existingBooks {
		if seen[book.Path] {
			continue
		}
		if err := s.deleteBook(ctx, book); err != nil {
			return nil, err
		}
		result.BooksRemoved++
	}

	removed, err := s.deleteEmptySeries(ctx, library.ID)
	if err != nil {
		return nil, err
	}
	result.SeriesRemoved = removed

	for _, bookID := range toSubmit {
		for _, kind := range []string{models.TaskKindAnalyze, models.TaskKindRefreshMetadata} {
			ok, err := s.submitter.Submit(ctx, kind, bookID)
			if err != nil {
				log.Err(err).Warn("submit task error", logger.Data{"kind": kind, "book_id": bookID})
				continue
			}
			if ok {
				result.TasksSubmitted++
			}
		}
	}

	log.Info("library scanned", logger.Data{
		"series_added":    result.SeriesAdded,
		"series_removed":  result.SeriesRemoved,
		"books_added":     result.BooksAdded,
		"books_updated":   result.BooksUpdated,
		"books_removed":   result.BooksRemoved,
		"tasks_submitted": result.TasksSubmitted,
	})
	return result, nil
}

// walk groups the book files under root by directory, each group in natural
// order. Hidden files and directories are skipped.
func walk(root string) (map[string][]bookFile, error) {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errcodes.ValidationError("library root " + root + " does not exist")
		}
		return nil, errors.WithStack(err)
	}
	if !info.IsDir() {
		return nil, errcodes.ValidationError("library root " + root + " is not a directory")
	}

	dirs := map[string][]bookFile{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !BookExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		dir := filepath.Dir(path)
		dirs[dir] = append(dirs[dir], bookFile{path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, files := range dirs {
		sort.Slice(files, func(i, j int) bool {
			return archive.NaturalLess(filepath.Base(files[i].path), filepath.Base(files[j].path))
		})
	}
	return dirs, nil
}

func modified(book *models.Book, file bookFile) bool {
	if book.FileSize != file.size {
		return true
	}
	// Stored timestamps don't keep the full precision of the filesystem.
	return book.FileLastModified == nil || !book.FileLastModified.Truncate(time.Second).Equal(file.modTime.Truncate(time.Second))
}

func (s *Scanner) createSeries(ctx context.Context, library *models.Library, dir string) (*models.Series, error) {
	now := time.Now()
	name := filepath.Base(dir)
	title := metadata.CleanTitle(name)
	series := &models.Series{
		CreatedAt: now,
		UpdatedAt: now,
		LibraryID: library.ID,
		Name:      name,
		URL:       dir,
		Title:     title,
		TitleSort: metadata.ForTitle(title),
		Status:    models.SeriesStatusOngoing,
	}
	_, err := s.db.NewInsert().Model(series).Returning("*").Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return series, nil
}

// createBook inserts a book with metadata guessed from its file name. A
// file name without a number is numbered by its position in the directory.
func (s *Scanner) createBook(ctx context.Context, series *models.Series, file bookFile, position int) (*models.Book, error) {
	now := time.Now()
	modTime := file.modTime
	book := &models.Book{
		CreatedAt:        now,
		UpdatedAt:        now,
		LibraryID:        series.LibraryID,
		SeriesID:         series.ID,
		Name:             filepath.Base(file.path),
		Path:             file.path,
		FileSize:         file.size,
		FileLastModified: &modTime,
		Title:            metadata.TitleFromFilename(file.path),
		MediaStatus:      models.MediaStatusUnknown,
	}
	if number, ok := metadata.NumberFromFilename(file.path); ok {
		book.Number = number
	} else {
		book.Number = strconv.Itoa(position)
	}
	if numberSort, ok := metadata.NumberSort(book.Number); ok {
		book.NumberSort = numberSort
	} else {
		book.NumberSort = float64(position)
	}

	_, err := s.db.NewInsert().Model(book).Returning("*").Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return book, nil
}

func (s *Scanner) updateBookFile(ctx context.Context, book *models.Book, file bookFile) error {
	modTime := file.modTime
	book.FileSize = file.size
	book.FileLastModified = &modTime
	book.UpdatedAt = time.Now()
	_, err := s.db.NewUpdate().
		Model(book).
		Column("file_size", "file_last_modified", "updated_at").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

func (s *Scanner) touchSeries(ctx context.Context, series *models.Series) error {
	series.UpdatedAt = time.Now()
	_, err := s.db.NewUpdate().
		Model(series).
		Column("updated_at").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

func (s *Scanner) deleteBook(ctx context.Context, book *models.Book) error {
	_, err := s.db.NewDelete().Model(book).WherePK().Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if s.thumbnails != nil {
		if err := s.thumbnails.DeleteThumbnail(book.ID); err != nil {
			logger.FromContext(ctx).Err(err).Warn("delete thumbnail error", logger.Data{"book_id": book.ID})
		}
	}
	return nil
}

func (s *Scanner) deleteEmptySeries(ctx context.Context, libraryID int) (int, error) {
	res, err := s.db.NewDelete().
		Model((*models.Series)(nil)).
		Where("library_id = ?", libraryID).
		Where("id NOT IN (SELECT series_id FROM books)").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return int(n), nil
}
