// Package content resolves the bytes behind a book page, a book thumbnail or
// a series thumbnail. It reads catalog rows and the filesystem directly and
// never takes catalog-wide locks.
package content

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/archive"
	"github.com/tankobon/tankobon/pkg/config"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/imaging"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/uptrace/bun"
)

// CoverExtensions are tried in order when looking for a curated cover image
// next to a book or a series directory.
var CoverExtensions = []string{"jpg", "jpeg", "png", "webp", "gif"}

// ThumbnailCacheControl is sent with every thumbnail response.
const ThumbnailCacheControl = "private, max-age=0, must-revalidate"

// Content is a resolved image.
type Content struct {
	Data      []byte
	MediaType string
}

type Service struct {
	db             *bun.DB
	cacheDir       string
	thumbnailWidth int
}

func NewService(db *bun.DB, cfg *config.Config) *Service {
	return &Service{
		db:             db,
		cacheDir:       cfg.CacheDir,
		thumbnailWidth: cfg.ThumbnailWidth,
	}
}

// ResolveBookPage returns the 1-based page n of book, converted to convertTo
// when it's set.
func (svc *Service) ResolveBookPage(ctx context.Context, book *models.Book, n int, convertTo string) (*Content, error) {
	if convertTo != "" {
		if _, ok := imaging.MediaTypeFor(convertTo); !ok {
			return nil, errcodes.UnsupportedFormat(convertTo)
		}
	}

	if book.MediaStatus == models.MediaStatusError || book.MediaStatus == models.MediaStatusUnsupported {
		return nil, errcodes.Unreadable("Book")
	}
	if book.MediaType != nil && *book.MediaType == archive.MediaTypePDF {
		return nil, errcodes.UnsupportedFormat("pdf pages")
	}
	if book.MediaStatus == models.MediaStatusReady && (n < 1 || n > book.MediaPageCount) {
		return nil, errcodes.NotFound("Page")
	}

	data, err := svc.readPage(ctx, book, n)
	if err != nil {
		return nil, err
	}

	mediaType := ""
	if n <= len(book.MediaPages) {
		mediaType = book.MediaPages[n-1].MediaType
	}
	if mediaType == "" {
		mediaType = mimetype.Detect(data).String()
	}

	if convertTo == "" {
		return &Content{Data: data, MediaType: mediaType}, nil
	}

	converted, mediaType, err := imaging.Convert(data, convertTo)
	if err != nil {
		if errors.Is(err, imaging.ErrUnsupportedFormat) {
			return nil, errcodes.UnsupportedFormat(convertTo)
		}
		return nil, errcodes.Unreadable("Page")
	}
	return &Content{Data: converted, MediaType: mediaType}, nil
}

// ResolvePageThumbnail returns a scaled-down JPEG of the 1-based page n.
func (svc *Service) ResolvePageThumbnail(ctx context.Context, book *models.Book, n int) (*Content, error) {
	page, err := svc.ResolveBookPage(ctx, book, n, "")
	if err != nil {
		return nil, err
	}
	thumb, err := imaging.Thumbnail(page.Data, svc.thumbnailWidth)
	if err != nil {
		return nil, errcodes.Unreadable("Page")
	}
	return &Content{Data: thumb, MediaType: imaging.MediaTypeJPEG}, nil
}

// ResolveBookThumbnail looks for, in order: a cover image next to the book
// file, the thumbnail cached at analysis time, and finally renders one from
// the first page.
func (svc *Service) ResolveBookThumbnail(ctx context.Context, book *models.Book) (*Content, error) {
	log := logger.FromContext(ctx)

	if c, ok := findImage(bookSidecarCandidates(book.Path)); ok {
		return c, nil
	}

	if data, err := os.ReadFile(svc.ThumbnailPath(book.ID)); err == nil {
		return &Content{Data: data, MediaType: imaging.MediaTypeJPEG}, nil
	}

	if book.MediaType != nil && *book.MediaType == archive.MediaTypePDF {
		return nil, errcodes.NotFound("Thumbnail")
	}

	page, err := svc.readPage(ctx, book, 1)
	if err != nil {
		if errcodes.HasCode(err, errcodes.CodeNotFound) {
			return nil, errcodes.NotFound("Thumbnail")
		}
		return nil, err
	}

	thumb, err := svc.StoreThumbnail(book.ID, page)
	if err != nil {
		log.Err(err).Warn("failed to cache book thumbnail", logger.Data{"book_id": book.ID})
		if thumb == nil {
			return nil, errcodes.Unreadable("Thumbnail")
		}
	}
	return &Content{Data: thumb, MediaType: imaging.MediaTypeJPEG}, nil
}

// ResolveSeriesThumbnail returns the first match of:
//  1. "<dir>.<ext>" next to the directory holding the series' first book,
//     for each of CoverExtensions in order
//  2. the first book's thumbnail
//
// and NOT_FOUND when the series has no books.
func (svc *Service) ResolveSeriesThumbnail(ctx context.Context, series *models.Series) (*Content, error) {
	first, err := svc.firstBook(ctx, series.ID)
	if err != nil {
		return nil, err
	}

	if c, ok := findImage(seriesSidecarCandidates(first.Path)); ok {
		return c, nil
	}

	return svc.ResolveBookThumbnail(ctx, first)
}

// ThumbnailPath is where the generated thumbnail of a book is cached.
func (svc *Service) ThumbnailPath(bookID int) string {
	return filepath.Join(svc.cacheDir, "thumbnails", strconv.Itoa(bookID)+".jpg")
}

// StoreThumbnail renders a thumbnail from page bytes and caches it. The
// thumbnail is returned even if caching it fails.
func (svc *Service) StoreThumbnail(bookID int, page []byte) ([]byte, error) {
	thumb, err := imaging.Thumbnail(page, svc.thumbnailWidth)
	if err != nil {
		return nil, err
	}

	path := svc.ThumbnailPath(bookID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return thumb, errors.WithStack(err)
	}
	// Write to a temp file first so readers never see a partial thumbnail.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, thumb, 0o644); err != nil {
		return thumb, errors.WithStack(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return thumb, errors.WithStack(err)
	}
	return thumb, nil
}

// DeleteThumbnail removes a cached thumbnail, if there is one.
func (svc *Service) DeleteThumbnail(bookID int) error {
	err := os.Remove(svc.ThumbnailPath(bookID))
	if err != nil && !os.IsNotExist(err) {
		return errors.WithStack(err)
	}
	return nil
}

func (svc *Service) readPage(_ context.Context, book *models.Book, n int) ([]byte, error) {
	z, err := archive.OpenZip(book.Path)
	if err != nil {
		return nil, errcodes.Unreadable("Book")
	}
	defer z.Close()

	data, err := z.ReadPage(n)
	if err != nil {
		if errors.Is(err, archive.ErrPageOutOfRange) {
			return nil, errcodes.NotFound("Page")
		}
		return nil, errcodes.Unreadable("Page")
	}
	return data, nil
}

func (svc *Service) firstBook(ctx context.Context, seriesID int) (*models.Book, error) {
	book := &models.Book{}
	err := svc.db.NewSelect().
		Model(book).
		Where("b.series_id = ?", seriesID).
		OrderExpr("b.number_sort ASC, b.id ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Thumbnail")
		}
		return nil, errors.WithStack(err)
	}
	return book, nil
}

// seriesSidecarCandidates lists "<dir>.<ext>" for the directory holding
// bookPath.
func seriesSidecarCandidates(bookPath string) []string {
	dir := strings.TrimRight(filepath.Dir(bookPath), `/\`)
	if dir == "" || dir == "." {
		return nil
	}
	candidates := make([]string, 0, len(CoverExtensions))
	for _, ext := range CoverExtensions {
		candidates = append(candidates, dir+"."+ext)
	}
	return candidates
}

// bookSidecarCandidates lists "<book stem>.<ext>" then "cover.<ext>" next to
// the book file.
func bookSidecarCandidates(bookPath string) []string {
	dir := filepath.Dir(bookPath)
	stem := strings.TrimSuffix(filepath.Base(bookPath), filepath.Ext(bookPath))
	candidates := make([]string, 0, 2*len(CoverExtensions))
	for _, ext := range CoverExtensions {
		candidates = append(candidates, filepath.Join(dir, stem+"."+ext))
	}
	for _, ext := range CoverExtensions {
		candidates = append(candidates, filepath.Join(dir, "cover."+ext))
	}
	return candidates
}

// findImage reads the first candidate that exists as a regular file.
func findImage(candidates []string) (*Content, bool) {
	for _, path := range candidates {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		return &Content{Data: data, MediaType: mimetype.Detect(data).String()}, true
	}
	return nil, false
}
