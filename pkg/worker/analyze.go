package worker

import (
	"context"
	"io/fs"
	"os"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/tankobon/tankobon/pkg/archive"
	"github.com/tankobon/tankobon/pkg/database"
	"github.com/tankobon/tankobon/pkg/imaging"
	"github.com/tankobon/tankobon/pkg/metadata"
	"github.com/tankobon/tankobon/pkg/models"
)

var errNoPages = errors.New("archive contains no images")

// analysis is the media part of a book, written back in one update.
type analysis struct {
	status    string
	mediaType *string
	pageCount int
	pages     models.MediaPages
	comment   *string
	blurhash  *string
}

// ProcessAnalyzeTask reads the book's file and records its pages. A failed
// analysis still writes the book, with an error status and the reason, and
// then fails the task.
func (w *Worker) ProcessAnalyzeTask(ctx context.Context, book *models.Book) error {
	log := logger.FromContext(ctx)

	result, analyzeErr := w.analyze(ctx, book)
	if result == nil {
		result = &analysis{
			status:  models.MediaStatusError,
			comment: pointerutil.String(analyzeErr.Error()),
		}
	}

	book.MediaStatus = result.status
	book.MediaType = result.mediaType
	book.MediaPageCount = result.pageCount
	book.MediaPages = result.pages
	book.MediaComment = result.comment
	book.ThumbnailBlurhash = result.blurhash
	book.UpdatedAt = time.Now()

	// The outcome is recorded even when the task ran out of time.
	writeCtx := context.WithoutCancel(ctx)
	err := database.RetryBusy(writeCtx, w.config.DatabaseMaxRetries, func() error {
		_, err := w.db.NewUpdate().
			Model(book).
			Column("media_status", "media_type", "media_page_count", "media_pages", "media_comment", "thumbnail_blurhash", "updated_at").
			WherePK().
			Exec(writeCtx)
		return errors.WithStack(err)
	})
	if err != nil {
		return err
	}
	if analyzeErr != nil {
		return analyzeErr
	}

	log.Info("book analyzed", logger.Data{"status": result.status, "page_count": result.pageCount})
	return nil
}

func (w *Worker) analyze(ctx context.Context, book *models.Book) (*analysis, error) {
	if err := waitForFile(ctx, book.Path); err != nil {
		return nil, err
	}

	mediaType, err := archive.DetectMediaType(book.Path)
	if err != nil {
		return nil, err
	}

	switch mediaType {
	case archive.MediaTypeCBZ:
		return w.analyzeZip(ctx, book, mediaType)
	case archive.MediaTypePDF:
		count, err := archive.PDFPageCount(book.Path)
		if err != nil {
			return nil, err
		}
		return &analysis{
			status:    models.MediaStatusReady,
			mediaType: &mediaType,
			pageCount: count,
		}, nil
	default:
		err := errors.Wrapf(archive.ErrUnsupported, "%s", mediaType)
		return &analysis{
			status:    models.MediaStatusUnsupported,
			mediaType: &mediaType,
			comment:   pointerutil.String(err.Error()),
		}, err
	}
}

func (w *Worker) analyzeZip(ctx context.Context, book *models.Book, mediaType string) (*analysis, error) {
	log := logger.FromContext(ctx)

	z, err := archive.OpenZip(book.Path)
	if err != nil {
		return nil, err
	}
	defer z.Close()

	pages, err := z.Pages()
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, errNoPages
	}

	result := &analysis{
		status:    models.MediaStatusReady,
		mediaType: &mediaType,
		pageCount: len(pages),
		pages:     make(models.MediaPages, 0, len(pages)),
	}
	for _, p := range pages {
		result.pages = append(result.pages, models.MediaPage{
			FileName:  p.FileName,
			MediaType: p.MediaType,
			Width:     p.Width,
			Height:    p.Height,
		})
	}

	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	cover := coverPage(z, len(pages))
	page, err := z.ReadPage(cover)
	if err != nil {
		log.Err(err).Warn("read cover page error", logger.Data{"page": cover})
		return result, nil
	}
	thumb, err := w.contentService.StoreThumbnail(book.ID, page)
	if err != nil {
		log.Err(err).Warn("store thumbnail error")
	}
	if thumb != nil {
		hash, err := imaging.BlurHash(thumb)
		if err != nil {
			log.Err(err).Warn("blurhash error")
		} else {
			result.blurhash = &hash
		}
	}

	return result, nil
}

// coverPage is the 1-based page marked as the front cover in ComicInfo.xml,
// or the first page.
func coverPage(z *archive.Zip, count int) int {
	b, ok, err := z.ReadEntry("ComicInfo.xml")
	if err != nil || !ok {
		return 1
	}
	info, err := metadata.ParseComicInfo(b)
	if err != nil {
		return 1
	}
	if idx, ok := info.FrontCover(); ok && idx < count {
		return idx + 1
	}
	return 1
}

// waitForFile retries opening path until it succeeds or ctx expires. A file
// that doesn't exist fails right away.
func waitForFile(ctx context.Context, path string) error {
	return retry.Do(
		func() error {
			f, err := os.Open(path)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					return retry.Unrecoverable(errors.WithStack(err))
				}
				return errors.WithStack(err)
			}
			return errors.WithStack(f.Close())
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(100*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}
