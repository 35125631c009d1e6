package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/archive"
	"github.com/tankobon/tankobon/pkg/database"
	"github.com/tankobon/tankobon/pkg/metadata"
	"github.com/tankobon/tankobon/pkg/models"
)

// ProcessRefreshMetadataTask re-derives the book's title and number from
// ComicInfo.xml and its file name, then re-derives the series title sort.
// Locked fields keep their values.
func (w *Worker) ProcessRefreshMetadataTask(ctx context.Context, book *models.Book) error {
	log := logger.FromContext(ctx)

	info, err := w.readComicInfo(ctx, book)
	if err != nil {
		return err
	}

	update := metadata.BookCandidates(book, info)
	columns := metadata.BookFields.Apply(book, update)
	if len(columns) > 0 {
		book.UpdatedAt = time.Now()
		columns = append(columns, "updated_at")
		err := database.RetryBusy(ctx, w.config.DatabaseMaxRetries, func() error {
			_, err := w.db.NewUpdate().
				Model(book).
				Column(columns...).
				WherePK().
				Exec(ctx)
			return errors.WithStack(err)
		})
		if err != nil {
			return err
		}
	}

	if book.Series != nil {
		if err := w.refreshSeries(ctx, book.Series); err != nil {
			return err
		}
	}

	log.Info("book metadata refreshed", logger.Data{"columns": columns})
	return nil
}

func (w *Worker) refreshSeries(ctx context.Context, series *models.Series) error {
	columns := metadata.SeriesFields.Apply(series, metadata.SeriesCandidates(series.Title))
	if len(columns) == 0 {
		return nil
	}
	series.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	return database.RetryBusy(ctx, w.config.DatabaseMaxRetries, func() error {
		_, err := w.db.NewUpdate().
			Model(series).
			Column(columns...).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// readComicInfo returns the book's ComicInfo.xml, or nil when the book has
// none or it can't be parsed.
func (w *Worker) readComicInfo(ctx context.Context, book *models.Book) (*metadata.ComicInfo, error) {
	log := logger.FromContext(ctx)

	if err := waitForFile(ctx, book.Path); err != nil {
		return nil, err
	}
	mediaType, err := archive.DetectMediaType(book.Path)
	if err != nil {
		return nil, err
	}
	if mediaType != archive.MediaTypeCBZ {
		return nil, nil
	}

	z, err := archive.OpenZip(book.Path)
	if err != nil {
		return nil, err
	}
	defer z.Close()

	b, ok, err := z.ReadEntry("ComicInfo.xml")
	if err != nil {
		log.Err(err).Warn("read ComicInfo.xml error")
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	info, err := metadata.ParseComicInfo(b)
	if err != nil {
		log.Err(err).Warn("parse ComicInfo.xml error")
		return nil, nil
	}
	return info, nil
}
