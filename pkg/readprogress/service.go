package readprogress

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/database"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/uptrace/bun"
)

// Service applies read/unread transitions. Every write touches exactly one
// (book, user) row; series-wide operations apply them book by book and keep
// going past individual failures.
type Service struct {
	db         *bun.DB
	maxRetries int
}

func NewService(db *bun.DB, maxRetries int) *Service {
	return &Service{db: db, maxRetries: maxRetries}
}

// MarkRead records the book as completed for the user. Marking an already
// completed book again leaves its row untouched.
func (svc *Service) MarkRead(ctx context.Context, book *models.Book, userID int) error {
	now := time.Now()
	progress := &models.ReadProgress{
		BookID:    book.ID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Page:      book.MediaPageCount,
		Completed: true,
	}

	return database.RetryBusy(ctx, svc.maxRetries, func() error {
		_, err := svc.db.NewInsert().
			Model(progress).
			On("CONFLICT (book_id, user_id) DO UPDATE").
			Set("page = EXCLUDED.page").
			Set("completed = EXCLUDED.completed").
			Set("updated_at = EXCLUDED.updated_at").
			Where("completed = ?", false).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// MarkUnread deletes the user's progress on the book, if any.
func (svc *Service) MarkUnread(ctx context.Context, bookID, userID int) error {
	return database.RetryBusy(ctx, svc.maxRetries, func() error {
		_, err := svc.db.NewDelete().
			Model((*models.ReadProgress)(nil)).
			Where("book_id = ?", bookID).
			Where("user_id = ?", userID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

type UpdateProgressOptions struct {
	Page      int
	Completed *bool
}

// UpdateProgress records a partial read. Reaching the last page completes the
// book.
func (svc *Service) UpdateProgress(ctx context.Context, book *models.Book, userID int, opts UpdateProgressOptions) (*models.ReadProgress, error) {
	if book.MediaStatus != models.MediaStatusReady {
		return nil, errcodes.ValidationError("book has not been analyzed yet")
	}
	if opts.Page < 1 || opts.Page > book.MediaPageCount {
		return nil, errcodes.ValidationError(fmt.Sprintf("\"page\" must be between 1 and %d", book.MediaPageCount))
	}

	completed := opts.Page == book.MediaPageCount
	if opts.Completed != nil {
		completed = *opts.Completed
	}

	now := time.Now()
	progress := &models.ReadProgress{
		BookID:    book.ID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Page:      opts.Page,
		Completed: completed,
	}

	err := database.RetryBusy(ctx, svc.maxRetries, func() error {
		_, err := svc.db.NewInsert().
			Model(progress).
			On("CONFLICT (book_id, user_id) DO UPDATE").
			Set("page = EXCLUDED.page").
			Set("completed = EXCLUDED.completed").
			Set("updated_at = EXCLUDED.updated_at").
			Returning("*").
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// MarkSeriesRead marks every book of the series as read for the user and
// returns how many books were updated.
func (svc *Service) MarkSeriesRead(ctx context.Context, seriesID, userID int) (int, error) {
	return svc.cascade(ctx, seriesID, "mark read", func(book *models.Book) error {
		return svc.MarkRead(ctx, book, userID)
	})
}

// MarkSeriesUnread clears the user's progress on every book of the series.
func (svc *Service) MarkSeriesUnread(ctx context.Context, seriesID, userID int) (int, error) {
	return svc.cascade(ctx, seriesID, "mark unread", func(book *models.Book) error {
		return svc.MarkUnread(ctx, book.ID, userID)
	})
}

func (svc *Service) cascade(ctx context.Context, seriesID int, action string, fn func(*models.Book) error) (int, error) {
	log := logger.FromContext(ctx)

	books := []*models.Book{}
	err := svc.db.NewSelect().
		Model(&books).
		Column("b.id", "b.media_page_count").
		Where("b.series_id = ?", seriesID).
		Order("b.number_sort ASC", "b.id ASC").
		Scan(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	applied := 0
	for _, book := range books {
		if err := fn(book); err != nil {
			log.Err(err).Warn("failed to "+action+" book", logger.Data{"book_id": book.ID, "series_id": seriesID})
			continue
		}
		applied++
	}
	return applied, nil
}

// RetrieveForBooks returns the user's progress for the given books, keyed by
// book ID. Books without progress are absent.
func (svc *Service) RetrieveForBooks(ctx context.Context, userID int, bookIDs []int) (map[int]*models.ReadProgress, error) {
	result := map[int]*models.ReadProgress{}
	if len(bookIDs) == 0 {
		return result, nil
	}

	progress := []*models.ReadProgress{}
	err := svc.db.NewSelect().
		Model(&progress).
		Where("rp.user_id = ?", userID).
		Where("rp.book_id IN (?)", bun.In(bookIDs)).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, p := range progress {
		result[p.BookID] = p
	}
	return result, nil
}
