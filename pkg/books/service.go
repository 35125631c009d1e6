package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/tankobon/tankobon/pkg/database"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/metadata"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/pagination"
	"github.com/uptrace/bun"
)

// Sorter maps the public book sort fields to columns.
var Sorter = pagination.Sorter{
	Fields: map[string]pagination.Field{
		"metadata.numberSort": {Expr: "b.number_sort"},
		"metadata.title":      {Expr: "b.title", Textual: true},
		"name":                {Expr: "b.name", Textual: true},
		"number":              {Expr: "b.number", Textual: true},
		"createdDate":         {Expr: "b.created_at"},
		"lastModifiedDate":    {Expr: "b.updated_at"},
		"fileSize":            {Expr: "b.file_size"},
	},
	Defaults:   []pagination.Order{{Field: "metadata.numberSort"}},
	TieBreaker: "b.id",
}

type RetrieveBookOptions struct {
	ID *int
}

type ListBooksOptions struct {
	Pageable pagination.Pageable
	UserID   int
	// LibraryIDs restricts results to the libraries the user can see. Nil
	// means all of them.
	LibraryIDs       []int
	FilterLibraryIDs []int
	SeriesID         *int
	Search           *string
	MediaStatuses    []string
	ReadStatuses     []string
}

type Service struct {
	db         *bun.DB
	maxRetries int
}

func NewService(db *bun.DB, maxRetries int) *Service {
	return &Service{db: db, maxRetries: maxRetries}
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

// ListBooks returns one page of books. Access restrictions and filters are
// applied in the query, before paging.
func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) (pagination.Page[*models.Book], error) {
	books := []*models.Book{}

	if opts.LibraryIDs != nil && len(opts.LibraryIDs) == 0 {
		return pagination.NewPage(books, opts.Pageable, 0), nil
	}

	q := svc.db.
		NewSelect().
		Model(&books)

	if opts.LibraryIDs != nil {
		q = q.Where("b.library_id IN (?)", bun.In(opts.LibraryIDs))
	}
	if len(opts.FilterLibraryIDs) > 0 {
		q = q.Where("b.library_id IN (?)", bun.In(opts.FilterLibraryIDs))
	}
	if opts.SeriesID != nil {
		q = q.Where("b.series_id = ?", *opts.SeriesID)
	}
	if opts.Search != nil && *opts.Search != "" {
		q = q.Where(`b.title LIKE ? ESCAPE '\'`, pagination.ContainsPattern(*opts.Search))
	}
	if len(opts.MediaStatuses) > 0 {
		q = q.Where("b.media_status IN (?)", bun.In(opts.MediaStatuses))
	}
	if len(opts.ReadStatuses) > 0 {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, status := range opts.ReadStatuses {
				switch status {
				case models.ReadStatusRead:
					sq = sq.WhereOr("EXISTS (SELECT 1 FROM read_progress AS frp WHERE frp.book_id = b.id AND frp.user_id = ? AND frp.completed)", opts.UserID)
				case models.ReadStatusInProgress:
					sq = sq.WhereOr("EXISTS (SELECT 1 FROM read_progress AS frp WHERE frp.book_id = b.id AND frp.user_id = ? AND NOT frp.completed)", opts.UserID)
				case models.ReadStatusUnread:
					sq = sq.WhereOr("NOT EXISTS (SELECT 1 FROM read_progress AS frp WHERE frp.book_id = b.id AND frp.user_id = ?)", opts.UserID)
				}
			}
			return sq
		})
	}

	q, err := Sorter.Apply(q, opts.Pageable.Orders())
	if err != nil {
		return pagination.Page[*models.Book]{}, err
	}
	q = opts.Pageable.Apply(q)

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return pagination.Page[*models.Book]{}, errors.WithStack(err)
	}

	return pagination.NewPage(books, opts.Pageable, total), nil
}

// UpdateMetadata applies u through the lock table and writes the changed
// columns in a single update. Fields that were locked keep their values.
func (svc *Service) UpdateMetadata(ctx context.Context, book *models.Book, u metadata.Update) ([]string, error) {
	columns := metadata.BookFields.Apply(book, u)
	if len(columns) == 0 {
		return columns, nil
	}

	book.UpdatedAt = time.Now()
	err := database.RetryBusy(ctx, svc.maxRetries, func() error {
		_, err := svc.db.
			NewUpdate().
			Model(book).
			Column(append(columns, "updated_at")...).
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return columns, nil
}
