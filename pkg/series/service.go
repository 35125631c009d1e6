package series

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

// Per-user book counts. Filters repeat these expressions instead of the
// select aliases, since the count query drops the selected columns.
const (
	booksCountExpr = "(SELECT COUNT(*) FROM books AS cb WHERE cb.series_id = s.id)"
	// The placeholder is the user ID.
	booksReadCountExpr       = "(SELECT COUNT(*) FROM books AS cb JOIN read_progress AS crp ON crp.book_id = cb.id WHERE cb.series_id = s.id AND crp.user_id = ? AND crp.completed)"
	booksInProgressCountExpr = "(SELECT COUNT(*) FROM books AS cb JOIN read_progress AS crp ON crp.book_id = cb.id WHERE cb.series_id = s.id AND crp.user_id = ? AND NOT crp.completed)"
)

// Sorter maps the public series sort fields to columns.
var Sorter = pagination.Sorter{
	Fields: map[string]pagination.Field{
		"metadata.titleSort": {Expr: "s.title_sort", Textual: true},
		"metadata.title":     {Expr: "s.title", Textual: true},
		"name":               {Expr: "s.name", Textual: true},
		"createdDate":        {Expr: "s.created_at"},
		"lastModifiedDate":   {Expr: "s.updated_at"},
		"booksCount":         {Expr: booksCountExpr},
	},
	Defaults:   []pagination.Order{{Field: "metadata.titleSort"}},
	TieBreaker: "s.id",
}

type RetrieveSeriesOptions struct {
	ID *int
	// UserID selects whose read counts are loaded.
	UserID int
}

type ListSeriesOptions struct {
	Pageable pagination.Pageable
	UserID   int
	// LibraryIDs restricts results to the libraries the user can see. Nil
	// means all of them.
	LibraryIDs       []int
	FilterLibraryIDs []int
	Search           *string
	Statuses         []string
	ReadStatuses     []string
	// UpdatedOnly skips series that were never modified after creation.
	UpdatedOnly bool
}

type Service struct {
	db         *bun.DB
	maxRetries int
}

func NewService(db *bun.DB, maxRetries int) *Service {
	return &Service{db: db, maxRetries: maxRetries}
}

func (svc *Service) withCounts(q *bun.SelectQuery, userID int) *bun.SelectQuery {
	return q.
		ColumnExpr("s.*").
		ColumnExpr(booksCountExpr+" AS books_count").
		ColumnExpr(booksReadCountExpr+" AS books_read_count", userID).
		ColumnExpr(booksInProgressCountExpr+" AS books_in_progress_count", userID)
}

func (svc *Service) RetrieveSeries(ctx context.Context, opts RetrieveSeriesOptions) (*models.Series, error) {
	series := &models.Series{}

	q := svc.withCounts(svc.db.NewSelect().Model(series), opts.UserID)

	if opts.ID != nil {
		q = q.Where("s.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Series")
		}
		return nil, errors.WithStack(err)
	}

	return series, nil
}

// ListSeries returns one page of series with the user's read counts.
// Access restrictions and filters are applied in the query, before paging.
func (svc *Service) ListSeries(ctx context.Context, opts ListSeriesOptions) (pagination.Page[*models.Series], error) {
	series := []*models.Series{}

	if opts.LibraryIDs != nil && len(opts.LibraryIDs) == 0 {
		return pagination.NewPage(series, opts.Pageable, 0), nil
	}

	q := svc.withCounts(svc.db.NewSelect().Model(&series), opts.UserID)

	if opts.LibraryIDs != nil {
		q = q.Where("s.library_id IN (?)", bun.In(opts.LibraryIDs))
	}
	if len(opts.FilterLibraryIDs) > 0 {
		q = q.Where("s.library_id IN (?)", bun.In(opts.FilterLibraryIDs))
	}
	if opts.Search != nil && *opts.Search != "" {
		q = q.Where(`s.title LIKE ? ESCAPE '\'`, pagination.ContainsPattern(*opts.Search))
	}
	if len(opts.Statuses) > 0 {
		q = q.Where("s.status IN (?)", bun.In(opts.Statuses))
	}
	if opts.UpdatedOnly {
		q = q.Where("s.updated_at <> s.created_at")
	}
	if len(opts.ReadStatuses) > 0 {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			for _, status := range opts.ReadStatuses {
				switch status {
				case models.ReadStatusRead:
					sq = sq.WhereOr(booksCountExpr+" > 0 AND "+booksReadCountExpr+" = "+booksCountExpr, opts.UserID)
				case models.ReadStatusUnread:
					sq = sq.WhereOr(booksReadCountExpr+" = 0 AND "+booksInProgressCountExpr+" = 0", opts.UserID, opts.UserID)
				case models.ReadStatusInProgress:
					sq = sq.WhereOr("("+booksReadCountExpr+" + "+booksInProgressCountExpr+") > 0 AND "+booksReadCountExpr+" < "+booksCountExpr, opts.UserID, opts.UserID, opts.UserID)
				}
			}
			return sq
		})
	}

	q, err := Sorter.Apply(q, opts.Pageable.Orders())
	if err != nil {
		return pagination.Page[*models.Series]{}, err
	}
	q = opts.Pageable.Apply(q)

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return pagination.Page[*models.Series]{}, errors.WithStack(err)
	}

	return pagination.NewPage(series, opts.Pageable, total), nil
}

// UpdateMetadata applies u through the lock table and writes the changed
// columns in a single update.
func (svc *Service) UpdateMetadata(ctx context.Context, series *models.Series, u metadata.Update) ([]string, error) {
	columns := metadata.SeriesFields.Apply(series, u)
	if len(columns) == 0 {
		return columns, nil
	}

	series.UpdatedAt = time.Now()
	err := database.RetryBusy(ctx, svc.maxRetries, func() error {
		_, err := svc.db.
			NewUpdate().
			Model(series).
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
