package libraries

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveLibraryOptions struct {
	ID *int
}

type ListLibrariesOptions struct {
	Limit      *int
	Offset     *int
	LibraryIDs []int

	includeTotal bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateLibrary(ctx context.Context, library *models.Library) error {
	root, err := filepath.Abs(library.Root)
	if err != nil {
		return errors.WithStack(err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return errcodes.ValidationError("\"root\" must be an existing directory")
	}
	library.Root = root

	now := time.Now()
	if library.CreatedAt.IsZero() {
		library.CreatedAt = now
	}
	library.UpdatedAt = library.CreatedAt

	_, err = svc.db.
		NewInsert().
		Model(library).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errcodes.Conflict("A library with this root already exists.")
		}
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveLibrary(ctx context.Context, opts RetrieveLibraryOptions) (*models.Library, error) {
	library := &models.Library{}

	q := svc.db.
		NewSelect().
		Model(library)

	if opts.ID != nil {
		q = q.Where("l.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Library")
		}
		return nil, errors.WithStack(err)
	}

	return library, nil
}

func (svc *Service) ListLibraries(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, error) {
	l, _, err := svc.listLibrariesWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	opts.includeTotal = true
	return svc.listLibrariesWithTotal(ctx, opts)
}

func (svc *Service) listLibrariesWithTotal(ctx context.Context, opts ListLibrariesOptions) ([]*models.Library, int, error) {
	libraries := []*models.Library{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&libraries).
		OrderExpr("l.name COLLATE NOCASE ASC").
		Order("l.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.LibraryIDs != nil {
		if len(opts.LibraryIDs) == 0 {
			return libraries, 0, nil
		}
		q = q.Where("l.id IN (?)", bun.In(opts.LibraryIDs))
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return libraries, total, nil
}

// DeleteLibrary removes the library along with its series, books, read
// progress and task records. It returns the IDs of the deleted books.
func (svc *Service) DeleteLibrary(ctx context.Context, id int) ([]int, error) {
	var bookIDs []int
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().
			Model((*models.Book)(nil)).
			Column("b.id").
			Where("b.library_id = ?", id).
			Scan(ctx, &bookIDs)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Library)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		if n == 0 {
			return errcodes.NotFound("Library")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return bookIDs, nil
}
