package tasks

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveTaskOptions struct {
	ID *int
}

type ListTasksOptions struct {
	Limit              *int
	Offset             *int
	Statuses           []string
	Kind               *string
	BookID             *int
	ProcessIDToExclude *string

	includeTotal bool
}

type UpdateTaskOptions struct {
	Columns []string
}

// Service persists task records. The records exist for observability and
// restart recovery; deduplication happens in the worker's in-memory state
// table, not here.
type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateTask(ctx context.Context, task *models.Task) error {
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = task.CreatedAt
	if task.Status == "" {
		task.Status = models.TaskStatusPending
	}

	_, err := svc.db.
		NewInsert().
		Model(task).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveTask(ctx context.Context, opts RetrieveTaskOptions) (*models.Task, error) {
	task := &models.Task{}

	q := svc.db.
		NewSelect().
		Model(task)

	if opts.ID != nil {
		q = q.Where("t.id = ?", *opts.ID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Task")
		}
		return nil, errors.WithStack(err)
	}

	return task, nil
}

func (svc *Service) ListTasks(ctx context.Context, opts ListTasksOptions) ([]*models.Task, error) {
	t, _, err := svc.listTasksWithTotal(ctx, opts)
	return t, errors.WithStack(err)
}

func (svc *Service) ListTasksWithTotal(ctx context.Context, opts ListTasksOptions) ([]*models.Task, int, error) {
	opts.includeTotal = true
	return svc.listTasksWithTotal(ctx, opts)
}

func (svc *Service) listTasksWithTotal(ctx context.Context, opts ListTasksOptions) ([]*models.Task, int, error) {
	tasks := []*models.Task{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&tasks).
		Order("t.created_at ASC", "t.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if len(opts.Statuses) > 0 {
		q = q.Where("t.status IN (?)", bun.In(opts.Statuses))
	}
	if opts.Kind != nil {
		q = q.Where("t.kind = ?", *opts.Kind)
	}
	if opts.BookID != nil {
		q = q.Where("t.book_id = ?", *opts.BookID)
	}
	if opts.ProcessIDToExclude != nil {
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("t.process_id IS NULL").
				WhereOr("t.process_id != ?", *opts.ProcessIDToExclude)
		})
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return tasks, total, nil
}

func (svc *Service) UpdateTask(ctx context.Context, task *models.Task, opts UpdateTaskOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	task.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(task).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
