package worker

import (
	"context"
	"database/sql"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/config"
	"github.com/tankobon/tankobon/pkg/content"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/tasks"
	"github.com/uptrace/bun"
)

var processID = randStringBytes(8)

const (
	statePending = "PENDING"
	stateRunning = "RUNNING"
)

// taskKey is the identity tasks are deduplicated on.
type taskKey struct {
	Kind   string
	BookID int
}

type queuedTask struct {
	key    taskKey
	record *models.Task
}

// Worker runs ANALYZE and REFRESH_METADATA tasks on a fixed number of
// goroutines. A (kind, book) pair is in the state table from submission until
// its execution finishes, and submissions matching an entry are absorbed.
type Worker struct {
	config *config.Config
	db     *bun.DB
	log    logger.Logger

	processFuncs map[string]func(ctx context.Context, book *models.Book) error

	contentService *content.Service
	taskService    *tasks.Service

	mu     sync.Mutex
	states map[taskKey]string
	queue  []*queuedTask
	ready  chan struct{}
	locks  *bookLocks

	shutdown chan struct{}
	wg       sync.WaitGroup
}

func New(cfg *config.Config, db *bun.DB) *Worker {
	w := &Worker{
		config: cfg,
		db:     db,
		log:    logger.New(),

		contentService: content.NewService(db, cfg),
		taskService:    tasks.NewService(db),

		states: map[taskKey]string{},
		ready:  make(chan struct{}, 1),
		locks:  newBookLocks(),

		shutdown: make(chan struct{}),
	}

	w.processFuncs = map[string]func(ctx context.Context, book *models.Book) error{
		models.TaskKindAnalyze:         w.ProcessAnalyzeTask,
		models.TaskKindRefreshMetadata: w.ProcessRefreshMetadataTask,
	}

	return w
}

// Start resubmits the tasks other processes left unfinished and starts the
// worker goroutines.
func (w *Worker) Start() {
	w.recoverTasks(context.Background())

	for i := 0; i < w.config.WorkerProcesses; i++ {
		w.wg.Add(1)
		go w.processTasks()
	}
}

// Shutdown stops picking up tasks and waits for the running ones to finish.
// Queued tasks keep their pending records and are recovered on the next
// start.
func (w *Worker) Shutdown() {
	close(w.shutdown)
	w.wg.Wait()
}

// Submit queues a task for the book unless the same kind of task is already
// pending or running for it. It reports whether a new task was queued.
func (w *Worker) Submit(ctx context.Context, kind string, bookID int) (bool, error) {
	if _, ok := w.processFuncs[kind]; !ok {
		return false, errcodes.ValidationError("unknown task kind " + kind)
	}
	key := taskKey{Kind: kind, BookID: bookID}

	w.mu.Lock()
	if _, ok := w.states[key]; ok {
		w.mu.Unlock()
		return false, nil
	}
	w.states[key] = statePending
	w.mu.Unlock()

	// Owned by this process from the start so recovery never picks it up.
	record := &models.Task{Kind: kind, BookID: bookID, ProcessID: &processID}
	if err := w.taskService.CreateTask(ctx, record); err != nil {
		logger.FromContext(ctx).Err(err).Warn("create task record error", logger.Data{"kind": kind, "book_id": bookID})
		record = nil
	}

	w.enqueue(&queuedTask{key: key, record: record})
	return true, nil
}

// SubmitSeries fans a task out to every book of the series. Each book is
// submitted on its own; a failed submission is logged and skipped. It returns
// how many new tasks were queued.
func (w *Worker) SubmitSeries(ctx context.Context, kind string, seriesID int) (int, error) {
	log := logger.FromContext(ctx)

	var bookIDs []int
	err := w.db.NewSelect().
		Model((*models.Book)(nil)).
		Column("b.id").
		Where("b.series_id = ?", seriesID).
		Order("b.number_sort ASC", "b.id ASC").
		Scan(ctx, &bookIDs)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	submitted := 0
	for _, bookID := range bookIDs {
		ok, err := w.Submit(ctx, kind, bookID)
		if err != nil {
			log.Err(err).Warn("submit task error", logger.Data{"kind": kind, "book_id": bookID})
			continue
		}
		if ok {
			submitted++
		}
	}

	log.Info("series tasks submitted", logger.Data{"kind": kind, "series_id": seriesID, "books": len(bookIDs), "submitted": submitted})
	return submitted, nil
}

// Pending is the number of tasks that are queued or running.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.states)
}

func (w *Worker) enqueue(t *queuedTask) {
	w.mu.Lock()
	w.queue = append(w.queue, t)
	w.mu.Unlock()
	w.signal()
}

func (w *Worker) signal() {
	select {
	case w.ready <- struct{}{}:
	default:
	}
}

func (w *Worker) recoverTasks(ctx context.Context) {
	records, err := w.taskService.ListTasks(ctx, tasks.ListTasksOptions{
		Statuses:           []string{models.TaskStatusPending, models.TaskStatusInProgress},
		ProcessIDToExclude: &processID,
	})
	if err != nil {
		w.log.Err(err).Error("list unfinished tasks error")
		return
	}

	recovered := 0
	for _, record := range records {
		key := taskKey{Kind: record.Kind, BookID: record.BookID}

		w.mu.Lock()
		_, duplicate := w.states[key]
		if !duplicate {
			w.states[key] = statePending
		}
		w.mu.Unlock()

		if duplicate {
			// Another record for the same book and kind is already queued.
			msg := "superseded by an identical task"
			record.Status = models.TaskStatusFailed
			record.Error = &msg
			if err := w.taskService.UpdateTask(ctx, record, tasks.UpdateTaskOptions{Columns: []string{"status", "error"}}); err != nil {
				w.log.Err(err).Warn("update task error", logger.Data{"task_id": record.ID})
			}
			continue
		}

		w.enqueue(&queuedTask{key: key, record: record})
		recovered++
	}

	if recovered > 0 {
		w.log.Info("recovered unfinished tasks", logger.Data{"count": recovered})
	}
}

func (w *Worker) processTasks() {
	defer w.wg.Done()
	for {
		t, ok := w.next()
		if !ok {
			return
		}
		w.process(t)
	}
}

// next pops the oldest queued task and marks it running. It returns false
// once the worker is shutting down.
func (w *Worker) next() (*queuedTask, bool) {
	for {
		select {
		case <-w.shutdown:
			return nil, false
		default:
		}

		w.mu.Lock()
		if len(w.queue) > 0 {
			t := w.queue[0]
			w.queue[0] = nil
			w.queue = w.queue[1:]
			w.states[t.key] = stateRunning
			more := len(w.queue) > 0
			w.mu.Unlock()
			if more {
				// Wake another goroutine for the rest of the queue.
				w.signal()
			}
			return t, true
		}
		w.mu.Unlock()

		select {
		case <-w.shutdown:
			return nil, false
		case <-w.ready:
		}
	}
}

func (w *Worker) process(t *queuedTask) {
	defer w.finish(t.key)

	data := logger.Data{"kind": t.key.Kind, "book_id": t.key.BookID, "process_id": processID}
	if t.record != nil {
		data["task_id"] = t.record.ID
	}
	log := w.log.ID(uuid.NewString()).Root(data)
	ctx := log.WithContext(context.Background())

	unlock := w.locks.Lock(t.key.BookID)
	defer unlock()

	w.updateRecord(ctx, t.record, models.TaskStatusInProgress, nil)

	runCtx, cancel := context.WithTimeout(ctx, w.config.TaskTimeout)
	err := w.run(runCtx, t.key)
	cancel()
	if err != nil {
		log.Err(err).Warn("task failed")
		w.updateRecord(ctx, t.record, models.TaskStatusFailed, err)
		return
	}

	log.Info("task succeeded")
	w.updateRecord(ctx, t.record, models.TaskStatusSucceeded, nil)
}

func (w *Worker) run(ctx context.Context, key taskKey) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("task panicked: %v", r)
		}
	}()

	book := &models.Book{}
	err = w.db.NewSelect().
		Model(book).
		Relation("Series").
		Where("b.id = ?", key.BookID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Book")
		}
		return errors.WithStack(err)
	}

	return w.processFuncs[key.Kind](ctx, book)
}

func (w *Worker) finish(key taskKey) {
	w.mu.Lock()
	delete(w.states, key)
	w.mu.Unlock()
}

func (w *Worker) updateRecord(ctx context.Context, record *models.Task, status string, taskErr error) {
	if record == nil {
		return
	}
	record.Status = status
	record.Error = nil
	columns := []string{"status", "error"}
	if status == models.TaskStatusInProgress {
		record.ProcessID = &processID
		columns = append(columns, "process_id")
	}
	if taskErr != nil {
		msg := taskErr.Error()
		record.Error = &msg
	}

	if err := w.taskService.UpdateTask(ctx, record, tasks.UpdateTaskOptions{Columns: columns}); err != nil {
		logger.FromContext(ctx).Err(err).Warn("update task error", logger.Data{"task_id": record.ID, "status": status})
	}
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
