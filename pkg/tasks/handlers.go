package tasks

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
)

type TaskResponse struct {
	ID        int       `json:"id"`
	Kind      string    `json:"kind"`
	BookID    int       `json:"book_id"`
	Status    string    `json:"status"`
	Error     *string   `json:"error,omitempty"`
	ProcessID *string   `json:"process_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newTaskResponse(t *models.Task) *TaskResponse {
	return &TaskResponse{
		ID:        t.ID,
		Kind:      t.Kind,
		BookID:    t.BookID,
		Status:    t.Status,
		Error:     t.Error,
		ProcessID: t.ProcessID,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

type handler struct {
	taskService *Service
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Task")
	}

	task, err := h.taskService.RetrieveTask(ctx, RetrieveTaskOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, newTaskResponse(task)))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListTasksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	tasks, total, err := h.taskService.ListTasksWithTotal(ctx, ListTasksOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Statuses: params.Status,
		Kind:     params.Kind,
		BookID:   params.BookID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := ListTasksResponse{
		Tasks: make([]*TaskResponse, 0, len(tasks)),
		Total: total,
	}
	for _, t := range tasks {
		resp.Tasks = append(resp.Tasks, newTaskResponse(t))
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
