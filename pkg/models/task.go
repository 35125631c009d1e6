package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	TaskKindAnalyze         = "ANALYZE"
	TaskKindRefreshMetadata = "REFRESH_METADATA"
)

const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusSucceeded  = "succeeded"
	TaskStatusFailed     = "failed"
)

var TaskStatuses = []string{TaskStatusPending, TaskStatusInProgress, TaskStatusSucceeded, TaskStatusFailed}

type Task struct {
	bun.BaseModel `bun:"table:tasks,alias:t"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Kind      string    `bun:",nullzero" json:"kind"`
	BookID    int       `bun:",nullzero" json:"book_id"`
	Status    string    `bun:",nullzero" json:"status"`
	Error     *string   `json:"error,omitempty"`
	ProcessID *string   `json:"process_id,omitempty"`
}
