package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	ReadStatusUnread     = "UNREAD"
	ReadStatusInProgress = "IN_PROGRESS"
	ReadStatusRead       = "READ"
)

var ReadStatuses = []string{ReadStatusUnread, ReadStatusInProgress, ReadStatusRead}

type ReadProgress struct {
	bun.BaseModel `bun:"table:read_progress,alias:rp"`

	BookID    int       `bun:",pk" json:"book_id"`
	UserID    int       `bun:",pk" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Page      int       `json:"page"`
	Completed bool      `json:"completed"`
}
