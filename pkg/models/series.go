package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	SeriesStatusOngoing   = "ONGOING"
	SeriesStatusEnded     = "ENDED"
	SeriesStatusAbandoned = "ABANDONED"
	SeriesStatusHiatus    = "HIATUS"
)

var SeriesStatuses = []string{SeriesStatusOngoing, SeriesStatusEnded, SeriesStatusAbandoned, SeriesStatusHiatus}

type Series struct {
	bun.BaseModel `bun:"table:series,alias:s"`

	ID            int `bun:",pk,nullzero"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LibraryID     int      `bun:",nullzero"`
	Library       *Library `bun:"rel:belongs-to"`
	Name          string   `bun:",nullzero"`
	URL           string   `bun:"url,nullzero"`
	Title         string
	TitleLock     bool
	TitleSort     string
	TitleSortLock bool
	Status        string
	StatusLock    bool
	Books         []*Book `bun:"rel:has-many"`

	BooksCount           int `bun:",scanonly"`
	BooksReadCount       int `bun:",scanonly"`
	BooksInProgressCount int `bun:",scanonly"`
}

// SeriesMetadata is the user-facing, lockable part of a series.
type SeriesMetadata struct {
	Status        string `json:"status"`
	StatusLock    bool   `json:"status_lock"`
	Title         string `json:"title"`
	TitleLock     bool   `json:"title_lock"`
	TitleSort     string `json:"title_sort"`
	TitleSortLock bool   `json:"title_sort_lock"`
}

func (s *Series) Metadata() SeriesMetadata {
	return SeriesMetadata{
		Status:        s.Status,
		StatusLock:    s.StatusLock,
		Title:         s.Title,
		TitleLock:     s.TitleLock,
		TitleSort:     s.TitleSort,
		TitleSortLock: s.TitleSortLock,
	}
}
