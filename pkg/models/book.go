package models

import (
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	MediaStatusUnknown     = "UNKNOWN"
	MediaStatusError       = "ERROR"
	MediaStatusReady       = "READY"
	MediaStatusUnsupported = "UNSUPPORTED"
)

var MediaStatuses = []string{MediaStatusUnknown, MediaStatusError, MediaStatusReady, MediaStatusUnsupported}

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID               int `bun:",pk,nullzero"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	LibraryID        int     `bun:",nullzero"`
	SeriesID         int     `bun:",nullzero"`
	Series           *Series `bun:"rel:belongs-to"`
	Name             string  `bun:",nullzero"`
	Path             string  `bun:",nullzero"`
	FileSize         int64
	FileLastModified *time.Time

	Title          string
	TitleLock      bool
	Number         string
	NumberLock     bool
	NumberSort     float64
	NumberSortLock bool

	MediaStatus    string
	MediaType      *string
	MediaPageCount int
	MediaPages     MediaPages
	MediaComment   *string

	ThumbnailBlurhash *string
}

// MediaPage describes a single page of a book's container, in reading order.
type MediaPage struct {
	FileName  string `json:"file_name"`
	MediaType string `json:"media_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

// MediaPages is stored as a JSON array in a single column.
type MediaPages []MediaPage

func (p MediaPages) Value() (driver.Value, error) {
	if p == nil {
		return nil, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return string(b), nil
}

func (p *MediaPages) Scan(src interface{}) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*p = nil
		return nil
	case string:
		b = []byte(v)
	case []byte:
		b = v
	default:
		return errors.Errorf("unsupported media pages type %T", src)
	}
	if len(b) == 0 {
		*p = nil
		return nil
	}
	return errors.WithStack(json.Unmarshal(b, p))
}

type BookMetadata struct {
	Number         string  `json:"number"`
	NumberLock     bool    `json:"number_lock"`
	NumberSort     float64 `json:"number_sort"`
	NumberSortLock bool    `json:"number_sort_lock"`
	Title          string  `json:"title"`
	TitleLock      bool    `json:"title_lock"`
}

type BookMedia struct {
	Status    string     `json:"status"`
	MediaType *string    `json:"media_type"`
	PageCount int        `json:"page_count"`
	Pages     MediaPages `json:"pages"`
	Comment   *string    `json:"comment"`
}

func (b *Book) Metadata() BookMetadata {
	return BookMetadata{
		Number:         b.Number,
		NumberLock:     b.NumberLock,
		NumberSort:     b.NumberSort,
		NumberSortLock: b.NumberSortLock,
		Title:          b.Title,
		TitleLock:      b.TitleLock,
	}
}

func (b *Book) Media() BookMedia {
	pages := b.MediaPages
	if pages == nil {
		pages = MediaPages{}
	}
	return BookMedia{
		Status:    b.MediaStatus,
		MediaType: b.MediaType,
		PageCount: b.MediaPageCount,
		Pages:     pages,
		Comment:   b.MediaComment,
	}
}

// IsReadable reports whether pages can be served from the book's file.
func (b *Book) IsReadable() bool {
	return b.MediaStatus == MediaStatusReady
}
