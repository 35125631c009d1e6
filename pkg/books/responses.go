package books

import (
	"time"

	"github.com/tankobon/tankobon/pkg/models"
)

type MediaResponse struct {
	Status     string  `json:"status"`
	MediaType  *string `json:"media_type"`
	PagesCount int     `json:"pages_count"`
	Comment    *string `json:"comment"`
}

type ReadProgressResponse struct {
	Page      int       `json:"page"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BookResponse struct {
	ID                int                   `json:"id"`
	LibraryID         int                   `json:"library_id"`
	SeriesID          int                   `json:"series_id"`
	Name              string                `json:"name"`
	URL               string                `json:"url"`
	SizeBytes         int64                 `json:"size_bytes"`
	FileLastModified  *time.Time            `json:"file_last_modified"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
	Media             MediaResponse         `json:"media"`
	Metadata          models.BookMetadata   `json:"metadata"`
	ThumbnailBlurhash *string               `json:"thumbnail_blurhash"`
	ReadProgress      *ReadProgressResponse `json:"read_progress"`
}

type PageResponse struct {
	Number    int    `json:"number"`
	FileName  string `json:"file_name"`
	MediaType string `json:"media_type"`
	Width     int    `json:"width,omitempty"`
	Height    int    `json:"height,omitempty"`
}

func NewReadProgressResponse(p *models.ReadProgress) *ReadProgressResponse {
	if p == nil {
		return nil
	}
	return &ReadProgressResponse{
		Page:      p.Page,
		Completed: p.Completed,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// NewBookResponse builds the view of a book for a user. progress is the
// user's read progress on it, if any.
func NewBookResponse(b *models.Book, progress *models.ReadProgress) *BookResponse {
	media := b.Media()
	return &BookResponse{
		ID:               b.ID,
		LibraryID:        b.LibraryID,
		SeriesID:         b.SeriesID,
		Name:             b.Name,
		URL:              b.Path,
		SizeBytes:        b.FileSize,
		FileLastModified: b.FileLastModified,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
		Media: MediaResponse{
			Status:     media.Status,
			MediaType:  media.MediaType,
			PagesCount: media.PageCount,
			Comment:    media.Comment,
		},
		Metadata:          b.Metadata(),
		ThumbnailBlurhash: b.ThumbnailBlurhash,
		ReadProgress:      NewReadProgressResponse(progress),
	}
}

func NewPageResponses(b *models.Book) []PageResponse {
	pages := make([]PageResponse, 0, len(b.MediaPages))
	for i, p := range b.MediaPages {
		pages = append(pages, PageResponse{
			Number:    i + 1,
			FileName:  p.FileName,
			MediaType: p.MediaType,
			Width:     p.Width,
			Height:    p.Height,
		})
	}
	return pages
}
