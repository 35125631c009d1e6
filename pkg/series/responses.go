package series

import (
	"time"

	"github.com/tankobon/tankobon/pkg/models"
)

type SeriesResponse struct {
	ID                   int                   `json:"id"`
	LibraryID            int                   `json:"library_id"`
	Name                 string                `json:"name"`
	URL                  string                `json:"url"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
	Metadata             models.SeriesMetadata `json:"metadata"`
	BooksCount           int                   `json:"books_count"`
	BooksReadCount       int                   `json:"books_read_count"`
	BooksUnreadCount     int                   `json:"books_unread_count"`
	BooksInProgressCount int                   `json:"books_in_progress_count"`
}

// NewSeriesResponse builds the view of a series. The counts are the ones
// loaded for the requesting user.
func NewSeriesResponse(s *models.Series) *SeriesResponse {
	return &SeriesResponse{
		ID:                   s.ID,
		LibraryID:            s.LibraryID,
		Name:                 s.Name,
		URL:                  s.URL,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
		Metadata:             s.Metadata(),
		BooksCount:           s.BooksCount,
		BooksReadCount:       s.BooksReadCount,
		BooksUnreadCount:     s.BooksCount - s.BooksReadCount - s.BooksInProgressCount,
		BooksInProgressCount: s.BooksInProgressCount,
	}
}
