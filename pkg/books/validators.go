package books

import (
	"github.com/tankobon/tankobon/pkg/pagination"
)

type ListBooksQuery struct {
	pagination.Pageable
	LibraryID   []int    `query:"library_id" json:"library_id,omitempty" validate:"dive,min=1"`
	Search      *string  `query:"search" json:"search,omitempty" mod:"trim" validate:"omitempty,max=200"`
	MediaStatus []string `query:"media_status" json:"media_status,omitempty" validate:"dive,oneof=UNKNOWN ERROR READY UNSUPPORTED"`
	ReadStatus  []string `query:"read_status" json:"read_status,omitempty" validate:"dive,oneof=UNREAD IN_PROGRESS READ"`
}

// ListSeriesBooksQuery is the query of a series' book list.
type ListSeriesBooksQuery struct {
	pagination.Pageable
	MediaStatus []string `query:"media_status" json:"media_status,omitempty" validate:"dive,oneof=UNKNOWN ERROR READY UNSUPPORTED"`
	ReadStatus  []string `query:"read_status" json:"read_status,omitempty" validate:"dive,oneof=UNREAD IN_PROGRESS READ"`
}

type PageQuery struct {
	Convert string `query:"convert" json:"convert,omitempty" mod:"trim,lcase"`
}

type UpdateReadProgressPayload struct {
	Page      int   `json:"page" validate:"required,min=1"`
	Completed *bool `json:"completed,omitempty"`
}
