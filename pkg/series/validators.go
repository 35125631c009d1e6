package series

import (
	"github.com/tankobon/tankobon/pkg/pagination"
)

type ListSeriesQuery struct {
	pagination.Pageable
	LibraryID  []int    `query:"library_id" json:"library_id,omitempty" validate:"dive,min=1"`
	Search     *string  `query:"search" json:"search,omitempty" mod:"trim" validate:"omitempty,max=200"`
	Status     []string `query:"status" json:"status,omitempty" validate:"dive,oneof=ONGOING ENDED ABANDONED HIATUS"`
	ReadStatus []string `query:"read_status" json:"read_status,omitempty" validate:"dive,oneof=UNREAD IN_PROGRESS READ"`
}

// ViewQuery is the query of the fixed-sort views, which only page.
type ViewQuery struct {
	Page int `query:"page" json:"page" validate:"min=0"`
	Size int `query:"size" json:"size" default:"20" validate:"min=1,max=500"`
}
