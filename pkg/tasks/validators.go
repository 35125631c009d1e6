package tasks

type ListTasksQuery struct {
	Limit  int      `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=500"`
	Offset int      `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Status []string `query:"status" json:"status,omitempty" validate:"dive,oneof=pending in_progress succeeded failed"`
	Kind   *string  `query:"kind" json:"kind,omitempty" validate:"omitempty,oneof=ANALYZE REFRESH_METADATA"`
	BookID *int     `query:"book_id" json:"book_id,omitempty" validate:"omitempty,min=1"`
}

type ListTasksResponse struct {
	Tasks []*TaskResponse `json:"tasks"`
	Total int             `json:"total"`
}
