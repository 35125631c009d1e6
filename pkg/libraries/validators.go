package libraries

type CreateLibraryPayload struct {
	Name string `json:"name" mod:"trim" validate:"required,max=100"`
	Root string `json:"root" mod:"trim" validate:"required"`
}

type ListLibrariesQuery struct {
	Limit  int `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=500"`
	Offset int `query:"offset" json:"offset,omitempty" validate:"min=0"`
}
