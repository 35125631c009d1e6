package filesystem

type BrowseQuery struct {
	Path       string `query:"path" json:"path,omitempty" mod:"trim" default:"/"`
	ShowHidden bool   `query:"show_hidden" json:"show_hidden,omitempty"`
	DirsOnly   bool   `query:"dirs_only" json:"dirs_only,omitempty"`
	Limit      int    `query:"limit" json:"limit,omitempty" default:"50" validate:"min=1,max=100"`
	Offset     int    `query:"offset" json:"offset,omitempty" validate:"min=0"`
	Search     string `query:"search" json:"search,omitempty" mod:"trim"`
}

// Entry is a file or directory. IsBook marks files the scanner would import;
// LibraryID is set on directories that are already a library root.
type Entry struct {
	Name      string `json:"name"`
	Path      string `json:"path"`
	IsDir     bool   `json:"is_dir"`
	IsBook    bool   `json:"is_book"`
	LibraryID *int   `json:"library_id,omitempty"`
}

type BrowseResponse struct {
	CurrentPath      string  `json:"current_path"`
	CurrentLibraryID *int    `json:"current_library_id,omitempty"`
	ParentPath       string  `json:"parent_path,omitempty"`
	Entries          []Entry `json:"entries"`
	Total            int     `json:"total"`
	HasMore          bool    `json:"has_more"`
}
