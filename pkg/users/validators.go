package users

// CreateUserPayload is the request body for creating a user. Without
// all_library_access the user can only see library_ids.
type CreateUserPayload struct {
	Username         string `json:"username" mod:"trim" validate:"required,min=3,max=50"`
	Password         string `json:"password" validate:"required,min=8"`
	IsAdmin          bool   `json:"is_admin"`
	LibraryIDs       []int  `json:"library_ids"`
	AllLibraryAccess bool   `json:"all_library_access"`
}

// UpdateUserPayload is the request body for updating a user.
type UpdateUserPayload struct {
	Username         *string `json:"username" validate:"omitempty,min=3,max=50"`
	IsAdmin          *bool   `json:"is_admin"`
	IsActive         *bool   `json:"is_active"`
	LibraryIDs       *[]int  `json:"library_ids"`        // If provided, replaces library access
	AllLibraryAccess *bool   `json:"all_library_access"` // If true, grants access to all libraries
}

type ResetPasswordPayload struct {
	CurrentPassword *string `json:"current_password"` // Required when resetting your own password
	NewPassword     string  `json:"new_password" validate:"required,min=8"`
}

type ListUsersQuery struct {
	Limit  int `query:"limit" default:"50" validate:"min=1,max=500"`
	Offset int `query:"offset" validate:"min=0"`
}

// libraryIDs maps the payload's access fields onto the nil-means-all
// convention used by the services.
func libraryIDs(all bool, ids []int) []int {
	if all {
		return nil
	}
	return append([]int{}, ids...)
}
