package auth

// LoginPayload represents the login request body.
type LoginPayload struct {
	Username string `json:"username" validate:"required,min=1,max=50"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  MeResponse `json:"user"`
}

// MeResponse represents the current user response.
type MeResponse struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	IsAdmin       bool   `json:"is_admin"`
	LibraryAccess *[]int `json:"library_access"` // nil = all libraries, empty = none, populated = specific libraries
}
