package auth

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
)

// CheckLibraryAccess reports whether user may see an entity that lives in
// libraryID. Non-admins get the same NOT_FOUND they'd get for an entity that
// doesn't exist, so existence is never revealed. Admins get UNAUTHORIZED.
func CheckLibraryAccess(user *models.User, libraryID int, resource string) error {
	if user.HasLibraryAccess(libraryID) {
		return nil
	}
	if user.IsAdmin {
		return errcodes.Unauthorized("You don't have access to this " + resource)
	}
	return errcodes.NotFound(resource)
}

// CurrentUser returns the authenticated user stored by Authenticate.
func CurrentUser(c echo.Context) (*models.User, error) {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return nil, errcodes.Unauthorized("Authentication required")
	}
	return user, nil
}
