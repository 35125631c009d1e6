package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/tankobon/tankobon/pkg/models"
)

type handler struct {
	authService *Service
}

func buildMeResponse(user *models.User) MeResponse {
	var libraryAccess *[]int
	if accessibleIDs := user.GetAccessibleLibraryIDs(); accessibleIDs != nil {
		libraryAccess = &accessibleIDs
	}

	return MeResponse{
		ID:            user.ID,
		Username:      user.Username,
		IsAdmin:       user.IsAdmin,
		LibraryAccess: libraryAccess,
	}
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Username, params.Password)
	if err != nil {
		return err
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, LoginResponse{
		Token: token,
		User:  buildMeResponse(user),
	})
}

func (h *handler) me(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, buildMeResponse(user))
}
