package users

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
)

type handler struct {
	userService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	params := CreateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Create(ctx, auth.CreateUserOptions{
		Username:   params.Username,
		Password:   params.Password,
		IsAdmin:    params.IsAdmin,
		LibraryIDs: libraryIDs(params.AllLibraryAccess, params.LibraryIDs),
	})
	if err != nil {
		return err
	}

	logger.FromContext(ctx).Info("user created", logger.Data{"new_user_id": user.ID, "is_admin": user.IsAdmin})

	return errors.WithStack(c.JSON(http.StatusCreated, user))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListUsersQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	users, total, err := h.userService.List(ctx, ListOptions(params))
	if err != nil {
		return err
	}

	resp := struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}{users, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := UpdateUserPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	opts := UpdateOptions{Columns: []string{}}

	if params.Username != nil && strings.TrimSpace(*params.Username) != user.Username {
		user.Username = strings.TrimSpace(*params.Username)
		opts.Columns = append(opts.Columns, "username")
	}
	if params.IsAdmin != nil && *params.IsAdmin != user.IsAdmin {
		user.IsAdmin = *params.IsAdmin
		opts.Columns = append(opts.Columns, "is_admin")
	}
	if params.IsActive != nil && *params.IsActive != user.IsActive {
		user.IsActive = *params.IsActive
		opts.Columns = append(opts.Columns, "is_active")
	}

	if params.LibraryIDs != nil || params.AllLibraryAccess != nil {
		opts.UpdateLibraryAccess = true
		all := params.AllLibraryAccess != nil && *params.AllLibraryAccess
		ids := []int{}
		if params.LibraryIDs != nil {
			ids = *params.LibraryIDs
		}
		opts.LibraryIDs = libraryIDs(all, ids)
	}

	currentUserID, _ := c.Get("user_id").(int)
	if currentUserID == id && (!user.IsAdmin || !user.IsActive) {
		return errcodes.ValidationError("You cannot demote or deactivate your own account.")
	}

	if err := h.userService.Update(ctx, user, opts); err != nil {
		return err
	}

	user, err = h.userService.Retrieve(ctx, id)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, user))
}

func (h *handler) resetPassword(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	params := ResetPasswordPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	current, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	if current.ID == id {
		if params.CurrentPassword == nil || *params.CurrentPassword == "" {
			return errcodes.ValidationError("Current password is required when resetting your own password.")
		}

		valid, err := h.userService.VerifyPassword(ctx, id, *params.CurrentPassword)
		if err != nil {
			return err
		}
		if !valid {
			return errcodes.ValidationError("Current password is incorrect.")
		}
	} else {
		if !current.IsAdmin {
			return errcodes.Forbidden("Resetting another user's password")
		}
		if _, err := h.userService.Retrieve(ctx, id); err != nil {
			return err
		}
	}

	if err := h.userService.ResetPassword(ctx, id, params.NewPassword); err != nil {
		return err
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) deactivate(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("User")
	}

	currentUserID, _ := c.Get("user_id").(int)
	if currentUserID == id {
		return errcodes.ValidationError("You cannot deactivate your own account.")
	}

	if err := h.userService.Deactivate(ctx, id); err != nil {
		return err
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
