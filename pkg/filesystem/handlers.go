package filesystem

import (
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/errcodes"
)

type handler struct {
	filesystemService *Service
}

func (h *handler) browse(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := BrowseQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	resp, err := h.filesystemService.Browse(ctx, BrowseOptions(params))
	switch {
	case err == nil:
	case errors.Is(err, ErrNotDirectory):
		return errcodes.ValidationError("\"path\" must be a directory")
	case errors.Is(err, fs.ErrNotExist):
		return errcodes.NotFound("Directory")
	case errors.Is(err, fs.ErrPermission):
		logger.FromContext(ctx).Err(err).Warn("browse denied", logger.Data{"path": params.Path})
		return errcodes.Forbidden("Browsing this directory")
	default:
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
