package libraries

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/scanner"
)

type handler struct {
	libraryService *Service
	scanner        *scanner.Scanner
	thumbnails     scanner.ThumbnailRemover
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library := &models.Library{
		Name: params.Name,
		Root: params.Root,
	}
	if err := h.libraryService.CreateLibrary(ctx, library); err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusCreated, library))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}
	if err := auth.CheckLibraryAccess(user, library.ID, "Library"); err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := ListLibrariesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	libraries, total, err := h.libraryService.ListLibrariesWithTotal(ctx, ListLibrariesOptions{
		Limit:      &params.Limit,
		Offset:     &params.Offset,
		LibraryIDs: user.GetAccessibleLibraryIDs(),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Libraries []*models.Library `json:"libraries"`
		Total     int               `json:"total"`
	}{libraries, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	log := logger.FromContext(ctx)
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	bookIDs, err := h.libraryService.DeleteLibrary(ctx, id)
	if err != nil {
		return err
	}
	for _, bookID := range bookIDs {
		if err := h.thumbnails.DeleteThumbnail(bookID); err != nil {
			log.Err(err).Warn("delete thumbnail error", logger.Data{"book_id": bookID})
		}
	}
	log.Info("library deleted", logger.Data{"library_id": id, "books": len(bookIDs)})

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) scan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	result, err := h.scanner.Scan(ctx, library)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusAccepted, result))
}
