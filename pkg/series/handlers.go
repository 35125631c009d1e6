package series

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/books"
	"github.com/tankobon/tankobon/pkg/content"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/metadata"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/pagination"
	"github.com/tankobon/tankobon/pkg/readprogress"
)

// TaskSubmitter fans a task kind out to every book of a series.
type TaskSubmitter interface {
	SubmitSeries(ctx context.Context, kind string, seriesID int) (int, error)
}

type handler struct {
	seriesService       *Service
	bookService         *books.Service
	contentService      *content.Service
	readProgressService *readprogress.Service
	submitter           TaskSubmitter
}

// series loads the series named by the :id parameter, with the user's
// counts, and checks that the user can see it.
func (h *handler) series(c echo.Context) (*models.Series, *models.User, error) {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return nil, nil, err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, nil, errcodes.NotFound("Series")
	}

	series, err := h.seriesService.RetrieveSeries(c.Request().Context(), RetrieveSeriesOptions{
		ID:     &id,
		UserID: user.ID,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := auth.CheckLibraryAccess(user, series.LibraryID, "Series"); err != nil {
		return nil, nil, err
	}
	return series, user, nil
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := ListSeriesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	return h.respondList(ctx, c, ListSeriesOptions{
		Pageable:         params.Pageable,
		UserID:           user.ID,
		LibraryIDs:       user.GetAccessibleLibraryIDs(),
		FilterLibraryIDs: params.LibraryID,
		Search:           params.Search,
		Statuses:         params.Status,
		ReadStatuses:     params.ReadStatus,
	})
}

func (h *handler) latest(c echo.Context) error {
	return h.view(c, "lastModifiedDate,desc", false)
}

func (h *handler) newest(c echo.Context) error {
	return h.view(c, "createdDate,desc", false)
}

func (h *handler) updated(c echo.Context) error {
	return h.view(c, "lastModifiedDate,desc", true)
}

// view serves one of the fixed-sort lists.
func (h *handler) view(c echo.Context, sort string, updatedOnly bool) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := ViewQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	return h.respondList(ctx, c, ListSeriesOptions{
		Pageable: pagination.Pageable{
			Page: params.Page,
			Size: params.Size,
			Sort: []string{sort},
		},
		UserID:      user.ID,
		LibraryIDs:  user.GetAccessibleLibraryIDs(),
		UpdatedOnly: updatedOnly,
	})
}

func (h *handler) respondList(ctx context.Context, c echo.Context, opts ListSeriesOptions) error {
	page, err := h.seriesService.ListSeries(ctx, opts)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, pagination.Map(page, NewSeriesResponse)))
}

func (h *handler) retrieve(c echo.Context) error {
	series, _, err := h.series(c)
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewSeriesResponse(series)))
}

func (h *handler) thumbnail(c echo.Context) error {
	ctx := c.Request().Context()
	series, _, err := h.series(c)
	if err != nil {
		return err
	}

	thumb, err := h.contentService.ResolveSeriesThumbnail(ctx, series)
	if err != nil {
		return err
	}

	c.Response().Header().Set("Cache-Control", content.ThumbnailCacheControl)
	return errors.WithStack(c.Blob(http.StatusOK, thumb.MediaType, thumb.Data))
}

func (h *handler) listBooks(c echo.Context) error {
	ctx := c.Request().Context()
	series, user, err := h.series(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := books.ListSeriesBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, err := h.bookService.ListBooks(ctx, books.ListBooksOptions{
		Pageable:      params.Pageable,
		UserID:        user.ID,
		LibraryIDs:    user.GetAccessibleLibraryIDs(),
		SeriesID:      &series.ID,
		MediaStatuses: params.MediaStatus,
		ReadStatuses:  params.ReadStatus,
	})
	if err != nil {
		return err
	}

	resp, err := books.BuildPage(ctx, h.readProgressService, user.ID, page)
	if err != nil {
		return err
	}
	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) analyze(c echo.Context) error {
	return h.submit(c, models.TaskKindAnalyze)
}

func (h *handler) refreshMetadata(c echo.Context) error {
	return h.submit(c, models.TaskKindRefreshMetadata)
}

func (h *handler) submit(c echo.Context, kind string) error {
	ctx := c.Request().Context()
	series, _, err := h.series(c)
	if err != nil {
		return err
	}

	queued, err := h.submitter.SubmitSeries(ctx, kind, series.ID)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("series task requested", logger.Data{"kind": kind, "series_id": series.ID, "queued": queued})

	return errors.WithStack(c.NoContent(http.StatusAccepted))
}

func (h *handler) updateMetadata(c echo.Context) error {
	ctx := c.Request().Context()
	series, user, err := h.series(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := metadata.SeriesPatch{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if _, err := h.seriesService.UpdateMetadata(ctx, series, params.Update()); err != nil {
		return err
	}

	series, err = h.seriesService.RetrieveSeries(ctx, RetrieveSeriesOptions{
		ID:     &series.ID,
		UserID: user.ID,
	})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewSeriesResponse(series)))
}

func (h *handler) markRead(c echo.Context) error {
	ctx := c.Request().Context()
	series, user, err := h.series(c)
	if err != nil {
		return err
	}

	if _, err := h.readProgressService.MarkSeriesRead(ctx, series.ID, user.ID); err != nil {
		return err
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) markUnread(c echo.Context) error {
	ctx := c.Request().Context()
	series, user, err := h.series(c)
	if err != nil {
		return err
	}

	if _, err := h.readProgressService.MarkSeriesUnread(ctx, series.ID, user.ID); err != nil {
		return err
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
