package books

import (
	"context"
	"net/http"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/content"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/metadata"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/pagination"
	"github.com/tankobon/tankobon/pkg/readprogress"
)

// TaskSubmitter queues asynchronous work for a book.
type TaskSubmitter interface {
	Submit(ctx context.Context, kind string, bookID int) (bool, error)
}

type handler struct {
	bookService         *Service
	contentService      *content.Service
	readProgressService *readprogress.Service
	submitter           TaskSubmitter
}

// book loads the book named by the :id parameter and checks that the user
// can see it.
func (h *handler) book(c echo.Context) (*models.Book, *models.User, error) {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return nil, nil, err
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return nil, nil, errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(c.Request().Context(), RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := auth.CheckLibraryAccess(user, book.LibraryID, "Book"); err != nil {
		return nil, nil, err
	}
	return book, user, nil
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := auth.CurrentUser(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, err := h.bookService.ListBooks(ctx, ListBooksOptions{
		Pageable:         params.Pageable,
		UserID:           user.ID,
		LibraryIDs:       user.GetAccessibleLibraryIDs(),
		FilterLibraryIDs: params.LibraryID,
		Search:           params.Search,
		MediaStatuses:    params.MediaStatus,
		ReadStatuses:     params.ReadStatus,
	})
	if err != nil {
		return err
	}

	resp, err := BuildPage(ctx, h.readProgressService, user.ID, page)
	if err != nil {
		return err
	}
	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

// BuildPage converts a page of books into their views for the user.
func BuildPage(ctx context.Context, readProgressService *readprogress.Service, userID int, page pagination.Page[*models.Book]) (pagination.Page[*BookResponse], error) {
	ids := make([]int, 0, len(page.Content))
	for _, b := range page.Content {
		ids = append(ids, b.ID)
	}
	progress, err := readProgressService.RetrieveForBooks(ctx, userID, ids)
	if err != nil {
		return pagination.Page[*BookResponse]{}, err
	}
	return pagination.Map(page, func(b *models.Book) *BookResponse {
		return NewBookResponse(b, progress[b.ID])
	}), nil
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	book, user, err := h.book(c)
	if err != nil {
		return err
	}

	progress, err := h.readProgressService.RetrieveForBooks(ctx, user.ID, []int{book.ID})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewBookResponse(book, progress[book.ID])))
}

func (h *handler) pages(c echo.Context) error {
	book, _, err := h.book(c)
	if err != nil {
		return err
	}
	if !book.IsReadable() {
		return errcodes.Unreadable("Book")
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewPageResponses(book)))
}

func (h *handler) thumbnail(c echo.Context) error {
	ctx := c.Request().Context()
	book, _, err := h.book(c)
	if err != nil {
		return err
	}

	thumb, err := h.contentService.ResolveBookThumbnail(ctx, book)
	if err != nil {
		return err
	}

	c.Response().Header().Set("Cache-Control", content.ThumbnailCacheControl)
	return errors.WithStack(c.Blob(http.StatusOK, thumb.MediaType, thumb.Data))
}

func (h *handler) file(c echo.Context) error {
	book, _, err := h.book(c)
	if err != nil {
		return err
	}

	if _, err := os.Stat(book.Path); err != nil {
		return errcodes.Unreadable("Book")
	}

	return errors.WithStack(c.Attachment(book.Path, book.Name))
}

func (h *handler) page(c echo.Context) error {
	ctx := c.Request().Context()
	book, _, err := h.book(c)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return errcodes.NotFound("Page")
	}

	// Bind params.
	params := PageQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	page, err := h.contentService.ResolveBookPage(ctx, book, n, params.Convert)
	if err != nil {
		return err
	}

	return errors.WithStack(c.Blob(http.StatusOK, page.MediaType, page.Data))
}

func (h *handler) pageThumbnail(c echo.Context) error {
	ctx := c.Request().Context()
	book, _, err := h.book(c)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return errcodes.NotFound("Page")
	}

	thumb, err := h.contentService.ResolvePageThumbnail(ctx, book, n)
	if err != nil {
		return err
	}

	c.Response().Header().Set("Cache-Control", content.ThumbnailCacheControl)
	return errors.WithStack(c.Blob(http.StatusOK, thumb.MediaType, thumb.Data))
}

func (h *handler) analyze(c echo.Context) error {
	return h.submit(c, models.TaskKindAnalyze)
}

func (h *handler) refreshMetadata(c echo.Context) error {
	return h.submit(c, models.TaskKindRefreshMetadata)
}

func (h *handler) submit(c echo.Context, kind string) error {
	ctx := c.Request().Context()
	book, _, err := h.book(c)
	if err != nil {
		return err
	}

	queued, err := h.submitter.Submit(ctx, kind, book.ID)
	if err != nil {
		return err
	}
	logger.FromContext(ctx).Info("book task requested", logger.Data{"kind": kind, "book_id": book.ID, "queued": queued})

	return errors.WithStack(c.NoContent(http.StatusAccepted))
}

func (h *handler) updateMetadata(c echo.Context) error {
	ctx := c.Request().Context()
	book, user, err := h.book(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := metadata.BookPatch{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	if _, err := h.bookService.UpdateMetadata(ctx, book, params.Update()); err != nil {
		return err
	}

	progress, err := h.readProgressService.RetrieveForBooks(ctx, user.ID, []int{book.ID})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewBookResponse(book, progress[book.ID])))
}

func (h *handler) markRead(c echo.Context) error {
	ctx := c.Request().Context()
	book, user, err := h.book(c)
	if err != nil {
		return err
	}

	if err := h.readProgressService.MarkRead(ctx, book, user.ID); err != nil {
		return err
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) markUnread(c echo.Context) error {
	ctx := c.Request().Context()
	book, user, err := h.book(c)
	if err != nil {
		return err
	}

	if err := h.readProgressService.MarkUnread(ctx, book.ID, user.ID); err != nil {
		return err
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func (h *handler) updateReadProgress(c echo.Context) error {
	ctx := c.Request().Context()
	book, user, err := h.book(c)
	if err != nil {
		return err
	}

	// Bind params.
	params := UpdateReadProgressPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	progress, err := h.readProgressService.UpdateProgress(ctx, book, user.ID, readprogress.UpdateProgressOptions{
		Page:      params.Page,
		Completed: params.Completed,
	})
	if err != nil {
		return err
	}

	return errors.WithStack(c.JSON(http.StatusOK, NewReadProgressResponse(progress)))
}
