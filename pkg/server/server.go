package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/binder"
	"github.com/tankobon/tankobon/pkg/books"
	"github.com/tankobon/tankobon/pkg/config"
	"github.com/tankobon/tankobon/pkg/content"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/filesystem"
	"github.com/tankobon/tankobon/pkg/libraries"
	"github.com/tankobon/tankobon/pkg/scanner"
	"github.com/tankobon/tankobon/pkg/series"
	"github.com/tankobon/tankobon/pkg/tasks"
	"github.com/tankobon/tankobon/pkg/users"
	"github.com/tankobon/tankobon/pkg/worker"
	"github.com/uptrace/bun"
)

func New(cfg *config.Config, db *bun.DB, w *worker.Worker) (*http.Server, error) {
	e, err := newEcho(cfg, db, w)
	if err != nil {
		return nil, err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func newEcho(cfg *config.Config, db *bun.DB, w *worker.Worker) (*echo.Echo, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	authService := auth.NewService(db, cfg.JWTSecret)
	authMiddleware := auth.NewMiddleware(authService)
	auth.RegisterRoutes(e, authService, authMiddleware)

	contentService := content.NewService(db, cfg)

	libraries.RegisterRoutes(e, db, authMiddleware, scanner.New(db, w, contentService), contentService)
	series.RegisterRoutes(e, db, cfg, authMiddleware, w, contentService)
	books.RegisterRoutes(e, db, cfg, authMiddleware, w, contentService)
	tasks.RegisterRoutes(e, db, authMiddleware)
	filesystem.RegisterRoutes(e, db, authMiddleware)
	users.RegisterRoutes(e, db, authService, authMiddleware)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	return e, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
