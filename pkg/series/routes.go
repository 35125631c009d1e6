package series

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/books"
	"github.com/tankobon/tankobon/pkg/config"
	"github.com/tankobon/tankobon/pkg/content"
	"github.com/tankobon/tankobon/pkg/readprogress"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, authMiddleware *auth.Middleware, submitter TaskSubmitter, contentService *content.Service) {
	h := &handler{
		seriesService:       NewService(db, cfg.DatabaseMaxRetries),
		bookService:         books.NewService(db, cfg.DatabaseMaxRetries),
		contentService:      contentService,
		readProgressService: readprogress.NewService(db, cfg.DatabaseMaxRetries),
		submitter:           submitter,
	}

	g := e.Group("/series", authMiddleware.Authenticate)
	g.GET("", h.list)
	g.GET("/latest", h.latest)
	g.GET("/new", h.newest)
	g.GET("/updated", h.updated)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/thumbnail", h.thumbnail)
	g.GET("/:id/books", h.listBooks)
	g.POST("/:id/analyze", h.analyze, authMiddleware.RequireAdmin)
	g.POST("/:id/metadata/refresh", h.refreshMetadata, authMiddleware.RequireAdmin)
	g.PATCH("/:id/metadata", h.updateMetadata, authMiddleware.RequireAdmin)
	g.POST("/:id/read-progress", h.markRead)
	g.DELETE("/:id/read-progress", h.markUnread)
}
