package books

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/config"
	"github.com/tankobon/tankobon/pkg/content"
	"github.com/tankobon/tankobon/pkg/readprogress"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB, cfg *config.Config, authMiddleware *auth.Middleware, submitter TaskSubmitter, contentService *content.Service) {
	h := &handler{
		bookService:         NewService(db, cfg.DatabaseMaxRetries),
		contentService:      contentService,
		readProgressService: readprogress.NewService(db, cfg.DatabaseMaxRetries),
		submitter:           submitter,
	}

	g := e.Group("/books", authMiddleware.Authenticate)
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/thumbnail", h.thumbnail)
	g.GET("/:id/file", h.file)
	g.GET("/:id/pages", h.pages)
	g.GET("/:id/pages/:n", h.page)
	g.GET("/:id/pages/:n/thumbnail", h.pageThumbnail)
	g.POST("/:id/analyze", h.analyze, authMiddleware.RequireAdmin)
	g.POST("/:id/metadata/refresh", h.refreshMetadata, authMiddleware.RequireAdmin)
	g.PATCH("/:id/metadata", h.updateMetadata, authMiddleware.RequireAdmin)
	g.POST("/:id/read-progress", h.markRead)
	g.PATCH("/:id/read-progress", h.updateReadProgress)
	g.DELETE("/:id/read-progress", h.markUnread)
}
