package libraries

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/content"
	"github.com/tankobon/tankobon/pkg/scanner"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware, s *scanner.Scanner, contentService *content.Service) {
	h := &handler{
		libraryService: NewService(db),
		scanner:        s,
		thumbnails:     contentService,
	}

	g := e.Group("/libraries", authMiddleware.Authenticate)
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.POST("", h.create, authMiddleware.RequireAdmin)
	g.DELETE("/:id", h.delete, authMiddleware.RequireAdmin)
	g.POST("/:id/scan", h.scan, authMiddleware.RequireAdmin)
}
