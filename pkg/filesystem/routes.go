package filesystem

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/uptrace/bun"
)

func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		filesystemService: NewService(db),
	}

	e.GET("/filesystem/browse", h.browse, authMiddleware.Authenticate, authMiddleware.RequireAdmin)
}
