package tasks

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes exposes task records to administrators.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authMiddleware *auth.Middleware) {
	h := &handler{
		taskService: NewService(db),
	}

	g := e.Group("/tasks", authMiddleware.Authenticate, authMiddleware.RequireAdmin)
	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
}
