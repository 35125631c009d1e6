package users

import (
	"github.com/labstack/echo/v4"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers all user routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, authService *auth.Service, authMiddleware *auth.Middleware) {
	h := &handler{
		userService: NewService(db, authService),
	}

	users := e.Group("/users", authMiddleware.Authenticate)

	users.GET("", h.list, authMiddleware.RequireAdmin)
	users.GET("/:id", h.retrieve, authMiddleware.RequireAdmin)
	users.POST("", h.create, authMiddleware.RequireAdmin)
	users.PATCH("/:id", h.update, authMiddleware.RequireAdmin)
	users.DELETE("/:id", h.deactivate, authMiddleware.RequireAdmin)

	// Users can reset their own password; resetting someone else's is
	// checked in the handler.
	users.POST("/:id/reset-password", h.resetPassword)
}
