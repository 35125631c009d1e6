package auth

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/logger"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
)

// Middleware provides authentication middleware.
type Middleware struct {
	authService *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(authService *Service) *Middleware {
	return &Middleware{
		authService: authService,
	}
}

// Authenticate accepts either a bearer JWT or HTTP Basic credentials. On
// success the user is stored on the echo context under "user" and added to
// the request logger.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		header := c.Request().Header.Get(echo.HeaderAuthorization)

		var user *models.User
		switch {
		case strings.HasPrefix(header, "Bearer "):
			claims, err := m.authService.ValidateToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				return errcodes.Unauthorized("Invalid or expired token")
			}
			user, err = m.authService.GetUserByID(ctx, claims.UserID)
			if err != nil {
				return errcodes.Unauthorized("User not found or inactive")
			}
		case strings.HasPrefix(header, "Basic "):
			username, password, ok := parseBasicAuth(header)
			if !ok {
				return respondBasicAuthRequired(c)
			}
			var err error
			user, err = m.authService.Authenticate(ctx, username, password)
			if err != nil {
				return respondBasicAuthRequired(c)
			}
		default:
			return errcodes.Unauthorized("Authentication required")
		}

		c.Set("user_id", user.ID)
		c.Set("user", user)

		log := logger.FromContext(ctx).Data(logger.Data{"user_id": user.ID})
		c.SetRequest(c.Request().WithContext(log.WithContext(ctx)))

		return next(c)
	}
}

// RequireAdmin rejects non-admin users. Must be used after Authenticate.
func (m *Middleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}
		if !user.IsAdmin {
			return errcodes.Forbidden("perform this action")
		}
		return next(c)
	}
}

func parseBasicAuth(header string) (string, string, bool) {
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

func respondBasicAuthRequired(c echo.Context) error {
	c.Response().Header().Set("WWW-Authenticate", `Basic realm="tankobon"`)
	return c.String(http.StatusUnauthorized, "Unauthorized")
}
