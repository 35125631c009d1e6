package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/testutils"
)

func runAuthenticate(t *testing.T, m *Middleware, header string) (*models.User, *httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/series", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var user *models.User
	err := m.Authenticate(func(c echo.Context) error {
		user, _ = c.Get("user").(*models.User)
		return nil
	})(c)
	return user, rec, err
}

func TestMiddlewareAuthenticate(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	svc := NewService(db, "test-secret")
	m := NewMiddleware(svc)

	user, err := svc.CreateUser(context.Background(), CreateUserOptions{Username: "reader", Password: "password123"})
	require.NoError(t, err)
	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	t.Run("bearer token", func(t *testing.T) {
		got, _, err := runAuthenticate(t, m, "Bearer "+token)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("basic auth", func(t *testing.T) {
		creds := base64.StdEncoding.EncodeToString([]byte("reader:password123"))
		got, _, err := runAuthenticate(t, m, "Basic "+creds)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, user.ID, got.ID)
	})

	t.Run("bad basic credentials", func(t *testing.T) {
		creds := base64.StdEncoding.EncodeToString([]byte("reader:nope"))
		got, rec, err := runAuthenticate(t, m, "Basic "+creds)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("invalid token", func(t *testing.T) {
		_, _, err := runAuthenticate(t, m, "Bearer garbage")
		require.Error(t, err)
		assert.True(t, errcodes.HasCode(err, errcodes.CodeUnauthorized))
	})

	t.Run("missing header", func(t *testing.T) {
		_, _, err := runAuthenticate(t, m, "")
		require.Error(t, err)
		assert.True(t, errcodes.HasCode(err, errcodes.CodeUnauthorized))
	})
}

func TestMiddlewareRequireAdmin(t *testing.T) {
	t.Parallel()

	m := NewMiddleware(nil)
	e := echo.New()

	for _, tt := range []struct {
		name    string
		user    *models.User
		wantErr string
	}{
		{"admin", &models.User{IsAdmin: true}, ""},
		{"reader", &models.User{}, errcodes.CodeForbidden},
		{"anonymous", nil, errcodes.CodeUnauthorized},
	} {
		t.Run(tt.name, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/series/1/analyze", nil), httptest.NewRecorder())
			if tt.user != nil {
				c.Set("user", tt.user)
			}

			called := false
			err := m.RequireAdmin(func(_ echo.Context) error {
				called = true
				return nil
			})(c)

			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.True(t, called)
				return
			}
			require.Error(t, err)
			assert.False(t, called)
			assert.True(t, errcodes.HasCode(err, tt.wantErr))
		})
	}
}
