package users

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/binder"
	"github.com/tankobon/tankobon/pkg/config"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/tankobon/tankobon/pkg/testutils"
	"github.com/uptrace/bun"
)

type testServer struct {
	e           *echo.Echo
	db          *bun.DB
	authService *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutils.NewDB(t)
	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	authService := auth.NewService(db, config.NewForTest().JWTSecret)
	RegisterRoutes(e, db, authService, auth.NewMiddleware(authService))

	return &testServer{e: e, db: db, authService: authService}
}

func (s *testServer) do(t *testing.T, user *models.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != nil {
		token, err := s.authService.GenerateToken(user)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func TestHandlers_AdminOnly(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	reader := testutils.CreateUser(t, s.db, "reader", false, nil)

	rec := s.do(t, reader, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, reader, http.MethodPost, "/users", `{"username":"other","password":"password123"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, nil, http.MethodGet, "/users", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandlers_CreateAndUpdate(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	admin := testutils.CreateUser(t, s.db, "admin", true, nil)
	comics := testutils.CreateLibrary(t, s.db, "Comics", "/comics")

	rec := s.do(t, admin, http.MethodPost, "/users", `{"username":" kid ","password":"password123","library_ids":[`+strconv.Itoa(comics.ID)+`]}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "kid", created.Username)
	assert.Equal(t, []int{comics.ID}, created.GetAccessibleLibraryIDs())

	rec = s.do(t, admin, http.MethodPost, "/users", `{"username":"KID","password":"password123"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, admin, http.MethodPost, "/users", `{"username":"x","password":"short"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	id := strconv.Itoa(created.ID)
	rec = s.do(t, admin, http.MethodPatch, "/users/"+id, `{"all_library_access":true,"is_admin":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var updated models.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.True(t, updated.IsAdmin)
	assert.True(t, updated.HasAllLibraryAccess())

	rec = s.do(t, admin, http.MethodPatch, "/users/"+strconv.Itoa(admin.ID), `{"is_admin":false}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, admin, http.MethodGet, "/users?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Users []*models.User `json:"users"`
		Total int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Users, 1)
	assert.Equal(t, 2, list.Total)
}

func TestHandlers_Deactivate(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	admin := testutils.CreateUser(t, s.db, "admin", true, nil)
	reader := testutils.CreateUser(t, s.db, "reader", false, nil)

	rec := s.do(t, admin, http.MethodDelete, "/users/"+strconv.Itoa(admin.ID), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, admin, http.MethodDelete, "/users/"+strconv.Itoa(reader.ID), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, reader, http.MethodGet, "/users/"+strconv.Itoa(reader.ID), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, admin, http.MethodDelete, "/users/9999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_ResetPassword(t *testing.T) {
	t.Parallel()

	s := newTestServer(t)
	admin := testutils.CreateUser(t, s.db, "admin", true, nil)
	user, err := NewService(s.db, s.authService).Create(t.Context(), auth.CreateUserOptions{Username: "reader", Password: "password123"})
	require.NoError(t, err)
	other := testutils.CreateUser(t, s.db, "other", false, nil)
	path := "/users/" + strconv.Itoa(user.ID) + "/reset-password"

	rec := s.do(t, user, http.MethodPost, path, `{"new_password":"newpassword"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, user, http.MethodPost, path, `{"current_password":"wrong","new_password":"newpassword"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, user, http.MethodPost, path, `{"current_password":"password123","new_password":"newpassword"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, other, http.MethodPost, path, `{"new_password":"hijacked1"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, admin, http.MethodPost, path, `{"new_password":"adminset1"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	_, err = s.authService.Authenticate(t.Context(), "reader", "adminset1")
	assert.NoError(t, err)
}
