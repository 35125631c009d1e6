package binder

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Hello string `json:"hello" mod:"trim" validate:"max=9"`
	Omit  string `json:"-"`
}

type queryParams struct {
	Page   int      `query:"page" json:"page" validate:"min=0"`
	Size   int      `query:"size" json:"size" default:"20" validate:"min=1,max=500"`
	Sort   []string `query:"sort" json:"sort" validate:"dive,sortorder"`
	Status []string `query:"status" json:"status" validate:"dive,oneof=ONGOING ENDED"`
}

var (
	goodJSON             = `{"hello":" world "}`
	unknownFieldsErrJSON = `{"hello":"world","foo":"bar"}`
	typeErrJSON          = `{"hello":123}`
	validationErrJSON    = `{"hello":"0123456789"}`
)

func TestNew(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)
	assert.NotNil(t, b)

	t.Run("only allows application/json bodies", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationXML)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Unsupported Media Type")
	})

	t.Run("disallows unknown fields", func(tt *testing.T) {
		c := newContext(unknownFieldsErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `Unknown Parameter "foo"`)
	})

	t.Run("returns a good message for type errors", func(tt *testing.T) {
		c := newContext(typeErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"hello" should be of type string`)
	})

	t.Run("use mod tag to modify params", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		require.NoError(tt, err)
		assert.Equal(tt, "world", p.Hello)
	})

	t.Run("use validate tag to validate params", func(tt *testing.T) {
		c := newContext(validationErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err := b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "length must be less than or equal to 9")
	})

	t.Run("decodes repeated query params and applies defaults", func(tt *testing.T) {
		c := newQueryContext("/?page=2&sort=metadata.titleSort,desc&sort=name&status=ENDED")
		p := queryParams{}
		err := b.Bind(&p, c)
		require.NoError(tt, err)
		assert.Equal(tt, 2, p.Page)
		assert.Equal(tt, 20, p.Size)
		assert.Equal(tt, []string{"metadata.titleSort,desc", "name"}, p.Sort)
		assert.Equal(tt, []string{"ENDED"}, p.Status)
	})

	t.Run("rejects malformed sort orders", func(tt *testing.T) {
		c := newQueryContext("/?sort=name,sideways")
		p := queryParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "field,asc|desc")
	})

	t.Run("rejects unknown query params", func(tt *testing.T) {
		c := newQueryContext("/?bogus=1")
		p := queryParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), `Unknown Parameter "bogus"`)
	})

	t.Run("rejects query params of the wrong type", func(tt *testing.T) {
		c := newQueryContext("/?page=first")
		p := queryParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), `"page" should be of type int`)
	})
}

func newContext(payload, mime string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.POST, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, mime)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}

func newQueryContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.GET, target, nil)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}
