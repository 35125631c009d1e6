// Package pagination holds the paging and sorting contract shared by every
// list endpoint: 0-based page numbers, a page size, and repeated
// "field,asc|desc" sort parameters.
package pagination

import (
	"fmt"
	"strings"

	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/uptrace/bun"
)

const (
	DefaultSize = 20
	MaxSize     = 500
)

// Pageable is meant to be embedded in list query structs so that it's bound
// and validated along with the endpoint's own filters.
type Pageable struct {
	Page    int      `query:"page" json:"page" validate:"min=0"`
	Size    int      `query:"size" json:"size" default:"20" validate:"min=1,max=500"`
	Sort    []string `query:"sort" json:"sort" validate:"dive,sortorder"`
	Unpaged bool     `query:"unpaged" json:"unpaged"`
}

type Order struct {
	Field string
	Desc  bool
}

// Orders parses the sort parameters. Direction defaults to ascending.
func (p Pageable) Orders() []Order {
	orders := make([]Order, 0, len(p.Sort))
	for _, s := range p.Sort {
		field, dir, _ := strings.Cut(s, ",")
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		orders = append(orders, Order{
			Field: field,
			Desc:  strings.EqualFold(strings.TrimSpace(dir), "desc"),
		})
	}
	return orders
}

func (p Pageable) size() int {
	if p.Size <= 0 {
		return DefaultSize
	}
	return p.Size
}

// Apply adds LIMIT/OFFSET to q unless the request is unpaged.
func (p Pageable) Apply(q *bun.SelectQuery) *bun.SelectQuery {
	if p.Unpaged {
		return q
	}
	return q.Limit(p.size()).Offset(p.Page * p.size())
}

// Field is a sortable column. Textual fields are compared case-insensitively.
type Field struct {
	Expr    string
	Textual bool
}

// Sorter translates public sort field names into ORDER BY clauses.
type Sorter struct {
	Fields   map[string]Field
	Defaults []Order
	// TieBreaker is appended after every sort so that rows with equal sort
	// keys keep a stable order across pages.
	TieBreaker string
}

// Apply adds the ORDER BY clauses for orders, or the defaults when orders is
// empty. Unknown fields are a validation error.
func (s Sorter) Apply(q *bun.SelectQuery, orders []Order) (*bun.SelectQuery, error) {
	if len(orders) == 0 {
		orders = s.Defaults
	}
	for _, o := range orders {
		f, ok := s.Fields[o.Field]
		if !ok {
			return nil, errcodes.ValidationError(fmt.Sprintf("%q is not a sortable field", o.Field))
		}
		q = q.OrderExpr(f.clause(o.Desc))
	}
	if s.TieBreaker != "" {
		q = q.OrderExpr(s.TieBreaker + " ASC")
	}
	return q, nil
}

func (f Field) clause(desc bool) string {
	expr := f.Expr
	if f.Textual {
		expr += " COLLATE NOCASE"
	}
	if desc {
		return expr + " DESC"
	}
	return expr + " ASC"
}

// Page is a slice of results plus enough information to fetch the rest.
type Page[T any] struct {
	Content          []T  `json:"content"`
	Number           int  `json:"number"`
	Size             int  `json:"size"`
	TotalElements    int  `json:"total_elements"`
	TotalPages       int  `json:"total_pages"`
	First            bool `json:"first"`
	Last             bool `json:"last"`
	NumberOfElements int  `json:"number_of_elements"`
	Empty            bool `json:"empty"`
}

func NewPage[T any](content []T, p Pageable, total int) Page[T] {
	if content == nil {
		content = []T{}
	}

	page := Page[T]{
		Content:          content,
		TotalElements:    total,
		NumberOfElements: len(content),
		Empty:            len(content) == 0,
	}

	if p.Unpaged {
		page.Size = len(content)
		page.TotalPages = 1
		page.First = true
		page.Last = true
		return page
	}

	size := p.size()
	page.Number = p.Page
	page.Size = size
	page.TotalPages = (total + size - 1) / size
	page.First = p.Page == 0
	page.Last = p.Page+1 >= page.TotalPages
	return page
}

// Map converts the content of a page, keeping its paging information.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	content := make([]U, len(p.Content))
	for i, item := range p.Content {
		content[i] = fn(item)
	}
	return Page[U]{
		Content:          content,
		Number:           p.Number,
		Size:             p.Size,
		TotalElements:    p.TotalElements,
		TotalPages:       p.TotalPages,
		First:            p.First,
		Last:             p.Last,
		NumberOfElements: p.NumberOfElements,
		Empty:            p.Empty,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns a search term into a LIKE pattern matching it
// anywhere. Use it with ESCAPE '\'.
func ContainsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(term)) + "%"
}
