// Package metadata owns every write to lockable metadata fields. Each field is
// declared once in a table together with its lock flag, and every mutating
// path (user patches, automated refreshes) goes through Table.Apply so a
// locked field can't be overwritten by any of them.
package metadata

import (
	"github.com/tankobon/tankobon/pkg/models"
)

// Field describes one lockable field of M.
type Field[M any] struct {
	Name       string
	Column     string
	LockColumn string

	lock   func(m *M) *bool
	assign func(m *M, v any) bool
}

func (f Field[M]) Locked(m *M) bool {
	return *f.lock(m)
}

func stringField[M any](name, column string, value func(*M) *string, lock func(*M) *bool) Field[M] {
	return Field[M]{
		Name:       name,
		Column:     column,
		LockColumn: column + "_lock",
		lock:       lock,
		assign: func(m *M, v any) bool {
			s, ok := v.(string)
			if !ok || *value(m) == s {
				return false
			}
			*value(m) = s
			return true
		},
	}
}

func floatField[M any](name, column string, value func(*M) *float64, lock func(*M) *bool) Field[M] {
	return Field[M]{
		Name:       name,
		Column:     column,
		LockColumn: column + "_lock",
		lock:       lock,
		assign: func(m *M, v any) bool {
			f, ok := v.(float64)
			if !ok || *value(m) == f {
				return false
			}
			*value(m) = f
			return true
		},
	}
}

// Update is a set of candidate values and lock changes, keyed by field name.
// Missing keys leave the field alone.
type Update struct {
	Values map[string]any
	Locks  map[string]bool
}

func (u *Update) Set(field string, v any) {
	if u.Values == nil {
		u.Values = map[string]any{}
	}
	u.Values[field] = v
}

// SetIfAbsent records v unless an earlier source already supplied the field.
func (u *Update) SetIfAbsent(field string, v any) {
	if _, ok := u.Values[field]; ok {
		return
	}
	u.Set(field, v)
}

func (u *Update) Lock(field string, locked bool) {
	if u.Locks == nil {
		u.Locks = map[string]bool{}
	}
	u.Locks[field] = locked
}

func (u Update) Empty() bool {
	return len(u.Values) == 0 && len(u.Locks) == 0
}

type Table[M any] []Field[M]

// Apply writes u into m and returns the columns that changed. A value is
// skipped when its field was locked before the update, so a request that both
// unlocks and sets a field only unlocks it. Lock changes are always applied.
func (t Table[M]) Apply(m *M, u Update) []string {
	wasLocked := make([]bool, len(t))
	for i, f := range t {
		wasLocked[i] = f.Locked(m)
	}

	columns := []string{}
	for i, f := range t {
		if v, ok := u.Values[f.Name]; ok && !wasLocked[i] {
			if f.assign(m, v) {
				columns = append(columns, f.Column)
			}
		}
		if locked, ok := u.Locks[f.Name]; ok && *f.lock(m) != locked {
			*f.lock(m) = locked
			columns = append(columns, f.LockColumn)
		}
	}
	return columns
}

func (t Table[M]) Field(name string) (Field[M], bool) {
	for _, f := range t {
		if f.Name == name {
			return f, true
		}
	}
	return Field[M]{}, false
}

const (
	FieldTitle      = "title"
	FieldTitleSort  = "title_sort"
	FieldStatus     = "status"
	FieldNumber     = "number"
	FieldNumberSort = "number_sort"
)

var SeriesFields = Table[models.Series]{
	stringField(FieldTitle, "title",
		func(s *models.Series) *string { return &s.Title },
		func(s *models.Series) *bool { return &s.TitleLock }),
	stringField(FieldTitleSort, "title_sort",
		func(s *models.Series) *string { return &s.TitleSort },
		func(s *models.Series) *bool { return &s.TitleSortLock }),
	stringField(FieldStatus, "status",
		func(s *models.Series) *string { return &s.Status },
		func(s *models.Series) *bool { return &s.StatusLock }),
}

var BookFields = Table[models.Book]{
	stringField(FieldTitle, "title",
		func(b *models.Book) *string { return &b.Title },
		func(b *models.Book) *bool { return &b.TitleLock }),
	stringField(FieldNumber, "number",
		func(b *models.Book) *string { return &b.Number },
		func(b *models.Book) *bool { return &b.NumberLock }),
	floatField(FieldNumberSort, "number_sort",
		func(b *models.Book) *float64 { return &b.NumberSort },
		func(b *models.Book) *bool { return &b.NumberSortLock }),
}
