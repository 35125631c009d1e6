package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tankobon/tankobon/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func TestSeriesFields_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		series      models.Series
		patch       SeriesPatch
		wantColumns []string
		want        models.SeriesMetadata
	}{
		{
			name:        "unlocked field is written",
			series:      models.Series{Title: "Alpha", TitleSort: "Alpha", Status: "ONGOING"},
			patch:       SeriesPatch{Title: ptr("Beta")},
			wantColumns: []string{"title"},
			want:        models.SeriesMetadata{Title: "Beta", TitleSort: "Alpha", Status: "ONGOING"},
		},
		{
			name:        "locked field is skipped",
			series:      models.Series{Title: "Alpha", TitleLock: true, TitleSort: "Alpha", Status: "ONGOING"},
			patch:       SeriesPatch{Title: ptr("Beta"), Status: ptr("ENDED")},
			wantColumns: []string{"status"},
			want:        models.SeriesMetadata{Title: "Alpha", TitleLock: true, TitleSort: "Alpha", Status: "ENDED"},
		},
		{
			name:        "value and lock together",
			series:      models.Series{Title: "Alpha", TitleSort: "Alpha", Status: "ONGOING"},
			patch:       SeriesPatch{Status: ptr("HIATUS"), StatusLock: ptr(true)},
			wantColumns: []string{"status", "status_lock"},
			want:        models.SeriesMetadata{Title: "Alpha", TitleSort: "Alpha", Status: "HIATUS", StatusLock: true},
		},
		{
			name:        "unlocking does not let the value through in the same update",
			series:      models.Series{Title: "Alpha", TitleSort: "Alpha", TitleSortLock: true, Status: "ONGOING"},
			patch:       SeriesPatch{TitleSort: ptr("Zeta"), TitleSortLock: ptr(false)},
			wantColumns: []string{"title_sort_lock"},
			want:        models.SeriesMetadata{Title: "Alpha", TitleSort: "Alpha", Status: "ONGOING"},
		},
		{
			name:        "unchanged value is not a change",
			series:      models.Series{Title: "Alpha", TitleSort: "Alpha", Status: "ONGOING"},
			patch:       SeriesPatch{Title: ptr("Alpha"), TitleLock: ptr(false)},
			wantColumns: []string{},
			want:        models.SeriesMetadata{Title: "Alpha", TitleSort: "Alpha", Status: "ONGOING"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			series := tt.series
			columns := SeriesFields.Apply(&series, tt.patch.Update())
			assert.Equal(t, tt.wantColumns, columns)
			assert.Equal(t, tt.want, series.Metadata())
		})
	}
}

func TestLockedFieldsNeverChange(t *testing.T) {
	t.Parallel()

	values := []any{"", "x", "Something Else", 0.0, 12.5, 42, nil}

	for _, field := range BookFields {
		for _, v := range values {
			book := models.Book{Title: "T", Number: "1", NumberSort: 1}
			*field.lock(&book) = true
			before := book

			u := Update{}
			u.Set(field.Name, v)
			columns := BookFields.Apply(&book, u)

			assert.Empty(t, columns, "field %s value %v", field.Name, v)
			assert.Equal(t, before, book)
		}
	}

	for _, field := range SeriesFields {
		for _, v := range values {
			series := models.Series{Title: "T", TitleSort: "T", Status: "ONGOING"}
			*field.lock(&series) = true
			before := series

			u := SeriesCandidates("The Other")
			u.Set(field.Name, v)
			SeriesFields.Apply(&series, u)

			f, _ := SeriesFields.Field(field.Name)
			assert.True(t, f.Locked(&series))
			switch field.Name {
			case FieldTitle:
				assert.Equal(t, before.Title, series.Title)
			case FieldTitleSort:
				assert.Equal(t, before.TitleSort, series.TitleSort)
			case FieldStatus:
				assert.Equal(t, before.Status, series.Status)
			}
		}
	}
}

func TestBookFields_WrongTypeIgnored(t *testing.T) {
	t.Parallel()

	book := models.Book{Number: "1", NumberSort: 1}
	u := Update{}
	u.Set(FieldNumberSort, "2")
	u.Set(FieldNumber, 2.0)
	assert.Empty(t, BookFields.Apply(&book, u))
}
