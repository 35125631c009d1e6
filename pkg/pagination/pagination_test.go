package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/testutils"
)

func TestPageable_Orders(t *testing.T) {
	t.Parallel()

	p := Pageable{Sort: []string{"metadata.titleSort", "createdDate,DESC", "name,asc", ""}}
	assert.Equal(t, []Order{
		{Field: "metadata.titleSort"},
		{Field: "createdDate", Desc: true},
		{Field: "name"},
	}, p.Orders())
}

func TestNewPage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		content  []int
		pageable Pageable
		total    int
		want     Page[int]
	}{
		{
			name:     "first page",
			content:  []int{1, 2},
			pageable: Pageable{Page: 0, Size: 2},
			total:    5,
			want:     Page[int]{Content: []int{1, 2}, Number: 0, Size: 2, TotalElements: 5, TotalPages: 3, First: true, NumberOfElements: 2},
		},
		{
			name:     "last page",
			content:  []int{5},
			pageable: Pageable{Page: 2, Size: 2},
			total:    5,
			want:     Page[int]{Content: []int{5}, Number: 2, Size: 2, TotalElements: 5, TotalPages: 3, Last: true, NumberOfElements: 1},
		},
		{
			name:     "past the end",
			content:  nil,
			pageable: Pageable{Page: 7, Size: 20},
			total:    5,
			want:     Page[int]{Content: []int{}, Number: 7, Size: 20, TotalElements: 5, TotalPages: 1, Last: true, Empty: true},
		},
		{
			name:     "unpaged",
			content:  []int{1, 2, 3},
			pageable: Pageable{Unpaged: true, Size: 20},
			total:    3,
			want:     Page[int]{Content: []int{1, 2, 3}, Size: 3, TotalElements: 3, TotalPages: 1, First: true, Last: true, NumberOfElements: 3},
		},
		{
			name:     "no results",
			content:  []int{},
			pageable: Pageable{Size: 20},
			total:    0,
			want:     Page[int]{Content: []int{}, Size: 20, First: true, Last: true, Empty: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewPage(tt.content, tt.pageable, tt.total))
		})
	}
}

func TestMap(t *testing.T) {
	t.Parallel()

	p := NewPage([]int{1, 2}, Pageable{Size: 2}, 4)
	mapped := Map(p, func(i int) string { return string(rune('a' + i)) })
	assert.Equal(t, []string{"b", "c"}, mapped.Content)
	assert.Equal(t, 2, mapped.TotalPages)
	assert.True(t, mapped.First)
}

func TestSorter_Apply(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	sorter := Sorter{
		Fields: map[string]Field{
			"name":        {Expr: "s.name", Textual: true},
			"createdDate": {Expr: "s.created_at"},
		},
		Defaults:   []Order{{Field: "name"}},
		TieBreaker: "s.id",
	}

	q, err := sorter.Apply(db.NewSelect().TableExpr("series AS s"), nil)
	require.NoError(t, err)
	assert.Contains(t, q.String(), "ORDER BY s.name COLLATE NOCASE ASC, s.id ASC")

	q, err = sorter.Apply(db.NewSelect().TableExpr("series AS s"), []Order{{Field: "createdDate", Desc: true}})
	require.NoError(t, err)
	assert.Contains(t, q.String(), "ORDER BY s.created_at DESC, s.id ASC")

	_, err = sorter.Apply(db.NewSelect().TableExpr("series AS s"), []Order{{Field: "password"}})
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeValidation))
}

func TestContainsPattern(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "%alpha%", ContainsPattern("  alpha "))
	assert.Equal(t, `%100\% \_done\\%`, ContainsPattern(`100% _done\`))
}
