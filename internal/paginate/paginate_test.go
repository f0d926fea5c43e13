package paginate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webpulse/gapctl/internal/paginate"
)

// pageSource serves canned pages and records how many were requested.
type pageSource struct {
	pages   [][]int
	fetched int
}

func (s *pageSource) fetch(_ context.Context, cursor string) (paginate.Page[int], error) {
	idx := 0
	if cursor != "" {
		idx = int(cursor[0] - '0')
	}
	s.fetched++

	next := ""
	if idx+1 < len(s.pages) {
		next = string(rune('0' + idx + 1))
	}

	return paginate.Page[int]{Items: s.pages[idx], NextCursor: next}, nil
}

func TestCollect_DrainsAllPages(t *testing.T) {
	t.Parallel()

	src := &pageSource{pages: [][]int{{1, 2}, {3, 4}, {5}}}

	items, err := paginate.Collect(context.Background(), src.fetch, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
	assert.Equal(t, 3, src.fetched)
}

func TestCollect_StopsAtLimit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		limit       int
		wantItems   []int
		wantFetched int
	}{
		{
			name:        "limit inside first page",
			limit:       2,
			wantItems:   []int{1, 2},
			wantFetched: 1,
		},
		{
			name:        "limit at page boundary",
			limit:       3,
			wantItems:   []int{1, 2, 3},
			wantFetched: 1,
		},
		{
			name:        "limit inside second page",
			limit:       4,
			wantItems:   []int{1, 2, 3, 4},
			wantFetched: 2,
		},
		{
			name:        "limit beyond available items",
			limit:       100,
			wantItems:   []int{1, 2, 3, 4, 5, 6, 7},
			wantFetched: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := &pageSource{pages: [][]int{{1, 2, 3}, {4, 5, 6}, {7}}}

			items, err := paginate.Collect(context.Background(), src.fetch, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.wantItems, items)

			// Never fetch beyond what the limit requires.
			assert.Equal(t, tt.wantFetched, src.fetched)
		})
	}
}

func TestCollect_FailureDiscardsPartialResults(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("quota exceeded")
	calls := 0

	fetch := func(_ context.Context, cursor string) (paginate.Page[int], error) {
		calls++
		if cursor == "" {
			return paginate.Page[int]{Items: []int{1, 2}, NextCursor: "next"}, nil
		}
		return paginate.Page[int]{}, wantErr
	}

	items, err := paginate.Collect(context.Background(), fetch, 0)
	require.ErrorIs(t, err, wantErr)
	assert.Nil(t, items)
	assert.Equal(t, 2, calls)
}

func TestCollect_EmptyFirstPage(t *testing.T) {
	t.Parallel()

	fetch := func(context.Context, string) (paginate.Page[int], error) {
		return paginate.Page[int]{}, nil
	}

	items, err := paginate.Collect(context.Background(), fetch, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}
