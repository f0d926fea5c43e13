// Package paginate implements the shared cursor-walk aggregation used by
// every service client's convenience operations.
package paginate

import (
	"context"
	"fmt"
)

// Page holds one page of qualifying items plus the continuation cursor.
// An empty cursor signals the end of results.
type Page[T any] struct {
	Items      []T
	NextCursor string
}

// FetchFunc fetches one page starting at cursor. The first call receives
// an empty cursor. Implementations may filter items; only qualifying
// items should be returned, since Collect counts them against the limit.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// Collect walks pages sequentially, accumulating items until the cursor
// is exhausted or limit items have been gathered. limit <= 0 means a
// full drain. No page beyond what the limit requires is ever fetched.
// A failure on any page discards everything accumulated so far: a
// truncated aggregate would be misleading.
func Collect[T any](ctx context.Context, fetch FetchFunc[T], limit int) ([]T, error) {
	var (
		out    []T
		cursor string
		pages  int
	)

	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetching page %d: %w", pages, err)
		}
		pages++

		out = append(out, page.Items...)

		if limit > 0 && len(out) >= limit {
			return out[:limit], nil
		}

		if page.NextCursor == "" {
			return out, nil
		}
		cursor = page.NextCursor
	}
}
