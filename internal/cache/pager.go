package cache

import (
	"context"
	"fmt"
)

// scanner is the cursor-based enumeration primitive the pager drives
type scanner interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)
}

// pager turns SCAN into a complete key listing.
//
// Pages are fetched in a plain loop, one round trip per iteration, so the
// call stack stays flat however many pages a keyspace takes.
type pager struct {
	scanner  scanner
	pageSize int64
	onPage   func(ctx context.Context, keys int)
}

// all returns every key matching match. Keys repeated by SCAN across pages
// are reported once; the order is whatever the backend produced.
func (p *pager) all(ctx context.Context, match string) ([]string, error) {
	seen := make(map[string]struct{})
	keys := make([]string, 0)

	var cursor uint64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, next, err := p.scanner.Scan(ctx, cursor, match, p.pageSize)
		if err != nil {
			return nil, fmt.Errorf("scan %q at cursor %d: %w", match, cursor, err)
		}
		if p.onPage != nil {
			p.onPage(ctx, len(page))
		}

		for _, key := range page {
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}

		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}
