package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scanCall struct {
	cursor uint64
	match  string
	count  int64
}

// scriptedScanner replays canned SCAN replies in order
type scriptedScanner struct {
	pages []scanReply
	calls []scanCall
}

type scanReply struct {
	keys []string
	next uint64
	err  error
}

func (s *scriptedScanner) Scan(_ context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	s.calls = append(s.calls, scanCall{cursor, match, count})
	if len(s.pages) == 0 {
		return nil, 0, nil
	}
	reply := s.pages[0]
	s.pages = s.pages[1:]
	return reply.keys, reply.next, reply.err
}

// sequentialScanner serves n generated keys perPage at a time without
// holding them all in a script
type sequentialScanner struct {
	total, perPage int
	calls          int
}

func (s *sequentialScanner) Scan(_ context.Context, cursor uint64, _ string, _ int64) ([]string, uint64, error) {
	s.calls++
	start := int(cursor)
	end := min(start+s.perPage, s.total)
	keys := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		keys = append(keys, "k"+strconv.Itoa(i))
	}
	if end == s.total {
		return keys, 0, nil
	}
	return keys, uint64(end), nil
}

func TestPagerThreadsCursor(t *testing.T) {
	results := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		results = append(results, fmt.Sprintf("key%d", i))
	}

	s := &scriptedScanner{pages: []scanReply{
		{keys: results[:50], next: 50},
		{keys: results[50:], next: 0},
	}}
	p := &pager{scanner: s, pageSize: 100}

	keys, err := p.all(context.Background(), "word_*")
	require.NoError(t, err)

	assert.Len(t, keys, 100)
	require.Len(t, s.calls, 2)
	assert.Equal(t, scanCall{0, "word_*", 100}, s.calls[0])
	assert.Equal(t, scanCall{50, "word_*", 100}, s.calls[1])
}

func TestPagerDeduplicates(t *testing.T) {
	s := &scriptedScanner{pages: []scanReply{
		{keys: []string{"a", "b"}, next: 7},
		{keys: []string{"b", "c"}, next: 3},
		{keys: []string{"a"}, next: 0},
	}}
	p := &pager{scanner: s, pageSize: 2}

	keys, err := p.all(context.Background(), "*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, keys)
}

func TestPagerEmptyPagesKeepGoing(t *testing.T) {
	s := &scriptedScanner{pages: []scanReply{
		{keys: nil, next: 12},
		{keys: []string{}, next: 4},
		{keys: []string{"x"}, next: 0},
	}}
	p := &pager{scanner: s, pageSize: 10}

	keys, err := p.all(context.Background(), "*")
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, keys)
	assert.Len(t, s.calls, 3)
}

func TestPagerReturnsScanError(t *testing.T) {
	boom := errors.New("boom")
	s := &scriptedScanner{pages: []scanReply{
		{keys: []string{"a"}, next: 5},
		{err: boom},
	}}
	p := &pager{scanner: s, pageSize: 10}

	_, err := p.all(context.Background(), "*")
	assert.ErrorIs(t, err, boom)
}

func TestPagerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &scriptedScanner{}
	p := &pager{scanner: s, pageSize: 10}

	_, err := p.all(ctx, "*")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, s.calls)
}

func TestPagerHandlesManyPages(t *testing.T) {
	// 100k keys one per page: a recursive driver would need 100k frames
	s := &sequentialScanner{total: 100000, perPage: 1}
	pages := 0
	p := &pager{scanner: s, pageSize: 1, onPage: func(context.Context, int) { pages++ }}

	keys, err := p.all(context.Background(), "*")
	require.NoError(t, err)
	assert.Len(t, keys, 100000)
	assert.Equal(t, 100000, s.calls)
	assert.Equal(t, 100000, pages)
}
