package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxLimit caps how many rows one page can hold.
	MaxLimit = 500
)

// Params holds cursor pagination inputs from controllers. A zero Limit means
// the caller asked for everything.
type Params struct {
	Limit  int
	Cursor string
}

// Enabled reports whether the request asked for paging at all.
func (p Params) Enabled() bool {
	return p.Limit > 0 || strings.TrimSpace(p.Cursor) != ""
}

// Cursor marks the last row of the previous page: its sort timestamp and a
// key that is unique within the list.
type Cursor struct {
	SortedAt time.Time
	Key      string
}

// NormalizeLimit enforces the maximum and falls back to it when unset.
func NormalizeLimit(limit int) int {
	if limit <= 0 || limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// EncodeCursor builds an opaque cursor string.
func EncodeCursor(cursor Cursor) string {
	payload := fmt.Sprintf("%s|%s", cursor.SortedAt.UTC().Format(time.RFC3339Nano), cursor.Key)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a cursor string. An empty string yields nil.
func ParseCursor(value string) (*Cursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(value))
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	ts, key, found := strings.Cut(string(decoded), "|")
	if !found || key == "" {
		return nil, fmt.Errorf("invalid cursor format")
	}

	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	return &Cursor{SortedAt: t, Key: key}, nil
}

// Slice pages through items ordered by sortedAt descending, then key
// ascending. The page starts at the first item ordered after the cursor, so
// a cursor row that has since disappeared does not skip its tie group. It
// returns the page and the cursor for the next one, empty on the last page.
func Slice[T any](items []T, cursor *Cursor, limit int, sortedAt func(T) time.Time, key func(T) string) ([]T, string) {
	start := 0
	if cursor != nil {
		start = len(items)
		for i, item := range items {
			if after(sortedAt(item), key(item), *cursor) {
				start = i
				break
			}
		}
	}

	limit = NormalizeLimit(limit)
	end := start + limit
	if end >= len(items) {
		return items[start:], ""
	}
	last := items[end-1]
	return items[start:end], EncodeCursor(Cursor{SortedAt: sortedAt(last), Key: key(last)})
}

func after(at time.Time, key string, cursor Cursor) bool {
	if !at.Equal(cursor.SortedAt) {
		return at.Before(cursor.SortedAt)
	}
	return key > cursor.Key
}
