package seen

import (
	"strings"
)

// DiffStats captures stats for filtering records already stored upstream.
type DiffStats struct {
	TotalNew   int
	TotalSeen  int
	InvalidNew int
	Duplicates int
	Unseen     int
}

// Normalize lower-cases and collapses whitespace in a key.
func Normalize(value string) string {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(value)))
	return strings.Join(fields, " ")
}

// Set builds a lookup of normalized keys. Empty keys are dropped.
func Set(keys []string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = Normalize(key)
		if key == "" {
			continue
		}
		out[key] = struct{}{}
	}
	return out
}

// Diff returns the items whose key is not among seenKeys, keeping the first
// of any items that share a key. Items with an empty key are dropped.
func Diff[T any](items []T, seenKeys []string, key func(T) string) ([]T, DiffStats) {
	stats := DiffStats{
		TotalNew:  len(items),
		TotalSeen: len(seenKeys),
	}
	known := Set(seenKeys)

	batch := make(map[string]struct{}, len(items))
	unseen := make([]T, 0, len(items))
	for _, item := range items {
		k := Normalize(key(item))
		if k == "" {
			stats.InvalidNew++
			continue
		}
		if _, exists := batch[k]; exists {
			stats.Duplicates++
			continue
		}
		batch[k] = struct{}{}
		if _, exists := known[k]; exists {
			continue
		}
		unseen = append(unseen, item)
	}

	stats.Unseen = len(unseen)
	return unseen, stats
}

// Unique drops items whose key repeats an earlier item and items with an
// empty key. Keys are compared exactly, apart from surrounding space, since
// URL paths and listing ids are case-sensitive.
func Unique[T any](items []T, key func(T) string) []T {
	batch := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, item := range items {
		k := strings.TrimSpace(key(item))
		if k == "" {
			continue
		}
		if _, exists := batch[k]; exists {
			continue
		}
		batch[k] = struct{}{}
		out = append(out, item)
	}
	return out
}
