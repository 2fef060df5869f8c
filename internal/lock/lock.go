// Package lock serializes writers per physical court. The booking service
// holds the locks for every court of a request around its conflict check and
// insert.
package lock

import (
	"context"
	"fmt"
	"sort"
)

// Locker acquires a set of keys. The returned release func must be called
// exactly once.
type Locker interface {
	Acquire(ctx context.Context, keys []string) (release func(), err error)
}

// CourtKey is the lock key for one physical court of a venue.
func CourtKey(venueID int64, courtName string) string {
	return fmt.Sprintf("booking:venue:%d:court:%s", venueID, courtName)
}

// CourtKeys returns the sorted, de-duplicated keys for courtNames. Lockers
// take keys in this order so overlapping requests cannot deadlock.
func CourtKeys(venueID int64, courtNames []string) []string {
	keys := make([]string, len(courtNames))
	for i, name := range courtNames {
		keys[i] = CourtKey(venueID, name)
	}
	return sortedUnique(keys)
}

func sortedUnique(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
