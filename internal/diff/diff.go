// Package diff computes set differences between existing and desired state.
package diff

import (
	"strings"

	"github.com/ziadkadry99/teamsync/internal/platform"
)

// Result partitions existing and desired items. Each slice keeps the order
// of the input it was drawn from and holds at most one item per key.
type Result[T any] struct {
	ToAdd    []T
	ToRemove []T
	Keep     []T
}

// Empty reports whether nothing needs to change.
func (r Result[T]) Empty() bool {
	return len(r.ToAdd) == 0 && len(r.ToRemove) == 0
}

// Compute returns what must be removed from existing and added to it so that
// it equals desired, comparing items by key.
func Compute[T any](existing, desired []T, key func(T) string) Result[T] {
	want := make(map[string]bool, len(desired))
	for _, d := range desired {
		want[key(d)] = true
	}
	have := make(map[string]bool, len(existing))

	var r Result[T]
	for _, e := range existing {
		k := key(e)
		if have[k] {
			continue
		}
		have[k] = true
		if want[k] {
			r.Keep = append(r.Keep, e)
		} else {
			r.ToRemove = append(r.ToRemove, e)
		}
	}
	added := make(map[string]bool)
	for _, d := range desired {
		k := key(d)
		if have[k] || added[k] {
			continue
		}
		added[k] = true
		r.ToAdd = append(r.ToAdd, d)
	}
	return r
}

// Members diffs logins. GitHub logins are case-insensitive.
func Members(existing, desired []string) Result[string] {
	return Compute(existing, desired, strings.ToLower)
}

// Grants diffs repository grants by repository and permission, so a
// permission change shows up as one removal and one addition.
func Grants(existing, desired []platform.Grant) Result[platform.Grant] {
	return Compute(existing, desired, func(g platform.Grant) string {
		return strings.ToLower(g.Repository) + "|" + string(g.Permission)
	})
}
