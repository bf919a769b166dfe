// Package naming derives remote team names and slugs from document team names.
//
// Slugs must be stable across runs: a different slug for the same name makes
// the reconciler create a second team instead of updating the first. The
// slug rules come from github.com/gosimple/slug, pinned in go.mod.
package naming

import (
	"strings"

	"github.com/gosimple/slug"
)

// TeamName prefixes name with the trimmed prefix, separated by a space.
// An empty or whitespace-only prefix leaves name unchanged.
func TeamName(prefix, name string) string {
	p := strings.TrimSpace(prefix)
	if p == "" {
		return name
	}
	return p + " " + name
}

// separators are symbols the slug library would spell out as words but
// GitHub drops. Only "&" keeps its word ("and").
var separators = strings.NewReplacer("@", " ")

// Slug returns the URL path identifier for a team name: lowercase,
// transliterated to ASCII, with runs of other characters collapsed into a
// single hyphen and no leading or trailing separators. Underscores are kept.
func Slug(name string) string {
	return slug.MakeLang(separators.Replace(name), "en")
}

// TeamSlug is Slug(TeamName(prefix, name)).
func TeamSlug(prefix, name string) string {
	return Slug(TeamName(prefix, name))
}
