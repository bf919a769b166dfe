// Package repomatch turns a team's repository rules into concrete grants by
// evaluating them against the organization's repository catalog.
package repomatch

import (
	"strings"

	"github.com/ziadkadry99/teamsync/internal/platform"
	"github.com/ziadkadry99/teamsync/internal/teamdata"
)

// Matches reports whether rule selects the repository fullName. The ignore
// pattern wins over both the exact name and the match pattern.
func Matches(rule teamdata.RepoRule, fullName string) bool {
	hit := (rule.ExactName != "" && strings.EqualFold(rule.ExactName, fullName)) ||
		(rule.Match != nil && rule.Match.MatchString(fullName))
	if !hit {
		return false
	}
	return rule.Ignore == nil || !rule.Ignore.MatchString(fullName)
}

// Resolve evaluates every rule against every catalog entry. Output is in
// catalog order, then rule order; a repository matched by several rules
// appears once per matching rule.
func Resolve(catalog []string, rules []teamdata.RepoRule) []platform.Grant {
	var grants []platform.Grant
	for _, repo := range catalog {
		for _, rule := range rules {
			if Matches(rule, repo) {
				grants = append(grants, platform.Grant{Repository: repo, Permission: rule.Permission})
			}
		}
	}
	return grants
}

// Consolidate keeps one grant per repository, the one with the strongest
// permission, in first-seen order. A team holds a single permission per
// repository on the remote side.
func Consolidate(grants []platform.Grant) []platform.Grant {
	pos := make(map[string]int, len(grants))
	out := make([]platform.Grant, 0, len(grants))
	for _, g := range grants {
		key := strings.ToLower(g.Repository)
		if i, ok := pos[key]; ok {
			if g.Permission.Stronger(out[i].Permission) {
				out[i].Permission = g.Permission
			}
			continue
		}
		pos[key] = len(out)
		out = append(out, g)
	}
	return out
}

// Unmatched returns the exact names of rules that matched nothing in the
// catalog, usually a typo or a repository that no longer exists.
func Unmatched(catalog []string, rules []teamdata.RepoRule) []string {
	known := make(map[string]bool, len(catalog))
	for _, repo := range catalog {
		known[strings.ToLower(repo)] = true
	}
	var missing []string
	for _, rule := range rules {
		if rule.ExactName != "" && !known[strings.ToLower(rule.ExactName)] {
			missing = append(missing, rule.ExactName)
		}
	}
	return missing
}
