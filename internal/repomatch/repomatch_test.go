package repomatch

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ziadkadry99/teamsync/internal/platform"
	"github.com/ziadkadry99/teamsync/internal/teamdata"
)

func rule(exact, match, ignore string, perm platform.Permission) teamdata.RepoRule {
	r := teamdata.RepoRule{ExactName: exact, Permission: perm}
	if match != "" {
		r.Match = regexp.MustCompile(match)
	}
	if ignore != "" {
		r.Ignore = regexp.MustCompile(ignore)
	}
	return r
}

func TestResolveIgnoreExcludesOwnTarget(t *testing.T) {
	catalog := []string{"org/a", "org/b", "org/c"}
	rules := []teamdata.RepoRule{
		rule("", "org/a|org/b", "", platform.PermissionPush),
		rule("org/b", "", "org/b", platform.PermissionAdmin),
	}
	got := Resolve(catalog, rules)
	want := []platform.Grant{
		{Repository: "org/a", Permission: platform.PermissionPush},
		{Repository: "org/b", Permission: platform.PermissionPush},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveOrderAndDuplicates(t *testing.T) {
	catalog := []string{"org/svc-b", "org/svc-a", "org/web"}
	rules := []teamdata.RepoRule{
		rule("", "^org/svc-", "", platform.PermissionPull),
		rule("org/svc-a", "", "", platform.PermissionAdmin),
		rule("", "web$", "", platform.PermissionPush),
	}
	got := Resolve(catalog, rules)
	want := []platform.Grant{
		{Repository: "org/svc-b", Permission: platform.PermissionPull},
		{Repository: "org/svc-a", Permission: platform.PermissionPull},
		{Repository: "org/svc-a", Permission: platform.PermissionAdmin},
		{Repository: "org/web", Permission: platform.PermissionPush},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Resolve mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveNoRules(t *testing.T) {
	if got := Resolve([]string{"org/a"}, nil); len(got) != 0 {
		t.Errorf("Resolve with no rules = %v, want empty", got)
	}
	if got := Resolve(nil, []teamdata.RepoRule{rule("org/a", "", "", platform.PermissionPush)}); len(got) != 0 {
		t.Errorf("Resolve with empty catalog = %v, want empty", got)
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name string
		rule teamdata.RepoRule
		repo string
		want bool
	}{
		{"exact", rule("org/a", "", "", ""), "org/a", true},
		{"exact case-insensitive", rule("Org/A", "", "", ""), "org/a", true},
		{"exact miss", rule("org/a", "", "", ""), "org/ab", false},
		{"pattern unanchored", rule("", "svc", "", ""), "org/my-svc-x", true},
		{"pattern miss", rule("", "^svc", "", ""), "org/svc", false},
		{"ignore wins over pattern", rule("", "^org/", "legacy", ""), "org/legacy-api", false},
		{"ignore wins over exact", rule("org/a", "", "a$", ""), "org/a", false},
		{"ignore without hit", rule("", "^org/x", "legacy", ""), "org/y", false},
		{"exact or pattern", rule("org/a", "^org/b", "", ""), "org/b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.rule, tt.repo); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.repo, got, tt.want)
			}
		})
	}
}

func TestConsolidateHighestPermissionWins(t *testing.T) {
	in := []platform.Grant{
		{Repository: "org/a", Permission: platform.PermissionPull},
		{Repository: "org/b", Permission: platform.PermissionAdmin},
		{Repository: "org/a", Permission: platform.PermissionAdmin},
		{Repository: "org/b", Permission: platform.PermissionPull},
		{Repository: "org/a", Permission: platform.PermissionPush},
		{Repository: "org/c", Permission: platform.PermissionPush},
		{Repository: "org/c", Permission: platform.PermissionPush},
	}
	want := []platform.Grant{
		{Repository: "org/a", Permission: platform.PermissionAdmin},
		{Repository: "org/b", Permission: platform.PermissionAdmin},
		{Repository: "org/c", Permission: platform.PermissionPush},
	}
	if diff := cmp.Diff(want, Consolidate(in)); diff != "" {
		t.Errorf("Consolidate mismatch (-want +got):\n%s", diff)
	}
}

func TestUnmatched(t *testing.T) {
	rules := []teamdata.RepoRule{
		rule("org/a", "", "", ""),
		rule("org/gone", "", "", ""),
		rule("", "x", "", ""),
	}
	got := Unmatched([]string{"org/A", "org/b"}, rules)
	if diff := cmp.Diff([]string{"org/gone"}, got); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}
}
