package platform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTeamNotFound is returned by GetTeam when the organization has no team
// with the requested slug. It is not a transport failure.
var ErrTeamNotFound = errors.New("team not found")

// Permission is a canonical repository permission level held by a team.
type Permission string

const (
	PermissionPull  Permission = "pull"
	PermissionPush  Permission = "push"
	PermissionAdmin Permission = "admin"
)

// rank orders permissions from weakest to strongest.
var rank = map[Permission]int{
	PermissionPull:  1,
	PermissionPush:  2,
	PermissionAdmin: 3,
}

// ParsePermission maps a document value to a canonical permission.
// "write" is accepted as an alias of push.
func ParsePermission(s string) (Permission, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pull":
		return PermissionPull, nil
	case "push", "write":
		return PermissionPush, nil
	case "admin":
		return PermissionAdmin, nil
	default:
		return "", fmt.Errorf("unknown permission %q: must be one of pull, push, admin", s)
	}
}

// Stronger reports whether p grants more access than other.
func (p Permission) Stronger(other Permission) bool {
	return rank[p] > rank[other]
}

// PermissionFromFlags translates the boolean permission flags GitHub reports
// for a team repository into a canonical level. Unknown or empty flag sets
// fall back to pull.
func PermissionFromFlags(flags map[string]bool) Permission {
	switch {
	case flags["admin"]:
		return PermissionAdmin
	case flags["push"], flags["maintain"]:
		return PermissionPush
	default:
		return PermissionPull
	}
}

// Grant is a (repository, permission) assignment held by a team.
type Grant struct {
	Repository string     `json:"repository"`
	Permission Permission `json:"permission"`
}

func (g Grant) String() string {
	return g.Repository + ":" + string(g.Permission)
}

// Team is the subset of a remote team the reconciler needs.
type Team struct {
	ID          int64
	Name        string
	Slug        string
	Description string
}

// TeamInput carries team metadata for create and update calls. A nil
// Description leaves the remote value untouched.
type TeamInput struct {
	Name        string
	Description *string
}

// File is a raw content payload as returned by the content store.
type File struct {
	Content  string
	Encoding string
}

// SplitFullName splits "owner/repo" into its parts.
func SplitFullName(fullName string) (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository name %q: want owner/repo", fullName)
	}
	return owner, repo, nil
}
