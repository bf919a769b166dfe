package teamdata

import (
	"regexp"
	"sort"

	"github.com/ziadkadry99/teamsync/internal/platform"
)

// DefaultPermission is used for repository rules without a permission.
const DefaultPermission = platform.PermissionPush

// Member is a team member as declared in the document.
type Member struct {
	Login string `json:"github"`
	Name  string `json:"name,omitempty"`
}

// RepoRule selects repositories from the organization catalog.
// At least one of ExactName and Match is set.
type RepoRule struct {
	ExactName  string
	Match      *regexp.Regexp
	Ignore     *regexp.Regexp
	Permission platform.Permission
}

// TeamSpec is the desired state of one team.
type TeamSpec struct {
	Members     []Member
	Description *string
	IgnoreSync  bool
	Repos       []RepoRule
	// ManageRepos is false when the document has no repos key for this
	// team; its repository grants are then left alone.
	ManageRepos bool
}

// Logins returns the member logins in document order.
func (t TeamSpec) Logins() []string {
	out := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		out = append(out, m.Login)
	}
	return out
}

// TeamSet maps team names to their desired state.
type TeamSet map[string]TeamSpec

// Names returns the team names in lexical order.
func (s TeamSet) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
