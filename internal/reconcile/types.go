package reconcile

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/ziadkadry99/teamsync/internal/platform"
)

// State is the position of a team in the reconciliation state machine.
type State string

const (
	StateStart       State = "start"
	StateTeamMissing State = "team_missing"
	StateTeamPresent State = "team_present"
	StateIgnored     State = "ignored"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Action names a single remote mutation.
type Action string

const (
	ActionCreateTeam   Action = "create_team"
	ActionUpdateTeam   Action = "update_team"
	ActionAddMember    Action = "add_member"
	ActionRemoveMember Action = "remove_member"
	ActionGrantRepo    Action = "grant_repo"
	ActionRevokeRepo   Action = "revoke_repo"
)

// Mutation is one change applied (or, in dry-run mode, planned) for a team.
type Mutation struct {
	Org        string
	Team       string
	Slug       string
	Action     Action
	Target     string
	Permission platform.Permission
	DryRun     bool
}

func (m Mutation) String() string {
	s := string(m.Action) + " " + m.Slug
	if m.Target != "" {
		s += " " + m.Target
	}
	if m.Permission != "" {
		s += " (" + string(m.Permission) + ")"
	}
	return s
}

// TeamError is a failure confined to one team.
type TeamError struct {
	Team string
	Slug string
	Op   string
	Err  error
}

func (e *TeamError) Error() string {
	return fmt.Sprintf("team %q (%s): %s: %v", e.Team, e.Slug, e.Op, e.Err)
}

func (e *TeamError) Unwrap() error { return e.Err }

// TeamResult is the outcome of reconciling one team.
type TeamResult struct {
	Team      string
	Slug      string
	State     State
	Mutations []Mutation
	Err       error
}

// Report collects the per-team results of a run in processing order.
type Report struct {
	Results []TeamResult
}

// Failed returns the results of teams that ended in StateFailed.
func (r *Report) Failed() []TeamResult {
	var out []TeamResult
	for _, res := range r.Results {
		if res.State == StateFailed {
			out = append(out, res)
		}
	}
	return out
}

// Mutations returns the number of mutations applied across all teams.
func (r *Report) Mutations() int {
	n := 0
	for _, res := range r.Results {
		n += len(res.Mutations)
	}
	return n
}

// Count returns how many teams ended in state s.
func (r *Report) Count(s State) int {
	n := 0
	for _, res := range r.Results {
		if res.State == s {
			n++
		}
	}
	return n
}

// Err aggregates every team failure, or returns nil when the run succeeded.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, res := range r.Failed() {
		result = multierror.Append(result, res.Err)
	}
	return result.ErrorOrNil()
}
