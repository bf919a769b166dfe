// Package platform defines the collaborator interfaces the reconciler uses to
// read and mutate organization state, along with the result types they return.
package platform

import "context"

// StateReader fetches the current state of an organization.
type StateReader interface {
	// AuthenticatedUser returns the login of the token owner.
	AuthenticatedUser(ctx context.Context) (string, error)
	// GetTeam returns ErrTeamNotFound when the slug does not exist.
	GetTeam(ctx context.Context, org, slug string) (*Team, error)
	ListMembers(ctx context.Context, org, slug string) ([]string, error)
	ListRepoGrants(ctx context.Context, org, slug string) ([]Grant, error)
	// ListRepositories returns the full names of every repository in org.
	ListRepositories(ctx context.Context, org string) ([]string, error)
}

// Mutator applies individual changes to an organization.
type Mutator interface {
	CreateTeam(ctx context.Context, org string, in TeamInput) (*Team, error)
	UpdateTeam(ctx context.Context, org, slug string, in TeamInput) error
	AddMember(ctx context.Context, org, slug, login string) error
	RemoveMember(ctx context.Context, org, slug, login string) error
	GrantRepo(ctx context.Context, org, slug, owner, repo string, perm Permission) error
	RevokeRepo(ctx context.Context, org, slug, owner, repo string) error
}

// Platform is everything the reconciler needs from the remote side.
type Platform interface {
	StateReader
	Mutator
}

// ContentFetcher retrieves a single file from a repository at a ref.
type ContentFetcher interface {
	GetFile(ctx context.Context, owner, repo, path, ref string) (File, error)
}
