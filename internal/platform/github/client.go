// Package github implements the platform interfaces against the GitHub REST
// API using go-github. Requests are authenticated with a static token and
// retried on 429 and 5xx responses.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gogithub "github.com/google/go-github/v51/github"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/ziadkadry99/teamsync/internal/platform"
)

const perPage = 100

// Config configures a Client.
type Config struct {
	Token string
	// BaseURL points at a GitHub Enterprise Server; empty means github.com.
	BaseURL    string
	MaxRetries int
	// RetryWait is the minimum wait between retries; zero keeps the
	// retryablehttp default.
	RetryWait time.Duration
}

// Client talks to the GitHub REST API. It implements platform.Platform and
// platform.ContentFetcher.
type Client struct {
	gh  *gogithub.Client
	log *logrus.Entry
}

// New creates a Client.
func New(ctx context.Context, cfg Config, log *logrus.Entry) (*Client, error) {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.MaxRetries
	if cfg.RetryWait > 0 {
		rc.RetryWaitMin = cfg.RetryWait
		rc.RetryWaitMax = 30 * cfg.RetryWait
	}
	rc.Logger = retryLogger{log: log.WithField("component", "http")}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if cfg.Token != "" {
		rc.HTTPClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	}
	httpClient := rc.StandardClient()

	if cfg.BaseURL == "" {
		return &Client{gh: gogithub.NewClient(httpClient), log: log}, nil
	}
	gh, err := gogithub.NewEnterpriseClient(cfg.BaseURL, cfg.BaseURL, httpClient)
	if err != nil {
		return nil, fmt.Errorf("creating GitHub client for %s: %w", cfg.BaseURL, err)
	}
	return &Client{gh: gh, log: log}, nil
}

func isNotFound(err error) bool {
	var er *gogithub.ErrorResponse
	return errors.As(err, &er) && er.Response != nil && er.Response.StatusCode == http.StatusNotFound
}

// AuthenticatedUser returns the login that owns the token.
func (c *Client) AuthenticatedUser(ctx context.Context) (string, error) {
	user, _, err := c.gh.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("getting authenticated user: %w", err)
	}
	if user.GetLogin() == "" {
		return "", errors.New("getting authenticated user: response has no login")
	}
	return user.GetLogin(), nil
}

// GetTeam looks a team up by slug; a 404 is platform.ErrTeamNotFound.
func (c *Client) GetTeam(ctx context.Context, org, slug string) (*platform.Team, error) {
	team, _, err := c.gh.Teams.GetTeamBySlug(ctx, org, slug)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("team %s/%s: %w", org, slug, platform.ErrTeamNotFound)
		}
		return nil, fmt.Errorf("getting team %s/%s: %w", org, slug, err)
	}
	return &platform.Team{
		ID:          team.GetID(),
		Name:        team.GetName(),
		Slug:        team.GetSlug(),
		Description: team.GetDescription(),
	}, nil
}

// ListMembers returns the logins of every team member.
func (c *Client) ListMembers(ctx context.Context, org, slug string) ([]string, error) {
	opts := &gogithub.TeamListTeamMembersOptions{ListOptions: gogithub.ListOptions{PerPage: perPage}}
	var logins []string
	for {
		users, resp, err := c.gh.Teams.ListTeamMembersBySlug(ctx, org, slug, opts)
		if err != nil {
			return nil, fmt.Errorf("listing members of %s/%s: %w", org, slug, err)
		}
		for _, u := range users {
			if login := u.GetLogin(); login != "" {
				logins = append(logins, login)
			}
		}
		if resp.NextPage == 0 {
			return logins, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListRepoGrants returns the team's repositories with their canonical permission.
func (c *Client) ListRepoGrants(ctx context.Context, org, slug string) ([]platform.Grant, error) {
	opts := &gogithub.ListOptions{PerPage: perPage}
	var grants []platform.Grant
	for {
		repos, resp, err := c.gh.Teams.ListTeamReposBySlug(ctx, org, slug, opts)
		if err != nil {
			return nil, fmt.Errorf("listing repositories of %s/%s: %w", org, slug, err)
		}
		for _, r := range repos {
			if r.GetFullName() == "" {
				continue
			}
			grants = append(grants, platform.Grant{
				Repository: r.GetFullName(),
				Permission: platform.PermissionFromFlags(r.Permissions),
			})
		}
		if resp.NextPage == 0 {
			return grants, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListRepositories returns the full names of every repository in org.
func (c *Client) ListRepositories(ctx context.Context, org string) ([]string, error) {
	opts := &gogithub.RepositoryListByOrgOptions{Type: "all", ListOptions: gogithub.ListOptions{PerPage: perPage}}
	var names []string
	for {
		repos, resp, err := c.gh.Repositories.ListByOrg(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("listing repositories of %s: %w", org, err)
		}
		for _, r := range repos {
			if name := r.GetFullName(); name != "" {
				names = append(names, name)
			}
		}
		if resp.NextPage == 0 {
			return names, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateTeam creates a closed team.
func (c *Client) CreateTeam(ctx context.Context, org string, in platform.TeamInput) (*platform.Team, error) {
	team, _, err := c.gh.Teams.CreateTeam(ctx, org, gogithub.NewTeam{
		Name:        in.Name,
		Description: in.Description,
		Privacy:     gogithub.String("closed"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating team %q in %s: %w", in.Name, org, err)
	}
	return &platform.Team{
		ID:          team.GetID(),
		Name:        team.GetName(),
		Slug:        team.GetSlug(),
		Description: team.GetDescription(),
	}, nil
}

// UpdateTeam sets the team name and, when given, its description.
func (c *Client) UpdateTeam(ctx context.Context, org, slug string, in platform.TeamInput) error {
	_, _, err := c.gh.Teams.EditTeamBySlug(ctx, org, slug, gogithub.NewTeam{
		Name:        in.Name,
		Description: in.Description,
	}, false)
	if err != nil {
		return fmt.Errorf("updating team %s/%s: %w", org, slug, err)
	}
	return nil
}

// AddMember adds or updates login as a regular member.
func (c *Client) AddMember(ctx context.Context, org, slug, login string) error {
	if _, _, err := c.gh.Teams.AddTeamMembershipBySlug(ctx, org, slug, login, &gogithub.TeamAddTeamMembershipOptions{Role: "member"}); err != nil {
		return fmt.Errorf("adding %s to %s/%s: %w", login, org, slug, err)
	}
	return nil
}

// RemoveMember removes login; removing a non-member is not an error.
func (c *Client) RemoveMember(ctx context.Context, org, slug, login string) error {
	if _, err := c.gh.Teams.RemoveTeamMembershipBySlug(ctx, org, slug, login); err != nil {
		if isNotFound(err) {
			c.log.Debugf("%s is not a member of %s/%s", login, org, slug)
			return nil
		}
		return fmt.Errorf("removing %s from %s/%s: %w", login, org, slug, err)
	}
	return nil
}

// GrantRepo adds or updates the team's permission on owner/repo.
func (c *Client) GrantRepo(ctx context.Context, org, slug, owner, repo string, perm platform.Permission) error {
	opts := &gogithub.TeamAddTeamRepoOptions{Permission: string(perm)}
	if _, err := c.gh.Teams.AddTeamRepoBySlug(ctx, org, slug, owner, repo, opts); err != nil {
		return fmt.Errorf("granting %s on %s/%s to %s/%s: %w", perm, owner, repo, org, slug, err)
	}
	return nil
}

// RevokeRepo removes the team's access to owner/repo; a missing grant is not an error.
func (c *Client) RevokeRepo(ctx context.Context, org, slug, owner, repo string) error {
	if _, err := c.gh.Teams.RemoveTeamRepoBySlug(ctx, org, slug, owner, repo); err != nil {
		if isNotFound(err) {
			c.log.Debugf("%s/%s has no access to %s/%s", org, slug, owner, repo)
			return nil
		}
		return fmt.Errorf("revoking %s/%s from %s/%s: %w", owner, repo, org, slug, err)
	}
	return nil
}

// GetFile returns the raw content and encoding of a file. Directories are
// rejected.
func (c *Client) GetFile(ctx context.Context, owner, repo, path, ref string) (platform.File, error) {
	file, dir, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, path, &gogithub.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		return platform.File{}, fmt.Errorf("getting %s from %s/%s: %w", path, owner, repo, err)
	}
	if dir != nil {
		return platform.File{}, fmt.Errorf("%s must point to a single file, not a directory", path)
	}
	if file == nil || file.Content == nil {
		return platform.File{}, fmt.Errorf("getting %s from %s/%s: unexpected response without content", path, owner, repo)
	}
	return platform.File{Content: *file.Content, Encoding: file.GetEncoding()}, nil
}

var (
	_ platform.Platform       = (*Client)(nil)
	_ platform.ContentFetcher = (*Client)(nil)
)
