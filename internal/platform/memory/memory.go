// Package memory implements platform.Platform on top of an in-memory
// organization. State persists between calls, which makes it suitable for
// exercising reconciliation end to end without a network.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ziadkadry99/teamsync/internal/naming"
	"github.com/ziadkadry99/teamsync/internal/platform"
)

// Call is one recorded invocation of a platform method.
type Call struct {
	Op     string
	Slug   string
	Target string
}

func (c Call) String() string {
	if c.Target == "" {
		return c.Op + " " + c.Slug
	}
	return c.Op + " " + c.Slug + " " + c.Target
}

type team struct {
	platform.Team
	members []string
	grants  map[string]platform.Permission
}

// Org is an in-memory organization.
type Org struct {
	mu       sync.Mutex
	actor    string
	repos    []string
	teams    map[string]*team
	nextID   int64
	calls    []Call
	fetches  int
	failures map[string]error
	files    map[string]platform.File
}

// New creates an organization whose token belongs to actor and which owns
// the given repositories.
func New(actor string, repos ...string) *Org {
	return &Org{
		actor:    actor,
		repos:    append([]string(nil), repos...),
		teams:    make(map[string]*team),
		failures: make(map[string]error),
		files:    make(map[string]platform.File),
	}
}

// SeedTeam creates a team directly, bypassing the call log.
func (o *Org) SeedTeam(name, description string, members []string, grants ...platform.Grant) {
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.newTeam(name, description)
	t.members = append(t.members, members...)
	for _, g := range grants {
		t.grants[strings.ToLower(g.Repository)] = g.Permission
	}
}

// FailOn makes every call of op against slug return err. An empty slug
// matches all teams.
func (o *Org) FailOn(op, slug string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures[op+"|"+slug] = err
}

// Calls returns the mutation calls made so far.
func (o *Org) Calls() []Call {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Call(nil), o.calls...)
}

// CatalogFetches returns how many times ListRepositories was called.
func (o *Org) CatalogFetches() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.fetches
}

// ResetCalls clears the call log.
func (o *Org) ResetCalls() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = nil
}

// Members returns the sorted members of slug.
func (o *Org) Members(slug string) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.teams[slug]
	if !ok {
		return nil
	}
	out := append([]string(nil), t.members...)
	sort.Strings(out)
	return out
}

// Grants returns the grants of slug sorted by repository.
func (o *Org) Grants(slug string) []platform.Grant {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.teams[slug]
	if !ok {
		return nil
	}
	return t.sortedGrants()
}

// Team returns the stored team for slug, or nil.
func (o *Org) Team(slug string) *platform.Team {
	o.mu.Lock()
	defer o.mu.Unlock()
	t, ok := o.teams[slug]
	if !ok {
		return nil
	}
	cp := t.Team
	return &cp
}

func (o *Org) newTeam(name, description string) *team {
	o.nextID++
	t := &team{
		Team:   platform.Team{ID: o.nextID, Name: name, Slug: naming.Slug(name), Description: description},
		grants: make(map[string]platform.Permission),
	}
	o.teams[t.Slug] = t
	return t
}

func (o *Org) fail(op, slug string) error {
	if err, ok := o.failures[op+"|"+slug]; ok {
		return err
	}
	if err, ok := o.failures[op+"|"]; ok {
		return err
	}
	return nil
}

func (o *Org) record(op, slug, target string) error {
	if err := o.fail(op, slug); err != nil {
		return err
	}
	o.calls = append(o.calls, Call{Op: op, Slug: slug, Target: target})
	return nil
}

func (o *Org) lookup(slug string) (*team, error) {
	t, ok := o.teams[slug]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", slug, platform.ErrTeamNotFound)
	}
	return t, nil
}

func (t *team) sortedGrants() []platform.Grant {
	out := make([]platform.Grant, 0, len(t.grants))
	for repo, perm := range t.grants {
		out = append(out, platform.Grant{Repository: repo, Permission: perm})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Repository < out[j].Repository })
	return out
}

func (o *Org) AuthenticatedUser(context.Context) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail("AuthenticatedUser", ""); err != nil {
		return "", err
	}
	return o.actor, nil
}

func (o *Org) GetTeam(_ context.Context, _ string, slug string) (*platform.Team, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail("GetTeam", slug); err != nil {
		return nil, err
	}
	t, err := o.lookup(slug)
	if err != nil {
		return nil, err
	}
	cp := t.Team
	return &cp, nil
}

func (o *Org) ListMembers(_ context.Context, _ string, slug string) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail("ListMembers", slug); err != nil {
		return nil, err
	}
	t, err := o.lookup(slug)
	if err != nil {
		return nil, err
	}
	return append([]string(nil), t.members...), nil
}

func (o *Org) ListRepoGrants(_ context.Context, _ string, slug string) ([]platform.Grant, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail("ListRepoGrants", slug); err != nil {
		return nil, err
	}
	t, err := o.lookup(slug)
	if err != nil {
		return nil, err
	}
	return t.sortedGrants(), nil
}

func (o *Org) ListRepositories(context.Context, string) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.fail("ListRepositories", ""); err != nil {
		return nil, err
	}
	o.fetches++
	return append([]string(nil), o.repos...), nil
}

func (o *Org) CreateTeam(_ context.Context, _ string, in platform.TeamInput) (*platform.Team, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s := naming.Slug(in.Name)
	if err := o.record("CreateTeam", s, in.Name); err != nil {
		return nil, err
	}
	if _, exists := o.teams[s]; exists {
		return nil, fmt.Errorf("team %s already exists", s)
	}
	var desc string
	if in.Description != nil {
		desc = *in.Description
	}
	t := o.newTeam(in.Name, desc)
	// GitHub adds the creator as a maintainer.
	t.members = append(t.members, o.actor)
	cp := t.Team
	return &cp, nil
}

func (o *Org) UpdateTeam(_ context.Context, _ string, slug string, in platform.TeamInput) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.record("UpdateTeam", slug, in.Name); err != nil {
		return err
	}
	t, err := o.lookup(slug)
	if err != nil {
		return err
	}
	t.Name = in.Name
	if in.Description != nil {
		t.Description = *in.Description
	}
	return nil
}

func (o *Org) AddMember(_ context.Context, _ string, slug, login string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.record("AddMember", slug, login); err != nil {
		return err
	}
	t, err := o.lookup(slug)
	if err != nil {
		return err
	}
	for _, m := range t.members {
		if strings.EqualFold(m, login) {
			return nil
		}
	}
	t.members = append(t.members, login)
	return nil
}

func (o *Org) RemoveMember(_ context.Context, _ string, slug, login string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.record("RemoveMember", slug, login); err != nil {
		return err
	}
	t, err := o.lookup(slug)
	if err != nil {
		return err
	}
	kept := t.members[:0]
	for _, m := range t.members {
		if !strings.EqualFold(m, login) {
			kept = append(kept, m)
		}
	}
	t.members = kept
	return nil
}

func (o *Org) GrantRepo(_ context.Context, _ string, slug, owner, repo string, perm platform.Permission) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	full := owner + "/" + repo
	if err := o.record("GrantRepo", slug, full+":"+string(perm)); err != nil {
		return err
	}
	t, err := o.lookup(slug)
	if err != nil {
		return err
	}
	t.grants[strings.ToLower(full)] = perm
	return nil
}

func (o *Org) RevokeRepo(_ context.Context, _ string, slug, owner, repo string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	full := owner + "/" + repo
	if err := o.record("RevokeRepo", slug, full); err != nil {
		return err
	}
	t, err := o.lookup(slug)
	if err != nil {
		return err
	}
	delete(t.grants, strings.ToLower(full))
	return nil
}

// SetFile stores content under owner/repo/path for GetFile.
func (o *Org) SetFile(owner, repo, path string, f platform.File) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[owner+"/"+repo+"/"+path] = f
}

// GetFile returns a file stored with SetFile. The ref is ignored.
func (o *Org) GetFile(_ context.Context, owner, repo, path, _ string) (platform.File, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	f, ok := o.files[owner+"/"+repo+"/"+path]
	if !ok {
		return platform.File{}, fmt.Errorf("%s/%s: %s: no such file", owner, repo, path)
	}
	return f, nil
}

var (
	_ platform.Platform       = (*Org)(nil)
	_ platform.ContentFetcher = (*Org)(nil)
)
