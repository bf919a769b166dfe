// Package reconcile converges the teams of a GitHub organization onto a
// parsed team document.
//
// Teams are processed one at a time. A platform failure ends the current
// team in StateFailed and the run moves on; only document problems abort the
// whole run, and they are detected before the first remote call.
package reconcile

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ziadkadry99/teamsync/internal/diff"
	"github.com/ziadkadry99/teamsync/internal/naming"
	"github.com/ziadkadry99/teamsync/internal/platform"
	"github.com/ziadkadry99/teamsync/internal/repomatch"
	"github.com/ziadkadry99/teamsync/internal/teamdata"
)

// Options configures a Reconciler.
type Options struct {
	Org    string
	Prefix string
	// Actor is the login removed from newly created teams. When empty it
	// is looked up once, on the first team creation.
	Actor  string
	DryRun bool
}

// Recorder receives every mutation the reconciler applies.
type Recorder interface {
	Record(ctx context.Context, m Mutation) error
}

// ProgressFunc is called after each team with the number of teams done.
type ProgressFunc func(processed, total int, team string)

// Reconciler applies a TeamSet to one organization.
type Reconciler struct {
	platform platform.Platform
	opts     Options
	log      *logrus.Entry
	recorder Recorder
	progress ProgressFunc

	actor    string
	actorErr error
	actorSet bool

	catalog    []string
	catalogErr error
	catalogSet bool
}

// New creates a Reconciler. In dry-run mode mutations are logged instead of
// sent to p.
func New(p platform.Platform, opts Options, log *logrus.Entry) *Reconciler {
	if opts.DryRun {
		p = platform.DryRun(p, log)
	}
	r := &Reconciler{platform: p, opts: opts, log: log.WithField("org", opts.Org)}
	if opts.Actor != "" {
		r.actor, r.actorSet = opts.Actor, true
	}
	return r
}

// SetRecorder registers a sink for applied mutations.
func (r *Reconciler) SetRecorder(rec Recorder) { r.recorder = rec }

// SetProgressFunc registers a per-team progress callback.
func (r *Reconciler) SetProgressFunc(fn ProgressFunc) { r.progress = fn }

// Sync loads the team document from src and reconciles it. Document errors
// are returned before any mutation is attempted.
func (r *Reconciler) Sync(ctx context.Context, fetcher platform.ContentFetcher, src teamdata.Source) (*Report, error) {
	set, err := teamdata.Load(ctx, fetcher, src, r.log)
	if err != nil {
		return nil, err
	}
	return r.Run(ctx, set)
}

// Run reconciles every team in set. The returned error is non-nil only when
// nothing was attempted; per-team failures are reported through Report.Err.
func (r *Reconciler) Run(ctx context.Context, set teamdata.TeamSet) (*Report, error) {
	if err := teamdata.CheckSlugs(set, r.opts.Prefix); err != nil {
		return nil, err
	}

	names := set.Names()
	report := &Report{Results: make([]TeamResult, 0, len(names))}
	for i, name := range names {
		res := r.reconcileTeam(ctx, name, set[name])
		report.Results = append(report.Results, res)
		if r.progress != nil {
			r.progress(i+1, len(names), name)
		}
	}
	return report, nil
}

// teamRun carries the state of one team through the machine.
type teamRun struct {
	r    *Reconciler
	spec teamdata.TeamSpec
	name string
	res  TeamResult
	log  *logrus.Entry
}

func (r *Reconciler) reconcileTeam(ctx context.Context, name string, spec teamdata.TeamSpec) TeamResult {
	tr := &teamRun{
		r:    r,
		spec: spec,
		name: naming.TeamName(r.opts.Prefix, name),
		res:  TeamResult{Team: name, Slug: naming.TeamSlug(r.opts.Prefix, name), State: StateStart},
	}
	tr.log = r.log.WithFields(logrus.Fields{"team": name, "slug": tr.res.Slug})

	if spec.IgnoreSync {
		tr.log.Debug("ignoring team due to its team_sync_ignored property")
		tr.res.State = StateIgnored
		return tr.res
	}

	tr.log.Debugf("desired members: %s", strings.Join(spec.Logins(), ", "))

	current, err := r.platform.GetTeam(ctx, r.opts.Org, tr.res.Slug)
	switch {
	case errors.Is(err, platform.ErrTeamNotFound):
		tr.res.State = StateTeamMissing
		err = tr.create(ctx)
	case err != nil:
		err = tr.fail("get team", err)
	default:
		tr.res.State = StateTeamPresent
		err = tr.update(ctx, current)
	}
	if err != nil {
		return tr.res
	}

	tr.res.State = StateDone
	tr.log.WithField("mutations", len(tr.res.Mutations)).Debug("team reconciled")
	return tr.res
}

// create handles StateTeamMissing: create, drop the creator, then add
// everything as pure additions.
func (tr *teamRun) create(ctx context.Context) error {
	r := tr.r
	tr.log.Debugf("no team was found with slug %s, creating one", tr.res.Slug)

	actor, err := r.authenticatedUser(ctx)
	if err != nil {
		return tr.fail("resolve authenticated user", err)
	}

	var created *platform.Team
	err = tr.apply(ctx, Mutation{Action: ActionCreateTeam, Target: tr.name}, func() error {
		var err error
		created, err = r.platform.CreateTeam(ctx, r.opts.Org, platform.TeamInput{Name: tr.name, Description: tr.spec.Description})
		return err
	})
	if err != nil {
		return err
	}
	if created != nil && created.Slug != "" && created.Slug != tr.res.Slug {
		tr.log.Warnf("platform assigned slug %s, expected %s", created.Slug, tr.res.Slug)
		tr.res.Slug = created.Slug
	}

	// The platform adds the creator to every new team.
	tr.log.Debugf("removing creator (%s) from %s", actor, tr.res.Slug)
	if err := tr.removeMember(ctx, actor); err != nil {
		return err
	}

	if err := tr.syncMembers(ctx, nil); err != nil {
		return err
	}
	return tr.syncGrants(ctx, false)
}

// update handles StateTeamPresent. Metadata is only written when it
// differs from current.
func (tr *teamRun) update(ctx context.Context, current *platform.Team) error {
	r := tr.r
	if tr.metadataChanged(current) {
		err := tr.apply(ctx, Mutation{Action: ActionUpdateTeam, Target: tr.name}, func() error {
			return r.platform.UpdateTeam(ctx, r.opts.Org, tr.res.Slug, platform.TeamInput{Name: tr.name, Description: tr.spec.Description})
		})
		if err != nil {
			return err
		}
	}

	existing, err := r.platform.ListMembers(ctx, r.opts.Org, tr.res.Slug)
	if err != nil {
		return tr.fail("list members", err)
	}
	tr.log.Debugf("existing members: %s", strings.Join(existing, ", "))
	if err := tr.syncMembers(ctx, existing); err != nil {
		return err
	}
	return tr.syncGrants(ctx, true)
}

func (tr *teamRun) metadataChanged(current *platform.Team) bool {
	if current == nil || current.Name != tr.name {
		return true
	}
	return tr.spec.Description != nil && *tr.spec.Description != current.Description
}

func (tr *teamRun) syncMembers(ctx context.Context, existing []string) error {
	d := diff.Members(existing, tr.spec.Logins())
	for _, login := range d.Keep {
		tr.log.Debugf("keeping %s", login)
	}
	for _, login := range d.ToRemove {
		if err := tr.removeMember(ctx, login); err != nil {
			return err
		}
	}
	for _, login := range d.ToAdd {
		err := tr.apply(ctx, Mutation{Action: ActionAddMember, Target: login}, func() error {
			return tr.r.platform.AddMember(ctx, tr.r.opts.Org, tr.res.Slug, login)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (tr *teamRun) removeMember(ctx context.Context, login string) error {
	return tr.apply(ctx, Mutation{Action: ActionRemoveMember, Target: login}, func() error {
		return tr.r.platform.RemoveMember(ctx, tr.r.opts.Org, tr.res.Slug, login)
	})
}

// syncGrants converges repository grants. Existing grants are only fetched
// for teams that were already present.
func (tr *teamRun) syncGrants(ctx context.Context, present bool) error {
	if !tr.spec.ManageRepos {
		tr.log.Debug("no repos declared, leaving repository access untouched")
		return nil
	}
	r := tr.r

	catalog, err := r.repositories(ctx)
	if err != nil {
		return tr.fail("list repositories", err)
	}
	for _, name := range repomatch.Unmatched(catalog, tr.spec.Repos) {
		tr.log.Warnf("repository %s is not in the organization catalog", name)
	}
	desired := repomatch.Consolidate(repomatch.Resolve(catalog, tr.spec.Repos))
	tr.log.Debugf("desired grants: %v", desired)

	var existing []platform.Grant
	if present {
		existing, err = r.platform.ListRepoGrants(ctx, r.opts.Org, tr.res.Slug)
		if err != nil {
			return tr.fail("list repository grants", err)
		}
		tr.log.Debugf("existing grants: %v", existing)
	}

	d := diff.Grants(existing, desired)
	for _, g := range d.ToRemove {
		owner, repo, err := platform.SplitFullName(g.Repository)
		if err != nil {
			return tr.fail("revoke repository", err)
		}
		err = tr.apply(ctx, Mutation{Action: ActionRevokeRepo, Target: g.Repository, Permission: g.Permission}, func() error {
			return r.platform.RevokeRepo(ctx, r.opts.Org, tr.res.Slug, owner, repo)
		})
		if err != nil {
			return err
		}
	}
	for _, g := range d.ToAdd {
		owner, repo, err := platform.SplitFullName(g.Repository)
		if err != nil {
			return tr.fail("grant repository", err)
		}
		perm := g.Permission
		err = tr.apply(ctx, Mutation{Action: ActionGrantRepo, Target: g.Repository, Permission: perm}, func() error {
			return r.platform.GrantRepo(ctx, r.opts.Org, tr.res.Slug, owner, repo, perm)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// apply runs fn and, on success, records m against the team.
func (tr *teamRun) apply(ctx context.Context, m Mutation, fn func() error) error {
	m.Org = tr.r.opts.Org
	m.Team = tr.res.Team
	m.Slug = tr.res.Slug
	m.DryRun = tr.r.opts.DryRun

	tr.log.Debugf("applying %s", m)
	if err := fn(); err != nil {
		return tr.fail(string(m.Action)+" "+m.Target, err)
	}
	tr.res.Mutations = append(tr.res.Mutations, m)
	if !m.DryRun {
		tr.log.WithField("action", m.Action).Infof("%s", m)
	}

	if tr.r.recorder != nil {
		if err := tr.r.recorder.Record(ctx, m); err != nil {
			tr.log.WithError(err).Warn("recording mutation")
		}
	}
	return nil
}

func (tr *teamRun) fail(op string, err error) error {
	tr.res.State = StateFailed
	tr.res.Err = &TeamError{Team: tr.res.Team, Slug: tr.res.Slug, Op: op, Err: err}
	tr.log.WithError(err).Errorf("reconciling team failed: %s", op)
	return tr.res.Err
}

// authenticatedUser resolves the token owner at most once per run.
func (r *Reconciler) authenticatedUser(ctx context.Context) (string, error) {
	if !r.actorSet {
		r.actor, r.actorErr = r.platform.AuthenticatedUser(ctx)
		r.actorSet = true
	}
	return r.actor, r.actorErr
}

// repositories fetches the organization catalog at most once per run.
func (r *Reconciler) repositories(ctx context.Context) ([]string, error) {
	if !r.catalogSet {
		r.catalog, r.catalogErr = r.platform.ListRepositories(ctx, r.opts.Org)
		r.catalogSet = true
		if r.catalogErr == nil {
			r.log.Debugf("fetched %d repositories", len(r.catalog))
		}
	}
	return r.catalog, r.catalogErr
}
