package platform

import (
	"context"

	"github.com/sirupsen/logrus"
)

// dryRun forwards reads and swallows mutations.
type dryRun struct {
	StateReader
	log *logrus.Entry
}

// DryRun wraps p so that every mutation is logged and skipped while reads
// still hit the real platform.
func DryRun(p Platform, log *logrus.Entry) Platform {
	return &dryRun{StateReader: p, log: log}
}

func (d *dryRun) CreateTeam(_ context.Context, org string, in TeamInput) (*Team, error) {
	d.log.WithField("org", org).Infof("[dry-run] would create team %q", in.Name)
	return &Team{Name: in.Name, Description: deref(in.Description)}, nil
}

func (d *dryRun) UpdateTeam(_ context.Context, org, slug string, in TeamInput) error {
	d.log.WithFields(logrus.Fields{"org": org, "slug": slug}).Infof("[dry-run] would update team %q", in.Name)
	return nil
}

func (d *dryRun) AddMember(_ context.Context, org, slug, login string) error {
	d.log.WithFields(logrus.Fields{"org": org, "slug": slug}).Infof("[dry-run] would add %s", login)
	return nil
}

func (d *dryRun) RemoveMember(_ context.Context, org, slug, login string) error {
	d.log.WithFields(logrus.Fields{"org": org, "slug": slug}).Infof("[dry-run] would remove %s", login)
	return nil
}

func (d *dryRun) GrantRepo(_ context.Context, org, slug, owner, repo string, perm Permission) error {
	d.log.WithFields(logrus.Fields{"org": org, "slug": slug}).Infof("[dry-run] would grant %s on %s/%s", perm, owner, repo)
	return nil
}

func (d *dryRun) RevokeRepo(_ context.Context, org, slug, owner, repo string) error {
	d.log.WithFields(logrus.Fields{"org": org, "slug": slug}).Infof("[dry-run] would revoke %s/%s", owner, repo)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
