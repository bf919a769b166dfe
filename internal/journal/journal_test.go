package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ziadkadry99/teamsync/internal/db"
	"github.com/ziadkadry99/teamsync/internal/platform"
	"github.com/ziadkadry99/teamsync/internal/reconcile"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	s := NewStore(database)
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestRecordAndQuery(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec, err := store.Begin(ctx, "acme", "acme/admin@main:.github/teams.yml", false)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	muts := []reconcile.Mutation{
		{Org: "acme", Team: "Core", Slug: "core", Action: reconcile.ActionCreateTeam},
		{Org: "acme", Team: "Core", Slug: "core", Action: reconcile.ActionAddMember, Target: "alice"},
		{Org: "acme", Team: "Core", Slug: "core", Action: reconcile.ActionGrantRepo, Target: "acme/api", Permission: platform.PermissionPush},
	}
	for _, m := range muts {
		if err := rec.Record(ctx, m); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	entries, err := store.Query(ctx, Filter{RunID: rec.RunID()})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Seq != i+1 {
			t.Errorf("entries[%d].Seq = %d, want %d", i, e.Seq, i+1)
		}
		if e.Action != muts[i].Action {
			t.Errorf("entries[%d].Action = %q, want %q", i, e.Action, muts[i].Action)
		}
	}
	if entries[2].Permission != "push" {
		t.Errorf("Permission = %q, want %q", entries[2].Permission, "push")
	}
	if entries[1].Target != "alice" {
		t.Errorf("Target = %q, want %q", entries[1].Target, "alice")
	}
}

func TestQueryFilters(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec, err := store.Begin(ctx, "acme", "src", false)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	for _, m := range []reconcile.Mutation{
		{Org: "acme", Team: "Core", Slug: "core", Action: reconcile.ActionAddMember, Target: "alice"},
		{Org: "acme", Team: "Web", Slug: "web", Action: reconcile.ActionAddMember, Target: "bob"},
		{Org: "acme", Team: "Web", Slug: "web", Action: reconcile.ActionRemoveMember, Target: "carol"},
	} {
		if err := rec.Record(ctx, m); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	bySlug, err := store.Query(ctx, Filter{Slug: "web"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(bySlug) != 2 {
		t.Errorf("slug filter: got %d entries, want 2", len(bySlug))
	}

	byAction, err := store.Query(ctx, Filter{Action: reconcile.ActionAddMember})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(byAction) != 2 {
		t.Errorf("action filter: got %d entries, want 2", len(byAction))
	}

	limited, err := store.Query(ctx, Filter{Limit: 1})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limit: got %d entries, want 1", len(limited))
	}
}

func TestRunsNewestFirst(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first, err := store.Begin(ctx, "acme", "one", false)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	report := &reconcile.Report{Results: []reconcile.TeamResult{
		{Team: "Core", Slug: "core", State: reconcile.StateDone},
		{Team: "Web", Slug: "web", State: reconcile.StateFailed, Err: errors.New("boom")},
	}}
	if err := first.Finish(ctx, report, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	second, err := store.Begin(ctx, "acme", "two", true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	runs, err := store.Runs(ctx, 10)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].ID != second.RunID() {
		t.Errorf("runs[0] = %s, want the second run", runs[0].ID)
	}
	if !runs[0].DryRun {
		t.Error("second run should be marked dry-run")
	}
	if runs[0].FinishedAt != nil {
		t.Error("unfinished run should have no finish time")
	}

	done := runs[1]
	if done.FinishedAt == nil {
		t.Fatal("finished run should have a finish time")
	}
	if done.Teams != 2 || done.Failed != 1 {
		t.Errorf("teams/failed = %d/%d, want 2/1", done.Teams, done.Failed)
	}
	if done.Error == "" {
		t.Error("finished run with a failed team should carry an error")
	}
}

func TestFinishWithAbortError(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec, err := store.Begin(ctx, "acme", "src", false)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := rec.Finish(ctx, nil, errors.New("invalid team document: members: required")); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	runs, err := store.Runs(ctx, 0)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	if runs[0].Error != "invalid team document: members: required" {
		t.Errorf("Error = %q", runs[0].Error)
	}
	if runs[0].Teams != 0 {
		t.Errorf("Teams = %d, want 0", runs[0].Teams)
	}
}

func TestRecordsFromReconciler(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	rec, err := store.Begin(ctx, "acme", "src", true)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	var r reconcile.Recorder = rec
	if err := r.Record(ctx, reconcile.Mutation{Org: "acme", Team: "Core", Slug: "core", Action: reconcile.ActionRevokeRepo, Target: "acme/old", DryRun: true}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	entries, err := store.Query(ctx, Filter{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || !entries[0].DryRun {
		t.Fatalf("entries = %+v, want one dry-run entry", entries)
	}
}
