// Package journal keeps a SQLite record of sync runs and the mutations each
// run applied.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/teamsync/internal/db"
	"github.com/ziadkadry99/teamsync/internal/reconcile"
)

// Run is one recorded sync invocation.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	Org        string
	Source     string
	DryRun     bool
	Teams      int
	Failed     int
	Error      string
}

// Entry is one recorded mutation.
type Entry struct {
	ID         string
	RunID      string
	Seq        int
	Timestamp  time.Time
	Org        string
	Team       string
	Slug       string
	Action     reconcile.Action
	Target     string
	Permission string
	DryRun     bool
}

// Store reads and writes the journal.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: func() time.Time { return time.Now().UTC() }}
}

// Begin records the start of a run and returns a recorder bound to it.
func (s *Store) Begin(ctx context.Context, org, source string, dryRun bool) (*RunRecorder, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, org, source, dry_run) VALUES (?, ?, ?, ?, ?)`,
		id, s.now(), org, source, dryRun,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting run: %w", err)
	}
	return &RunRecorder{store: s, runID: id, dryRun: dryRun}, nil
}

// RunRecorder appends mutations to a single run. It implements
// reconcile.Recorder.
type RunRecorder struct {
	store  *Store
	runID  string
	dryRun bool
	seq    int
}

// RunID returns the identifier of the run being recorded.
func (r *RunRecorder) RunID() string { return r.runID }

// Record stores m as the next entry of the run.
func (r *RunRecorder) Record(ctx context.Context, m reconcile.Mutation) error {
	r.seq++
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO mutations (id, run_id, seq, timestamp, org, team, slug, action, target, permission, dry_run)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), r.runID, r.seq, r.store.now(),
		m.Org, m.Team, m.Slug, string(m.Action), m.Target, string(m.Permission), m.DryRun,
	)
	if err != nil {
		return fmt.Errorf("inserting mutation: %w", err)
	}
	return nil
}

// Finish stores the outcome of the run. report may be nil when the run
// aborted before reconciling; runErr is the aborting error, if any.
func (r *RunRecorder) Finish(ctx context.Context, report *reconcile.Report, runErr error) error {
	var teams, failed int
	if report != nil {
		teams = len(report.Results)
		failed = len(report.Failed())
		if runErr == nil {
			runErr = report.Err()
		}
	}
	var msg string
	if runErr != nil {
		msg = runErr.Error()
	}
	_, err := r.store.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, teams = ?, failed = ?, error = ? WHERE id = ?`,
		r.store.now(), teams, failed, msg, r.runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// Filter controls which entries Query returns.
type Filter struct {
	RunID  string
	Slug   string
	Action reconcile.Action
	Limit  int
}

// Query returns mutations matching the filter, newest run first and in
// application order within a run.
func (s *Store) Query(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		clauses []string
		args    []any
	)
	if f.RunID != "" {
		clauses = append(clauses, "m.run_id = ?")
		args = append(args, f.RunID)
	}
	if f.Slug != "" {
		clauses = append(clauses, "m.slug = ?")
		args = append(args, f.Slug)
	}
	if f.Action != "" {
		clauses = append(clauses, "m.action = ?")
		args = append(args, string(f.Action))
	}

	query := `SELECT m.id, m.run_id, m.seq, m.timestamp, m.org, m.team, m.slug, m.action, m.target, m.permission, m.dry_run
		FROM mutations m JOIN runs r ON r.id = m.run_id`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY r.started_at DESC, m.run_id, m.seq"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying mutations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var action string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &e.Timestamp, &e.Org, &e.Team, &e.Slug,
			&action, &e.Target, &e.Permission, &e.DryRun); err != nil {
			return nil, fmt.Errorf("scanning mutation: %w", err)
		}
		e.Action = reconcile.Action(action)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Runs returns the most recent runs, newest first.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, org, source, dry_run, teams, failed, error
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &r.Org, &r.Source, &r.DryRun, &r.Teams, &r.Failed, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

var _ reconcile.Recorder = (*RunRecorder)(nil)
