package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/teamsync/internal/config"
	"github.com/ziadkadry99/teamsync/internal/db"
	"github.com/ziadkadry99/teamsync/internal/journal"
	"github.com/ziadkadry99/teamsync/internal/platform/github"
	"github.com/ziadkadry99/teamsync/internal/progress"
	"github.com/ziadkadry99/teamsync/internal/reconcile"
	"github.com/ziadkadry99/teamsync/internal/teamdata"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile the organization's teams with the team document",
	Long: `Fetches the team document from the configured repository and ref, then
creates, updates and prunes teams, members and repository grants to match it.
Teams marked team_sync_ignored are left untouched.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().String("token", "", "GitHub token (default $GITHUB_TOKEN)")
	syncCmd.Flags().String("org", "", "organization whose teams are managed (default: repository owner)")
	syncCmd.Flags().String("repository", "", "owner/repo holding the team document (default $GITHUB_REPOSITORY)")
	syncCmd.Flags().String("ref", "", "git ref to read the team document at (default $GITHUB_SHA)")
	syncCmd.Flags().String("path", "", "path of the team document in the repository")
	syncCmd.Flags().String("prefix", "", "prefix prepended to every team name")
	syncCmd.Flags().String("api-url", "", "GitHub Enterprise API URL")
	syncCmd.Flags().Bool("dry-run", false, "log planned changes without applying them")
	syncCmd.Flags().String("journal", "", "SQLite file recording every applied change")
	syncCmd.Flags().Int("max-retries", 0, "retries for rate-limited or failed API calls")
	syncCmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	log := logger.WithField("org", cfg.Org)

	client, err := github.New(ctx, github.Config{
		Token:      cfg.Token,
		BaseURL:    cfg.APIURL,
		MaxRetries: cfg.MaxRetries,
	}, log)
	if err != nil {
		return err
	}

	src, err := documentSource(cfg)
	if err != nil {
		return err
	}

	r := reconcile.New(client, reconcile.Options{
		Org:    cfg.Org,
		Prefix: cfg.Prefix,
		DryRun: cfg.DryRun,
	}, log)

	reporter := progress.NewReporter()
	r.SetProgressFunc(progress.Func(reporter))

	var run *journal.RunRecorder
	if cfg.Journal != "" {
		database, err := db.Open(cfg.Journal)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer database.Close()

		run, err = journal.NewStore(database).Begin(ctx, cfg.Org, sourceLabel(cfg, src), cfg.DryRun)
		if err != nil {
			return fmt.Errorf("starting journal run: %w", err)
		}
		r.SetRecorder(run)
	}

	log.WithFields(logrus.Fields{
		"source":  sourceLabel(cfg, src),
		"dry_run": cfg.DryRun,
	}).Info("Starting team sync")

	report, runErr := r.Sync(ctx, client, src)
	reporter.Finish()

	if run != nil {
		// The run context may already be cancelled; the outcome is still worth keeping.
		if err := run.Finish(context.WithoutCancel(ctx), report, runErr); err != nil {
			log.WithError(err).Warn("Failed to record run outcome")
		}
	}
	if runErr != nil {
		return runErr
	}

	printReport(cmd.OutOrStdout(), report, cfg.DryRun)
	return report.Err()
}

// documentSource locates the team document described by cfg.
func documentSource(cfg *config.Config) (teamdata.Source, error) {
	owner, repo, err := cfg.OwnerRepo()
	if err != nil {
		return teamdata.Source{}, fmt.Errorf("resolving team document repository: %w", err)
	}
	return teamdata.Source{Owner: owner, Repo: repo, Ref: cfg.Ref, Path: cfg.TeamDataPath}, nil
}

func sourceLabel(cfg *config.Config, src teamdata.Source) string {
	label := src.Owner + "/" + src.Repo
	if src.Ref != "" {
		label += "@" + src.Ref
	}
	return label + ":" + cfg.TeamDataPath
}

func printReport(w io.Writer, report *reconcile.Report, dryRun bool) {
	verb := "applied"
	if dryRun {
		verb = "planned"
	}
	for _, res := range report.Results {
		switch res.State {
		case reconcile.StateFailed:
			fmt.Fprintf(w, "  FAILED   %s (%s): %v\n", res.Team, res.Slug, res.Err)
		case reconcile.StateIgnored:
			fmt.Fprintf(w, "  ignored  %s (%s)\n", res.Team, res.Slug)
		default:
			fmt.Fprintf(w, "  ok       %s (%s): %d changes %s\n", res.Team, res.Slug, len(res.Mutations), verb)
		}
	}
	fmt.Fprintf(w, "\n%d teams, %d changes %s, %d ignored, %d failed\n",
		len(report.Results), report.Mutations(), verb,
		report.Count(reconcile.StateIgnored), report.Count(reconcile.StateFailed))
}
