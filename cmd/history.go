package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/teamsync/internal/db"
	"github.com/ziadkadry99/teamsync/internal/journal"
	"github.com/ziadkadry99/teamsync/internal/reconcile"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show runs and changes recorded in the journal",
	Long: `Lists recent sync runs, or with --run, --team or --action the individual
changes they applied. Requires a journal (journal config key or --journal).`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().String("journal", "", "SQLite journal file")
	historyCmd.Flags().String("run", "", "only changes from this run ID")
	historyCmd.Flags().String("team", "", "only changes to this team slug")
	historyCmd.Flags().String("action", "", "only changes of this kind (e.g. add_member)")
	historyCmd.Flags().Int("limit", 20, "maximum number of rows")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Journal == "" {
		return fmt.Errorf("no journal configured (set journal in %s or pass --journal)", cfgFile)
	}

	database, err := db.Open(cfg.Journal)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer database.Close()
	store := journal.NewStore(database)

	runID, _ := cmd.Flags().GetString("run")
	slug, _ := cmd.Flags().GetString("team")
	action, _ := cmd.Flags().GetString("action")
	limit, _ := cmd.Flags().GetInt("limit")

	if runID == "" && slug == "" && action == "" {
		runs, err := store.Runs(ctx, limit)
		if err != nil {
			return err
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	}

	entries, err := store.Query(ctx, journal.Filter{
		RunID:  runID,
		Slug:   slug,
		Action: reconcile.Action(action),
		Limit:  limit,
	})
	if err != nil {
		return err
	}
	printEntries(cmd.OutOrStdout(), entries)
	return nil
}

func printRuns(w io.Writer, runs []journal.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return
	}
	for _, r := range runs {
		status := "ok"
		switch {
		case r.FinishedAt == nil:
			status = "unfinished"
		case r.Error != "":
			status = "failed"
		}
		mode := ""
		if r.DryRun {
			mode = " (dry-run)"
		}
		fmt.Fprintf(w, "%s  %s  %s %s%s: %d teams, %d failed, %s\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Org, r.Source, mode, r.Teams, r.Failed, status)
	}
}

func printEntries(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No changes recorded.")
		return
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-13s %s", e.Timestamp.Local().Format(time.DateTime), e.Action, e.Slug)
		if e.Target != "" {
			line += " " + e.Target
		}
		if e.Permission != "" {
			line += " (" + e.Permission + ")"
		}
		if e.DryRun {
			line += " [dry-run]"
		}
		fmt.Fprintln(w, line)
	}
}
