package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/teamsync/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter .teamsync.yml",
	Long: `Writes a configuration file with the default settings. The token is never
stored; provide it through GITHUB_TOKEN or TEAMSYNC_TOKEN.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("org", "", "organization whose teams are managed")
	initCmd.Flags().String("repository", "", "owner/repo holding the team document")
	initCmd.Flags().String("path", config.DefaultTeamDataPath, "path of the team document in the repository")
	initCmd.Flags().String("prefix", "", "prefix prepended to every team name")
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")
	if _, err := os.Stat(cfgFile); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgFile)
	}

	cfg := config.DefaultConfig()
	applyFlags(cmd, cfg)
	cfg.ApplyDerived()
	if err := cfg.Save(cfgFile); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", cfgFile)
	return nil
}
