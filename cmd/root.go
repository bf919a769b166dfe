package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "teamsync",
	Short: "Sync GitHub teams from a declarative team document",
	Long: `teamsync reads a team document (YAML or JSON) from a repository and
reconciles the organization's teams to it: team metadata, membership and
repository permissions. Teams are created when missing; members and grants
not listed in the document are removed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".teamsync.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Main runs the CLI and exits non-zero on failure.
func Main() {
	exitOnError(Execute())
}
