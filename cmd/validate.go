package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ziadkadry99/teamsync/internal/naming"
	"github.com/ziadkadry99/teamsync/internal/repomatch"
	"github.com/ziadkadry99/teamsync/internal/teamdata"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a local team document without contacting GitHub",
	Long: `Parses a team document from disk and prints the teams it declares with the
names and slugs they will get. With --catalog, repository rules are resolved
against a YAML or JSON list of full repository names.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().String("prefix", "", "prefix prepended to every team name")
	validateCmd.Flags().String("catalog", "", "file listing the organization's repositories (owner/name)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	set, err := teamdata.Parse(raw, teamdata.FormatFromPath(path))
	if err != nil {
		return err
	}

	prefix, _ := cmd.Flags().GetString("prefix")
	if !cmd.Flags().Changed("prefix") {
		if cfg, err := loadConfig(cmd); err == nil {
			prefix = cfg.Prefix
		}
	}
	if err := teamdata.CheckSlugs(set, prefix); err != nil {
		return err
	}

	var catalog []string
	if catalogPath, _ := cmd.Flags().GetString("catalog"); catalogPath != "" {
		if catalog, err = readCatalog(catalogPath); err != nil {
			return err
		}
	}

	describeTeams(cmd.OutOrStdout(), set, prefix, catalog)
	return nil
}

// readCatalog loads a list of full repository names.
func readCatalog(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog %s: %w", path, err)
	}
	var repos []string
	if err := yaml.Unmarshal(raw, &repos); err != nil {
		return nil, fmt.Errorf("parsing catalog %s: %w", path, err)
	}
	return repos, nil
}

func describeTeams(w io.Writer, set teamdata.TeamSet, prefix string, catalog []string) {
	for _, name := range set.Names() {
		spec := set[name]
		fmt.Fprintf(w, "%s (%s)\n", naming.TeamName(prefix, name), naming.TeamSlug(prefix, name))
		if spec.IgnoreSync {
			fmt.Fprintln(w, "  ignored")
			continue
		}
		if spec.Description != nil {
			fmt.Fprintf(w, "  description: %s\n", *spec.Description)
		}
		fmt.Fprintf(w, "  members: %s\n", strings.Join(spec.Logins(), ", "))
		switch {
		case !spec.ManageRepos:
			fmt.Fprintln(w, "  repos: unmanaged")
		case catalog == nil:
			fmt.Fprintf(w, "  repos: %d rules\n", len(spec.Repos))
		default:
			grants := repomatch.Consolidate(repomatch.Resolve(catalog, spec.Repos))
			fmt.Fprintf(w, "  repos: %d grants\n", len(grants))
			for _, g := range grants {
				fmt.Fprintf(w, "    %s\n", g)
			}
			for _, missing := range repomatch.Unmatched(catalog, spec.Repos) {
				fmt.Fprintf(w, "    warning: %s is not in the catalog\n", missing)
			}
		}
	}
}
