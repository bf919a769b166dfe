package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/teamsync/internal/config"
	"github.com/ziadkadry99/teamsync/internal/logging"
)

// loadConfig loads the config file and environment, then applies any
// flags the user set explicitly on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `teamsync init` to create a config file", err)
	}
	applyFlags(cmd, cfg)
	cfg.ApplyDerived()
	if verbose {
		cfg.LogLevel = logrus.DebugLevel.String()
	}
	return cfg, nil
}

// applyFlags copies explicitly set flags over the loaded values. Flags a
// command does not define are ignored.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	str := func(name string, dst *string) {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	str("token", &cfg.Token)
	str("org", &cfg.Org)
	str("repository", &cfg.Repository)
	str("ref", &cfg.Ref)
	str("path", &cfg.TeamDataPath)
	str("prefix", &cfg.Prefix)
	str("api-url", &cfg.APIURL)
	str("journal", &cfg.Journal)
	str("log-level", &cfg.LogLevel)

	if flags.Changed("dry-run") {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
	if flags.Changed("max-retries") {
		cfg.MaxRetries, _ = flags.GetInt("max-retries")
	}
}

// newLogger builds the process logger from the configured level.
func newLogger(cfg *config.Config) (*logrus.Logger, error) {
	lvl, err := cfg.Level()
	if err != nil {
		return nil, err
	}
	return logging.New(lvl, os.Stderr), nil
}
