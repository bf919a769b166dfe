package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/sirupsen/logrus"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "TEAMSYNC_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (TEAMSYNC_*), then falls back to the
// GitHub Actions variables for anything still unset.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// TEAMSYNC_TEAM_DATA_PATH -> team_data_path, etc.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.applyActionsEnv(osLookupEnv)
	cfg.ApplyDerived()
	return cfg, nil
}

// Save writes the configuration to the given YAML file path. The token is
// never written.
func (c *Config) Save(path string) error {
	out := *c
	out.Token = ""
	data, err := yamlv3.Marshal(&out)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Validate checks that the configuration is complete enough to run a sync.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("token is required (set GITHUB_TOKEN or %sTOKEN)", EnvPrefix)
	}
	if _, _, err := c.OwnerRepo(); err != nil {
		return err
	}
	if c.Org == "" {
		return fmt.Errorf("org is required")
	}
	if c.TeamDataPath == "" {
		return fmt.Errorf("team_data_path is required")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be non-negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// OwnerRepo splits the repository holding the team document.
func (c *Config) OwnerRepo() (owner, repo string, err error) {
	owner, repo, ok := strings.Cut(c.Repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository %q: must be owner/repo", c.Repository)
	}
	return owner, repo, nil
}

// Level parses the configured log level; empty means info.
func (c *Config) Level() (logrus.Level, error) {
	if c.LogLevel == "" {
		return logrus.InfoLevel, nil
	}
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
