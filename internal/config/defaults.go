package config

import (
	"os"
	"strings"
)

// DefaultTeamDataPath is where the team document lives when no path is configured.
const DefaultTeamDataPath = ".github/teams.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		TeamDataPath: DefaultTeamDataPath,
		LogLevel:     "info",
		MaxRetries:   3,
	}
}

// applyActionsEnv fills unset fields from the variables GitHub Actions
// exports to every workflow step.
func (c *Config) applyActionsEnv(lookup func(string) (string, bool)) {
	fill := func(dst *string, key string) {
		if *dst != "" {
			return
		}
		if v, ok := lookup(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	fill(&c.Token, "GITHUB_TOKEN")
	fill(&c.Repository, "GITHUB_REPOSITORY")
	fill(&c.Ref, "GITHUB_SHA")
	fill(&c.APIURL, "GITHUB_API_URL")

	// GitHub Actions always exports the public API URL; keep the library default for it.
	if strings.TrimSuffix(c.APIURL, "/") == "https://api.github.com" {
		c.APIURL = ""
	}
}

// ApplyDerived fills the organization from the repository owner when unset.
func (c *Config) ApplyDerived() {
	if c.Org == "" {
		if owner, _, ok := strings.Cut(c.Repository, "/"); ok {
			c.Org = owner
		}
	}
}

var osLookupEnv = os.LookupEnv
