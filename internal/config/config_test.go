package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

// noActionsEnv hides the GitHub Actions variables of the machine running the tests.
func noActionsEnv(t *testing.T) {
	t.Helper()
	prev := osLookupEnv
	osLookupEnv = func(string) (string, bool) { return "", false }
	t.Cleanup(func() { osLookupEnv = prev })
}

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.Token = "t0ken"
	cfg.Repository = "acme/admin"
	cfg.ApplyDerived()
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TeamDataPath != ".github/teams.yml" {
		t.Errorf("expected default team_data_path %q, got %q", ".github/teams.yml", cfg.TeamDataPath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log_level %q, got %q", "info", cfg.LogLevel)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("expected default max_retries 3, got %d", cfg.MaxRetries)
	}
}

func TestSaveAndLoad(t *testing.T) {
	noActionsEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".teamsync.yml")

	original := DefaultConfig()
	original.Token = "secret"
	original.Repository = "acme/admin"
	original.Org = "acme-teams"
	original.Prefix = "gh"
	original.TeamDataPath = "teams.json"
	original.DryRun = true
	original.MaxRetries = 5

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Token != "" {
		t.Errorf("token should not be persisted, got %q", loaded.Token)
	}
	if loaded.Org != "acme-teams" {
		t.Errorf("org: got %q, want %q", loaded.Org, "acme-teams")
	}
	if loaded.Prefix != "gh" {
		t.Errorf("prefix: got %q, want %q", loaded.Prefix, "gh")
	}
	if loaded.TeamDataPath != "teams.json" {
		t.Errorf("team_data_path: got %q, want %q", loaded.TeamDataPath, "teams.json")
	}
	if !loaded.DryRun {
		t.Error("dry_run: got false, want true")
	}
	if loaded.MaxRetries != 5 {
		t.Errorf("max_retries: got %d, want 5", loaded.MaxRetries)
	}
}

func TestLoadMissingFile(t *testing.T) {
	noActionsEnv(t)
	path := filepath.Join(t.TempDir(), "nonexistent.yml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.TeamDataPath != DefaultTeamDataPath {
		t.Errorf("expected default team_data_path, got %q", cfg.TeamDataPath)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	noActionsEnv(t)
	path := filepath.Join(t.TempDir(), "test.yml")
	if err := os.WriteFile(path, []byte("org: from-file\nprefix: file\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TEAMSYNC_PREFIX", "env")
	t.Setenv("TEAMSYNC_TEAM_DATA_PATH", "org/teams.yml")
	t.Setenv("TEAMSYNC_DRY_RUN", "true")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Prefix != "env" {
		t.Errorf("env override failed: got %q, want %q", loaded.Prefix, "env")
	}
	if loaded.Org != "from-file" {
		t.Errorf("org: got %q, want %q", loaded.Org, "from-file")
	}
	if loaded.TeamDataPath != "org/teams.yml" {
		t.Errorf("team_data_path: got %q", loaded.TeamDataPath)
	}
	if !loaded.DryRun {
		t.Error("dry_run env override failed")
	}
}

func TestActionsEnvFallback(t *testing.T) {
	env := map[string]string{
		"GITHUB_TOKEN":      "ghs_abc",
		"GITHUB_REPOSITORY": "acme/admin",
		"GITHUB_SHA":        "deadbeef",
		"GITHUB_API_URL":    "https://api.github.com",
	}
	cfg := DefaultConfig()
	cfg.Ref = "main"
	cfg.applyActionsEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	cfg.ApplyDerived()

	if cfg.Token != "ghs_abc" {
		t.Errorf("token: got %q", cfg.Token)
	}
	if cfg.Repository != "acme/admin" {
		t.Errorf("repository: got %q", cfg.Repository)
	}
	if cfg.Ref != "main" {
		t.Errorf("explicit ref should win over GITHUB_SHA, got %q", cfg.Ref)
	}
	if cfg.APIURL != "" {
		t.Errorf("public API URL should be left to the client default, got %q", cfg.APIURL)
	}
	if cfg.Org != "acme" {
		t.Errorf("org should default to the repository owner, got %q", cfg.Org)
	}
}

func TestValidateValid(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Errorf("config should be valid, got: %v", err)
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Token = "" }},
		{"missing repository", func(c *Config) { c.Repository = "" }},
		{"repository without owner", func(c *Config) { c.Repository = "/admin" }},
		{"repository too deep", func(c *Config) { c.Repository = "acme/admin/extra" }},
		{"missing org", func(c *Config) { c.Org = "" }},
		{"missing path", func(c *Config) { c.TeamDataPath = "" }},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestOwnerRepo(t *testing.T) {
	cfg := validConfig()
	owner, repo, err := cfg.OwnerRepo()
	if err != nil {
		t.Fatalf("OwnerRepo: %v", err)
	}
	if owner != "acme" || repo != "admin" {
		t.Errorf("got %s/%s, want acme/admin", owner, repo)
	}
}

func TestLevel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = ""
	lvl, err := cfg.Level()
	if err != nil || lvl != logrus.InfoLevel {
		t.Errorf("empty level: got %v, %v", lvl, err)
	}
	cfg.LogLevel = "debug"
	lvl, err = cfg.Level()
	if err != nil || lvl != logrus.DebugLevel {
		t.Errorf("debug level: got %v, %v", lvl, err)
	}
}
