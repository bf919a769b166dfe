package config

// Config is the top-level teamsync configuration, corresponding to .teamsync.yml.
type Config struct {
	Token        string `yaml:"token,omitempty" koanf:"token"`
	Org          string `yaml:"org" koanf:"org"`
	Repository   string `yaml:"repository" koanf:"repository"`
	Ref          string `yaml:"ref" koanf:"ref"`
	TeamDataPath string `yaml:"team_data_path" koanf:"team_data_path"`
	Prefix       string `yaml:"prefix" koanf:"prefix"`
	APIURL       string `yaml:"api_url" koanf:"api_url"`
	DryRun       bool   `yaml:"dry_run" koanf:"dry_run"`
	Journal      string `yaml:"journal" koanf:"journal"`
	LogLevel     string `yaml:"log_level" koanf:"log_level"`
	MaxRetries   int    `yaml:"max_retries" koanf:"max_retries"`
}
