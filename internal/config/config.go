package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zhongkairen/airtable-sync/internal/domain"
)

// Environment variables read by Load and FindFile.
const (
	EnvConfigPath      = "AIRTABLE_SYNC_CONFIG"
	EnvAirtableToken   = "AIRTABLE_TOKEN"
	EnvAirtableTokenFP = "AIRTABLE_TOKEN_PATH"
	EnvGitHubToken     = "GITHUB_TOKEN"
	EnvGitHubTokenFP   = "GITHUB_TOKEN_PATH"
	EnvAirtableURL     = "AIRTABLE_API_URL"
	EnvGitHubURL       = "GITHUB_API_URL"
)

// FileNames are the config file names searched by FindFile, in order.
var FileNames = []string{"config.json", "config.yaml", "config.yml"}

// Config holds application configuration.
type Config struct {
	Airtable AirtableConfig `json:"airtable" yaml:"airtable"`
	GitHub   GitHubConfig   `json:"github" yaml:"github"`
}

// AirtableConfig selects the base, table and view to reconcile.
type AirtableConfig struct {
	BaseID    string `json:"baseId" yaml:"baseId"`
	TableID   string `json:"tableId" yaml:"tableId"`
	ViewName  string `json:"viewName" yaml:"viewName"`
	Token     string `json:"token" yaml:"token"`
	TokenPath string `json:"token_path" yaml:"token_path"`

	APIURL string `json:"-" yaml:"-"`
}

// GitHubConfig selects the repository and project to read from.
type GitHubConfig struct {
	Owner   string `json:"owner" yaml:"owner"`
	Repo    string `json:"repo" yaml:"repo"`
	Project string `json:"project" yaml:"project"`
	// FieldMap maps GitHub project field names to Airtable field names.
	FieldMap  map[string]string `json:"fieldMap" yaml:"fieldMap"`
	EpicField string            `json:"epicField" yaml:"epicField"`
	Token     string            `json:"token" yaml:"token"`
	TokenPath string            `json:"token_path" yaml:"token_path"`

	APIURL string `json:"-" yaml:"-"`
}

// Error reports a missing or invalid configuration value.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// FindFile returns the config path named by AIRTABLE_SYNC_CONFIG, or the first of
// FileNames found in the working directory and then next to the executable.
func FindFile() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}

	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}

	for _, dir := range dirs {
		for _, name := range FileNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("%s not found in %s", strings.Join(FileNames, ", "), strings.Join(dirs, " and "))
}

// Load reads the config file at path, resolves both tokens and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, err
	}

	if err := cfg.resolveTokens(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a config document. ext selects YAML for ".yaml"/".yml" and JSON
// otherwise. Tokens are not resolved.
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the sync cannot run without.
func (c *Config) Validate() error {
	required := []struct {
		field string
		value string
	}{
		{"airtable.baseId", c.Airtable.BaseID},
		{"airtable.tableId", c.Airtable.TableID},
		{"github.owner", c.GitHub.Owner},
		{"github.repo", c.GitHub.Repo},
		{"github.project", c.GitHub.Project},
	}
	var errs []error
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, &Error{Field: r.field, Reason: "is required"})
		}
	}
	return errors.Join(errs...)
}

func (c *Config) applyDefaults() {
	if c.GitHub.FieldMap == nil {
		c.GitHub.FieldMap = map[string]string{}
	}
	if c.GitHub.EpicField == "" {
		c.GitHub.EpicField = domain.DefaultEpicField
	}
	c.Airtable.APIURL = getEnvOrDefault(EnvAirtableURL, "https://api.airtable.com")
	c.GitHub.APIURL = getEnvOrDefault(EnvGitHubURL, "https://api.github.com")
}

func (c *Config) resolveTokens() error {
	token, err := TokenSource{
		Env:     EnvAirtableToken,
		PathEnv: EnvAirtableTokenFP,
		Literal: c.Airtable.Token,
		Path:    c.Airtable.TokenPath,
	}.Resolve()
	if err != nil {
		return fmt.Errorf("airtable token: %w", err)
	}
	c.Airtable.Token = token

	token, err = TokenSource{
		Env:     EnvGitHubToken,
		PathEnv: EnvGitHubTokenFP,
		Literal: c.GitHub.Token,
		Path:    c.GitHub.TokenPath,
	}.Resolve()
	if err != nil {
		return fmt.Errorf("github token: %w", err)
	}
	c.GitHub.Token = token
	return nil
}

// RepoFullName returns "owner/repo".
func (c GitHubConfig) RepoFullName() string {
	return c.Owner + "/" + c.Repo
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
