// Package config loads pkgslim configuration from YAML files and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for pkgslim.
type Config struct {
	// PythonExec is the interpreter binary of the environment under
	// analysis.
	PythonExec string `yaml:"python_exec" env:"PKGSLIM_PYTHON_EXEC"`

	// SitePackages is the site-packages directory holding the installed
	// packages.
	SitePackages string `yaml:"site_packages" env:"PKGSLIM_SITE_PACKAGES"`

	// Packages are the directory names under site-packages to analyze and
	// prune. Names are directory names, not pip distribution names.
	Packages []string `yaml:"packages" env:"PKGSLIM_PACKAGES"`

	// ResolverTimeoutSeconds bounds each call into the resolver. Expiry is
	// treated as an unresolved reference, never as a fatal error. 0 disables
	// the bound.
	ResolverTimeoutSeconds int `yaml:"resolver_timeout_seconds" env:"PKGSLIM_RESOLVER_TIMEOUT_SECONDS"`

	// Logging
	Verbose  bool `yaml:"verbose" env:"PKGSLIM_VERBOSE"`
	JSONLogs bool `yaml:"json_logs" env:"PKGSLIM_JSON_LOGS"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		ResolverTimeoutSeconds: 10,
	}
}

// ResolverTimeout returns the per-call resolver bound as a duration.
func (c *Config) ResolverTimeout() time.Duration {
	return time.Duration(c.ResolverTimeoutSeconds) * time.Second
}

// globalConfigFilePath returns the global config file path (~/.pkgslim/config.yaml)
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pkgslim/config.yaml"
	}
	return filepath.Join(home, ".pkgslim", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path (./.pkgslim/config.yaml)
func projectConfigFilePath() string {
	return ".pkgslim/config.yaml"
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.pkgslim/config.yaml)
// 3. Global config (~/.pkgslim/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	projectConfigPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration to the specified YAML file path, creating
// parent directories as needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// PKGSLIM_PACKAGES is a comma-separated list.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("PKGSLIM_PYTHON_EXEC"); v != "" {
		cfg.PythonExec = v
	}
	if v := os.Getenv("PKGSLIM_SITE_PACKAGES"); v != "" {
		cfg.SitePackages = v
	}
	if v := os.Getenv("PKGSLIM_PACKAGES"); v != "" {
		cfg.Packages = splitList(v)
	}
	if v := os.Getenv("PKGSLIM_RESOLVER_TIMEOUT_SECONDS"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			cfg.ResolverTimeoutSeconds = i
		}
	}
	if v := os.Getenv("PKGSLIM_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("PKGSLIM_JSON_LOGS"); v != "" {
		cfg.JSONLogs = v == "true" || v == "1" || v == "yes"
	}
}

// Validate checks that the configuration has valid required fields.
func (c *Config) Validate() error {
	if c.ResolverTimeoutSeconds < 0 {
		return fmt.Errorf("resolver_timeout_seconds must be non-negative")
	}
	if c.SitePackages != "" {
		if info, err := os.Stat(c.SitePackages); err != nil || !info.IsDir() {
			return fmt.Errorf("site_packages is not a directory: %s", c.SitePackages)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
