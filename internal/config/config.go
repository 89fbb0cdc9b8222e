// Package config loads and validates pg-guard.yaml.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"pg-guard/internal/checks"
	"pg-guard/internal/model"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "pg-guard.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "pg-guard.yml"

// envPrefix maps PG_GUARD_CHECK_DOWN=true onto the check_down key.
const envPrefix = "PG_GUARD_"

// Accepts YYYY_MM_DD_HHMMSS, YYYY-MM-DD-HHMMSS, or YYYYMMDDHHMMSS. Mixed
// separators are rejected.
var timestampPattern = regexp.MustCompile(`^(\d{4}_\d{2}_\d{2}_\d{6}|\d{4}-\d{2}-\d{2}-\d{6}|\d{14})$`)

// Config holds the project-level settings.
type Config struct {
	// StartAfter skips migrations at or before this timestamp.
	StartAfter string `koanf:"start_after"`

	// CheckDown enables checking down.sql files in addition to up.sql.
	CheckDown bool `koanf:"check_down"`

	// DisableChecks lists check names to turn off.
	DisableChecks []string `koanf:"disable_checks"`

	// DropPrimaryKeySeverity sets how the heuristic drop_primary_key check
	// reports: "error" (default) or "warning".
	DropPrimaryKeySeverity string `koanf:"drop_primary_key_severity"`
}

// Default returns the zero configuration: all checks on, no filtering.
func Default() *Config {
	return &Config{}
}

// Load reads pg-guard.yaml from the current directory, layering PG_GUARD_*
// environment variables on top. A missing config file is not an error.
func Load() (*Config, error) {
	return LoadFromDir(".")
}

// LoadFromDir loads configuration from the given directory.
func LoadFromDir(dir string) (*Config, error) {
	return load(findConfigFile(dir))
}

// LoadFromPath loads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration values against the check catalog and the
// accepted timestamp formats.
func (c *Config) Validate() error {
	if c.StartAfter != "" && !timestampPattern.MatchString(c.StartAfter) {
		return fmt.Errorf("invalid start_after timestamp %q: expected YYYYMMDDHHMMSS, YYYY_MM_DD_HHMMSS, or YYYY-MM-DD-HHMMSS", c.StartAfter)
	}
	for _, name := range c.DisableChecks {
		if !checks.IsValidName(name) {
			return fmt.Errorf("invalid check name %q: valid names are %s", name, strings.Join(checks.Names(), ", "))
		}
	}
	switch c.DropPrimaryKeySeverity {
	case "", "error", "warning":
	default:
		return fmt.Errorf("invalid drop_primary_key_severity %q: expected \"error\" or \"warning\"", c.DropPrimaryKeySeverity)
	}
	return nil
}

// IsCheckEnabled reports whether the named check should run.
func (c *Config) IsCheckEnabled(name string) bool {
	for _, disabled := range c.DisableChecks {
		if disabled == name {
			return false
		}
	}
	return true
}

// Policy translates configuration into the knobs the check catalog accepts.
func (c *Config) Policy() checks.Policy {
	p := checks.Policy{}
	if c.DropPrimaryKeySeverity == "warning" {
		p.DropPrimaryKeySeverity = model.SeverityWarning
	}
	return p
}

// ShouldCheckMigration reports whether a migration directory passes the
// start_after filter. Comparison happens on normalized timestamps, so any of
// the accepted separator styles can be mixed between config and directory
// names. Directories whose names carry no usable timestamp are always
// checked.
func (c *Config) ShouldCheckMigration(migrationDirName string) bool {
	if c.StartAfter == "" {
		return true
	}

	startAfter := normalizeTimestamp(c.StartAfter)
	migration := normalizeTimestamp(migrationDirName)
	if len(migration) < 14 {
		return true
	}

	// Lexicographic comparison works on the normalized 14-digit form.
	// Strictly after: a migration matching start_after exactly is skipped.
	return migration[:14] > startAfter
}

// normalizeTimestamp strips every non-digit character.
func normalizeTimestamp(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func findConfigFile(dir string) string {
	yamlPath := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}

	ymlPath := filepath.Join(dir, ConfigFileNameAlt)
	if _, err := os.Stat(ymlPath); err == nil {
		return ymlPath
	}

	return ""
}

// DefaultYAML is the config template written by the init command.
const DefaultYAML = `# pg-guard configuration

# Skip migrations at or before this timestamp.
# Accepted formats: YYYYMMDDHHMMSS, YYYY_MM_DD_HHMMSS, YYYY-MM-DD-HHMMSS
# start_after: "20240101000000"

# Also check down.sql files.
check_down: false

# Check names to turn off. Run 'pg-guard rules' for the full list.
disable_checks: []

# Report confidence for the heuristic drop_primary_key check: error or warning.
drop_primary_key_severity: error
`
