// Package config loads the INI configuration shared by every command.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultPath is read when no --config flag is given.
const DefaultPath = "ldap2kanboard.conf"

// EnvPrefix prefixes every environment override, e.g. LDAP2KANBOARD_KANBOARD_URL.
const EnvPrefix = "LDAP2KANBOARD"

// Config is the whole configuration file.
type Config struct {
	Kanboard    KanboardConfig    `mapstructure:"kanboard"`
	LDAP        LDAPConfig        `mapstructure:"ldap"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Templates   TemplatesConfig   `mapstructure:"json"`
	Identifiers IdentifiersConfig `mapstructure:"identifiers"`
}

// KanboardConfig is the [kanboard] section: JSON-RPC endpoint and credentials.
type KanboardConfig struct {
	URL      string        `mapstructure:"url"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LDAPConfig is the [ldap] section.
type LDAPConfig struct {
	URL                string        `mapstructure:"url"`
	BindDN             string        `mapstructure:"bind_dn"`
	Password           string        `mapstructure:"password"`
	SearchBase         string        `mapstructure:"search_base"`
	SearchFilter       string        `mapstructure:"search_filter"`
	StartTLS           bool          `mapstructure:"start_tls"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	StartDateField     string        `mapstructure:"start_date_field"`
	EndDateField       string        `mapstructure:"end_date_field"`
	Timeout            time.Duration `mapstructure:"timeout"`
}

// LoggingConfig is the [logging] section.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	File   string `mapstructure:"file"`
	Format string `mapstructure:"format"`
}

// TemplatesConfig names the template of each provisioning flow. The section is
// called [json] for compatibility with existing configuration files.
type TemplatesConfig struct {
	Onboarding  string `mapstructure:"onboarding"`
	Offboarding string `mapstructure:"offboarding"`
	Personal    string `mapstructure:"personal"`
}

// IdentifiersConfig holds the project identifier prefix of each provisioning flow.
type IdentifiersConfig struct {
	Onboarding  string `mapstructure:"onboarding"`
	Offboarding string `mapstructure:"offboarding"`
	Personal    string `mapstructure:"personal"`
}

var defaults = map[string]any{
	"kanboard.url":              "",
	"kanboard.user":             "jsonrpc",
	"kanboard.password":         "",
	"kanboard.timeout":          "30s",
	"ldap.url":                  "",
	"ldap.bind_dn":              "",
	"ldap.password":             "",
	"ldap.search_base":          "",
	"ldap.search_filter":        "(objectClass=inetOrgPerson)",
	"ldap.start_tls":            true,
	"ldap.insecure_skip_verify": true,
	"ldap.start_date_field":     "fdContractStartDate",
	"ldap.end_date_field":       "fdContractEndDate",
	"ldap.timeout":              "30s",
	"logging.level":             "INFO",
	"logging.file":              "",
	"logging.format":            "text",
	"json.onboarding":           "",
	"json.offboarding":          "",
	"json.personal":             "",
	"identifiers.onboarding":    "ONBOARDING",
	"identifiers.offboarding":   "OFFBOARDING",
	"identifiers.personal":      "PERSONAL",
}

// Load reads the INI file at path and applies environment overrides. An empty path
// skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(path)
		v.SetConfigType("ini")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// FileExists reports whether path names a readable file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, os.ErrNotExist)
}

// ValidateKanboard checks the settings every board command needs.
func (c *Config) ValidateKanboard() error {
	if c.Kanboard.URL == "" {
		return errors.New("kanboard.url is not set")
	}
	return nil
}

// ValidateLDAP checks the settings the directory flows need.
func (c *Config) ValidateLDAP() error {
	var missing []string
	if c.LDAP.URL == "" {
		missing = append(missing, "ldap.url")
	}
	if c.LDAP.SearchBase == "" {
		missing = append(missing, "ldap.search_base")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing settings: %s", strings.Join(missing, ", "))
	}
	return nil
}
