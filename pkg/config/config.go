// Package config loads pulsebot configuration from an optional YAML file
// with environment variable overrides. The environment names match the ones
// the deployment has always used (TELEGRAM_TOKEN, JIRA_URL, ...).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Tracker  TrackerConfig  `yaml:"tracker"`
	Access   AccessConfig   `yaml:"access"`
	Store    StoreConfig    `yaml:"store"`
	Bus      BusConfig      `yaml:"bus"`
	Server   ServerConfig   `yaml:"server"`
}

// TelegramConfig configures the chat transport.
type TelegramConfig struct {
	Token           string `yaml:"token"`
	PollTimeoutSecs int    `yaml:"poll_timeout_secs"`
}

// TrackerConfig configures the issue tracker client.
type TrackerConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	APIToken string `yaml:"api_token"`
}

// AccessConfig holds the operator allow-list.
type AccessConfig struct {
	AllowedUserIDs []int64 `yaml:"allowed_user_ids"`
}

// StoreConfig selects the survey store backend.
type StoreConfig struct {
	Backend   string `yaml:"backend"` // "file", "sqlite", "postgres", "redis"
	DataDir   string `yaml:"data_dir"`
	Path      string `yaml:"path"`
	DSN       string `yaml:"dsn"`
	RedisAddr string `yaml:"redis_addr"`
}

// BusConfig selects the message bus backend.
type BusConfig struct {
	Backend string `yaml:"backend"` // "memory", "nats"
	URL     string `yaml:"url"`
}

// ServerConfig configures the health/metrics endpoint.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{PollTimeoutSecs: 30},
		Store:    StoreConfig{Backend: "file", DataDir: "data"},
		Bus:      BusConfig{Backend: "memory"},
		Server:   ServerConfig{ListenAddr: ":9090"},
	}
}

// LoadFromFile reads a YAML config file over the defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Load builds the configuration: defaults, then the file at path (if path is
// non-empty the file must exist), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto the config. A malformed
// override is a configuration error and aborts the load rather than
// falling back to whatever the file configured.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		c.Telegram.Token = v
	}
	if v := os.Getenv("JIRA_URL"); v != "" {
		c.Tracker.URL = v
	}
	if v := os.Getenv("JIRA_USERNAME"); v != "" {
		c.Tracker.Username = v
	}
	if v := os.Getenv("JIRA_API_TOKEN"); v != "" {
		c.Tracker.APIToken = v
	}
	if v := os.Getenv("ALLOWED_USERS"); v != "" {
		ids, err := parseUserIDs(v)
		if err != nil {
			return fmt.Errorf("invalid ALLOWED_USERS: %w", err)
		}
		c.Access.AllowedUserIDs = ids
	}
	if v := os.Getenv("PULSEBOT_STORE_BACKEND"); v != "" {
		c.Store.Backend = v
	}
	if v := os.Getenv("PULSEBOT_NATS_URL"); v != "" {
		c.Bus.Backend = "nats"
		c.Bus.URL = v
	}
	if v := os.Getenv("PULSEBOT_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	return nil
}

func parseUserIDs(v string) ([]int64, error) {
	parts := strings.Split(v, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Validate reports missing required settings. A failed validation is the
// only fatal error class in the system.
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, "telegram token (TELEGRAM_TOKEN)")
	}
	if c.Tracker.URL == "" {
		missing = append(missing, "tracker url (JIRA_URL)")
	}
	if c.Tracker.Username == "" {
		missing = append(missing, "tracker username (JIRA_USERNAME)")
	}
	if c.Tracker.APIToken == "" {
		missing = append(missing, "tracker api token (JIRA_API_TOKEN)")
	}
	if len(c.Access.AllowedUserIDs) == 0 {
		missing = append(missing, "operator allow-list (ALLOWED_USERS)")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}
