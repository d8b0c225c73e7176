package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/BadgerOps/transferwatch/internal/safety"
)

// Environment variables that override the file.
const (
	EnvAPIURL = "TRANSFERWATCH_API_URL"
	EnvListen = "TRANSFERWATCH_LISTEN"
	EnvDBPath = "TRANSFERWATCH_DB_PATH"
)

// Config is the top-level configuration
type Config struct {
	Gateway GatewayConfig `yaml:"gateway"`
	Polling PollingConfig `yaml:"polling"`
	Server  ServerConfig  `yaml:"server"`
	Reports ReportsConfig `yaml:"reports"`
	Alerts  AlertsConfig  `yaml:"alerts"`
}

// GatewayConfig describes how to reach the automation node
type GatewayConfig struct {
	BaseURL      string   `yaml:"base_url"`
	ClientHeader string   `yaml:"client_header"`
	ClientID     string   `yaml:"client_id"`
	Timeout      Duration `yaml:"timeout"`
	RateLimit    float64  `yaml:"rate_limit"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
}

// Cadence is the pair of poll intervals of one widget
type Cadence struct {
	Interval         Duration `yaml:"interval"`
	FallbackInterval Duration `yaml:"fallback_interval"`
}

// PollingConfig holds the cadence of every dashboard widget
type PollingConfig struct {
	Transfers Cadence `yaml:"transfers"`
	Alerts    Cadence `yaml:"alerts"`
	Audit     Cadence `yaml:"audit"`
	Status    Cadence `yaml:"status"`
	Health    Cadence `yaml:"health"`
}

// ServerConfig holds dashboard server settings
type ServerConfig struct {
	Listen           string   `yaml:"listen"`
	DBPath           string   `yaml:"db_path"`
	JournalRetention Duration `yaml:"journal_retention"`
}

// ReportsConfig holds report download settings
type ReportsConfig struct {
	OutputDir    string   `yaml:"output_dir"`
	ReleaseDelay Duration `yaml:"release_delay"`
}

// AlertsConfig bounds the derived alert and audit lists
type AlertsConfig struct {
	Limit      int `yaml:"limit"`
	AuditLimit int `yaml:"audit_limit"`
	AuditDays  int `yaml:"audit_days"`
}

// Duration is a time.Duration written as "5s" in YAML.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("decoding duration: %w", err)
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q: %w", node.Line, raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			BaseURL:      "http://localhost:8000",
			ClientHeader: "X-Ketter-Client",
			ClientID:     "UI",
			Timeout:      Duration(30 * time.Second),
			MaxBodyBytes: 32 << 20,
		},
		Polling: PollingConfig{
			Transfers: cadence(5*time.Second, 15*time.Second),
			Alerts:    cadence(10*time.Second, 20*time.Second),
			Audit:     cadence(6*time.Second, 18*time.Second),
			Status:    cadence(10*time.Second, 20*time.Second),
			Health:    cadence(15*time.Second, 30*time.Second),
		},
		Server: ServerConfig{
			Listen:           "127.0.0.1:8090",
			DBPath:           "",
			JournalRetention: Duration(24 * time.Hour),
		},
		Reports: ReportsConfig{
			OutputDir:    ".",
			ReleaseDelay: Duration(3 * time.Second),
		},
		Alerts: AlertsConfig{
			Limit:      6,
			AuditLimit: 200,
			AuditDays:  1,
		},
	}
}

func cadence(interval, fallback time.Duration) Cadence {
	return Cadence{Interval: Duration(interval), FallbackInterval: Duration(fallback)}
}

// Load reads a config file from the given path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in standard locations
func FindConfigFile() (string, error) {
	searchPaths := []string{
		"transferwatch.yaml",
		"/etc/transferwatch/transferwatch.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "transferwatch", "transferwatch.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", searchPaths)
}

// ApplyEnv overlays environment settings. Values from dotenvPath are
// used only when the process environment does not set the same key; a
// missing dotenv file is not an error.
func (c *Config) ApplyEnv(dotenvPath string) error {
	values := map[string]string{}
	if dotenvPath != "" {
		fileValues, err := godotenv.Read(dotenvPath)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", dotenvPath, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	for _, key := range []string{EnvAPIURL, EnvListen, EnvDBPath} {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}

	if v := values[EnvAPIURL]; v != "" {
		c.Gateway.BaseURL = v
	}
	if v := values[EnvListen]; v != "" {
		c.Server.Listen = v
	}
	if v := values[EnvDBPath]; v != "" {
		c.Server.DBPath = v
	}
	return nil
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var errs []error

	if _, err := safety.ParseBaseURL(c.Gateway.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("gateway.base_url: %w", err))
	}
	if c.Gateway.Timeout < 0 {
		errs = append(errs, fmt.Errorf("gateway.timeout must not be negative"))
	}
	if c.Gateway.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("gateway.rate_limit must not be negative"))
	}

	for name, cad := range c.Polling.byName() {
		if cad.Interval <= 0 {
			errs = append(errs, fmt.Errorf("polling.%s.interval must be positive", name))
		}
		if cad.FallbackInterval < 0 {
			errs = append(errs, fmt.Errorf("polling.%s.fallback_interval must not be negative", name))
		}
	}

	if c.Reports.ReleaseDelay <= 0 {
		errs = append(errs, fmt.Errorf("reports.release_delay must be positive"))
	}
	if c.Alerts.Limit < 0 || c.Alerts.AuditLimit < 0 || c.Alerts.AuditDays < 0 {
		errs = append(errs, fmt.Errorf("alerts limits must not be negative"))
	}

	return errors.Join(errs...)
}

func (p PollingConfig) byName() map[string]Cadence {
	return map[string]Cadence{
		"transfers": p.Transfers,
		"alerts":    p.Alerts,
		"audit":     p.Audit,
		"status":    p.Status,
		"health":    p.Health,
	}
}

// JournalPath returns the SQLite journal path, defaulting next to the
// user's cache directory.
func (c *Config) JournalPath() string {
	if c.Server.DBPath != "" {
		return c.Server.DBPath
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "transferwatch", "journal.db")
	}
	return "transferwatch.db"
}

// Marshal renders the config as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}
