package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Overflow policies for recurring events with more in-window dates than the
// recurrence cap.
const (
	OverflowTruncate = "truncate"
	OverflowError    = "error"
)

// Weekly step modes.
const (
	// StepInteger adds 7 to the YYYYMMDD integer. Dates drift past the end of
	// a month (20220329 -> 20220336); this is the established output format.
	StepInteger = "integer"
	// StepCalendar walks real calendar weeks.
	StepCalendar = "calendar"
)

const (
	DefaultMaxEvents = 500
	DefaultCacheDir  = "./var/ics-cache"
	DefaultListen    = "127.0.0.1:8080"
	DefaultRefresh   = "*/15 * * * *"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for --serve.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MaxEvents bounds the number of VEVENT records read from one input.
	MaxEvents int `yaml:"max_events" json:"max_events"`

	// OccurrenceOverflow decides what happens when a recurring event has more
	// in-window dates than fit: "truncate" (default) or "error".
	OccurrenceOverflow string `yaml:"occurrence_overflow" json:"occurrence_overflow"`

	// WeeklyStep selects "integer" (default) or "calendar" week stepping.
	WeeklyStep string `yaml:"weekly_step" json:"weekly_step"`

	// Verify cross-checks the record count against a full iCalendar parse.
	Verify bool `yaml:"verify" json:"verify"`

	// CacheDir holds cached bodies of http(s) inputs.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// Listen is the HTTP listen address used by --serve.
	Listen string `yaml:"listen" json:"listen"`

	// BasicAuth, if non-nil, protects everything but /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	// Refresh is the cron schedule used by --watch.
	Refresh string `yaml:"refresh" json:"refresh"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:           "info",
		MaxEvents:          DefaultMaxEvents,
		OccurrenceOverflow: OverflowTruncate,
		WeeklyStep:         StepInteger,
		Verify:             false,
		CacheDir:           DefaultCacheDir,
		Listen:             DefaultListen,
		BasicAuth:          nil,
		Refresh:            DefaultRefresh,
	}
}

// Normalize fills in missing/zero values with defaults so that partially
// filled files still behave correctly.
func (c *Config) Normalize() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.MaxEvents <= 0 {
		c.MaxEvents = DefaultMaxEvents
	}

	switch strings.ToLower(c.OccurrenceOverflow) {
	case OverflowTruncate, OverflowError:
		c.OccurrenceOverflow = strings.ToLower(c.OccurrenceOverflow)
	default:
		c.OccurrenceOverflow = OverflowTruncate
	}

	switch strings.ToLower(c.WeeklyStep) {
	case StepInteger, StepCalendar:
		c.WeeklyStep = strings.ToLower(c.WeeklyStep)
	default:
		// Unknown value; keep the established output.
		c.WeeklyStep = StepInteger
	}

	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.Refresh == "" {
		c.Refresh = DefaultRefresh
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - Empty path: return defaults, nothing is written.
//   - File does not exist: write a default config with 0600 perms and
//     return it.
//   - Otherwise: unmarshal and normalize.
func Load(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".icsreader-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience wrapper around the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
