package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Environment variables that override file values.
const (
	EnvLogLevel           = "ICSREADER_LOG_LEVEL"
	EnvMaxEvents          = "ICSREADER_MAX_EVENTS"
	EnvOccurrenceOverflow = "ICSREADER_OCCURRENCE_OVERFLOW"
	EnvWeeklyStep         = "ICSREADER_WEEKLY_STEP"
	EnvVerify             = "ICSREADER_VERIFY"
	EnvCacheDir           = "ICSREADER_CACHE_DIR"
	EnvListen             = "ICSREADER_LISTEN"
	EnvRefresh            = "ICSREADER_REFRESH"
	EnvBasicAuthUser      = "ICSREADER_BASIC_AUTH_USER"
	EnvBasicAuthPassword  = "ICSREADER_BASIC_AUTH_PASSWORD"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables that are already set win. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return nil
}

// ApplyEnv overlays ICSREADER_* variables onto c and normalizes the result.
// Unparsable numbers and booleans are reported and leave the field untouched.
func (c *Config) ApplyEnv() error {
	var errs []error

	setString(&c.LogLevel, EnvLogLevel)
	setString(&c.OccurrenceOverflow, EnvOccurrenceOverflow)
	setString(&c.WeeklyStep, EnvWeeklyStep)
	setString(&c.CacheDir, EnvCacheDir)
	setString(&c.Listen, EnvListen)
	setString(&c.Refresh, EnvRefresh)

	if v, ok := os.LookupEnv(EnvMaxEvents); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, errors.New(EnvMaxEvents+": "+err.Error()))
		} else {
			c.MaxEvents = n
		}
	}
	if v, ok := os.LookupEnv(EnvVerify); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, errors.New(EnvVerify+": "+err.Error()))
		} else {
			c.Verify = b
		}
	}

	user, password := os.Getenv(EnvBasicAuthUser), os.Getenv(EnvBasicAuthPassword)
	if user != "" && password != "" {
		c.BasicAuth = &BasicAuthConfig{Username: user, Password: password}
	}

	c.Normalize()
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
