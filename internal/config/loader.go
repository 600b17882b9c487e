package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/example/tutor-scheduler/internal/logging"
)

// Config captures file and environment driven settings for the tutor scheduler.
type Config struct {
	HTTPAddr          string        `yaml:"http_addr" env:"TUTOR_HTTP_ADDR"`
	SQLitePath        string        `yaml:"sqlite_path" env:"TUTOR_SQLITE_PATH"`
	AccessKeyHash     string        `yaml:"access_key_hash" env:"TUTOR_ACCESS_KEY_HASH"`
	LogLevel          string        `yaml:"log_level" env:"TUTOR_LOG_LEVEL"`
	LogFormat         string        `yaml:"log_format" env:"TUTOR_LOG_FORMAT"`
	Timezone          string        `yaml:"timezone" env:"TUTOR_TIMEZONE"`
	Locale            string        `yaml:"locale" env:"TUTOR_LOCALE"`
	ICSExportPath     string        `yaml:"ics_export_path" env:"TUTOR_ICS_EXPORT_PATH"`
	ICSExportSchedule string        `yaml:"ics_export_schedule" env:"TUTOR_ICS_EXPORT_SCHEDULE"`
	FreeSlotCacheTTL  time.Duration `yaml:"free_slot_cache_ttl" env:"TUTOR_FREE_SLOT_CACHE_TTL"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout" env:"TUTOR_SHUTDOWN_TIMEOUT"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		HTTPAddr:          ":8080",
		SQLitePath:        "tutor.db",
		LogLevel:          "info",
		LogFormat:         "json",
		Timezone:          "Asia/Singapore",
		Locale:            "en-SG",
		ICSExportSchedule: "@hourly",
		FreeSlotCacheTTL:  30 * time.Second,
		ShutdownTimeout:   10 * time.Second,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then TUTOR_* environment variables. Every
// invalid field is reported in a single joined error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every field and joins the problems found.
func (c Config) Validate() error {
	var errs []error
	invalid := func(field, format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %s", field, fmt.Sprintf(format, args...)))
	}

	if strings.TrimSpace(c.HTTPAddr) == "" {
		invalid("http_addr", "is required")
	}
	if strings.TrimSpace(c.SQLitePath) == "" {
		invalid("sqlite_path", "is required")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		invalid("log_level", "%v", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		invalid("log_format", "must be json or text, got %q", c.LogFormat)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		invalid("timezone", "%v", err)
	}
	if _, err := language.Parse(c.Locale); err != nil {
		invalid("locale", "%v", err)
	}
	if _, err := cron.ParseStandard(c.ICSExportSchedule); err != nil {
		invalid("ics_export_schedule", "%v", err)
	}
	if c.FreeSlotCacheTTL <= 0 {
		invalid("free_slot_cache_ttl", "must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		invalid("shutdown_timeout", "must be positive")
	}
	if hash := strings.TrimSpace(c.AccessKeyHash); hash != "" && !strings.HasPrefix(hash, "$argon2id$") {
		invalid("access_key_hash", "must be an argon2id hash")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// Location resolves the configured timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Language resolves the configured locale.
func (c Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// ExportEnabled reports whether periodic calendar export is configured.
func (c Config) ExportEnabled() bool {
	return strings.TrimSpace(c.ICSExportPath) != ""
}
