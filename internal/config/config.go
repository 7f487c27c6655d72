// Package config loads scanlog configuration from defaults, an optional YAML
// file and SCANLOG_* environment variables, in that order, then validates the
// result against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SCANLOG_"

// Config holds every runtime setting.
type Config struct {
	// Database is the SQLite file path.
	Database string `yaml:"database" json:"database"`
	// Listen is the HTTP listen address for serve.
	Listen string `yaml:"listen" json:"listen"`
	// BackupDir receives compaction backups.
	BackupDir string `yaml:"backup_dir" json:"backup_dir"`

	// HistoryLimit is the default number of records in /history.
	HistoryLimit int `yaml:"history_limit" json:"history_limit"`
	// PageSize is the admin listing page size.
	PageSize int `yaml:"page_size" json:"page_size"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`

	Log  LogConfig  `yaml:"log" json:"log"`
	HTTP HTTPConfig `yaml:"http" json:"http"`
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// HTTPConfig holds http.Server timeouts.
type HTTPConfig struct {
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Database:        "scanlog.db",
		Listen:          ":5000",
		BackupDir:       "backups",
		HistoryLimit:    10,
		PageSize:        20,
		ShutdownTimeout: 5 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		HTTP: HTTPConfig{
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Load builds the configuration. path may be empty, in which case only
// defaults and the environment are used. Unknown YAML keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error

	cfg.Database = getEnvDefault("DATABASE", cfg.Database)
	cfg.Listen = getEnvDefault("LISTEN", cfg.Listen)
	cfg.BackupDir = getEnvDefault("BACKUP_DIR", cfg.BackupDir)
	cfg.Log.Level = strings.ToLower(getEnvDefault("LOG_LEVEL", cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(getEnvDefault("LOG_FORMAT", cfg.Log.Format))

	if cfg.HistoryLimit, err = getEnvInt("HISTORY_LIMIT", cfg.HistoryLimit); err != nil {
		return err
	}
	if cfg.PageSize, err = getEnvInt("PAGE_SIZE", cfg.PageSize); err != nil {
		return err
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return err
	}
	if cfg.HTTP.ReadTimeout, err = getEnvDuration("HTTP_READ_TIMEOUT", cfg.HTTP.ReadTimeout); err != nil {
		return err
	}
	if cfg.HTTP.WriteTimeout, err = getEnvDuration("HTTP_WRITE_TIMEOUT", cfg.HTTP.WriteTimeout); err != nil {
		return err
	}
	if cfg.HTTP.IdleTimeout, err = getEnvDuration("HTTP_IDLE_TIMEOUT", cfg.HTTP.IdleTimeout); err != nil {
		return err
	}
	return nil
}

// Validate checks cfg against the embedded CUE schema.
func (cfg Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	v := ctx.Encode(cfg)
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := def.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// SlogLevel returns the configured level.
func (cfg Config) SlogLevel() slog.Level {
	level, _ := parseLogLevel(cfg.Log.Level)
	return level
}

// SetupLogger installs a slog handler writing to w as the default logger.
func SetupLogger(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.Log.Format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("%s%s: invalid integer %q", EnvPrefix, key, val)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(EnvPrefix + key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s%s: invalid duration %q (use Go syntax: 30s, 1m)", EnvPrefix, key, val)
	}
	return d, nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q, expected debug, info, warn or error", level)
	}
}
