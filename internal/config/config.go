// Package config loads deedscan settings from viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/deedscan/internal/chunk"
	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/engine"
	"github.com/Veraticus/deedscan/internal/extract"
	"github.com/Veraticus/deedscan/internal/llm"
	"github.com/Veraticus/deedscan/internal/progress"
	"github.com/Veraticus/deedscan/internal/storage"
)

// EnvPrefix is prepended to environment overrides, e.g. DEEDSCAN_LLM_MODEL.
const EnvPrefix = "DEEDSCAN"

// Config is the fully resolved application configuration.
type Config struct {
	Logging   LoggingConfig
	Database  storage.Config
	LLM       llm.Config
	Extractor ExtractorConfig
	Chunk     chunk.BudgetPolicy
	Batch     engine.BatchPolicy
	Progress  ProgressConfig
	Cache     CacheConfig
	Watch     WatchConfig
	PDFToText string
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// ExtractorConfig selects the segment extractor.
type ExtractorConfig struct {
	Kind       extract.Kind
	MaxRetries int
}

// ProgressConfig bounds the percentages reported during extraction and
// how long finished sessions stay readable.
type ProgressConfig struct {
	Lower int
	Upper int
	TTL   time.Duration
}

// CacheConfig controls the extraction result cache.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// WatchConfig controls the directory watcher.
type WatchConfig struct {
	Debounce    time.Duration
	InitialScan bool
}

// DefaultDatabasePath returns ~/.local/share/deedscan/deedscan.db.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "deedscan.db"
	}
	return filepath.Join(home, ".local", "share", "deedscan", "deedscan.db")
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("database.driver", storage.DriverSQLite)
	v.SetDefault("database.path", DefaultDatabasePath())

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", llm.DefaultMaxTokens)
	v.SetDefault("llm.timeout", llm.DefaultTimeout)
	v.SetDefault("llm.rate_limit", 0)

	v.SetDefault("extractor.kind", string(extract.KindAuto))
	v.SetDefault("extractor.max_retries", extract.DefaultMaxAttempts)

	v.SetDefault("chunk.floor", chunk.DefaultBudgetPolicy().Floor)
	v.SetDefault("batch.hard_ceiling", engine.DefaultHardCeiling)

	v.SetDefault("progress.lower", 20)
	v.SetDefault("progress.upper", 85)
	v.SetDefault("progress.ttl", progress.DefaultTTL)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", storage.DefaultCacheTTL)

	v.SetDefault("watch.debounce", 2*time.Second)
	v.SetDefault("watch.initial_scan", true)

	v.SetDefault("pdftotext.path", "pdftotext")
}

// Load resolves a Config from v. SetDefaults should have been called.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: storage.Config{
			Driver:   v.GetString("database.driver"),
			Path:     ExpandPath(v.GetString("database.path")),
			DSN:      v.GetString("database.dsn"),
			CacheTTL: v.GetDuration("cache.ttl"),
		},
		LLM: llm.Config{
			Provider:    v.GetString("llm.provider"),
			Model:       v.GetString("llm.model"),
			APIKey:      v.GetString("llm.api_key"),
			BaseURL:     v.GetString("llm.base_url"),
			Temperature: v.GetFloat64("llm.temperature"),
			MaxTokens:   v.GetInt("llm.max_tokens"),
			Timeout:     v.GetDuration("llm.timeout"),
			RateLimit:   v.GetInt("llm.rate_limit"),
		},
		Extractor: ExtractorConfig{
			Kind:       extract.Kind(v.GetString("extractor.kind")),
			MaxRetries: v.GetInt("extractor.max_retries"),
		},
		Progress: ProgressConfig{
			Lower: v.GetInt("progress.lower"),
			Upper: v.GetInt("progress.upper"),
			TTL:   v.GetDuration("progress.ttl"),
		},
		Cache: CacheConfig{
			Enabled: v.GetBool("cache.enabled"),
			TTL:     v.GetDuration("cache.ttl"),
		},
		Watch: WatchConfig{
			Debounce:    v.GetDuration("watch.debounce"),
			InitialScan: v.GetBool("watch.initial_scan"),
		},
		PDFToText: ExpandPath(v.GetString("pdftotext.path")),
	}

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = providerKeyFromEnv(cfg.LLM.Provider)
	}

	cfg.Chunk = chunk.DefaultBudgetPolicy()
	cfg.Chunk.Floor = v.GetInt("chunk.floor")
	if v.IsSet("chunk.bands") {
		var bands []chunk.Band
		if err := v.UnmarshalKey("chunk.bands", &bands); err != nil {
			return nil, fmt.Errorf("%w: chunk.bands: %w", common.ErrInvalidConfig, err)
		}
		cfg.Chunk.Bands = bands
	}

	cfg.Batch = engine.DefaultBatchPolicy()
	cfg.Batch.HardCeiling = v.GetInt("batch.hard_ceiling")
	if v.IsSet("batch.bands") {
		var bands []engine.BatchBand
		if err := v.UnmarshalKey("batch.bands", &bands); err != nil {
			return nil, fmt.Errorf("%w: batch.bands: %w", common.ErrInvalidConfig, err)
		}
		cfg.Batch.Bands = bands
	}
	if v.IsSet("batch.fallback") {
		var fallback engine.BatchBand
		if err := v.UnmarshalKey("batch.fallback", &fallback); err != nil {
			return nil, fmt.Errorf("%w: batch.fallback: %w", common.ErrInvalidConfig, err)
		}
		cfg.Batch.Fallback = fallback
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if err := c.Chunk.Validate(); err != nil {
		return err
	}
	if err := c.Batch.Validate(); err != nil {
		return err
	}

	switch strings.ToLower(c.Database.Driver) {
	case "", storage.DriverSQLite, "sqlite":
	case storage.DriverPostgres, "postgres", "postgresql":
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for %s", common.ErrMissingConfig, c.Database.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}

	switch extract.Kind(strings.ToLower(string(c.Extractor.Kind))) {
	case extract.KindAuto, extract.KindLLM, extract.KindRegex, "":
	default:
		return fmt.Errorf("%w: unknown extractor kind %q", common.ErrInvalidConfig, c.Extractor.Kind)
	}
	if c.Extractor.MaxRetries < 1 {
		return fmt.Errorf("%w: extractor.max_retries must be at least 1", common.ErrInvalidConfig)
	}

	if c.Progress.Lower < 0 || c.Progress.Upper > 100 || c.Progress.Lower >= c.Progress.Upper {
		return fmt.Errorf("%w: progress range %d-%d", common.ErrInvalidConfig, c.Progress.Lower, c.Progress.Upper)
	}

	return nil
}

// HasLLM reports whether a model client can be built.
func (c *Config) HasLLM() bool {
	return c.LLM.APIKey != ""
}

func providerKeyFromEnv(provider string) string {
	switch strings.ToLower(provider) {
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}
