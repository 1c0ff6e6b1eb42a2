package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all classifier configuration.
type Config struct {
	KnowledgeBase string          `yaml:"knowledge_base"`
	Archive       ArchiveConfig   `yaml:"archive"`
	Ticketing     TicketingConfig `yaml:"ticketing"`
	Pipeline      PipelineConfig  `yaml:"pipeline"`
	Output        OutputConfig    `yaml:"output"`
	Log           LogConfig       `yaml:"log"`
	Metrics       MetricsConfig   `yaml:"metrics"`
}

// ArchiveConfig bounds how much of each attachment is scanned.
type ArchiveConfig struct {
	MaxFiles int `yaml:"max_files"`
	MaxLines int `yaml:"max_lines"` // 0 = unbounded
	// MaxFileBytes caps the decompressed bytes read from each selected file.
	MaxFileBytes int64 `yaml:"max_file_bytes"`
}

// TicketingConfig holds ticketing-system connection settings.
type TicketingConfig struct {
	Provider     string `yaml:"provider"`
	Endpoint     string `yaml:"endpoint"`
	Email        string `yaml:"email"`
	Token        string `yaml:"token"`
	AssigneeID   int64  `yaml:"assignee_id"`
	Query        string `yaml:"query"`
	ProcessedTag string `yaml:"processed_tag"`
}

// PipelineConfig controls ticket processing.
type PipelineConfig struct {
	Concurrency  int           `yaml:"concurrency"`
	PollInterval time.Duration `yaml:"poll_interval"`
	Memory       int           `yaml:"memory"` // processed ticket IDs remembered in watch mode
}

// OutputConfig selects where reports are written.
type OutputConfig struct {
	Format     string `yaml:"format"` // "stdout", "file", "webhook"
	Path       string `yaml:"path"`
	Pretty     bool   `yaml:"pretty"`
	Verbosity  string `yaml:"verbosity"` // "minimal", "standard"
	WebhookURL string `yaml:"webhook_url"`
	Async      bool   `yaml:"async"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text", "json"
}

// MetricsConfig holds the Prometheus endpoint address; empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file or env override is set.
func Default() Config {
	return Config{
		Archive: ArchiveConfig{MaxFiles: 5, MaxFileBytes: 64 << 20},
		Ticketing: TicketingConfig{
			Provider:     "zendesk",
			ProcessedTag: "log-classified",
		},
		Pipeline: PipelineConfig{
			Concurrency:  4,
			PollInterval: time.Minute,
			Memory:       4096,
		},
		Output: OutputConfig{Format: "stdout", Verbosity: "standard"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (skipped when path is empty), then environment variables. A .env file in
// the working directory is read first; existing env vars win over it.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %q: %w", path, err)
		}
		if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overlays LOGCLS_* environment variables onto cfg.
func applyEnv(cfg *Config) {
	cfg.KnowledgeBase = getenv("LOGCLS_KNOWLEDGE_BASE", cfg.KnowledgeBase)
	cfg.Archive.MaxFiles = getenvInt("LOGCLS_MAX_FILES", cfg.Archive.MaxFiles)
	cfg.Archive.MaxLines = getenvInt("LOGCLS_MAX_LINES", cfg.Archive.MaxLines)
	cfg.Archive.MaxFileBytes = getenvInt64("LOGCLS_MAX_FILE_BYTES", cfg.Archive.MaxFileBytes)

	cfg.Ticketing.Provider = getenv("LOGCLS_TICKETING_PROVIDER", cfg.Ticketing.Provider)
	cfg.Ticketing.Endpoint = getenv("LOGCLS_TICKETING_ENDPOINT", cfg.Ticketing.Endpoint)
	cfg.Ticketing.Email = getenv("LOGCLS_TICKETING_EMAIL", cfg.Ticketing.Email)
	cfg.Ticketing.Token = getenv("LOGCLS_TICKETING_TOKEN", cfg.Ticketing.Token)
	cfg.Ticketing.AssigneeID = getenvInt64("LOGCLS_TICKETING_ASSIGNEE_ID", cfg.Ticketing.AssigneeID)

	cfg.Pipeline.Concurrency = getenvInt("LOGCLS_CONCURRENCY", cfg.Pipeline.Concurrency)
	cfg.Pipeline.PollInterval = getenvDuration("LOGCLS_POLL_INTERVAL", cfg.Pipeline.PollInterval)

	cfg.Output.Format = getenv("LOGCLS_OUTPUT", cfg.Output.Format)
	cfg.Output.Path = getenv("LOGCLS_OUTPUT_PATH", cfg.Output.Path)
	cfg.Output.WebhookURL = getenv("LOGCLS_WEBHOOK_URL", cfg.Output.WebhookURL)

	cfg.Log.Level = getenv("LOGCLS_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getenv("LOGCLS_LOG_FORMAT", cfg.Log.Format)
	cfg.Metrics.Addr = getenv("LOGCLS_METRICS_ADDR", cfg.Metrics.Addr)
}

// Validate checks settings that every command needs. All problems are
// reported together.
func (c Config) Validate() error {
	var errs []error
	if c.KnowledgeBase == "" {
		errs = append(errs, errors.New("knowledge_base is required (LOGCLS_KNOWLEDGE_BASE)"))
	}
	if c.Archive.MaxFiles < 1 {
		errs = append(errs, fmt.Errorf("archive.max_files must be at least 1, got %d", c.Archive.MaxFiles))
	}
	if c.Archive.MaxLines < 0 {
		errs = append(errs, fmt.Errorf("archive.max_lines must not be negative, got %d", c.Archive.MaxLines))
	}
	if c.Archive.MaxFileBytes < 1 {
		errs = append(errs, fmt.Errorf("archive.max_file_bytes must be at least 1, got %d", c.Archive.MaxFileBytes))
	}
	if c.Pipeline.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("pipeline.concurrency must be at least 1, got %d", c.Pipeline.Concurrency))
	}
	switch c.Output.Format {
	case "stdout":
	case "file":
		if c.Output.Path == "" {
			errs = append(errs, errors.New("output.path is required for file output (LOGCLS_OUTPUT_PATH)"))
		}
	case "webhook":
		if c.Output.WebhookURL == "" {
			errs = append(errs, errors.New("output.webhook_url is required for webhook output (LOGCLS_WEBHOOK_URL)"))
		}
	default:
		errs = append(errs, fmt.Errorf("output.format %q is not one of stdout, file, webhook", c.Output.Format))
	}
	switch c.Output.Verbosity {
	case "minimal", "standard":
	default:
		errs = append(errs, fmt.Errorf("output.verbosity %q is not one of minimal, standard", c.Output.Verbosity))
	}
	return errors.Join(errs...)
}

// ValidateTicketing checks the settings required to talk to the ticketing system.
func (c Config) ValidateTicketing() error {
	var errs []error
	if c.Ticketing.Endpoint == "" {
		errs = append(errs, errors.New("ticketing.endpoint is required (LOGCLS_TICKETING_ENDPOINT)"))
	}
	if c.Ticketing.Token == "" {
		errs = append(errs, errors.New("ticketing.token is required (LOGCLS_TICKETING_TOKEN)"))
	}
	if c.Pipeline.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.poll_interval must be positive, got %v", c.Pipeline.PollInterval))
	}
	return errors.Join(errs...)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
