// Package config loads deskmate settings from YAML with environment overrides.
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/0xcro3dile/deskmate/internal/domain/entities"
	"github.com/0xcro3dile/deskmate/internal/domain/ports"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "deskmate.yaml"

// Config holds all deskmate configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	History   HistoryConfig   `yaml:"history"`
	Assistant AssistantConfig `yaml:"assistant"`
	Session   SessionConfig   `yaml:"session"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
	ShutdownTimeout string   `yaml:"shutdown_timeout"`
}

// LLMConfig selects and tunes the chat-completion provider.
type LLMConfig struct {
	Provider    string  `yaml:"provider"` // openai, gemini
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	Timeout     string  `yaml:"timeout"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// DatabaseConfig points at the relational store.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite3 (cgo) or sqlite (pure Go)
	Path   string `yaml:"path"`
}

// StorageConfig configures public file URLs and content extraction.
type StorageConfig struct {
	PublicBaseURL      string `yaml:"public_base_url"`
	Bucket             string `yaml:"bucket"`
	FetchTimeout       string `yaml:"fetch_timeout"`
	MaxAttachmentBytes int64  `yaml:"max_attachment_bytes"`
	MaxTextChars       int    `yaml:"max_text_chars"`
}

// HistoryConfig selects where chat transcripts persist.
type HistoryConfig struct {
	Backend          string `yaml:"backend"` // memory, sqlite, firestore
	Path             string `yaml:"path"`
	Driver           string `yaml:"driver"`
	FirestoreProject string `yaml:"firestore_project"`
	Collection       string `yaml:"collection"`
	Limit            int    `yaml:"limit"`
}

// AssistantConfig tunes snapshot reuse and aggregation.
type AssistantConfig struct {
	SnapshotTTL        string `yaml:"snapshot_ttl"`
	ProjectConcurrency int    `yaml:"project_concurrency"`
}

// SessionConfig tunes the chat session controller.
type SessionConfig struct {
	Debounce            string `yaml:"debounce"`
	FileRefreshInterval string `yaml:"file_refresh_interval"`
	MaxRetries          int    `yaml:"max_retries"`
	IdleTimeout         string `yaml:"idle_timeout"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: "10s",
		},
		LLM: LLMConfig{
			Provider:    "openai",
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Timeout:     "60s",
			Temperature: 0.7,
			MaxTokens:   1000,
		},
		Database: DatabaseConfig{
			Driver: "sqlite3",
			Path:   "data/deskmate.db",
		},
		Storage: StorageConfig{
			Bucket:             "project-files",
			FetchTimeout:       "15s",
			MaxAttachmentBytes: 5_000_000,
			MaxTextChars:       15_000,
		},
		History: HistoryConfig{
			Backend:    "sqlite",
			Path:       "data/history.db",
			Driver:     "sqlite3",
			Collection: "chat_history",
			Limit:      50,
		},
		Assistant: AssistantConfig{
			SnapshotTTL: "5m",
		},
		Session: SessionConfig{
			Debounce:            "300ms",
			FileRefreshInterval: "30s",
			MaxRetries:          2,
			IdleTimeout:         "30m",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Provider keys in priority order; the last one set wins.
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "openai"
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
		c.LLM.Provider = "gemini"
	}
	if key := os.Getenv("DESKMATE_LLM_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}

	setString(&c.LLM.Provider, "DESKMATE_LLM_PROVIDER")
	setString(&c.LLM.BaseURL, "DESKMATE_LLM_BASE_URL")
	setString(&c.LLM.Model, "DESKMATE_LLM_MODEL")
	setString(&c.Server.Addr, "DESKMATE_ADDR")
	setString(&c.Database.Driver, "DESKMATE_DB_DRIVER")
	setString(&c.Database.Path, "DESKMATE_DB")
	setString(&c.Storage.PublicBaseURL, "DESKMATE_STORAGE_URL")
	setString(&c.Storage.Bucket, "DESKMATE_STORAGE_BUCKET")
	setString(&c.History.Backend, "DESKMATE_HISTORY_BACKEND")
	setString(&c.History.Path, "DESKMATE_HISTORY_PATH")
	setString(&c.History.FirestoreProject, "DESKMATE_FIRESTORE_PROJECT")
	setString(&c.Logging.Level, "DESKMATE_LOG_LEVEL")

	if v := os.Getenv("DESKMATE_LOG_JSON"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.JSON = b
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// GetLLMTimeout returns the LLM request timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 60*time.Second)
}

// GetFetchTimeout returns the attachment fetch timeout as a duration.
func (c *Config) GetFetchTimeout() time.Duration {
	return parseDuration(c.Storage.FetchTimeout, 15*time.Second)
}

// GetSnapshotTTL returns how long a cached snapshot is reused.
func (c *Config) GetSnapshotTTL() time.Duration {
	return parseDuration(c.Assistant.SnapshotTTL, 5*time.Minute)
}

// GetDebounce returns the send debounce window.
func (c *Config) GetDebounce() time.Duration {
	return parseDuration(c.Session.Debounce, 300*time.Millisecond)
}

// GetFileRefreshInterval returns the minimum gap between forced refreshes for file questions.
func (c *Config) GetFileRefreshInterval() time.Duration {
	return parseDuration(c.Session.FileRefreshInterval, 30*time.Second)
}

// GetSessionIdleTimeout returns how long an unused server session stays mounted.
func (c *Config) GetSessionIdleTimeout() time.Duration {
	return parseDuration(c.Session.IdleTimeout, 30*time.Minute)
}

// GetShutdownTimeout returns the HTTP graceful shutdown timeout.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// ValidProviders lists the supported LLM providers.
var ValidProviders = []string{"openai", "gemini"}

// ValidHistoryBackends lists the supported transcript stores.
var ValidHistoryBackends = []string{"memory", "sqlite", "firestore"}

// Validate checks the configuration for the assistant path.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return &entities.ConfigurationError{Message: "LLM API key is not configured (set OPENAI_API_KEY or GEMINI_API_KEY)"}
	}
	if !contains(ValidProviders, c.LLM.Provider) {
		return &entities.ConfigurationError{Message: fmt.Sprintf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)}
	}
	if !contains(ValidHistoryBackends, c.History.Backend) {
		return &entities.ConfigurationError{Message: fmt.Sprintf("invalid history backend: %s (valid: %v)", c.History.Backend, ValidHistoryBackends)}
	}
	if c.History.Backend == "firestore" && c.History.FirestoreProject == "" {
		return &entities.ConfigurationError{Message: "history.firestore_project is required for the firestore backend"}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Watch reloads the file at path whenever it changes and passes the result to onChange.
// Parse failures are logged and the previous configuration stays in effect.
// It returns once the watch is established; reloading stops when ctx is done.
func Watch(ctx context.Context, path string, watcher ports.FileWatcher, log *zap.Logger, onChange func(*Config)) error {
	if log == nil {
		log = zap.NewNop()
	}
	events, err := watcher.Watch(ctx, path)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	go func() {
		for ev := range events {
			if ev.Operation == ports.FileDeleted {
				continue
			}
			cfg, err := Load(path)
			if err != nil {
				log.Warn("config reload failed", zap.String("path", path), zap.Error(err))
				continue
			}
			log.Info("config reloaded", zap.String("path", path))
			onChange(cfg)
		}
	}()
	return nil
}
