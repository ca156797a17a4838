package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "30s". Bare numbers are taken as seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Store   StoreConfig       `yaml:"store"`
	LLM     LLMConfig         `yaml:"llm"`
	Capture CaptureConfig     `yaml:"capture"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Store.Validate(); err != nil {
		return err
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	return c.Capture.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StoreConfig holds the on-disk layout: notes directory and index file
// live under DataDir unless overridden.
type StoreConfig struct {
	DataDir   string `yaml:"data_dir"`
	NotesDir  string `yaml:"notes_dir"`
	IndexFile string `yaml:"index_file"`
}

// Validate validates the store configuration.
func (c *StoreConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DataDir, validation.Required),
	)
}

// NotesPath returns the notes directory, defaulting under DataDir.
func (c *StoreConfig) NotesPath() string {
	if c.NotesDir != "" {
		return c.NotesDir
	}
	return filepath.Join(c.DataDir, "notes")
}

// IndexPath returns the index file path, defaulting under DataDir.
func (c *StoreConfig) IndexPath() string {
	if c.IndexFile != "" {
		return c.IndexFile
	}
	return filepath.Join(c.DataDir, "notes_index.json")
}

// LLMConfig holds the OpenAI-compatible chat backend configuration.
// APIKey normally arrives through ${DASHSCOPE_API_KEY} expansion.
type LLMConfig struct {
	BaseURL     string   `yaml:"base_url"`
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Temperature float64  `yaml:"temperature"`
	TopP        float64  `yaml:"top_p"`
	Timeout     Duration `yaml:"timeout"`
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required),
		validation.Field(&c.Model, validation.Required),
		validation.Field(&c.Temperature, validation.Min(0.0), validation.Max(2.0)),
		validation.Field(&c.TopP, validation.Min(0.0), validation.Max(1.0)),
	)
}

// CaptureConfig holds the clipboard monitor configuration.
type CaptureConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Interval     Duration `yaml:"interval"`
	HistoryPath  string   `yaml:"history_path"`
	HistoryLimit int      `yaml:"history_limit"`
}

// Validate validates the capture configuration.
func (c *CaptureConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Interval.Std() < 100*time.Millisecond {
		return fmt.Errorf("capture: interval %v is below 100ms", c.Interval.Std())
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.HistoryLimit, validation.Min(0)),
	)
}

// HistoryDBPath returns the capture history database path, defaulting
// under the store's data directory.
func (c *CaptureConfig) HistoryDBPath(store *StoreConfig) string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	return filepath.Join(store.DataDir, "captures.db")
}

// NewDefaultConfig returns a new Config with sensible default values.
// The LLM defaults target DashScope's OpenAI-compatible endpoint.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 5001,
			},
		},
		Store: StoreConfig{
			DataDir: "./data",
		},
		LLM: LLMConfig{
			BaseURL:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Model:       "qwen-plus",
			Temperature: 0.7,
			TopP:        0.9,
			Timeout:     Duration(30 * time.Second),
		},
		Capture: CaptureConfig{
			Enabled:      false,
			Interval:     Duration(time.Second),
			HistoryLimit: 1000,
		},
	}
}
