package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wyemhu12/vikini-sub002/zipsum"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "vikini.yaml"

// Config represents a vikini.yaml configuration file.
// All values are optional and act as defaults for command flags.
// CLI flags always override config values.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Chat     ChatConfig     `yaml:"chat"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Zip      zipsum.Options `yaml:"zip"`
	Stream   StreamConfig   `yaml:"stream"`
	Adapter  AdapterConfig  `yaml:"adapter"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds HTTP listener defaults.
type ServerConfig struct {
	Addr         string   `yaml:"addr"`
	UserHeader   string   `yaml:"user_header"`
	AuthToken    string   `yaml:"auth_token"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
}

// GeminiConfig holds model client settings.
type GeminiConfig struct {
	APIKey      string   `yaml:"api_key"`
	Model       string   `yaml:"model"`
	Temperature *float32 `yaml:"temperature,omitempty"`
}

// ChatConfig tunes chat turns.
type ChatConfig struct {
	SystemPrompt string   `yaml:"system_prompt"`
	HistoryLimit int      `yaml:"history_limit"`
	TitleTimeout Duration `yaml:"title_timeout"`
}

// StorageConfig selects the object store holding attachment bytes.
type StorageConfig struct {
	// Backend is "memory", "fs" or "s3".
	Backend        string `yaml:"backend"`
	Path           string `yaml:"path"`
	Region         string `yaml:"region"`
	Endpoint       string `yaml:"endpoint"`
	S3PathStyle    bool   `yaml:"s3_path_style"`
	MaxObjectBytes int64  `yaml:"max_object_bytes"`
}

// DatabaseConfig selects the conversation store.
type DatabaseConfig struct {
	// Backend is "memory" or "sqlite".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// ArchiveConfig selects the message archive. Backend empty disables it.
type ArchiveConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// StreamConfig selects the response framing.
type StreamConfig struct {
	Framing string `yaml:"framing"`
}

// AdapterConfig holds completion notification settings.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Stream  string            `yaml:"stream,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// LogConfig sets the minimum log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalYAML writes the duration back in its string form.
func (d Duration) MarshalYAML() (any, error) {
	if d.Duration == 0 {
		return "", nil
	}
	return d.Duration.String(), nil
}

// Validate checks backend names and the fields each backend requires.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Storage.Backend) {
	case "", "memory":
	case "fs", "s3":
		if c.Storage.Path == "" {
			errs = append(errs, fmt.Errorf("storage.path is required for backend %q", c.Storage.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.backend %q must be memory, fs or s3", c.Storage.Backend))
	}
	switch strings.ToLower(c.Database.Backend) {
	case "", "memory":
	case "sqlite":
		if c.Database.Path == "" {
			errs = append(errs, errors.New("database.path is required for sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.backend %q must be memory or sqlite", c.Database.Backend))
	}
	switch strings.ToLower(c.Archive.Backend) {
	case "", "memory":
	case "fs", "s3":
		if c.Archive.Path == "" {
			errs = append(errs, fmt.Errorf("archive.path is required for backend %q", c.Archive.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("archive.backend %q must be memory, fs or s3", c.Archive.Backend))
	}
	switch strings.ToLower(c.Adapter.Type) {
	case "":
	case "webhook", "redis":
		if c.Adapter.URL == "" {
			errs = append(errs, fmt.Errorf("adapter.url is required for type %q", c.Adapter.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("adapter.type %q must be webhook or redis", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, errors.New("adapter.retries must be >= 0"))
	}
	return errors.Join(errs...)
}
