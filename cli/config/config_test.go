package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_FullConfig(t *testing.T) {
	yaml := `server:
  addr: 0.0.0.0:9000
  user_header: X-Forwarded-User
  auth_token: s3cret
  max_body_bytes: 2048
  read_timeout: 15s

gemini:
  api_key: key-123
  model: gemini-2.5-pro
  temperature: 0.4

chat:
  system_prompt: Be brief.
  history_limit: 20
  title_timeout: 5s

storage:
  backend: s3
  path: attachments-bucket/uploads
  region: us-east-1
  endpoint: https://example.com
  s3_path_style: true
  max_object_bytes: 1048576

database:
  backend: sqlite
  path: ./vikini.db

archive:
  dataset: vikini
  backend: fs
  path: ./archive

zip:
  max_entries: 100
  max_files_to_extract: 5
  max_chars: 5000

stream:
  framing: binary

adapter:
  type: webhook
  url: https://hooks.example.com/vikini
  headers:
    Authorization: Bearer token123
  timeout: 10s
  retries: 3

log:
  level: warn
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Server
	assertEqual(t, "server.addr", cfg.Server.Addr, "0.0.0.0:9000")
	assertEqual(t, "server.user_header", cfg.Server.UserHeader, "X-Forwarded-User")
	assertEqual(t, "server.auth_token", cfg.Server.AuthToken, "s3cret")
	if cfg.Server.MaxBodyBytes != 2048 {
		t.Errorf("expected max_body_bytes=2048, got %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Server.ReadTimeout.Duration != 15*time.Second {
		t.Errorf("expected read_timeout=15s, got %v", cfg.Server.ReadTimeout.Duration)
	}

	// Gemini and chat
	assertEqual(t, "gemini.api_key", cfg.Gemini.APIKey, "key-123")
	assertEqual(t, "gemini.model", cfg.Gemini.Model, "gemini-2.5-pro")
	if cfg.Gemini.Temperature == nil || *cfg.Gemini.Temperature != 0.4 {
		t.Errorf("expected gemini.temperature=0.4")
	}
	assertEqual(t, "chat.system_prompt", cfg.Chat.SystemPrompt, "Be brief.")
	if cfg.Chat.HistoryLimit != 20 {
		t.Errorf("expected history_limit=20, got %d", cfg.Chat.HistoryLimit)
	}
	if cfg.Chat.TitleTimeout.Duration != 5*time.Second {
		t.Errorf("expected title_timeout=5s, got %v", cfg.Chat.TitleTimeout.Duration)
	}

	// Storage
	assertEqual(t, "storage.backend", cfg.Storage.Backend, "s3")
	assertEqual(t, "storage.path", cfg.Storage.Path, "attachments-bucket/uploads")
	assertEqual(t, "storage.region", cfg.Storage.Region, "us-east-1")
	assertEqual(t, "storage.endpoint", cfg.Storage.Endpoint, "https://example.com")
	if !cfg.Storage.S3PathStyle {
		t.Error("expected storage.s3_path_style=true")
	}
	if cfg.Storage.MaxObjectBytes != 1048576 {
		t.Errorf("expected max_object_bytes=1048576, got %d", cfg.Storage.MaxObjectBytes)
	}

	// Database and archive
	assertEqual(t, "database.backend", cfg.Database.Backend, "sqlite")
	assertEqual(t, "database.path", cfg.Database.Path, "./vikini.db")
	assertEqual(t, "archive.dataset", cfg.Archive.Dataset, "vikini")
	assertEqual(t, "archive.backend", cfg.Archive.Backend, "fs")
	assertEqual(t, "archive.path", cfg.Archive.Path, "./archive")

	// Zip limits
	if cfg.Zip.MaxEntries != 100 || cfg.Zip.MaxFilesToExtract != 5 || cfg.Zip.MaxChars != 5000 {
		t.Errorf("unexpected zip limits: %+v", cfg.Zip)
	}
	if cfg.Zip.MaxPerFileBytes != 0 {
		t.Errorf("expected unset max_per_file_bytes to stay zero, got %d", cfg.Zip.MaxPerFileBytes)
	}

	assertEqual(t, "stream.framing", cfg.Stream.Framing, "binary")

	// Adapter
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "webhook")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "https://hooks.example.com/vikini")
	if cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("expected adapter.timeout=10s, got %v", cfg.Adapter.Timeout.Duration)
	}
	if cfg.Adapter.Retries == nil || *cfg.Adapter.Retries != 3 {
		t.Errorf("expected adapter.retries=3")
	}
	if cfg.Adapter.Headers["Authorization"] != "Bearer token123" {
		t.Errorf("expected Authorization header")
	}

	assertEqual(t, "log.level", cfg.Log.Level, "warn")

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_EmptyConfig(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != "" {
		t.Errorf("expected empty addr, got %q", cfg.Server.Addr)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/vikini.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional("/nonexistent/vikini.yaml", false)
	if err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected empty config, got nil")
	}

	if _, err := LoadOptional("/nonexistent/vikini.yaml", true); err == nil {
		t.Fatal("expected error when the file is required")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, "{{invalid yaml")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_GEMINI_KEY", "expanded-key")

	yaml := "gemini:\n  api_key: ${TEST_GEMINI_KEY}\n  model: ${TEST_MODEL_UNSET:-gemini-2.5-flash}"
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "gemini.api_key", cfg.Gemini.APIKey, "expanded-key")
	assertEqual(t, "gemini.model", cfg.Gemini.Model, "gemini-2.5-flash")
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	yaml := `server:
  addr: 127.0.0.1:8080
bogus_key: should_fail
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown key, got nil")
	}
	if !strings.Contains(err.Error(), "bogus_key") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_UnknownNestedKeyRejected(t *testing.T) {
	yaml := `storage:
  backend: fs
  path: ./data
  unknown_field: bad
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for unknown nested key, got nil")
	}
	if !strings.Contains(err.Error(), "unknown_field") {
		t.Errorf("error should mention the unknown key, got: %v", err)
	}
}

func TestLoad_CommentsOnlyConfig(t *testing.T) {
	path := writeTemp(t, "# This is a comment\n# Another comment\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed for comments-only config: %v", err)
	}
	if cfg.Database.Backend != "" {
		t.Errorf("expected empty database backend, got %q", cfg.Database.Backend)
	}
}

func TestLoad_RetriesZeroDistinctFromNil(t *testing.T) {
	// retries: 0 should parse as *int(0), not nil.
	yaml := `adapter:
  type: webhook
  url: https://example.com
  retries: 0
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Retries == nil {
		t.Fatal("expected retries to be non-nil (*int(0)), got nil")
	}
	if *cfg.Adapter.Retries != 0 {
		t.Errorf("expected retries=0, got %d", *cfg.Adapter.Retries)
	}
}

func TestDuration_InvalidFormat(t *testing.T) {
	yaml := `adapter:
  timeout: not-a-duration
`
	path := writeTemp(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid duration")
	}
	if !strings.Contains(err.Error(), "invalid duration") {
		t.Errorf("error should mention invalid duration, got: %v", err)
	}
}

func TestDuration_EmptyIsZero(t *testing.T) {
	yaml := `chat:
  title_timeout: ""
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Chat.TitleTimeout.Duration != 0 {
		t.Errorf("expected zero duration, got %v", cfg.Chat.TitleTimeout.Duration)
	}
}

func TestLoad_RedisAdapterConfig(t *testing.T) {
	yaml := `adapter:
  type: redis
  url: redis://localhost:6379/0
  channel: vikini:message_completed
  stream: vikini:events
  timeout: 5s
`
	path := writeTemp(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	assertEqual(t, "adapter.type", cfg.Adapter.Type, "redis")
	assertEqual(t, "adapter.url", cfg.Adapter.URL, "redis://localhost:6379/0")
	assertEqual(t, "adapter.channel", cfg.Adapter.Channel, "vikini:message_completed")
	assertEqual(t, "adapter.stream", cfg.Adapter.Stream, "vikini:events")
	if cfg.Adapter.Retries != nil {
		t.Errorf("expected retries to be nil, got %d", *cfg.Adapter.Retries)
	}
}

func TestValidate(t *testing.T) {
	negative := -1
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"zero config", Config{}, ""},
		{"fs storage needs path", Config{Storage: StorageConfig{Backend: "fs"}}, "storage.path"},
		{"unknown storage", Config{Storage: StorageConfig{Backend: "gcs"}}, "storage.backend"},
		{"sqlite needs path", Config{Database: DatabaseConfig{Backend: "sqlite"}}, "database.path"},
		{"unknown database", Config{Database: DatabaseConfig{Backend: "postgres"}}, "database.backend"},
		{"s3 archive needs path", Config{Archive: ArchiveConfig{Backend: "s3"}}, "archive.path"},
		{"webhook needs url", Config{Adapter: AdapterConfig{Type: "webhook"}}, "adapter.url"},
		{"unknown adapter", Config{Adapter: AdapterConfig{Type: "kafka", URL: "x"}}, "adapter.type"},
		{"negative retries", Config{Adapter: AdapterConfig{Retries: &negative}}, "adapter.retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

// writeTemp writes content to a temp file and returns the path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vikini.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func assertEqual(t *testing.T, field, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: got %q, want %q", field, got, want)
	}
}
