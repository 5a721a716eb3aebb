package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kadirpekel/a2ui/pkg/config/provider"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	return path
}

func TestLoader_File_Load(t *testing.T) {
	configFile := writeConfig(t, "a2ui.yaml", `
backend:
  base_url: https://relay.example.com/
  timeout: 5s
  history_retries: 0
logger:
  level: debug
preview:
  port: 9000
  cors_origins: "http://a.test,http://b.test"
`)

	cfg, loader, err := LoadConfigFile(context.Background(), configFile)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	defer loader.Close()

	if cfg.Backend.BaseURL != "https://relay.example.com" {
		t.Errorf("expected trailing slash trimmed, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("expected timeout 5s, got %v", cfg.Backend.Timeout)
	}
	if cfg.Backend.Retries() != 0 {
		t.Errorf("expected explicit zero retries to survive defaults, got %d", cfg.Backend.Retries())
	}
	if cfg.Backend.StreamPath != "/api/chat/stream" {
		t.Errorf("expected default stream path, got %s", cfg.Backend.StreamPath)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("expected level debug, got %s", cfg.Logger.Level)
	}
	if cfg.Preview.Port != 9000 || cfg.Preview.Host != "127.0.0.1" {
		t.Errorf("unexpected preview config: %+v", cfg.Preview)
	}
	if len(cfg.Preview.CORSOrigins) != 2 {
		t.Errorf("expected 2 cors origins, got %v", cfg.Preview.CORSOrigins)
	}
}

func TestLoader_File_NotFound(t *testing.T) {
	p, err := provider.NewFileProvider("/nonexistent/file.yaml")
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	loader := NewLoader(p)
	defer loader.Close()

	if _, err := loader.Load(context.Background()); err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoader_File_InvalidYAML(t *testing.T) {
	configFile := writeConfig(t, "invalid.yaml", "backend: [unclosed")

	if _, _, err := LoadConfigFile(context.Background(), configFile); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoader_File_InvalidConfig(t *testing.T) {
	configFile := writeConfig(t, "bad.yaml", `
backend:
  base_url: ftp://relay.example.com
`)

	_, _, err := LoadConfigFile(context.Background(), configFile)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("expected base_url in error, got %v", err)
	}
}

func TestLoader_EnvVarExpansion(t *testing.T) {
	t.Setenv("A2UI_TEST_RELAY", "http://relay.internal:8000")
	os.Unsetenv("A2UI_TEST_MISSING")

	cfg, err := Parse([]byte(`
backend:
  base_url: ${A2UI_TEST_RELAY}
  stream_path: ${A2UI_TEST_MISSING:-/custom/stream}
`))
	if err != nil {
		t.Fatalf("failed to parse: %v", err)
	}

	if cfg.Backend.BaseURL != "http://relay.internal:8000" {
		t.Errorf("expected expanded base url, got %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.StreamURL() != "http://relay.internal:8000/custom/stream" {
		t.Errorf("unexpected stream url %s", cfg.Backend.StreamURL())
	}
}

func TestLoader_ParseBytes_JSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"history": {"driver": "sqlite", "dsn": "chat.db"}}`))
	if err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if !cfg.History.Enabled() || cfg.History.Table != "message" {
		t.Errorf("unexpected history config: %+v", cfg.History)
	}
}

func TestLoader_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("empty config should parse: %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:8000" {
		t.Errorf("expected default base url, got %s", cfg.Backend.BaseURL)
	}
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	cfg, loader, err := Resolve(context.Background(), "")
	if err != nil {
		t.Fatalf("missing default file should not fail: %v", err)
	}
	if loader != nil {
		t.Error("expected nil loader without a file")
	}
	if cfg.Render.Style != "ascii" {
		t.Errorf("expected defaults, got %+v", cfg.Render)
	}

	if _, _, err := Resolve(context.Background(), filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("explicit missing path should fail")
	}
}

func TestLoader_File_Watch(t *testing.T) {
	configFile := writeConfig(t, "watch.yaml", "logger:\n  level: info\n")

	changed := make(chan *Config, 1)
	p, err := provider.NewFileProvider(configFile)
	if err != nil {
		t.Fatal(err)
	}
	loader := NewLoader(p, WithOnChange(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	}))
	defer loader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loader.Watch(ctx)

	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(configFile, []byte("logger:\n  level: debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.Logger.Level != "debug" {
			t.Errorf("expected reloaded level debug, got %s", cfg.Logger.Level)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestHistoryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     HistoryConfig
		wantErr bool
	}{
		{"disabled", HistoryConfig{}, false},
		{"sqlite", HistoryConfig{Driver: "sqlite", DSN: "x.db"}, false},
		{"postgresql alias", HistoryConfig{Driver: "postgresql", DSN: "postgres://"}, false},
		{"missing dsn", HistoryConfig{Driver: "mysql"}, true},
		{"unknown driver", HistoryConfig{Driver: "oracle", DSN: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackendConfig_HistoryURL(t *testing.T) {
	cfg := BackendConfig{BaseURL: "http://relay"}
	cfg.SetDefaults()

	got := cfg.HistoryURL("abc/def")
	want := "http://relay/api/sessions/abc%2Fdef/messages"
	if got != want {
		t.Errorf("HistoryURL() = %s, want %s", got, want)
	}
}

func TestLoggerConfig_Validate(t *testing.T) {
	cfg := LoggerConfig{Level: "loud"}
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid level error")
	}
	cfg = LoggerConfig{Level: "warn", Format: "json"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseType(t *testing.T) {
	if typ, err := provider.ParseType(""); err != nil || typ != provider.TypeFile {
		t.Errorf("empty type should map to file, got %v %v", typ, err)
	}
	if _, err := provider.ParseType("consul"); err == nil {
		t.Error("expected error for unsupported provider")
	}
}
