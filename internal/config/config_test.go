package config_test

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JaimeStill/vitalis/internal/config"
)

const baseConfig = `
shutdown_timeout = "30s"
version = "0.1.0"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "15m"
shutdown_timeout = "30s"

[database]
host = "localhost"
port = 5432
name = "vitalis"
user = "vitalis"
password = "vitalis"
ssl_mode = "disable"
max_open_conns = 25
max_idle_conns = 5
conn_max_lifetime = "15m"
conn_timeout = "5s"

[storage]
provider = "azure"
container_name = "uploads"
connection_string = "UseDevelopmentStorage=true"

[api]
base_path = "/api"

[api.pagination]
default_page_size = 25
max_page_size = 50

[ai]
api_key = "test-key"
model = "gemini-2.5-flash"

[pipeline]
analyze_timeout = "2m"

[redis]
addr = "localhost:6379"
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"

[pipeline]
side_effect_concurrency = 8

[logging]
format = "json"
`

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(orig) })
}

// check compares named values after a load.
type check struct {
	name      string
	got, want any
}

func verify(t *testing.T, checks []check) {
	t.Helper()
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func load(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeConfig(t, dir, name, content)
	}
	chdir(t, dir)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return cfg
}

func TestLoad(t *testing.T) {
	cfg := load(t, map[string]string{"config.toml": baseConfig})

	verify(t, []check{
		{"server.port", cfg.Server.Port, 8080},
		{"server.addr", cfg.Server.Addr(), "0.0.0.0:8080"},
		{"database.host", cfg.Database.Host, "localhost"},
		{"storage.container_name", cfg.Storage.ContainerName, "uploads"},
		{"api.pagination.default_page_size", cfg.API.Pagination.DefaultPageSize, 25},
		{"ai.api_key", cfg.AI.APIKey, "test-key"},
		{"pipeline.analyze_timeout", cfg.Pipeline.AnalyzeTimeoutDuration(), 2 * time.Minute},
		{"pipeline.classify_timeout", cfg.Pipeline.ClassifyTimeoutDuration(), time.Minute},
		{"redis.key_prefix", cfg.Redis.KeyPrefix, "vitalis"},
		{"openapi.title", cfg.OpenAPI.Title, "Vitalis API"},
	})
}

func TestLoadWithOverlay(t *testing.T) {
	t.Setenv("VITALIS_ENV", "staging")
	cfg := load(t, map[string]string{
		"config.toml":         baseConfig,
		"config.staging.toml": overlayConfig,
	})

	verify(t, []check{
		{"server.port", cfg.Server.Port, 9090},
		{"database.host", cfg.Database.Host, "prodhost"},
		{"database.port", cfg.Database.Port, 5432},
		{"pipeline.side_effect_concurrency", cfg.Pipeline.SideEffectConcurrency, 8},
		{"logging.format", cfg.Logging.Format, config.LogFormatJSON},
	})
}

func TestLoadMissingOverlayIgnored(t *testing.T) {
	t.Setenv("VITALIS_ENV", "nowhere")
	cfg := load(t, map[string]string{"config.toml": baseConfig})

	verify(t, []check{{"server.port", cfg.Server.Port, 8080}})
}

func TestLoadEnvVarOverrides(t *testing.T) {
	for k, v := range map[string]string{
		"VITALIS_VERSION":                       "2.0.0",
		"VITALIS_SERVER_PORT":                   "3000",
		"VITALIS_AI_MODEL":                      "gemini-2.5-pro",
		"VITALIS_AI_TEMPERATURE":                "0.5",
		"VITALIS_PIPELINE_MAX_CONFLICT_RETRIES": "5",
		"VITALIS_CORRELATIONS_MODEL_ENABLED":    "true",
		"VITALIS_LOG_LEVEL":                     "debug",
		"VITALIS_API_MAX_UPLOAD_SIZE":           "10MB",
	} {
		t.Setenv(k, v)
	}
	cfg := load(t, map[string]string{"config.toml": baseConfig})

	verify(t, []check{
		{"version", cfg.Version, "2.0.0"},
		{"server.port", cfg.Server.Port, 3000},
		{"ai.model", cfg.AI.Model, "gemini-2.5-pro"},
		{"ai.temperature", cfg.AI.Temperature, float32(0.5)},
		{"pipeline.max_conflict_retries", cfg.Pipeline.MaxConflictRetries, 5},
		{"correlations.model_enabled", cfg.Correlations.ModelEnabled, true},
		{"logging.level", cfg.Logging.SlogLevel(), slog.LevelDebug},
		{"api.max_upload_size", cfg.API.MaxUploadSizeBytes(), int64(10 << 20)},
	})
}

func TestLoadNoConfigFile(t *testing.T) {
	t.Setenv("VITALIS_DB_NAME", "testdb")
	t.Setenv("VITALIS_DB_USER", "testuser")
	t.Setenv("VITALIS_STORAGE_CONNECTION_STRING", "conn")
	t.Setenv("VITALIS_AI_API_KEY", "env-key")
	cfg := load(t, nil)

	verify(t, []check{
		{"server.port", cfg.Server.Port, 8080},
		{"database.name", cfg.Database.Name, "testdb"},
		{"ai.api_key", cfg.AI.APIKey, "env-key"},
		{"ai.max_output_tokens", cfg.AI.MaxOutputTokens, int32(8192)},
		{"pipeline.side_effect_concurrency", cfg.Pipeline.SideEffectConcurrency, 4},
		{"logging.format", cfg.Logging.Format, config.LogFormatText},
		{"shutdown_timeout", cfg.ShutdownTimeoutDuration(), 30 * time.Second},
	})
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", `[server`)
	chdir(t, dir)

	_, err := config.Load()
	if err == nil {
		t.Fatal("expected error for invalid TOML")
	}
}

func TestEnv(t *testing.T) {
	cfg := &config.Config{}
	if got := cfg.Env(); got != "local" {
		t.Errorf("Env() = %s, want local", got)
	}

	t.Setenv("VITALIS_ENV", "production")
	if got := cfg.Env(); got != "production" {
		t.Errorf("Env() = %s, want production", got)
	}
}

func TestMaxUploadSizeBytes(t *testing.T) {
	tests := []struct {
		size string
		want int64
	}{
		{"100MB", 100 * 1024 * 1024},
		{"", 50 * 1024 * 1024},
		{"garbage", 50 * 1024 * 1024},
	}

	for _, tt := range tests {
		t.Run(tt.size, func(t *testing.T) {
			cfg := config.APIConfig{MaxUploadSize: tt.size}
			if got := cfg.MaxUploadSizeBytes(); got != tt.want {
				t.Errorf("MaxUploadSizeBytes() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidation(t *testing.T) {
	const required = `
[database]
name = "vitalis"
user = "vitalis"

[storage]
connection_string = "conn"
`

	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{
			name:    "invalid port",
			config:  required + "\n[server]\nport = 99999\n[ai]\napi_key = \"k\"\n",
			wantErr: "invalid port",
		},
		{
			name:    "invalid read_timeout",
			config:  required + "\n[server]\nread_timeout = \"bad\"\n[ai]\napi_key = \"k\"\n",
			wantErr: "invalid read_timeout",
		},
		{
			name:    "missing api key",
			config:  required,
			wantErr: "api_key required",
		},
		{
			name:    "temperature out of range",
			config:  required + "\n[ai]\napi_key = \"k\"\ntemperature = 3.5\n",
			wantErr: "temperature",
		},
		{
			name:    "bad stage timeout",
			config:  required + "\n[ai]\napi_key = \"k\"\n[pipeline]\nclassify_timeout = \"soon\"\n",
			wantErr: "classify_timeout",
		},
		{
			name:    "unknown log format",
			config:  required + "\n[ai]\napi_key = \"k\"\n[logging]\nformat = \"xml\"\n",
			wantErr: "unknown format",
		},
		{
			name:    "missing rules file",
			config:  required + "\n[ai]\napi_key = \"k\"\n[correlations]\nrules_file = \"/nonexistent/rules.yaml\"\n",
			wantErr: "rules_file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "config.toml", tt.config)
			chdir(t, dir)

			_, err := config.Load()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCorrelationsMergeAppliesBool(t *testing.T) {
	base := config.CorrelationsConfig{ModelEnabled: true, RulesFile: "rules.yaml"}
	base.Merge(&config.CorrelationsConfig{})

	if base.ModelEnabled {
		t.Error("model_enabled should follow the overlay")
	}
	if base.RulesFile != "rules.yaml" {
		t.Errorf("rules_file: got %s, want rules.yaml", base.RulesFile)
	}
}

func TestLoadDatabaseSkipsOtherSections(t *testing.T) {
	t.Setenv("VITALIS_DB_DSN", "postgres://migrator@db:5432/vitalis")
	chdir(t, t.TempDir())

	db, err := config.LoadDatabase()
	if err != nil {
		t.Fatalf("LoadDatabase: %v", err)
	}
	if got := db.ConnString(); got != "postgres://migrator@db:5432/vitalis" {
		t.Errorf("ConnString() = %q", got)
	}
	if _, err := config.Load(); err == nil {
		t.Error("Load should still require the ai section")
	}
}
