package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vtable.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `version: 1
store:
  dsn: "postgres://vt:vt@localhost:5432/vt"
export:
  connection_string: "mongodb://localhost:27017"
  database: vt
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("expected version 1, got %d", cfg.Version)
	}
	if cfg.Store.DSN != "postgres://vt:vt@localhost:5432/vt" {
		t.Errorf("unexpected dsn %s", cfg.Store.DSN)
	}
	if cfg.Store.MaxConnections != DefaultMaxConnections {
		t.Errorf("expected default max_connections %d, got %d", DefaultMaxConnections, cfg.Store.MaxConnections)
	}
	if cfg.Store.PageSize != 50 {
		t.Errorf("expected default page_size 50, got %d", cfg.Store.PageSize)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("expected default port %d, got %d", DefaultPort, cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level info, got %s", cfg.Logging.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadInvalidVersion(t *testing.T) {
	path := writeConfig(t, `version: 99
store:
  dsn: postgres://localhost/vt
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid version")
	}
}

func TestLoadResolvesDSNFromEnv(t *testing.T) {
	t.Setenv("VT_TEST_DSN", "postgres://env@localhost/vt")
	path := writeConfig(t, `version: 1
store:
  dsn: "${ENV:VT_TEST_DSN}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store.DSN != "postgres://env@localhost/vt" {
		t.Errorf("expected resolved dsn, got %s", cfg.Store.DSN)
	}
}

func TestResolveEnvSecret(t *testing.T) {
	t.Setenv("TEST_SECRET", "mysecret")
	val, err := ResolveValue("${ENV:TEST_SECRET}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "mysecret" {
		t.Errorf("expected mysecret, got %s", val)
	}
}

func TestResolveMissingEnvSecret(t *testing.T) {
	t.Setenv("TEST_SECRET_UNSET", "")
	if _, err := ResolveValue("${ENV:TEST_SECRET_UNSET}"); err == nil {
		t.Error("expected error for unset variable")
	}
}

func TestResolvePlainValue(t *testing.T) {
	val, err := ResolveValue("plaintext")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "plaintext" {
		t.Errorf("expected plaintext, got %s", val)
	}
}

func TestMaxConnectionsCapped(t *testing.T) {
	path := writeConfig(t, `version: 1
store:
  dsn: postgres://localhost/vt
  max_connections: 100
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Store.MaxConnections != 50 {
		t.Errorf("expected max_connections capped at 50, got %d", cfg.Store.MaxConnections)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Version: 1,
		Store:   StoreConfig{PageSize: -1},
		Export:  ExportConfig{ConnectionString: "mongodb://localhost"},
		Server:  ServerConfig{Port: 70000},
		Logging: LogConfig{Level: "loud"},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"store.dsn", "store.page_size", "server.port", "export.database", "logging.level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestRedacted(t *testing.T) {
	cfg := &Config{
		Store:  StoreConfig{DSN: "postgres://vt:hunter2@db:5432/vt"},
		Export: ExportConfig{ConnectionString: "mongodb://admin:pw@mongo:27017"},
	}
	r := cfg.Redacted()
	if strings.Contains(r.Store.DSN, "hunter2") || strings.Contains(r.Export.ConnectionString, ":pw@") {
		t.Errorf("credentials not masked: %s %s", r.Store.DSN, r.Export.ConnectionString)
	}
	if cfg.Store.DSN != "postgres://vt:hunter2@db:5432/vt" {
		t.Error("Redacted modified the original")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "vtable.yaml")
	cfg := &Config{Version: 1, Store: StoreConfig{DSN: "postgres://localhost/vt", PageSize: 25}}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Store.PageSize != 25 {
		t.Errorf("expected page_size 25, got %d", got.Store.PageSize)
	}
}
