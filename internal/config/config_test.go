package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"API_BASE_URL", "USER_ID", "LOG_LEVEL", "DATA_DIR", "METRICS_ADDR"} {
		t.Setenv(envPrefix+k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("APIBaseURL = %q, want %q", cfg.APIBaseURL, defaultAPIBaseURL)
	}
	if cfg.PageSize != 20 || cfg.Debounce != 500*time.Millisecond || cfg.ProbeInterval != 5*time.Second {
		t.Fatalf("unexpected numeric defaults: %+v", cfg)
	}
	if !cfg.SyncWishlist {
		t.Fatalf("SyncWishlist = false, want true")
	}
	wantDataDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath(defaultDataDir) returned error: %v", err)
	}
	if cfg.DataDir != wantDataDir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, wantDataDir)
	}
	if cfg.LogPath() != filepath.Join(wantDataDir, "catalog.log") {
		t.Fatalf("LogPath = %q", cfg.LogPath())
	}
	if !reflect.DeepEqual(cfg.Categories, DefaultCategories) {
		t.Fatalf("Categories = %v, want %v", cfg.Categories, DefaultCategories)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)

	path := writeConfig(t, `
api_base_url = "  http://10.0.0.5:9999  "
user_id = "user-42"
page_size = 10
debounce_ms = 250
probe_interval_seconds = 3
request_timeout_seconds = 4
data_dir = "  ~/.catalog  "
log_format = "console"
sync_wishlist = false
metrics_addr = "127.0.0.1:9464"
categories = ["Books", " all ", "", "Books", "Toys"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != "http://10.0.0.5:9999" {
		t.Fatalf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.UserID != "user-42" || cfg.PageSize != 10 || cfg.Debounce != 250*time.Millisecond {
		t.Fatalf("unexpected fields: %+v", cfg)
	}
	if cfg.ProbeInterval != 3*time.Second || cfg.RequestTimeout != 4*time.Second {
		t.Fatalf("unexpected durations: %+v", cfg)
	}
	if !strings.HasPrefix(cfg.DataDir, home) {
		t.Fatalf("DataDir = %q, want it under HOME %q", cfg.DataDir, home)
	}
	if cfg.SyncWishlist {
		t.Fatalf("SyncWishlist = true, want false")
	}
	if cfg.LogFormat != "console" || cfg.LogLevel != defaultLogLevel {
		t.Fatalf("log settings = %q/%q", cfg.LogFormat, cfg.LogLevel)
	}
	want := []string{"All", "Books", "Toys"}
	if !reflect.DeepEqual(cfg.Categories, want) {
		t.Fatalf("Categories = %v, want %v", cfg.Categories, want)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	clearEnv(t)

	path := writeConfig(t, `
api_base_url = "   "
data_dir = ""
page_size = 0
debounce_ms = -5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != defaultAPIBaseURL {
		t.Fatalf("APIBaseURL = %q, want %q", cfg.APIBaseURL, defaultAPIBaseURL)
	}
	if cfg.PageSize != defaultPageSize || cfg.Debounce != defaultDebounceMS*time.Millisecond {
		t.Fatalf("unexpected numeric fields: %+v", cfg)
	}
	wantDataDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath(defaultDataDir) returned error: %v", err)
	}
	if cfg.DataDir != wantDataDir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, wantDataDir)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := writeConfig(t, `api_base_url = [`)
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	clearEnv(t)
	t.Setenv("CATALOG_API_BASE_URL", "http://env:1")
	t.Setenv("CATALOG_DATA_DIR", "~/env-data")
	t.Setenv("CATALOG_LOG_LEVEL", "debug")

	path := writeConfig(t, `api_base_url = "http://file:2"`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.APIBaseURL != "http://env:1" {
		t.Fatalf("APIBaseURL = %q, want env value", cfg.APIBaseURL)
	}
	if cfg.DataDir != filepath.Join(home, "env-data") {
		t.Fatalf("DataDir = %q", cfg.DataDir)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("CATALOG_USER_ID=from-dotenv\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// godotenv never overrides variables that are already set.
	os.Unsetenv("CATALOG_USER_ID")
	t.Cleanup(func() { os.Unsetenv("CATALOG_USER_ID") })

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile returned error: %v", err)
	}
	if got := os.Getenv("CATALOG_USER_ID"); got != "from-dotenv" {
		t.Fatalf("CATALOG_USER_ID = %q", got)
	}
	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing env file returned error: %v", err)
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestStoreDir_DefaultsWhenDataDirEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var cfg Config
	got := cfg.StoreDir()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("StoreDir = %q, want it under HOME %q", got, home)
	}
	if !strings.HasSuffix(got, filepath.FromSlash("/store")) {
		t.Fatalf("StoreDir = %q, want it to end with /store", got)
	}
}
