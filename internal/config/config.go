package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config captures everything the catalog client reads at startup.
type Config struct {
	APIBaseURL     string
	UserID         string
	PageSize       int
	Debounce       time.Duration
	ProbeInterval  time.Duration
	RequestTimeout time.Duration
	DataDir        string
	LogLevel       string
	LogFormat      string
	SyncWishlist   bool
	MetricsAddr    string
	Categories     []string
}

const (
	defaultConfigPath     = "~/.config/catalog/config.toml"
	defaultDataDir        = "~/.local/share/catalog"
	defaultAPIBaseURL     = "http://127.0.0.1:8080"
	defaultPageSize       = 20
	defaultDebounceMS     = 500
	defaultProbeSeconds   = 5
	defaultTimeoutSeconds = 10
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"

	envPrefix = "CATALOG_"
)

// DefaultCategories are offered when the config lists none. "All" is always
// first.
var DefaultCategories = []string{"All", "Electronics", "Books", "Clothing", "Home", "Sports"}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIBaseURL:     defaultAPIBaseURL,
		PageSize:       defaultPageSize,
		Debounce:       defaultDebounceMS * time.Millisecond,
		ProbeInterval:  defaultProbeSeconds * time.Second,
		RequestTimeout: defaultTimeoutSeconds * time.Second,
		DataDir:        mustExpand(defaultDataDir),
		LogLevel:       defaultLogLevel,
		LogFormat:      defaultLogFormat,
		SyncWishlist:   true,
		Categories:     append([]string(nil), DefaultCategories...),
	}
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load parses the config file at path, falling back to defaults when it is
// missing, then applies CATALOG_* environment overrides.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return Config{}, fmt.Errorf("open config: %w", err)
	default:
		defer file.Close()
		bytes, err := io.ReadAll(file)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.merge(bytes); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	cfg.DataDir = mustExpand(cfg.DataDir)
	return cfg, nil
}

type rawConfig struct {
	APIBaseURL            string   `toml:"api_base_url"`
	UserID                string   `toml:"user_id"`
	PageSize              int      `toml:"page_size"`
	DebounceMS            int      `toml:"debounce_ms"`
	ProbeIntervalSeconds  int      `toml:"probe_interval_seconds"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
	DataDir               string   `toml:"data_dir"`
	LogLevel              string   `toml:"log_level"`
	LogFormat             string   `toml:"log_format"`
	SyncWishlist          *bool    `toml:"sync_wishlist"`
	MetricsAddr           string   `toml:"metrics_addr"`
	Categories            []string `toml:"categories"`
}

func (c *Config) merge(data []byte) error {
	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	setString(&c.APIBaseURL, raw.APIBaseURL)
	setString(&c.UserID, raw.UserID)
	setString(&c.DataDir, raw.DataDir)
	setString(&c.LogLevel, raw.LogLevel)
	setString(&c.LogFormat, raw.LogFormat)
	setString(&c.MetricsAddr, raw.MetricsAddr)

	if raw.PageSize > 0 {
		c.PageSize = raw.PageSize
	}
	if raw.DebounceMS > 0 {
		c.Debounce = time.Duration(raw.DebounceMS) * time.Millisecond
	}
	if raw.ProbeIntervalSeconds > 0 {
		c.ProbeInterval = time.Duration(raw.ProbeIntervalSeconds) * time.Second
	}
	if raw.RequestTimeoutSeconds > 0 {
		c.RequestTimeout = time.Duration(raw.RequestTimeoutSeconds) * time.Second
	}
	if raw.SyncWishlist != nil {
		c.SyncWishlist = *raw.SyncWishlist
	}
	if cats := normalizeCategories(raw.Categories); len(cats) > 1 {
		c.Categories = cats
	}
	return nil
}

func (c *Config) applyEnv() {
	setString(&c.APIBaseURL, os.Getenv(envPrefix+"API_BASE_URL"))
	setString(&c.UserID, os.Getenv(envPrefix+"USER_ID"))
	setString(&c.LogLevel, os.Getenv(envPrefix+"LOG_LEVEL"))
	setString(&c.DataDir, os.Getenv(envPrefix+"DATA_DIR"))
	setString(&c.MetricsAddr, os.Getenv(envPrefix+"METRICS_ADDR"))
}

// LogPath returns the client log file.
func (c Config) LogPath() string {
	return filepath.Join(c.dataDir(), "catalog.log")
}

// StoreDir returns the directory backing the key-value store.
func (c Config) StoreDir() string {
	return filepath.Join(c.dataDir(), "store")
}

func (c Config) dataDir() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir)
	}
	return c.DataDir
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

// normalizeCategories trims, drops blanks and duplicates, and puts "All"
// first.
func normalizeCategories(in []string) []string {
	out := []string{"All"}
	seen := map[string]bool{"all": true}
	for _, c := range in {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
