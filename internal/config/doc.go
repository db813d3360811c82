// Package config loads the catalog client's TOML configuration.
//
// # Resolution
//
// Load reads ~/.config/catalog/config.toml unless a path is given. A missing
// file yields defaults; blank or non-positive fields keep their defaults;
// malformed TOML is an error. After the file, CATALOG_API_BASE_URL,
// CATALOG_USER_ID, CATALOG_LOG_LEVEL, CATALOG_DATA_DIR and
// CATALOG_METRICS_ADDR override the matching fields. LoadEnvFile can seed
// those variables from a .env file first.
//
// # Example
//
//	api_base_url = "http://127.0.0.1:8080"
//	page_size = 20
//	debounce_ms = 500
//	probe_interval_seconds = 5
//	request_timeout_seconds = 10
//	data_dir = "~/.local/share/catalog"
//	log_level = "info"
//	log_format = "json"
//	sync_wishlist = true
//	metrics_addr = "127.0.0.1:9464"
//	categories = ["Electronics", "Books"]
//
// Paths beginning with ~ are expanded to the home directory. Categories
// always start with "All".
package config
