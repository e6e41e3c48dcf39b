// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ListenAddr     string
	DataDir        string
	WordPressStore string
	ServiceStore   string
	KeyFile        string
	DBPath         string
	PublicURL      string
	TelegramAPIURL string

	// EncryptionKey is the raw master key value; empty means use KeyFile.
	EncryptionKey string

	CMSTimeout      time.Duration
	ClientCacheSize int
	ClientCacheTTL  time.Duration
}

// HasEncryptionKey reports whether the master key comes from the environment
// rather than the key file.
func (c *Config) HasEncryptionKey() bool {
	return c.EncryptionKey != ""
}

// Load reads configuration from environment variables and returns a validated Config.
// All variables are optional. Store, key and database paths default to files
// under WPGATEWAY_DATA_DIR (data). The master key is read from
// WPGATEWAY_ENCRYPTION_KEY, falling back to WP_ENCRYPTION_KEY.
func Load() (*Config, error) {
	dataDir := envOr("WPGATEWAY_DATA_DIR", "data")

	cmsTimeout, err := durationEnv("WPGATEWAY_CMS_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := durationEnv("WPGATEWAY_CLIENT_CACHE_TTL", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	cacheSize := 128
	if v, ok := os.LookupEnv("WPGATEWAY_CLIENT_CACHE_SIZE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("WPGATEWAY_CLIENT_CACHE_SIZE must be a positive integer, got %q", v)
		}
		cacheSize = n
	}

	publicURL := strings.TrimRight(os.Getenv("WPGATEWAY_PUBLIC_URL"), "/")
	if publicURL != "" && !strings.HasPrefix(publicURL, "http://") && !strings.HasPrefix(publicURL, "https://") {
		return nil, fmt.Errorf("WPGATEWAY_PUBLIC_URL must start with http:// or https://, got %q", publicURL)
	}

	key := os.Getenv("WPGATEWAY_ENCRYPTION_KEY")
	if key == "" {
		key = os.Getenv("WP_ENCRYPTION_KEY")
	}

	return &Config{
		ListenAddr:      envOr("WPGATEWAY_LISTEN_ADDR", "127.0.0.1:8080"),
		DataDir:         dataDir,
		WordPressStore:  envOr("WPGATEWAY_WORDPRESS_STORE", filepath.Join(dataDir, "wordpress_connections.json")),
		ServiceStore:    envOr("WPGATEWAY_SERVICE_STORE", filepath.Join(dataDir, "service_connections.json")),
		KeyFile:         envOr("WPGATEWAY_KEY_FILE", filepath.Join(dataDir, ".wp_key")),
		DBPath:          envOr("WPGATEWAY_DB_PATH", filepath.Join(dataDir, "usage.db")),
		PublicURL:       publicURL,
		TelegramAPIURL:  os.Getenv("WPGATEWAY_TELEGRAM_API_URL"),
		EncryptionKey:   key,
		CMSTimeout:      cmsTimeout,
		ClientCacheSize: cacheSize,
		ClientCacheTTL:  cacheTTL,
	}, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", key, v)
	}
	return parsed, nil
}
