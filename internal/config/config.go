// Package config loads server configuration from command-line flags,
// environment variables, and a .env file.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Server  ServerConfig
	Storage StorageConfig
	Catalog CatalogConfig
	Cart    CartConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string        // default: 8080
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: 15s
	IdleTimeout  time.Duration // default: 60s

	// CORSOrigins lists storefront origins allowed to call the API.
	// Empty means any origin.
	CORSOrigins []string

	// RateLimitPerMinute caps requests per client IP. Zero disables limiting.
	RateLimitPerMinute int
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	// DataPath holds the sqlite database, the product cache and the search index.
	DataPath string
}

// DatabasePath returns the sqlite file location.
func (s StorageConfig) DatabasePath() string {
	return filepath.Join(s.DataPath, "bundles.db")
}

// CachePath returns the product option cache directory.
func (s StorageConfig) CachePath() string {
	return filepath.Join(s.DataPath, "cache", "products")
}

// SearchPath returns the bundle search index directory.
func (s StorageConfig) SearchPath() string {
	return filepath.Join(s.DataPath, "search")
}

// CatalogConfig configures the product option source.
type CatalogConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	// MaxConcurrent bounds parallel product fetches for one bundle.
	MaxConcurrent int
	CacheTTL      time.Duration
}

// CartConfig configures cart synchronization.
type CartConfig struct {
	BaseURL string

	// BundleKeyProperty is the line property carrying the bundle correlation key.
	BundleKeyProperty string
	// BundleLabelProperty is the line property carrying the bundle's display title.
	BundleLabelProperty string

	// MinDependentQuantity floors recomputed dependent quantities.
	// 0 lets a dependent drop out with its anchor, 1 keeps it in the cart.
	MinDependentQuantity int

	MutationMaxAttempts int
	MutationTimeout     time.Duration
}

// LoadConfig loads configuration from the process arguments.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load parses args with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("bundles-server", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed origins")
	rateLimit := fs.String("rate-limit", "", "Requests per minute per client (default: 600)")

	dataPath := fs.String("data-path", "", "Directory for database, cache and index")

	catalogURL := fs.String("catalog-url", "", "Base URL of the product catalog")
	catalogTimeout := fs.String("catalog-timeout", "", "Catalog request timeout (default: 10s)")
	catalogConcurrent := fs.String("catalog-max-concurrent", "", "Parallel product fetches (default: 4)")
	catalogTTL := fs.String("catalog-cache-ttl", "", "Product cache lifetime (default: 6h)")

	cartURL := fs.String("cart-url", "", "Base URL of the storefront cart")
	minDependent := fs.String("min-dependent-quantity", "", "Floor for recomputed dependent quantities (default: 0)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:        splitList(getConfigValue(*corsOrigins, "SERVER_CORS_ORIGINS", "")),
			RateLimitPerMinute: getIntConfigValue(*rateLimit, "SERVER_RATE_LIMIT", 600),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Catalog: CatalogConfig{
			BaseURL:           getConfigValue(*catalogURL, "CATALOG_BASE_URL", ""),
			RequestsPerSecond: getFloatConfigValue("", "CATALOG_RPS", 2),
			Burst:             getIntConfigValue("", "CATALOG_BURST", 4),
			MaxConcurrent:     getIntConfigValue(*catalogConcurrent, "CATALOG_MAX_CONCURRENT", 4),
		},
		Cart: CartConfig{
			BaseURL:              getConfigValue(*cartURL, "CART_BASE_URL", ""),
			BundleKeyProperty:    getConfigValue("", "CART_BUNDLE_KEY_PROPERTY", "_bundle_key"),
			BundleLabelProperty:  getConfigValue("", "CART_BUNDLE_LABEL_PROPERTY", "Bundle"),
			MinDependentQuantity: getIntConfigValue(*minDependent, "CART_DEPENDENT_MIN_QUANTITY", 0),
			MutationMaxAttempts:  getIntConfigValue("", "CART_MUTATION_MAX_ATTEMPTS", 4),
		},
	}

	durations := []struct {
		dst      *time.Duration
		flag     string
		env      string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.Catalog.Timeout, *catalogTimeout, "CATALOG_TIMEOUT", "10s"},
		{&cfg.Catalog.CacheTTL, *catalogTTL, "CATALOG_CACHE_TTL", "6h"},
		{&cfg.Cart.MutationTimeout, "", "CART_MUTATION_TIMEOUT", "20s"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flag, d.env, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.env, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Catalog.MaxConcurrent < 1 {
		return fmt.Errorf("catalog max concurrent must be at least 1, got %d", c.Catalog.MaxConcurrent)
	}
	if c.Catalog.RequestsPerSecond <= 0 {
		return fmt.Errorf("catalog requests per second must be positive, got %v", c.Catalog.RequestsPerSecond)
	}

	if c.Cart.BundleKeyProperty == "" {
		return errors.New("cart bundle key property cannot be empty")
	}
	if c.Cart.MinDependentQuantity != 0 && c.Cart.MinDependentQuantity != 1 {
		return fmt.Errorf("cart min dependent quantity must be 0 or 1, got %d", c.Cart.MinDependentQuantity)
	}
	if c.Cart.MutationMaxAttempts < 1 {
		return fmt.Errorf("cart mutation max attempts must be at least 1, got %d", c.Cart.MutationMaxAttempts)
	}

	// Catalog and cart base URLs may be empty: those routes then answer 502.
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Storage.DataPath, filepath.Join(homeDir, "SmartBundles", "data"))
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue
	}
	return n
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables win over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
