// Package config provides application configuration management with support
// for environment variables, command-line flags, and .env files.
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
	App       AppConfig
	Logger    LoggerConfig
	Server    ServerConfig
	Resolver  ResolverConfig
	Embedding EmbeddingConfig
	WebSearch WebSearchConfig
	Generate  GenerateConfig
	Catalog   CatalogConfig
	Storage   StorageConfig
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
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ResolverConfig holds resolution cascade tuning.
// Threshold and topK are runtime configuration because operators tune them
// empirically against the live catalog.
type ResolverConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a catalog
	// candidate to be accepted (default 0.8).
	SimilarityThreshold float64
	// TopK is the number of nearest catalog vectors considered (default 3).
	TopK int
	// RetryAttempts is the maximum attempts per web-search/generation call.
	RetryAttempts int
	// BackoffBase is the first retry delay; doubled each attempt up to
	// BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration
	// CacheCapacity bounds the in-memory result cache (LRU eviction).
	CacheCapacity int
}

// EmbeddingConfig holds embedding provider configuration.
type EmbeddingConfig struct {
	APIKey string
	Model  string
	// Dimensions must match the catalog's vector dimension; a mismatch is a
	// fatal startup error.
	Dimensions int
}

// WebSearchConfig holds the image web-search provider configuration.
type WebSearchConfig struct {
	APIKey        string
	EngineID      string
	RatePerSecond float64
	Burst         int
}

// GenerateConfig holds the generative image provider configuration.
type GenerateConfig struct {
	APIKey        string
	Model         string
	Size          string
	RatePerSecond float64
	Burst         int
}

// CatalogConfig holds dish catalog configuration.
type CatalogConfig struct {
	// Path points to the catalog snapshot file (JSON entries with vectors).
	Path string
	// Watch enables hot reload of the snapshot on file change.
	Watch bool
}

// StorageConfig holds persistence paths.
type StorageConfig struct {
	// DataPath is the Badger database directory (result cache, catalog
	// snapshots).
	DataPath string
	// UnmatchedDBPath is the SQLite database file for the unmatched log.
	UnmatchedDBPath string
	// ImagePath is the directory for locally stored images.
	ImagePath string
	// SearchIndexPath is the bleve index directory for unmatched curation
	// search. Empty means in-memory.
	SearchIndexPath string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	port := flag.String("port", "", "Server port (default: 8080)")
	dataPath := flag.String("data-path", "", "Base path for data storage")
	catalogPath := flag.String("catalog-path", "", "Path to the dish catalog snapshot")
	catalogWatch := flag.String("catalog-watch", "", "Hot-reload catalog on change (default: true)")

	threshold := flag.String("similarity-threshold", "", "Catalog acceptance threshold (default: 0.8)")
	topK := flag.String("top-k", "", "Catalog results considered per query (default: 3)")
	retryAttempts := flag.String("retry-attempts", "", "Provider retry attempts (default: 3)")
	backoffBase := flag.String("backoff-base", "", "Retry backoff base delay (default: 500ms)")
	cacheCapacity := flag.String("cache-capacity", "", "Result cache capacity (default: 4096)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port: getConfigValue(*port, "SERVER_PORT", "8080"),
		},
		Resolver: ResolverConfig{
			SimilarityThreshold: getFloatConfigValue(*threshold, "SIMILARITY_THRESHOLD", 0.8),
			TopK:                getIntConfigValue(*topK, "TOP_K", 3),
			RetryAttempts:       getIntConfigValue(*retryAttempts, "RETRY_ATTEMPTS", 3),
			CacheCapacity:       getIntConfigValue(*cacheCapacity, "CACHE_CAPACITY", 4096),
		},
		Embedding: EmbeddingConfig{
			APIKey:     getConfigValue("", "OPENAI_API_KEY", ""),
			Model:      getConfigValue("", "EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimensions: getIntConfigValue("", "EMBEDDING_DIMENSIONS", 1536),
		},
		WebSearch: WebSearchConfig{
			APIKey:        getConfigValue("", "GOOGLE_CSE_API_KEY", ""),
			EngineID:      getConfigValue("", "GOOGLE_CSE_ID", ""),
			RatePerSecond: getFloatConfigValue("", "WEB_SEARCH_RATE_PER_SECOND", 5),
			Burst:         getIntConfigValue("", "WEB_SEARCH_BURST", 5),
		},
		Generate: GenerateConfig{
			APIKey:        getConfigValue("", "OPENAI_API_KEY", ""),
			Model:         getConfigValue("", "GENERATE_MODEL", "dall-e-3"),
			Size:          getConfigValue("", "GENERATE_SIZE", "1024x1024"),
			RatePerSecond: getFloatConfigValue("", "GENERATE_RATE_PER_SECOND", 1),
			Burst:         getIntConfigValue("", "GENERATE_BURST", 1),
		},
		Catalog: CatalogConfig{
			Path:  getConfigValue(*catalogPath, "CATALOG_PATH", ""),
			Watch: getBoolConfigValue(*catalogWatch, "CATALOG_WATCH", true),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
	}

	// Parse durations.
	backoffBaseStr := getConfigValue(*backoffBase, "BACKOFF_BASE", "500ms")
	d, err := time.ParseDuration(backoffBaseStr)
	if err != nil {
		return nil, fmt.Errorf("invalid backoff base %q: %w", backoffBaseStr, err)
	}
	cfg.Resolver.BackoffBase = d

	backoffMaxStr := getConfigValue("", "BACKOFF_MAX", "10s")
	d, err = time.ParseDuration(backoffMaxStr)
	if err != nil {
		return nil, fmt.Errorf("invalid backoff max %q: %w", backoffMaxStr, err)
	}
	cfg.Resolver.BackoffMax = d

	for name, target := range map[string]*time.Duration{
		"SERVER_READ_TIMEOUT":  &cfg.Server.ReadTimeout,
		"SERVER_WRITE_TIMEOUT": &cfg.Server.WriteTimeout,
		"SERVER_IDLE_TIMEOUT":  &cfg.Server.IdleTimeout,
	} {
		def := "15s"
		if name == "SERVER_IDLE_TIMEOUT" {
			def = "60s"
		}
		raw := getConfigValue("", name, def)
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		*target = d
	}

	if err := cfg.expandDataPaths(); err != nil {
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
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
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

	if c.Resolver.SimilarityThreshold < 0 || c.Resolver.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold %f out of range [0, 1]", c.Resolver.SimilarityThreshold)
	}
	if c.Resolver.TopK < 1 {
		return fmt.Errorf("top-k must be at least 1, got %d", c.Resolver.TopK)
	}
	if c.Resolver.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.Resolver.RetryAttempts)
	}
	if c.Resolver.CacheCapacity < 1 {
		return fmt.Errorf("cache capacity must be at least 1, got %d", c.Resolver.CacheCapacity)
	}
	if c.Embedding.Dimensions < 1 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	return nil
}

// expandDataPaths expands ~ in the data path, makes it absolute, and derives
// the dependent storage paths from it.
func (c *Config) expandDataPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Dishplay", "data")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded

	if c.Storage.UnmatchedDBPath == "" {
		c.Storage.UnmatchedDBPath = filepath.Join(expanded, "unmatched.db")
	}
	if c.Storage.ImagePath == "" {
		c.Storage.ImagePath = filepath.Join(expanded, "images")
	}
	if c.Storage.SearchIndexPath == "" {
		c.Storage.SearchIndexPath = filepath.Join(expanded, "unmatched.bleve")
	}

	if c.Catalog.Path != "" {
		expanded, err := expandPath(c.Catalog.Path, "")
		if err != nil {
			return err
		}
		c.Catalog.Path = expanded
	}

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
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

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strValue)
	if err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float64 from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		return defaultValue
	}
	return result
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

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
