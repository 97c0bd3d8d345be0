// Package config loads server and CLI configuration from flags, environment
// variables and an optional .env file.
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

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Data      DataConfig
	Store     StoreConfig
	Server    ServerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Normalize NormalizeConfig
	Search    SearchConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level  string
	Format string // json, pretty, text; empty picks by environment
}

// DataConfig locates on-disk state.
type DataConfig struct {
	BasePath string
}

// SQLitePath is the sqlite database file.
func (d DataConfig) SQLitePath() string { return filepath.Join(d.BasePath, "verbete.db") }

// BadgerPath is the badger store directory.
func (d DataConfig) BadgerPath() string { return filepath.Join(d.BasePath, "kv") }

// SearchPath is the bleve index directory.
func (d DataConfig) SearchPath() string { return filepath.Join(d.BasePath, "search.bleve") }

// LockPath is the file that keeps batch jobs single-instance.
func (d DataConfig) LockPath() string { return filepath.Join(d.BasePath, "fix-content.lock") }

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  []string
}

// AuthConfig holds token configuration. KeyHex overrides the key file in
// the data directory.
type AuthConfig struct {
	KeyHex              string
	AccessTokenDuration time.Duration
}

// RateLimitConfig bounds requests per client address.
type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

// NormalizeConfig tunes the batch content fixer.
type NormalizeConfig struct {
	Concurrency int
	ItemTimeout time.Duration
}

// SearchConfig toggles the full-text index.
type SearchConfig struct {
	Enabled bool
}

// LoadConfig loads configuration from args and the environment with
// precedence flag > environment > .env file > default.
func LoadConfig(args []string) (*Config, error) {
	fs := flag.NewFlagSet("verbete", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := fs.String("log-format", "", "Log format (json, pretty, text)")
	dataPath := fs.String("data-path", "", "Directory for the database, search index and keys")
	storeDriver := fs.String("store", "", "Store driver (sqlite, badger)")

	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 30s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins")

	authKey := fs.String("auth-key", "", "Hex-encoded 32-byte token key (default: generated in data path)")
	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (default: 12h)")

	rateLimitEnabled := fs.String("rate-limit", "", "Enable per-client rate limiting (default: true)")
	rateLimitRPS := fs.String("rate-limit-rps", "", "Requests per second per client (default: 20)")
	rateLimitBurst := fs.String("rate-limit-burst", "", "Burst size per client (default: 40)")

	fixConcurrency := fs.String("fix-concurrency", "", "Parallel items in fix-content runs (default: 4)")
	fixItemTimeout := fs.String("fix-item-timeout", "", "Per-item timeout in fix-content runs (default: 10s)")

	searchEnabled := fs.String("search", "", "Enable the full-text index (default: true)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// A missing .env file is fine.
	if err := loadEnvFile(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level:  getConfigValue(*logLevel, "LOG_LEVEL", "info"),
			Format: getConfigValue(*logFormat, "LOG_FORMAT", ""),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Store: StoreConfig{
			Driver: strings.ToLower(getConfigValue(*storeDriver, "STORE_DRIVER", DriverSQLite)),
		},
		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "http://localhost:3000")),
		},
		Auth: AuthConfig{
			KeyHex: getConfigValue(*authKey, "AUTH_KEY", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolConfigValue(*rateLimitEnabled, "RATE_LIMIT_ENABLED", true),
			Burst:   getIntConfigValue(*rateLimitBurst, "RATE_LIMIT_BURST", 40),
		},
		Normalize: NormalizeConfig{
			Concurrency: getIntConfigValue(*fixConcurrency, "FIX_CONCURRENCY", 4),
		},
		Search: SearchConfig{
			Enabled: getBoolConfigValue(*searchEnabled, "SEARCH_ENABLED", true),
		},
	}

	rps := getConfigValue(*rateLimitRPS, "RATE_LIMIT_RPS", "20")
	parsedRPS, err := strconv.ParseFloat(rps, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rate limit rps %q: %w", rps, err)
	}
	cfg.RateLimit.RPS = parsedRPS

	durations := []struct {
		flagValue, envKey, def, name string
		dst                          *time.Duration
	}{
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "30s", "write timeout", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout", &cfg.Server.IdleTimeout},
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "12h", "access token duration", &cfg.Auth.AccessTokenDuration},
		{*fixItemTimeout, "FIX_ITEM_TIMEOUT", "10s", "fix item timeout", &cfg.Normalize.ItemTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, raw, err)
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

// Validate checks that all config values are present and valid.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment))
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("invalid log level: %q (must be debug, info, warn, or error)", c.Logger.Level))
	}

	switch c.Logger.Format {
	case "", "json", "pretty", "text":
	default:
		errs = append(errs, fmt.Errorf("invalid log format: %q (must be json, pretty, or text)", c.Logger.Format))
	}

	if c.Data.BasePath == "" {
		errs = append(errs, errors.New("data path cannot be empty after expansion"))
	}

	if c.Store.Driver != DriverSQLite && c.Store.Driver != DriverBadger {
		errs = append(errs, fmt.Errorf("invalid store driver: %q (must be sqlite or badger)", c.Store.Driver))
	}

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port: %q", c.Server.Port))
	}

	if c.Auth.AccessTokenDuration <= 0 {
		errs = append(errs, errors.New("access token duration must be positive"))
	}

	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst < 1) {
		errs = append(errs, errors.New("rate limit needs rps > 0 and burst >= 1"))
	}

	if c.Normalize.Concurrency < 1 {
		errs = append(errs, errors.New("fix concurrency must be at least 1"))
	}
	if c.Normalize.ItemTimeout <= 0 {
		errs = append(errs, errors.New("fix item timeout must be positive"))
	}

	return errors.Join(errs...)
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned as is.
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

// expandDataPath defaults the data directory to ~/.verbete.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	expanded, err := expandPath(c.Data.BasePath, filepath.Join(homeDir, ".verbete"))
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
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

// getBoolConfigValue accepts "true", "1" and "yes" (any case) as true.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
// Unparseable values fall back to the default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(strings.TrimSpace(strValue))
	if err != nil {
		return defaultValue
	}
	return result
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads KEY=value lines from path into the environment without
// overriding variables that are already set. # starts a comment line.
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- path comes from the operator
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
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		if _, set := os.LookupEnv(key); !set {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
