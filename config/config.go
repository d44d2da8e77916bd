/*
Package config loads server settings.

SOURCES (later wins):
  1. Defaults
  2. .env file (if present, never overrides the real environment)
  3. Environment variables
  4. Command-line flags

VARIABLES:
  PORT              HTTP port (default 8080)
  DB_PATH           SQLite path, ":memory:" for in-memory (default fundbooks.db)
  LOG_LEVEL         debug | info | warn | error (default info)
  LOG_FORMAT        human | json (default human)
  CORS_ORIGINS      Comma-separated allowed origins
  SEED_SCENARIO     Demo scenario loaded at startup when set
  SHUTDOWN_TIMEOUT  Graceful shutdown budget (default 30s)
*/
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

type Config struct {
	Port            int
	DBPath          string
	LogLevel        string
	LogFormat       string
	CORSOrigins     []string
	SeedScenario    string
	ShutdownTimeout time.Duration
}

// LoadDotEnv reads .env style files into the environment. Missing files
// are skipped; a file that exists but does not parse is reported, and the
// remaining files are still loaded.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var errs []error
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			errs = append(errs, fmt.Errorf("load %s: %w", f, err))
		}
	}
	return errors.Join(errs...)
}

// FromEnv builds a Config from environment variables and defaults.
func FromEnv() *Config {
	return &Config{
		Port:            getEnvInt("PORT", 8080),
		DBPath:          getEnv("DB_PATH", "fundbooks.db"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "human"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")),
		SeedScenario:    getEnv("SEED_SCENARIO", ""),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

// ParseFlags overrides fields with command-line flags.
func (c *Config) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("fundbooks", flag.ContinueOnError)
	fs.IntVar(&c.Port, "port", c.Port, "HTTP server port")
	fs.StringVar(&c.DBPath, "db", c.DBPath, `SQLite database path (":memory:" for in-memory)`)
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: human or json")
	fs.StringVar(&c.SeedScenario, "seed", c.SeedScenario, "demo scenario to load at startup")
	fs.DurationVar(&c.ShutdownTimeout, "shutdown-timeout", c.ShutdownTimeout, "graceful shutdown timeout")
	return fs.Parse(args)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d: must be between 1 and 65535", c.Port))
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("database path cannot be empty"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil || c.LogLevel == "" {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	if c.LogFormat != "human" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid log format %q: must be human or json", c.LogFormat))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid shutdown timeout %s", c.ShutdownTimeout))
	}

	return errors.Join(errs...)
}

// Level returns the parsed log level, info when unparseable.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// =============================================================================
// HELPERS
// =============================================================================

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
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
