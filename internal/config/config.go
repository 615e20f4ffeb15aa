package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tomventa/sqlwarden/internal/dialect"
	"github.com/tomventa/sqlwarden/internal/executor"
	"github.com/tomventa/sqlwarden/internal/guard"
	"github.com/tomventa/sqlwarden/internal/logging"
	"github.com/tomventa/sqlwarden/internal/schema"
)

// Providers that can translate questions into SQL.
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL string `yaml:"database_url"`
	Dialect     string `yaml:"dialect"`

	Provider        string `yaml:"provider"`
	OllamaURL       string `yaml:"ollama_url"`
	Model           string `yaml:"ollama_model"`
	AnthropicAPIKey string `yaml:"-"`
	AnthropicModel  string `yaml:"anthropic_model"`
	MaxAttempts     int    `yaml:"max_attempts"`

	RowLimit          int           `yaml:"row_limit"`
	MaxRows           int           `yaml:"max_rows"`
	QueryTimeout      time.Duration `yaml:"query_timeout"`
	CheckTables       bool          `yaml:"check_tables"`
	Tables            []string      `yaml:"tables"`
	ForbiddenKeywords []string      `yaml:"forbidden_keywords"`
	MaxLength         int           `yaml:"max_length"`

	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	HistoryFile string `yaml:"history_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DatabaseURL:    "user:password@tcp(localhost:3306)/dbname",
		Provider:       ProviderOllama,
		OllamaURL:      "http://localhost:11434",
		Model:          "llama3.2",
		AnthropicModel: "claude-3-5-haiku-latest",
		MaxAttempts:    5,
		RowLimit:       guard.DefaultRowLimit,
		MaxRows:        executor.DefaultMaxRows,
		QueryTimeout:   executor.DefaultTimeout,
		CheckTables:    true,
		MaxLength:      guard.DefaultMaxLength,
		LogLevel:       "warn",
		LogFormat:      "text",
		HistoryFile:    "/tmp/palude_history.tmp",
	}
}

// Load creates a new Config from the defaults, the YAML file at path (when
// path is not empty) and environment variables, in that order.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		if err := config.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := config.loadEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.Dialect = getEnv("DB_DIALECT", c.Dialect)
	c.Provider = getEnv("LLM_PROVIDER", c.Provider)
	c.OllamaURL = getEnv("OLLAMA_URL", c.OllamaURL)
	c.Model = getEnv("OLLAMA_MODEL", c.Model)
	c.AnthropicAPIKey = getEnv("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = getEnv("ANTHROPIC_MODEL", c.AnthropicModel)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	var err error
	if c.MaxAttempts, err = getEnvInt("MAX_ATTEMPTS", c.MaxAttempts); err != nil {
		return err
	}
	if c.RowLimit, err = getEnvInt("ROW_LIMIT", c.RowLimit); err != nil {
		return err
	}
	if c.MaxRows, err = getEnvInt("MAX_ROWS", c.MaxRows); err != nil {
		return err
	}
	if c.QueryTimeout, err = getEnvDuration("QUERY_TIMEOUT", c.QueryTimeout); err != nil {
		return err
	}
	if c.CheckTables, err = getEnvBool("CHECK_TABLES", c.CheckTables); err != nil {
		return err
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DatabaseURL) == "":
		return errors.New("database url is required")
	case c.RowLimit <= 0:
		return fmt.Errorf("row_limit must be positive, got %d", c.RowLimit)
	case c.MaxRows <= 0:
		return fmt.Errorf("max_rows must be positive, got %d", c.MaxRows)
	case c.RowLimit > c.MaxRows:
		return fmt.Errorf("row_limit (%d) cannot exceed max_rows (%d)", c.RowLimit, c.MaxRows)
	case c.QueryTimeout <= 0:
		return fmt.Errorf("query_timeout must be positive, got %s", c.QueryTimeout)
	case c.MaxAttempts <= 0:
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	case c.MaxLength < 0:
		return fmt.Errorf("max_length cannot be negative, got %d", c.MaxLength)
	}

	if c.Dialect != "" {
		if _, err := dialect.Lookup(c.Dialect); err != nil {
			return err
		}
	}
	switch c.Provider {
	case ProviderOllama, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown provider %q (want %s or %s)", c.Provider, ProviderOllama, ProviderAnthropic)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// ResolveDialect picks the configured dialect, or detects it from the URL.
func (c *Config) ResolveDialect() (dialect.Dialect, error) {
	return dialect.Resolve(c.Dialect, c.DatabaseURL)
}

// GuardConfig derives the guard settings for dialect d.
func (c *Config) GuardConfig(d dialect.Dialect) guard.Config {
	return guard.Config{
		RowLimit:      c.RowLimit,
		CheckTables:   c.CheckTables,
		ExtraKeywords: append([]string(nil), c.ForbiddenKeywords...),
		MaxLength:     c.MaxLength,
		Dialect:       d.Name(),
	}
}

// ExecutorOptions derives the executor settings.
func (c *Config) ExecutorOptions() executor.Options {
	return executor.Options{Timeout: c.QueryTimeout, MaxRows: c.MaxRows}
}

// SchemaOptions derives the schema loading settings.
func (c *Config) SchemaOptions() schema.Options {
	return schema.Options{Include: append([]string(nil), c.Tables...)}
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the value of an environment variable as an integer or a default value
func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

// getEnvBool accepts the forms strconv.ParseBool does.
func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

// getEnvDuration accepts Go durations ("5s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
