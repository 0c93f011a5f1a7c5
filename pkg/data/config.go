// Package data provides configuration management and data structures for the flasharena application.
// It defines the roster, flashcard and arena payloads exchanged with the backend together with
// API, arena, logging and export settings loaded from YAML, .env files and the environment.
package data

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Error types for configuration validation
var (
	ErrInvalidAPIConfig    = errors.New("invalid API configuration")
	ErrInvalidArenaConfig  = errors.New("invalid arena configuration")
	ErrInvalidLogConfig    = errors.New("invalid log configuration")
	ErrInvalidExportConfig = errors.New("invalid export configuration")
	ErrConfigNotFound      = errors.New("configuration file not found")
	ErrConfigParseError    = errors.New("failed to parse configuration file")
)

// Rounds limits accepted by the arena setup form
const (
	MinRounds     = 1
	MaxRounds     = 20
	DefaultRounds = 3
)

// Config is the top-level configuration of the flasharena client
type Config struct {
	API    APIConfig    `yaml:"api" json:"api"`
	Arena  ArenaConfig  `yaml:"arena" json:"arena"`
	Log    LogConfig    `yaml:"log" json:"log"`
	Export ExportConfig `yaml:"export" json:"export"`
}

// APIConfig describes how to reach the battle backend
type APIConfig struct {
	BaseURL string        `yaml:"base_url" json:"base_url"` // Backend root, e.g. http://localhost:8000/api
	Timeout time.Duration `yaml:"timeout" json:"timeout"`   // Per-request deadline
}

// ArenaConfig holds battle flow preferences
type ArenaConfig struct {
	DefaultRounds    int           `yaml:"default_rounds" json:"default_rounds"`         // Preselected number of rounds
	VersusDelay      time.Duration `yaml:"versus_delay" json:"versus_delay"`             // How long the versus banner stays up
	ShowRoundResults bool          `yaml:"show_round_results" json:"show_round_results"` // Pause on a round result screen
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`   // debug/info/warn/error
	Format string `yaml:"format" json:"format"` // console/json
	File   string `yaml:"file" json:"file"`     // Optional log file, required for the TUI to keep the screen clean
}

// ExportConfig holds output format settings
type ExportConfig struct {
	Format    string `yaml:"format" json:"format"`       // table/csv/json
	Directory string `yaml:"directory" json:"directory"` // Where pack exports are written
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		API:    DefaultAPIConfig(),
		Arena:  DefaultArenaConfig(),
		Log:    DefaultLogConfig(),
		Export: DefaultExportConfig(),
	}
}

// DefaultAPIConfig returns backend connection defaults
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		BaseURL: "http://localhost:8000/api",
		Timeout: 10 * time.Second,
	}
}

// DefaultArenaConfig returns battle flow defaults
func DefaultArenaConfig() ArenaConfig {
	return ArenaConfig{
		DefaultRounds:    DefaultRounds,
		VersusDelay:      2500 * time.Millisecond,
		ShowRoundResults: false,
	}
}

// DefaultLogConfig returns logger defaults
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:  "info",
		Format: "console",
	}
}

// DefaultExportConfig returns export format defaults
func DefaultExportConfig() ExportConfig {
	return ExportConfig{
		Format:    "table",
		Directory: ".",
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("API config validation failed: %w", err)
	}

	if err := c.Arena.Validate(); err != nil {
		return fmt.Errorf("arena config validation failed: %w", err)
	}

	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log config validation failed: %w", err)
	}

	if err := c.Export.Validate(); err != nil {
		return fmt.Errorf("export config validation failed: %w", err)
	}

	return nil
}

// Validate checks that API configuration is valid
func (a *APIConfig) Validate() error {
	if strings.TrimSpace(a.BaseURL) == "" {
		return fmt.Errorf("%w: base_url is required", ErrInvalidAPIConfig)
	}

	u, err := url.Parse(a.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: base_url '%s' must be an absolute http(s) URL", ErrInvalidAPIConfig, a.BaseURL)
	}

	if a.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidAPIConfig, a.Timeout)
	}

	if a.Timeout > 5*time.Minute {
		return fmt.Errorf("%w: timeout %v is unusually long (max 5m)", ErrInvalidAPIConfig, a.Timeout)
	}

	return nil
}

// Validate checks that arena configuration is valid
func (a *ArenaConfig) Validate() error {
	if a.DefaultRounds < MinRounds || a.DefaultRounds > MaxRounds {
		return fmt.Errorf("%w: default_rounds %d must be between %d and %d",
			ErrInvalidArenaConfig, a.DefaultRounds, MinRounds, MaxRounds)
	}

	if a.VersusDelay < 0 {
		return fmt.Errorf("%w: versus_delay cannot be negative, got %v", ErrInvalidArenaConfig, a.VersusDelay)
	}

	if a.VersusDelay > time.Minute {
		return fmt.Errorf("%w: versus_delay %v is unusually long (max 1m)", ErrInvalidArenaConfig, a.VersusDelay)
	}

	return nil
}

// Validate checks that log configuration is valid
func (l *LogConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLevels[l.Level] {
		return fmt.Errorf("%w: level '%s' must be one of: debug, info, warn, error", ErrInvalidLogConfig, l.Level)
	}

	if l.Format != "console" && l.Format != "json" {
		return fmt.Errorf("%w: format '%s' must be 'console' or 'json'", ErrInvalidLogConfig, l.Format)
	}

	return nil
}

// Validate checks that export configuration is valid
func (e *ExportConfig) Validate() error {
	validFormats := map[string]bool{
		"table": true,
		"csv":   true,
		"json":  true,
	}

	if !validFormats[e.Format] {
		return fmt.Errorf("%w: format '%s' must be one of: table, csv, json", ErrInvalidExportConfig, e.Format)
	}

	if strings.TrimSpace(e.Directory) == "" {
		return fmt.Errorf("%w: directory cannot be empty", ErrInvalidExportConfig)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(filename string) (*Config, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, filename)
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config Config
	if err := yaml.Unmarshal(raw, &config); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParseError, filename, err)
	}

	config = mergeWithDefaults(config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filename, err)
	}

	return &config, nil
}

// LoadWithEnvironment loads configuration from file, then .env files, and applies
// FLASHARENA_* environment variable overrides on top
func LoadWithEnvironment(filename string, envFiles ...string) (*Config, error) {
	config := DefaultConfig()

	if filename != "" {
		fileConfig, err := LoadFromFile(filename)
		if err != nil && !errors.Is(err, ErrConfigNotFound) {
			return nil, err
		}
		if err == nil {
			config = *fileConfig
		}
	}

	if err := loadDotEnv(envFiles...); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid final configuration: %w", err)
	}

	return &config, nil
}

// loadDotEnv populates the process environment from .env files. Variables already
// set in the environment win. Missing files are ignored.
func loadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigParseError, err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(filename string) error {
	raw, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, raw, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filename, err)
	}

	return nil
}

// SearchPaths returns possible configuration file locations in lookup order.
// Only bare file names are searched for.
func SearchPaths(filename string) []string {
	paths := []string{filename}
	if filepath.Base(filename) != filename {
		return paths
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "flasharena", filename),
			filepath.Join(homeDir, ".flasharena", filename))
	}
	return append(paths, filepath.Join("/etc", "flasharena", filename))
}

// ResolvePath finds the configuration file to load. Paths with a directory
// part are used as given, bare file names are looked up in SearchPaths.
// When nothing exists the name is returned unchanged.
func ResolvePath(filename string) string {
	if filename == "" || filepath.IsAbs(filename) || filepath.Base(filename) != filename {
		return filename
	}
	for _, p := range SearchPaths(filename) {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return filename
}

// CreateDefaultConfig writes the default configuration to path, creating
// missing directories. An existing file is left alone unless force is set.
func CreateDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file %s already exists", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	config := DefaultConfig()
	if err := config.SaveToFile(path); err != nil {
		return fmt.Errorf("failed to create default config: %w", err)
	}
	return nil
}

// mergeWithDefaults fills in missing values with defaults
func mergeWithDefaults(config Config) Config {
	defaults := DefaultConfig()

	if config.API.BaseURL == "" {
		config.API.BaseURL = defaults.API.BaseURL
	}
	if config.API.Timeout == 0 {
		config.API.Timeout = defaults.API.Timeout
	}

	if config.Arena.DefaultRounds == 0 {
		config.Arena.DefaultRounds = defaults.Arena.DefaultRounds
	}
	if config.Arena.VersusDelay == 0 {
		config.Arena.VersusDelay = defaults.Arena.VersusDelay
	}

	if config.Log.Level == "" {
		config.Log.Level = defaults.Log.Level
	}
	if config.Log.Format == "" {
		config.Log.Format = defaults.Log.Format
	}

	if config.Export.Format == "" {
		config.Export.Format = defaults.Export.Format
	}
	if config.Export.Directory == "" {
		config.Export.Directory = defaults.Export.Directory
	}

	return config
}

// applyEnvironmentOverrides applies environment variable overrides
func applyEnvironmentOverrides(config *Config) {
	// API configuration overrides
	if val := os.Getenv("FLASHARENA_API_BASE_URL"); val != "" {
		config.API.BaseURL = strings.TrimRight(val, "/")
	}
	if val := os.Getenv("FLASHARENA_API_TIMEOUT"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.API.Timeout = parsed
		}
	}

	// Arena configuration overrides
	if val := os.Getenv("FLASHARENA_ARENA_DEFAULT_ROUNDS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.Arena.DefaultRounds = parsed
		}
	}
	if val := os.Getenv("FLASHARENA_ARENA_VERSUS_DELAY"); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			config.Arena.VersusDelay = parsed
		}
	}
	if val := os.Getenv("FLASHARENA_ARENA_SHOW_ROUND_RESULTS"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.Arena.ShowRoundResults = parsed
		}
	}

	// Log configuration overrides
	if val := os.Getenv("FLASHARENA_LOG_LEVEL"); val != "" {
		config.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("FLASHARENA_LOG_FORMAT"); val != "" {
		config.Log.Format = val
	}
	if val := os.Getenv("FLASHARENA_LOG_FILE"); val != "" {
		config.Log.File = val
	}

	// Export configuration overrides
	if val := os.Getenv("FLASHARENA_EXPORT_FORMAT"); val != "" {
		config.Export.Format = val
	}
	if val := os.Getenv("FLASHARENA_EXPORT_DIRECTORY"); val != "" {
		config.Export.Directory = val
	}
}
