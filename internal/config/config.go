package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ZanzyTHEbar/creative-scorer/internal/errors"
	"github.com/ZanzyTHEbar/creative-scorer/internal/orchestrator"
)

// Config is the service configuration. Environment variables set the
// defaults; a YAML file named by CONFIG_FILE overrides them.
type Config struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`
	DBPath  string `yaml:"db_path"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	TokenBudget         int           `yaml:"token_budget"`
	MeasurementURL      string        `yaml:"measurement_url"`
	PerceptionURL       string        `yaml:"perception_url"`
	ReasoningURL        string        `yaml:"reasoning_url"`
	CollaboratorTimeout time.Duration `yaml:"collaborator_timeout"`

	RulesFile     string `yaml:"rules_file"`
	BenchmarksDir string `yaml:"benchmarks_dir"`

	CacheTTL        time.Duration `yaml:"cache_ttl"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`

	LogLevel    string   `yaml:"log_level"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// Load reads the configuration from the environment and the optional
// CONFIG_FILE overlay, then validates it
func Load() (*Config, error) {
	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.Overlay(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a configuration from environment variables with defaults
func FromEnv() (*Config, error) {
	dataDir := getEnvOrDefault("DATA_DIR", "./data")

	cfg := &Config{
		Port:           getEnvOrDefault("PORT", "8080"),
		DataDir:        dataDir,
		DBPath:         getEnvOrDefault("DB_PATH", filepath.Join(dataDir, "benchmarks.db")),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		MeasurementURL: os.Getenv("MEASUREMENT_URL"),
		PerceptionURL:  os.Getenv("PERCEPTION_URL"),
		ReasoningURL:   os.Getenv("REASONING_URL"),
		RulesFile:      os.Getenv("RULES_FILE"),
		BenchmarksDir:  os.Getenv("BENCHMARKS_DIR"),
		LogLevel:       getEnvOrDefault("LOG_LEVEL", "info"),
		CORSOrigins:    splitList(getEnvOrDefault("CORS_ORIGINS", "*")),
	}

	var err error
	if cfg.RedisDB, err = getIntOrDefault("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.TokenBudget, err = getIntOrDefault("TOKEN_BUDGET", orchestrator.DefaultTokenBudget); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMin, err = getIntOrDefault("RATE_LIMIT_PER_MIN", 10); err != nil {
		return nil, err
	}
	if cfg.CollaboratorTimeout, err = getDurationOrDefault("COLLABORATOR_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDurationOrDefault("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Overlay merges the non-zero values of a YAML file into cfg
func (c *Config) Overlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.NewConfigurationError(fmt.Sprintf("cannot read config file %s", path), err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return errors.NewConfigurationError(fmt.Sprintf("invalid config file %s", path), err)
	}
	return nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	problems := map[string]string{}

	if port, err := strconv.Atoi(c.Port); err != nil || port <= 0 || port > 65535 {
		problems["port"] = fmt.Sprintf("invalid port %q", c.Port)
	}
	if c.DBPath == "" {
		problems["db_path"] = "database path is required"
	}
	if c.TokenBudget < 0 {
		problems["token_budget"] = "token budget cannot be negative"
	}
	if c.RedisDB < 0 {
		problems["redis_db"] = "redis database index cannot be negative"
	}
	if c.RateLimitPerMin <= 0 {
		problems["rate_limit_per_min"] = "rate limit must be positive"
	}
	if c.CollaboratorTimeout <= 0 {
		problems["collaborator_timeout"] = "collaborator timeout must be positive"
	}
	if c.CacheTTL <= 0 {
		problems["cache_ttl"] = "cache TTL must be positive"
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems["log_level"] = fmt.Sprintf("unknown log level %q", c.LogLevel)
	}

	if len(problems) == 0 {
		return nil
	}

	keys := make([]string, 0, len(problems))
	for k, v := range problems {
		keys = append(keys, k+": "+v)
	}
	sort.Strings(keys)
	return errors.NewConfigurationError("invalid configuration", fmt.Errorf("%s", strings.Join(keys, "; ")))
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.NewConfigurationError(fmt.Sprintf("%s must be an integer", key), err)
	}
	return n, nil
}

// getDurationOrDefault accepts Go durations ("45s") or bare seconds ("45")
func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.NewConfigurationError(fmt.Sprintf("%s must be a duration", key), err)
	}
	return d, nil
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
