package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration. Values come from defaults, then the optional YAML
// file, then the environment (a .env file in the working directory is loaded first).
type Config struct {
	APIURL         string            `yaml:"api_url"`
	Token          string            `yaml:"-"`
	MaxAttempts    int               `yaml:"max_attempts"`
	InitialDelay   time.Duration     `yaml:"initial_delay"`
	HTTPTimeout    time.Duration     `yaml:"http_timeout"`
	RateLimit      float64           `yaml:"rate_limit"`
	CircuitBreaker bool              `yaml:"circuit_breaker"`
	LogLevel       string            `yaml:"log_level"`
	LogFormat      string            `yaml:"log_format"`
	KeyringService string            `yaml:"keyring_service"`
	KeyringUser    string            `yaml:"keyring_user"`
	Corrections    map[string]string `yaml:"corrections"`
}

func defaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   time.Second,
		HTTPTimeout:    60 * time.Second,
		LogLevel:       "warn",
		LogFormat:      "text",
		KeyringService: "docqa",
		KeyringUser:    "default",
	}
}

// LoadConfig builds the configuration. path may be empty. The result is not validated
// so that command-line flags can still fill in missing values.
func LoadConfig(path string) (Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.APIURL = envString("DOCQA_API_URL", cfg.APIURL)
	cfg.Token = envString("DOCQA_TOKEN", cfg.Token)
	cfg.MaxAttempts = envInt("DOCQA_MAX_ATTEMPTS", cfg.MaxAttempts)
	cfg.InitialDelay = envDuration("DOCQA_INITIAL_DELAY", cfg.InitialDelay)
	cfg.HTTPTimeout = envDuration("DOCQA_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.RateLimit = envFloat("DOCQA_RATE_LIMIT", cfg.RateLimit)
	cfg.CircuitBreaker = envBool("DOCQA_CIRCUIT_BREAKER", cfg.CircuitBreaker)
	cfg.LogLevel = envString("DOCQA_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = envString("DOCQA_LOG_FORMAT", cfg.LogFormat)
	cfg.KeyringService = envString("DOCQA_KEYRING_SERVICE", cfg.KeyringService)
	cfg.KeyringUser = envString("DOCQA_KEYRING_USER", cfg.KeyringUser)

	return cfg, nil
}

// Validate checks the fields that commands cannot work without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIURL) == "" {
		return fmt.Errorf("api url is not set (DOCQA_API_URL or api_url in the config file)")
	}
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api url %q must start with http:// or https://", c.APIURL)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must not be negative, got %v", c.RateLimit)
	}
	return nil
}

func envString(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
