// Package config provides configuration loading and validation for the service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Defaults
const (
	DefaultPort                    = 8080
	DefaultLogLevel                = "info"
	DefaultInferenceTimeoutSeconds = 120
	DefaultDocumentRoot            = "./documents"
	DefaultSMTPPort                = 587
	DefaultRabbitMQExchange        = "hiring.changes"
)

// Config is the service configuration. It can be loaded from a JSON file and
// from the environment; file values take precedence over environment values.
type Config struct {
	Port         int    `json:"port,omitempty"`
	DatabaseURL  string `json:"database_url,omitempty"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
	LogLevel     string `json:"log_level,omitempty"` // debug, info, warn, error

	InferenceTimeoutSeconds int    `json:"inference_timeout_seconds,omitempty"`
	DocumentRoot            string `json:"document_root,omitempty"` // Directory that document references resolve under

	// SMTP; notifications are only logged when SMTPHost is empty
	SMTPHost          string `json:"smtp_host,omitempty"`
	SMTPPort          int    `json:"smtp_port,omitempty"`
	SMTPUser          string `json:"smtp_user,omitempty"`
	SMTPPass          string `json:"smtp_pass,omitempty"`
	SMTPFrom          string `json:"smtp_from,omitempty"`
	SMTPSkipTLSVerify bool   `json:"smtp_skip_tls_verify,omitempty"`

	// RabbitMQ; change events stay in-process when RabbitMQURL is empty
	RabbitMQURL      string `json:"rabbitmq_url,omitempty"`
	RabbitMQExchange string `json:"rabbitmq_exchange,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:                    DefaultPort,
		LogLevel:                DefaultLogLevel,
		InferenceTimeoutSeconds: DefaultInferenceTimeoutSeconds,
		DocumentRoot:            DefaultDocumentRoot,
		SMTPPort:                DefaultSMTPPort,
		RabbitMQExchange:        DefaultRabbitMQExchange,
	}
}

// Load builds the effective configuration: the JSON file at path (optional),
// then the environment, then Defaults. The result is validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		fileCfg, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	env, err := FromEnv()
	if err != nil {
		return nil, err
	}
	merged := cfg.MergeWithDefaults(env)
	merged = merged.MergeWithDefaults(Defaults())

	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads configuration from environment variables. Unset variables
// leave fields at their zero value.
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		DocumentRoot:     os.Getenv("DOCUMENT_ROOT"),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPUser:         os.Getenv("SMTP_USER"),
		SMTPPass:         os.Getenv("SMTP_PASS"),
		SMTPFrom:         os.Getenv("SMTP_FROM"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange: os.Getenv("RABBITMQ_EXCHANGE"),
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"PORT", &cfg.Port},
		{"INFERENCE_TIMEOUT_SECONDS", &cfg.InferenceTimeoutSeconds},
		{"SMTP_PORT", &cfg.SMTPPort},
	}
	for _, v := range ints {
		raw := strings.TrimSpace(os.Getenv(v.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %v", v.name, err)
		}
		*v.dst = n
	}

	switch strings.ToLower(strings.TrimSpace(os.Getenv("SMTP_SKIP_TLS_VERIFY"))) {
	case "1", "true", "yes":
		cfg.SMTPSkipTLSVerify = true
	}

	return cfg, nil
}

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "warning": true, "error": true}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535, got %d", c.Port)
	}
	if c.InferenceTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'inference_timeout_seconds' must be non-negative")
	}
	if c.SMTPPort < 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("config error: 'smtp_port' must be between 0 and 65535, got %d", c.SMTPPort)
	}
	if c.LogLevel != "" && !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("config error: unknown 'log_level' %q", c.LogLevel)
	}
	if c.SMTPHost != "" && c.SMTPFrom == "" {
		return fmt.Errorf("config error: 'smtp_from' is required when 'smtp_host' is set")
	}
	if c.RabbitMQURL != "" && !strings.HasPrefix(c.RabbitMQURL, "amqp://") && !strings.HasPrefix(c.RabbitMQURL, "amqps://") {
		return fmt.Errorf("config error: 'rabbitmq_url' must use the amqp or amqps scheme")
	}
	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.DocumentRoot == "" {
		result.DocumentRoot = defaults.DocumentRoot
	}
	if result.SMTPHost == "" {
		result.SMTPHost = defaults.SMTPHost
	}
	if result.SMTPUser == "" {
		result.SMTPUser = defaults.SMTPUser
	}
	if result.SMTPPass == "" {
		result.SMTPPass = defaults.SMTPPass
	}
	if result.SMTPFrom == "" {
		result.SMTPFrom = defaults.SMTPFrom
	}
	if result.RabbitMQURL == "" {
		result.RabbitMQURL = defaults.RabbitMQURL
	}
	if result.RabbitMQExchange == "" {
		result.RabbitMQExchange = defaults.RabbitMQExchange
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.InferenceTimeoutSeconds == 0 {
		result.InferenceTimeoutSeconds = defaults.InferenceTimeoutSeconds
	}
	if result.SMTPPort == 0 {
		result.SMTPPort = defaults.SMTPPort
	}

	// Bool fields: true wins
	result.SMTPSkipTLSVerify = result.SMTPSkipTLSVerify || defaults.SMTPSkipTLSVerify

	return result
}

// InferenceTimeout returns the per-call inference deadline.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceTimeoutSeconds) * time.Second
}
