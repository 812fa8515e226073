// Package config builds the immutable worker-service configuration once at
// startup. Precedence: built-in defaults, then an optional YAML base file,
// then environment variables. CLI flags are applied last by the caller.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config represents the complete worker-service configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	TTS     TTSConfig     `yaml:"tts"`
	Storage StorageConfig `yaml:"storage"`
	Worker  WorkerConfig  `yaml:"worker"`
	Logging LoggingConfig `yaml:"logging"`
	Notify  NotifyConfig  `yaml:"notify"`
	Status  StatusConfig  `yaml:"status"`
}

// APIConfig holds remote job API settings
type APIConfig struct {
	BaseURL string `yaml:"base_url" env:"API_BASE_URL"`
	APIKey  string `yaml:"api_key" env:"SERVER_TO_SERVER_API_KEY"`
}

// TTSConfig holds synthesis service settings
type TTSConfig struct {
	ServerURL      string  `yaml:"server_url" env:"TTS_SERVER_URL"`
	TimeoutSeconds int     `yaml:"timeout_seconds" env:"ORPHEUS_API_TIMEOUT"`
	Speed          float64 `yaml:"speed" env:"TTS_SPEED"`
	UseRandomVoice bool    `yaml:"use_random_voice" env:"USE_RANDOM_VOICE"`
}

// StorageConfig holds S3 upload settings
type StorageConfig struct {
	AccessKeyID     string `yaml:"access_key_id" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"AWS_SECRET_ACCESS_KEY"`
	Region          string `yaml:"region" env:"AWS_REGION"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET"`
}

// WorkerConfig holds pool and pipeline settings. Timeouts and delays are
// plain seconds to match the documented environment contract.
type WorkerConfig struct {
	MaxWorkers          int    `yaml:"max_workers" env:"MAX_WORKERS"`
	TimeoutSeconds      int    `yaml:"timeout_seconds" env:"WORKER_TIMEOUT"`
	RetryAttempts       int    `yaml:"retry_attempts" env:"RETRY_ATTEMPTS"`
	RetryDelaySeconds   int    `yaml:"retry_delay_seconds" env:"RETRY_DELAY"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds" env:"POLL_INTERVAL"`
	OutputDir           string `yaml:"output_dir" env:"OUTPUT_DIR"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Output string `yaml:"output" env:"LOG_FILE"`
}

// NotifyConfig holds optional terminal-failure notification settings
type NotifyConfig struct {
	DiscordWebhookURL string `yaml:"discord_webhook_url" env:"DISCORD_WEBHOOK_URL"`
}

// StatusConfig holds the optional status HTTP endpoint settings
type StatusConfig struct {
	Addr string `yaml:"addr" env:"STATUS_ADDR"`
}

// Default returns the documented defaults for every optional setting.
// Required settings (API URL, API key, storage credentials, bucket) stay
// empty and are caught by Validate.
func Default() *Config {
	return &Config{
		TTS: TTSConfig{
			ServerURL:      "http://localhost:5005",
			TimeoutSeconds: 120,
			Speed:          1.0,
		},
		Storage: StorageConfig{
			Region: "us-east-1",
		},
		Worker: WorkerConfig{
			MaxWorkers:          3,
			TimeoutSeconds:      300,
			RetryAttempts:       3,
			RetryDelaySeconds:   5,
			PollIntervalSeconds: 3,
			OutputDir:           "outputs",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML base file
// at configPath (empty path skips it), then environment variables.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration before any worker starts.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}

	if c.API.APIKey == "" {
		return fmt.Errorf("SERVER_TO_SERVER_API_KEY is required")
	}

	if c.Storage.AccessKeyID == "" || c.Storage.SecretAccessKey == "" {
		return fmt.Errorf("AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY are required")
	}

	if c.Storage.Bucket == "" {
		return fmt.Errorf("S3_BUCKET is required")
	}

	if c.Worker.MaxWorkers <= 0 {
		return fmt.Errorf("worker max_workers must be greater than 0")
	}

	if c.Worker.TimeoutSeconds <= 0 {
		return fmt.Errorf("worker timeout must be greater than 0")
	}

	if c.Worker.RetryAttempts <= 0 {
		return fmt.Errorf("worker retry_attempts must be greater than 0")
	}

	if c.Worker.RetryDelaySeconds < 0 {
		return fmt.Errorf("worker retry_delay must not be negative")
	}

	if c.Worker.PollIntervalSeconds <= 0 {
		return fmt.Errorf("worker poll_interval must be greater than 0")
	}

	if c.TTS.ServerURL == "" {
		return fmt.Errorf("tts server_url is required")
	}

	if c.TTS.TimeoutSeconds <= 0 {
		return fmt.Errorf("tts timeout must be greater than 0")
	}

	return nil
}

// Timeout returns the per-job and shutdown-drain budget.
func (c *WorkerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay returns the fixed inter-retry delay.
func (c *WorkerConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}

// PollInterval returns the empty-queue backoff interval.
func (c *WorkerConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Timeout returns the synthesis call budget.
func (c *TTSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
