package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv fills the settings Validate refuses to run without.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("SERVER_TO_SERVER_API_KEY", "test-key")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIATEST")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_BUCKET", "narrations")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:5005", cfg.TTS.ServerURL)
	assert.Equal(t, 120, cfg.TTS.TimeoutSeconds)
	assert.Equal(t, 1.0, cfg.TTS.Speed)
	assert.False(t, cfg.TTS.UseRandomVoice)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
	assert.Equal(t, 3, cfg.Worker.MaxWorkers)
	assert.Equal(t, 300, cfg.Worker.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Worker.RetryAttempts)
	assert.Equal(t, 5, cfg.Worker.RetryDelaySeconds)
	assert.Equal(t, 3, cfg.Worker.PollIntervalSeconds)
	assert.Equal(t, "outputs", cfg.Worker.OutputDir)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Notify.DiscordWebhookURL)
	assert.Empty(t, cfg.Status.Addr)
}

func TestLoadEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MAX_WORKERS", "7")
	t.Setenv("WORKER_TIMEOUT", "60")
	t.Setenv("RETRY_ATTEMPTS", "2")
	t.Setenv("RETRY_DELAY", "1")
	t.Setenv("USE_RANDOM_VOICE", "true")
	t.Setenv("TTS_SERVER_URL", "http://tts:9999")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/x")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 7, cfg.Worker.MaxWorkers)
	assert.Equal(t, 60, cfg.Worker.TimeoutSeconds)
	assert.Equal(t, 2, cfg.Worker.RetryAttempts)
	assert.Equal(t, 1, cfg.Worker.RetryDelaySeconds)
	assert.True(t, cfg.TTS.UseRandomVoice)
	assert.Equal(t, "http://tts:9999", cfg.TTS.ServerURL)
	assert.Equal(t, "https://discord.com/api/webhooks/x", cfg.Notify.DiscordWebhookURL)
}

func TestLoadYAMLBase(t *testing.T) {
	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL)
	assert.Equal(t, "file-api-key", cfg.API.APIKey)
	assert.Equal(t, "eu-west-1", cfg.Storage.Region)
	assert.Equal(t, 5, cfg.Worker.MaxWorkers)
	assert.Equal(t, 4, cfg.Worker.RetryAttempts)
	assert.Equal(t, "json", cfg.Logging.Format)
	// Defaults survive where the file is silent.
	assert.Equal(t, 3, cfg.Worker.PollIntervalSeconds)
	assert.Equal(t, "outputs", cfg.Worker.OutputDir)
}

func TestLoadEnvWinsOverYAML(t *testing.T) {
	t.Setenv("MAX_WORKERS", "11")
	t.Setenv("S3_BUCKET", "narrations-env")

	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 11, cfg.Worker.MaxWorkers)
	assert.Equal(t, "narrations-env", cfg.Storage.Bucket)
	// Untouched file values remain.
	assert.Equal(t, "file-api-key", cfg.API.APIKey)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		errString string
	}{
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
			assert.Nil(t, cfg)
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{
			name:      "missing api base url",
			mutate:    func(c *Config) { c.API.BaseURL = "" },
			errString: "API_BASE_URL",
		},
		{
			name:      "missing api key",
			mutate:    func(c *Config) { c.API.APIKey = "" },
			errString: "SERVER_TO_SERVER_API_KEY",
		},
		{
			name:      "missing storage credentials",
			mutate:    func(c *Config) { c.Storage.SecretAccessKey = "" },
			errString: "AWS_SECRET_ACCESS_KEY",
		},
		{
			name:      "missing bucket",
			mutate:    func(c *Config) { c.Storage.Bucket = "" },
			errString: "S3_BUCKET",
		},
		{
			name:      "zero workers",
			mutate:    func(c *Config) { c.Worker.MaxWorkers = 0 },
			errString: "max_workers",
		},
		{
			name:      "zero retry attempts",
			mutate:    func(c *Config) { c.Worker.RetryAttempts = 0 },
			errString: "retry_attempts",
		},
		{
			name:      "negative retry delay",
			mutate:    func(c *Config) { c.Worker.RetryDelaySeconds = -1 },
			errString: "retry_delay",
		},
		{
			name:      "zero tts timeout",
			mutate:    func(c *Config) { c.TTS.TimeoutSeconds = 0 },
			errString: "tts timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errString)
		})
	}
}

func validConfig() *Config {
	cfg := Default()
	cfg.API.BaseURL = "https://api.example.com"
	cfg.API.APIKey = "key"
	cfg.Storage.AccessKeyID = "AKIATEST"
	cfg.Storage.SecretAccessKey = "secret"
	cfg.Storage.Bucket = "narrations"
	return cfg
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "5m0s", cfg.Worker.Timeout().String())
	assert.Equal(t, "5s", cfg.Worker.RetryDelay().String())
	assert.Equal(t, "3s", cfg.Worker.PollInterval().String())
	assert.Equal(t, "2m0s", cfg.TTS.Timeout().String())
}
