package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearOverrides(t *testing.T) {
	t.Helper()
	for _, key := range []string{"OPENAI_API_KEY", "PINATA_JWT", "ZEEBE_ADDRESS", "REDIS_ADDRESS", "DB_USER", "DB_PASSWORD", "SNS_TOPIC_ARN"} {
		t.Setenv(key, "")
	}
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	clearOverrides(t)
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "dall-e-2", cfg.Pipeline.Image.Model)
	assert.Equal(t, "256x256", cfg.Pipeline.Image.Size)
	assert.Equal(t, "https://api.pinata.cloud", cfg.Pipeline.Pinning.BaseURL)
	assert.Equal(t, "utf8", cfg.Pipeline.Encoding)
	assert.Equal(t, 9000, cfg.Pipeline.CallTimeout)
	assert.Equal(t, SecretsBackendStatic, cfg.Secrets.Backend)
	assert.Equal(t, "ticket-fulfillments", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Camunda.MaxJobsActive)
}

func TestLoadFromFile_ExpandsAndOverridesFromEnv(t *testing.T) {
	clearOverrides(t)
	t.Setenv("TEST_BROKER", "zeebe:26500")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("PINATA_JWT", "jwt-env")

	path := writeConfig(t, `
camunda:
  broker_address: ${TEST_BROKER}
pipeline:
  pinning:
    api_key: from-file
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "zeebe:26500", cfg.Camunda.BrokerAddress)
	assert.Equal(t, "sk-env", cfg.Pipeline.Image.APIKey)
	assert.Equal(t, "from-file", cfg.Pipeline.Pinning.APIKey, "file values win over env fallbacks")
}

func TestLoadFromFile_MissingKeysAreNotFatal(t *testing.T) {
	clearOverrides(t)
	path := writeConfig(t, `
camunda:
  broker_address: localhost:26500
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Pipeline.Image.APIKey)
	assert.Empty(t, cfg.Pipeline.Pinning.APIKey)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "missing broker",
			body:    "pipeline:\n  encoding: utf8\n",
			wantErr: "camunda.broker_address is required",
		},
		{
			name:    "unknown encoding",
			body:    "camunda:\n  broker_address: x:1\npipeline:\n  encoding: base58\n",
			wantErr: "pipeline.encoding must be utf8 or cbor",
		},
		{
			name:    "redis secrets without address",
			body:    "camunda:\n  broker_address: x:1\nsecrets:\n  backend: redis\n",
			wantErr: "database.redis.address is required",
		},
		{
			name:    "postgres recording without host",
			body:    "camunda:\n  broker_address: x:1\nrecording:\n  postgres: true\n",
			wantErr: "database.postgres.host is required",
		},
		{
			name:    "sns without topic",
			body:    "camunda:\n  broker_address: x:1\nnotifications:\n  sns:\n    enabled: true\n",
			wantErr: "notifications.sns.topic_arn is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearOverrides(t)
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_FallsBackToDefaults(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"ticket-image-pin": {Enabled: false, MaxJobsActive: 2, Timeout: 20000},
	}}

	assert.Equal(t, 2, GetWorkerConfig(cfg, "ticket-image-pin").MaxJobsActive)
	assert.False(t, IsWorkerEnabled(cfg, "ticket-image-pin"))

	def := GetWorkerConfig(cfg, "unknown")
	assert.True(t, def.Enabled)
	assert.Equal(t, 5, def.MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
}
