package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "gemini", cfg.GetLLM().Provider)
	assert.Equal(t, 100, cfg.GetQuota().DailyLimit)

	classifier, err := cfg.GetClassifier()
	require.NoError(t, err)
	assert.Equal(t, 5, classifier.MaxAttempts)
	assert.Equal(t, 4*time.Second, classifier.BackoffMin)
	assert.Equal(t, 60*time.Second, classifier.BackoffMax)
	assert.Equal(t, 30*time.Second, classifier.Timeout)

	batch, err := cfg.GetBatch()
	require.NoError(t, err)
	assert.Equal(t, 100, batch.MaxMessages)
	assert.Equal(t, "INBOX", batch.Folder)
	assert.Equal(t, 3, batch.RetryAttempts)
	assert.Equal(t, 2*time.Second, batch.RetryDelay)

	session, err := cfg.GetSession()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, session.TTL)

	server, err := cfg.GetServer()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173"}, server.CORSOrigins)
	assert.Greater(t, server.ShutdownTimeout, server.RequestTimeout)
	assert.Equal(t, "memory", cfg.GetUsageStore().Type)
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: openai
openai:
  api_key: sk-test
quota:
  daily_limit: 25
batch:
  retry_delay: 500ms
`), 0o600))

	cfg, err := NewFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.GetLLM().Provider)
	assert.Equal(t, "sk-test", cfg.GetOpenAI().APIKey)
	assert.Equal(t, 25, cfg.GetQuota().DailyLimit)

	batch, err := cfg.GetBatch()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, batch.RetryDelay)
	assert.Equal(t, 100, batch.MaxMessages)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("INBOX_CLASSIFIER_QUOTA_DAILY_LIMIT", "7")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.GetQuota().DailyLimit)
}

func TestInvalidDuration(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	cfg.Set("classifier.timeout", "soon")

	_, err := cfg.GetClassifier()
	assert.ErrorContains(t, err, "classifier.timeout")

	cfg.Set("server.shutdown_timeout", "whenever")
	_, err = cfg.GetServer()
	assert.ErrorContains(t, err, "server.shutdown_timeout")
}

func TestValidateServer(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())
	err := cfg.ValidateServer()
	require.Error(t, err)
	assert.ErrorContains(t, err, "google.client_id")
	assert.ErrorContains(t, err, "gemini.api_key")

	cfg.Set("google.client_id", "id")
	cfg.Set("google.client_secret", "secret")
	cfg.Set("gemini.api_key", "key")
	assert.NoError(t, cfg.ValidateServer())

	cfg.Set("llm.provider", "bedrock")
	assert.NoError(t, cfg.ValidateServer())

	cfg.Set("llm.provider", "ollama")
	assert.ErrorContains(t, cfg.ValidateServer(), "unsupported LLM provider")
}
