package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, BackendMemory, cfg.CacheBackend)
	assert.Equal(t, "conference_entities", cfg.DynamoDBTable)
	assert.Equal(t, 3, cfg.TxMaxAttempts)
	assert.Equal(t, 4, cfg.QueueWorkers)
	assert.Equal(t, 64, cfg.QueueBuffer)
	assert.Equal(t, 5, cfg.TaskMaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.TaskRetryDelay)
	assert.Equal(t, time.Hour, cfg.AnnouncementInterval)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "noop", cfg.EmailProvider)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "secret")
	t.Setenv("STORE_BACKEND", "DynamoDB")
	t.Setenv("CACHE_BACKEND", "postgres")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.example,http://b.example")
	t.Setenv("TASK_RETRY_DELAY", "2s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendDynamoDB, cfg.StoreBackend)
	assert.Equal(t, BackendPostgres, cfg.CacheBackend)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.TaskRetryDelay)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{"AUTH_JWT_SECRET": ""}},
		{name: "unknown store", env: map[string]string{"STORE_BACKEND": "mongo"}},
		{name: "dynamodb cache", env: map[string]string{"CACHE_BACKEND": "dynamodb"}},
		{name: "zero attempts", env: map[string]string{"TX_MAX_ATTEMPTS": "0"}},
		{name: "no workers", env: map[string]string{"QUEUE_WORKERS": "0"}},
		{name: "bad duration", env: map[string]string{"TASK_RETRY_DELAY": "soon"}},
		{name: "bad number", env: map[string]string{"QUEUE_BUFFER": "many"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GO_ENV", "production")
			t.Setenv("AUTH_JWT_SECRET", "secret")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
