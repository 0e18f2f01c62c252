package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5001/api", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:5001/ws", cfg.SocketURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "chat-app.db", cfg.CachePath)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://chat.example.com/api")
	t.Setenv("SOCKET_URL", "wss://chat.example.com/ws")
	t.Setenv("REQUEST_TIMEOUT", "3s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.com/api", cfg.APIBaseURL)
	assert.Equal(t, "wss://chat.example.com/ws", cfg.SocketURL)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}
