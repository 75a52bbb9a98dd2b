package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chatYAML = `
port: "8082"
shutdown_timeout: 15s
mongo:
  host: localhost
  port: 27017
  user: ${TEST_MONGO_USER}
  password: secret
  database: chat
  retry_count: 3
  retry_interval: 2
redis:
  enabled: true
  addr: localhost:6379
  presence_channel: chat:presence
jwt:
  secret: ${TEST_JWT_SECRET}
websocket:
  send_buffer: 32
  pong_wait: 30s
`

func TestReadConfig_ExpandsEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "chat_service.yaml"), []byte(chatYAML), 0o644))
	t.Setenv("TEST_MONGO_USER", "chat_user")
	t.Setenv("TEST_JWT_SECRET", "top-secret")

	cfg, err := ReadConfig[Chat]("chat_service", dir)
	require.NoError(t, err)

	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "chat_user", cfg.MongoSQL.User)
	assert.Equal(t, 27017, cfg.MongoSQL.Port)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "chat:presence", cfg.Redis.PresenceChannel)
	assert.Equal(t, "top-secret", cfg.JWT.Secret)
	assert.Equal(t, 32, cfg.Websocket.SendBuffer)
	assert.Equal(t, 30*time.Second, cfg.Websocket.PongWait)
}

func TestReadConfig_MissingFile(t *testing.T) {
	_, err := ReadConfig[Chat]("chat_service", t.TempDir())
	assert.Error(t, err)
}

func TestWebsocketConfig_WithDefaults(t *testing.T) {
	w := WebsocketConfig{PongWait: 30 * time.Second, PingPeriod: time.Minute}.WithDefaults()
	assert.Equal(t, 256, w.SendBuffer)
	assert.Equal(t, 27*time.Second, w.PingPeriod)
	assert.Equal(t, 10*time.Second, w.WriteWait)
	assert.Equal(t, float64(20), w.RateLimit)
	assert.Equal(t, 40, w.RateBurst)
}

func TestGetRedisSetting(t *testing.T) {
	t.Setenv("REDIS_SENTINEL1_IP", "10.0.0.1")
	t.Setenv("REDIS_SENTINEL1_PORT", "26379")
	t.Setenv("REDIS_MASTER_NAME", "")

	master, addrs := GetRedisSetting()
	assert.Equal(t, "mymaster", master)
	assert.Contains(t, addrs, "10.0.0.1:26379")
}
