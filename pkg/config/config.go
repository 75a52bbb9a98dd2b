package config

import "time"

// Chat definition chat_service YAML structure
type Chat struct {
	Port            string          `mapstructure:"port"`
	ShutdownTimeout time.Duration   `mapstructure:"shutdown_timeout"`
	Pprof           bool            `mapstructure:"pprof"`
	MongoSQL        DatabaseConfig  `mapstructure:"mongo"`
	PostgreSQL      DatabaseConfig  `mapstructure:"pg"`
	Redis           RedisConfig     `mapstructure:"redis"`
	JWT             JWTConfig       `mapstructure:"jwt"`
	Websocket       WebsocketConfig `mapstructure:"websocket"`
}

// RedisConfig definition redis setting
// 沒有設定 sentinel 時使用 Addr 直連
type RedisConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Addr            string `mapstructure:"addr"`
	RedisDB         int    `mapstructure:"redis_db"`
	PresenceChannel string `mapstructure:"presence_channel"`
}

// DatabaseConfig definition db setting
type DatabaseConfig struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	User          string `mapstructure:"user"`
	Password      string `mapstructure:"password"`
	Database      string `mapstructure:"database"`
	RetryInterval int    `mapstructure:"retry_interval"`
	RetryCount    int    `mapstructure:"retry_count"`
}

// JWTConfig definition token verification
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

// WebsocketConfig definition per-connection tuning
type WebsocketConfig struct {
	SendBuffer     int           `mapstructure:"send_buffer"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	RateLimit      float64       `mapstructure:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst"`
}

// WithDefaults fill zero values
func (w WebsocketConfig) WithDefaults() WebsocketConfig {
	if w.SendBuffer <= 0 {
		w.SendBuffer = 256
	}
	if w.PongWait <= 0 {
		w.PongWait = 60 * time.Second
	}
	// ping 必須比 pong 等待時間短
	if w.PingPeriod <= 0 || w.PingPeriod >= w.PongWait {
		w.PingPeriod = (w.PongWait * 9) / 10
	}
	if w.WriteWait <= 0 {
		w.WriteWait = 10 * time.Second
	}
	if w.MaxMessageSize <= 0 {
		w.MaxMessageSize = 64 * 1024
	}
	if w.RateLimit <= 0 {
		w.RateLimit = 20
	}
	if w.RateBurst <= 0 {
		w.RateBurst = 40
	}
	return w
}
