package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/berrylive/live-service/internal/domain"
	"github.com/berrylive/live-service/internal/wallet"
	pkgconfig "github.com/berrylive/live-service/pkg/config"
	"github.com/berrylive/live-service/pkg/database"
)

type Config struct {
	Server    ServerConfig
	Database  database.Config
	Redis     RedisConfig
	Auth      AuthConfig
	WebSocket WebSocketConfig `mapstructure:"websocket"`
	Signaling SignalingConfig
	Wallet    WalletConfig
	Catalog   CatalogConfig
	Levels    []int64
	Snapshot  SnapshotConfig
	Presence  PresenceConfig
	PK        PKConfig `mapstructure:"pk"`
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret     string        `mapstructure:"jwt_secret"`
	Issuer        string        `mapstructure:"issuer"`
	TokenLifetime time.Duration `mapstructure:"token_lifetime"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `mapstructure:"ping_interval"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteWait      time.Duration `mapstructure:"write_wait"`
	MaxMessageSize int64         `mapstructure:"max_message_size"`
	SendBuffer     int           `mapstructure:"send_buffer"`
}

type SignalingConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
	GatherTimeout time.Duration `mapstructure:"gather_timeout"`
	ICEServers    []string      `mapstructure:"ice_servers"`
}

type WalletConfig struct {
	Tiers []wallet.Tier
}

type CatalogConfig struct {
	Gifts []domain.GiftCatalogEntry
}

type SnapshotConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type PresenceConfig struct {
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

type PKConfig struct {
	Duration time.Duration
}

type LogConfig struct {
	Level  string
	Pretty bool
}

func Load() (*Config, error) {
	v, err := pkgconfig.Load("./config", "config")
	if err != nil {
		return nil, err
	}

	// Set defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "live.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.issuer", "live-service")
	v.SetDefault("auth.token_lifetime", "24h")
	v.SetDefault("websocket.ping_interval", "30s")
	v.SetDefault("websocket.pong_wait", "60s")
	v.SetDefault("websocket.write_wait", "10s")
	v.SetDefault("websocket.max_message_size", 4096)
	v.SetDefault("websocket.send_buffer", 256)
	v.SetDefault("signaling.base_url", "http://localhost:1985")
	v.SetDefault("signaling.timeout", "5s")
	v.SetDefault("signaling.max_attempts", 3)
	v.SetDefault("signaling.retry_delay", "1s")
	v.SetDefault("signaling.gather_timeout", "2s")
	v.SetDefault("signaling.ice_servers", []string{"stun:stun.l.google.com:19302"})
	v.SetDefault("snapshot.ttl", "2s")
	v.SetDefault("presence.sync_interval", "30s")
	v.SetDefault("pk.duration", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.db_name", "DB_NAME")
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("signaling.base_url", "SIGNALING_BASE_URL")
	v.BindEnv("log.level", "LOG_LEVEL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Auth.TokenLifetime = parseDuration(v, "auth.token_lifetime", 24*time.Hour)
	cfg.WebSocket.PingInterval = parseDuration(v, "websocket.ping_interval", 30*time.Second)
	cfg.WebSocket.PongWait = parseDuration(v, "websocket.pong_wait", 60*time.Second)
	cfg.WebSocket.WriteWait = parseDuration(v, "websocket.write_wait", 10*time.Second)
	cfg.Signaling.Timeout = parseDuration(v, "signaling.timeout", 5*time.Second)
	cfg.Signaling.RetryDelay = parseDuration(v, "signaling.retry_delay", time.Second)
	cfg.Signaling.GatherTimeout = parseDuration(v, "signaling.gather_timeout", 2*time.Second)
	cfg.Snapshot.TTL = parseDuration(v, "snapshot.ttl", 2*time.Second)
	cfg.Presence.SyncInterval = parseDuration(v, "presence.sync_interval", 30*time.Second)
	cfg.PK.Duration = parseDuration(v, "pk.duration", 5*time.Minute)

	return &cfg, nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
