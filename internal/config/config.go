package config

import (
	"time"
)

// Config is the root application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Auth         AuthConfig         `yaml:"auth"`
	Log          LogConfig          `yaml:"log"`
	CORS         CORSConfig         `yaml:"cors"`
	Watcher      WatcherConfig      `yaml:"watcher"`
	Notification NotificationConfig `yaml:"notification"`
	WebSocket    WebSocketConfig    `yaml:"websocket"`
	Redis        RedisConfig        `yaml:"redis"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PATCH,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds access-token validation settings. Tokens are issued by
// the external auth system; this service only verifies them.
type AuthConfig struct {
	JWTSecret      string        `yaml:"jwt_secret"       env:"AUTH_JWT_SECRET"       env-required:"true"`
	JWTIssuer      string        `yaml:"jwt_issuer"       env:"AUTH_JWT_ISSUER"       env-default:"learnhub"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"AUTH_ACCESS_TOKEN_TTL" env-default:"15m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// WatcherConfig holds change-feed watcher settings.
type WatcherConfig struct {
	PollInterval     time.Duration `yaml:"poll_interval"     env:"WATCHER_POLL_INTERVAL"     env-default:"5s"`
	BatchSize        int           `yaml:"batch_size"        env:"WATCHER_BATCH_SIZE"        env-default:"100"`
	OperationTimeout time.Duration `yaml:"operation_timeout" env:"WATCHER_OPERATION_TIMEOUT" env-default:"10s"`
	BackoffInitial   time.Duration `yaml:"backoff_initial"   env:"WATCHER_BACKOFF_INITIAL"   env-default:"500ms"`
	BackoffMax       time.Duration `yaml:"backoff_max"       env:"WATCHER_BACKOFF_MAX"       env-default:"30s"`
	FanOutPageSize   int           `yaml:"fanout_page_size"  env:"WATCHER_FANOUT_PAGE_SIZE"  env-default:"500"`
	ChangeRetention  time.Duration `yaml:"change_retention"  env:"WATCHER_CHANGE_RETENTION"  env-default:"168h"`
}

// NotificationConfig holds notification listing settings.
type NotificationConfig struct {
	DefaultLimit int `yaml:"default_limit" env:"NOTIFICATION_DEFAULT_LIMIT" env-default:"50"`
	MaxLimit     int `yaml:"max_limit"     env:"NOTIFICATION_MAX_LIMIT"     env-default:"200"`
}

// WebSocketConfig holds live-connection settings.
type WebSocketConfig struct {
	SendBuffer   int           `yaml:"send_buffer"   env:"WS_SEND_BUFFER"   env-default:"16"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"WS_WRITE_TIMEOUT" env-default:"10s"`
	PingInterval time.Duration `yaml:"ping_interval" env:"WS_PING_INTERVAL" env-default:"30s"`
	// ConnectsPerMinute caps upgrade attempts per client host; 0 disables it.
	ConnectsPerMinute int `yaml:"connects_per_minute" env:"WS_CONNECTS_PER_MINUTE" env-default:"30"`
}

// RedisConfig holds the optional admin-id cache settings.
// An empty Addr disables the cache.
type RedisConfig struct {
	Addr          string        `yaml:"addr"            env:"REDIS_ADDR"`
	Password      string        `yaml:"password"        env:"REDIS_PASSWORD"`
	DB            int           `yaml:"db"              env:"REDIS_DB"              env-default:"0"`
	AdminCacheTTL time.Duration `yaml:"admin_cache_ttl" env:"REDIS_ADMIN_CACHE_TTL" env-default:"1m"`
}

// Enabled reports whether a Redis address is configured.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}
