package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`

	// AllowedOrigins lists every origin the admin frontend is served from.
	// Websocket handshakes and CORS requests from other origins are rejected.
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`

	JWTSecret   string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer   string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	JWTTTL      time.Duration `mapstructure:"jwt_ttl" yaml:"jwt_ttl"`

	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	ClientBuffer    int   `mapstructure:"client_buffer" yaml:"client_buffer"`
	// WSRateLimit caps inbound websocket messages per connection per minute. 0 disables it.
	WSRateLimit int `mapstructure:"ws_rate_limit" yaml:"ws_rate_limit"`

	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Redis    RedisConfig    `mapstructure:"redis" yaml:"redis"`

	// BootstrapAdmin is created as a superadmin at startup when no user with
	// that name exists. Superadmins register the per-store admins.
	BootstrapAdmin BootstrapAdminConfig `mapstructure:"bootstrap_admin" yaml:"bootstrap_admin"`
}

// BootstrapAdminConfig names the first superadmin. Empty disables bootstrapping.
type BootstrapAdminConfig struct {
	Username string `mapstructure:"username" yaml:"username"`
	Password string `mapstructure:"password" yaml:"password"`
}

// DatabaseConfig selects and configures the order store.
type DatabaseConfig struct {
	Driver        string `mapstructure:"driver" yaml:"driver"` // sqlite or mongo
	Path          string `mapstructure:"path" yaml:"path"`
	MongoURI      string `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database" yaml:"mongo_database"`
}

// RedisConfig enables cross-process fan-out when Addr is set.
type RedisConfig struct {
	Addr          string `mapstructure:"addr" yaml:"addr"`
	Password      string `mapstructure:"password" yaml:"password"`
	DB            int    `mapstructure:"db" yaml:"db"`
	ChannelPrefix string `mapstructure:"channel_prefix" yaml:"channel_prefix"`
}

const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		AllowedOrigins:    []string{"http://localhost:5173"},
		JWTSecret:         "change-me",
		JWTIssuer:         "ordercast",
		JWTAudience:       "ordercast-admin",
		JWTTTL:            24 * time.Hour,
		MaxMessageBytes:   1 << 16,
		ClientBuffer:      32,
		WSRateLimit:       120,
		Database: DatabaseConfig{
			Driver:        DriverSQLite,
			Path:          "ordercast.db",
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "ordercast",
		},
		Redis: RedisConfig{
			ChannelPrefix: "ordercast:orders:",
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if len(other.AllowedOrigins) > 0 {
		c.AllowedOrigins = other.AllowedOrigins
	}
	if other.Database.Driver != "" {
		c.Database.Driver = other.Database.Driver
	}
	if other.Database.Path != "" {
		c.Database.Path = other.Database.Path
	}
	if other.Redis.Addr != "" {
		c.Redis.Addr = other.Redis.Addr
	}
}
