package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
// It is built once at startup and passed into component constructors.
type Config struct {
	Environment string         `yaml:"environment" mapstructure:"environment"`
	Server      ServerConfig   `yaml:"server" mapstructure:"server"`
	Database    DatabaseConfig `yaml:"database" mapstructure:"database"`
	Session     SessionConfig  `yaml:"session" mapstructure:"session"`
	Geocode     GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Mail        MailConfig     `yaml:"mail" mapstructure:"mail"`
	Upload      UploadConfig   `yaml:"upload" mapstructure:"upload"`
	Centers     CentersConfig  `yaml:"centers" mapstructure:"centers"`
	CORS        CORSConfig     `yaml:"cors" mapstructure:"cors"`
	Log         LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port            int           `yaml:"port" mapstructure:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL            string `yaml:"url" mapstructure:"url"`
	MigrationsPath string `yaml:"migrations_path" mapstructure:"migrations_path"`

	// Pool sizing. Zero values fall back to the database package defaults.
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
	PingTimeout     time.Duration `yaml:"ping_timeout" mapstructure:"ping_timeout"`
}

// SessionConfig controls token signing and the administrator entry points.
type SessionConfig struct {
	TokenSecret string        `yaml:"token_secret" mapstructure:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`
	// AdminPasskey is the shared secret required to create or log in an administrator.
	AdminPasskey string `yaml:"admin_passkey" mapstructure:"admin_passkey"`
	// AdminRevalidate re-fetches administrators from the store on every request.
	// When false, a valid signature is enough.
	AdminRevalidate bool `yaml:"admin_revalidate" mapstructure:"admin_revalidate"`
}

// GeocodeConfig configures the reverse geocoding provider.
type GeocodeConfig struct {
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RateLimit float64       `yaml:"rate_limit" mapstructure:"rate_limit"`
	RedisURL  string        `yaml:"redis_url" mapstructure:"redis_url"`
	CacheTTL  time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// MailConfig holds the SMTP relay settings used for center notifications.
type MailConfig struct {
	Host     string        `yaml:"host" mapstructure:"host"`
	Port     int           `yaml:"port" mapstructure:"port"`
	Username string        `yaml:"username" mapstructure:"username"`
	Password string        `yaml:"password" mapstructure:"password"`
	From     string        `yaml:"from" mapstructure:"from"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// UploadConfig controls where transient photos are written.
type UploadConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	MaxBytes int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// CentersConfig points at the static center registry file.
type CentersConfig struct {
	RegistryPath string `yaml:"registry_path" mapstructure:"registry_path"`
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// IsProduction reports whether the service runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// requiredKeys have no default and must come from the config file or environment.
var requiredKeys = []string{
	"database.url",
	"session.token_secret",
	"session.admin_passkey",
	"mail.host",
	"mail.from",
}

// Load reads configuration from an optional YAML file and the environment.
// Environment variables use the ECOROUTE_ prefix with dots replaced by
// underscores (ECOROUTE_DATABASE_URL). It fails fast with clear errors for
// missing required values.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ECOROUTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("environment", "development")
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("database.migrations_path", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("database.ping_timeout", 5*time.Second)
	v.SetDefault("session.token_ttl", 24*time.Hour)
	v.SetDefault("session.admin_revalidate", false)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "ecoroute/1.0")
	v.SetDefault("geocode.timeout", 10*time.Second)
	v.SetDefault("geocode.rate_limit", 1.0)
	v.SetDefault("geocode.redis_url", "")
	v.SetDefault("geocode.cache_ttl", 7*24*time.Hour)
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.timeout", 30*time.Second)
	v.SetDefault("upload.dir", "uploads")
	v.SetDefault("upload.max_bytes", int64(10<<20))
	v.SetDefault("centers.registry_path", "centers.yaml")
	v.SetDefault("cors.allowed_origins", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	for _, key := range requiredKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Read config file (optional unless explicitly named)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate checks required values and formats.
func (c *Config) validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "ECOROUTE_DATABASE_URL")
	}
	if c.Session.TokenSecret == "" {
		missing = append(missing, "ECOROUTE_SESSION_TOKEN_SECRET")
	}
	if c.Session.AdminPasskey == "" {
		missing = append(missing, "ECOROUTE_SESSION_ADMIN_PASSKEY")
	}
	if c.Mail.Host == "" {
		missing = append(missing, "ECOROUTE_MAIL_HOST")
	}
	if c.Mail.From == "" {
		missing = append(missing, "ECOROUTE_MAIL_FROM")
	}
	if len(missing) > 0 {
		return eris.Errorf("config: missing required values: %v", missing)
	}

	switch c.Environment {
	case "development", "staging", "production":
	default:
		return eris.Errorf("config: invalid environment %q: must be development, staging, or production", c.Environment)
	}

	if err := validateDatabaseURL(c.Database.URL); err != nil {
		return eris.Wrap(err, "config: invalid database url")
	}

	if len(c.Session.TokenSecret) < 32 {
		return eris.Errorf("config: token secret must be at least 32 bytes, got %d", len(c.Session.TokenSecret))
	}

	if c.Geocode.RateLimit <= 0 {
		return eris.New("config: geocode rate limit must be positive")
	}

	if c.Upload.MaxBytes <= 0 {
		return eris.New("config: upload max bytes must be positive")
	}

	return nil
}

// validateDatabaseURL ensures the database URL is a valid PostgreSQL connection string.
func validateDatabaseURL(dbURL string) error {
	parsed, err := url.Parse(dbURL)
	if err != nil {
		return fmt.Errorf("malformed URL: %w", err)
	}

	if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		return fmt.Errorf("URL must use postgres or postgresql scheme, got %q", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
