package config

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ADMISSION"

// Submission IDs are prefix + 8 digits and must parse as application IDs.
var idPrefixPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{4}$`)

// Config is the full service configuration.
type Config struct {
	Environment string          `mapstructure:"environment"`
	Log         LogConfig       `mapstructure:"log"`
	Server      ServerConfig    `mapstructure:"server"`
	Auth        AuthConfig      `mapstructure:"auth"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Postgres    PostgresConfig  `mapstructure:"postgres"`
	OTP         OTPConfig       `mapstructure:"otp"`
	Documents   DocumentsConfig `mapstructure:"documents"`
	Draft       DraftConfig     `mapstructure:"draft"`
	Notify      NotifyConfig    `mapstructure:"notify"`
	Kafka       KafkaConfig     `mapstructure:"kafka"`
	Application AppConfig       `mapstructure:"application"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ServerConfig captures HTTP server level configuration.
type ServerConfig struct {
	Addr              string        `mapstructure:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSigningKey string        `mapstructure:"jwt_signing_key"`
	Issuer        string        `mapstructure:"issuer"`
	Audience      string        `mapstructure:"audience"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	RememberMeTTL time.Duration `mapstructure:"remember_me_ttl"`
}

// RedisConfig is optional: an empty URL selects in-memory stores.
type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// PostgresConfig is optional: an empty DSN selects in-memory stores.
type PostgresConfig struct {
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MaxIdleConns int           `mapstructure:"max_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_life"`
}

type OTPConfig struct {
	Length         int           `mapstructure:"length"`
	TTL            time.Duration `mapstructure:"ttl"`
	MaxAttempts    int           `mapstructure:"max_attempts"`
	ResendInterval time.Duration `mapstructure:"resend_interval"`
	ResendBurst    int           `mapstructure:"resend_burst"`
	// FixedCode makes every issued OTP equal to this value. Development only.
	FixedCode string `mapstructure:"fixed_code"`
}

type DocumentsConfig struct {
	DefaultMaxBytes int64            `mapstructure:"default_max_bytes"`
	MaxBytes        map[string]int64 `mapstructure:"max_bytes"`
}

type DraftConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type NotifyConfig struct {
	SMSEnabled bool   `mapstructure:"sms_enabled"`
	Region     string `mapstructure:"region"`
	SenderID   string `mapstructure:"sender_id"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type AppConfig struct {
	IDPrefix    string `mapstructure:"id_prefix"`
	EventBuffer int    `mapstructure:"event_buffer"`
}

// RateLimitConfig sets per-IP budgets for the public endpoints.
type RateLimitConfig struct {
	Enabled              bool          `mapstructure:"enabled"`
	Window               time.Duration `mapstructure:"window"`
	RegistrationRequests int           `mapstructure:"registration_requests"`
	AuthRequests         int           `mapstructure:"auth_requests"`
}

// IsProduction reports whether dev conveniences must be refused.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_header_timeout", 5*time.Second)
	v.SetDefault("server.request_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("auth.jwt_signing_key", "dev-secret-key-change-in-production")
	v.SetDefault("auth.issuer", "admission-portal")
	v.SetDefault("auth.audience", "admission-candidates")
	v.SetDefault("auth.session_ttl", 2*time.Hour)
	v.SetDefault("auth.remember_me_ttl", 30*24*time.Hour)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_life", 30*time.Minute)

	v.SetDefault("otp.length", 6)
	v.SetDefault("otp.ttl", 5*time.Minute)
	v.SetDefault("otp.max_attempts", 5)
	v.SetDefault("otp.resend_interval", 30*time.Second)
	v.SetDefault("otp.resend_burst", 1)
	v.SetDefault("otp.fixed_code", "")

	v.SetDefault("documents.default_max_bytes", 2<<20)
	v.SetDefault("documents.max_bytes", map[string]int64{
		"photograph": 200 << 10,
		"signature":  100 << 10,
	})

	v.SetDefault("draft.ttl", 30*24*time.Hour)

	v.SetDefault("notify.sms_enabled", false)
	v.SetDefault("notify.region", "ap-south-1")
	v.SetDefault("notify.sender_id", "CAPADM")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "admission.events")

	v.SetDefault("application.id_prefix", "CAP2025")
	v.SetDefault("application.event_buffer", 256)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.registration_requests", 20)
	v.SetDefault("rate_limit.auth_requests", 10)
}

// Load reads configuration from defaults, an optional config file, an
// optional .env file and ADMISSION_* environment variables, in increasing
// order of precedence.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Comma-separated broker lists arrive from the environment as one string.
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Auth.JWTSigningKey == "" {
		errs = append(errs, errors.New("auth.jwt_signing_key is required"))
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.RememberMeTTL <= 0 {
		errs = append(errs, errors.New("auth token TTLs must be positive"))
	}
	if c.OTP.Length != 6 {
		errs = append(errs, errors.New("otp.length must be 6"))
	}
	if c.OTP.TTL <= 0 {
		errs = append(errs, errors.New("otp.ttl must be positive"))
	}
	if c.OTP.MaxAttempts < 1 {
		errs = append(errs, errors.New("otp.max_attempts must be at least 1"))
	}
	if c.Documents.DefaultMaxBytes <= 0 {
		errs = append(errs, errors.New("documents.default_max_bytes must be positive"))
	}
	if !idPrefixPattern.MatchString(c.Application.IDPrefix) {
		errs = append(errs, errors.New("application.id_prefix must be three letters and four digits"))
	}
	if c.RateLimit.Enabled && c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit.window must be positive"))
	}
	if c.IsProduction() {
		if c.OTP.FixedCode != "" {
			errs = append(errs, errors.New("otp.fixed_code is not allowed in production"))
		}
		if c.Auth.JWTSigningKey == "dev-secret-key-change-in-production" {
			errs = append(errs, errors.New("auth.jwt_signing_key must be set in production"))
		}
	}
	return errors.Join(errs...)
}
