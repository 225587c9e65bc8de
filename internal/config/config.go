package config

import (
	"fmt"
	"time"

	"auction-bidgate/internal/domain"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Notifier ServerConfig   `mapstructure:"notifier"`
	Audit    ServerConfig   `mapstructure:"audit"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Leader   LeaderConfig   `mapstructure:"leader"`
	Instance InstanceConfig `mapstructure:"instance"`
	API      APIConfig      `mapstructure:"api"`
	Limits   LimitsConfig   `mapstructure:"limits"`
	Limiter  LimiterConfig  `mapstructure:"limiter"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Host string `mapstructure:"host"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MySQLConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type LeaderConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type InstanceConfig struct {
	ID string `mapstructure:"id"`
}

type APIConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	WPNonce           string        `mapstructure:"wp_nonce"`
}

type LimitConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	Window      time.Duration `mapstructure:"window"`
}

type LimitsConfig struct {
	PlaceBid    LimitConfig `mapstructure:"place_bid"`
	SaveProfile LimitConfig `mapstructure:"save_profile"`
	Register    LimitConfig `mapstructure:"register"`
}

type LimiterConfig struct {
	// Backend is "memory" for a per-process limiter or "redis" to share quotas.
	Backend           string        `mapstructure:"backend"`
	AnonymousIdentity string        `mapstructure:"anonymous_identity"`
	IdleTTL           time.Duration `mapstructure:"idle_ttl"`
}

type RefreshConfig struct {
	Lots         string        `mapstructure:"lots"`
	LimiterSweep string        `mapstructure:"limiter_sweep"`
	SnapshotTTL  time.Duration `mapstructure:"snapshot_ttl"`
}

// TelegramConfig gates websocket sessions. Without a bot token the notifier
// only matches the init data user against the path.
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	InitDataMaxAge time.Duration `mapstructure:"init_data_max_age"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("notifier.port", 8082)
	v.SetDefault("notifier.host", "0.0.0.0")
	v.SetDefault("audit.port", 8083)
	v.SetDefault("audit.host", "0.0.0.0")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("mysql.dsn", "bidgate_user:bidgate_pass@tcp(localhost:3306)/bidgate_db?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 25)
	v.SetDefault("mysql.max_idle_conns", 10)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("leader.ttl", 30*time.Second)
	v.SetDefault("instance.id", "bid-gateway-1")
	v.SetDefault("api.base_url", "http://localhost:8081/wp-json/jd-auction/v1")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("api.max_retries", 3)
	v.SetDefault("api.retry_delay", time.Second)
	v.SetDefault("api.requests_per_second", 20.0)
	v.SetDefault("api.wp_nonce", "")

	for action, limit := range domain.DefaultRateLimits {
		v.SetDefault("limits."+action+".max_attempts", limit.MaxAttempts)
		v.SetDefault("limits."+action+".window", limit.Window)
	}

	v.SetDefault("limiter.backend", "memory")
	v.SetDefault("limiter.anonymous_identity", "anonymous")
	v.SetDefault("limiter.idle_ttl", 0)
	v.SetDefault("refresh.lots", "@every 30s")
	v.SetDefault("refresh.limiter_sweep", "@every 1m")
	v.SetDefault("refresh.snapshot_ttl", 5*time.Minute)
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.init_data_max_age", 24*time.Hour)
	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) {
	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("notifier.port", "NOTIFIER_PORT")
	v.BindEnv("notifier.host", "NOTIFIER_HOST")
	v.BindEnv("audit.port", "AUDIT_PORT")
	v.BindEnv("audit.host", "AUDIT_HOST")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("redis.db", "REDIS_DB")
	v.BindEnv("mysql.dsn", "MYSQL_DSN")
	v.BindEnv("mysql.max_open_conns", "MYSQL_MAX_OPEN_CONNS")
	v.BindEnv("mysql.max_idle_conns", "MYSQL_MAX_IDLE_CONNS")
	v.BindEnv("mysql.conn_max_lifetime", "MYSQL_CONN_MAX_LIFETIME")
	v.BindEnv("leader.ttl", "LEADER_TTL")
	v.BindEnv("instance.id", "INSTANCE_ID")
	v.BindEnv("api.base_url", "API_BASE_URL")
	v.BindEnv("api.timeout", "API_TIMEOUT")
	v.BindEnv("api.max_retries", "API_MAX_RETRIES")
	v.BindEnv("api.retry_delay", "API_RETRY_DELAY")
	v.BindEnv("api.requests_per_second", "API_REQUESTS_PER_SECOND")
	v.BindEnv("api.wp_nonce", "API_WP_NONCE")
	v.BindEnv("limiter.backend", "LIMITER_BACKEND")
	v.BindEnv("limiter.anonymous_identity", "LIMITER_ANONYMOUS_IDENTITY")
	v.BindEnv("limiter.idle_ttl", "LIMITER_IDLE_TTL")
	v.BindEnv("refresh.lots", "REFRESH_LOTS")
	v.BindEnv("refresh.snapshot_ttl", "REFRESH_SNAPSHOT_TTL")
	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.init_data_max_age", "TELEGRAM_INIT_DATA_MAX_AGE")
	v.BindEnv("log.level", "LOG_LEVEL")
}

func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Configuration file settings
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/auction-bidgate/")

	// Environment variable support
	v.AutomaticEnv()
	bindEnv(v)

	// Read configuration file (optional - will use defaults/env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	return unmarshal(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	bindEnv(v)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	return unmarshal(v)
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	switch c.Limiter.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("limiter.backend must be memory or redis, got %q", c.Limiter.Backend)
	}
	for action, limit := range c.RateLimits() {
		if limit.MaxAttempts <= 0 || limit.Window <= 0 {
			return fmt.Errorf("limits.%s must have positive max_attempts and window", action)
		}
	}
	return nil
}

// RateLimits returns the configured quota per gated action.
func (c *Config) RateLimits() map[string]domain.RateLimit {
	return map[string]domain.RateLimit{
		domain.ActionPlaceBid:    {MaxAttempts: c.Limits.PlaceBid.MaxAttempts, Window: c.Limits.PlaceBid.Window},
		domain.ActionSaveProfile: {MaxAttempts: c.Limits.SaveProfile.MaxAttempts, Window: c.Limits.SaveProfile.Window},
		domain.ActionRegister:    {MaxAttempts: c.Limits.Register.MaxAttempts, Window: c.Limits.Register.Window},
	}
}

// GetConfigString returns a formatted string representation of the config
func (c *Config) GetConfigString() string {
	return fmt.Sprintf(
		"Server: %s:%d, Redis: %s, API: %s, Limiter: %s, Instance: %s",
		c.Server.Host,
		c.Server.Port,
		c.Redis.Address,
		c.API.BaseURL,
		c.Limiter.Backend,
		c.Instance.ID,
	)
}
