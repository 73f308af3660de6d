package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Push      PushConfig      `mapstructure:"push"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Events    EventsConfig    `mapstructure:"events"`
}

type ServerConfig struct {
	Port        string        `mapstructure:"port"`
	Mode        string        `mapstructure:"mode"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	// Driver: postgres | sqlite
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogLevel     string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret      string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

type LogConfig struct {
	// Env: dev 输出彩色控制台，其余输出 JSON
	Env   string `mapstructure:"env"`
	Level string `mapstructure:"level"`
}

type FeedConfig struct {
	DefaultLimit   int           `mapstructure:"default_limit"`
	MaxLimit       int           `mapstructure:"max_limit"`
	RecentCapacity int           `mapstructure:"recent_capacity"`
	FollowingTTL   time.Duration `mapstructure:"following_ttl"`
}

type WorkerConfig struct {
	ReplicatorWorkers int           `mapstructure:"replicator_workers"`
	ReplicatorQueue   int           `mapstructure:"replicator_queue"`
	DispatchWorkers   int           `mapstructure:"dispatch_workers"`
	DispatchQueue     int           `mapstructure:"dispatch_queue"`
	FanoutWorkers     int           `mapstructure:"fanout_workers"`
	FanoutBatch       int           `mapstructure:"fanout_batch"`
	FanoutClaim       int           `mapstructure:"fanout_claim"`
	FanoutInterval    time.Duration `mapstructure:"fanout_interval"`
	FanoutLease       time.Duration `mapstructure:"fanout_lease"`
}

type PushConfig struct {
	// Provider: log | aliyun
	Provider        string `mapstructure:"provider"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	AppKey          int64  `mapstructure:"app_key"`
	RegionID        string `mapstructure:"region_id"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type EventsConfig struct {
	// Backend: memory | redis
	Backend string `mapstructure:"backend"`
	Channel string `mapstructure:"channel"`
}

// Validate 校验必填项
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	if len(c.JWT.Secret) < 16 {
		return errors.New("jwt.secret should be at least 16 characters")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return errors.New("database.driver must be postgres or sqlite")
	}
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Feed.RecentCapacity <= 0 {
		return errors.New("feed.recent_capacity must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=ideagraph port=5432 sslmode=disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.log_level", "warn")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	// AutomaticEnv 只对已知 key 生效，空默认值让 Unmarshal 能读到环境变量
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("log.env", "dev")
	v.SetDefault("log.level", "info")
	v.SetDefault("feed.default_limit", 50)
	v.SetDefault("feed.max_limit", 200)
	v.SetDefault("feed.recent_capacity", 5)
	v.SetDefault("feed.following_ttl", 10*time.Minute)
	v.SetDefault("worker.replicator_workers", 4)
	v.SetDefault("worker.replicator_queue", 10000)
	v.SetDefault("worker.dispatch_workers", 4)
	v.SetDefault("worker.dispatch_queue", 10000)
	v.SetDefault("worker.fanout_workers", 2)
	v.SetDefault("worker.fanout_batch", 500)
	v.SetDefault("worker.fanout_claim", 64)
	v.SetDefault("worker.fanout_interval", 200*time.Millisecond)
	v.SetDefault("worker.fanout_lease", 5*time.Minute)
	v.SetDefault("push.provider", "log")
	v.SetDefault("push.region_id", "cn-hangzhou")
	v.SetDefault("push.access_key_id", "")
	v.SetDefault("push.access_key_secret", "")
	v.SetDefault("push.app_key", 0)
	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "dev")
	v.SetDefault("tracing.service_name", "ideagraph")
	v.SetDefault("tracing.sample_ratio", 1.0)
	v.SetDefault("rate_limit.rps", 50)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("events.backend", "redis")
	v.SetDefault("events.channel", "ideagraph:events")
}

// Load 读取 config.yaml（./configs 或当前目录）并用 IDEAGRAPH_ 前缀的环境变量覆盖。
// 找不到配置文件时仅使用默认值与环境变量。
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvPrefix("IDEAGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
