package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Stator   StatorConfig   `mapstructure:"stator"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
	// BaseURL 本站对外地址，联邦对象 URI 的前缀
	BaseURL string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // postgres / sqlite
	DSN    string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"` // follow 集合缓存 TTL
}

// DeliveryConfig 出站签名投递
type DeliveryConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	Rate      float64       `mapstructure:"rate"`  // 每个 host 每秒请求数
	Burst     int           `mapstructure:"burst"` // 突发上限
	UserAgent string        `mapstructure:"user_agent"`
}

// StatorConfig 重试状态机执行器
type StatorConfig struct {
	TryInterval  time.Duration `mapstructure:"try_interval"`  // 失败后重试间隔
	PollInterval time.Duration `mapstructure:"poll_interval"` // 轮询节奏
	Workers      int           `mapstructure:"workers"`
	Batch        int           `mapstructure:"batch"`
	MaxAttempts  int           `mapstructure:"max_attempts"` // 0 = 无限重试
	PruneCron    string        `mapstructure:"prune_cron"`
	PruneAfter   time.Duration `mapstructure:"prune_after"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Load 读取配置文件 + FANOUT_ 前缀环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("FANOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 没有配置文件时用默认值 + 环境变量
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "fanout.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)
	v.SetDefault("delivery.timeout", 10*time.Second)
	v.SetDefault("delivery.rate", 5.0)
	v.SetDefault("delivery.burst", 10)
	v.SetDefault("delivery.user_agent", "fanout-engine/1.0")
	v.SetDefault("stator.try_interval", 300*time.Second)
	v.SetDefault("stator.poll_interval", time.Second)
	v.SetDefault("stator.workers", 4)
	v.SetDefault("stator.batch", 64)
	v.SetDefault("stator.max_attempts", 0)
	v.SetDefault("stator.prune_cron", "@hourly")
	v.SetDefault("stator.prune_after", 24*time.Hour)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
}
