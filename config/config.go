package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置（viper 加载，支持环境变量覆盖）
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Trending TrendingConfig `mapstructure:"trending"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	Mode string `mapstructure:"mode"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FeedConfig 时间线缓存参数
type FeedConfig struct {
	MaxItems        int64         `mapstructure:"max_items"`
	RegenerationTTL time.Duration `mapstructure:"regeneration_ttl"`
}

// TrendingConfig trending 打分参数（方向性约束见 trending 包）
type TrendingConfig struct {
	Threshold     float64       `mapstructure:"threshold"`
	ScoreHalfLife time.Duration `mapstructure:"score_half_life"`
	ScoreCutoff   float64       `mapstructure:"score_cutoff"`
	RankWindow    int           `mapstructure:"rank_window"`
}

type LedgerConfig struct {
	Secret string `mapstructure:"secret"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load 读取 config.yaml 并应用 TIMELINE_ 前缀环境变量
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("TIMELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// 无配置文件时仅用默认值 + 环境变量
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
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=timeline port=5432 sslmode=disable")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("feed.max_items", 400)
	v.SetDefault("feed.regeneration_ttl", 24*time.Hour)
	v.SetDefault("trending.threshold", 5)
	v.SetDefault("trending.score_half_life", 4*time.Hour)
	v.SetDefault("trending.score_cutoff", 0.3)
	v.SetDefault("trending.rank_window", 10)
	v.SetDefault("ledger.secret", "dev-only-secret")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("log.level", "info")
}
