// Package config 提供环境变量驱动的运行配置
package config

import (
	"time"

	"github.com/caarlos0/env/v11"

	"dddkit/errors"
)

// Config 顶层配置
type Config struct {
	// LogLevel 日志级别：debug/info/warn/error
	LogLevel string `env:"DDDKIT_LOG_LEVEL" envDefault:"info"`

	Storage StorageConfig
	Cache   CacheConfig
	Events  EventsConfig
}

// StorageConfig 存储配置
type StorageConfig struct {
	// Driver 存储驱动：memory 或 sqlite
	Driver string `env:"DDDKIT_STORAGE_DRIVER" envDefault:"memory"`

	// DSN sqlite 数据源，如 "issues.db" 或 ":memory:"
	DSN string `env:"DDDKIT_STORAGE_DSN" envDefault:":memory:"`

	MaxOpenConns int `env:"DDDKIT_STORAGE_MAX_OPEN_CONNS" envDefault:"4"`
	MaxIdleConns int `env:"DDDKIT_STORAGE_MAX_IDLE_CONNS" envDefault:"2"`
}

// CacheConfig 读穿缓存配置
type CacheConfig struct {
	// Enabled 是否启用读穿缓存
	Enabled bool `env:"DDDKIT_CACHE_ENABLED" envDefault:"true"`

	// RedisAddr 非空时用 Redis 跨进程缓存，否则用进程内 LRU
	RedisAddr     string        `env:"DDDKIT_CACHE_REDIS_ADDR"`
	RedisPassword string        `env:"DDDKIT_CACHE_REDIS_PASSWORD"`
	RedisDB       int           `env:"DDDKIT_CACHE_REDIS_DB" envDefault:"0"`
	TTL           time.Duration `env:"DDDKIT_CACHE_TTL" envDefault:"5m"`
	MaxSize       int           `env:"DDDKIT_CACHE_MAX_SIZE" envDefault:"1024"`
}

// EventsConfig 领域事件发布配置
type EventsConfig struct {
	// NATSURL 非空时把提交后的领域事件发布到 NATS，否则静默丢弃
	NATSURL string `env:"DDDKIT_NATS_URL"`

	// SubjectPrefix 事件主题前缀
	SubjectPrefix string `env:"DDDKIT_NATS_SUBJECT_PREFIX" envDefault:"domain.events."`
}

// Load 从环境变量解析配置
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.NewValidationError("解析环境配置失败: %v", err)
	}
	if cfg.Storage.Driver != "memory" && cfg.Storage.Driver != "sqlite" {
		return Config{}, errors.NewValidationError("不支持的存储驱动 %q", cfg.Storage.Driver)
	}
	return cfg, nil
}
