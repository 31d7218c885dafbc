package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KNICEX/trader-watcher/internal/service/exchange/hyperliquid"
	"github.com/spf13/viper"
)

const (
	DefaultPollInterval = 10 // 秒
	DefaultConcurrency  = 8
	DefaultLookbackMs   = 5 * 60 * 1000

	MinPollInterval = 2
	MaxPollInterval = 3600
	MaxConcurrency  = 64
)

type MonitorConfig struct {
	PollIntervalSeconds int   `mapstructure:"poll_interval"`
	Concurrency         int   `mapstructure:"concurrency"`
	LookbackMs          int64 `mapstructure:"lookback_ms"`
}

func (c MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Lookback 游标为空时回看的时间窗口
func (c MonitorConfig) Lookback() time.Duration {
	return time.Duration(c.LookbackMs) * time.Millisecond
}

func (c MonitorConfig) Validate() error {
	if c.PollIntervalSeconds < MinPollInterval || c.PollIntervalSeconds > MaxPollInterval {
		return fmt.Errorf("monitor.poll_interval must be within [%d, %d], got %d",
			MinPollInterval, MaxPollInterval, c.PollIntervalSeconds)
	}
	if c.Concurrency < 1 || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("monitor.concurrency must be within [1, %d], got %d", MaxConcurrency, c.Concurrency)
	}
	if c.LookbackMs <= 0 {
		return errors.New("monitor.lookback_ms must be positive")
	}
	return nil
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type TelegramConfig struct {
	Token  string  `mapstructure:"token"`
	Admins []int64 `mapstructure:"admins"`
}

func (c TelegramConfig) IsAdmin(telegramId int64) bool {
	for _, id := range c.Admins {
		if id == telegramId {
			return true
		}
	}
	return false
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config 启动时构造一次, 通过构造函数传给各组件
type Config struct {
	Monitor     MonitorConfig      `mapstructure:"monitor"`
	Hyperliquid hyperliquid.Config `mapstructure:"hyperliquid"`
	DB          DBConfig           `mapstructure:"db"`
	Log         LogConfig          `mapstructure:"log"`
	Telegram    TelegramConfig     `mapstructure:"telegram"`
	Metrics     MetricsConfig      `mapstructure:"metrics"`
}

func SetDefaults(v *viper.Viper) {
	defaults := map[string]any{
		"monitor.poll_interval":      DefaultPollInterval,
		"monitor.concurrency":        DefaultConcurrency,
		"monitor.lookback_ms":        DefaultLookbackMs,
		"hyperliquid.base_url":       hyperliquid.DefaultBaseURL,
		"hyperliquid.timeout":        "10s",
		"hyperliquid.rate_limit":     10,
		"hyperliquid.burst":          5,
		"hyperliquid.max_retries":    3,
		"hyperliquid.retry_interval": "300ms",
		"db.path":                    "./data/db/app.sqlite3",
		"log.level":                  "info",
		"log.file":                   "",
		"telegram.token":             "",
		"telegram.admins":            []int64{},
		"metrics.addr":               "",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// NewViper file 为空时只用默认值和环境变量
func NewViper(file string) (*viper.Viper, error) {
	v := viper.New()
	if file == "" {
		return v, nil
	}
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", file, err)
	}
	return v, nil
}

// Load 读取配置, 环境变量 WATCHER_MONITOR_POLL_INTERVAL 之类可覆盖文件中的值
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix("watcher")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Monitor.Validate(); err != nil {
		return Config{}, err
	}
	if cfg.DB.Path == "" {
		return Config{}, errors.New("db.path is empty")
	}
	return cfg, nil
}
