// Package config 提供 TOML 配置加载、环境变量覆盖与校验
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config 服务配置
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`

	HTTP       HTTPConfig       `mapstructure:"http"`
	GRPC       GRPCConfig       `mapstructure:"grpc"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Logger     LoggerConfig     `mapstructure:"logger"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Pricing    PricingConfig    `mapstructure:"pricing"`
	MarketData MarketDataConfig `mapstructure:"market_data"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// GRPCConfig gRPC 服务配置
type GRPCConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	// 最大并发流数
	MaxConcurrentStreams int `mapstructure:"max_concurrent_streams"`
}

// RedisConfig Redis 配置，Host 为空时不启用
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// 最大连接数
	MaxPoolSize int `mapstructure:"max_pool_size"`
	// 连接超时（秒）
	ConnTimeout int `mapstructure:"conn_timeout"`
	// 读超时（秒）
	ReadTimeout int `mapstructure:"read_timeout"`
	// 写超时（秒）
	WriteTimeout int `mapstructure:"write_timeout"`
}

// Enabled 是否配置了 Redis
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

// KafkaConfig Kafka 配置，Brokers 为空时不启用
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	// 定价事件主题
	PricingTopic string `mapstructure:"pricing_topic"`
	MaxRetries   int    `mapstructure:"max_retries"`
	// 重试退避（毫秒）
	RetryBackoff int `mapstructure:"retry_backoff"`
}

// Enabled 是否配置了 Kafka
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	QPS     int  `mapstructure:"qps"`
	Burst   int  `mapstructure:"burst"`
}

// PricingConfig 定价引擎默认参数
type PricingConfig struct {
	// 默认蒙特卡洛路径数
	DefaultPaths int `mapstructure:"default_paths"`
	// 默认随机种子，小于 0 表示不固定种子
	DefaultSeed int64 `mapstructure:"default_seed"`
	// 默认时间步数
	DefaultSteps int `mapstructure:"default_steps"`
	// 默认是否使用对偶变量
	DefaultAntithetic bool `mapstructure:"default_antithetic"`
	// 单次请求允许的最大路径数
	MaxPaths int `mapstructure:"max_paths"`
	// 并行 worker 数，<=1 表示单线程参考实现
	Workers int `mapstructure:"workers"`
	// 并行模式下每个 block 的样本数
	BlockSize int `mapstructure:"block_size"`
	// 收敛分析的基础路径阶梯
	ConvergenceLadder []int `mapstructure:"convergence_ladder"`
}

// MarketDataConfig 行情数据配置
type MarketDataConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// 请求超时（秒）
	Timeout    int `mapstructure:"timeout"`
	MaxRetries int `mapstructure:"max_retries"`
	// 快照缓存时间（秒）
	CacheTTL int `mapstructure:"cache_ttl"`
	// 熔断：连续失败次数阈值
	BreakerFailures int `mapstructure:"breaker_failures"`
	// 熔断：打开状态持续时间（秒）
	BreakerTimeout int `mapstructure:"breaker_timeout"`
}

// Load 从 TOML 文件加载配置，文件不存在时仅使用默认值与环境变量
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	// 环境变量覆盖，例如 APP_HTTP_PORT
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.GRPC.Enabled && (c.GRPC.Port <= 0 || c.GRPC.Port > 65535) {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.Pricing.DefaultPaths < 2 {
		return fmt.Errorf("pricing.default_paths must be > 1, got %d", c.Pricing.DefaultPaths)
	}
	if c.Pricing.DefaultSteps < 1 {
		return fmt.Errorf("pricing.default_steps must be >= 1, got %d", c.Pricing.DefaultSteps)
	}
	if c.Pricing.MaxPaths < c.Pricing.DefaultPaths {
		return fmt.Errorf("pricing.max_paths (%d) is below default_paths (%d)", c.Pricing.MaxPaths, c.Pricing.DefaultPaths)
	}
	if c.Kafka.Enabled() && c.Kafka.PricingTopic == "" {
		return fmt.Errorf("kafka.pricing_topic is required when brokers are set")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "pricing")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 60)

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("grpc.max_concurrent_streams", 1000)

	v.SetDefault("redis.host", "")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.pricing_topic", "pricing.completed")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/pricing.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", false)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.qps", 50)
	v.SetDefault("rate_limit.burst", 100)

	v.SetDefault("pricing.default_paths", 50000)
	v.SetDefault("pricing.default_seed", 42)
	v.SetDefault("pricing.default_steps", 1)
	v.SetDefault("pricing.default_antithetic", true)
	v.SetDefault("pricing.max_paths", 2000000)
	v.SetDefault("pricing.workers", 1)
	v.SetDefault("pricing.block_size", 8192)
	v.SetDefault("pricing.convergence_ladder", []int{1000, 2000, 5000, 10000, 20000, 50000})

	v.SetDefault("market_data.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("market_data.timeout", 10)
	v.SetDefault("market_data.max_retries", 3)
	v.SetDefault("market_data.cache_ttl", 900)
	v.SetDefault("market_data.breaker_failures", 5)
	v.SetDefault("market_data.breaker_timeout", 30)
}
