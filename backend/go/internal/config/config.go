package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RedisConfig 定义了 Redis 数据库的连接配置。
type RedisConfig struct {
	Address  string `yaml:"address"`  // Redis 服务器地址 (例如: "localhost:6379")
	Password string `yaml:"password"` // Redis 密码
	DB       int    `yaml:"db"`       // Redis 数据库编号
}

// MySQLConfig 定义了关系型数据库的连接配置。
// Driver 为 "sqlite" 时使用内嵌数据库，只读取 DSN 字段。
type MySQLConfig struct {
	Driver          string `yaml:"driver"`          // "mysql" 或 "sqlite"
	DSN             string `yaml:"dsn"`             // sqlite 文件路径
	Address         string `yaml:"address"`         // MySQL 服务器地址
	Username        string `yaml:"username"`        // 用户名
	Password        string `yaml:"password"`        // 密码
	Database        string `yaml:"database"`        // 数据库名称
	MaxOpenConns    int    `yaml:"maxOpenConns"`    // 最大打开连接数
	MaxIdleConns    int    `yaml:"maxIdleConns"`    // 最大空闲连接数
	ConnMaxLifetime int    `yaml:"connMaxLifetime"` // 连接最大生命周期 (秒)
}

// KafkaConfig 定义了 Kafka 消息队列的连接配置。
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // Kafka Broker 地址列表，为空时不发布事件
	Topic   string   `yaml:"topic"`   // 查询记录事件的主题
}

// DatabaseConfigs 包含所有数据库的配置。
type DatabaseConfigs struct {
	Redis RedisConfig `yaml:"redis"`
	MySQL MySQLConfig `yaml:"mysql"`
	Kafka KafkaConfig `yaml:"kafka"`
}

// AppInfo 对应 'app' 部分，包含应用程序的基本信息。
type AppInfo struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"` // 例如: "development", "production"
}

// LoggerConfig 定义了日志记录器的配置。
type LoggerConfig struct {
	Level  string `yaml:"level"`  // 日志级别 (例如: "info", "debug", "warn", "error")
	Format string `yaml:"format"` // "json" 或 "text"，默认 json
}

// ServerConfig 定义了 HTTP 服务的监听配置。
type ServerConfig struct {
	Address         string `yaml:"address"`
	ShutdownTimeout string `yaml:"shutdownTimeout"` // 例如: "10s"
}

// QuotaConfig 定义了每日配额。
type QuotaConfig struct {
	DailyLimit int `yaml:"dailyLimit"` // 每个用户每个自然日(UTC)可提交的问题数
}

// SearchConfig 定义了语义检索的默认参数。
type SearchConfig struct {
	DefaultK int `yaml:"defaultK"` // 未指定 k 时返回的结果数
	MaxK     int `yaml:"maxK"`     // k 的上限
}

// LLMConfig 定义了生成模型的配置。
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai", "ollama", "gemini", "huggingface"
	Model    string `yaml:"model"`    // 模型名称，同时记录到每条问答记录
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseURL"`
	Timeout  string `yaml:"timeout"` // 单次生成的超时时间，例如: "60s"
}

// EmbeddingCacheConfig 定义了查询向量缓存。
type EmbeddingCacheConfig struct {
	Backend  string `yaml:"backend"`  // "none", "lru", "redis"
	Capacity int    `yaml:"capacity"` // lru 的最大条目数
	TTL      string `yaml:"ttl"`      // 例如: "24h"
}

// EmbeddingConfig 定义了向量模型的配置。
type EmbeddingConfig struct {
	Provider  string               `yaml:"provider"`
	Model     string               `yaml:"model"`
	APIKey    string               `yaml:"apiKey"`
	BaseURL   string               `yaml:"baseURL"`
	Dimension int                  `yaml:"dimension"` // 向量维度 D
	Timeout   string               `yaml:"timeout"`
	Cache     EmbeddingCacheConfig `yaml:"cache"`
}

// MiddlewareConfig 包含所有中间件的配置。
type MiddlewareConfig struct {
	RateLimiter    RateLimiterConfig    `yaml:"rateLimiter"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker"`
}

// RateLimiterConfig 定义了限流器的配置。
type RateLimiterConfig struct {
	Enabled        bool                 `yaml:"enabled"`
	Algorithm      string               `yaml:"algorithm"` // "tokenBucket", "leakyBucket", "fixedWindow", "slidingLog", "slidingCounter"
	TokenBucket    TokenBucketConfig    `yaml:"tokenBucket"`
	LeakyBucket    TokenBucketConfig    `yaml:"leakyBucket"`
	FixedWindow    FixedWindowConfig    `yaml:"fixedWindow"`
	SlidingLog     FixedWindowConfig    `yaml:"slidingLog"`
	SlidingCounter SlidingCounterConfig `yaml:"slidingCounter"`
}

// SlidingCounterConfig 定义了滑动窗口计数器的配置。
type SlidingCounterConfig struct {
	FixedWindowConfig `yaml:",inline"`
	NumBuckets        int `yaml:"numBuckets"`
}

// FixedWindowConfig 定义了固定窗口计数器算法的配置。
type FixedWindowConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"` // 例如: "1m", "30s"
}

// TokenBucketConfig 定义了令牌桶算法的配置。
type TokenBucketConfig struct {
	Rate     float64 `yaml:"rate"` // 每秒速率
	Capacity int     `yaml:"capacity"`
}

// CircuitBreakerConfig 定义了生成模型调用的熔断器配置。
type CircuitBreakerConfig struct {
	Enabled          bool   `yaml:"enabled"`
	FailureThreshold uint32 `yaml:"failureThreshold"`
	SuccessThreshold uint32 `yaml:"successThreshold"`
	Timeout          string `yaml:"timeout"` // 例如: "30s"
}

// AppConfig 是整个 YAML 文件的根结构。
type AppConfig struct {
	App        AppInfo          `yaml:"app"`
	Logger     LoggerConfig     `yaml:"logger"`
	Server     ServerConfig     `yaml:"server"`
	Quota      QuotaConfig      `yaml:"quota"`
	Search     SearchConfig     `yaml:"search"`
	LLM        LLMConfig        `yaml:"llm"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Databases  DatabaseConfigs  `yaml:"databases"`
	Middleware MiddlewareConfig `yaml:"middleware"`
}

const (
	DefaultDailyLimit = 20
	DefaultDimension  = 384
	DefaultSearchK    = 5
	DefaultMaxK       = 50
)

// LoadConfig 从指定路径加载并解析 YAML 配置文件。
// 当前目录下存在 .env 时先加载它，随后用环境变量覆盖密钥类字段。
func LoadConfig(path string) (*AppConfig, error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取 YAML 文件 '%s': %w", path, err)
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("加载 .env 失败: %w", err)
	}
	return Parse(yamlFile)
}

// Parse 解析 YAML 内容，填充默认值并校验。
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析 YAML 文件失败: %w", err)
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) applyEnv() {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	override(&c.LLM.APIKey, "LLM_API_KEY")
	override(&c.Embedding.APIKey, "EMBEDDING_API_KEY")
	override(&c.Databases.MySQL.Password, "MYSQL_PASSWORD")
	override(&c.Databases.Redis.Password, "REDIS_PASSWORD")
}

func (c *AppConfig) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "query_service"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = "10s"
	}
	if c.Quota.DailyLimit == 0 {
		c.Quota.DailyLimit = DefaultDailyLimit
	}
	if c.Search.DefaultK == 0 {
		c.Search.DefaultK = DefaultSearchK
	}
	if c.Search.MaxK == 0 {
		c.Search.MaxK = DefaultMaxK
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = "60s"
	}
	if c.Embedding.Dimension == 0 {
		c.Embedding.Dimension = DefaultDimension
	}
	if c.Embedding.Timeout == "" {
		c.Embedding.Timeout = "15s"
	}
	if c.Embedding.Cache.Backend == "" {
		c.Embedding.Cache.Backend = "none"
	}
	if c.Embedding.Cache.Capacity == 0 {
		c.Embedding.Cache.Capacity = 10000
	}
	if c.Databases.MySQL.Driver == "" {
		c.Databases.MySQL.Driver = "mysql"
	}
	if c.Databases.Kafka.Topic == "" {
		c.Databases.Kafka.Topic = "query_records"
	}
	if c.Middleware.RateLimiter.Algorithm == "" {
		c.Middleware.RateLimiter.Algorithm = "tokenBucket"
	}
	if c.Middleware.CircuitBreaker.Timeout == "" {
		c.Middleware.CircuitBreaker.Timeout = "30s"
	}
}

// Validate 检查配置中不能由默认值兜底的错误。
func (c *AppConfig) Validate() error {
	if c.Quota.DailyLimit < 0 {
		return fmt.Errorf("quota.dailyLimit 不能为负数: %d", c.Quota.DailyLimit)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("embedding.dimension 不能为负数: %d", c.Embedding.Dimension)
	}
	if c.Search.DefaultK < 0 || c.Search.MaxK < c.Search.DefaultK {
		return fmt.Errorf("search.defaultK=%d 与 search.maxK=%d 不合法", c.Search.DefaultK, c.Search.MaxK)
	}
	switch c.Databases.MySQL.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("不支持的数据库驱动: %s", c.Databases.MySQL.Driver)
	}
	switch c.Embedding.Cache.Backend {
	case "none", "lru", "redis":
	default:
		return fmt.Errorf("不支持的向量缓存: %s", c.Embedding.Cache.Backend)
	}
	for name, d := range map[string]string{
		"server.shutdownTimeout":            c.Server.ShutdownTimeout,
		"llm.timeout":                       c.LLM.Timeout,
		"embedding.timeout":                 c.Embedding.Timeout,
		"middleware.circuitBreaker.timeout": c.Middleware.CircuitBreaker.Timeout,
	} {
		if _, err := time.ParseDuration(d); err != nil {
			return fmt.Errorf("%s 不是合法的时长: %w", name, err)
		}
	}
	if c.Embedding.Cache.TTL != "" {
		if _, err := time.ParseDuration(c.Embedding.Cache.TTL); err != nil {
			return fmt.Errorf("embedding.cache.ttl 不是合法的时长: %w", err)
		}
	}
	return nil
}

// Duration 解析已经通过校验的时长字段，解析失败时返回 fallback。
func Duration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
