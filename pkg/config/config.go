package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Warehouse WarehouseConfig `mapstructure:"warehouse"`
	Detection DetectionConfig `mapstructure:"detection"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Lmstfy    LmstfyConfig    `mapstructure:"lmstfy"`
	Workers   []WorkerConfig  `mapstructure:"workers"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port string `mapstructure:"port"`
	// AsyncEnabled 为 true 时 ?wait=N 请求走 lmstfy + Redis Smart Wait
	AsyncEnabled bool `mapstructure:"async_enabled"`
}

// WarehouseConfig 数仓配置
type WarehouseConfig struct {
	Driver string          `mapstructure:"driver"` // mysql / sqlite
	DSN    string          `mapstructure:"dsn"`
	Tables WarehouseTables `mapstructure:"tables"`
}

// WarehouseTables 事实表与维度表名称
type WarehouseTables struct {
	SalesFact   string `mapstructure:"sales_fact"`
	ProductDim  string `mapstructure:"product_dim"`
	CustomerDim string `mapstructure:"customer_dim"`
}

// DetectionConfig 异常检测策略
type DetectionConfig struct {
	OrderLimit   int           `mapstructure:"order_limit"`   // 单次最多返回的订单数
	MaxThreshold float64       `mapstructure:"max_threshold"` // 阈值上限，0 表示不限制
	MaxTurns     int           `mapstructure:"max_turns"`     // 单次运行的轮次预算
	RunTimeout   time.Duration `mapstructure:"run_timeout"`   // 单次运行截止时间
}

// LLMConfig 模型生成说明文本的配置
type LLMConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
	Queue     string `mapstructure:"queue"`
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name       string           `mapstructure:"name"`
	QueueName  string           `mapstructure:"queue_name"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "basketwatch")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", "8080")

	// 密钥类配置也需要注册，AutomaticEnv 才能在 Unmarshal 时生效
	v.SetDefault("warehouse.dsn", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("lmstfy.token", "")

	v.SetDefault("warehouse.driver", "mysql")
	v.SetDefault("warehouse.tables.sales_fact", "fact_sales")
	v.SetDefault("warehouse.tables.product_dim", "dim_product")
	v.SetDefault("warehouse.tables.customer_dim", "dim_customer")

	v.SetDefault("detection.order_limit", 50)
	v.SetDefault("detection.max_threshold", 0)
	v.SetDefault("detection.max_turns", 10)
	v.SetDefault("detection.run_timeout", 30*time.Second)

	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.timeout", 20*time.Second)

	v.SetDefault("lmstfy.port", 7777)
	v.SetDefault("lmstfy.queue", "basket_detect")
}

// Load 加载配置文件，环境变量 BASKETWATCH_* 可覆盖同名配置
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BASKETWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.Warehouse.DSN == "" {
		return fmt.Errorf("warehouse.dsn is required")
	}
	switch c.Warehouse.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("warehouse.driver %q is not supported", c.Warehouse.Driver)
	}
	if c.Detection.OrderLimit <= 0 {
		return fmt.Errorf("detection.order_limit must be > 0")
	}
	if c.Detection.MaxThreshold < 0 {
		return fmt.Errorf("detection.max_threshold must be >= 0")
	}
	if c.Detection.MaxTurns <= 0 {
		return fmt.Errorf("detection.max_turns must be > 0")
	}
	if c.Detection.RunTimeout <= 0 {
		return fmt.Errorf("detection.run_timeout must be > 0")
	}
	if c.LLM.Enabled && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required when llm is enabled")
	}
	if c.Server.AsyncEnabled {
		if err := c.ValidateQueue(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateQueue 验证异步链路（Redis + Lmstfy）所需配置
func (c *Config) ValidateQueue() error {
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if c.Lmstfy.Queue == "" {
		return fmt.Errorf("lmstfy.queue is required")
	}
	return nil
}

// ValidateWorker 验证 Worker 进程配置
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := c.ValidateQueue(); err != nil {
		return err
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	return nil
}
