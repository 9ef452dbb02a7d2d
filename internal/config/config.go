package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Auth      AuthConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	AI        AIConfig
	Import    ImportConfig
	Events    EventsConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool   `mapstructure:"-"`
	MigrateOnly  bool   `mapstructure:"-"`
	ConfigFile   string `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type LogConfig struct {
	Level      string `mapstructure:"level"` // 为空时 debug 模式用 debug，其余用 info
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"` // sqlite, mysql
	Path      string `mapstructure:"path"`   // sqlite 文件路径
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	LogLevel  string `mapstructure:"log_level"`
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type AuthConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	DeviceKeyHash string `mapstructure:"device_key_hash"` // bcrypt
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioSecure   bool   `mapstructure:"minio_secure"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

// AIConfig 三个大模型服务商 + 解析缓存
type AIConfig struct {
	DeepSeek ProviderConfig `mapstructure:"deepseek"`
	Spark    ProviderConfig `mapstructure:"spark"`
	Baidu    ProviderConfig `mapstructure:"baidu"`
	Cache    AICacheConfig  `mapstructure:"cache"`
}

type ProviderConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	Model          string `mapstructure:"model"`
	APIKey         string `mapstructure:"api_key"`
	TokenField     string `mapstructure:"token_field"`
	MaxTokens      int    `mapstructure:"max_tokens"`
	AuthHeader     string `mapstructure:"auth_header"`
	AuthScheme     string `mapstructure:"auth_scheme"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxConcurrency int    `mapstructure:"max_concurrency"` // 0 表示不限制
}

type AICacheConfig struct {
	Type       string `mapstructure:"type"` // memory, redis
	TTLMinutes int    `mapstructure:"ttl_minutes"`
	MaxEntries int    `mapstructure:"max_entries"`
}

type ImportConfig struct {
	MaxFileSizeMB int      `mapstructure:"max_file_size_mb"`
	MaxRequestMB  int      `mapstructure:"max_request_mb"` // 一次上传多个文件的总大小
	AllowedExts   []string `mapstructure:"allowed_exts"`
	ArchiveFiles  bool     `mapstructure:"archive_files"`
}

type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("log.filename", "logs/app.log")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/quiz_bank.db")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("jwt.expire_hours", 720)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "uploads")

	v.SetDefault("ai.deepseek.endpoint", "https://api.deepseek.com/chat/completions")
	v.SetDefault("ai.deepseek.model", "deepseek-chat")
	v.SetDefault("ai.deepseek.token_field", "max_tokens")
	v.SetDefault("ai.deepseek.max_tokens", 2048)
	v.SetDefault("ai.deepseek.auth_header", "Authorization")
	v.SetDefault("ai.deepseek.auth_scheme", "Bearer")
	v.SetDefault("ai.deepseek.timeout_seconds", 60)

	v.SetDefault("ai.spark.endpoint", "https://spark-api-open.xf-yun.com/v1/chat/completions")
	v.SetDefault("ai.spark.model", "generalv3.5")
	v.SetDefault("ai.spark.token_field", "max_tokens")
	v.SetDefault("ai.spark.max_tokens", 2048)
	v.SetDefault("ai.spark.auth_header", "Authorization")
	v.SetDefault("ai.spark.auth_scheme", "Bearer")
	v.SetDefault("ai.spark.timeout_seconds", 60)
	v.SetDefault("ai.spark.max_concurrency", 2)

	v.SetDefault("ai.baidu.endpoint", "https://qianfan.baidubce.com/v2/chat/completions")
	v.SetDefault("ai.baidu.model", "ernie-4.0-8k")
	v.SetDefault("ai.baidu.token_field", "max_completion_tokens")
	v.SetDefault("ai.baidu.max_tokens", 2048)
	v.SetDefault("ai.baidu.auth_header", "Authorization")
	v.SetDefault("ai.baidu.auth_scheme", "Bearer")
	v.SetDefault("ai.baidu.timeout_seconds", 60)

	v.SetDefault("ai.cache.type", "memory")
	v.SetDefault("ai.cache.ttl_minutes", 1440)
	v.SetDefault("ai.cache.max_entries", 2000)

	v.SetDefault("import.max_file_size_mb", 20)
	v.SetDefault("import.max_request_mb", 200)
	v.SetDefault("import.allowed_exts", []string{".xlsx", ".xlsm", ".docx", ".txt"})
	v.SetDefault("import.archive_files", true)

	v.SetDefault("events.exchange", "quiz_bank.events")

	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
}

// LoadConfig 读取 path 目录下的 config.yaml，文件不存在时只使用默认值和环境变量
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("QUIZ_BANK")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT / Auth
	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("auth.device_key_hash", "DEVICE_KEY_HASH")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("log.level", "LOG_LEVEL")

	// AI
	v.BindEnv("ai.deepseek.api_key", "DEEPSEEK_API_KEY")
	v.BindEnv("ai.spark.api_key", "SPARK_API_KEY")
	v.BindEnv("ai.baidu.api_key", "BAIDU_API_KEY")

	// Storage
	v.BindEnv("storage.type", "STORAGE_TYPE")
	v.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	v.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	v.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	v.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	v.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	v.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	v.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	v.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Events
	v.BindEnv("events.enabled", "EVENTS_ENABLED")
	v.BindEnv("events.url", "AMQP_URL")

	configFile := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	} else {
		configFile = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.ConfigFile = configFile

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if cfg.Auth.Enabled && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters when auth is enabled", len(cfg.JWT.Secret))
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	if cfg.Database.Driver == "sqlite" && cfg.Database.Path != "" && cfg.Database.Path != ":memory:" {
		os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755)
	}

	return &cfg, nil
}
