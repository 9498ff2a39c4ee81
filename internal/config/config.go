package config

import (
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// Config 分诊流水线服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig

	HTTP struct {
		Addr string
	}

	// 音频工件存储配置
	Artifacts struct {
		Dir       string
		MaxSizeMB int64
	}

	// 转写服务配置（OpenAI 兼容接口）
	Transcriber struct {
		BaseURL    string
		APIKey     string
		Model      string
		TimeoutSec int
	}

	// 风险分析服务配置（OpenAI 兼容接口）
	Analyzer struct {
		BaseURL    string
		APIKey     string
		Model      string
		TimeoutSec int
	}

	// 流水线配置
	Pipeline struct {
		// 运行锁 TTL（秒），防止同一提交并发处理
		RunLockTTLSec int
	}

	// 通知渠道配置
	Notify struct {
		SMS struct {
			BaseURL    string
			AccountSID string
			AuthToken  string
			From       string
		}
		Email struct {
			BaseURL string
			APIKey  string
			From    string
		}
		// 通知消息中指向前端详情页的链接前缀
		FrontendURL string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
// 从环境变量读取，未设置时使用默认值
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "asclepius")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Artifacts.Dir = getEnv("ARTIFACTS_DIR", "uploads")
	cfg.Artifacts.MaxSizeMB = int64(getEnvInt("ARTIFACTS_MAX_SIZE_MB", 50))

	cfg.Transcriber.BaseURL = getEnv("TRANSCRIBER_BASE_URL", "https://api.openai.com")
	cfg.Transcriber.APIKey = getEnv("TRANSCRIBER_API_KEY", "")
	cfg.Transcriber.Model = getEnv("TRANSCRIBER_MODEL", "whisper-1")
	cfg.Transcriber.TimeoutSec = getEnvInt("TRANSCRIBER_TIMEOUT_SEC", 120)

	cfg.Analyzer.BaseURL = getEnv("ANALYZER_BASE_URL", "https://api.openai.com")
	cfg.Analyzer.APIKey = getEnv("ANALYZER_API_KEY", "")
	cfg.Analyzer.Model = getEnv("ANALYZER_MODEL", "gpt-4")
	cfg.Analyzer.TimeoutSec = getEnvInt("ANALYZER_TIMEOUT_SEC", 60)

	cfg.Pipeline.RunLockTTLSec = getEnvInt("PIPELINE_RUN_LOCK_TTL_SEC", 600)

	cfg.Notify.SMS.BaseURL = getEnv("SMS_BASE_URL", "https://api.twilio.com")
	cfg.Notify.SMS.AccountSID = getEnv("SMS_ACCOUNT_SID", "")
	cfg.Notify.SMS.AuthToken = getEnv("SMS_AUTH_TOKEN", "")
	cfg.Notify.SMS.From = getEnv("SMS_FROM", "")
	cfg.Notify.Email.BaseURL = getEnv("EMAIL_BASE_URL", "https://api.sendgrid.com")
	cfg.Notify.Email.APIKey = getEnv("EMAIL_API_KEY", "")
	cfg.Notify.Email.From = getEnv("EMAIL_FROM", "")
	cfg.Notify.FrontendURL = getEnv("FRONTEND_URL", "http://localhost:3000")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
