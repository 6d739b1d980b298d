package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Reminder  ReminderConfig  `mapstructure:"reminder"`
	Lease     LeaseConfig     `mapstructure:"lease"`
	Log       LogConfig       `mapstructure:"log"`

	// 运行时标志（非配置文件，通过命令行参数设置）
	ForceMigrate bool `mapstructure:"-"` // 强制执行数据库迁移
	MigrateOnly  bool `mapstructure:"-"` // 仅迁移模式（迁移后退出）
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	MinioUseSSL   bool   `mapstructure:"minio_use_ssl"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int `mapstructure:"pool_size"`
	MinIdleConns int `mapstructure:"min_idle_conns"`
}

// LogConfig 日志级别与滚动文件设置，Level 为空时按 server.mode 决定
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// IngestConfig 学习记录写入方（测试/AI 对话子系统）的鉴权配置
type IngestConfig struct {
	// KeyHash 为 bcrypt 哈希后的写入密钥
	KeyHash string `mapstructure:"key_hash"`
}

// EngineConfig 计划生成与分析引擎的可调参数，支持热更新
type EngineConfig struct {
	WeakTopicThreshold        float64       `mapstructure:"weak_topic_threshold"`
	HighSeverityThreshold     float64       `mapstructure:"high_severity_threshold"`
	TrendDelta                float64       `mapstructure:"trend_delta"`
	DefaultHorizonDays        int           `mapstructure:"default_horizon_days"`
	MaxHorizonDays            int           `mapstructure:"max_horizon_days"`
	SessionMinutes            int           `mapstructure:"session_minutes"`
	DailyBudgetTolerance      float64       `mapstructure:"daily_budget_tolerance"`
	MaxWeakIntervalDays       int           `mapstructure:"max_weak_interval_days"`
	WeakSubjectBoost          float64       `mapstructure:"weak_subject_boost"`
	MinLevel                  int           `mapstructure:"min_level"`
	MaxLevel                  int           `mapstructure:"max_level"`
	DifficultyUpCompletion    float64       `mapstructure:"difficulty_up_completion"`
	DifficultyUpScore         float64       `mapstructure:"difficulty_up_score"`
	DifficultyDownCompletion  float64       `mapstructure:"difficulty_down_completion"`
	DifficultyDownScore       float64       `mapstructure:"difficulty_down_score"`
	RecentCompletionDays      int           `mapstructure:"recent_completion_days"`
	RecentScoreDays           int           `mapstructure:"recent_score_days"`
	PredictionWindowDays      int           `mapstructure:"prediction_window_days"`
	FactorScale               float64       `mapstructure:"factor_scale"`
	ConfidenceScale           float64       `mapstructure:"confidence_scale"`
	RecommendedDaysPerSubject int           `mapstructure:"recommended_days_per_subject"`
	PredictionDebounce        time.Duration `mapstructure:"prediction_debounce"`
	AutoAdapt                 bool          `mapstructure:"auto_adapt"`
	DefaultTimezone           string        `mapstructure:"default_timezone"`
}

// ReminderConfig 提醒默认偏好及后台扫描参数
type ReminderConfig struct {
	Enabled             bool          `mapstructure:"enabled"`
	DefaultTime         string        `mapstructure:"default_time"`
	DefaultTimezone     string        `mapstructure:"default_timezone"`
	InactivityThreshold time.Duration `mapstructure:"inactivity_threshold"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	EvaluationTimeout   time.Duration `mapstructure:"evaluation_timeout"`
	SweepConcurrency    int           `mapstructure:"sweep_concurrency"`
	Stream              string        `mapstructure:"stream"`
}

// LeaseConfig 计划变更互斥租约
type LeaseConfig struct {
	TTL  time.Duration `mapstructure:"ttl"`
	Wait time.Duration `mapstructure:"wait"`
}

// DefaultEngineConfig 返回引擎参数的默认值
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WeakTopicThreshold:        0.4,
		HighSeverityThreshold:     0.6,
		TrendDelta:                5,
		DefaultHorizonDays:        60,
		MaxHorizonDays:            365,
		SessionMinutes:            30,
		DailyBudgetTolerance:      0.1,
		MaxWeakIntervalDays:       5,
		WeakSubjectBoost:          2,
		MinLevel:                  1,
		MaxLevel:                  10,
		DifficultyUpCompletion:    80,
		DifficultyUpScore:         80,
		DifficultyDownCompletion:  40,
		DifficultyDownScore:       50,
		RecentCompletionDays:      7,
		RecentScoreDays:           14,
		PredictionWindowDays:      90,
		FactorScale:               20,
		ConfidenceScale:           30,
		RecommendedDaysPerSubject: 14,
		PredictionDebounce:        3 * time.Second,
		AutoAdapt:                 true,
		DefaultTimezone:           "UTC",
	}
}

// DefaultReminderConfig 返回提醒默认值
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Enabled:             true,
		DefaultTime:         "09:00",
		DefaultTimezone:     "UTC",
		InactivityThreshold: 24 * time.Hour,
		SweepInterval:       15 * time.Minute,
		EvaluationTimeout:   10 * time.Second,
		SweepConcurrency:    8,
		Stream:              "reminder:events",
	}
}

func setDefaults(v *viper.Viper) {
	e := DefaultEngineConfig()
	v.SetDefault("engine.weak_topic_threshold", e.WeakTopicThreshold)
	v.SetDefault("engine.high_severity_threshold", e.HighSeverityThreshold)
	v.SetDefault("engine.trend_delta", e.TrendDelta)
	v.SetDefault("engine.default_horizon_days", e.DefaultHorizonDays)
	v.SetDefault("engine.max_horizon_days", e.MaxHorizonDays)
	v.SetDefault("engine.session_minutes", e.SessionMinutes)
	v.SetDefault("engine.daily_budget_tolerance", e.DailyBudgetTolerance)
	v.SetDefault("engine.max_weak_interval_days", e.MaxWeakIntervalDays)
	v.SetDefault("engine.weak_subject_boost", e.WeakSubjectBoost)
	v.SetDefault("engine.min_level", e.MinLevel)
	v.SetDefault("engine.max_level", e.MaxLevel)
	v.SetDefault("engine.difficulty_up_completion", e.DifficultyUpCompletion)
	v.SetDefault("engine.difficulty_up_score", e.DifficultyUpScore)
	v.SetDefault("engine.difficulty_down_completion", e.DifficultyDownCompletion)
	v.SetDefault("engine.difficulty_down_score", e.DifficultyDownScore)
	v.SetDefault("engine.recent_completion_days", e.RecentCompletionDays)
	v.SetDefault("engine.recent_score_days", e.RecentScoreDays)
	v.SetDefault("engine.prediction_window_days", e.PredictionWindowDays)
	v.SetDefault("engine.factor_scale", e.FactorScale)
	v.SetDefault("engine.confidence_scale", e.ConfidenceScale)
	v.SetDefault("engine.recommended_days_per_subject", e.RecommendedDaysPerSubject)
	v.SetDefault("engine.prediction_debounce", e.PredictionDebounce)
	v.SetDefault("engine.auto_adapt", e.AutoAdapt)
	v.SetDefault("engine.default_timezone", e.DefaultTimezone)

	r := DefaultReminderConfig()
	v.SetDefault("reminder.enabled", r.Enabled)
	v.SetDefault("reminder.default_time", r.DefaultTime)
	v.SetDefault("reminder.default_timezone", r.DefaultTimezone)
	v.SetDefault("reminder.inactivity_threshold", r.InactivityThreshold)
	v.SetDefault("reminder.sweep_interval", r.SweepInterval)
	v.SetDefault("reminder.evaluation_timeout", r.EvaluationTimeout)
	v.SetDefault("reminder.sweep_concurrency", r.SweepConcurrency)
	v.SetDefault("reminder.stream", r.Stream)

	v.SetDefault("lease.ttl", 30*time.Second)
	v.SetDefault("lease.wait", 500*time.Millisecond)

	v.SetDefault("redis.pool_size", 50)
	v.SetDefault("redis.min_idle_conns", 5)

	v.SetDefault("log.file", "logs/studyplan.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "archive")
	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("STUDYPLAN")
	v.AutomaticEnv()

	setDefaults(v)

	// Database
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("log.level", "LOG_LEVEL")

	// Ingest
	v.BindEnv("ingest.key_hash", "INGEST_KEY_HASH")

	// Storage / OSS
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

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// 生产环境校验 JWT Secret 强度
	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}

// Validate 检查引擎参数是否自洽
func (e EngineConfig) Validate() error {
	if e.WeakTopicThreshold <= 0 || e.WeakTopicThreshold >= 1 {
		return fmt.Errorf("engine.weak_topic_threshold must be in (0,1), got %v", e.WeakTopicThreshold)
	}
	if e.HighSeverityThreshold < e.WeakTopicThreshold || e.HighSeverityThreshold > 1 {
		return fmt.Errorf("engine.high_severity_threshold must be in [weak_topic_threshold,1], got %v", e.HighSeverityThreshold)
	}
	if e.DefaultHorizonDays <= 0 || e.MaxHorizonDays < e.DefaultHorizonDays {
		return fmt.Errorf("engine horizon invalid: default=%d max=%d", e.DefaultHorizonDays, e.MaxHorizonDays)
	}
	if e.SessionMinutes <= 0 {
		return fmt.Errorf("engine.session_minutes must be positive")
	}
	if e.MaxWeakIntervalDays < 1 || e.MaxWeakIntervalDays > 7 {
		return fmt.Errorf("engine.max_weak_interval_days must be in [1,7], got %d", e.MaxWeakIntervalDays)
	}
	if e.MinLevel < 1 || e.MaxLevel < e.MinLevel {
		return fmt.Errorf("engine level range invalid: [%d,%d]", e.MinLevel, e.MaxLevel)
	}
	return nil
}
