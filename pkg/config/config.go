package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store backends understood by StoreConfig.Backend.
const (
	StoreBackendMemory   = "memory"
	StoreBackendRedis    = "redis"
	StoreBackendPostgres = "postgres"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Canvas   CanvasConfig
	Grading  GradingConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	CORS     CORSConfig
	Log      LogConfig
	Exports  ExportsConfig
}

// CanvasConfig describes the upstream LMS API.
type CanvasConfig struct {
	BaseURL              string
	Token                string
	PerPage              int
	Timeout              time.Duration
	AttendanceAssignment string
}

// GradingConfig holds the defaults used when rendering a student report.
type GradingConfig struct {
	// NotYetGraded is the raw fallback value, either a number or "Use Zero".
	NotYetGraded string
	DropMarker   string
	OmitMarker   string
}

// StoreConfig selects where the fetched course structure is handed off.
type StoreConfig struct {
	Backend   string
	KeyPrefix string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ExportsConfig configures asynchronous roster exports.
type ExportsConfig struct {
	Enabled       bool
	StorageDir    string
	WorkerRetries int
	ResultTTL     time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Canvas = CanvasConfig{
		BaseURL:              strings.TrimRight(v.GetString("CANVAS_BASE_URL"), "/"),
		Token:                v.GetString("CANVAS_TOKEN"),
		PerPage:              v.GetInt("CANVAS_PER_PAGE"),
		Timeout:              parseDuration(v.GetString("CANVAS_TIMEOUT"), 30*time.Second),
		AttendanceAssignment: v.GetString("CANVAS_ATTENDANCE_ASSIGNMENT"),
	}
	if cfg.Canvas.PerPage <= 0 {
		cfg.Canvas.PerPage = 10
	}

	cfg.Grading = GradingConfig{
		NotYetGraded: v.GetString("GRADING_NOT_YET_GRADED"),
		DropMarker:   v.GetString("GRADING_DROP_MARKER"),
		OmitMarker:   v.GetString("GRADING_OMIT_MARKER"),
	}

	cfg.Store = StoreConfig{
		Backend:   strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		KeyPrefix: v.GetString("STORE_KEY_PREFIX"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Exports = ExportsConfig{
		Enabled:       v.GetBool("ENABLE_EXPORTS"),
		StorageDir:    v.GetString("EXPORTS_STORAGE_DIR"),
		WorkerRetries: v.GetInt("EXPORTS_WORKER_RETRIES"),
		ResultTTL:     parseDuration(v.GetString("EXPORTS_RESULT_TTL"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("CANVAS_BASE_URL", "https://bostoncollege.instructure.com/api/v1")
	v.SetDefault("CANVAS_TOKEN", "")
	v.SetDefault("CANVAS_PER_PAGE", 10)
	v.SetDefault("CANVAS_TIMEOUT", "30s")
	v.SetDefault("CANVAS_ATTENDANCE_ASSIGNMENT", "Roll Call Attendance")

	v.SetDefault("GRADING_NOT_YET_GRADED", "")
	v.SetDefault("GRADING_DROP_MARKER", "drop")
	v.SetDefault("GRADING_OMIT_MARKER", "Omit")

	v.SetDefault("STORE_BACKEND", StoreBackendMemory)
	v.SetDefault("STORE_KEY_PREFIX", "assignmentGroups")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "gradebook")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_EXPORTS", false)
	v.SetDefault("EXPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("EXPORTS_WORKER_RETRIES", 1)
	v.SetDefault("EXPORTS_RESULT_TTL", "24h")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
