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

const (
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Backend     BackendConfig
	Storage     StorageConfig
	Redis       RedisConfig
	Session     SessionConfig
	TimeWindows TimeWindowsConfig
	CORS        CORSConfig
	Log         LogConfig
	Metrics     MetricsConfig
	Export      ExportConfig
}

// BackendConfig points the portal at the activities REST backend.
type BackendConfig struct {
	BaseURL string
	Timeout time.Duration
}

// StorageConfig selects where durable profile state lives.
type StorageConfig struct {
	Driver     string
	SQLitePath string
	ProfileID  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SessionConfig bounds tab-scoped entries.
type SessionConfig struct {
	TokenTTL    time.Duration
	SnapshotTTL time.Duration
}

// TimeWindow is a fixed HH:MM start/end pair sent to the backend.
type TimeWindow struct {
	Start string
	End   string
}

// TimeWindowsConfig holds the server-side time range lookup table.
type TimeWindowsConfig struct {
	BeforeSchool TimeWindow
	AfterSchool  TimeWindow
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// ExportConfig tunes roster exports.
type ExportConfig struct {
	PDFTitle string
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

	cfg.Backend = BackendConfig{
		BaseURL: strings.TrimRight(v.GetString("BACKEND_BASE_URL"), "/"),
		Timeout: parseDuration(v.GetString("BACKEND_TIMEOUT"), 10*time.Second),
	}

	cfg.Storage = StorageConfig{
		Driver:     strings.ToLower(v.GetString("STORAGE_DRIVER")),
		SQLitePath: v.GetString("STORAGE_SQLITE_PATH"),
		ProfileID:  v.GetString("STORAGE_PROFILE_ID"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Session = SessionConfig{
		TokenTTL:    parseDuration(v.GetString("SESSION_TOKEN_TTL"), time.Hour),
		SnapshotTTL: parseDuration(v.GetString("SESSION_SNAPSHOT_TTL"), 24*time.Hour),
	}

	cfg.TimeWindows = TimeWindowsConfig{
		BeforeSchool: TimeWindow{
			Start: v.GetString("WINDOW_BEFORE_SCHOOL_START"),
			End:   v.GetString("WINDOW_BEFORE_SCHOOL_END"),
		},
		AfterSchool: TimeWindow{
			Start: v.GetString("WINDOW_AFTER_SCHOOL_START"),
			End:   v.GetString("WINDOW_AFTER_SCHOOL_END"),
		},
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	cfg.Export = ExportConfig{PDFTitle: v.GetString("EXPORT_PDF_TITLE")}

	return cfg, nil
}

// DefaultTimeWindows returns the built-in before/after school windows.
func DefaultTimeWindows() TimeWindowsConfig {
	return TimeWindowsConfig{
		BeforeSchool: TimeWindow{Start: "06:00", End: "08:00"},
		AfterSchool:  TimeWindow{Start: "15:00", End: "18:00"},
	}
}

func setDefaults(v *viper.Viper) {
	windows := DefaultTimeWindows()

	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8081)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:8000")
	v.SetDefault("BACKEND_TIMEOUT", "10s")

	v.SetDefault("STORAGE_DRIVER", StorageDriverSQLite)
	v.SetDefault("STORAGE_SQLITE_PATH", "./portal-profile.db")
	v.SetDefault("STORAGE_PROFILE_ID", "default")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SESSION_TOKEN_TTL", "1h")
	v.SetDefault("SESSION_SNAPSHOT_TTL", "24h")

	v.SetDefault("WINDOW_BEFORE_SCHOOL_START", windows.BeforeSchool.Start)
	v.SetDefault("WINDOW_BEFORE_SCHOOL_END", windows.BeforeSchool.End)
	v.SetDefault("WINDOW_AFTER_SCHOOL_START", windows.AfterSchool.Start)
	v.SetDefault("WINDOW_AFTER_SCHOOL_END", windows.AfterSchool.End)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_METRICS", true)
	v.SetDefault("EXPORT_PDF_TITLE", "Extracurricular Activities")
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
