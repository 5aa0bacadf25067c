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

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Integrity IntegrityConfig
	Audits    AuditsConfig
}

type DatabaseConfig struct {
	Driver       string
	SQLitePath   string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled   bool
	Host      string
	Port      int
	Password  string
	DB        int
	Namespace string
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// IntegrityConfig tunes the validation rules and report caching.
type IntegrityConfig struct {
	LicenseWarningDays   int
	InspectionMaxAgeDays int
	MinGrade             int
	MaxGrade             int
	Timezone             string
	CacheEnabled         bool
	CacheTTL             time.Duration
}

// Location resolves Timezone, falling back to UTC.
func (c IntegrityConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AuditsConfig configures asynchronous audit runs and their exports.
type AuditsConfig struct {
	Enabled           bool
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
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

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		SQLitePath:   v.GetString("DB_SQLITE_PATH"),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:   v.GetBool("REDIS_ENABLED"),
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		Namespace: v.GetString("REDIS_NAMESPACE"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Integrity = IntegrityConfig{
		LicenseWarningDays:   positiveOr(v.GetInt("INTEGRITY_LICENSE_WARNING_DAYS"), 30),
		InspectionMaxAgeDays: positiveOr(v.GetInt("INTEGRITY_INSPECTION_MAX_AGE_DAYS"), 365),
		MinGrade:             v.GetInt("INTEGRITY_MIN_GRADE"),
		MaxGrade:             v.GetInt("INTEGRITY_MAX_GRADE"),
		Timezone:             v.GetString("INTEGRITY_TIMEZONE"),
		CacheEnabled:         v.GetBool("ENABLE_INTEGRITY_CACHE"),
		CacheTTL:             parseDuration(v.GetString("INTEGRITY_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Audits = AuditsConfig{
		Enabled:           v.GetBool("ENABLE_AUDITS"),
		StorageDir:        v.GetString("AUDITS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("AUDITS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("AUDITS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("AUDITS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("AUDITS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("AUDITS_WORKER_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_SQLITE_PATH", "./busbuddy.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "busbuddy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_NAMESPACE", "busbuddy")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "busbuddy-api")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("INTEGRITY_LICENSE_WARNING_DAYS", 30)
	v.SetDefault("INTEGRITY_INSPECTION_MAX_AGE_DAYS", 365)
	v.SetDefault("INTEGRITY_MIN_GRADE", 1)
	v.SetDefault("INTEGRITY_MAX_GRADE", 12)
	v.SetDefault("INTEGRITY_TIMEZONE", "UTC")
	v.SetDefault("ENABLE_INTEGRITY_CACHE", true)
	v.SetDefault("INTEGRITY_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_AUDITS", false)
	v.SetDefault("AUDITS_STORAGE_DIR", "./exports")
	v.SetDefault("AUDITS_SIGNED_URL_SECRET", "dev_audits_secret")
	v.SetDefault("AUDITS_SIGNED_URL_TTL", "24h")
	v.SetDefault("AUDITS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("AUDITS_WORKER_CONCURRENCY", 1)
	v.SetDefault("AUDITS_WORKER_RETRIES", 3)
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
