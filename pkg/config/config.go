package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	RevocationBackendMemory = "memory"
	RevocationBackendRedis  = "redis"

	defaultSaltRounds = 10

	envFile = ".env"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Cookie     CookieConfig
	CORS       CORSConfig
	Log        LogConfig
	Revocation RevocationConfig
	RateLimit  RateLimitConfig
	Kafka      KafkaConfig

	saltRounds atomic.Int64
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	AutoMigrate    bool
	MigrationsPath string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	RefreshSecret string
	Issuer        string
}

// CookieConfig controls the refresh token cookie attributes.
type CookieConfig struct {
	Secure bool
	Domain string
	Path   string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RevocationConfig selects the access-token revocation backend.
type RevocationConfig struct {
	Backend       string
	SweepInterval time.Duration
}

// RateLimitConfig mirrors the per-IP windows applied to public endpoints.
type RateLimitConfig struct {
	Enabled       bool
	Window        time.Duration
	GlobalMax     int
	LoginMax      int
	RegisterMax   int
	ChangePassMax int
}

// KafkaConfig enables publishing activity events to a topic.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// Enabled reports whether an audit publisher should be wired.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.AuditTopic != ""
}

func Load() (*Config, error) {
	return load(envFile)
}

func load(path string) (*Config, error) {
	// An operator-supplied SALT_ROUND pins the cost; otherwise the file owns it.
	saltFromEnv := os.Getenv("SALT_ROUND") != ""

	_ = godotenv.Load(path)

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		fileLoaded = false
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := fromViper(v)
	cfg.SetSaltRounds(v.GetInt("SALT_ROUND"))

	if fileLoaded && !saltFromEnv {
		cfg.watchSaltRounds(v, path)
	}

	return cfg, nil
}

// watchSaltRounds re-reads SALT_ROUND from the env file on every change.
// The viper instance is not touched after Load returns except by its own
// watcher goroutine.
func (c *Config) watchSaltRounds(v *viper.Viper, path string) {
	v.OnConfigChange(func(fsnotify.Event) {
		values, err := godotenv.Read(path)
		if err != nil {
			return
		}
		raw, ok := values["SALT_ROUND"]
		if !ok {
			c.SetSaltRounds(defaultSaltRounds)
			return
		}
		cost, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return
		}
		c.SetSaltRounds(cost)
	})
	v.WatchConfig()
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:    v.GetBool("MIGRATIONS_AUTO"),
		MigrationsPath: v.GetString("MIGRATIONS_PATH"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:        v.GetString("JWT_SECRET"),
		RefreshSecret: v.GetString("JWT_REFRESH_SECRET"),
		Issuer:        v.GetString("JWT_ISSUER"),
	}

	cfg.Cookie = CookieConfig{
		Secure: v.GetBool("COOKIE_SECURE"),
		Domain: v.GetString("COOKIE_DOMAIN"),
		Path:   v.GetString("COOKIE_PATH"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Revocation = RevocationConfig{
		Backend:       strings.ToLower(v.GetString("REVOCATION_BACKEND")),
		SweepInterval: parseDuration(v.GetString("REVOCATION_SWEEP_INTERVAL"), 30*time.Second),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
		Window:        parseDuration(v.GetString("RATE_LIMIT_WINDOW"), 15*time.Minute),
		GlobalMax:     v.GetInt("RATE_LIMIT_GLOBAL_MAX"),
		LoginMax:      v.GetInt("RATE_LIMIT_LOGIN_MAX"),
		RegisterMax:   v.GetInt("RATE_LIMIT_REGISTER_MAX"),
		ChangePassMax: v.GetInt("RATE_LIMIT_CHANGE_PASSWORD_MAX"),
	}

	cfg.Kafka = KafkaConfig{
		Brokers:    splitAndTrim(v.GetString("KAFKA_BROKERS")),
		AuditTopic: v.GetString("KAFKA_AUDIT_TOPIC"),
	}

	return cfg
}

// SaltRounds returns the bcrypt cost currently configured. Edits to the env
// file are picked up without a restart.
func (c *Config) SaltRounds() int {
	if c == nil {
		return defaultSaltRounds
	}
	return clampCost(int(c.saltRounds.Load()))
}

// SetSaltRounds overrides the live bcrypt cost.
func (c *Config) SetSaltRounds(cost int) {
	c.saltRounds.Store(int64(cost))
}

func clampCost(cost int) int {
	if cost <= 0 {
		return defaultSaltRounds
	}
	if cost < bcrypt.MinCost {
		return bcrypt.MinCost
	}
	if cost > bcrypt.MaxCost {
		return bcrypt.MaxCost
	}
	return cost
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 3000)
	v.SetDefault("API_PREFIX", "/api")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "wbs")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("MIGRATIONS_AUTO", true)
	v.SetDefault("MIGRATIONS_PATH", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_REFRESH_SECRET", "")
	v.SetDefault("JWT_ISSUER", "wbs-api")
	v.SetDefault("SALT_ROUND", defaultSaltRounds)

	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("COOKIE_PATH", "/")

	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REVOCATION_BACKEND", RevocationBackendMemory)
	v.SetDefault("REVOCATION_SWEEP_INTERVAL", "30s")

	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_GLOBAL_MAX", 100)
	v.SetDefault("RATE_LIMIT_LOGIN_MAX", 100)
	v.SetDefault("RATE_LIMIT_REGISTER_MAX", 100)
	v.SetDefault("RATE_LIMIT_CHANGE_PASSWORD_MAX", 100)

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_AUDIT_TOPIC", "")
}

// SetConfigFile surfaces a plain *fs.PathError instead of ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
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
