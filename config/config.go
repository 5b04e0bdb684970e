package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultCookieSecret  = "cookie"
	DefaultSessionSecret = "express"
)

type Config struct {
	ServerPort     string
	TimetablesPath string
	CookieSecret   string
	SessionSecret  string
	SessionMaxAge  time.Duration
	Environment    string

	LogLevel string
	LogFile  string // Файл журнала поиска, пустое значение отключает запись

	RateLimitMax    int
	RateLimitWindow time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	StorageBackend string // "fs" или "minio"
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	CORSAllowedOrigins []string
	TrustedProxies     []string // Пустой список: клиент определяется по адресу сокета
}

func Load() *Config {
	sessionSeconds := getEnvInt("SESSION_MAX_AGE_SECONDS", 60, 1)
	rateMax := getEnvInt("RATE_LIMIT_MAX", 50, 1)
	rateMinutes := getEnvInt("RATE_LIMIT_WINDOW_MINUTES", 60, 1)
	redisDB := getEnvInt("REDIS_DB", 0, 0)
	useSSL, _ := strconv.ParseBool(getEnv("MINIO_USE_SSL", "false"))

	return &Config{
		ServerPort:         getEnv("PORT", "3000"),
		TimetablesPath:     getEnv("TIMETABLES_PATH", "./timetables"),
		CookieSecret:       getEnv("COOKIE_SECRET", DefaultCookieSecret),
		SessionSecret:      getEnv("SESSION_SECRET", DefaultSessionSecret),
		SessionMaxAge:      time.Duration(sessionSeconds) * time.Second,
		Environment:        getEnv("ENVIRONMENT", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            lookupEnv("LOG_FILE", "timetables.log"),
		RateLimitMax:       rateMax,
		RateLimitWindow:    time.Duration(rateMinutes) * time.Minute,
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            redisDB,
		StorageBackend:     getEnv("STORAGE_BACKEND", "fs"),
		MinIOEndpoint:      getEnv("MINIO_ENDPOINT", "minio:9000"),
		MinIOAccessKey:     getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinIOSecretKey:     getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinIOBucket:        getEnv("MINIO_BUCKET", "timetables"),
		MinIOUseSSL:        useSSL,
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		TrustedProxies:     splitList(getEnv("TRUSTED_PROXIES", "")),
	}
}

// IsProduction - запущен ли сервис с продакшн настройками
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// InsecureSecrets возвращает имена секретов, оставленных по умолчанию
func (c *Config) InsecureSecrets() []string {
	var names []string
	if c.CookieSecret == DefaultCookieSecret {
		names = append(names, "COOKIE_SECRET")
	}
	if c.SessionSecret == DefaultSessionSecret {
		names = append(names, "SESSION_SECRET")
	}
	return names
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt возвращает defaultValue, если значение не число или меньше min
func getEnvInt(key string, defaultValue, min int) int {
	value, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || value < min {
		return defaultValue
	}
	return value
}

// lookupEnv как getEnv, но явно пустое значение сохраняется
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
