package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// RouteClassConfig holds the rate-limit policy for one route class.
type RouteClassConfig struct {
	Window      time.Duration
	MaxRequests int
}

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// Redis configuration (key-value backend for counters and cache)
	Redis struct {
		Addr      string
		Password  string
		DB        int
		OpTimeout time.Duration
	}

	// JWT configuration
	JWT struct {
		Secret      string
		Expiry      time.Duration
		Issuer      string
	}

	// RateLimit holds per-route-class token bucket policies.
	RateLimit struct {
		Classes map[string]RouteClassConfig
		// BurstFraction is the extra headroom above MaxRequests, as a
		// fraction (0.10 = 10%).
		BurstFraction float64
	}

	// Cache settings for the response cache
	Cache struct {
		Enabled    bool
		DefaultTTL time.Duration
		KeyPrefix  string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}
}

var (
	instance *Config
	once     sync.Once
)

// Route class names understood by the pipeline.
const (
	ClassAuth     = "auth"
	ClassAPI      = "api"
	ClassPublic   = "public"
	ClassScraping = "scraping"
)

// New creates a new Config instance with values from environment variables.
// Uses singleton pattern to ensure only one instance exists.
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Database config
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "recipe-box")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
		instance.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

		// Redis config
		instance.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
		instance.Redis.Password = getEnvString("REDIS_PASSWORD", "")
		instance.Redis.DB = getEnvInt("REDIS_DB", 0)
		instance.Redis.OpTimeout = getEnvDuration("REDIS_OP_TIMEOUT", 250*time.Millisecond)

		// JWT config
		instance.JWT.Secret = getEnvString("JWT_SECRET", "default-jwt-secret-do-not-use-in-production")
		instance.JWT.Expiry = getEnvDuration("JWT_EXPIRY", 24*time.Hour)
		instance.JWT.Issuer = getEnvString("JWT_ISSUER", "recipe-box")

		// Rate limit config: per route class, overridable via
		// {CLASS}_WINDOW_MS / {CLASS}_MAX_REQUESTS.
		instance.RateLimit.BurstFraction = getEnvFloat("RATE_LIMIT_BURST_FRACTION", 0.10)
		instance.RateLimit.Classes = map[string]RouteClassConfig{
			ClassAuth:     routeClassFromEnv("AUTH", 15*time.Minute, 5),
			ClassAPI:      routeClassFromEnv("API", time.Minute, 60),
			ClassPublic:   routeClassFromEnv("PUBLIC", 5*time.Minute, 300),
			ClassScraping: routeClassFromEnv("SCRAPING", time.Hour, 1000),
		}

		// Cache settings
		instance.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
		instance.Cache.DefaultTTL = time.Duration(getEnvInt("CACHE_DEFAULT_TTL_SECONDS", 300)) * time.Second
		instance.Cache.KeyPrefix = getEnvString("CACHE_KEY_PREFIX", "rb:")

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

func routeClassFromEnv(prefix string, defaultWindow time.Duration, defaultMax int) RouteClassConfig {
	windowMs := getEnvInt(prefix+"_WINDOW_MS", int(defaultWindow.Milliseconds()))
	return RouteClassConfig{
		Window:      time.Duration(windowMs) * time.Millisecond,
		MaxRequests: getEnvInt(prefix+"_MAX_REQUESTS", defaultMax),
	}
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if parsed, err := strconv.ParseBool(strings.ToLower(value)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
