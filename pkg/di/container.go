package di

import (
	"context"
	"fmt"
	"time"

	"recipe-box/backend/internal/service"
	"recipe-box/backend/pkg/config"
	"recipe-box/backend/pkg/health"
	"recipe-box/backend/pkg/jwt"
	"recipe-box/backend/pkg/kv"
	"recipe-box/backend/pkg/logger"
	"recipe-box/backend/pkg/middleware"
	"recipe-box/backend/pkg/observability"
	"recipe-box/backend/pkg/resilience"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	DB     *gorm.DB
	Logger *logger.Logger

	JWTService *jwt.Service
	Store      kv.Store
	Breaker    *resilience.CircuitBreaker
	Metrics    *observability.PipelineMetrics

	RateLimiter     *middleware.RateLimiter
	ResponseCache   *middleware.ResponseCache
	Gate            *middleware.SubscriptionGate
	LocalLimiter    *middleware.LocalLimiter
	Chain           *middleware.Chain

	AccountService      *service.AccountService
	RecipeService       *service.RecipeService
	ShoppingListService *service.ShoppingListService

	Health *health.Checker
}

// Config holds the configuration for the container
type Config struct {
	LoggerConfig logger.Config
	JWTSecret    string
	JWTIssuer    string
	JWTExpiry    time.Duration

	// RedisClient overrides the client built from application config,
	// primarily for tests.
	RedisClient *redis.Client

	// Store overrides the key-value store entirely. When set, RedisClient
	// is ignored and no circuit breaker is wired.
	Store kv.Store
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		LoggerConfig: logger.DefaultConfig(),
		JWTIssuer:    "recipe-box",
		JWTExpiry:    24 * time.Hour,
	}
}

// New creates a new dependency injection container
func New(db *gorm.DB, cfg *Config) (*Container, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	appCfg := config.Get()

	log := logger.New(cfg.LoggerConfig)

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTExpiry)

	metrics, err := observability.NewPipelineMetrics()
	if err != nil {
		log.Warn("Pipeline metrics unavailable", "error", err.Error())
		metrics = nil
	}

	var breaker *resilience.CircuitBreaker
	store := cfg.Store
	if store == nil {
		client := cfg.RedisClient
		if client == nil {
			client = redis.NewClient(&redis.Options{
				Addr:     appCfg.Redis.Addr,
				Password: appCfg.Redis.Password,
				DB:       appCfg.Redis.DB,
			})
		}
		breaker = resilience.New(resilience.DefaultConfig("keyvalue"), log)
		store = kv.NewRedisStore(client,
			kv.WithOpTimeout(appCfg.Redis.OpTimeout),
			kv.WithBreaker(breaker),
		)
	}

	limiter := middleware.NewRateLimiter(
		store,
		appCfg.RateLimit.Classes,
		appCfg.RateLimit.BurstFraction,
		appCfg.Cache.KeyPrefix,
		log,
		middleware.WithRateLimitMetrics(metrics),
	)

	var responseCache *middleware.ResponseCache
	if appCfg.Cache.Enabled {
		responseCache = middleware.NewResponseCache(
			store,
			appCfg.Cache.DefaultTTL,
			appCfg.Cache.KeyPrefix,
			log,
			middleware.WithCacheMetrics(metrics),
		)
	}

	accountService := service.NewAccountService(db, jwtService)
	recipeService := service.NewRecipeService(db)
	shoppingListService := service.NewShoppingListService(db)

	gate := middleware.NewSubscriptionGate(accountService, log, middleware.WithGateMetrics(metrics))
	localLimiter := middleware.NewLocalLimiter(log)

	chain := middleware.NewChain(jwtService, limiter, responseCache, gate, localLimiter)

	checker := health.NewChecker(log, 30*time.Second)
	checker.RegisterDatabaseCheck(func() error {
		return config.TestConnection(db)
	})
	if pinger, ok := store.(interface {
		Ping(ctx context.Context) error
	}); ok {
		checker.RegisterKeyValueCheck(pinger.Ping)
	}

	return &Container{
		DB:                  db,
		Logger:              log,
		JWTService:          jwtService,
		Store:               store,
		Breaker:             breaker,
		Metrics:             metrics,
		RateLimiter:         limiter,
		ResponseCache:       responseCache,
		Gate:                gate,
		LocalLimiter:        localLimiter,
		Chain:               chain,
		AccountService:      accountService,
		RecipeService:       recipeService,
		ShoppingListService: shoppingListService,
		Health:              checker,
	}, nil
}
