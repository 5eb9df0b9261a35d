package router

import (
	"recipe-box/backend/internal/api"
	"recipe-box/backend/pkg/config"
	"recipe-box/backend/pkg/di"
	"recipe-box/backend/pkg/errors"
	"recipe-box/backend/pkg/jwt"
	"recipe-box/backend/pkg/logger"
	"recipe-box/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	logger.SetGlobal(container.Logger)

	cfg := config.Get()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes. Each route group runs
// behind the interception pipeline for its route class: rate limiter,
// then response cache, then subscription gate.
func (r *Router) SetupRoutes() {
	r.Engine.Use(corsMiddleware())

	chain := r.Container.Chain

	authHandler := api.NewAuthHandler(r.Container.AccountService, r.Logger)
	recipeHandler := api.NewRecipeHandler(r.Container.RecipeService, r.Container.ResponseCache, r.Logger)
	listHandler := api.NewShoppingListHandler(r.Container.ShoppingListService, r.Container.ResponseCache, r.Logger)
	adminHandler := api.NewAdminHandler(r.Container.RateLimiter, r.Container.ResponseCache, r.Container.Breaker, r.Logger)

	r.setupHealthRoutes()

	v1 := r.Engine.Group("/api/v1")

	// Login and signup share the strict auth class so credential stuffing
	// burns through the budget fast.
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", append(chain.For(config.ClassAuth), authHandler.Signup)...)
		authRoutes.POST("/login", append(chain.For(config.ClassAuth), authHandler.Login)...)
		authRoutes.GET("/me", append(chain.For(config.ClassAPI, middleware.Authenticated()), authHandler.Me)...)
	}

	accountRoutes := v1.Group("/account")
	{
		accountRoutes.POST("/trial", append(chain.For(config.ClassAPI, middleware.Authenticated()), authHandler.StartTrial)...)
		accountRoutes.GET("/status", append(chain.For(config.ClassAPI, middleware.Authenticated(), middleware.WithTierAnnotation()), authHandler.Me)...)
	}

	recipeRoutes := v1.Group("/recipes")
	{
		recipeRoutes.GET("", append(chain.For(config.ClassAPI, middleware.Cached(api.RecipeCacheNamespace)), recipeHandler.ListRecipes)...)
		recipeRoutes.GET("/:id", append(chain.For(config.ClassAPI, middleware.Cached(api.RecipeCacheNamespace)), recipeHandler.GetRecipe)...)
		recipeRoutes.GET("/:id/nutrition", append(chain.For(config.ClassAPI, middleware.Premium()), recipeHandler.Nutrition)...)
		recipeRoutes.POST("", append(chain.For(config.ClassAPI, middleware.Authenticated()), recipeHandler.CreateRecipe)...)
		recipeRoutes.PUT("/:id", append(chain.For(config.ClassAPI, middleware.Authenticated()), recipeHandler.UpdateRecipe)...)
		recipeRoutes.DELETE("/:id", append(chain.For(config.ClassAPI, middleware.Authenticated()), recipeHandler.DeleteRecipe)...)
	}

	listRoutes := v1.Group("/shopping-lists")
	{
		listRoutes.GET("", append(chain.For(config.ClassAPI, middleware.Authenticated(), middleware.Cached(api.ShoppingListCacheNamespace)), listHandler.ListShoppingLists)...)
		listRoutes.GET("/:id", append(chain.For(config.ClassAPI, middleware.Authenticated(), middleware.Cached(api.ShoppingListCacheNamespace)), listHandler.GetShoppingList)...)
		listRoutes.POST("", append(chain.For(config.ClassAPI, middleware.Authenticated()), listHandler.CreateShoppingList)...)
		listRoutes.PUT("/:id", append(chain.For(config.ClassAPI, middleware.Authenticated()), listHandler.UpdateShoppingList)...)
		listRoutes.DELETE("/:id", append(chain.For(config.ClassAPI, middleware.Authenticated()), listHandler.DeleteShoppingList)...)
	}

	// Anonymous browse endpoints get the generous public budget plus the
	// in-process shed for traffic spikes.
	publicRoutes := v1.Group("/public")
	{
		publicRoutes.GET("/recipes", append(chain.For(config.ClassPublic, middleware.LocalShed(), middleware.Cached(api.RecipeCacheNamespace)), recipeHandler.ListRecipes)...)
		publicRoutes.GET("/recipes/:id", append(chain.For(config.ClassPublic, middleware.LocalShed(), middleware.Cached(api.RecipeCacheNamespace)), recipeHandler.GetRecipe)...)
	}

	// Bulk export for feed readers and crawlers.
	exportRoutes := v1.Group("/export")
	{
		exportRoutes.GET("/recipes", append(chain.For(config.ClassScraping, middleware.LocalShed(), middleware.Cached(api.RecipeCacheNamespace)), recipeHandler.ListRecipes)...)
	}

	adminRoutes := v1.Group("/admin")
	{
		adminGuard := chain.For(config.ClassAPI, middleware.Roles(jwt.RoleAdmin))
		adminRoutes.PUT("/accounts/:id/role", append(adminGuard, authHandler.UpdateAccountRole)...)
		adminRoutes.PUT("/accounts/:id/subscription", append(adminGuard, authHandler.UpdateAccountSubscription)...)
		adminRoutes.GET("/ratelimits", append(adminGuard, adminHandler.RateLimitPolicies)...)
		adminRoutes.POST("/ratelimits/reset", append(adminGuard, adminHandler.ResetRateLimit)...)
		adminRoutes.POST("/cache/invalidate", append(adminGuard, adminHandler.InvalidateCache)...)
		adminRoutes.GET("/pipeline", append(adminGuard, adminHandler.PipelineStatus)...)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, Origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Cache, X-Cache-Age, X-RateLimit-Remaining, Retry-After")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
