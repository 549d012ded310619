package router

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/stockpilot/inventory-api/config"
	"github.com/stockpilot/inventory-api/database"
	"github.com/stockpilot/inventory-api/handlers"
	auth_handlers "github.com/stockpilot/inventory-api/handlers/auth"
	"github.com/stockpilot/inventory-api/services"
	"github.com/stockpilot/inventory-api/store"
	"github.com/stockpilot/inventory-api/utils"
	"github.com/stockpilot/inventory-api/utils/auth"
	"github.com/stockpilot/inventory-api/utils/cache"
	"github.com/stockpilot/inventory-api/utils/middleware"
	"github.com/stockpilot/inventory-api/utils/ratelimit"
)

// Dependencies are the shared collaborators built once at startup
type Dependencies struct {
	DB       *gorm.DB
	Cache    *cache.RedisCache
	Backing  cache.Store
	Events   *services.EventRecorder
	Registry *auth.RevocationRegistry
}

// SetupRoutes wires every collaborator and mounts the route tree
func SetupRoutes(app *fiber.App, gormStore *database.GORMStore) (*Dependencies, error) {
	getEnv, err := config.Get()
	if err != nil {
		return nil, err
	}

	if getEnv.JWT_GLOBAL_SECRET == "" {
		log.Fatal("JWT_GLOBAL_SECRET environment variable is not set")
	}
	issuer := getEnv.JWT_ISSUER
	if issuer == "" {
		issuer = "inventory-api"
	}

	db := gormStore.GetDB()

	// Redis backs revocation, rate limiting and the user cache. When it is
	// unreachable at startup the service falls back to a process-local
	// store: single-node semantics, but logins keep working.
	redisURL := getEnv.REDIS_URL
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	var backing cache.Store
	redisCache, err := cache.NewRedisCache(redisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v. Falling back to in-process cache.", err)
		backing = cache.NewMemoryStore()
	} else {
		backing = redisCache
	}

	userCache := cache.NewUserCache(backing)

	// Core auth components
	codec := auth.NewTokenCodec(auth.TokenCodecConfig{
		GlobalSecret: getEnv.JWT_GLOBAL_SECRET,
		Issuer:       issuer,
	})
	registry := auth.NewRevocationRegistry(backing, getEnv.ACCESS_TOKEN_TTL, getEnv.REFRESH_TOKEN_TTL)

	users := store.NewGormUserStore(db)
	perms := store.NewGormPermissionStore(db)
	secrets := auth.NewSecretStore(users, userCache, registry)

	limiter := ratelimit.NewLimiter(backing)
	logins := ratelimit.NewLoginLimiter(backing)

	audit := utils.NewAuditLogger("security_audit.log")
	events := services.NewEventRecorder(db, audit)

	authService := services.NewAuthService(users, perms, codec, secrets, registry, logins, events, userCache,
		getEnv.ACCESS_TOKEN_TTL, getEnv.REFRESH_TOKEN_TTL)

	authenticator := middleware.NewRequestAuthenticator(codec, registry, secrets, users, userCache)
	authHandler := auth_handlers.NewAuthHandler(authService, users, perms, userCache)
	healthHandler := handlers.NewHealthHandler(db, redisCache)

	// Apply security middleware
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000,http://localhost:3001"
	}

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins: allowedOrigins,
	})

	apiRateLimit := middleware.RateLimit(limiter, middleware.RateLimitConfig{
		Scope:  "api",
		Limit:  getEnv.RATE_LIMIT_REQUESTS,
		Window: getEnv.RATE_LIMIT_WINDOW,
	})

	// Health check endpoint (public, unthrottled)
	app.Get("/health", healthHandler.Check)

	// API v1 group
	api := app.Group("/api/v1", apiRateLimit)

	// Auth routes (public)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)

	// Protected auth routes
	authGroup.Post("/logout", authHandler.Logout)
	authGroup.Get("/me", authenticator.Required(), authHandler.Me)

	// Admin session management
	adminUsers := authGroup.Group("/users/:id", authenticator.Required(), authenticator.RequireRole("admin"))
	adminUsers.Post("/revoke-sessions", authHandler.RevokeUserSessions)
	adminUsers.Post("/rotate-secret", authHandler.RotateUserSecret)

	return &Dependencies{
		DB:       db,
		Cache:    redisCache,
		Backing:  backing,
		Events:   events,
		Registry: registry,
	}, nil
}
