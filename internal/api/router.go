package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/KGR33N-dev/Portfolio-Backend/internal/app"
	iauth "github.com/KGR33N-dev/Portfolio-Backend/internal/auth"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/auth/providers"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/cache"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/handlers"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/middleware"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/permissions"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/security"
	"github.com/KGR33N-dev/Portfolio-Backend/internal/services"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/mail"
)

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, cfg *app.Config, tokens *iauth.TokenService, mailer mail.Mailer) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token service must be provided")
	}

	users, err := services.NewUserService(db)
	if err != nil {
		return nil, err
	}

	verifier, err := services.NewVerificationService(db, mailer,
		services.WithCodeExpiry(cfg.Auth.Verification.CodeTTL))
	if err != nil {
		return nil, err
	}

	provider, err := providers.NewLocalProvider(db, providers.LocalConfig{
		LockoutThreshold: cfg.Auth.Local.LockoutThreshold,
		LockoutDuration:  cfg.Auth.Local.LockoutDuration,
	})
	if err != nil {
		return nil, err
	}

	resets, err := services.NewPasswordResetService(db, mailer, provider)
	if err != nil {
		return nil, err
	}

	keys, err := services.NewAPIKeyService(db)
	if err != nil {
		return nil, err
	}

	posts, err := services.NewBlogService(db)
	if err != nil {
		return nil, err
	}

	checker, err := permissions.NewChecker(db)
	if err != nil {
		return nil, err
	}

	rates, err := buildRateStore(db, cfg)
	if err != nil {
		return nil, err
	}

	authHandler := handlers.NewAuthHandler(users, tokens, verifier, resets, provider, checker)
	keyHandler := handlers.NewAPIKeyHandler(keys)
	blogHandler := handlers.NewBlogHandler(posts)
	securityHandler := handlers.NewSecurityHandler(security.NewAuditService(db, tokens, cfg))

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.NoRoute(middleware.NotFoundHandler)

	if cfg.Monitoring.Health.Enabled {
		r.GET("/health", handlers.Health(db))
	}
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := cfg.Monitoring.Prometheus.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	limit := func(name string, rule app.RateLimitRule) gin.HandlerFunc {
		return middleware.RateLimit(rates, middleware.RateRule{
			Name:   name,
			Limit:  rule.Limit,
			Window: rule.Window,
		})
	}

	requireAuth := middleware.Auth(tokens, checker, keys)
	optionalAuth := middleware.OptionalAuth(tokens, checker, keys)

	// Coarse umbrella budget for all API traffic; the per-class limits below
	// are stricter for sensitive routes.
	api := r.Group("/api", limit("general", cfg.RateLimits.General))

	auth := api.Group("/auth")
	{
		auth.POST("/register", limit("register", cfg.RateLimits.Register), authHandler.Register)
		auth.POST("/verify-email", limit("verify", cfg.RateLimits.Verify), authHandler.VerifyEmail)
		auth.POST("/resend-verification", limit("resend", cfg.RateLimits.Resend), authHandler.ResendVerification)
		auth.POST("/login", limit("login", cfg.RateLimits.Login), authHandler.Login)
		auth.POST("/refresh", limit("login", cfg.RateLimits.Login), authHandler.Refresh)
		auth.POST("/password-reset/request", limit("password_reset", cfg.RateLimits.PasswordReset), authHandler.PasswordResetRequest)
		auth.POST("/password-reset/confirm", limit("password_reset", cfg.RateLimits.PasswordReset), authHandler.PasswordResetConfirm)

		auth.GET("/me", requireAuth, authHandler.Me)
		auth.POST("/logout", requireAuth, authHandler.Logout)
	}

	apiKeys := api.Group("/auth/api-keys", requireAuth, middleware.RequirePermission(checker, "apikey.manage"))
	{
		apiKeys.POST("", limit("write", cfg.RateLimits.Write), keyHandler.Create)
		apiKeys.GET("", limit("read", cfg.RateLimits.Read), keyHandler.List)
		apiKeys.PATCH("/:id/toggle", limit("write", cfg.RateLimits.Write), keyHandler.Toggle)
		apiKeys.DELETE("/:id", limit("write", cfg.RateLimits.Write), keyHandler.Delete)
	}

	admin := api.Group("/admin", requireAuth, middleware.RequirePermission(checker, "system.admin"))
	{
		admin.GET("/security-audit", limit("read", cfg.RateLimits.Read), securityHandler.Audit)
	}

	blog := api.Group("/blog")
	{
		read := limit("read", cfg.RateLimits.Read)
		write := limit("write", cfg.RateLimits.Write)

		// Published posts are public; only writes require a login. Reads
		// still resolve credentials when present so editors can see drafts.
		blog.GET("", read, optionalAuth, blogHandler.List)
		blog.GET("/:slug", read, optionalAuth, blogHandler.Get)
		blog.POST("", write, requireAuth, middleware.RequirePermission(checker, "post.create"), blogHandler.Create)
		blog.PUT("/:slug", write, requireAuth, middleware.RequirePermission(checker, "post.edit"), blogHandler.Update)
		blog.DELETE("/:slug", write, requireAuth, middleware.RequirePermission(checker, "post.delete"), blogHandler.Delete)
	}

	return r, nil
}

// buildRateStore picks the backend for rate limiter counters: Redis when
// configured, the cache_entries table when requested, otherwise process
// memory.
func buildRateStore(db *gorm.DB, cfg *app.Config) (middleware.RateStore, error) {
	switch {
	case cfg.Cache.Redis.Enabled:
		client, err := cache.NewRedisClient(cache.RedisConfig{
			Address:  cfg.Cache.Redis.Address,
			Username: cfg.Cache.Redis.Username,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			TLS:      cfg.Cache.Redis.TLS,
			Timeout:  cfg.Cache.Redis.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("router: redis rate store: %w", err)
		}
		return middleware.NewStoreRateStore(client), nil
	case cfg.Cache.Database:
		return middleware.NewStoreRateStore(cache.NewDatabaseStore(db)), nil
	default:
		return middleware.NewMemoryRateStore(), nil
	}
}
