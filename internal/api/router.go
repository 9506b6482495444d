// Package api assembles the HTTP gateway in front of the identity service.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/regrada-ai/regrada-identity/docs" // Swagger docs
	"github.com/regrada-ai/regrada-identity/internal/api/handlers"
	"github.com/regrada-ai/regrada-identity/internal/api/middleware"
	"github.com/regrada-ai/regrada-identity/internal/auth"
)

// Options carries everything the router needs. Redis and Keys are optional:
// without Redis there is no rate limiting, without Keys access tokens are
// only checked by Cognito itself.
type Options struct {
	Identity *auth.Service
	Provider string
	Logger   zerolog.Logger
	Registry *prometheus.Registry

	GinMode          string
	CORSAllowOrigins []string
	SecureCookies    bool
	AdminAPIToken    string

	Redis        RedisClient
	RateLimitRPM int

	Keys     middleware.KeySetSource
	ClientID string
}

// RedisClient is the part of *redis.Client the gateway uses.
type RedisClient interface {
	middleware.Counter
	handlers.Pinger
}

func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(middleware.NewCORSMiddleware(opts.CORSAllowOrigins, opts.GinMode, opts.Logger))

	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	r.Use(middleware.NewMetrics(registry).Handler())

	var (
		pinger  handlers.Pinger
		counter middleware.Counter
	)
	if opts.Redis != nil {
		pinger = opts.Redis
		counter = opts.Redis
	}

	healthHandler := handlers.NewHealthHandler(pinger, opts.Provider)
	authHandler := handlers.NewAuthHandler(opts.Identity, opts.SecureCookies, opts.Logger)
	userHandler := handlers.NewUserHandler(opts.Identity, opts.Logger)

	rateLimit := middleware.NewRateLimitMiddleware(counter, opts.RateLimitRPM, opts.Logger)
	tokens := middleware.NewTokenMiddleware(opts.Keys, opts.ClientID, opts.Logger)

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		authGroup.Use(rateLimit.Limit())
		{
			authGroup.POST("/signup", authHandler.SignUp)
			authGroup.POST("/confirm", authHandler.ConfirmSignUp)
			authGroup.POST("/signin", authHandler.SignIn)
			authGroup.POST("/signout", authHandler.SignOut)
			authGroup.POST("/password/forgot", authHandler.ForgotPassword)
			authGroup.POST("/password/confirm", authHandler.ConfirmForgotPassword)

			me := authGroup.Group("/me")
			me.Use(tokens.Authenticate())
			{
				me.GET("", userHandler.GetCurrentUser)
				me.PUT("/attributes", userHandler.UpdateAttributes)
				me.POST("/password", userHandler.ChangePassword)
			}
		}

		// Admin routes exist only when a token is configured
		if opts.AdminAPIToken != "" {
			admin := v1.Group("/admin")
			admin.Use(middleware.NewAdminMiddleware(opts.AdminAPIToken).Authenticate())
			{
				admin.GET("/users/:username", userHandler.GetUser)
			}
		}
	}

	return r
}
