package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/regrada-ai/regrada-identity/internal/api"
	"github.com/regrada-ai/regrada-identity/internal/api/middleware"
	"github.com/regrada-ai/regrada-identity/internal/auth"
	"github.com/regrada-ai/regrada-identity/internal/config"
	"github.com/regrada-ai/regrada-identity/internal/logger"
)

// @title Regrada Identity API
// @version 1.0
// @description HTTP gateway in front of an Amazon Cognito user pool

// @contact.name API Support
// @contact.email support@regrada.ai

// @license.name MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name access_token

// @securityDefinitions.apikey AdminToken
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		bootstrap := zerolog.New(os.Stderr)
		bootstrap.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.Configure(cfg.Logging, os.Stdout)
	ctx := context.Background()

	provider, providerName, err := newProvider(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create Cognito provider")
	}

	identity := auth.NewService(provider, auth.ServiceConfig{
		ClientID:     cfg.Cognito.ClientID,
		UserPoolID:   cfg.Cognito.UserPoolID,
		ClientSecret: cfg.Cognito.ClientSecret,
	}, log)

	opts := api.Options{
		Identity:         identity,
		Provider:         providerName,
		Logger:           log,
		Registry:         prometheus.NewRegistry(),
		GinMode:          cfg.Server.GinMode,
		CORSAllowOrigins: cfg.Server.CORSAllowOrigins,
		SecureCookies:    cfg.Server.SecureCookies,
		AdminAPIToken:    cfg.Server.AdminAPIToken,
		RateLimitRPM:     cfg.Redis.RateLimitRPM,
		ClientID:         cfg.Cognito.ClientID,
	}
	opts.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Connect to Redis
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to parse Redis URL")
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unreachable, rate limiting will fail open")
		} else {
			log.Info().Msg("connected to Redis")
		}
		opts.Redis = redisClient
	}

	if cfg.Cognito.VerifyTokens {
		keys, err := middleware.NewCachedKeySet(ctx, cfg.Cognito.JWKSURLFor(cfg.AWS.Region), log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to set up token verification")
		}
		opts.Keys = keys
	}

	if cfg.Server.AdminAPIToken == "" {
		log.Info().Msg("ADMIN_API_TOKEN not set, admin routes disabled")
	}

	gin.SetMode(cfg.Server.GinMode)
	r := api.NewRouter(opts)

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("mode", cfg.Server.GinMode).Str("provider", providerName).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	if redisClient != nil {
		redisClient.Close()
	}
	log.Info().Msg("server stopped")
}

// newProvider picks the identity backend
func newProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (auth.Provider, string, error) {
	if cfg.Cognito.Mock {
		log.Warn().Str("file", cfg.Cognito.MockDataFile).Msg("using mock Cognito provider")
		return auth.NewMockProvider(log, cfg.Cognito.MockDataFile), "mock", nil
	}

	cognito, err := auth.NewCognitoProvider(ctx, auth.ProviderOptions{
		Region:          cfg.AWS.Region,
		Endpoint:        cfg.AWS.Endpoint,
		AccessKeyID:     cfg.AWS.AccessKeyID,
		SecretAccessKey: cfg.AWS.SecretAccessKey,
		SessionToken:    cfg.AWS.SessionToken,
	}, log)
	if err != nil {
		return nil, "", err
	}
	return cognito, "cognito", nil
}
