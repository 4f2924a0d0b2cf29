package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blogapp/internal/config"
	"blogapp/internal/database"
	"blogapp/internal/handlers"
	"blogapp/internal/logging"
	"blogapp/internal/repository"
	"blogapp/internal/security"
	"blogapp/internal/service"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.GeneratedSecret {
		logger.Warn("JWT_SECRET is not set, using a random secret; sessions will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	logger.Info("database connection established", zap.String("type", cfg.DatabaseType))

	if err := db.RunMigrations(ctx, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)

	tokens, err := security.NewTokenService(security.TokenConfig{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.JWTExpiresIn,
		Issuer: "blogapp",
	})
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	mailer, err := service.NewEmailService(ctx, service.EmailConfig{
		Region:    cfg.AWSRegion,
		FromEmail: cfg.SESFromEmail,
		FromName:  cfg.SESFromName,
		Debug:     cfg.EmailDebug,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create email service: %w", err)
	}
	if !mailer.IsEnabled() {
		logger.Warn("SES_FROM_EMAIL is not set, password reset emails are disabled")
	}

	// Initialize services
	hasher := security.NewBcryptHasher(cfg.BcryptCost)
	policy := security.DefaultPolicy()
	store := service.NewCredentialStore(userRepo, hasher, cfg.ResetTokenTTL)
	authService := service.NewAuthService(store, hasher, tokens, policy, logger)
	resetFlow := service.NewPasswordResetFlow(db, store, authService, mailer, logger)
	userService := service.NewUserService(db, store, userRepo, postRepo, policy, logger)
	postService := service.NewPostService(postRepo, policy)

	// Rate limiting is shared through Redis when configured
	var redisClient *redis.Client
	var limiter security.Limiter
	if cfg.RedisURL != "" {
		redisClient, err = security.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		limiter = security.NewRedisRateLimiter(redisClient, cfg.RateLimit, cfg.RateLimitWindow, logger)
		logger.Info("rate limiting backed by redis")
	} else {
		memLimiter := security.NewRateLimiter(cfg.RateLimit, cfg.RateLimitWindow)
		defer memLimiter.Stop()
		limiter = memLimiter
	}

	// Initialize handlers
	responder := handlers.NewResponder(cfg.IsProduction(), logger)
	cookies := handlers.CookieSettings{
		Expiry: cfg.CookieExpiry(),
		Secure: cfg.IsProduction(),
	}

	router := handlers.NewRouter(handlers.Routes{
		Middleware:   handlers.NewMiddleware(authService, limiter, responder),
		Auth:         handlers.NewAuthHandler(authService, resetFlow, cookies, cfg.AppBaseURL, responder),
		Users:        handlers.NewUserHandler(userService, cookies, responder),
		Posts:        handlers.NewPostHandler(postService, responder),
		Health:       handlers.NewHealthHandler(db, redisClient, responder),
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start background reset token cleanup
	go purgeExpiredResets(ctx, store, logger)

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// purgeExpiredResets periodically clears reset tokens nobody redeemed
func purgeExpiredResets(ctx context.Context, store *service.CredentialStore, logger *zap.Logger) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.PurgeExpiredResets(ctx)
			if err != nil {
				logger.Error("failed to purge expired reset tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired reset tokens purged", zap.Int64("count", n))
			}
		}
	}
}
