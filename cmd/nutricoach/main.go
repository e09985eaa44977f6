package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/config"
	httpserver "github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/http"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/internal/notification"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/auth"
	"github.com/JCLthatlittlerat/ai-nutritionist-capstone/pkg/repository"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := repository.NewDB(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to database")

	store := repository.NewAccountsRepository(db)
	clock := auth.SystemClock()

	audit := auth.NewAuditDispatcher(auth.NewSlogSink(logger), cfg.Audit.Buffer, clock)
	defer audit.Close()

	policy := &auth.PasswordPolicy{
		MinLength:        cfg.Password.MinLength,
		RequireUppercase: cfg.Password.RequireUppercase,
		RequireLowercase: cfg.Password.RequireLowercase,
		RequireNumber:    cfg.Password.RequireNumber,
		RequireSpecial:   cfg.Password.RequireSpecial,
	}

	lockout := auth.NewLockoutTracker(auth.LockoutConfig{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	}, store, clock)

	tokenService := auth.NewTokenService(auth.TokenConfig{
		Secret:          []byte(cfg.JWT.Secret),
		Issuer:          cfg.JWT.Issuer,
		AccessTokenTTL:  cfg.Tokens.AccessTokenTTL,
		RefreshTokenTTL: cfg.Tokens.RefreshTokenTTL,
	}, store, clock)

	verificationService := auth.NewVerificationService(auth.VerificationConfig{
		EmailVerificationTTL: cfg.Tokens.EmailVerificationTTL,
		PasswordResetTTL:     cfg.Tokens.PasswordResetTTL,
	}, store, policy, tokenService, audit, clock)

	var mailer auth.Mailer
	if cfg.HasSMTP() {
		mailer = notification.NewEmailService(notification.EmailConfig{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			User:       cfg.SMTP.User,
			Password:   cfg.SMTP.Password,
			From:       cfg.SMTP.From,
			FromName:   cfg.SMTP.FromName,
			AppBaseURL: cfg.AppBaseURL,
		})
		logger.Info("email service enabled")
	} else {
		mailer = &notification.LogMailer{Logger: logger}
		logger.Warn("SMTP not configured, emails will be logged only")
	}

	var signupLimit *auth.SignupLimiter
	if cfg.HasRedis() {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Redis.Addr,
			DB:   cfg.Redis.DB,
		})
		defer redisClient.Close()
		signupLimit = auth.NewSignupLimiter(redisClient, auth.DefaultSignupLimiterConfig())
		logger.Info("signup throttle enabled")
	}

	var tfaService *auth.TFAService
	if cfg.HasTFA() {
		encryptionKey, err := cfg.TFA.EncryptionKey()
		if err != nil {
			logger.Error("invalid two-factor configuration", "error", err)
			os.Exit(1)
		}
		tfaService = auth.NewTFAService(auth.TFAConfig{
			Issuer:        cfg.JWT.Issuer,
			EncryptionKey: encryptionKey,
		}, store, audit, clock)
		logger.Info("two-factor service enabled")
	}

	authService := auth.NewAuthService(auth.AuthServiceDeps{
		Store:        store,
		Policy:       policy,
		Lockout:      lockout,
		Tokens:       tokenService,
		TFA:          tfaService,
		Verification: verificationService,
		Mailer:       mailer,
		SignupLimit:  signupLimit,
		Audit:        audit,
		Logger:       logger,
		Clock:        clock,
	})

	var federatedService *auth.FederatedService
	var googleVerifier *auth.GoogleVerifier
	if cfg.HasGoogle() {
		googleVerifier = auth.NewGoogleVerifier(auth.GoogleConfig{
			ClientID:        cfg.Google.ClientID,
			MobileClientIDs: cfg.Google.MobileClientIDs,
		}, clock)
		federatedService = auth.NewFederatedService(store, tokenService, audit, logger, clock)
		logger.Info("Google sign-in enabled")
	}

	// Hourly sweep of expired single-use tokens.
	go authService.Reaper(ctx, time.Hour)

	router := httpserver.NewRouter(httpserver.RouterConfig{
		Logger:              logger,
		AuthService:         authService,
		TokenService:        tokenService,
		TFAService:          tfaService,
		VerificationService: verificationService,
		FederatedService:    federatedService,
		GoogleVerifier:      googleVerifier,
		SecurityHeaders:     cfg.Security,
	})

	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
