package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"auth-api/internal/config"
	"auth-api/internal/credential"
	"auth-api/internal/db"
	"auth-api/internal/email"
	apihttp "auth-api/internal/http"
	"auth-api/internal/repository"
	"auth-api/internal/service"
	"auth-api/internal/token"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := db.RunMigrations(ctx, cfg.DatabaseURL); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	tokenServ, err := token.NewService(
		cfg.JWTSecret,
		24*time.Hour,
		time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute,
	)
	if err != nil {
		logger.Fatal("token service init", zap.Error(err))
	}

	emailSender := email.NewDisabledSender("email sender not configured")
	switch {
	case cfg.ConsoleLogEmails:
		emailSender = email.NewConsoleLogSender(logger)
	case cfg.SMTPHost != "":
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var resendLimiter service.ResendRateLimiter = service.NewResendRateLimiter(10*time.Minute, 3)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			resendLimiter = service.NewRedisResendRateLimiter(redisClient, 10*time.Minute, 3)
		}
		cancel()
	}

	userRepo := repository.NewPgUserRepository(pool)
	hasher := credential.NewHasher(cfg.BcryptCost)
	authServ := service.NewAuthService(logger, userRepo, tokenServ, hasher, emailSender, cfg.BaseURL, resendLimiter)
	authHandler := apihttp.NewAuthHandler(logger, authServ, tokenServ)
	router := apihttp.NewRouter(logger, authHandler, tokenServ)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
