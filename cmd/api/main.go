package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"brgykonek/internal/config"
	"brgykonek/internal/db"
	"brgykonek/internal/email"
	apihttp "brgykonek/internal/http"
	"brgykonek/internal/repository"
	"brgykonek/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	err = db.Ping(pingCtx, pool)
	cancelPing()
	if err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	if err := db.Migrate(pool, logger); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)
	otpRepo := repository.NewPgOTPRepository(pool)
	deviceRepo := repository.NewPgDeviceRepository(pool)

	var (
		otpLimiter  service.OTPRateLimiter
		attempts    service.LoginAttemptTracker
		denylist    service.TokenDenylist
		redisClient *redis.Client
	)
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory stores", zap.Error(err))
		} else {
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, cfg.OTPRateWindow, cfg.OTPRateMax)
			attempts = service.NewRedisLoginAttemptTracker(redisClient, cfg.LoginLockoutWindow)
			denylist = service.NewRedisTokenDenylist(redisClient)
		}
		cancel()
		defer func() { _ = redisClient.Close() }()
	}
	if otpLimiter == nil {
		otpLimiter = service.NewOTPRateLimiter(cfg.OTPRateWindow, cfg.OTPRateMax)
	}
	if attempts == nil {
		attempts = service.NewLoginAttemptTracker(cfg.LoginLockoutWindow)
	}
	if denylist == nil {
		denylist = service.NewMemoryTokenDenylist()
	}

	emailSender := newEmailSender(cfg, logger)

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTTTL, cfg.JWTIssuer, denylist)
	userSvc := service.NewUserService(logger, userRepo)
	otpSvc := service.NewOTPService(otpRepo, cfg.OTPTTL)
	deviceSvc := service.NewDeviceService(logger, deviceRepo)
	authSvc := service.NewAuthService(logger, userSvc, otpSvc, deviceSvc, jwtSvc, attempts, otpLimiter, emailSender, service.AuthOptions{
		LockoutThreshold: cfg.LoginLockoutThreshold,
		AllowLegacyLogin: cfg.AllowLegacyLogin,
	})
	if cfg.AllowLegacyLogin {
		logger.Warn("legacy login without device info is enabled")
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		admin, created, err := userSvc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			logger.Fatal("seed admin", zap.Error(err))
		}
		if created {
			logger.Info("admin account created", zap.String("user_id", admin.ID))
		}
	}

	go deviceSvc.RunJanitor(ctx, cfg.DevicePurgeInterval)

	router := apihttp.NewRouter(logger,
		apihttp.NewAuthHandler(logger, authSvc, cfg.UploadDir),
		apihttp.NewUserHandler(logger, userSvc),
		apihttp.NewDeviceHandler(logger, deviceSvc),
		jwtSvc,
	)
	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSAllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowCredentials(),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           cors(router),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return logger
}

// newEmailSender prioriza la cola AMQP, luego SMTP; sin ninguno los OTP fallan con 503.
func newEmailSender(cfg *config.Config, logger *zap.Logger) email.Sender {
	if cfg.AMQPURL != "" {
		sender, err := email.NewQueueSender(cfg.AMQPURL, cfg.AMQPMailQueue)
		if err == nil {
			logger.Info("otp mail via queue", zap.String("queue", cfg.AMQPMailQueue))
			return sender
		}
		logger.Warn("queue sender init failed", zap.Error(err))
	}
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err == nil {
			return sender
		}
		logger.Warn("smtp sender init failed", zap.Error(err))
	}
	logger.Warn("email sender not configured")
	return email.NewDisabledSender("email sender not configured")
}
