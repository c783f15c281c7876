package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/example/bakehouse/internal/config"
	"github.com/example/bakehouse/internal/database"
	"github.com/example/bakehouse/internal/logger"
	"github.com/example/bakehouse/internal/metrics"
	"github.com/example/bakehouse/internal/middleware"
	"github.com/example/bakehouse/internal/routes"
	"github.com/example/bakehouse/internal/services"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()

	log, err := logger.New(logger.LogConfig{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: "bakehouse",
	})
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.DBDriver, cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}

	otpLimiter, closeLimiter := newOTPLimiter(cfg.Redis, log)
	defer closeLimiter()

	sms := services.NewSMSService(cfg.SMS)
	mailer := services.NewEmailService(cfg.SMTP)
	telegram := services.NewTelegramService(cfg.Telegram.BotToken, cfg.Telegram.AdminChatID, log)
	otp := services.NewOTPService(db, otpLimiter, sms, log)

	svc := routes.Services{
		Auth:    services.NewAuthService(db, otp, services.NewSocialService(cfg.Social), cfg.JWTSecret, cfg.TokenExpires, log),
		Catalog: services.NewCatalogService(db, log),
		Carts:   services.NewCartService(db, cfg.HamperMaxItems, log),
		Orders: services.NewOrderService(db, telegram,
			services.NewContactNotifier(sms, mailer, log), cfg.HamperMaxItems, log),
		Users:   services.NewUserService(db, log),
		Reviews: services.NewReviewService(db),
		Home:    services.NewHomeService(db),
		Stats:   services.NewStatsService(db),
	}

	app := fiber.New(fiber.Config{
		AppName:      "Bakehouse Backend",
		ErrorHandler: middleware.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.Middleware(log))
	app.Use(metrics.Middleware())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins(),
		AllowCredentials: true,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics"
		},
	}))
	app.Use(middleware.Authenticate(cfg.JWTSecret, cfg.CookieName))

	routes.Register(app, svc, cfg)

	go func() {
		log.Info("starting server", zap.String("port", cfg.AppPort))
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			log.Fatal("fiber.Listen error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

// newOTPLimiter shares OTP counters through redis when it is configured and
// reachable, and falls back to process memory otherwise.
func newOTPLimiter(cfg config.RedisConfig, log *zap.Logger) (services.OTPLimiter, func()) {
	memory := services.NewMemoryLimiter(services.OTPMaxRequests, services.OTPWindow)
	if cfg.Addr == "" {
		return memory, func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, using in-memory otp limiter", zap.Error(err))
		_ = rdb.Close()
		return memory, func() {}
	}

	log.Info("otp limiter backed by redis", zap.String("addr", cfg.Addr))
	return services.NewRedisLimiter(rdb, services.OTPMaxRequests, services.OTPWindow), func() { _ = rdb.Close() }
}
