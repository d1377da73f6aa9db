package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/briansimoni/weewoo.study-sub000/internal/config"
	"github.com/briansimoni/weewoo.study-sub000/internal/handler"
	"github.com/briansimoni/weewoo.study-sub000/internal/logging"
	"github.com/briansimoni/weewoo.study-sub000/internal/middleware"
	redisRepo "github.com/briansimoni/weewoo.study-sub000/internal/repository/redis"
	"github.com/briansimoni/weewoo.study-sub000/internal/service"
	"github.com/briansimoni/weewoo.study-sub000/pkg/auth"
	"github.com/briansimoni/weewoo.study-sub000/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Printf("Failed to build logger: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Один клиент Redis на процесс; закрывается при выходе
	redisClient, err := database.NewUniversalRedisClient(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer redisClient.Close()
	logger.Info("connected to redis", zap.String("mode", cfg.Redis.Mode), zap.Strings("addrs", cfg.Redis.RedisAddrs()))

	kv, err := redisRepo.NewKVStore(redisClient, cfg.Store.Namespace, logger)
	if err != nil {
		return err
	}

	// Инициализируем репозитории
	repoOpts := redisRepo.Options{
		MaxCommitAttempts: cfg.Store.MaxCommitAttempts,
		Logger:            logger,
	}
	questionRepo := redisRepo.NewQuestionRepo(kv, repoOpts)
	userRepo := redisRepo.NewUserRepo(kv, repoOpts)
	streakRepo := redisRepo.NewStreakRepo(kv, cfg.Streak.Window(), repoOpts)
	variantRepo := redisRepo.NewProductVariantRepo(kv, repoOpts)

	// Уведомления о жалобах отправляются, только если настроен Resend
	var notifier service.ReportNotifier = service.NewNoopReportNotifier(logger)
	if cfg.Email.ResendAPIKey != "" {
		resendNotifier, err := service.NewResendReportNotifier(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.AdminAddress)
		if err != nil {
			return err
		}
		notifier = resendNotifier
		logger.Info("report notifications enabled", zap.String("to", cfg.Email.AdminAddress))
	}

	// Инициализируем сервисы
	questionService := service.NewQuestionService(questionRepo, notifier, logger)
	answerService := service.NewAnswerService(questionRepo, userRepo, streakRepo, logger)
	userService := service.NewUserService(userRepo, streakRepo, logger)
	productService := service.NewProductService(variantRepo)

	jwtService, err := auth.NewJWTService(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}

	routes := handler.Routes{
		Questions:   handler.NewQuestionHandler(questionService, answerService, logger),
		Users:       handler.NewUserHandler(userService, logger),
		Products:    handler.NewProductHandler(productService, logger),
		Auth:        middleware.NewAuthMiddleware(jwtService, logger),
		RateLimiter: middleware.NewRateLimiter(redisClient, logger),
		ReportLimit: middleware.NewRateLimitConfig(cfg.RateLimit, cfg.Store.Namespace, "reports"),
		AnswerLimit: middleware.NewRateLimitConfig(cfg.RateLimit, cfg.Store.Namespace, "answers"),
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	// В production не доверяем прокси-заголовкам, в development доверяем localhost
	trustedProxies := []string{"127.0.0.1", "::1"}
	if gin.Mode() == gin.ReleaseMode {
		trustedProxies = nil
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		logger.Warn("failed to set trusted proxies", zap.Error(err))
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routes.Register(router)

	// HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutting down server", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server exited properly")
	return nil
}

// requestLogger пишет одну строку на запрос
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()))
	}
}
