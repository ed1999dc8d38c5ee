package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shadowpaths-server/internal/config"
	"shadowpaths-server/internal/database"
	"shadowpaths-server/internal/handler"
	"shadowpaths-server/internal/logger"
	"shadowpaths-server/internal/messaging"
	"shadowpaths-server/internal/service"
	"shadowpaths-server/internal/storage"
	"shadowpaths-server/internal/worker"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	log.Println("Запуск сервера интерактивных историй...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	// Подключение к PostgreSQL (с прогоном миграций)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	dbPool, err := database.InitDB(ctx, cfg.GetDSN(), cfg.MigrationsDir, zapLogger)
	cancel()
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer database.CloseDB(dbPool, zapLogger)
	zapLogger.Info("Успешное подключение к PostgreSQL")

	// Подключение к Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		zapLogger.Fatal("Не удалось подключиться к Redis", zap.Error(err))
	}
	defer redisClient.Close()
	zapLogger.Info("Успешное подключение к Redis")

	// Подключение к RabbitMQ
	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	zapLogger.Info("Успешное подключение к RabbitMQ")

	// Репозитории
	storyRepo := database.NewPgStoryRepository(dbPool, zapLogger)
	userRepo := database.NewPgUserRepository(dbPool, zapLogger)
	progressRepo := database.NewPgPlayerProgressRepository(dbPool, zapLogger)
	notificationRepo := database.NewRedisNotificationRepository(redisClient, zapLogger)

	diskStorage, err := storage.NewDiskStorage(cfg.UploadsDir, cfg.UploadsBaseURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось инициализировать хранилище загрузок", zap.Error(err))
	}

	recomputePublisher, err := messaging.NewRabbitMQRecomputePublisher(rabbitConn, cfg.RecomputeQueue)
	if err != nil {
		zapLogger.Fatal("Не удалось создать паблишер пересчета", zap.Error(err))
	}
	defer recomputePublisher.Close()

	// Сервисы
	catalogService := service.NewCatalogService(storyRepo, progressRepo, zapLogger)
	playService := service.NewPlayService(storyRepo, progressRepo, userRepo, notificationRepo, recomputePublisher, zapLogger)
	editorService := service.NewEditorService(storyRepo, diskStorage, zapLogger)
	adminService := service.NewAdminService(storyRepo, userRepo, progressRepo, recomputePublisher, zapLogger)
	statsService := service.NewStatsService(userRepo, progressRepo, storyRepo, notificationRepo, zapLogger)

	// Консьюмер задач пересчета
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	var recomputeConsumer *worker.RecomputeConsumer
	if cfg.RecomputeConsumer {
		recomputeConsumer, err = worker.NewRecomputeConsumer(rabbitConn, statsService, progressRepo, cfg.RecomputeQueue, zapLogger)
		if err != nil {
			zapLogger.Fatal("Не удалось создать консьюмер пересчета", zap.Error(err))
		}
		go func() {
			if err := recomputeConsumer.StartConsuming(consumerCtx); err != nil && err != context.Canceled {
				zapLogger.Error("Консьюмер пересчета завершился с ошибкой", zap.Error(err))
			}
		}()
	}

	// Настройка Echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Static(cfg.UploadsBaseURL, cfg.UploadsDir)

	apiHandler := handler.NewAPIHandler(catalogService, playService, editorService, adminService, statsService, cfg.JWTSecret, zapLogger)
	apiHandler.RegisterRoutes(e)

	log.Printf("Сервер слушает на порту %s", cfg.Port)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("Ошибка запуска HTTP сервера: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Получен сигнал завершения, начинаем graceful shutdown...")

	consumerCancel()
	if recomputeConsumer != nil {
		if err := recomputeConsumer.Close(); err != nil {
			zapLogger.Warn("Ошибка закрытия консьюмера", zap.Error(err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal("Ошибка при graceful shutdown Echo: ", err)
	}

	log.Println("Сервер успешно остановлен")
}

// connectRabbitMQ пытается подключиться к RabbitMQ с несколькими попытками
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
