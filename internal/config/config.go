package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит конфигурацию сервера интерактивных историй.
type Config struct {
	// Настройки сервера
	Port        string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// Настройки PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	MigrationsDir string        `envconfig:"MIGRATIONS_DIR" default:"internal/database/migrations"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Настройки Redis (уведомления о наградах)
	RedisAddr string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// Секретное поле БЕЗ envconfig тега
	RedisPassword string

	// Настройки RabbitMQ
	RabbitMQURL       string `envconfig:"RABBITMQ_URL" required:"true"`
	RecomputeQueue    string `envconfig:"RECOMPUTE_QUEUE" default:"recompute_tasks"`
	RecomputeConsumer bool   `envconfig:"RECOMPUTE_CONSUMER_ENABLED" default:"true"`

	// Настройки хранилища изображений
	UploadsDir     string `envconfig:"UPLOADS_DIR" default:"./uploads"`
	UploadsBaseURL string `envconfig:"UPLOADS_BASE_URL" default:"/uploads"`

	// Настройки JWT (для проверки токена пользователя в middleware)
	// Секретное поле БЕЗ envconfig тега
	JWTSecret string
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов.
func LoadConfig() (*Config, error) {
	var cfg Config
	// Загружаем НЕсекретные переменные
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	// Загружаем ОБЯЗАТЕЛЬНЫЕ секреты
	var loadErr error
	cfg.DBPassword, loadErr = readSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = readSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}

	// Redis может работать без пароля, секрет опционален
	cfg.RedisPassword, _ = readSecret("redis_password")

	log.Printf("Конфигурация загружена (секреты из файлов):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  DB Max Conns: %d", cfg.DBMaxConns)
	log.Printf("  Migrations Dir: %s", cfg.MigrationsDir)
	log.Printf("  Redis Addr: %s", cfg.RedisAddr)
	log.Printf("  RabbitMQ URL: %s", cfg.RabbitMQURL)
	log.Printf("  Recompute Queue: %s", cfg.RecomputeQueue)
	log.Printf("  Uploads Dir: %s", cfg.UploadsDir)
	log.Println("  JWT Secret: [ЗАГРУЖЕН]")

	return &cfg, nil
}
