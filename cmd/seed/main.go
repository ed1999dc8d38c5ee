// Команда seed импортирует кураторские истории из JSON-файлов.
// Использование: seed <file.json> [file2.json ...]
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"shadowpaths-server/internal/config"
	"shadowpaths-server/internal/database"
	"shadowpaths-server/internal/logger"
	"shadowpaths-server/internal/story"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		log.Fatal("Использование: seed <file.json> [file2.json ...]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: "console"})
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dbPool, err := database.InitDB(ctx, cfg.GetDSN(), cfg.MigrationsDir, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к БД", zap.Error(err))
	}
	defer database.CloseDB(dbPool, zapLogger)

	storyRepo := database.NewPgStoryRepository(dbPool, zapLogger)

	imported := 0
	for _, path := range os.Args[1:] {
		data, err := os.ReadFile(path)
		if err != nil {
			zapLogger.Fatal("Не удалось прочитать файл посева", zap.String("path", path), zap.Error(err))
		}

		var seed story.SeedStory
		if err := json.Unmarshal(data, &seed); err != nil {
			zapLogger.Fatal("Некорректный JSON посева", zap.String("path", path), zap.Error(err))
		}

		st, err := story.FromSeed(seed)
		if err != nil {
			zapLogger.Fatal("Посев не прошел валидацию", zap.String("path", path), zap.Error(err))
		}
		if err := storyRepo.Create(ctx, st); err != nil {
			zapLogger.Fatal("Не удалось сохранить историю", zap.String("path", path), zap.Error(err))
		}

		zapLogger.Info("История импортирована",
			zap.String("path", path),
			zap.Stringer("storyID", st.ID),
			zap.String("title", st.Title),
		)
		imported++
	}

	zapLogger.Info("Импорт завершен", zap.Int("imported", imported))
}
