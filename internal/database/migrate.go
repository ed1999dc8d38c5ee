package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// RunMigrations выполняет все миграции из указанной директории.
// Файлы должны быть в формате 001_name.sql, 002_name.sql и т.д.
func RunMigrations(ctx context.Context, db *pgxpool.Pool, migrationsDir string, logger *zap.Logger) error {
	logger = logger.Named("Migrations")
	logger.Info("Starting migrations", zap.String("dir", migrationsDir))

	// Создаем таблицу для отслеживания миграций, если её нет
	if err := createMigrationsTable(ctx, db); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Получаем список выполненных миграций
	applied, err := getAppliedMigrations(ctx, db)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name() < files[j].Name()
	})

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		version := getMigrationVersion(file.Name())
		if version == 0 {
			logger.Warn("Skipping invalid migration file", zap.String("file", file.Name()))
			continue
		}

		if applied[version] {
			logger.Debug("Migration already applied", zap.Int("version", version))
			continue
		}

		if err := applyMigration(ctx, db, filepath.Join(migrationsDir, file.Name()), version); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", version, err)
		}

		logger.Info("Applied migration", zap.Int("version", version), zap.String("file", file.Name()))
	}

	return nil
}

// createMigrationsTable создает таблицу для отслеживания миграций
func createMigrationsTable(ctx context.Context, db *pgxpool.Pool) error {
	sql := `
		CREATE TABLE IF NOT EXISTS migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
		)`
	_, err := db.Exec(ctx, sql)
	return err
}

// getAppliedMigrations возвращает список уже примененных миграций
func getAppliedMigrations(ctx context.Context, db *pgxpool.Pool) (map[int]bool, error) {
	rows, err := db.Query(ctx, `SELECT version FROM migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// getMigrationVersion извлекает версию миграции из имени файла
func getMigrationVersion(filename string) int {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0
	}
	return version
}

// applyMigration применяет одну миграцию (только Up-часть) в транзакции
func applyMigration(ctx context.Context, db *pgxpool.Pool, path string, version int) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Разделяем миграцию на Up и Down части
	parts := strings.Split(string(content), "-- +migrate Down")
	if len(parts) != 2 {
		return fmt.Errorf("invalid migration file format: %s", path)
	}

	upSQL := strings.TrimPrefix(parts[0], "-- +migrate Up")
	upSQL = strings.TrimSpace(upSQL)

	tx, err := db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, upSQL); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}

	if _, err := tx.Exec(ctx, "INSERT INTO migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("failed to mark migration as applied: %w", err)
	}

	return tx.Commit(ctx)
}
