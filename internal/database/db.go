// Package database содержит Postgres- и Redis-реализации репозиториев,
// пул соединений и мини-раннер SQL-миграций.
package database

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// InitDB создает пул соединений, проверяет связь и прогоняет миграции.
func InitDB(ctx context.Context, databaseURL, migrationsDir string, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	logger.Info("Successfully connected to database")

	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		logger.Warn("Migrations directory not found, skipping migrations", zap.String("dir", migrationsDir))
		return pool, nil
	}

	if err := RunMigrations(ctx, pool, migrationsDir, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return pool, nil
}

// CloseDB закрывает пул соединений.
func CloseDB(pool *pgxpool.Pool, logger *zap.Logger) {
	if pool != nil {
		pool.Close()
		logger.Info("Database connection closed")
	}
}
