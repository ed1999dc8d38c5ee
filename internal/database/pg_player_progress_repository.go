package database

import (
	"context"
	"errors"
	"fmt"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.ProgressRepository = (*pgPlayerProgressRepository)(nil)

type pgPlayerProgressRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgPlayerProgressRepository creates a new repository instance.
func NewPgPlayerProgressRepository(pool *pgxpool.Pool, logger *zap.Logger) interfaces.ProgressRepository {
	return &pgPlayerProgressRepository{
		pool:   pool,
		logger: logger.Named("PgPlayerProgressRepo"),
	}
}

const progressColumns = `user_id, story_id, endings_found, true_ending_found, death_ending_count, COALESCE(last_node_id, ''), unlocked_choices, updated_at`

const getProgressQuery = `
SELECT ` + progressColumns + `
FROM player_progress
WHERE user_id = $1 AND story_id = $2`

const listProgressByUserQuery = `
SELECT ` + progressColumns + `
FROM player_progress
WHERE user_id = $1
ORDER BY updated_at DESC`

const listUserIDsByStoryQuery = `SELECT user_id FROM player_progress WHERE story_id = $1`

// ensureProgressQuery лениво создает запись при первом контакте с историей.
const ensureProgressQuery = `
INSERT INTO player_progress (user_id, story_id)
VALUES ($1, $2)
ON CONFLICT (user_id, story_id) DO NOTHING`

const visitNodeQuery = `
INSERT INTO player_progress (user_id, story_id, last_node_id)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, story_id) DO UPDATE SET
    last_node_id = EXCLUDED.last_node_id,
    updated_at = now()`

// discoverEndingQuery: проверка "еще не найдена" и запись находки — один
// условный оператор, поэтому параллельные дубли не задвоят находку.
const discoverEndingQuery = `
UPDATE player_progress SET
    endings_found = array_append(endings_found, $3),
    true_ending_found = true_ending_found OR $4,
    death_ending_count = death_ending_count + $5,
    last_node_id = NULL,
    updated_at = now()
WHERE user_id = $1 AND story_id = $2 AND NOT ($3 = ANY(endings_found))`

const clearLastNodeQuery = `
UPDATE player_progress SET last_node_id = NULL, updated_at = now()
WHERE user_id = $1 AND story_id = $2`

// recordUnlockQuery записывает ключ покупки, только если его еще нет.
const recordUnlockQuery = `
UPDATE player_progress SET
    unlocked_choices = array_append(unlocked_choices, $3),
    last_node_id = $4,
    updated_at = now()
WHERE user_id = $1 AND story_id = $2 AND NOT ($3 = ANY(unlocked_choices))`

const saveProgressDerivedQuery = `
UPDATE player_progress SET
    endings_found = $3,
    true_ending_found = $4,
    death_ending_count = $5,
    updated_at = now()
WHERE user_id = $1 AND story_id = $2`

const resetProgressQuery = `
UPDATE player_progress SET
    endings_found = '{}',
    true_ending_found = FALSE,
    death_ending_count = 0,
    last_node_id = NULL,
    unlocked_choices = '{}',
    updated_at = now()
WHERE user_id = $1 AND story_id = $2`

func scanProgress(row rowScanner) (*models.ProgressEntry, error) {
	entry := &models.ProgressEntry{}
	var endingsFound, unlockedChoices pq.StringArray

	err := row.Scan(
		&entry.UserID,
		&entry.StoryID,
		&endingsFound,
		&entry.TrueEndingFound,
		&entry.DeathEndingCount,
		&entry.LastNodeID,
		&unlockedChoices,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.EndingsFound = []string(endingsFound)
	entry.UnlockedChoices = []string(unlockedChoices)
	return entry, nil
}

func (r *pgPlayerProgressRepository) Get(ctx context.Context, userID, storyID uuid.UUID) (*models.ProgressEntry, error) {
	entry, err := scanProgress(r.pool.QueryRow(ctx, getProgressQuery, userID, storyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get progress", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		return nil, err
	}
	return entry, nil
}

func (r *pgPlayerProgressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProgressEntry, error) {
	rows, err := r.pool.Query(ctx, listProgressByUserQuery, userID)
	if err != nil {
		r.logger.Error("Failed to list progress", zap.Stringer("userID", userID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var entries []models.ProgressEntry
	for rows.Next() {
		entry, err := scanProgress(rows)
		if err != nil {
			r.logger.Error("Failed to scan progress row", zap.Error(err))
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (r *pgPlayerProgressRepository) ListUserIDsByStory(ctx context.Context, storyID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, listUserIDsByStoryQuery, storyID)
	if err != nil {
		r.logger.Error("Failed to list story readers", zap.Stringer("storyID", storyID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgPlayerProgressRepository) VisitNode(ctx context.Context, userID, storyID uuid.UUID, nodeID string) error {
	_, err := r.pool.Exec(ctx, visitNodeQuery, userID, storyID, nodeID)
	if err != nil {
		r.logger.Error("Failed to record node visit", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		return err
	}
	return nil
}

func (r *pgPlayerProgressRepository) DiscoverEnding(ctx context.Context, userID, storyID uuid.UUID, endingID string, endingType models.EndingType) (bool, error) {
	logFields := []zap.Field{zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.String("endingID", endingID)}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, ensureProgressQuery, userID, storyID); err != nil {
		r.logger.Error("Failed to ensure progress row", append(logFields, zap.Error(err))...)
		return false, err
	}

	deathDelta := 0
	if endingType == models.EndingDeath {
		deathDelta = 1
	}
	cmdTag, err := tx.Exec(ctx, discoverEndingQuery,
		userID, storyID, endingID, endingType == models.EndingTrue, deathDelta)
	if err != nil {
		r.logger.Error("Failed to record ending discovery", append(logFields, zap.Error(err))...)
		return false, err
	}
	first := cmdTag.RowsAffected() == 1

	// Повторная находка: фиксируем только завершение прохождения.
	if !first {
		if _, err := tx.Exec(ctx, clearLastNodeQuery, userID, storyID); err != nil {
			r.logger.Error("Failed to clear continue pointer", append(logFields, zap.Error(err))...)
			return false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	if first {
		r.logger.Debug("First ending discovery recorded", logFields...)
	}
	return first, nil
}

// UnlockChoice: весь цикл "проверить ключ, списать, записать" идет в одной
// транзакции, поэтому между проверкой баланса и списанием никто не вклинится,
// а повторный запрос упрется в уже записанный ключ и ничего не спишет.
func (r *pgPlayerProgressRepository) UnlockChoice(ctx context.Context, userID, storyID uuid.UUID, nodeID, key string, cost int, kind models.CurrencyKind) (*models.UnlockOutcome, error) {
	col, err := currencyColumn(kind)
	if err != nil {
		return nil, err
	}
	logFields := []zap.Field{zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.String("key", key)}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, ensureProgressQuery, userID, storyID); err != nil {
		r.logger.Error("Failed to ensure progress row", append(logFields, zap.Error(err))...)
		return nil, err
	}

	cmdTag, err := tx.Exec(ctx, recordUnlockQuery, userID, storyID, key, nodeID)
	if err != nil {
		r.logger.Error("Failed to record unlock key", append(logFields, zap.Error(err))...)
		return nil, err
	}

	balanceQuery := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, col)

	// Ключ уже был записан раньше: повтор запроса, денег не трогаем.
	if cmdTag.RowsAffected() == 0 {
		var balance int
		if err := tx.QueryRow(ctx, balanceQuery, userID).Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, models.ErrUserNotFound
			}
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		r.logger.Debug("Unlock key already present, skipping charge", logFields...)
		return &models.UnlockOutcome{AlreadyUnlocked: true, NewBalance: balance}, nil
	}

	chargeQuery := fmt.Sprintf(
		`UPDATE users SET %s = %s - $2, updated_at = now() WHERE id = $1 AND %s >= $2 RETURNING %s`,
		col, col, col, col,
	)
	var newBalance int
	if err := tx.QueryRow(ctx, chargeQuery, userID, cost).Scan(&newBalance); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("Failed to charge for unlock", append(logFields, zap.Error(err))...)
			return nil, err
		}
		// Списание не прошло: откатываем и запись ключа.
		var balance int
		if err := tx.QueryRow(ctx, balanceQuery, userID).Scan(&balance); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, models.ErrUserNotFound
			}
			return nil, err
		}
		return nil, &models.InsufficientFundsError{Cost: cost, Balance: balance}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Info("Choice unlocked", append(logFields, zap.Int("cost", cost), zap.Int("newBalance", newBalance))...)
	return &models.UnlockOutcome{Charged: cost, NewBalance: newBalance}, nil
}

func (r *pgPlayerProgressRepository) SaveDerived(ctx context.Context, entry *models.ProgressEntry) error {
	if entry.EndingsFound == nil {
		entry.EndingsFound = []string{}
	}
	cmdTag, err := r.pool.Exec(ctx, saveProgressDerivedQuery,
		entry.UserID, entry.StoryID,
		pq.Array(entry.EndingsFound), entry.TrueEndingFound, entry.DeathEndingCount)
	if err != nil {
		r.logger.Error("Failed to save derived progress", zap.Stringer("userID", entry.UserID), zap.Stringer("storyID", entry.StoryID), zap.Error(err))
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		// Запись могла исчезнуть между чтением и записью, для пересчета это не ошибка.
		r.logger.Warn("Derived progress write hit missing row", zap.Stringer("userID", entry.UserID), zap.Stringer("storyID", entry.StoryID))
	}
	return nil
}

func (r *pgPlayerProgressRepository) Reset(ctx context.Context, userID, storyID uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, resetProgressQuery, userID, storyID)
	if err != nil {
		r.logger.Error("Failed to reset progress", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		// Нечего сбрасывать — цель (чистый прогресс) и так достигнута.
		r.logger.Warn("Attempted to reset non-existent progress", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID))
	}
	return nil
}
