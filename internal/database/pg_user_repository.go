package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.UserRepository = (*pgUserRepository)(nil)

type pgUserRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgUserRepository creates a new repository instance.
func NewPgUserRepository(pool *pgxpool.Pool, logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		pool:   pool,
		logger: logger.Named("PgUserRepo"),
	}
}

const userColumns = `id, username, email, password_hash, role, currency, author_currency, total_endings_found, stories_read, medals, trophies, created_at, updated_at`

const getUserQuery = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

const listUsersQuery = `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`

const searchUsersQuery = `SELECT ` + userColumns + ` FROM users WHERE username ILIKE $1 OR email ILIKE $1 ORDER BY created_at ASC`

const insertUserQuery = `
INSERT INTO users (id, username, email, password_hash, role, currency, author_currency, total_endings_found, stories_read, medals, trophies, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

const updateUserProfileQuery = `
UPDATE users SET username = $2, email = $3, role = $4, currency = $5, updated_at = now()
WHERE id = $1`

const setUserRoleQuery = `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`

const saveUserDerivedQuery = `
UPDATE users SET total_endings_found = $2, stories_read = $3, medals = $4, trophies = $5, updated_at = now()
WHERE id = $1`

// currencyColumn отображает вид валюты на имя колонки. Белый список, чтобы
// никакая пользовательская строка не попала в текст запроса.
func currencyColumn(kind models.CurrencyKind) (string, error) {
	switch kind {
	case models.CurrencyReader:
		return "currency", nil
	case models.CurrencyAuthor:
		return "author_currency", nil
	default:
		return "", fmt.Errorf("unknown currency kind: %q", kind)
	}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var medalsJSON, trophiesJSON []byte

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Currency,
		&user.AuthorCurrency,
		&user.TotalEndingsFound,
		&user.StoriesRead,
		&medalsJSON,
		&trophiesJSON,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(medalsJSON, &user.Medals); err != nil {
		return nil, fmt.Errorf("failed to unmarshal medals: %w", err)
	}
	if err := json.Unmarshal(trophiesJSON, &user.Trophies); err != nil {
		return nil, fmt.Errorf("failed to unmarshal trophies: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, getUserQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user", zap.Stringer("userID", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) List(ctx context.Context, q string) ([]models.User, error) {
	var rows pgx.Rows
	var err error
	if q == "" {
		rows, err = r.pool.Query(ctx, listUsersQuery)
	} else {
		rows, err = r.pool.Query(ctx, searchUsersQuery, "%"+q+"%")
	}
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			r.logger.Error("Failed to scan user row", zap.Error(err))
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (r *pgUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Medals == nil {
		user.Medals = map[string]models.Tier{}
	}
	if user.Trophies == nil {
		user.Trophies = map[string]models.Tier{}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	medalsJSON, err := json.Marshal(user.Medals)
	if err != nil {
		return fmt.Errorf("failed to marshal medals: %w", err)
	}
	trophiesJSON, err := json.Marshal(user.Trophies)
	if err != nil {
		return fmt.Errorf("failed to marshal trophies: %w", err)
	}

	_, err = r.pool.Exec(ctx, insertUserQuery,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Currency,
		user.AuthorCurrency,
		user.TotalEndingsFound,
		user.StoriesRead,
		medalsJSON,
		trophiesJSON,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert user", zap.Stringer("userID", user.ID), zap.Error(err))
		return err
	}
	r.logger.Debug("Inserted user", zap.Stringer("userID", user.ID))
	return nil
}

func (r *pgUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, username, email string, role models.Role, currency int) error {
	cmdTag, err := r.pool.Exec(ctx, updateUserProfileQuery, id, username, email, role, currency)
	if err != nil {
		r.logger.Error("Failed to update user profile", zap.Stringer("userID", id), zap.Error(err))
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}

func (r *pgUserRepository) SetRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	cmdTag, err := r.pool.Exec(ctx, setUserRoleQuery, id, role)
	if err != nil {
		r.logger.Error("Failed to set user role", zap.Stringer("userID", id), zap.Error(err))
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	r.logger.Info("Updated user role", zap.Stringer("userID", id), zap.String("role", string(role)))
	return nil
}

// AdjustCurrency выполняет условное обновление: баланс никогда не уходит в
// минус, проверка и списание происходят одним оператором.
func (r *pgUserRepository) AdjustCurrency(ctx context.Context, id uuid.UUID, kind models.CurrencyKind, delta int) (int, error) {
	col, err := currencyColumn(kind)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf(
		`UPDATE users SET %s = %s + $2, updated_at = now() WHERE id = $1 AND %s + $2 >= 0 RETURNING %s`,
		col, col, col, col,
	)

	var newBalance int
	err = r.pool.QueryRow(ctx, query, id, delta).Scan(&newBalance)
	if err == nil {
		return newBalance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		r.logger.Error("Failed to adjust currency", zap.Stringer("userID", id), zap.Error(err))
		return 0, err
	}

	// Условие не сработало: либо пользователя нет, либо не хватает средств.
	var balance int
	checkQuery := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, col)
	if err := r.pool.QueryRow(ctx, checkQuery, id).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, models.ErrUserNotFound
		}
		return 0, err
	}
	return 0, &models.InsufficientFundsError{Cost: -delta, Balance: balance}
}

func (r *pgUserRepository) SaveDerived(ctx context.Context, id uuid.UUID, totalEndingsFound, storiesRead int, medals, trophies map[string]models.Tier) error {
	if medals == nil {
		medals = map[string]models.Tier{}
	}
	if trophies == nil {
		trophies = map[string]models.Tier{}
	}
	medalsJSON, err := json.Marshal(medals)
	if err != nil {
		return fmt.Errorf("failed to marshal medals: %w", err)
	}
	trophiesJSON, err := json.Marshal(trophies)
	if err != nil {
		return fmt.Errorf("failed to marshal trophies: %w", err)
	}

	cmdTag, err := r.pool.Exec(ctx, saveUserDerivedQuery, id, totalEndingsFound, storiesRead, medalsJSON, trophiesJSON)
	if err != nil {
		r.logger.Error("Failed to save derived user stats", zap.Stringer("userID", id), zap.Error(err))
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	r.logger.Debug("Saved derived user stats", zap.Stringer("userID", id))
	return nil
}
