package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgStoryRepository creates a new repository instance.
func NewPgStoryRepository(pool *pgxpool.Pool, logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{
		pool:   pool,
		logger: logger.Named("PgStoryRepo"),
	}
}

const storyColumns = `id, title, description, notes, cover_image, status, origin, author_id, categories, start_node_id, display_order, nodes, endings, images, created_at, updated_at`

const getStoryQuery = `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`

const insertStoryQuery = `
INSERT INTO stories (id, title, description, notes, cover_image, status, origin, author_id, categories, start_node_id, display_order, nodes, endings, images, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

const saveStoryQuery = `
UPDATE stories SET
    title = $2,
    description = $3,
    notes = $4,
    cover_image = $5,
    status = $6,
    categories = $7,
    start_node_id = $8,
    display_order = $9,
    nodes = $10,
    endings = $11,
    images = $12,
    updated_at = $13
WHERE id = $1`

const deleteStoryQuery = `DELETE FROM stories WHERE id = $1`

const updateStoryStatusQuery = `UPDATE stories SET status = $2, updated_at = now() WHERE id = $1`

const setDisplayOrderQuery = `UPDATE stories SET display_order = $2, updated_at = now() WHERE id = $1`

// rowScanner покрывает и pgx.Row, и pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStory(row rowScanner) (*models.Story, error) {
	story := &models.Story{}
	var categories pq.StringArray
	var nodesJSON, endingsJSON, imagesJSON []byte

	err := row.Scan(
		&story.ID,
		&story.Title,
		&story.Description,
		&story.Notes,
		&story.CoverImage,
		&story.Status,
		&story.Origin,
		&story.AuthorID,
		&categories,
		&story.StartNodeID,
		&story.DisplayOrder,
		&nodesJSON,
		&endingsJSON,
		&imagesJSON,
		&story.CreatedAt,
		&story.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	story.Categories = []string(categories)
	if err := json.Unmarshal(nodesJSON, &story.Nodes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal nodes: %w", err)
	}
	if err := json.Unmarshal(endingsJSON, &story.Endings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal endings: %w", err)
	}
	if err := json.Unmarshal(imagesJSON, &story.Images); err != nil {
		return nil, fmt.Errorf("failed to unmarshal images: %w", err)
	}
	return story, nil
}

func marshalStoryDocs(story *models.Story) (nodes, endings, images []byte, err error) {
	if story.Nodes == nil {
		story.Nodes = []models.Node{}
	}
	if story.Endings == nil {
		story.Endings = []models.Ending{}
	}
	if story.Images == nil {
		story.Images = []models.ImageAsset{}
	}
	if nodes, err = json.Marshal(story.Nodes); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal nodes: %w", err)
	}
	if endings, err = json.Marshal(story.Endings); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal endings: %w", err)
	}
	if images, err = json.Marshal(story.Images); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal images: %w", err)
	}
	return nodes, endings, images, nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	story, err := scanStory(r.pool.QueryRow(ctx, getStoryQuery, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.Stringer("storyID", id), zap.Error(err))
		return nil, err
	}
	return story, nil
}

func (r *pgStoryRepository) Create(ctx context.Context, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	now := time.Now()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = now

	nodesJSON, endingsJSON, imagesJSON, err := marshalStoryDocs(story)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, insertStoryQuery,
		story.ID,
		story.Title,
		story.Description,
		story.Notes,
		story.CoverImage,
		story.Status,
		story.Origin,
		story.AuthorID,
		pq.Array(story.Categories),
		story.StartNodeID,
		story.DisplayOrder,
		nodesJSON,
		endingsJSON,
		imagesJSON,
		story.CreatedAt,
		story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert story", zap.Stringer("storyID", story.ID), zap.Error(err))
		return err
	}
	r.logger.Debug("Inserted story", zap.Stringer("storyID", story.ID))
	return nil
}

// Save переписывает агрегат целиком. Это сознательный компромисс: история
// меняется только редактором автора или админки, конкурентных писателей нет.
func (r *pgStoryRepository) Save(ctx context.Context, story *models.Story) error {
	story.UpdatedAt = time.Now()

	nodesJSON, endingsJSON, imagesJSON, err := marshalStoryDocs(story)
	if err != nil {
		return err
	}

	cmdTag, err := r.pool.Exec(ctx, saveStoryQuery,
		story.ID,
		story.Title,
		story.Description,
		story.Notes,
		story.CoverImage,
		story.Status,
		pq.Array(story.Categories),
		story.StartNodeID,
		story.DisplayOrder,
		nodesJSON,
		endingsJSON,
		imagesJSON,
		story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to save story", zap.Stringer("storyID", story.ID), zap.Error(err))
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	r.logger.Debug("Saved story", zap.Stringer("storyID", story.ID))
	return nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.pool.Exec(ctx, deleteStoryQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Stringer("storyID", id), zap.Error(err))
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	r.logger.Info("Deleted story", zap.Stringer("storyID", id))
	return nil
}

// buildStoryFilter собирает WHERE-часть и аргументы для List/Count.
func buildStoryFilter(filter models.StoryFilter) (string, []any) {
	var conds []string
	var args []any

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		args = append(args, pq.Array(statuses))
		conds = append(conds, fmt.Sprintf("status = ANY($%d::story_status[])", len(args)))
	}
	if filter.Origin != "" {
		args = append(args, string(filter.Origin))
		conds = append(conds, fmt.Sprintf("origin = $%d", len(args)))
	}
	if filter.AuthorID != nil {
		args = append(args, *filter.AuthorID)
		conds = append(conds, fmt.Sprintf("author_id = $%d", len(args)))
	}

	if len(conds) == 0 {
		return "", nil
	}
	where := "WHERE " + conds[0]
	for _, c := range conds[1:] {
		where += " AND " + c
	}
	return where, args
}

func (r *pgStoryRepository) List(ctx context.Context, filter models.StoryFilter) ([]models.StorySummary, error) {
	where, args := buildStoryFilter(filter)
	query := fmt.Sprintf(`
SELECT id, title, description, cover_image, status, origin, author_id, display_order,
       jsonb_array_length(endings) AS endings_total, created_at
FROM stories
%s
ORDER BY display_order ASC, created_at DESC`, where)

	var summaries []models.StorySummary
	if err := pgxscan.Select(ctx, r.pool, &summaries, query, args...); err != nil {
		r.logger.Error("Failed to list stories", zap.Error(err))
		return nil, err
	}
	return summaries, nil
}

func (r *pgStoryRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Story, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + storyColumns + ` FROM stories WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error("Failed to list stories by ids", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var stories []models.Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			r.logger.Error("Failed to scan story row", zap.Error(err))
			return nil, err
		}
		stories = append(stories, *story)
	}
	return stories, rows.Err()
}

func (r *pgStoryRepository) Count(ctx context.Context, filter models.StoryFilter) (int, error) {
	where, args := buildStoryFilter(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM stories %s`, where)

	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		r.logger.Error("Failed to count stories", zap.Error(err))
		return 0, err
	}
	return count, nil
}

func (r *pgStoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.StoryStatus) error {
	cmdTag, err := r.pool.Exec(ctx, updateStoryStatusQuery, id, status)
	if err != nil {
		r.logger.Error("Failed to update story status", zap.Stringer("storyID", id), zap.Error(err))
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	r.logger.Info("Updated story status", zap.Stringer("storyID", id), zap.String("status", string(status)))
	return nil
}

// SetDisplayOrder проставляет плотный порядок каталога одной транзакцией.
func (r *pgStoryRepository) SetDisplayOrder(ctx context.Context, orderedIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i, id := range orderedIDs {
		if _, err := tx.Exec(ctx, setDisplayOrderQuery, id, i); err != nil {
			r.logger.Error("Failed to set display order", zap.Stringer("storyID", id), zap.Error(err))
			return err
		}
	}
	return tx.Commit(ctx)
}
