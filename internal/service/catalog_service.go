package service

import (
	"context"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LibraryEntry - строка каталога для читателя: сводка истории плюс его
// личный счетчик найденных концовок.
type LibraryEntry struct {
	models.StorySummary
	FoundEndings int `json:"foundEndings"`
}

// CatalogService определяет интерфейс читательского каталога.
type CatalogService interface {
	// Library возвращает видимые истории в порядке витрины
	// (display_order, затем новизна) с прогрессом читателя.
	Library(ctx context.Context, userID uuid.UUID) ([]LibraryEntry, error)
}

type catalogServiceImpl struct {
	storyRepo    interfaces.StoryRepository
	progressRepo interfaces.ProgressRepository
	logger       *zap.Logger
}

func NewCatalogService(storyRepo interfaces.StoryRepository, progressRepo interfaces.ProgressRepository, logger *zap.Logger) CatalogService {
	return &catalogServiceImpl{
		storyRepo:    storyRepo,
		progressRepo: progressRepo,
		logger:       logger.Named("CatalogService"),
	}
}

func (s *catalogServiceImpl) Library(ctx context.Context, userID uuid.UUID) ([]LibraryEntry, error) {
	summaries, err := s.storyRepo.List(ctx, models.StoryFilter{
		Statuses: []models.StoryStatus{models.StatusPublic, models.StatusComingSoon},
	})
	if err != nil {
		return nil, err
	}

	progress, err := s.progressRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	foundByStory := make(map[uuid.UUID]int, len(progress))
	for _, entry := range progress {
		foundByStory[entry.StoryID] = len(entry.EndingsFound)
	}

	entries := make([]LibraryEntry, 0, len(summaries))
	for _, summary := range summaries {
		entries = append(entries, LibraryEntry{
			StorySummary: summary,
			FoundEndings: foundByStory[summary.ID],
		})
	}
	return entries, nil
}
