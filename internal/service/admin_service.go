package service

import (
	"context"
	"fmt"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/messaging"
	"shadowpaths-server/internal/models"
	"shadowpaths-server/internal/story"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdminService определяет интерфейс админки: кураторский каталог,
// модерация пользовательских историй, управление аккаунтами.
type AdminService interface {
	ListStories(ctx context.Context, filter models.StoryFilter) ([]models.StorySummary, error)
	GetStory(ctx context.Context, storyID uuid.UUID) (*models.Story, error)

	// SaveStory полностью замещает контент истории (в любом статусе).
	// Правка видимой истории ставит задачу пересчета читателям: их находки
	// могли указывать на удаленные концовки.
	SaveStory(ctx context.Context, storyID uuid.UUID, draft *models.Story) (*models.Story, error)

	// DeleteStory удаляет историю; список читателей собирается до удаления
	// и уходит в задачу пересчета.
	DeleteStory(ctx context.Context, storyID uuid.UUID) error

	// ImportSeed создает кураторскую историю из JSON-посева (строгая
	// валидация, статус invisible).
	ImportSeed(ctx context.Context, seed story.SeedStory) (*models.Story, error)

	// UpdateStatus переключает статус витрины; публикация требует
	// полностью валидного графа.
	UpdateStatus(ctx context.Context, storyID uuid.UUID, status models.StoryStatus) error

	// SetCatalogOrder проставляет плотный порядок витрины.
	SetCatalogOrder(ctx context.Context, orderedIDs []uuid.UUID) error

	// Модерация: pending -> under_review -> public | private.
	TakeInReview(ctx context.Context, storyID uuid.UUID) error
	ApproveStory(ctx context.Context, storyID uuid.UUID) error
	RejectStory(ctx context.Context, storyID uuid.UUID) error

	ListUsers(ctx context.Context, q string) ([]models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, username, email string, role models.Role, currency int) error

	// ClearProgress сбрасывает прогресс читателя по истории на месте
	// (запись остается) и ставит задачу пересчета.
	ClearProgress(ctx context.Context, userID, storyID uuid.UUID) error
}

type adminServiceImpl struct {
	storyRepo    interfaces.StoryRepository
	userRepo     interfaces.UserRepository
	progressRepo interfaces.ProgressRepository
	publisher    interfaces.RecomputePublisher
	logger       *zap.Logger
}

func NewAdminService(
	storyRepo interfaces.StoryRepository,
	userRepo interfaces.UserRepository,
	progressRepo interfaces.ProgressRepository,
	publisher interfaces.RecomputePublisher,
	logger *zap.Logger,
) AdminService {
	return &adminServiceImpl{
		storyRepo:    storyRepo,
		userRepo:     userRepo,
		progressRepo: progressRepo,
		publisher:    publisher,
		logger:       logger.Named("AdminService"),
	}
}

func (s *adminServiceImpl) publishRecompute(ctx context.Context, payload messaging.RecomputeTaskPayload) {
	payload.TaskID = uuid.New().String()
	if err := s.publisher.PublishRecomputeTask(ctx, payload); err != nil {
		s.logger.Warn("Failed to publish recompute task", zap.String("reason", payload.Reason), zap.Error(err))
	}
}

func (s *adminServiceImpl) ListStories(ctx context.Context, filter models.StoryFilter) ([]models.StorySummary, error) {
	return s.storyRepo.List(ctx, filter)
}

func (s *adminServiceImpl) GetStory(ctx context.Context, storyID uuid.UUID) (*models.Story, error) {
	return s.storyRepo.GetByID(ctx, storyID)
}

func (s *adminServiceImpl) SaveStory(ctx context.Context, storyID uuid.UUID, draft *models.Story) (*models.Story, error) {
	st, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}

	st.Title = draft.Title
	st.Description = draft.Description
	st.Notes = draft.Notes
	st.CoverImage = draft.CoverImage
	st.Categories = draft.Categories
	st.StartNodeID = draft.StartNodeID
	st.Nodes = draft.Nodes
	st.Endings = draft.Endings

	story.Normalize(st)
	if errs := story.Validate(st, story.ValidateOptions{}); len(errs) > 0 {
		return nil, &models.ValidationError{Messages: errs}
	}
	if err := s.storyRepo.Save(ctx, st); err != nil {
		return nil, err
	}
	s.logger.Info("Story content replaced by admin", zap.Stringer("storyID", storyID))

	if st.Status == models.StatusPublic {
		sid := storyID
		s.publishRecompute(ctx, messaging.RecomputeTaskPayload{StoryID: &sid, Reason: "admin_edit"})
	}
	return st, nil
}

func (s *adminServiceImpl) DeleteStory(ctx context.Context, storyID uuid.UUID) error {
	// Читателей собираем до удаления: после него их уже не найти.
	readerIDs, err := s.progressRepo.ListUserIDsByStory(ctx, storyID)
	if err != nil {
		return fmt.Errorf("ошибка сбора читателей перед удалением: %w", err)
	}
	if err := s.storyRepo.Delete(ctx, storyID); err != nil {
		return err
	}
	s.logger.Info("Story deleted", zap.Stringer("storyID", storyID), zap.Int("readers", len(readerIDs)))

	if len(readerIDs) > 0 {
		s.publishRecompute(ctx, messaging.RecomputeTaskPayload{UserIDs: readerIDs, Reason: "story_deleted"})
	}
	return nil
}

func (s *adminServiceImpl) ImportSeed(ctx context.Context, seed story.SeedStory) (*models.Story, error) {
	st, err := story.FromSeed(seed)
	if err != nil {
		return nil, err
	}
	if err := s.storyRepo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("ошибка сохранения импортированной истории: %w", err)
	}
	s.logger.Info("Seed story imported", zap.Stringer("storyID", st.ID), zap.String("title", st.Title))
	return st, nil
}

func (s *adminServiceImpl) UpdateStatus(ctx context.Context, storyID uuid.UUID, status models.StoryStatus) error {
	switch status {
	case models.StatusPublic, models.StatusComingSoon, models.StatusInvisible, models.StatusPrivate:
		// витринные статусы
	default:
		return ErrInvalidStatusTransition
	}

	// Публикация требует играбельного графа.
	if status == models.StatusPublic {
		st, err := s.storyRepo.GetByID(ctx, storyID)
		if err != nil {
			return err
		}
		if errs := story.Validate(st, story.ValidateOptions{RequireComplete: true, RequireResolvedDestinations: true}); len(errs) > 0 {
			return &models.ValidationError{Messages: errs}
		}
	}
	return s.storyRepo.UpdateStatus(ctx, storyID, status)
}

func (s *adminServiceImpl) SetCatalogOrder(ctx context.Context, orderedIDs []uuid.UUID) error {
	return s.storyRepo.SetDisplayOrder(ctx, orderedIDs)
}

// transitionReview проверяет исходный статус и выполняет переход модерации.
func (s *adminServiceImpl) transitionReview(ctx context.Context, storyID uuid.UUID, from []models.StoryStatus, to models.StoryStatus) (*models.Story, error) {
	st, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	allowed := false
	for _, f := range from {
		if st.Status == f {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, ErrInvalidStatusTransition
	}
	if err := s.storyRepo.UpdateStatus(ctx, storyID, to); err != nil {
		return nil, err
	}
	st.Status = to
	return st, nil
}

func (s *adminServiceImpl) TakeInReview(ctx context.Context, storyID uuid.UUID) error {
	_, err := s.transitionReview(ctx, storyID,
		[]models.StoryStatus{models.StatusPending}, models.StatusUnderReview)
	return err
}

func (s *adminServiceImpl) ApproveStory(ctx context.Context, storyID uuid.UUID) error {
	st, err := s.transitionReview(ctx, storyID,
		[]models.StoryStatus{models.StatusUnderReview, models.StatusPending}, models.StatusPublic)
	if err != nil {
		return err
	}
	s.logger.Info("Story approved", zap.Stringer("storyID", storyID))

	// Публикация двигает авторский трофей publishedAuthor.
	if st.AuthorID != nil {
		s.publishRecompute(ctx, messaging.RecomputeTaskPayload{UserIDs: []uuid.UUID{*st.AuthorID}, Reason: "story_published"})
	}
	return nil
}

func (s *adminServiceImpl) RejectStory(ctx context.Context, storyID uuid.UUID) error {
	_, err := s.transitionReview(ctx, storyID,
		[]models.StoryStatus{models.StatusUnderReview, models.StatusPending}, models.StatusPrivate)
	if err == nil {
		s.logger.Info("Story rejected", zap.Stringer("storyID", storyID))
	}
	return err
}

func (s *adminServiceImpl) ListUsers(ctx context.Context, q string) ([]models.User, error) {
	return s.userRepo.List(ctx, q)
}

func (s *adminServiceImpl) UpdateUser(ctx context.Context, id uuid.UUID, username, email string, role models.Role, currency int) error {
	if err := s.userRepo.UpdateProfile(ctx, id, username, email, role, currency); err != nil {
		return err
	}
	s.logger.Info("User profile updated by admin", zap.Stringer("userID", id))
	return nil
}

func (s *adminServiceImpl) ClearProgress(ctx context.Context, userID, storyID uuid.UUID) error {
	if err := s.progressRepo.Reset(ctx, userID, storyID); err != nil {
		return err
	}
	s.logger.Info("Progress cleared", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID))
	s.publishRecompute(ctx, messaging.RecomputeTaskPayload{UserIDs: []uuid.UUID{userID}, Reason: "progress_cleared"})
	return nil
}
