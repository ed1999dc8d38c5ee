package service

import (
	"context"
	"fmt"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/messaging"
	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReaderEndingReward - авторская валюта читателю за первую находку концовки
// в пользовательской истории.
const ReaderEndingReward = 10

// PlayService определяет интерфейс игрового цикла читателя.
type PlayService interface {
	// GetStory возвращает играбельную историю вместе с прогрессом читателя.
	// У нового читателя прогресс пустой, но не nil.
	GetStory(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, *models.ProgressEntry, error)

	// VisitNode переносит указатель продолжения на узел.
	VisitNode(ctx context.Context, userID, storyID uuid.UUID, nodeID string) error

	// VisitEnding фиксирует достижение концовки. Возвращает true, если
	// концовка найдена впервые (с начислением награды и пересчетом).
	VisitEnding(ctx context.Context, userID, storyID uuid.UUID, endingID string) (bool, error)

	// UnlockChoice проводит покупку платного выбора: не больше одного
	// списания на ключ за все время жизни прогресса.
	UnlockChoice(ctx context.Context, userID, storyID uuid.UUID, nodeID, choiceID string) (*models.UnlockOutcome, error)

	// PopNotifications отдает и удаляет накопленные попапы о наградах.
	PopNotifications(ctx context.Context, userID uuid.UUID) ([]models.RewardNotification, error)
}

type playServiceImpl struct {
	storyRepo        interfaces.StoryRepository
	progressRepo     interfaces.ProgressRepository
	userRepo         interfaces.UserRepository
	notificationRepo interfaces.NotificationRepository
	publisher        interfaces.RecomputePublisher
	logger           *zap.Logger
}

func NewPlayService(
	storyRepo interfaces.StoryRepository,
	progressRepo interfaces.ProgressRepository,
	userRepo interfaces.UserRepository,
	notificationRepo interfaces.NotificationRepository,
	publisher interfaces.RecomputePublisher,
	logger *zap.Logger,
) PlayService {
	return &playServiceImpl{
		storyRepo:        storyRepo,
		progressRepo:     progressRepo,
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		publisher:        publisher,
		logger:           logger.Named("PlayService"),
	}
}

// loadPlayable загружает историю и проверяет, что в нее можно играть.
func (s *playServiceImpl) loadPlayable(ctx context.Context, storyID uuid.UUID) (*models.Story, error) {
	st, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if st.Status != models.StatusPublic {
		return nil, ErrStoryNotPlayable
	}
	return st, nil
}

func (s *playServiceImpl) GetStory(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, *models.ProgressEntry, error) {
	st, err := s.loadPlayable(ctx, storyID)
	if err != nil {
		return nil, nil, err
	}

	entry, err := s.progressRepo.Get(ctx, userID, storyID)
	if err != nil {
		if err != models.ErrNotFound {
			return nil, nil, err
		}
		entry = &models.ProgressEntry{
			UserID:          userID,
			StoryID:         storyID,
			EndingsFound:    []string{},
			UnlockedChoices: []string{},
		}
	}

	// Указатель продолжения мог пережить удаление узла; наружу он в таком
	// случае не отдается.
	if entry.LastNodeID != "" && st.FindNode(entry.LastNodeID) == nil {
		entry.LastNodeID = ""
	}
	return st, entry, nil
}

func (s *playServiceImpl) VisitNode(ctx context.Context, userID, storyID uuid.UUID, nodeID string) error {
	st, err := s.loadPlayable(ctx, storyID)
	if err != nil {
		return err
	}
	if st.FindNode(nodeID) == nil {
		return models.ErrNodeNotFound
	}
	return s.progressRepo.VisitNode(ctx, userID, storyID, nodeID)
}

func (s *playServiceImpl) VisitEnding(ctx context.Context, userID, storyID uuid.UUID, endingID string) (bool, error) {
	logFields := []zap.Field{zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.String("endingID", endingID)}

	st, err := s.loadPlayable(ctx, storyID)
	if err != nil {
		return false, err
	}
	ending := st.FindEnding(endingID)
	if ending == nil {
		return false, models.ErrEndingNotFound
	}

	first, err := s.progressRepo.DiscoverEnding(ctx, userID, storyID, endingID, ending.Type)
	if err != nil {
		return false, fmt.Errorf("ошибка фиксации концовки: %w", err)
	}
	if !first {
		return false, nil
	}
	s.logger.Info("Ending discovered", logFields...)

	// Находка уже зафиксирована; сбои наград и пересчета не откатывают ее,
	// только попадают в лог.
	if st.Origin == models.OriginUser {
		if _, err := s.userRepo.AdjustCurrency(ctx, userID, models.CurrencyAuthor, ReaderEndingReward); err != nil {
			s.logger.Error("Failed to grant reader reward", append(logFields, zap.Error(err))...)
		} else {
			n := models.RewardNotification{
				Message:       "New ending discovered",
				Amount:        ReaderEndingReward,
				CurrencyLabel: "author gems",
			}
			if err := s.notificationRepo.Push(ctx, userID, n); err != nil {
				s.logger.Warn("Failed to push reward notification", append(logFields, zap.Error(err))...)
			}
		}
	}

	task := messaging.RecomputeTaskPayload{
		TaskID:  uuid.New().String(),
		UserIDs: []uuid.UUID{userID},
		Reason:  "ending_discovered",
	}
	if err := s.publisher.PublishRecomputeTask(ctx, task); err != nil {
		s.logger.Warn("Failed to publish recompute task", append(logFields, zap.Error(err))...)
	}
	return true, nil
}

func (s *playServiceImpl) UnlockChoice(ctx context.Context, userID, storyID uuid.UUID, nodeID, choiceID string) (*models.UnlockOutcome, error) {
	logFields := []zap.Field{zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.String("nodeID", nodeID), zap.String("choiceID", choiceID)}

	st, err := s.loadPlayable(ctx, storyID)
	if err != nil {
		return nil, err
	}
	node := st.FindNode(nodeID)
	if node == nil {
		return nil, models.ErrNodeNotFound
	}
	choice := node.FindChoice(choiceID)
	if choice == nil {
		return nil, models.ErrChoiceNotFound
	}

	// Автор успел снять замок: проход свободный, списывать нечего.
	if !choice.Locked {
		user, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		kind := st.Origin.CurrencyFor()
		return &models.UnlockOutcome{AlreadyUnlocked: true, NewBalance: user.Balance(kind)}, nil
	}

	key := models.UnlockKey(nodeID, choiceID)
	outcome, err := s.progressRepo.UnlockChoice(ctx, userID, storyID, nodeID, key, choice.UnlockCost, st.Origin.CurrencyFor())
	if err != nil {
		return nil, err
	}

	if !outcome.AlreadyUnlocked {
		s.logger.Info("Choice unlocked", append(logFields, zap.Int("cost", outcome.Charged))...)
		task := messaging.RecomputeTaskPayload{
			TaskID:  uuid.New().String(),
			UserIDs: []uuid.UUID{userID},
			Reason:  "choice_unlocked",
		}
		if err := s.publisher.PublishRecomputeTask(ctx, task); err != nil {
			s.logger.Warn("Failed to publish recompute task", append(logFields, zap.Error(err))...)
		}
	}
	return outcome, nil
}

func (s *playServiceImpl) PopNotifications(ctx context.Context, userID uuid.UUID) ([]models.RewardNotification, error) {
	return s.notificationRepo.Pop(ctx, userID)
}
