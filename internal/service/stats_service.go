package service

import (
	"context"
	"fmt"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatsService пересобирает производную статистику пользователя из
// первоисточника (записей прогресса и каталога). Любая запись в счетчиках,
// медалях и трофеях может быть восстановлена повторным вызовом RecomputeUser.
type StatsService interface {
	// RecomputeUser перечитывает прогресс пользователя, чинит записи по
	// удаленным концовкам, пересчитывает счетчики и продвигает лестницы
	// медалей и трофеев. Уровни только растут; впервые взятый уровень трофея
	// дает разовую награду и попап.
	RecomputeUser(ctx context.Context, userID uuid.UUID) error

	// GetProfile возвращает аккаунт с актуальными счетчиками.
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error)
}

type statsServiceImpl struct {
	userRepo         interfaces.UserRepository
	progressRepo     interfaces.ProgressRepository
	storyRepo        interfaces.StoryRepository
	notificationRepo interfaces.NotificationRepository
	logger           *zap.Logger
}

func NewStatsService(
	userRepo interfaces.UserRepository,
	progressRepo interfaces.ProgressRepository,
	storyRepo interfaces.StoryRepository,
	notificationRepo interfaces.NotificationRepository,
	logger *zap.Logger,
) StatsService {
	return &statsServiceImpl{
		userRepo:         userRepo,
		progressRepo:     progressRepo,
		storyRepo:        storyRepo,
		notificationRepo: notificationRepo,
		logger:           logger.Named("StatsService"),
	}
}

// Фиксированный порядок обхода, чтобы награды и попапы шли детерминированно.
var trophyKeys = []string{
	models.TrophyStoryBuilder,
	models.TrophyPublishedAuthor,
	models.TrophyCommunityReader,
	models.TrophyStoriesCompleted,
	models.TrophySecretEndings,
	models.TrophyPathsUnlocked,
}

var tierLadder = []models.Tier{models.TierBronze, models.TierSilver, models.TierGold, models.TierPlatinum}

// entryTotals - вклад одной записи прогресса в счетчики пользователя.
type entryTotals struct {
	endings   int
	trueFound bool
	deaths    int
	secrets   int
}

// healEntry фильтрует находки по живым концовкам истории и перевыводит
// производные поля записи. Возвращает вклад записи и признак, что запись
// пришлось чинить.
func healEntry(entry *models.ProgressEntry, st *models.Story) (entryTotals, bool) {
	valid := make([]string, 0, len(entry.EndingsFound))
	seen := make(map[string]bool, len(entry.EndingsFound))
	var totals entryTotals

	for _, endingID := range entry.EndingsFound {
		if seen[endingID] {
			continue
		}
		ending := st.FindEnding(endingID)
		if ending == nil {
			continue
		}
		seen[endingID] = true
		valid = append(valid, endingID)
		switch ending.Type {
		case models.EndingTrue:
			totals.trueFound = true
		case models.EndingDeath:
			totals.deaths++
		case models.EndingSecret:
			totals.secrets++
		}
	}
	totals.endings = len(valid)

	changed := len(valid) != len(entry.EndingsFound) ||
		totals.trueFound != entry.TrueEndingFound ||
		totals.deaths != entry.DeathEndingCount
	entry.EndingsFound = valid
	entry.TrueEndingFound = totals.trueFound
	entry.DeathEndingCount = totals.deaths
	return totals, changed
}

func (s *statsServiceImpl) RecomputeUser(ctx context.Context, userID uuid.UUID) error {
	logFields := []zap.Field{zap.Stringer("userID", userID)}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ошибка загрузки пользователя для пересчета: %w", err)
	}
	entries, err := s.progressRepo.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("ошибка загрузки прогресса для пересчета: %w", err)
	}

	storyIDs := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		storyIDs = append(storyIDs, entry.StoryID)
	}
	stories, err := s.storyRepo.ListByIDs(ctx, storyIDs)
	if err != nil {
		return fmt.Errorf("ошибка загрузки историй для пересчета: %w", err)
	}
	storyByID := make(map[uuid.UUID]*models.Story, len(stories))
	for i := range stories {
		storyByID[stories[i].ID] = &stories[i]
	}

	var totalEndings, storiesCompleted, trueCount, deathTotal, secretCount, unlockCount, communityRead int
	for i := range entries {
		entry := &entries[i]
		st, ok := storyByID[entry.StoryID]
		if !ok {
			// История удалена; запись остается, но в счетчики не входит.
			continue
		}
		totals, changed := healEntry(entry, st)
		if changed {
			if err := s.progressRepo.SaveDerived(ctx, entry); err != nil {
				return fmt.Errorf("ошибка записи вычищенного прогресса: %w", err)
			}
			s.logger.Info("Healed progress entry", append(logFields, zap.Stringer("storyID", entry.StoryID))...)
		}

		totalEndings += totals.endings
		deathTotal += totals.deaths
		secretCount += totals.secrets
		if totals.trueFound {
			trueCount++
		}
		// Завершенной история считается, когда найдены все ее живые концовки.
		if len(st.Endings) > 0 && totals.endings >= len(st.Endings) {
			storiesCompleted++
		}
		// Читатель сообщества: любой прогресс по чужой пользовательской истории.
		// Собственные истории автора не в счет.
		if st.Origin == models.OriginUser && (st.AuthorID == nil || *st.AuthorID != userID) {
			communityRead++
		}
		unlockCount += len(entry.UnlockedChoices)
	}

	authorFilter := models.StoryFilter{Origin: models.OriginUser, AuthorID: &userID}
	authored, err := s.storyRepo.Count(ctx, authorFilter)
	if err != nil {
		return fmt.Errorf("ошибка подсчета созданных историй: %w", err)
	}
	publishedFilter := authorFilter
	publishedFilter.Statuses = []models.StoryStatus{models.StatusPublic}
	published, err := s.storyRepo.Count(ctx, publishedFilter)
	if err != nil {
		return fmt.Errorf("ошибка подсчета опубликованных историй: %w", err)
	}

	medals := cloneTiers(user.Medals)
	medals[models.MedalDeath] = models.MaxTier(medals[models.MedalDeath], models.ComputeTier(deathTotal, models.MedalDeathThresholds))
	medals[models.MedalTrueEnding] = models.MaxTier(medals[models.MedalTrueEnding], models.ComputeTier(trueCount, models.MedalTrueEndingThresholds))

	trophyValues := map[string]int{
		models.TrophyStoryBuilder:     authored,
		models.TrophyPublishedAuthor:  published,
		models.TrophyCommunityReader:  communityRead,
		models.TrophyStoriesCompleted: storiesCompleted,
		models.TrophySecretEndings:    secretCount,
		models.TrophyPathsUnlocked:    unlockCount,
	}

	trophies := cloneTiers(user.Trophies)
	totalReward := 0
	var pending []models.RewardNotification
	for _, key := range trophyKeys {
		cfg := models.TrophyTable[key]
		before := trophies[key]
		next := models.MaxTier(before, models.ComputeTier(trophyValues[key], cfg.Thresholds))
		if models.TierIndex(next) == models.TierIndex(before) {
			continue
		}
		trophies[key] = next
		// Каждый впервые пройденный уровень награждается ровно один раз,
		// даже если их взято несколько за один пересчет.
		for _, tier := range tierLadder {
			if models.TierIndex(tier) > models.TierIndex(before) && models.TierIndex(tier) <= models.TierIndex(next) {
				reward := cfg.Rewards[tier]
				totalReward += reward
				pending = append(pending, models.RewardNotification{
					Message:       fmt.Sprintf("%s: %s", cfg.Message, tier),
					Amount:        reward,
					CurrencyLabel: cfg.CurrencyLabel,
				})
			}
		}
	}

	if err := s.userRepo.SaveDerived(ctx, userID, totalEndings, storiesCompleted, medals, trophies); err != nil {
		return fmt.Errorf("ошибка записи пересчитанной статистики: %w", err)
	}

	if totalReward > 0 {
		if _, err := s.userRepo.AdjustCurrency(ctx, userID, models.CurrencyAuthor, totalReward); err != nil {
			// Уровни уже записаны, повторный пересчет награду не продублирует;
			// потерю фиксируем в логе.
			s.logger.Error("Failed to grant trophy rewards", append(logFields, zap.Int("amount", totalReward), zap.Error(err))...)
		}
		for _, n := range pending {
			if err := s.notificationRepo.Push(ctx, userID, n); err != nil {
				s.logger.Warn("Failed to push trophy notification", append(logFields, zap.Error(err))...)
			}
		}
	}

	s.logger.Debug("Recomputed user stats",
		append(logFields,
			zap.Int("totalEndings", totalEndings),
			zap.Int("storiesCompleted", storiesCompleted),
			zap.Int("trophyReward", totalReward))...)
	return nil
}

func (s *statsServiceImpl) GetProfile(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

func cloneTiers(src map[string]models.Tier) map[string]models.Tier {
	out := make(map[string]models.Tier, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
