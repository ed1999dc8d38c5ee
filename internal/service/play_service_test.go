package service_test

import (
	"context"
	"testing"

	"shadowpaths-server/internal/interfaces/mocks"
	"shadowpaths-server/internal/messaging"
	"shadowpaths-server/internal/models"
	"shadowpaths-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type playMocks struct {
	storyRepo        *mocks.StoryRepository
	progressRepo     *mocks.ProgressRepository
	userRepo         *mocks.UserRepository
	notificationRepo *mocks.NotificationRepository
	publisher        *mocks.RecomputePublisher
}

func newPlayService() (service.PlayService, *playMocks) {
	m := &playMocks{
		storyRepo:        new(mocks.StoryRepository),
		progressRepo:     new(mocks.ProgressRepository),
		userRepo:         new(mocks.UserRepository),
		notificationRepo: new(mocks.NotificationRepository),
		publisher:        new(mocks.RecomputePublisher),
	}
	svc := service.NewPlayService(m.storyRepo, m.progressRepo, m.userRepo, m.notificationRepo, m.publisher, zap.NewNop())
	return svc, m
}

// playableStory builds a public story with one node, one locked choice and
// one true ending.
func playableStory(origin models.StoryOrigin) *models.Story {
	return &models.Story{
		ID:          uuid.New(),
		Title:       "Playable",
		Status:      models.StatusPublic,
		Origin:      origin,
		StartNodeID: "intro",
		Nodes: []models.Node{
			{
				ID:   "intro",
				Text: "start here",
				Choices: []models.Choice{
					{ID: "ch-free", Label: "Walk in", NextNodeID: "victory"},
					{ID: "ch-paid", Label: "Bribe the guard", NextNodeID: "victory", Locked: true, UnlockCost: 25},
				},
			},
		},
		Endings: []models.Ending{
			{ID: "victory", Label: "Victory", Type: models.EndingTrue, Text: "won"},
		},
	}
}

func TestGetStory(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	t.Run("new reader gets empty progress", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginSystem)
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.progressRepo.On("Get", ctx, userID, st.ID).Return(nil, models.ErrNotFound).Once()

		got, entry, err := svc.GetStory(ctx, userID, st.ID)
		require.NoError(t, err)
		assert.Equal(t, st.ID, got.ID)
		assert.Empty(t, entry.EndingsFound)
		assert.Equal(t, "", entry.LastNodeID)
	})

	t.Run("continue pointer to a deleted node is hidden", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginSystem)
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.progressRepo.On("Get", ctx, userID, st.ID).Return(&models.ProgressEntry{
			UserID: userID, StoryID: st.ID, LastNodeID: "gone",
		}, nil).Once()

		_, entry, err := svc.GetStory(ctx, userID, st.ID)
		require.NoError(t, err)
		assert.Equal(t, "", entry.LastNodeID)
	})

	t.Run("non-public story is not playable", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginSystem)
		st.Status = models.StatusComingSoon
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()

		_, _, err := svc.GetStory(ctx, userID, st.ID)
		assert.ErrorIs(t, err, service.ErrStoryNotPlayable)
	})
}

func TestVisitEnding(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	t.Run("first discovery in a community story rewards the reader", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginUser)
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.progressRepo.On("DiscoverEnding", ctx, userID, st.ID, "victory", models.EndingTrue).Return(true, nil).Once()
		m.userRepo.On("AdjustCurrency", ctx, userID, models.CurrencyAuthor, service.ReaderEndingReward).Return(35, nil).Once()
		m.notificationRepo.On("Push", ctx, userID, mock.MatchedBy(func(n models.RewardNotification) bool {
			return n.Amount == service.ReaderEndingReward
		})).Return(nil).Once()
		m.publisher.On("PublishRecomputeTask", ctx, mock.MatchedBy(func(p messaging.RecomputeTaskPayload) bool {
			return p.Reason == "ending_discovered" && len(p.UserIDs) == 1 && p.UserIDs[0] == userID
		})).Return(nil).Once()

		first, err := svc.VisitEnding(ctx, userID, st.ID, "victory")
		require.NoError(t, err)
		assert.True(t, first)

		m.userRepo.AssertExpectations(t)
		m.publisher.AssertExpectations(t)
	})

	t.Run("repeat discovery pays nothing", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginUser)
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.progressRepo.On("DiscoverEnding", ctx, userID, st.ID, "victory", models.EndingTrue).Return(false, nil).Once()

		first, err := svc.VisitEnding(ctx, userID, st.ID, "victory")
		require.NoError(t, err)
		assert.False(t, first)

		m.userRepo.AssertNotCalled(t, "AdjustCurrency", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		m.publisher.AssertNotCalled(t, "PublishRecomputeTask", mock.Anything, mock.Anything)
	})

	t.Run("curated story grants no reader reward", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginSystem)
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.progressRepo.On("DiscoverEnding", ctx, userID, st.ID, "victory", models.EndingTrue).Return(true, nil).Once()
		m.publisher.On("PublishRecomputeTask", ctx, mock.Anything).Return(nil).Once()

		first, err := svc.VisitEnding(ctx, userID, st.ID, "victory")
		require.NoError(t, err)
		assert.True(t, first)

		m.userRepo.AssertNotCalled(t, "AdjustCurrency", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown ending", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginSystem)
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()

		_, err := svc.VisitEnding(ctx, userID, st.ID, "ghost")
		assert.ErrorIs(t, err, models.ErrEndingNotFound)
	})
}

func TestUnlockChoice(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	t.Run("locked choice is charged once through the conditional cycle", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginSystem)
		key := models.UnlockKey("intro", "ch-paid")
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.progressRepo.On("UnlockChoice", ctx, userID, st.ID, "intro", key, 25, models.CurrencyReader).
			Return(&models.UnlockOutcome{Charged: 25, NewBalance: 75}, nil).Once()
		m.publisher.On("PublishRecomputeTask", ctx, mock.MatchedBy(func(p messaging.RecomputeTaskPayload) bool {
			return p.Reason == "choice_unlocked"
		})).Return(nil).Once()

		outcome, err := svc.UnlockChoice(ctx, userID, st.ID, "intro", "ch-paid")
		require.NoError(t, err)
		assert.Equal(t, 25, outcome.Charged)
		assert.Equal(t, 75, outcome.NewBalance)
		m.progressRepo.AssertExpectations(t)
	})

	t.Run("community story charges the author-currency pool", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginUser)
		key := models.UnlockKey("intro", "ch-paid")
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.progressRepo.On("UnlockChoice", ctx, userID, st.ID, "intro", key, 25, models.CurrencyAuthor).
			Return(&models.UnlockOutcome{Charged: 25, NewBalance: 5}, nil).Once()
		m.publisher.On("PublishRecomputeTask", ctx, mock.Anything).Return(nil).Once()

		_, err := svc.UnlockChoice(ctx, userID, st.ID, "intro", "ch-paid")
		require.NoError(t, err)
		m.progressRepo.AssertExpectations(t)
	})

	t.Run("already unlocked repeats without charge or recompute", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginSystem)
		key := models.UnlockKey("intro", "ch-paid")
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.progressRepo.On("UnlockChoice", ctx, userID, st.ID, "intro", key, 25, models.CurrencyReader).
			Return(&models.UnlockOutcome{AlreadyUnlocked: true, NewBalance: 100}, nil).Once()

		outcome, err := svc.UnlockChoice(ctx, userID, st.ID, "intro", "ch-paid")
		require.NoError(t, err)
		assert.True(t, outcome.AlreadyUnlocked)
		assert.Equal(t, 0, outcome.Charged)
		m.publisher.AssertNotCalled(t, "PublishRecomputeTask", mock.Anything, mock.Anything)
	})

	t.Run("insufficient funds bubbles up untouched", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginSystem)
		key := models.UnlockKey("intro", "ch-paid")
		fundsErr := &models.InsufficientFundsError{Cost: 25, Balance: 10}
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.progressRepo.On("UnlockChoice", ctx, userID, st.ID, "intro", key, 25, models.CurrencyReader).
			Return(nil, fundsErr).Once()

		_, err := svc.UnlockChoice(ctx, userID, st.ID, "intro", "ch-paid")
		var want *models.InsufficientFundsError
		require.ErrorAs(t, err, &want)
		assert.Equal(t, 25, want.Cost)
		assert.Equal(t, 10, want.Balance)
	})

	t.Run("unlocking a free choice touches no state", func(t *testing.T) {
		svc, m := newPlayService()
		st := playableStory(models.OriginSystem)
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.userRepo.On("GetByID", ctx, userID).Return(&models.User{ID: userID, Currency: 40}, nil).Once()

		outcome, err := svc.UnlockChoice(ctx, userID, st.ID, "intro", "ch-free")
		require.NoError(t, err)
		assert.True(t, outcome.AlreadyUnlocked)
		assert.Equal(t, 40, outcome.NewBalance)
		m.progressRepo.AssertNotCalled(t, "UnlockChoice", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestVisitNode(t *testing.T) {
	userID := uuid.New()
	ctx := context.Background()

	svc, m := newPlayService()
	st := playableStory(models.OriginSystem)
	m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Twice()
	m.progressRepo.On("VisitNode", ctx, userID, st.ID, "intro").Return(nil).Once()

	require.NoError(t, svc.VisitNode(ctx, userID, st.ID, "intro"))
	assert.ErrorIs(t, svc.VisitNode(ctx, userID, st.ID, "ghost"), models.ErrNodeNotFound)
	m.progressRepo.AssertExpectations(t)
}
