package service_test

import (
	"context"
	"testing"

	"shadowpaths-server/internal/interfaces/mocks"
	"shadowpaths-server/internal/messaging"
	"shadowpaths-server/internal/models"
	"shadowpaths-server/internal/service"
	"shadowpaths-server/internal/story"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type adminMocks struct {
	storyRepo    *mocks.StoryRepository
	userRepo     *mocks.UserRepository
	progressRepo *mocks.ProgressRepository
	publisher    *mocks.RecomputePublisher
}

func newAdminService() (service.AdminService, *adminMocks) {
	m := &adminMocks{
		storyRepo:    new(mocks.StoryRepository),
		userRepo:     new(mocks.UserRepository),
		progressRepo: new(mocks.ProgressRepository),
		publisher:    new(mocks.RecomputePublisher),
	}
	svc := service.NewAdminService(m.storyRepo, m.userRepo, m.progressRepo, m.publisher, zap.NewNop())
	return svc, m
}

func TestAdminSaveStory(t *testing.T) {
	ctx := context.Background()

	t.Run("editing a public story fans out recomputation", func(t *testing.T) {
		svc, m := newAdminService()
		st := playableStory(models.OriginSystem)
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.storyRepo.On("Save", ctx, mock.Anything).Return(nil).Once()
		m.publisher.On("PublishRecomputeTask", ctx, mock.MatchedBy(func(p messaging.RecomputeTaskPayload) bool {
			return p.Reason == "admin_edit" && p.StoryID != nil && *p.StoryID == st.ID
		})).Return(nil).Once()

		draft := &models.Story{Title: "Edited", Nodes: st.Nodes, Endings: st.Endings}
		saved, err := svc.SaveStory(ctx, st.ID, draft)
		require.NoError(t, err)
		assert.Equal(t, "Edited", saved.Title)
		m.publisher.AssertExpectations(t)
	})

	t.Run("editing an invisible story skips recomputation", func(t *testing.T) {
		svc, m := newAdminService()
		st := playableStory(models.OriginSystem)
		st.Status = models.StatusInvisible
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.storyRepo.On("Save", ctx, mock.Anything).Return(nil).Once()

		_, err := svc.SaveStory(ctx, st.ID, &models.Story{Title: "x", Nodes: st.Nodes, Endings: st.Endings})
		require.NoError(t, err)
		m.publisher.AssertNotCalled(t, "PublishRecomputeTask", mock.Anything, mock.Anything)
	})
}

func TestAdminDeleteStory(t *testing.T) {
	ctx := context.Background()
	svc, m := newAdminService()
	storyID := uuid.New()
	readers := []uuid.UUID{uuid.New(), uuid.New()}

	// Читатели собираются ДО удаления.
	m.progressRepo.On("ListUserIDsByStory", ctx, storyID).Return(readers, nil).Once()
	m.storyRepo.On("Delete", ctx, storyID).Return(nil).Once()
	m.publisher.On("PublishRecomputeTask", ctx, mock.MatchedBy(func(p messaging.RecomputeTaskPayload) bool {
		return p.Reason == "story_deleted" && len(p.UserIDs) == 2
	})).Return(nil).Once()

	require.NoError(t, svc.DeleteStory(ctx, storyID))
	m.publisher.AssertExpectations(t)
}

func TestReviewWorkflow(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()

	t.Run("pending to under_review", func(t *testing.T) {
		svc, m := newAdminService()
		st := draftStory(authorID)
		st.Status = models.StatusPending
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.storyRepo.On("UpdateStatus", ctx, st.ID, models.StatusUnderReview).Return(nil).Once()

		require.NoError(t, svc.TakeInReview(ctx, st.ID))
	})

	t.Run("approval publishes and recomputes the author", func(t *testing.T) {
		svc, m := newAdminService()
		st := draftStory(authorID)
		st.Status = models.StatusUnderReview
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		m.storyRepo.On("UpdateStatus", ctx, st.ID, models.StatusPublic).Return(nil).Once()
		m.publisher.On("PublishRecomputeTask", ctx, mock.MatchedBy(func(p messaging.RecomputeTaskPayload) bool {
			return p.Reason == "story_published" && len(p.UserIDs) == 1 && p.UserIDs[0] == authorID
		})).Return(nil).Once()

		require.NoError(t, svc.ApproveStory(ctx, st.ID))
		m.publisher.AssertExpectations(t)
	})

	t.Run("cannot approve a private story", func(t *testing.T) {
		svc, m := newAdminService()
		st := draftStory(authorID)
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()

		err := svc.ApproveStory(ctx, st.ID)
		assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
		m.storyRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestAdminUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("publishing validates the graph", func(t *testing.T) {
		svc, m := newAdminService()
		st := playableStory(models.OriginSystem)
		st.Status = models.StatusInvisible
		st.Endings = nil // граф без концовок публиковать нельзя
		m.storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()

		err := svc.UpdateStatus(ctx, st.ID, models.StatusPublic)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("coming_soon needs no validation", func(t *testing.T) {
		svc, m := newAdminService()
		storyID := uuid.New()
		m.storyRepo.On("UpdateStatus", ctx, storyID, models.StatusComingSoon).Return(nil).Once()

		require.NoError(t, svc.UpdateStatus(ctx, storyID, models.StatusComingSoon))
	})

	t.Run("review statuses are not settable directly", func(t *testing.T) {
		svc, _ := newAdminService()
		err := svc.UpdateStatus(ctx, uuid.New(), models.StatusUnderReview)
		assert.ErrorIs(t, err, service.ErrInvalidStatusTransition)
	})
}

func TestImportSeed(t *testing.T) {
	ctx := context.Background()
	svc, m := newAdminService()

	seed := story.SeedStory{
		Title:       "Imported",
		StartNodeID: "a",
		Nodes:       []story.SeedNode{{ID: "a", Text: "x", Choices: []story.SeedChoice{{Label: "end", Next: "z"}}}},
		Endings:     []story.SeedEnding{{ID: "z", Label: "Z", Type: "death", Text: "dead"}},
	}
	m.storyRepo.On("Create", ctx, mock.MatchedBy(func(s *models.Story) bool {
		return s.Status == models.StatusInvisible && s.Origin == models.OriginSystem
	})).Return(nil).Once()

	st, err := svc.ImportSeed(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, models.EndingDeath, st.Endings[0].Type)
}

func TestClearProgress(t *testing.T) {
	ctx := context.Background()
	svc, m := newAdminService()
	userID, storyID := uuid.New(), uuid.New()

	m.progressRepo.On("Reset", ctx, userID, storyID).Return(nil).Once()
	m.publisher.On("PublishRecomputeTask", ctx, mock.MatchedBy(func(p messaging.RecomputeTaskPayload) bool {
		return p.Reason == "progress_cleared" && len(p.UserIDs) == 1 && p.UserIDs[0] == userID
	})).Return(nil).Once()

	require.NoError(t, svc.ClearProgress(ctx, userID, storyID))
	m.publisher.AssertExpectations(t)
}
