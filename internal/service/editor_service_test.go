package service_test

import (
	"context"
	"testing"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/interfaces/mocks"
	"shadowpaths-server/internal/models"
	"shadowpaths-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEditorService() (service.EditorService, *mocks.StoryRepository, *mocks.ObjectStorage) {
	storyRepo := new(mocks.StoryRepository)
	storage := new(mocks.ObjectStorage)
	return service.NewEditorService(storyRepo, storage, zap.NewNop()), storyRepo, storage
}

// draftStory builds a private user-authored story owned by the given author.
func draftStory(authorID uuid.UUID) *models.Story {
	s := playableStory(models.OriginUser)
	s.Status = models.StatusPrivate
	s.AuthorID = &authorID
	return s
}

func TestCreateDraft(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	svc, storyRepo, _ := newEditorService()

	storyRepo.On("Create", ctx, mock.MatchedBy(func(s *models.Story) bool {
		return s.Status == models.StatusPrivate &&
			s.Origin == models.OriginUser &&
			s.AuthorID != nil && *s.AuthorID == authorID &&
			len(s.Nodes) == 1 && s.StartNodeID == s.Nodes[0].ID
	})).Return(nil).Once()

	st, err := svc.CreateDraft(ctx, authorID, "")
	require.NoError(t, err)
	assert.Equal(t, "Untitled Story", st.Title)
	assert.Equal(t, "passage-1", st.Nodes[0].ID)
	storyRepo.AssertExpectations(t)
}

func TestEditorAuthorization(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	stranger := uuid.New()

	t.Run("foreign story is forbidden", func(t *testing.T) {
		svc, storyRepo, _ := newEditorService()
		st := draftStory(authorID)
		storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()

		err := svc.RenameNode(ctx, stranger, st.ID, "intro", "prologue")
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("submitted story is not editable", func(t *testing.T) {
		svc, storyRepo, _ := newEditorService()
		st := draftStory(authorID)
		st.Status = models.StatusPending
		storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()

		err := svc.DeleteNode(ctx, authorID, st.ID, "intro")
		assert.ErrorIs(t, err, service.ErrStoryNotEditable)
	})
}

func TestEditorMutations(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()

	t.Run("rename cascades through the saved aggregate", func(t *testing.T) {
		svc, storyRepo, _ := newEditorService()
		st := draftStory(authorID)
		storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		storyRepo.On("Save", ctx, mock.MatchedBy(func(s *models.Story) bool {
			return s.FindNode("prologue") != nil && s.StartNodeID == "prologue"
		})).Return(nil).Once()

		require.NoError(t, svc.RenameNode(ctx, authorID, st.ID, "intro", "prologue"))
		storyRepo.AssertExpectations(t)
	})

	t.Run("failed graph operation saves nothing", func(t *testing.T) {
		svc, storyRepo, _ := newEditorService()
		st := draftStory(authorID)
		storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()

		err := svc.RenameNode(ctx, authorID, st.ID, "intro", "victory")
		assert.ErrorIs(t, err, models.ErrIDConflict)
		storyRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestAutosave(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()

	t.Run("replaces content and tolerates dangling destinations", func(t *testing.T) {
		svc, storyRepo, _ := newEditorService()
		st := draftStory(authorID)
		storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		storyRepo.On("Save", ctx, mock.Anything).Return(nil).Once()

		draft := &models.Story{
			Title: "  Renamed  ",
			Nodes: []models.Node{
				{ID: "solo", Text: "alone", Choices: []models.Choice{
					{ID: "c", Label: "jump", NextNodeID: "not-yet-created"},
				}},
			},
		}
		saved, err := svc.Autosave(ctx, authorID, st.ID, draft)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", saved.Title)
		assert.Equal(t, "solo", saved.StartNodeID, "start pointer repaired")
	})

	t.Run("structural violations reject the whole save", func(t *testing.T) {
		svc, storyRepo, _ := newEditorService()
		st := draftStory(authorID)
		storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()

		draft := &models.Story{
			Title: "x",
			Nodes: []models.Node{
				{ID: "dup", Text: "a"},
				{ID: "dup", Text: "b"},
			},
		}
		_, err := svc.Autosave(ctx, authorID, st.ID, draft)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		storyRepo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()

	t.Run("valid story goes to pending", func(t *testing.T) {
		svc, storyRepo, _ := newEditorService()
		st := draftStory(authorID)
		storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		storyRepo.On("UpdateStatus", ctx, st.ID, models.StatusPending).Return(nil).Once()

		require.NoError(t, svc.Submit(ctx, authorID, st.ID))
		storyRepo.AssertExpectations(t)
	})

	t.Run("incomplete story fails strict validation", func(t *testing.T) {
		svc, storyRepo, _ := newEditorService()
		st := draftStory(authorID)
		st.Endings = nil
		st.Nodes[0].Choices = nil
		storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()

		err := svc.Submit(ctx, authorID, st.ID)
		var verr *models.ValidationError
		require.ErrorAs(t, err, &verr)
		storyRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestImageLibrary(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()

	t.Run("upload stores the triple on the aggregate", func(t *testing.T) {
		svc, storyRepo, storage := newEditorService()
		st := draftStory(authorID)
		storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		storage.On("Upload", ctx, "cover.png", mock.Anything).
			Return(&interfaces.StoredObject{URL: "/uploads/cover.png", StorageID: "cover-123"}, nil).Once()
		storyRepo.On("Save", ctx, mock.MatchedBy(func(s *models.Story) bool {
			return len(s.Images) == 1 && s.Images[0].StorageID == "cover-123"
		})).Return(nil).Once()

		asset, err := svc.UploadImage(ctx, authorID, st.ID, "cover.png", nil, "Cover")
		require.NoError(t, err)
		assert.Equal(t, "/uploads/cover.png", asset.URL)
		assert.Equal(t, "Cover", asset.Title)
	})

	t.Run("delete removes the asset then the file", func(t *testing.T) {
		svc, storyRepo, storage := newEditorService()
		st := draftStory(authorID)
		st.Images = []models.ImageAsset{{URL: "/u/x.png", StorageID: "x-1", Title: "x"}}
		storyRepo.On("GetByID", ctx, st.ID).Return(st, nil).Once()
		storyRepo.On("Save", ctx, mock.MatchedBy(func(s *models.Story) bool {
			return len(s.Images) == 0
		})).Return(nil).Once()
		storage.On("Delete", ctx, "x-1").Return(nil).Once()

		require.NoError(t, svc.DeleteImage(ctx, authorID, st.ID, "x-1"))
		storage.AssertExpectations(t)
	})
}
