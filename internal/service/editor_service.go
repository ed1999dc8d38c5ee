package service

import (
	"context"
	"fmt"
	"io"

	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/models"
	"shadowpaths-server/internal/story"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EditorService определяет интерфейс авторского редактора: черновики,
// мутации графа, подача на модерацию, библиотека картинок.
//
// Все мутации идут по одной схеме: загрузить агрегат, проверить права и
// статус, применить операцию графа, сохранить агрегат целиком.
type EditorService interface {
	CreateDraft(ctx context.Context, authorID uuid.UUID, title string) (*models.Story, error)
	GetForAuthor(ctx context.Context, authorID, storyID uuid.UUID) (*models.Story, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.StorySummary, error)

	// Autosave полностью замещает редактируемые поля агрегата содержимым
	// черновика. Висячие переходы и незавершенность допустимы; структурные
	// нарушения (пустые и дублирующиеся id) отклоняются целиком.
	Autosave(ctx context.Context, authorID, storyID uuid.UUID, draft *models.Story) (*models.Story, error)

	AddNode(ctx context.Context, authorID, storyID uuid.UUID, node models.Node) (*models.Node, error)
	RenameNode(ctx context.Context, authorID, storyID uuid.UUID, oldID, newID string) error
	DeleteNode(ctx context.Context, authorID, storyID uuid.UUID, nodeID string) error

	AddEnding(ctx context.Context, authorID, storyID uuid.UUID, ending models.Ending) (*models.Ending, error)
	RenameEnding(ctx context.Context, authorID, storyID uuid.UUID, oldID, newID string) error
	DeleteEnding(ctx context.Context, authorID, storyID uuid.UUID, endingID string) error

	AddChoice(ctx context.Context, authorID, storyID uuid.UUID, nodeID, label, nextNodeID string, locked bool, unlockCost int) (*models.Choice, error)
	UpdateChoice(ctx context.Context, authorID, storyID uuid.UUID, nodeID, choiceID, label, nextNodeID string, locked bool, unlockCost int) error
	DeleteChoice(ctx context.Context, authorID, storyID uuid.UUID, nodeID, choiceID string) error

	ReorderNodes(ctx context.Context, authorID, storyID uuid.UUID, idsInOrder []string) error
	ReorderEndings(ctx context.Context, authorID, storyID uuid.UUID, idsInOrder []string) error
	SetStart(ctx context.Context, authorID, storyID uuid.UUID, nodeID string) error

	// Submit проводит строгую проверку (завершенность, разрешенные переходы)
	// и отправляет историю на модерацию.
	Submit(ctx context.Context, authorID, storyID uuid.UUID) error

	// SetPrivate снимает историю с модерации или из публичного каталога.
	SetPrivate(ctx context.Context, authorID, storyID uuid.UUID) error

	UploadImage(ctx context.Context, authorID, storyID uuid.UUID, filename string, r io.Reader, title string) (*models.ImageAsset, error)
	DeleteImage(ctx context.Context, authorID, storyID uuid.UUID, storageID string) error
}

type editorServiceImpl struct {
	storyRepo interfaces.StoryRepository
	storage   interfaces.ObjectStorage
	logger    *zap.Logger
}

func NewEditorService(storyRepo interfaces.StoryRepository, storage interfaces.ObjectStorage, logger *zap.Logger) EditorService {
	return &editorServiceImpl{
		storyRepo: storyRepo,
		storage:   storage,
		logger:    logger.Named("EditorService"),
	}
}

// loadOwned загружает историю и проверяет, что она принадлежит автору.
func (s *editorServiceImpl) loadOwned(ctx context.Context, authorID, storyID uuid.UUID) (*models.Story, error) {
	st, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if st.AuthorID == nil || *st.AuthorID != authorID {
		return nil, models.ErrForbidden
	}
	return st, nil
}

// loadEditable дополнительно требует редактируемый статус: отправленную или
// опубликованную историю автор сперва возвращает в private.
func (s *editorServiceImpl) loadEditable(ctx context.Context, authorID, storyID uuid.UUID) (*models.Story, error) {
	st, err := s.loadOwned(ctx, authorID, storyID)
	if err != nil {
		return nil, err
	}
	if st.Status != models.StatusPrivate {
		return nil, ErrStoryNotEditable
	}
	return st, nil
}

// mutate применяет операцию графа к редактируемой истории и сохраняет агрегат.
func (s *editorServiceImpl) mutate(ctx context.Context, authorID, storyID uuid.UUID, fn func(*models.Story) error) error {
	st, err := s.loadEditable(ctx, authorID, storyID)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return s.storyRepo.Save(ctx, st)
}

func (s *editorServiceImpl) CreateDraft(ctx context.Context, authorID uuid.UUID, title string) (*models.Story, error) {
	if title == "" {
		title = "Untitled Story"
	}
	st := &models.Story{
		ID:         uuid.New(),
		Title:      title,
		Status:     models.StatusPrivate,
		Origin:     models.OriginUser,
		AuthorID:   &authorID,
		Categories: []string{},
		Images:     []models.ImageAsset{},
	}
	// Черновик начинается с одного стартового узла.
	if _, err := story.AddNode(st, models.Node{}); err != nil {
		return nil, err
	}
	if err := s.storyRepo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("ошибка создания черновика: %w", err)
	}
	s.logger.Info("Draft created", zap.Stringer("storyID", st.ID), zap.Stringer("authorID", authorID))
	return st, nil
}

func (s *editorServiceImpl) GetForAuthor(ctx context.Context, authorID, storyID uuid.UUID) (*models.Story, error) {
	return s.loadOwned(ctx, authorID, storyID)
}

func (s *editorServiceImpl) ListByAuthor(ctx context.Context, authorID uuid.UUID) ([]models.StorySummary, error) {
	return s.storyRepo.List(ctx, models.StoryFilter{Origin: models.OriginUser, AuthorID: &authorID})
}

func (s *editorServiceImpl) Autosave(ctx context.Context, authorID, storyID uuid.UUID, draft *models.Story) (*models.Story, error) {
	st, err := s.loadEditable(ctx, authorID, storyID)
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
	return st, nil
}

func (s *editorServiceImpl) AddNode(ctx context.Context, authorID, storyID uuid.UUID, node models.Node) (*models.Node, error) {
	var added *models.Node
	err := s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		var err error
		added, err = story.AddNode(st, node)
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *editorServiceImpl) RenameNode(ctx context.Context, authorID, storyID uuid.UUID, oldID, newID string) error {
	return s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		return story.RenameNode(st, oldID, newID)
	})
}

func (s *editorServiceImpl) DeleteNode(ctx context.Context, authorID, storyID uuid.UUID, nodeID string) error {
	return s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		return story.DeleteNode(st, nodeID)
	})
}

func (s *editorServiceImpl) AddEnding(ctx context.Context, authorID, storyID uuid.UUID, ending models.Ending) (*models.Ending, error) {
	var added *models.Ending
	err := s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		var err error
		added, err = story.AddEnding(st, ending)
		return err
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *editorServiceImpl) RenameEnding(ctx context.Context, authorID, storyID uuid.UUID, oldID, newID string) error {
	return s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		return story.RenameEnding(st, oldID, newID)
	})
}

func (s *editorServiceImpl) DeleteEnding(ctx context.Context, authorID, storyID uuid.UUID, endingID string) error {
	return s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		return story.DeleteEnding(st, endingID)
	})
}

func (s *editorServiceImpl) AddChoice(ctx context.Context, authorID, storyID uuid.UUID, nodeID, label, nextNodeID string, locked bool, unlockCost int) (*models.Choice, error) {
	var added *models.Choice
	err := s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		node := st.FindNode(nodeID)
		if node == nil {
			return models.ErrNodeNotFound
		}
		added = story.AddChoice(node, label, nextNodeID, locked, unlockCost)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func (s *editorServiceImpl) UpdateChoice(ctx context.Context, authorID, storyID uuid.UUID, nodeID, choiceID, label, nextNodeID string, locked bool, unlockCost int) error {
	return s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		node := st.FindNode(nodeID)
		if node == nil {
			return models.ErrNodeNotFound
		}
		return story.UpdateChoice(node, choiceID, label, nextNodeID, locked, unlockCost)
	})
}

func (s *editorServiceImpl) DeleteChoice(ctx context.Context, authorID, storyID uuid.UUID, nodeID, choiceID string) error {
	return s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		node := st.FindNode(nodeID)
		if node == nil {
			return models.ErrNodeNotFound
		}
		return story.DeleteChoice(node, choiceID)
	})
}

func (s *editorServiceImpl) ReorderNodes(ctx context.Context, authorID, storyID uuid.UUID, idsInOrder []string) error {
	return s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		story.ReorderNodes(st, idsInOrder)
		return nil
	})
}

func (s *editorServiceImpl) ReorderEndings(ctx context.Context, authorID, storyID uuid.UUID, idsInOrder []string) error {
	return s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		story.ReorderEndings(st, idsInOrder)
		return nil
	})
}

func (s *editorServiceImpl) SetStart(ctx context.Context, authorID, storyID uuid.UUID, nodeID string) error {
	return s.mutate(ctx, authorID, storyID, func(st *models.Story) error {
		if st.FindNode(nodeID) == nil {
			return models.ErrNodeNotFound
		}
		st.StartNodeID = nodeID
		return nil
	})
}

func (s *editorServiceImpl) Submit(ctx context.Context, authorID, storyID uuid.UUID) error {
	st, err := s.loadOwned(ctx, authorID, storyID)
	if err != nil {
		return err
	}
	if st.Status != models.StatusPrivate {
		return ErrInvalidStatusTransition
	}
	if errs := story.Validate(st, story.ValidateOptions{RequireComplete: true, RequireResolvedDestinations: true}); len(errs) > 0 {
		return &models.ValidationError{Messages: errs}
	}
	if err := s.storyRepo.UpdateStatus(ctx, storyID, models.StatusPending); err != nil {
		return err
	}
	s.logger.Info("Story submitted for review", zap.Stringer("storyID", storyID), zap.Stringer("authorID", authorID))
	return nil
}

func (s *editorServiceImpl) SetPrivate(ctx context.Context, authorID, storyID uuid.UUID) error {
	st, err := s.loadOwned(ctx, authorID, storyID)
	if err != nil {
		return err
	}
	switch st.Status {
	case models.StatusPending, models.StatusUnderReview, models.StatusPublic:
		// допустимые исходные статусы
	case models.StatusPrivate:
		return nil
	default:
		return ErrInvalidStatusTransition
	}
	if err := s.storyRepo.UpdateStatus(ctx, storyID, models.StatusPrivate); err != nil {
		return err
	}
	s.logger.Info("Story withdrawn to private", zap.Stringer("storyID", storyID), zap.Stringer("authorID", authorID))
	return nil
}

func (s *editorServiceImpl) UploadImage(ctx context.Context, authorID, storyID uuid.UUID, filename string, r io.Reader, title string) (*models.ImageAsset, error) {
	st, err := s.loadEditable(ctx, authorID, storyID)
	if err != nil {
		return nil, err
	}

	obj, err := s.storage.Upload(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки файла: %w", err)
	}
	asset := models.ImageAsset{URL: obj.URL, StorageID: obj.StorageID, Title: title}
	st.Images = append(st.Images, asset)

	if err := s.storyRepo.Save(ctx, st); err != nil {
		// Агрегат не записался: подчищаем уже загруженный файл.
		if delErr := s.storage.Delete(ctx, obj.StorageID); delErr != nil {
			s.logger.Warn("Failed to clean up orphaned upload", zap.String("storageID", obj.StorageID), zap.Error(delErr))
		}
		return nil, err
	}
	return &asset, nil
}

func (s *editorServiceImpl) DeleteImage(ctx context.Context, authorID, storyID uuid.UUID, storageID string) error {
	st, err := s.loadEditable(ctx, authorID, storyID)
	if err != nil {
		return err
	}

	idx := -1
	for i := range st.Images {
		if st.Images[i].StorageID == storageID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.ErrNotFound
	}
	st.Images = append(st.Images[:idx], st.Images[idx+1:]...)

	if err := s.storyRepo.Save(ctx, st); err != nil {
		return err
	}
	// Файл удаляем после записи агрегата; в худшем случае остается
	// осиротевший файл, а не битая ссылка в истории.
	if err := s.storage.Delete(ctx, storageID); err != nil {
		s.logger.Warn("Failed to delete stored image", zap.String("storageID", storageID), zap.Error(err))
	}
	return nil
}
