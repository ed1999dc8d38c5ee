package mocks

import (
	"context"

	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryRepository) Create(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}
func (m *StoryRepository) Save(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}
func (m *StoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *StoryRepository) List(ctx context.Context, filter models.StoryFilter) ([]models.StorySummary, error) {
	args := m.Called(ctx, filter)
	summaries, _ := args.Get(0).([]models.StorySummary)
	return summaries, args.Error(1)
}
func (m *StoryRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Story, error) {
	args := m.Called(ctx, ids)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}
func (m *StoryRepository) Count(ctx context.Context, filter models.StoryFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}
func (m *StoryRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.StoryStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *StoryRepository) SetDisplayOrder(ctx context.Context, orderedIDs []uuid.UUID) error {
	args := m.Called(ctx, orderedIDs)
	return args.Error(0)
}

// Mock UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}
func (m *UserRepository) List(ctx context.Context, q string) ([]models.User, error) {
	args := m.Called(ctx, q)
	users, _ := args.Get(0).([]models.User)
	return users, args.Error(1)
}
func (m *UserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}
func (m *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, username, email string, role models.Role, currency int) error {
	args := m.Called(ctx, id, username, email, role, currency)
	return args.Error(0)
}
func (m *UserRepository) SetRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}
func (m *UserRepository) AdjustCurrency(ctx context.Context, id uuid.UUID, kind models.CurrencyKind, delta int) (int, error) {
	args := m.Called(ctx, id, kind, delta)
	return args.Int(0), args.Error(1)
}
func (m *UserRepository) SaveDerived(ctx context.Context, id uuid.UUID, totalEndingsFound, storiesRead int, medals, trophies map[string]models.Tier) error {
	args := m.Called(ctx, id, totalEndingsFound, storiesRead, medals, trophies)
	return args.Error(0)
}

// Mock ProgressRepository
type ProgressRepository struct {
	mock.Mock
}

func (m *ProgressRepository) Get(ctx context.Context, userID, storyID uuid.UUID) (*models.ProgressEntry, error) {
	args := m.Called(ctx, userID, storyID)
	entry, _ := args.Get(0).(*models.ProgressEntry)
	return entry, args.Error(1)
}
func (m *ProgressRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ProgressEntry, error) {
	args := m.Called(ctx, userID)
	entries, _ := args.Get(0).([]models.ProgressEntry)
	return entries, args.Error(1)
}
func (m *ProgressRepository) ListUserIDsByStory(ctx context.Context, storyID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, storyID)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}
func (m *ProgressRepository) VisitNode(ctx context.Context, userID, storyID uuid.UUID, nodeID string) error {
	args := m.Called(ctx, userID, storyID, nodeID)
	return args.Error(0)
}
func (m *ProgressRepository) DiscoverEnding(ctx context.Context, userID, storyID uuid.UUID, endingID string, endingType models.EndingType) (bool, error) {
	args := m.Called(ctx, userID, storyID, endingID, endingType)
	return args.Bool(0), args.Error(1)
}
func (m *ProgressRepository) UnlockChoice(ctx context.Context, userID, storyID uuid.UUID, nodeID, key string, cost int, kind models.CurrencyKind) (*models.UnlockOutcome, error) {
	args := m.Called(ctx, userID, storyID, nodeID, key, cost, kind)
	outcome, _ := args.Get(0).(*models.UnlockOutcome)
	return outcome, args.Error(1)
}
func (m *ProgressRepository) SaveDerived(ctx context.Context, entry *models.ProgressEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
func (m *ProgressRepository) Reset(ctx context.Context, userID, storyID uuid.UUID) error {
	args := m.Called(ctx, userID, storyID)
	return args.Error(0)
}

// Mock NotificationRepository
type NotificationRepository struct {
	mock.Mock
}

func (m *NotificationRepository) Push(ctx context.Context, userID uuid.UUID, n models.RewardNotification) error {
	args := m.Called(ctx, userID, n)
	return args.Error(0)
}
func (m *NotificationRepository) Pop(ctx context.Context, userID uuid.UUID) ([]models.RewardNotification, error) {
	args := m.Called(ctx, userID)
	notifications, _ := args.Get(0).([]models.RewardNotification)
	return notifications, args.Error(1)
}
