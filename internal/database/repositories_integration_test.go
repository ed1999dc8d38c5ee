package database_test

import (
	"context"
	"testing"
	"time"

	"shadowpaths-server/internal/database"
	"shadowpaths-server/internal/interfaces"
	"shadowpaths-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// RepositoryTestSuite поднимает настоящий PostgreSQL в контейнере и гоняет
// репозитории по реальной схеме.
type RepositoryTestSuite struct {
	suite.Suite
	ctx          context.Context
	pgContainer  *postgres.PostgresContainer
	pool         *pgxpool.Pool
	storyRepo    interfaces.StoryRepository
	userRepo     interfaces.UserRepository
	progressRepo interfaces.ProgressRepository
	logger       *zap.Logger
}

func (s *RepositoryTestSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger = zap.NewNop()

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err, "Failed to connect to test postgres")

	require.NoError(s.T(), database.RunMigrations(s.ctx, s.pool, "migrations", s.logger))

	s.storyRepo = database.NewPgStoryRepository(s.pool, s.logger)
	s.userRepo = database.NewPgUserRepository(s.pool, s.logger)
	s.progressRepo = database.NewPgPlayerProgressRepository(s.pool, s.logger)
}

func (s *RepositoryTestSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

func (s *RepositoryTestSuite) newUser(username string) *models.User {
	user := &models.User{
		ID:       uuid.New(),
		Username: username,
		Email:    username + "@example.com",
		Currency: 100,
	}
	require.NoError(s.T(), s.userRepo.Create(s.ctx, user))
	return user
}

func (s *RepositoryTestSuite) newStory(title string) *models.Story {
	st := &models.Story{
		ID:          uuid.New(),
		Title:       title,
		Status:      models.StatusPublic,
		Origin:      models.OriginSystem,
		StartNodeID: "intro",
		Nodes: []models.Node{
			{
				ID:   "intro",
				Text: "start",
				Choices: []models.Choice{
					{ID: "c1", Label: "go", NextNodeID: "end"},
					{ID: "c2", Label: "pay", NextNodeID: "end", Locked: true, UnlockCost: 30},
				},
			},
		},
		Endings: []models.Ending{
			{ID: "end", Label: "End", Type: models.EndingTrue, Text: "done"},
		},
	}
	require.NoError(s.T(), s.storyRepo.Create(s.ctx, st))
	return st
}

func (s *RepositoryTestSuite) TestStoryAggregateRoundTrip() {
	st := s.newStory("Round Trip")

	got, err := s.storyRepo.GetByID(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Equal(st.Title, got.Title)
	s.Require().Len(got.Nodes, 1)
	s.Len(got.Nodes[0].Choices, 2)
	s.Require().Len(got.Endings, 1)
	s.Equal(models.EndingTrue, got.Endings[0].Type)

	got.Title = "Renamed"
	got.Nodes = append(got.Nodes, models.Node{ID: "second", Text: "more"})
	s.Require().NoError(s.storyRepo.Save(s.ctx, got))

	reread, err := s.storyRepo.GetByID(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Equal("Renamed", reread.Title)
	s.Len(reread.Nodes, 2)

	s.Require().NoError(s.storyRepo.Delete(s.ctx, st.ID))
	_, err = s.storyRepo.GetByID(s.ctx, st.ID)
	s.ErrorIs(err, models.ErrStoryNotFound)
}

func (s *RepositoryTestSuite) TestStoryListFilterAndOrder() {
	author := s.newUser("list-author")

	a := s.newStory("Catalog A")
	b := s.newStory("Catalog B")

	mine := s.newStory("Authored")
	mine.Origin = models.OriginUser
	mine.AuthorID = &author.ID
	mine.Status = models.StatusPrivate
	s.Require().NoError(s.storyRepo.Save(s.ctx, mine))

	byAuthor, err := s.storyRepo.List(s.ctx, models.StoryFilter{Origin: models.OriginUser, AuthorID: &author.ID})
	s.Require().NoError(err)
	s.Require().Len(byAuthor, 1)
	s.Equal(mine.ID, byAuthor[0].ID)
	s.Equal(1, byAuthor[0].EndingsTotal)

	n, err := s.storyRepo.Count(s.ctx, models.StoryFilter{Origin: models.OriginUser, AuthorID: &author.ID})
	s.Require().NoError(err)
	s.Equal(1, n)

	// Витрина управляется плотным display_order
	s.Require().NoError(s.storyRepo.SetDisplayOrder(s.ctx, []uuid.UUID{b.ID, a.ID}))
	public, err := s.storyRepo.List(s.ctx, models.StoryFilter{Statuses: []models.StoryStatus{models.StatusPublic}})
	s.Require().NoError(err)
	s.Require().GreaterOrEqual(len(public), 2)
	s.Equal(b.ID, public[0].ID)
	s.Equal(a.ID, public[1].ID)
}

func (s *RepositoryTestSuite) TestAdjustCurrency() {
	user := s.newUser("wallet")

	balance, err := s.userRepo.AdjustCurrency(s.ctx, user.ID, models.CurrencyReader, -40)
	s.Require().NoError(err)
	s.Equal(60, balance)

	// Недостаточно средств: баланс не трогается
	_, err = s.userRepo.AdjustCurrency(s.ctx, user.ID, models.CurrencyReader, -100)
	var fundsErr *models.InsufficientFundsError
	s.Require().ErrorAs(err, &fundsErr)
	s.Equal(60, fundsErr.Balance)

	got, err := s.userRepo.GetByID(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(60, got.Currency)

	// Авторский кошелек независим
	balance, err = s.userRepo.AdjustCurrency(s.ctx, user.ID, models.CurrencyAuthor, 15)
	s.Require().NoError(err)
	s.Equal(15, balance)
}

func (s *RepositoryTestSuite) TestDiscoverEndingIsFirstOnlyOnce() {
	user := s.newUser("discoverer")
	st := s.newStory("Discovery")

	first, err := s.progressRepo.DiscoverEnding(s.ctx, user.ID, st.ID, "end", models.EndingTrue)
	s.Require().NoError(err)
	s.True(first)

	again, err := s.progressRepo.DiscoverEnding(s.ctx, user.ID, st.ID, "end", models.EndingTrue)
	s.Require().NoError(err)
	s.False(again)

	entry, err := s.progressRepo.Get(s.ctx, user.ID, st.ID)
	s.Require().NoError(err)
	s.Equal([]string{"end"}, entry.EndingsFound)
	s.True(entry.TrueEndingFound)
	s.Equal("", entry.LastNodeID, "ending clears the continue pointer")
}

func (s *RepositoryTestSuite) TestUnlockChoiceChargeCycle() {
	user := s.newUser("unlocker") // стартовые 100 монет
	st := s.newStory("Paid Path")
	key := models.UnlockKey("intro", "c2")

	outcome, err := s.progressRepo.UnlockChoice(s.ctx, user.ID, st.ID, "intro", key, 30, models.CurrencyReader)
	s.Require().NoError(err)
	s.False(outcome.AlreadyUnlocked)
	s.Equal(30, outcome.Charged)
	s.Equal(70, outcome.NewBalance)

	// Повтор не списывает
	outcome, err = s.progressRepo.UnlockChoice(s.ctx, user.ID, st.ID, "intro", key, 30, models.CurrencyReader)
	s.Require().NoError(err)
	s.True(outcome.AlreadyUnlocked)
	s.Equal(70, outcome.NewBalance)

	// Нехватка средств откатывает и запись ключа
	expensive := models.UnlockKey("intro", "c3")
	_, err = s.progressRepo.UnlockChoice(s.ctx, user.ID, st.ID, "intro", expensive, 500, models.CurrencyReader)
	var fundsErr *models.InsufficientFundsError
	s.Require().ErrorAs(err, &fundsErr)

	entry, err := s.progressRepo.Get(s.ctx, user.ID, st.ID)
	s.Require().NoError(err)
	s.Equal([]string{key}, entry.UnlockedChoices)
}

func (s *RepositoryTestSuite) TestVisitResetAndFanOut() {
	user := s.newUser("visitor")
	st := s.newStory("Visits")

	s.Require().NoError(s.progressRepo.VisitNode(s.ctx, user.ID, st.ID, "intro"))
	entry, err := s.progressRepo.Get(s.ctx, user.ID, st.ID)
	s.Require().NoError(err)
	s.Equal("intro", entry.LastNodeID)

	readers, err := s.progressRepo.ListUserIDsByStory(s.ctx, st.ID)
	s.Require().NoError(err)
	s.Contains(readers, user.ID)

	s.Require().NoError(s.progressRepo.Reset(s.ctx, user.ID, st.ID))
	entry, err = s.progressRepo.Get(s.ctx, user.ID, st.ID)
	s.Require().NoError(err)
	s.Empty(entry.EndingsFound)
	s.Equal("", entry.LastNodeID)
}

func TestRepositoryIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(RepositoryTestSuite))
}
