package services

import (
	"context"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/stretchr/testify/mock"
)

// MockQuestionRepository is a mock implementation of QuestionRepository
type MockQuestionRepository struct {
	mock.Mock
}

func (m *MockQuestionRepository) GetSet(ctx context.Context, setID string) (*models.QuestionSet, error) {
	args := m.Called(ctx, setID)
	if set := args.Get(0); set != nil {
		return set.(*models.QuestionSet).Clone(), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockQuestionRepository) ReplaceSet(ctx context.Context, set *models.QuestionSet) error {
	args := m.Called(ctx, set)
	return args.Error(0)
}

func (m *MockQuestionRepository) Delete(ctx context.Context, setID, questionID string) error {
	args := m.Called(ctx, setID, questionID)
	return args.Error(0)
}

// MockResultRepository is a mock implementation of ResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) Create(ctx context.Context, result *models.Result) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockResultRepository) GetByID(ctx context.Context, id string) (*models.Result, error) {
	args := m.Called(ctx, id)
	if r := args.Get(0); r != nil {
		return r.(*models.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockResultRepository) List(ctx context.Context, filters repositories.ResultFilters) ([]*models.Result, error) {
	args := m.Called(ctx, filters)
	if rs := args.Get(0); rs != nil {
		return rs.([]*models.Result), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockResultRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// testEnv bundles a service graph backed by mocks.
type testEnv struct {
	questionRepo *MockQuestionRepository
	resultRepo   *MockResultRepository
	publisher    *events.MockEventPublisher
	cache        cache.CacheService
	questions    QuestionService
	results      ResultService
	importExport ImportExportService
}

var fixedNow = time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := utils.NewNopLogger()
	v := validator.New()
	env := &testEnv{
		questionRepo: &MockQuestionRepository{},
		resultRepo:   &MockResultRepository{},
		publisher:    events.NewMockEventPublisher(nil),
		cache:        cache.NewMemoryCache(),
	}
	env.questions = NewQuestionService(env.questionRepo, env.cache, env.publisher, v, nil, logger, QuestionSetOptions{SetID: models.DefaultSetID})
	env.results = NewResultService(env.resultRepo, env.questions, env.publisher, v, nil, logger)
	env.results.(*resultService).now = func() time.Time { return fixedNow }
	env.importExport = NewImportExportService(env.questions, env.results, v, logger)

	t.Cleanup(func() {
		env.questionRepo.AssertExpectations(t)
		env.resultRepo.AssertExpectations(t)
	})
	return env
}

// sampleSet is a two question set worth 20 points.
func sampleSet() *models.QuestionSet {
	return &models.QuestionSet{
		ID: models.DefaultSetID,
		Questions: []models.Question{
			{ID: "q1", Type: models.QuestionBoolean, Question: "The sky is blue", Options: []string{}, Correct: "true", Points: 10},
			{ID: "q2", Type: models.QuestionTranslate, Question: "Translate: cat", Options: []string{}, Correct: "gato", Points: 10},
		},
	}
}
