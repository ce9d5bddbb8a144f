package services

import (
	"context"
	"errors"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/SAP-F-2025/quiz-service/pkg/monitoring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQuestionService_GetQuestionSet_ReadsThroughCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.questionRepo.On("GetSet", mock.Anything, models.DefaultSetID).Return(sampleSet(), nil).Once()

	first, err := env.questions.GetQuestionSet(ctx)
	require.NoError(t, err)
	second, err := env.questions.GetQuestionSet(ctx)
	require.NoError(t, err)

	assert.Equal(t, sampleSet().Questions, first.Questions)
	assert.Equal(t, first, second)

	first.Questions[0].Question = "mutated"
	third, err := env.questions.GetQuestionSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The sky is blue", third.Questions[0].Question, "callers get copies")
}

func TestQuestionService_GetQuestionSet_AssignsLegacyIDs(t *testing.T) {
	env := newTestEnv(t)
	legacy := &models.QuestionSet{ID: models.DefaultSetID, Questions: []models.Question{
		{Type: models.QuestionTranslate, Question: "Translate: dog", Correct: "perro", Points: 5},
		{Type: models.QuestionTranslate, Question: "Translate: dog", Correct: "perro", Points: 5},
		{ID: "kept", Type: models.QuestionTranslate, Question: "Translate: cat", Correct: "gato", Points: 5},
	}}
	env.questionRepo.On("GetSet", mock.Anything, models.DefaultSetID).Return(legacy, nil).Once()

	set, err := env.questions.GetQuestionSet(context.Background())
	require.NoError(t, err)

	assert.Equal(t, models.StableQuestionID("Translate: dog"), set.Questions[0].ID)
	assert.NotEmpty(t, set.Questions[1].ID)
	assert.NotEqual(t, set.Questions[0].ID, set.Questions[1].ID)
	assert.Equal(t, "kept", set.Questions[2].ID)
}

func TestQuestionService_GetQuestionSet_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.questionRepo.On("GetSet", mock.Anything, models.DefaultSetID).
		Return(nil, repositories.ErrStoreUnavailable).Twice()

	_, err := env.questions.GetQuestionSet(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))

	_, err = env.questions.GetQuestionSet(context.Background())
	assert.True(t, IsTransport(err), "failures are not cached")
}

func TestQuestionService_SaveQuestionSet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	input := []models.Question{
		{Type: models.QuestionBoolean, Question: "Water is wet", Correct: "true"},
		{ID: "q2", Type: models.QuestionArrange, Question: "Order it", Options: []string{"am", "I"}, Correct: "I am", Points: 3},
	}

	env.questionRepo.On("ReplaceSet", mock.Anything, mock.MatchedBy(func(set *models.QuestionSet) bool {
		return set.ID == models.DefaultSetID &&
			len(set.Questions) == 2 &&
			set.Questions[0].ID != "" &&
			set.Questions[0].Points == models.DefaultPoints &&
			set.Questions[1].ID == "q2" &&
			set.Questions[1].Points == 3
	})).Return(nil).Once()

	saved, err := env.questions.SaveQuestionSet(ctx, input)
	require.NoError(t, err)
	require.Len(t, saved.Questions, 2)
	assert.Empty(t, input[0].ID, "input is not modified")

	// Served from the refreshed cache, GetSet is never called.
	reloaded, err := env.questions.GetQuestionSet(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, reloaded)

	published := env.publisher.EventsOfType(events.EventQuestionSetSaved)
	require.Len(t, published, 1)
	data, ok := published[0].Data.(events.QuestionSetSavedEvent)
	require.True(t, ok)
	assert.Equal(t, 2, data.QuestionCount)
	assert.Equal(t, float64(models.DefaultPoints+3), data.TotalPoints)
}

func TestQuestionService_SaveQuestionSet_InvalidWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	reg := prometheus.NewRegistry()
	metrics := monitoring.New(reg)
	env.questions = NewQuestionService(env.questionRepo, env.cache, env.publisher, validator.New(), metrics, utils.NewNopLogger(), QuestionSetOptions{})

	input := []models.Question{
		{ID: "ok", Type: models.QuestionTranslate, Question: "Hello", Correct: "hola"},
		{ID: "bad", Type: models.QuestionTranslate, Question: "Bye", Correct: "  "},
	}

	_, err := env.questions.SaveQuestionSet(context.Background(), input)
	require.Error(t, err)
	assert.True(t, IsValidation(err))
	assert.ErrorIs(t, err, ErrValidationFailed)

	var details ValidationErrors
	require.True(t, errors.As(err, &details))
	require.Len(t, details, 1)
	assert.Equal(t, "questions[1].correct", details[0].Field)

	env.questionRepo.AssertNotCalled(t, "ReplaceSet", mock.Anything, mock.Anything)
	assert.Empty(t, env.publisher.GetPublishedEvents())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.QuestionSetSaves.WithLabelValues("invalid")))
}

func TestQuestionService_SaveQuestionSet_StoreFailure(t *testing.T) {
	env := newTestEnv(t)
	env.questionRepo.On("ReplaceSet", mock.Anything, mock.Anything).
		Return(repositories.ErrStoreUnavailable).Once()

	_, err := env.questions.SaveQuestionSet(context.Background(), sampleSet().Questions)
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.Empty(t, env.publisher.GetPublishedEvents())
}

func TestQuestionService_SaveQuestionSet_StoreFailureDropsCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.questionRepo.On("GetSet", mock.Anything, models.DefaultSetID).Return(sampleSet(), nil).Twice()
	env.questionRepo.On("ReplaceSet", mock.Anything, mock.Anything).
		Return(repositories.ErrStoreUnavailable).Once()

	_, err := env.questions.GetQuestionSet(ctx)
	require.NoError(t, err)

	_, err = env.questions.SaveQuestionSet(ctx, sampleSet().Questions)
	require.Error(t, err)

	_, err = env.questions.GetQuestionSet(ctx)
	require.NoError(t, err)
	env.questionRepo.AssertNumberOfCalls(t, "GetSet", 2)
}

func TestQuestionService_AppendQuestions(t *testing.T) {
	env := newTestEnv(t)
	env.questionRepo.On("GetSet", mock.Anything, models.DefaultSetID).Return(sampleSet(), nil).Once()
	env.questionRepo.On("ReplaceSet", mock.Anything, mock.MatchedBy(func(set *models.QuestionSet) bool {
		return len(set.Questions) == 3 && set.Questions[0].ID == "q1" && set.Questions[2].Question == "New"
	})).Return(nil).Once()

	set, err := env.questions.AppendQuestions(context.Background(), []models.Question{
		{Type: models.QuestionTranslate, Question: "New", Correct: "nuevo"},
	})
	require.NoError(t, err)
	assert.Len(t, set.Questions, 3)
}

func TestQuestionService_DeleteQuestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.questionRepo.On("GetSet", mock.Anything, models.DefaultSetID).Return(sampleSet(), nil).Once()
	env.questionRepo.On("Delete", mock.Anything, models.DefaultSetID, "q1").Return(nil).Once()

	require.NoError(t, env.questions.DeleteQuestion(ctx, "q1"))

	set, err := env.questions.GetQuestionSet(ctx)
	require.NoError(t, err)
	require.Len(t, set.Questions, 1)
	assert.Equal(t, "q2", set.Questions[0].ID)

	published := env.publisher.EventsOfType(events.EventQuestionDeleted)
	require.Len(t, published, 1)
}

func TestQuestionService_DeleteQuestion_RestoresOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.questionRepo.On("GetSet", mock.Anything, models.DefaultSetID).Return(sampleSet(), nil).Once()
	env.questionRepo.On("Delete", mock.Anything, models.DefaultSetID, "q1").
		Return(repositories.ErrStoreUnavailable).Once()

	err := env.questions.DeleteQuestion(ctx, "q1")
	require.Error(t, err)
	assert.True(t, IsTransport(err))

	set, err := env.questions.GetQuestionSet(ctx)
	require.NoError(t, err)
	assert.Len(t, set.Questions, 2, "question is restored")
	assert.Empty(t, env.publisher.GetPublishedEvents())
}

func TestQuestionService_DeleteQuestion_UnknownID(t *testing.T) {
	env := newTestEnv(t)
	env.questionRepo.On("GetSet", mock.Anything, models.DefaultSetID).Return(sampleSet(), nil).Once()

	err := env.questions.DeleteQuestion(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
	env.questionRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuestionService_DeleteQuestion_LeavesInvalidRestAlone(t *testing.T) {
	env := newTestEnv(t)
	set := sampleSet()
	set.Questions[1].Correct = ""
	env.questionRepo.On("GetSet", mock.Anything, models.DefaultSetID).Return(set, nil).Once()
	env.questionRepo.On("Delete", mock.Anything, models.DefaultSetID, "q1").Return(nil).Once()

	assert.NoError(t, env.questions.DeleteQuestion(context.Background(), "q1"))
}

func TestQuestionService_AuthoringHelpers(t *testing.T) {
	env := newTestEnv(t)

	q, err := env.questions.NewQuestion(models.QuestionMultiple)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", ""}, q.Options)

	_, err = env.questions.NewQuestion("essay")
	assert.ErrorIs(t, err, ErrQuestionInvalidType)
	assert.True(t, IsValidation(err))

	original := sampleSet().Questions[0]
	changed, err := env.questions.ChangeQuestionType(original, models.QuestionArrange)
	require.NoError(t, err)
	assert.Equal(t, original.ID, changed.ID)
	assert.Equal(t, models.QuestionArrange, changed.Type)
	assert.True(t, changed.Correct.IsBlank())
	assert.Equal(t, models.QuestionBoolean, original.Type)

	_, err = env.questions.ChangeQuestionType(original, "essay")
	assert.ErrorIs(t, err, ErrQuestionInvalidType)
}
