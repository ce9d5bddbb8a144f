package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory QuestionRepository and ResultRepository.
type memStore struct {
	mu        sync.Mutex
	questions []models.Question
	results   map[string]*models.Result
	failing   bool
}

func newMemStore(questions ...models.Question) *memStore {
	return &memStore{questions: questions, results: map[string]*models.Result{}}
}

func (s *memStore) check() error {
	if s.failing {
		return repositories.ErrStoreUnavailable
	}
	return nil
}

func (s *memStore) GetSet(_ context.Context, setID string) (*models.QuestionSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	set := &models.QuestionSet{ID: setID, Questions: s.questions}
	return set.Clone(), nil
}

func (s *memStore) ReplaceSet(_ context.Context, set *models.QuestionSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	s.questions = set.Clone().Questions
	return nil
}

func (s *memStore) Delete(_ context.Context, setID, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	set := &models.QuestionSet{ID: setID, Questions: s.questions}
	if _, ok := set.Find(questionID); !ok {
		return repositories.ErrRecordNotFound
	}
	s.questions = set.Without(questionID).Questions
	return nil
}

type memResults struct{ *memStore }

func (r memResults) Create(_ context.Context, result *models.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(); err != nil {
		return err
	}
	r.results[result.ID] = result
	return nil
}

func (r memResults) GetByID(_ context.Context, id string) (*models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result, ok := r.results[id]
	if !ok {
		return nil, repositories.ErrRecordNotFound
	}
	return result, nil
}

func (r memResults) List(_ context.Context, filters repositories.ResultFilters) ([]*models.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*models.Result, 0, len(r.results))
	for _, result := range r.results {
		all = append(all, result)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return repositories.ApplyResultFilters(all, filters), nil
}

func (r memResults) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.results[id]; !ok {
		return repositories.ErrRecordNotFound
	}
	delete(r.results, id)
	return nil
}

type fakeParser struct{}

func (fakeParser) ParseAdmin(token string) (string, error) {
	switch token {
	case "admin-token":
		return "profesora", nil
	case "student-token":
		return "", errNotAdmin
	default:
		return "", errors.New("invalid token")
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return repositories.ErrStoreUnavailable }

func seedQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", Type: models.QuestionBoolean, Question: "The sky is blue", Options: []string{}, Correct: "true", Points: 10},
		{ID: "q2", Type: models.QuestionTranslate, Question: "Translate: cat", Options: []string{}, Correct: "gato", Points: 10},
	}
}

func newTestRouter(t *testing.T, store *memStore, parser TokenParser) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := utils.NewNopLogger()
	v := validator.New()
	publisher := events.NewMockEventPublisher(nil)

	questionService := services.NewQuestionService(store, cache.NewMemoryCache(), publisher, v, nil, logger, services.QuestionSetOptions{})
	resultService := services.NewResultService(memResults{store}, questionService, publisher, v, nil, logger)
	importExport := services.NewImportExportService(questionService, resultService, v, logger)

	router := gin.New()
	router.Use(utils.ContextLogger(logger))
	NewHandlerManager(questionService, resultService, importExport, v, logger).SetupRoutes(router, RouteOptions{
		AdminAuth: AdminAuth(parser, config.AdminConfig{Username: "admin", Password: "secret"}, logger),
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.SetBasicAuth("admin", "secret")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetQuestionSet_IsPublic(t *testing.T) {
	router := newTestRouter(t, newMemStore(seedQuestions()...), nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/questions", nil, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(utils.RequestIDHeader))

	var set models.QuestionSet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	assert.Equal(t, models.DefaultSetID, set.ID)
	assert.Len(t, set.Questions, 2)
	assert.NotContains(t, w.Body.String(), `"correct"`)
}

func TestGetFullQuestionSet_RequiresAdmin(t *testing.T) {
	router := newTestRouter(t, newMemStore(seedQuestions()...), nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/questions/full", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/questions/full", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	var set models.QuestionSet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &set))
	require.Len(t, set.Questions, 2)
	for _, q := range set.Questions {
		assert.NotEmpty(t, q.Correct)
	}
}

func TestSaveQuestionSet(t *testing.T) {
	store := newMemStore()
	router := newTestRouter(t, store, nil)

	valid := map[string]any{"questions": []map[string]any{
		{"type": "boolean", "question": "Water is wet", "correct": true},
		{"type": "fillInBlanks", "question": "I ___ here", "correct": "am", "points": 2},
	}}

	t.Run("requires admin", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/v1/questions", valid, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects invalid set without saving", func(t *testing.T) {
		invalid := map[string]any{"questions": []map[string]any{
			{"type": "translate", "question": "Hello", "correct": "hola"},
			{"type": "multiple", "question": "Pick", "options": []string{"a", ""}, "correct": "a"},
		}}
		w := doJSON(t, router, http.MethodPut, "/api/v1/questions", invalid, true)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Details []struct {
				Field string `json:"field"`
			} `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Details, 1)
		assert.Equal(t, "questions[1].options[1]", resp.Details[0].Field)
		assert.Empty(t, store.questions)
	})

	t.Run("saves valid set", func(t *testing.T) {
		w := doJSON(t, router, http.MethodPut, "/api/v1/questions", valid, true)
		require.Equal(t, http.StatusOK, w.Code)

		require.Len(t, store.questions, 2)
		assert.Equal(t, float64(models.DefaultPoints), store.questions[0].Points)
		assert.Equal(t, models.AnswerKey("true"), store.questions[0].Correct)
		assert.NotEmpty(t, store.questions[1].ID)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/questions", bytes.NewBufferString(`{"questions":`))
		req.SetBasicAuth("admin", "secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestValidateQuestionSetEndpoint(t *testing.T) {
	router := newTestRouter(t, newMemStore(), nil)

	body := map[string]any{"questions": []map[string]any{{"type": "arrange", "question": "Order", "correct": "a b"}}}
	w := doJSON(t, router, http.MethodPost, "/api/v1/questions/validate", body, true)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Valid  bool                       `json:"valid"`
		Errors []services.ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "questions[0].options", resp.Errors[0].Field)
}

func TestGetDefaultQuestion(t *testing.T) {
	router := newTestRouter(t, newMemStore(), nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/questions/defaults/boolean", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Verdadero/Falso")

	w = doJSON(t, router, http.MethodGet, "/api/v1/questions/defaults/essay", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteQuestion(t *testing.T) {
	store := newMemStore(seedQuestions()...)
	router := newTestRouter(t, store, nil)

	w := doJSON(t, router, http.MethodDelete, "/api/v1/questions/q1", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, store.questions, 1)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/questions/q1", nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitResult(t *testing.T) {
	store := newMemStore(seedQuestions()...)
	router := newTestRouter(t, store, nil)

	tests := []struct {
		name   string
		body   map[string]any
		status int
	}{
		{"incomplete answers", map[string]any{"studentName": "Ana", "answers": map[string]any{"q1": "true"}}, http.StatusUnprocessableEntity},
		{"missing name", map[string]any{"studentName": " ", "answers": map[string]any{"q1": "true", "q2": "gato"}}, http.StatusBadRequest},
		{"complete", map[string]any{"studentName": "Ana", "score": 100, "answers": map[string]any{"q1": true, "q2": "perro"}}, http.StatusCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, router, http.MethodPost, "/api/v1/results", tt.body, false)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	require.Len(t, store.results, 1)
	for _, r := range store.results {
		assert.Equal(t, float64(50), r.Score)
		assert.Equal(t, "true", r.Answers["q1"])
	}
}

func TestResultAdminRoutes(t *testing.T) {
	store := newMemStore(seedQuestions()...)
	router := newTestRouter(t, store, nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/results", map[string]any{
		"studentName": "Ana",
		"answers":     map[string]any{"q1": "true", "q2": "Gato"},
	}, false)
	require.Equal(t, http.StatusCreated, w.Code)

	var submitted services.SubmissionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	assert.Equal(t, float64(100), submitted.Result.Score)
	id := submitted.Result.ID

	w = doJSON(t, router, http.MethodGet, "/api/v1/results", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/results?student_name=an", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	w = doJSON(t, router, http.MethodGet, "/api/v1/results/"+id+"/review", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	var review services.ResultReview
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &review))
	assert.Equal(t, 1, review.Mistakes, "review is exact even though scoring was lenient")

	w = doJSON(t, router, http.MethodGet, "/api/v1/results/export?format=csv", nil, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Body.String(), "Ana")

	w = doJSON(t, router, http.MethodGet, "/api/v1/results/export?format=pdf", nil, true)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/v1/results/"+id, nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/results/"+id, nil, true)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStoreUnavailableMapsToBadGateway(t *testing.T) {
	store := newMemStore(seedQuestions()...)
	store.failing = true
	router := newTestRouter(t, store, nil)

	w := doJSON(t, router, http.MethodGet, "/api/v1/questions", nil, false)
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestCalculateScore(t *testing.T) {
	router := newTestRouter(t, newMemStore(seedQuestions()...), nil)

	w := doJSON(t, router, http.MethodPost, "/api/v1/grading/calculate-score", map[string]any{
		"answers": map[string]any{"q1": "false", "q2": "gato"},
	}, false)
	require.Equal(t, http.StatusOK, w.Code)

	var report struct {
		Score float64 `json:"score"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, float64(50), report.Score)
}

func TestImportQuestions(t *testing.T) {
	store := newMemStore(seedQuestions()...)
	router := newTestRouter(t, store, nil)

	upload := func(filename, content string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/questions/import", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.SetBasicAuth("admin", "secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := upload("bad.csv", "type,question,correct\nessay,Write,x\n")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation_failed")
	assert.Len(t, store.questions, 2)

	w = upload("good.csv", "type,question,correct,points\ntranslate,Translate: dog,perro,4\n")
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, store.questions, 3)
	assert.Equal(t, float64(4), store.questions[2].Points)

	w = upload("notes.txt", "hello")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBearerAuth(t *testing.T) {
	router := newTestRouter(t, newMemStore(), fakeParser{})

	call := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/results", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, call(""))
	assert.Equal(t, http.StatusUnauthorized, call("garbage"))
	assert.Equal(t, http.StatusForbidden, call("student-token"))
	assert.Equal(t, http.StatusOK, call("admin-token"))
}

func TestAdminAuth_NotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", AdminAuth(nil, config.AdminConfig{Username: "admin"}, utils.NewNopLogger()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ok", HealthCheck(nil))
	router.GET("/degraded", HealthCheck(failingPinger{}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/degraded", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "degraded")
}
