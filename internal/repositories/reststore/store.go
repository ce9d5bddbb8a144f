package reststore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
)

// maxResponseSize caps how much of a store response is read.
const maxResponseSize = 16 << 20

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     utils.Logger
}

// Store talks to the JSON REST store exposing the `questions` and `results`
// collections.
type Store struct {
	baseURL string
	client  *http.Client
	logger  utils.Logger
}

func New(opts Options) *Store {
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Store{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		client:  client,
		logger:  logger.With("component", "reststore"),
	}
}

func (s *Store) Questions() repositories.QuestionRepository {
	return &questionStore{store: s}
}

func (s *Store) Results() repositories.ResultRepository {
	return &resultStore{store: s}
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.do(ctx, http.MethodGet, "/questions", nil)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		return nil
	}
	return err
}

func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// do performs a request and returns the response body. Network failures and
// non-2xx statuses wrap ErrStoreUnavailable; 404 maps to ErrRecordNotFound.
func (s *Store) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s %s request: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.WarnContext(ctx, "Store request failed", "method", method, "path", path, "error", err)
		return nil, fmt.Errorf("%w: %s %s: %v", repositories.ErrStoreUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s %s response: %v", repositories.ErrStoreUnavailable, method, path, err)
	}

	s.logger.DebugContext(ctx, "Store request",
		"method", method,
		"path", path,
		"status_code", resp.StatusCode,
		"duration", time.Since(start).String())

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s %s", repositories.ErrRecordNotFound, method, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: %s %s returned %d", repositories.ErrStoreUnavailable, method, path, resp.StatusCode)
	}
	return data, nil
}

type questionStore struct {
	store *Store
}

func (q *questionStore) GetSet(ctx context.Context, setID string) (*models.QuestionSet, error) {
	data, err := q.store.do(ctx, http.MethodGet, "/questions", nil)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		return &models.QuestionSet{ID: setID, Questions: []models.Question{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.QuestionSet{ID: setID, Questions: models.FlattenQuestions(data)}, nil
}

// ReplaceSet writes the whole set in one request. The store expects the
// envelope itself under a `questions` key.
func (q *questionStore) ReplaceSet(ctx context.Context, set *models.QuestionSet) error {
	body := map[string]any{
		"questions": models.NewQuestionSetEnvelope(set.ID, set.Questions),
	}
	if _, err := q.store.do(ctx, http.MethodPut, "/questions", body); err != nil {
		return fmt.Errorf("failed to replace question set %s: %w", set.ID, err)
	}
	return nil
}

// Delete removes a question by id. Questions nested inside the set envelope
// are not addressable by the store, so a 404 falls back to rewriting the set
// without the question. Legacy questions are matched by the id the service
// derives for them.
func (q *questionStore) Delete(ctx context.Context, setID, questionID string) error {
	_, err := q.store.do(ctx, http.MethodDelete, "/questions/"+url.PathEscape(questionID), nil)
	if err == nil || !errors.Is(err, repositories.ErrRecordNotFound) {
		return err
	}

	set, err := q.GetSet(ctx, setID)
	if err != nil {
		return err
	}
	set.AssignLegacyIDs()
	if _, ok := set.Find(questionID); !ok {
		return fmt.Errorf("question %s: %w", questionID, repositories.ErrRecordNotFound)
	}
	return q.ReplaceSet(ctx, set.Without(questionID))
}

type resultStore struct {
	store *Store
}

func (r *resultStore) Create(ctx context.Context, result *models.Result) error {
	data, err := r.store.do(ctx, http.MethodPost, "/results", result)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	// Stores that assign their own id echo the created record.
	var created models.Result
	if len(bytes.TrimSpace(data)) > 0 && json.Unmarshal(data, &created) == nil && created.ID != "" {
		result.ID = created.ID
	}
	return nil
}

func (r *resultStore) GetByID(ctx context.Context, id string) (*models.Result, error) {
	data, err := r.store.do(ctx, http.MethodGet, "/results/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var result models.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: malformed result %s: %v", repositories.ErrRecordNotFound, id, err)
	}
	return &result, nil
}

func (r *resultStore) List(ctx context.Context, filters repositories.ResultFilters) ([]*models.Result, error) {
	data, err := r.store.do(ctx, http.MethodGet, "/results", nil)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		return []*models.Result{}, nil
	}
	if err != nil {
		return nil, err
	}

	decoded := models.FlattenResults(data)
	results := make([]*models.Result, 0, len(decoded))
	for i := range decoded {
		results = append(results, &decoded[i])
	}
	return repositories.ApplyResultFilters(results, filters), nil
}

func (r *resultStore) Delete(ctx context.Context, id string) error {
	_, err := r.store.do(ctx, http.MethodDelete, "/results/"+url.PathEscape(id), nil)
	return err
}
