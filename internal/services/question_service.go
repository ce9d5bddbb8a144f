package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/SAP-F-2025/quiz-service/pkg/monitoring"
)

// QuestionSetOptions identifies the managed set and how long it stays cached.
type QuestionSetOptions struct {
	SetID    string
	CacheTTL time.Duration
}

type questionService struct {
	repo      repositories.QuestionRepository
	cache     cache.CacheService
	publisher events.EventPublisher
	validator *validator.Validator
	metrics   *monitoring.Metrics
	logger    utils.Logger
	svcLogger *ServiceLogger
	opts      QuestionSetOptions

	// mu serializes writers so the cached copy and the store never interleave.
	mu sync.Mutex
}

func NewQuestionService(
	repo repositories.QuestionRepository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	validator *validator.Validator,
	metrics *monitoring.Metrics,
	logger utils.Logger,
	opts QuestionSetOptions,
) QuestionService {
	if opts.SetID == "" {
		opts.SetID = models.DefaultSetID
	}
	if cacheService == nil {
		cacheService = cache.NewMemoryCache()
	}
	return &questionService{
		repo:      repo,
		cache:     cacheService,
		publisher: publisher,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
		svcLogger: NewServiceLogger(logger, LogConfig{Service: "quiz-service", Component: "questions"}),
		opts:      opts,
	}
}

// ===== READ OPERATIONS =====

func (s *questionService) GetQuestionSet(ctx context.Context) (*models.QuestionSet, error) {
	set, err := s.loadSet(ctx)
	if err != nil {
		return nil, err
	}
	return set.Clone(), nil
}

func (s *questionService) loadSet(ctx context.Context) (*models.QuestionSet, error) {
	key := cache.QuestionSetKey(s.opts.SetID)

	var cached models.QuestionSet
	err := s.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		s.metrics.ObserveCache(true)
		return &cached, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		s.logger.Warn("Question set cache read failed", "set_id", s.opts.SetID, "error", err)
	}
	s.metrics.ObserveCache(false)

	set, err := s.repo.GetSet(ctx, s.opts.SetID)
	if err != nil {
		s.metrics.ObserveStoreError("get_question_set")
		return nil, fmt.Errorf("failed to load question set %s: %w", s.opts.SetID, err)
	}
	if set.ID == "" {
		set.ID = s.opts.SetID
	}
	set.AssignLegacyIDs()

	s.storeCached(ctx, set)
	return set, nil
}

func (s *questionService) storeCached(ctx context.Context, set *models.QuestionSet) {
	if err := s.cache.Set(ctx, cache.QuestionSetKey(set.ID), set, s.opts.CacheTTL); err != nil {
		s.logger.Warn("Failed to cache question set", "set_id", set.ID, "error", err)
	}
}

// dropCached forgets the cached set after a write whose outcome at the store
// is unknown, so the next read goes back to the store.
func (s *questionService) dropCached(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.QuestionSetKey(s.opts.SetID)); err != nil {
		s.logger.Warn("Failed to drop cached question set", "set_id", s.opts.SetID, "error", err)
	}
}

// ===== WRITE OPERATIONS =====

func (s *questionService) SaveQuestionSet(ctx context.Context, questions []models.Question) (*models.QuestionSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.replace(ctx, "save_question_set", questions)
}

func (s *questionService) AppendQuestions(ctx context.Context, questions []models.Question) (*models.QuestionSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadSet(ctx)
	if err != nil {
		return nil, err
	}
	combined := make([]models.Question, 0, len(current.Questions)+len(questions))
	combined = append(combined, current.Questions...)
	combined = append(combined, questions...)
	return s.replace(ctx, "append_questions", combined)
}

// replace prepares, validates and writes a whole set. Callers hold mu.
func (s *questionService) replace(ctx context.Context, operation string, questions []models.Question) (set *models.QuestionSet, err error) {
	op := s.svcLogger.WithOperation(ctx, operation)
	defer func() { op.LogResult(s.opts.SetID, "question_set", err) }()

	prepared := prepareForSave(questions)
	if err := s.ValidateQuestionSet(prepared); err != nil {
		s.metrics.ObserveSave("invalid")
		return nil, err
	}

	set = &models.QuestionSet{ID: s.opts.SetID, Questions: prepared}
	if err := s.repo.ReplaceSet(ctx, set); err != nil {
		s.metrics.ObserveSave("failed")
		s.metrics.ObserveStoreError("replace_question_set")
		s.dropCached(ctx)
		return nil, fmt.Errorf("failed to save question set %s: %w", s.opts.SetID, err)
	}
	s.metrics.ObserveSave("saved")
	s.storeCached(ctx, set)

	ids := make([]string, len(prepared))
	for i, q := range prepared {
		ids[i] = q.ID
	}
	s.publish(ctx, events.NewQuestionSetSavedEvent(set.ID, ids, set.TotalPoints()))
	op.LogAudit(AuditEventUpdate, set.ID, "question_set", map[string]interface{}{"question_count": len(prepared)})

	return set.Clone(), nil
}

// prepareForSave copies the questions, assigning ids to new ones and the
// default weight to unweighted ones.
func prepareForSave(questions []models.Question) []models.Question {
	prepared := make([]models.Question, len(questions))
	for i, q := range questions {
		q = q.Clone()
		if q.ID == "" {
			q.ID = models.NewQuestionID()
		}
		if q.Points == 0 {
			q.Points = models.DefaultPoints
		}
		if q.Options == nil {
			q.Options = []string{}
		}
		prepared[i] = q
	}
	return prepared
}

func (s *questionService) DeleteQuestion(ctx context.Context, questionID string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	op := s.svcLogger.WithOperation(ctx, "delete_question")
	defer func() { op.LogResult(questionID, "question", err) }()

	current, err := s.loadSet(ctx)
	if err != nil {
		return err
	}
	if _, ok := current.Find(questionID); !ok {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, questionID)
	}

	// Remove locally first; the rest of the set is not revalidated.
	s.storeCached(ctx, current.Without(questionID))

	if err := s.repo.Delete(ctx, s.opts.SetID, questionID); err != nil {
		s.storeCached(ctx, current)
		s.metrics.ObserveStoreError("delete_question")
		return fmt.Errorf("failed to delete question %s: %w", questionID, err)
	}

	s.publish(ctx, events.NewQuestionDeletedEvent(s.opts.SetID, questionID))
	op.LogAudit(AuditEventDelete, questionID, "question", nil)
	return nil
}

// ===== VALIDATION AND AUTHORING =====

func (s *questionService) ValidateQuestionSet(questions []models.Question) error {
	if err := s.validator.ValidateQuestionSet(questions); err != nil {
		var errs ValidationErrors
		if errors.As(err, &errs) {
			return validationFailure(errs)
		}
		return fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}
	return nil
}

func (s *questionService) NewQuestion(questionType models.QuestionType) (models.Question, error) {
	if !questionType.IsValid() {
		return models.Question{}, fmt.Errorf("%w: %s", ErrQuestionInvalidType, questionType)
	}
	return models.DefaultQuestion(questionType), nil
}

func (s *questionService) ChangeQuestionType(question models.Question, questionType models.QuestionType) (models.Question, error) {
	if !questionType.IsValid() {
		return models.Question{}, fmt.Errorf("%w: %s", ErrQuestionInvalidType, questionType)
	}
	changed := question.Clone()
	changed.ChangeType(questionType)
	return changed, nil
}

func (s *questionService) publish(ctx context.Context, event *events.QuizEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "event_id", event.ID, "error", err)
	}
}
