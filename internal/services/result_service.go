package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/events"
	"github.com/SAP-F-2025/quiz-service/internal/grading"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/SAP-F-2025/quiz-service/pkg/monitoring"
	"github.com/google/uuid"
)

type resultService struct {
	repo      repositories.ResultRepository
	questions QuestionService
	publisher events.EventPublisher
	validator *validator.Validator
	metrics   *monitoring.Metrics
	logger    utils.Logger
	svcLogger *ServiceLogger
	now       func() time.Time
}

func NewResultService(
	repo repositories.ResultRepository,
	questions QuestionService,
	publisher events.EventPublisher,
	validator *validator.Validator,
	metrics *monitoring.Metrics,
	logger utils.Logger,
) ResultService {
	return &resultService{
		repo:      repo,
		questions: questions,
		publisher: publisher,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
		svcLogger: NewServiceLogger(logger, LogConfig{Service: "quiz-service", Component: "results"}),
		now:       time.Now,
	}
}

// ===== SUBMISSION =====

func (s *resultService) Submit(ctx context.Context, req *SubmitResultRequest) (resp *SubmissionResponse, err error) {
	op := s.svcLogger.WithOperation(ctx, "submit_result")
	resourceID := ""
	defer func() { op.LogResult(resourceID, "result", err) }()

	req.StudentName = strings.TrimSpace(req.StudentName)
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, wrapValidation(err)
	}

	set, err := s.questions.GetQuestionSet(ctx)
	if err != nil {
		return nil, err
	}
	if missing := unanswered(set.Questions, req.Answers); len(missing) > 0 {
		return nil, fmt.Errorf("%w: %d unanswered (%s)", ErrIncompleteAnswers, len(missing), strings.Join(missing, ", "))
	}

	report := grading.Grade(set.Questions, req.Answers)
	result := &models.Result{
		ID:          uuid.NewString(),
		StudentName: req.StudentName,
		Score:       report.Score,
		Answers:     req.Answers.Clone(),
		Date:        s.now().UTC(),
	}
	if err := s.validator.ValidateStruct(result); err != nil {
		return nil, wrapValidation(err)
	}

	if err := s.repo.Create(ctx, result); err != nil {
		s.metrics.ObserveStoreError("create_result")
		return nil, fmt.Errorf("failed to store result: %w", err)
	}
	resourceID = result.ID
	s.metrics.ObserveResult(result.Score)
	s.publish(ctx, events.NewResultSubmittedEvent(result.ID, result.StudentName, result.Score, report.Earned, report.Possible, result.Date))
	op.LogAudit(AuditEventCreate, result.ID, "result", map[string]interface{}{"score": result.Score})

	return &SubmissionResponse{
		Result:   result,
		Earned:   report.Earned,
		Possible: report.Possible,
		Verdicts: report.Verdicts,
	}, nil
}

// unanswered lists the questions with no entry in answers. An entry holding
// an empty string counts as present; it just scores nothing.
func unanswered(questions []models.Question, answers models.AnswerMap) []string {
	var missing []string
	for _, q := range questions {
		if _, ok := answers.Lookup(q.ID); !ok {
			missing = append(missing, q.ID)
		}
	}
	return missing
}

func (s *resultService) CalculateScore(ctx context.Context, req *CalculateScoreRequest) (*grading.Report, error) {
	questions := req.Questions
	if len(questions) == 0 {
		set, err := s.questions.GetQuestionSet(ctx)
		if err != nil {
			return nil, err
		}
		questions = set.Questions
	}
	report := grading.Grade(questions, req.Answers)
	return &report, nil
}

// ===== STORED RESULTS =====

func (s *resultService) List(ctx context.Context, filters repositories.ResultFilters) ([]*models.Result, error) {
	if err := s.validator.ValidateStruct(&filters); err != nil {
		return nil, wrapValidation(err)
	}
	results, err := s.repo.List(ctx, filters)
	if err != nil {
		s.metrics.ObserveStoreError("list_results")
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}

func (s *resultService) GetByID(ctx context.Context, id string) (*models.Result, error) {
	result, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrResultNotFound, id)
		}
		s.metrics.ObserveStoreError("get_result")
		return nil, fmt.Errorf("failed to get result %s: %w", id, err)
	}
	return result, nil
}

// Review flags each question of the current set against the stored answers
// using the strict comparator.
func (s *resultService) Review(ctx context.Context, id string) (*ResultReview, error) {
	result, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	set, err := s.questions.GetQuestionSet(ctx)
	if err != nil {
		return nil, err
	}

	verdicts := grading.Review(set.Questions, result.Answers)
	mistakes := 0
	for _, v := range verdicts {
		if !v.IsCorrect {
			mistakes++
		}
	}
	return &ResultReview{Result: result, Verdicts: verdicts, Mistakes: mistakes}, nil
}

func (s *resultService) Delete(ctx context.Context, id string) (err error) {
	op := s.svcLogger.WithOperation(ctx, "delete_result")
	defer func() { op.LogResult(id, "result", err) }()

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", ErrResultNotFound, id)
		}
		s.metrics.ObserveStoreError("delete_result")
		return fmt.Errorf("failed to delete result %s: %w", id, err)
	}

	s.publish(ctx, events.NewResultDeletedEvent(id))
	op.LogAudit(AuditEventDelete, id, "result", nil)
	return nil
}

func (s *resultService) publish(ctx context.Context, event *events.QuizEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.Type, "event_id", event.ID, "error", err)
	}
}

// wrapValidation attaches ErrValidationFailed to struct validation errors.
func wrapValidation(err error) error {
	var errs ValidationErrors
	if errors.As(err, &errs) {
		return validationFailure(errs)
	}
	return fmt.Errorf("%w: %v", ErrValidationFailed, err)
}
