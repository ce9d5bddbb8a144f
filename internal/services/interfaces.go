package services

import (
	"context"
	"io"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/grading"
	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// ===== SERVICE INTERFACES =====

// QuestionService manages the single authored question set.
type QuestionService interface {
	GetQuestionSet(ctx context.Context) (*models.QuestionSet, error)
	// SaveQuestionSet replaces the whole set. Nothing is written unless every
	// question passes validation.
	SaveQuestionSet(ctx context.Context, questions []models.Question) (*models.QuestionSet, error)
	// AppendQuestions saves the current set with the given questions added.
	AppendQuestions(ctx context.Context, questions []models.Question) (*models.QuestionSet, error)
	DeleteQuestion(ctx context.Context, questionID string) error
	ValidateQuestionSet(questions []models.Question) error

	// Authoring helpers
	NewQuestion(questionType models.QuestionType) (models.Question, error)
	ChangeQuestionType(question models.Question, questionType models.QuestionType) (models.Question, error)
}

// ResultService grades submissions and manages stored results.
type ResultService interface {
	Submit(ctx context.Context, req *SubmitResultRequest) (*SubmissionResponse, error)
	CalculateScore(ctx context.Context, req *CalculateScoreRequest) (*grading.Report, error)
	List(ctx context.Context, filters repositories.ResultFilters) ([]*models.Result, error)
	GetByID(ctx context.Context, id string) (*models.Result, error)
	Review(ctx context.Context, id string) (*ResultReview, error)
	Delete(ctx context.Context, id string) error
}

// ImportExportService moves question sets and results in and out of
// spreadsheets.
type ImportExportService interface {
	ImportQuestionsFromFile(ctx context.Context, reader io.Reader, filename string) (*models.ImportSummary, error)
	ImportQuestionsFromCSV(ctx context.Context, reader io.Reader) (*models.ImportSummary, error)
	ImportQuestionsFromExcel(ctx context.Context, reader io.Reader) (*models.ImportSummary, error)

	ExportQuestions(ctx context.Context, format models.ExportFormat) ([]byte, error)
	ExportResults(ctx context.Context, filters repositories.ResultFilters, format models.ExportFormat) ([]byte, error)
}

// ===== REQUEST / RESPONSE DTOs =====

type SaveQuestionSetRequest struct {
	Questions []models.Question `json:"questions"`
}

// SubmitResultRequest is a finished attempt. Score and Date sent by the
// client are accepted for compatibility but never trusted.
type SubmitResultRequest struct {
	StudentName string           `json:"studentName" validate:"required"`
	Answers     models.AnswerMap `json:"answers"`
	Score       *float64         `json:"score,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
}

type SubmissionResponse struct {
	Result   *models.Result           `json:"result"`
	Earned   float64                  `json:"earned"`
	Possible float64                  `json:"possible"`
	Verdicts []models.QuestionVerdict `json:"verdicts"`
}

// CalculateScoreRequest grades answers without storing anything. When
// Questions is empty the current set is used.
type CalculateScoreRequest struct {
	Questions []models.Question `json:"questions,omitempty"`
	Answers   models.AnswerMap  `json:"answers"`
}

type ResultReview struct {
	Result   *models.Result           `json:"result"`
	Verdicts []models.QuestionVerdict `json:"verdicts"`
	Mistakes int                      `json:"mistakes"`
}
