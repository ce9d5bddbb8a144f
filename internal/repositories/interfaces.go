package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

var (
	// ErrRecordNotFound is returned when the addressed question, set or result does not exist.
	ErrRecordNotFound = errors.New("record not found")
	// ErrStoreUnavailable wraps transport failures: the store could not be
	// reached or answered with a non-success status.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ===== SHARED FILTER STRUCTS =====

type ResultFilters struct {
	StudentName string `form:"student_name" json:"student_name"`
	Limit       int    `form:"limit" json:"limit" validate:"omitempty,min=1,max=500"`
	Offset      int    `form:"offset" json:"offset" validate:"omitempty,min=0"`
	SortOrder   string `form:"sort_order" json:"sort_order" validate:"omitempty,oneof=asc desc"` // by date, default desc
}

// QuestionRepository persists whole question sets. Sets are replaced
// wholesale; there is no per-question update.
type QuestionRepository interface {
	// GetSet returns the stored set. A store holding no questions yields an
	// empty set rather than ErrRecordNotFound.
	GetSet(ctx context.Context, setID string) (*models.QuestionSet, error)
	// ReplaceSet atomically overwrites every question of the set.
	ReplaceSet(ctx context.Context, set *models.QuestionSet) error
	Delete(ctx context.Context, setID, questionID string) error
}

// ResultRepository stores completed attempts. Results are never updated.
type ResultRepository interface {
	Create(ctx context.Context, result *models.Result) error
	GetByID(ctx context.Context, id string) (*models.Result, error)
	List(ctx context.Context, filters ResultFilters) ([]*models.Result, error)
	Delete(ctx context.Context, id string) error
}

// Repository aggregates the collections of one backend.
type Repository interface {
	Questions() QuestionRepository
	Results() ResultRepository
	Ping(ctx context.Context) error
	Close() error
}
