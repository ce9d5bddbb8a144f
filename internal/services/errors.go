package services

import (
	"errors"

	apperrors "github.com/SAP-F-2025/quiz-service/internal/errors"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrValidationFailed = errors.New("validation failed")
	ErrBadRequest       = errors.New("bad request")

	// Question specific errors
	ErrQuestionNotFound    = errors.New("question not found")
	ErrQuestionInvalidType = errors.New("invalid question type")

	// Result specific errors
	ErrResultNotFound    = errors.New("result not found")
	ErrIncompleteAnswers = errors.New("every question must be answered before submitting")

	// Import errors
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, repositories.ErrRecordNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) || errors.Is(err, ErrQuestionInvalidType) {
		return true
	}
	var ve apperrors.ValidationErrors
	if errors.As(err, &ve) {
		return true
	}
	var single *apperrors.ValidationError
	return errors.As(err, &single)
}

// IsIncomplete checks if a submission was rejected for missing answers
func IsIncomplete(err error) bool {
	return errors.Is(err, ErrIncompleteAnswers)
}

// IsTransport checks if the persistence store failed or could not be reached
func IsTransport(err error) bool {
	return errors.Is(err, repositories.ErrStoreUnavailable)
}

// validationFailure wraps field errors so callers can match both the
// sentinel and the details.
func validationFailure(errs ValidationErrors) error {
	return &validationFailureError{errs: errs}
}

type validationFailureError struct {
	errs ValidationErrors
}

func (e *validationFailureError) Error() string {
	return e.errs.Error()
}

func (e *validationFailureError) Unwrap() []error {
	return []error{ErrValidationFailed, e.errs}
}

func asValidationErrors(err error, target *ValidationErrors) bool {
	return errors.As(err, target)
}
