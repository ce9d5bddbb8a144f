package validator

import (
	"fmt"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/errors"
	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// contentRule checks the variant-specific part of a question and returns the
// offending field with a message, or ok.
type contentRule func(q *models.Question) (field, message string, ok bool)

// QuestionValidator decides whether authored questions are well-formed enough
// to be persisted.
type QuestionValidator struct {
	rules map[models.QuestionType]contentRule
}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{
		rules: map[models.QuestionType]contentRule{
			models.QuestionMultiple:     validateMultipleContent,
			models.QuestionBoolean:      validateBooleanContent,
			models.QuestionTranslate:    validateTranslateContent,
			models.QuestionFillInBlanks: validateFillInBlanksContent,
			models.QuestionArrange:      validateArrangeContent,
		},
	}
}

// Supports reports whether a rule exists for the variant.
func (v *QuestionValidator) Supports(t models.QuestionType) bool {
	_, ok := v.rules[t]
	return ok
}

// IsQuestionValid reports whether a single question may be saved.
func (v *QuestionValidator) IsQuestionValid(q *models.Question) bool {
	_, _, ok := v.check(q)
	return ok
}

// IsQuestionSetValid reports whether every question in the set may be saved.
// An empty set is valid.
func (v *QuestionValidator) IsQuestionSetValid(questions []models.Question) bool {
	return len(v.ValidateQuestionSet(questions)) == 0
}

// ValidateQuestionSet reports every question that fails its variant rule, plus
// duplicate ids within the set.
func (v *QuestionValidator) ValidateQuestionSet(questions []models.Question) ValidationErrors {
	var errs ValidationErrors
	seen := make(map[string]int, len(questions))

	for i := range questions {
		q := &questions[i]
		if field, message, ok := v.check(q); !ok {
			errs = append(errs, *errors.NewValidationErrorWithRule(
				fmt.Sprintf("questions[%d].%s", i, field), message, string(q.Type), q.ID))
		}

		if q.ID == "" {
			continue
		}
		if first, dup := seen[q.ID]; dup {
			errs = append(errs, *errors.NewValidationErrorWithRule(
				fmt.Sprintf("questions[%d].id", i),
				fmt.Sprintf("duplicates the id of question %d", first+1),
				"unique", q.ID))
			continue
		}
		seen[q.ID] = i
	}

	return errs
}

func (v *QuestionValidator) check(q *models.Question) (string, string, bool) {
	if strings.TrimSpace(q.Question) == "" {
		return "question", "question text is required", false
	}

	rule, ok := v.rules[q.Type]
	if !ok {
		return "type", fmt.Sprintf("unsupported question type: %s", q.Type), false
	}
	return rule(q)
}

func validateMultipleContent(q *models.Question) (string, string, bool) {
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Sprintf("options[%d]", i), "option text cannot be empty", false
		}
	}
	if q.Correct.IsBlank() {
		return "correct", "correct option is required", false
	}
	return "", "", true
}

func validateBooleanContent(q *models.Question) (string, string, bool) {
	if q.Correct.IsBlank() {
		return "correct", "correct value is required", false
	}
	return "", "", true
}

func validateTranslateContent(q *models.Question) (string, string, bool) {
	if q.Correct.IsBlank() {
		return "correct", "translation is required", false
	}
	return "", "", true
}

func validateFillInBlanksContent(q *models.Question) (string, string, bool) {
	if q.Correct.IsBlank() {
		return "correct", "blank answers are required", false
	}
	if !strings.Contains(q.Question, models.BlankMarker) {
		return "question", "text must contain at least one " + models.BlankMarker + " blank", false
	}
	return "", "", true
}

func validateArrangeContent(q *models.Question) (string, string, bool) {
	if len(q.Options) == 0 {
		return "options", "word bank cannot be empty", false
	}
	if q.Correct.IsBlank() {
		return "correct", "ordered phrase is required", false
	}
	return "", "", true
}
