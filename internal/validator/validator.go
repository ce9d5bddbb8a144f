package validator

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator combines struct tag validation with the question content rules.
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// ValidateQuestionSet runs tag validation on every question, then the
// per-variant content rules.
func (v *Validator) ValidateQuestionSet(questions []models.Question) error {
	var errs ValidationErrors
	for i := range questions {
		if err := v.structValidator.Struct(&questions[i]); err != nil {
			for _, fe := range ToValidationErrors(err) {
				fe.Field = "questions[" + strconv.Itoa(i) + "]." + fe.Field
				errs = append(errs, fe)
			}
		}
	}
	errs = append(errs, v.questionValidator.ValidateQuestionSet(questions)...)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).IsValid()
}
