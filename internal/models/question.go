package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type QuestionType string

const (
	QuestionMultiple     QuestionType = "multiple"
	QuestionTranslate    QuestionType = "translate"
	QuestionBoolean      QuestionType = "boolean"
	QuestionFillInBlanks QuestionType = "fillInBlanks"
	QuestionArrange      QuestionType = "arrange"
)

const (
	// BlankMarker denotes one fill slot in fillInBlanks question text.
	BlankMarker = "___"

	// DefaultPoints is applied at save time to questions authored without points.
	DefaultPoints = 5

	// DefaultSetID is the id of the single question set the web client writes.
	DefaultSetID = "2816"
)

// AllQuestionTypes returns every supported variant in display order.
func AllQuestionTypes() []QuestionType {
	return []QuestionType{
		QuestionMultiple,
		QuestionTranslate,
		QuestionBoolean,
		QuestionFillInBlanks,
		QuestionArrange,
	}
}

func (t QuestionType) IsValid() bool {
	for _, known := range AllQuestionTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// Label is the admin-facing name of the variant.
func (t QuestionType) Label() string {
	switch t {
	case QuestionMultiple:
		return "Opción Múltiple"
	case QuestionTranslate:
		return "Traducción"
	case QuestionBoolean:
		return "Verdadero/Falso"
	case QuestionFillInBlanks:
		return "Completar Espacios"
	case QuestionArrange:
		return "Ordenar Palabras"
	default:
		return string(t)
	}
}

// AnswerKey is a question's `correct` value kept in string form. Boolean keys
// are "true"/"false"; fillInBlanks keys are comma-joined blanks.
type AnswerKey string

func (k AnswerKey) String() string {
	return string(k)
}

// Bool reports the logical value of a boolean-variant key.
func (k AnswerKey) Bool() bool {
	return string(k) == "true"
}

// IsBlank reports whether the key is empty after trimming.
func (k AnswerKey) IsBlank() bool {
	return strings.TrimSpace(string(k)) == ""
}

// UnmarshalJSON accepts strings, booleans, numbers and null.
func (k *AnswerKey) UnmarshalJSON(data []byte) error {
	value, ok := scalarString(data)
	if !ok {
		return fmt.Errorf("correct must be a string, boolean or number, got %s", string(data))
	}
	*k = AnswerKey(value)
	return nil
}

type Question struct {
	ID        string       `json:"id" gorm:"primaryKey;size:64"`
	SetID     string       `json:"-" gorm:"not null;index;size:64"`
	Position  int          `json:"-" gorm:"not null;default:0"`
	Type      QuestionType `json:"type" gorm:"not null;size:20" validate:"required,question_type"`
	Question  string       `json:"question" gorm:"type:text;not null"`
	Options   []string     `json:"options" gorm:"serializer:json;type:jsonb"`
	Correct   AnswerKey    `json:"correct" gorm:"type:text"`
	Points    float64      `json:"points" gorm:"not null;default:0" validate:"min=0"`
	CreatedAt time.Time    `json:"-"`
	UpdatedAt time.Time    `json:"-"`
}

// UnmarshalJSON accepts numeric ids, which some REST stores assign.
func (q *Question) UnmarshalJSON(data []byte) error {
	type alias Question
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, ok := scalarString(aux.ID)
	if !ok {
		return fmt.Errorf("question id must be a string or number, got %s", string(aux.ID))
	}
	q.ID = id
	return nil
}

func (Question) TableName() string {
	return "questions"
}

// Blanks counts the blank markers in the question text.
func (q Question) Blanks() int {
	return strings.Count(q.Question, BlankMarker)
}

// Clone returns a copy that shares no slices with q.
func (q Question) Clone() Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}

// ChangeType switches the variant in place, discarding the previous answer
// key and options since the shapes are incompatible.
func (q *Question) ChangeType(t QuestionType) {
	skeleton := DefaultQuestion(t)
	q.Type = t
	q.Options = skeleton.Options
	q.Correct = skeleton.Correct
}

// DefaultQuestion returns the blank authoring skeleton for a variant.
func DefaultQuestion(t QuestionType) Question {
	q := Question{
		ID:      NewQuestionID(),
		Type:    t,
		Options: []string{},
	}
	switch t {
	case QuestionMultiple:
		q.Options = []string{"", "", ""}
	case QuestionBoolean:
		q.Correct = "true"
	}
	return q
}

// ParseWordBank splits a comma separated arrange word bank, trimming each word.
func ParseWordBank(raw string) []string {
	parts := strings.Split(raw, ",")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		words = append(words, strings.TrimSpace(p))
	}
	return words
}

var legacyQuestionNamespace = uuid.MustParse("0b5e3f3a-6c43-4d0e-9a55-2f1c7d9e8a10")

// NewQuestionID generates an id for a newly authored question.
func NewQuestionID() string {
	return uuid.NewString()
}

// StableQuestionID derives a deterministic id from question text. It is only
// used for legacy records stored without an id.
func StableQuestionID(text string) string {
	return uuid.NewSHA1(legacyQuestionNamespace, []byte(text)).String()
}

type QuestionSet struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// Find returns the question with the given id.
func (s *QuestionSet) Find(id string) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// Without returns a copy of the set with the question removed.
func (s *QuestionSet) Without(id string) *QuestionSet {
	out := &QuestionSet{ID: s.ID, Questions: make([]Question, 0, len(s.Questions))}
	for _, q := range s.Questions {
		if q.ID != id {
			out.Questions = append(out.Questions, q.Clone())
		}
	}
	return out
}

func (s *QuestionSet) Clone() *QuestionSet {
	out := &QuestionSet{ID: s.ID, Questions: make([]Question, len(s.Questions))}
	for i, q := range s.Questions {
		out.Questions[i] = q.Clone()
	}
	return out
}

// AssignLegacyIDs gives questions stored without an id a deterministic one
// derived from their text, so answers keyed by it survive reloads. Repeated
// texts hash with a "#n" suffix to keep ids unique.
func (s *QuestionSet) AssignLegacyIDs() {
	seen := make(map[string]bool, len(s.Questions))
	for _, q := range s.Questions {
		if q.ID != "" {
			seen[q.ID] = true
		}
	}
	for i := range s.Questions {
		if s.Questions[i].ID != "" {
			continue
		}
		id := StableQuestionID(s.Questions[i].Question)
		for n := 1; seen[id]; n++ {
			id = StableQuestionID(s.Questions[i].Question + "#" + strconv.Itoa(n))
		}
		seen[id] = true
		s.Questions[i].ID = id
	}
}

// StudentQuestion is a question as shown while taking the test, without its
// answer key.
type StudentQuestion struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Question string       `json:"question"`
	Options  []string     `json:"options"`
	Points   float64      `json:"points"`
}

type StudentQuestionSet struct {
	ID        string            `json:"id"`
	Questions []StudentQuestion `json:"questions"`
}

// ForStudents returns the set with every answer key removed.
func (s *QuestionSet) ForStudents() *StudentQuestionSet {
	out := &StudentQuestionSet{ID: s.ID, Questions: make([]StudentQuestion, len(s.Questions))}
	for i, q := range s.Questions {
		options := append([]string{}, q.Options...)
		out.Questions[i] = StudentQuestion{
			ID:       q.ID,
			Type:     q.Type,
			Question: q.Question,
			Options:  options,
			Points:   q.Points,
		}
	}
	return out
}

// TotalPoints sums the weight of every question.
func (s *QuestionSet) TotalPoints() float64 {
	var total float64
	for _, q := range s.Questions {
		total += q.Points
	}
	return total
}

// scalarString renders a JSON scalar the way the web client stringifies it.
func scalarString(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", true
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false
		}
		return s, true
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return "", false
		}
		if b {
			return "true", true
		}
		return "false", true
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return "", false
		}
		return formatNumber(n), true
	}
}

func formatNumber(n json.Number) string {
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return n.String()
}
