package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// AnswerMap holds a learner's raw answers keyed by question id.
type AnswerMap map[string]string

// UnmarshalJSON tolerates scalar values other than strings, which older
// clients wrote for boolean and numeric answers. Null entries are dropped.
func (m *AnswerMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(AnswerMap, len(raw))
	for id, value := range raw {
		if string(value) == "null" {
			continue
		}
		s, ok := scalarString(value)
		if !ok {
			continue
		}
		out[id] = s
	}
	*m = out
	return nil
}

// Lookup returns the answer for a question and whether one was given.
func (m AnswerMap) Lookup(questionID string) (string, bool) {
	if m == nil {
		return "", false
	}
	answer, ok := m[questionID]
	return answer, ok
}

func (m AnswerMap) Clone() AnswerMap {
	out := make(AnswerMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Result is one completed test attempt. It is never modified after creation.
type Result struct {
	ID          string    `json:"id"`
	StudentName string    `json:"studentName" validate:"required"`
	Score       float64   `json:"score" validate:"min=0,max=100"`
	Answers     AnswerMap `json:"answers"`
	Date        time.Time `json:"date"`
}

// UnmarshalJSON accepts numeric ids, which some REST stores assign.
func (r *Result) UnmarshalJSON(data []byte) error {
	type alias Result
	aux := struct {
		ID json.RawMessage `json:"id"`
		*alias
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	id, ok := scalarString(aux.ID)
	if !ok {
		return fmt.Errorf("result id must be a string or number, got %s", string(aux.ID))
	}
	r.ID = id
	return nil
}

// QuestionVerdict is the strict per-question flag shown when reviewing mistakes.
type QuestionVerdict struct {
	QuestionID string       `json:"questionId"`
	Type       QuestionType `json:"type"`
	Question   string       `json:"question"`
	Answer     string       `json:"answer"`
	Answered   bool         `json:"answered"`
	Correct    string       `json:"correct"`
	IsCorrect  bool         `json:"isCorrect"`
}
