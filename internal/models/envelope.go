package models

import (
	"bytes"
	"encoding/json"
)

// maxEnvelopeDepth bounds how far FlattenQuestions descends into wrappers.
const maxEnvelopeDepth = 8

// FlattenQuestions extracts questions from the store's read shape. The store
// may return a flat array, an object with a `questions` field, or wrappers of
// the form {id, questions: [...]} nested inside either. Malformed documents
// yield an empty set; individual malformed entries are skipped.
func FlattenQuestions(raw []byte) []Question {
	out := make([]Question, 0)
	collectQuestions(raw, 0, &out)
	return out
}

func collectQuestions(raw []byte, depth int, out *[]Question) {
	raw = bytes.TrimSpace(raw)
	if depth > maxEnvelopeDepth || len(raw) == 0 {
		return
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return
		}
		for _, item := range items {
			collectQuestions(item, depth+1, out)
		}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return
		}
		_, hasType := fields["type"]
		_, hasText := fields["question"]
		if nested, ok := fields["questions"]; ok && !hasType {
			collectQuestions(nested, depth+1, out)
			return
		}
		if !hasType && !hasText {
			return
		}
		var q Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return
		}
		*out = append(*out, q)
	}
}

// FlattenResults decodes the store's result listing, skipping malformed entries.
func FlattenResults(raw []byte) []Result {
	out := make([]Result, 0)
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		var r Result
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		out = append(out, r)
	}
	return out
}

// QuestionSetEnvelope is the whole-set write shape: {questions: [{id, questions}]}.
type QuestionSetEnvelope struct {
	Questions []QuestionSetWrapper `json:"questions"`
}

type QuestionSetWrapper struct {
	ID        string         `json:"id"`
	Questions []WireQuestion `json:"questions"`
}

// WireQuestion is a question as written to the store. Correct is a JSON
// boolean for boolean-variant questions and a string otherwise.
type WireQuestion struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Question string       `json:"question"`
	Options  []string     `json:"options"`
	Correct  any          `json:"correct"`
	Points   float64      `json:"points"`
}

// NewQuestionSetEnvelope builds the write shape for a whole question set.
// Questions without points get DefaultPoints.
func NewQuestionSetEnvelope(setID string, questions []Question) QuestionSetEnvelope {
	wire := make([]WireQuestion, 0, len(questions))
	for _, q := range questions {
		wire = append(wire, ToWireQuestion(q))
	}
	return QuestionSetEnvelope{
		Questions: []QuestionSetWrapper{{ID: setID, Questions: wire}},
	}
}

func ToWireQuestion(q Question) WireQuestion {
	w := WireQuestion{
		ID:       q.ID,
		Type:     q.Type,
		Question: q.Question,
		Options:  q.Options,
		Correct:  string(q.Correct),
		Points:   q.Points,
	}
	if w.Options == nil {
		w.Options = []string{}
	}
	if w.Points == 0 {
		w.Points = DefaultPoints
	}
	if q.Type == QuestionBoolean {
		w.Correct = q.Correct.Bool()
	}
	return w
}
