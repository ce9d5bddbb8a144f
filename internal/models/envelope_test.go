package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenQuestions(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantIDs []string
	}{
		{
			name:    "flat array",
			payload: `[{"id":"1","type":"translate","question":"Hello","correct":"hola","points":5}]`,
			wantIDs: []string{"1"},
		},
		{
			name:    "one level of set wrapping",
			payload: `[{"id":"2816","questions":[{"id":"1","type":"boolean","question":"Q1","correct":true},{"id":"2","type":"translate","question":"Q2","correct":"x"}]}]`,
			wantIDs: []string{"1", "2"},
		},
		{
			name:    "envelope object",
			payload: `{"questions":[{"id":"2816","questions":[{"id":"a","type":"arrange","question":"Order","options":["b","a"],"correct":"a b"}]}]}`,
			wantIDs: []string{"a"},
		},
		{
			name:    "double envelope as stored by the web client",
			payload: `{"id":1,"questions":{"questions":[{"id":"2816","questions":[{"id":"x","type":"multiple","question":"Pick","options":["a","b"],"correct":"a"}]}]}}`,
			wantIDs: []string{"x"},
		},
		{
			name:    "wrapper without nested questions",
			payload: `{"questions":[{"id":"2816"}]}`,
			wantIDs: []string{},
		},
		{
			name:    "malformed document",
			payload: `{"questions":`,
			wantIDs: []string{},
		},
		{
			name:    "malformed entry is skipped",
			payload: `[{"id":"1","type":"translate","question":"ok","correct":"a"},{"id":"2","type":"translate","question":"bad","correct":{"x":1}}]`,
			wantIDs: []string{"1"},
		},
		{
			name:    "numeric id",
			payload: `[{"id":17,"type":"translate","question":"Q","correct":"a"}]`,
			wantIDs: []string{"17"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			questions := FlattenQuestions([]byte(tt.payload))
			require.NotNil(t, questions)

			ids := make([]string, 0, len(questions))
			for _, q := range questions {
				ids = append(ids, q.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFlattenQuestions_BooleanKeyBecomesString(t *testing.T) {
	questions := FlattenQuestions([]byte(`[{"id":"1","type":"boolean","question":"Q","correct":false,"points":10}]`))
	require.Len(t, questions, 1)

	assert.Equal(t, AnswerKey("false"), questions[0].Correct)
	assert.False(t, questions[0].Correct.Bool())
	assert.Equal(t, float64(10), questions[0].Points)
}

func TestNewQuestionSetEnvelope(t *testing.T) {
	questions := []Question{
		{ID: "1", Type: QuestionBoolean, Question: "Is it?", Correct: "true", Points: 10},
		{ID: "2", Type: QuestionTranslate, Question: "Hello", Correct: "hola"},
	}

	data, err := json.Marshal(NewQuestionSetEnvelope("2816", questions))
	require.NoError(t, err)

	var decoded struct {
		Questions []struct {
			ID        string           `json:"id"`
			Questions []map[string]any `json:"questions"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded.Questions, 1)
	assert.Equal(t, "2816", decoded.Questions[0].ID)

	wire := decoded.Questions[0].Questions
	require.Len(t, wire, 2)
	assert.Equal(t, true, wire[0]["correct"])
	assert.Equal(t, float64(10), wire[0]["points"])
	assert.Equal(t, "hola", wire[1]["correct"])
	assert.Equal(t, float64(DefaultPoints), wire[1]["points"], "missing points default at save time")
	assert.Equal(t, []any{}, wire[1]["options"])
}

func TestQuestionSetEnvelope_RoundTrip(t *testing.T) {
	original := []Question{
		{ID: "1", Type: QuestionBoolean, Question: "Q1", Options: []string{}, Correct: "false", Points: 10},
		{ID: "2", Type: QuestionFillInBlanks, Question: "I ___ here", Options: []string{}, Correct: "am", Points: 4},
	}

	data, err := json.Marshal(NewQuestionSetEnvelope("2816", original))
	require.NoError(t, err)

	reloaded := FlattenQuestions(data)
	assert.Equal(t, original, reloaded)
}

func TestFlattenResults(t *testing.T) {
	payload := `[
		{"id":"r1","studentName":"Ana","score":80,"answers":{"1":"true","2":true,"3":7,"4":null},"date":"2024-03-01T10:00:00.000Z"},
		{"id":3,"studentName":"Luis","score":50,"answers":{},"date":"2024-03-02T10:00:00Z"},
		"garbage"
	]`

	results := FlattenResults([]byte(payload))
	require.Len(t, results, 2)

	assert.Equal(t, "r1", results[0].ID)
	assert.Equal(t, AnswerMap{"1": "true", "2": "true", "3": "7"}, results[0].Answers)
	assert.Equal(t, 2024, results[0].Date.Year())
	assert.Equal(t, "3", results[1].ID)

	assert.Empty(t, FlattenResults([]byte(`{"not":"an array"}`)))
}
