package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies what happened in the quiz service
type EventType string

const (
	// Question set events
	EventQuestionSetSaved EventType = "question_set.saved"
	EventQuestionDeleted  EventType = "question.deleted"

	// Result events
	EventResultSubmitted EventType = "result.submitted"
	EventResultDeleted   EventType = "result.deleted"
)

const (
	eventSource  = "quiz-service"
	eventVersion = "1.0"
)

// QuizEvent is the envelope every published event shares
type QuizEvent struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

type QuestionSetSavedEvent struct {
	SetID         string   `json:"set_id"`
	QuestionCount int      `json:"question_count"`
	TotalPoints   float64  `json:"total_points"`
	QuestionIDs   []string `json:"question_ids"`
}

type QuestionDeletedEvent struct {
	SetID      string `json:"set_id"`
	QuestionID string `json:"question_id"`
}

type ResultSubmittedEvent struct {
	ResultID    string    `json:"result_id"`
	StudentName string    `json:"student_name"`
	Score       float64   `json:"score"`
	Earned      float64   `json:"earned"`
	Possible    float64   `json:"possible"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type ResultDeletedEvent struct {
	ResultID string `json:"result_id"`
}

func newEvent(eventType EventType, data interface{}) *QuizEvent {
	return &QuizEvent{
		ID:        GenerateEventID(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewQuestionSetSavedEvent(setID string, questionIDs []string, totalPoints float64) *QuizEvent {
	return newEvent(EventQuestionSetSaved, QuestionSetSavedEvent{
		SetID:         setID,
		QuestionCount: len(questionIDs),
		TotalPoints:   totalPoints,
		QuestionIDs:   questionIDs,
	})
}

func NewQuestionDeletedEvent(setID, questionID string) *QuizEvent {
	return newEvent(EventQuestionDeleted, QuestionDeletedEvent{
		SetID:      setID,
		QuestionID: questionID,
	})
}

func NewResultSubmittedEvent(resultID, studentName string, score, earned, possible float64, submittedAt time.Time) *QuizEvent {
	return newEvent(EventResultSubmitted, ResultSubmittedEvent{
		ResultID:    resultID,
		StudentName: studentName,
		Score:       score,
		Earned:      earned,
		Possible:    possible,
		SubmittedAt: submittedAt,
	})
}

func NewResultDeletedEvent(resultID string) *QuizEvent {
	return newEvent(EventResultDeleted, ResultDeletedEvent{ResultID: resultID})
}

// GenerateEventID returns a unique id for an event
func GenerateEventID() string {
	return uuid.NewString()
}
