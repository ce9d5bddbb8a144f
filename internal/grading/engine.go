package grading

import (
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/models"
)

// scorer returns the points earned by one answered question.
type scorer func(q *models.Question, answer string) float64

var scorers = map[models.QuestionType]scorer{
	models.QuestionMultiple:     exactScorer,
	models.QuestionTranslate:    exactScorer,
	models.QuestionArrange:      exactScorer,
	models.QuestionBoolean:      booleanScorer,
	models.QuestionFillInBlanks: blanksScorer,
}

// Report is the full outcome of grading one submission.
type Report struct {
	Score    float64                  `json:"score"`
	Earned   float64                  `json:"earned"`
	Possible float64                  `json:"possible"`
	Verdicts []models.QuestionVerdict `json:"verdicts"`
}

// Score returns the submission's percentage in [0,100], unrounded. A set
// worth zero points scores 0.
func Score(questions []models.Question, answers models.AnswerMap) float64 {
	earned, possible := tally(questions, answers)
	return percentage(earned, possible)
}

// ScoreQuestion returns the points earned by a single question. Unanswered
// and empty answers earn nothing. Variants without a dedicated scorer fall
// back to the lenient exact match.
func ScoreQuestion(q *models.Question, answer string, answered bool) float64 {
	if !answered || answer == "" || q.Points <= 0 {
		return 0
	}
	score, ok := scorers[q.Type]
	if !ok {
		score = exactScorer
	}
	return score(q, answer)
}

// LenientMatch compares an answer with a key ignoring case and surrounding
// whitespace. It is the comparator used for scoring.
func LenientMatch(answer, correct string) bool {
	return normalize(answer) == normalize(correct)
}

// StrictVerdict is the comparator used to flag mistakes during review: the
// answer must equal the key exactly. It differs from
// LenientMatch, so a fillInBlanks answer with partial credit is still
// flagged as a mistake.
func StrictVerdict(answer string, answered bool, correct models.AnswerKey) bool {
	return answered && answer == correct.String()
}

// Review returns the strict verdict for every question in order.
func Review(questions []models.Question, answers models.AnswerMap) []models.QuestionVerdict {
	verdicts := make([]models.QuestionVerdict, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		answer, answered := answers.Lookup(q.ID)
		verdicts = append(verdicts, models.QuestionVerdict{
			QuestionID: q.ID,
			Type:       q.Type,
			Question:   q.Question,
			Answer:     answer,
			Answered:   answered,
			Correct:    q.Correct.String(),
			IsCorrect:  StrictVerdict(answer, answered, q.Correct),
		})
	}
	return verdicts
}

// Grade scores the submission and reviews every question in one pass over
// the inputs.
func Grade(questions []models.Question, answers models.AnswerMap) Report {
	earned, possible := tally(questions, answers)
	return Report{
		Score:    percentage(earned, possible),
		Earned:   earned,
		Possible: possible,
		Verdicts: Review(questions, answers),
	}
}

func tally(questions []models.Question, answers models.AnswerMap) (earned, possible float64) {
	for i := range questions {
		q := &questions[i]
		if q.Points > 0 {
			possible += q.Points
		}
		answer, answered := answers.Lookup(q.ID)
		earned += ScoreQuestion(q, answer, answered)
	}
	return earned, possible
}

func percentage(earned, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	return earned / possible * 100
}

func exactScorer(q *models.Question, answer string) float64 {
	if LenientMatch(answer, q.Correct.String()) {
		return q.Points
	}
	return 0
}

func booleanScorer(q *models.Question, answer string) float64 {
	if (answer == "true") == q.Correct.Bool() {
		return q.Points
	}
	return 0
}

// blanksScorer awards credit per blank, compared by position.
func blanksScorer(q *models.Question, answer string) float64 {
	expected := splitBlanks(q.Correct.String())
	if len(expected) == 0 {
		return 0
	}
	given := splitBlanks(answer)

	matched := 0
	for i, want := range expected {
		if i < len(given) && given[i] == want {
			matched++
		}
	}
	return q.Points * float64(matched) / float64(len(expected))
}

func splitBlanks(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = normalize(parts[i])
	}
	return parts
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
