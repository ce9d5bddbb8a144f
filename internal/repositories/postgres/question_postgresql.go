package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

type QuestionPostgreSQL struct {
	db *gorm.DB
}

func NewQuestionPostgreSQL(db *gorm.DB) repositories.QuestionRepository {
	return &QuestionPostgreSQL{db: db}
}

// GetSet loads the set in authored order
func (q *QuestionPostgreSQL) GetSet(ctx context.Context, setID string) (*models.QuestionSet, error) {
	questions := make([]models.Question, 0)
	if err := q.db.WithContext(ctx).
		Where("set_id = ?", setID).
		Order("position ASC").
		Find(&questions).Error; err != nil {
		return nil, storeError("get question set", err)
	}
	for i := range questions {
		if questions[i].Options == nil {
			questions[i].Options = []string{}
		}
	}
	return &models.QuestionSet{ID: setID, Questions: questions}, nil
}

// ReplaceSet deletes and reinserts the whole set in one transaction
func (q *QuestionPostgreSQL) ReplaceSet(ctx context.Context, set *models.QuestionSet) error {
	rows := make([]models.Question, len(set.Questions))
	for i, question := range set.Questions {
		row := question.Clone()
		row.SetID = set.ID
		row.Position = i
		if row.Options == nil {
			row.Options = []string{}
		}
		rows[i] = row
	}

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("set_id = ?", set.ID).Delete(&models.Question{}).Error; err != nil {
			return fmt.Errorf("failed to clear question set: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(rows, 100).Error; err != nil {
			return fmt.Errorf("failed to insert questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return storeError("replace question set "+set.ID, err)
	}
	return nil
}

// Delete removes a single question from the set
func (q *QuestionPostgreSQL) Delete(ctx context.Context, setID, questionID string) error {
	result := q.db.WithContext(ctx).
		Where("set_id = ? AND id = ?", setID, questionID).
		Delete(&models.Question{})
	if result.Error != nil {
		return storeError("delete question", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("question %s: %w", questionID, repositories.ErrRecordNotFound)
	}
	return nil
}
