package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// resultRow is the stored form of a result; answers live in a JSON column.
type resultRow struct {
	ID          string                               `gorm:"primaryKey;size:64"`
	StudentName string                               `gorm:"size:200;not null;index"`
	Score       float64                              `gorm:"not null"`
	Answers     datatypes.JSONType[models.AnswerMap] `gorm:"type:jsonb"`
	Date        time.Time                            `gorm:"not null;index"`
	CreatedAt   time.Time
}

func (resultRow) TableName() string {
	return "results"
}

func toResultRow(r *models.Result) resultRow {
	answers := r.Answers
	if answers == nil {
		answers = models.AnswerMap{}
	}
	return resultRow{
		ID:          r.ID,
		StudentName: r.StudentName,
		Score:       r.Score,
		Answers:     datatypes.NewJSONType(answers),
		Date:        r.Date,
	}
}

func (row resultRow) toModel() *models.Result {
	answers := row.Answers.Data()
	if answers == nil {
		answers = models.AnswerMap{}
	}
	return &models.Result{
		ID:          row.ID,
		StudentName: row.StudentName,
		Score:       row.Score,
		Answers:     answers,
		Date:        row.Date,
	}
}

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

func (r *ResultPostgreSQL) Create(ctx context.Context, result *models.Result) error {
	row := toResultRow(result)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return storeError("create result", err)
	}
	return nil
}

func (r *ResultPostgreSQL) GetByID(ctx context.Context, id string) (*models.Result, error) {
	var row resultRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("result %s: %w", id, repositories.ErrRecordNotFound)
		}
		return nil, storeError("get result", err)
	}
	return row.toModel(), nil
}

func (r *ResultPostgreSQL) List(ctx context.Context, filters repositories.ResultFilters) ([]*models.Result, error) {
	query := r.db.WithContext(ctx).Model(&resultRow{})

	if name := strings.TrimSpace(filters.StudentName); name != "" {
		query = query.Where("LOWER(student_name) LIKE ?", "%"+strings.ToLower(name)+"%")
	}
	if filters.SortOrder == "asc" {
		query = query.Order("date ASC")
	} else {
		query = query.Order("date DESC")
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var rows []resultRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, storeError("list results", err)
	}

	results := make([]*models.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.toModel())
	}
	return results, nil
}

func (r *ResultPostgreSQL) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&resultRow{}, "id = ?", id)
	if result.Error != nil {
		return storeError("delete result", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("result %s: %w", id, repositories.ErrRecordNotFound)
	}
	return nil
}
