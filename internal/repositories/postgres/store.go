package postgres

import (
	"context"
	"fmt"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"gorm.io/gorm"
)

// Store is the gorm backed repository.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// AutoMigrate creates or updates the questions and results tables.
func (s *Store) AutoMigrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&models.Question{}, &resultRow{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *Store) Questions() repositories.QuestionRepository {
	return NewQuestionPostgreSQL(s.db)
}

func (s *Store) Results() repositories.ResultRepository {
	return NewResultPostgreSQL(s.db)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return storeError("get database handle", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storeError("ping database", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %v", repositories.ErrStoreUnavailable, op, err)
}
