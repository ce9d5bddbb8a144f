package models

import "time"

type ImportJobStatus string

const (
	ImportProcessing       ImportJobStatus = "processing"
	ImportCompleted        ImportJobStatus = "completed"
	ImportValidationFailed ImportJobStatus = "validation_failed"
)

type ExportFormat string

const (
	ExportXLSX ExportFormat = "xlsx"
	ExportCSV  ExportFormat = "csv"
)

type ImportValidationError struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

type ImportSummary struct {
	TotalRows        int                     `json:"total_rows"`
	ProcessedRows    int                     `json:"processed_rows"`
	SuccessCount     int                     `json:"success_count"`
	ErrorCount       int                     `json:"error_count"`
	CreatedQuestions []string                `json:"created_questions"`
	Errors           []ImportValidationError `json:"errors"`
	Status           ImportJobStatus         `json:"status"`
	ProcessingTime   time.Duration           `json:"processing_time"`
}

type ExportRequest struct {
	Format ExportFormat `form:"format" json:"format" validate:"omitempty,oneof=xlsx csv"`
}
