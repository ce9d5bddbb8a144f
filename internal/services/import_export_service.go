package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/xuri/excelize/v2"
)

const (
	questionsSheet = "Questions"
	resultsSheet   = "Results"
)

var (
	questionExportHeaders = []string{"id", "type", "label", "question", "options", "correct", "points"}
	resultExportHeaders   = []string{"id", "student_name", "score", "date", "answered"}
	requiredImportColumns = []string{"type", "question", "correct"}
)

type importExportService struct {
	questions QuestionService
	results   ResultService
	validator *validator.Validator
	logger    utils.Logger
}

func NewImportExportService(questions QuestionService, results ResultService, validator *validator.Validator, logger utils.Logger) ImportExportService {
	return &importExportService{
		questions: questions,
		results:   results,
		validator: validator,
		logger:    logger,
	}
}

// ===== IMPORT OPERATIONS =====

func (s *importExportService) ImportQuestionsFromFile(ctx context.Context, reader io.Reader, filename string) (*models.ImportSummary, error) {
	s.logger.Info("Starting file import", "filename", filename)

	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".csv":
		return s.ImportQuestionsFromCSV(ctx, reader)
	case ".xlsx":
		return s.ImportQuestionsFromExcel(ctx, reader)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func (s *importExportService) ImportQuestionsFromCSV(ctx context.Context, reader io.Reader) (*models.ImportSummary, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read CSV: %v", ErrBadRequest, err)
	}
	return s.importRows(ctx, records)
}

func (s *importExportService) ImportQuestionsFromExcel(ctx context.Context, reader io.Reader) (*models.ImportSummary, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open Excel file: %v", ErrBadRequest, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: Excel file has no sheets", ErrBadRequest)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return s.importRows(ctx, rows)
}

// importRows parses every data row and appends the questions to the current
// set. Any rejected row aborts the whole import.
func (s *importExportService) importRows(ctx context.Context, rows [][]string) (*models.ImportSummary, error) {
	start := time.Now()

	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: file must have a header row and at least one data row", ErrBadRequest)
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	for _, col := range requiredImportColumns {
		if _, exists := headerMap[col]; !exists {
			return nil, fmt.Errorf("%w: missing required column %q", ErrBadRequest, col)
		}
	}

	summary := &models.ImportSummary{
		TotalRows: len(rows) - 1,
		Status:    models.ImportProcessing,
		Errors:    []models.ImportValidationError{},
	}

	var questions []models.Question
	for rowIndex, record := range rows[1:] {
		rowNum := rowIndex + 2
		if isBlankRow(record) {
			summary.TotalRows--
			continue
		}
		summary.ProcessedRows++

		question, rowErrors := s.parseRow(record, headerMap, rowNum)
		if len(rowErrors) > 0 {
			summary.Errors = append(summary.Errors, rowErrors...)
			summary.ErrorCount++
			continue
		}
		questions = append(questions, question)
		summary.SuccessCount++
	}

	if summary.ErrorCount > 0 {
		summary.SuccessCount = 0
		summary.Status = models.ImportValidationFailed
		summary.ProcessingTime = time.Since(start)
		return summary, fmt.Errorf("%w: %d of %d rows rejected", ErrValidationFailed, summary.ErrorCount, summary.ProcessedRows)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: file has no data rows", ErrBadRequest)
	}

	set, err := s.questions.AppendQuestions(ctx, questions)
	if err != nil {
		return nil, err
	}

	// The appended questions are the tail of the saved set.
	created := set.Questions[len(set.Questions)-len(questions):]
	summary.CreatedQuestions = make([]string, 0, len(created))
	for _, q := range created {
		summary.CreatedQuestions = append(summary.CreatedQuestions, q.ID)
	}
	summary.Status = models.ImportCompleted
	summary.ProcessingTime = time.Since(start)

	s.logger.Info("Question import completed",
		"total_rows", summary.TotalRows,
		"success_count", summary.SuccessCount,
		"duration", summary.ProcessingTime)

	return summary, nil
}

func (s *importExportService) parseRow(record []string, headerMap map[string]int, rowNum int) (models.Question, []models.ImportValidationError) {
	var errs []models.ImportValidationError

	getColumn := func(name string) string {
		if index, exists := headerMap[name]; exists && index < len(record) {
			return strings.TrimSpace(record[index])
		}
		return ""
	}

	rawType := getColumn("type")
	questionType, ok := parseQuestionType(rawType)
	if !ok {
		return models.Question{}, []models.ImportValidationError{{
			Row: rowNum, Column: "type", Message: "unsupported question type", Value: rawType,
		}}
	}

	question := models.DefaultQuestion(questionType)
	question.ID = ""
	question.Question = getColumn("question")
	question.Correct = models.AnswerKey(getColumn("correct"))

	if rawOptions := getColumn("options"); rawOptions != "" {
		question.Options = models.ParseWordBank(rawOptions)
	} else if questionType == models.QuestionMultiple {
		question.Options = []string{}
	}

	if questionType == models.QuestionBoolean {
		switch strings.ToLower(question.Correct.String()) {
		case "true", "verdadero":
			question.Correct = "true"
		case "false", "falso":
			question.Correct = "false"
		default:
			errs = append(errs, models.ImportValidationError{
				Row: rowNum, Column: "correct", Message: "must be 'true' or 'false'", Value: question.Correct.String(),
			})
		}
	}

	if rawPoints := getColumn("points"); rawPoints != "" {
		points, err := strconv.ParseFloat(rawPoints, 64)
		if err != nil || points < 0 {
			errs = append(errs, models.ImportValidationError{
				Row: rowNum, Column: "points", Message: "must be a non-negative number", Value: rawPoints,
			})
		} else {
			question.Points = points
		}
	}
	if len(errs) > 0 {
		return models.Question{}, errs
	}

	// Content rules are the same ones applied when the set is saved.
	if err := s.validator.ValidateQuestionSet([]models.Question{question}); err != nil {
		for _, ve := range validator.ToValidationErrors(err) {
			errs = append(errs, models.ImportValidationError{
				Row:     rowNum,
				Column:  strings.TrimPrefix(ve.Field, "questions[0]."),
				Message: ve.Message,
				Value:   fmt.Sprint(ve.Value),
			})
		}
		return models.Question{}, errs
	}

	return question, nil
}

// parseQuestionType accepts either the variant id or its admin label.
func parseQuestionType(raw string) (models.QuestionType, bool) {
	for _, qt := range models.AllQuestionTypes() {
		if strings.EqualFold(raw, string(qt)) || strings.EqualFold(raw, qt.Label()) {
			return qt, true
		}
	}
	return "", false
}

func isBlankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// ===== EXPORT OPERATIONS =====

func (s *importExportService) ExportQuestions(ctx context.Context, format models.ExportFormat) ([]byte, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	set, err := s.questions.GetQuestionSet(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(set.Questions))
	for _, q := range set.Questions {
		rows = append(rows, questionToRow(q))
	}
	return writeTable(format, questionsSheet, questionExportHeaders, rows)
}

func (s *importExportService) ExportResults(ctx context.Context, filters repositories.ResultFilters, format models.ExportFormat) ([]byte, error) {
	if err := checkFormat(format); err != nil {
		return nil, err
	}
	results, err := s.results.List(ctx, filters)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.ID,
			r.StudentName,
			strconv.FormatFloat(r.Score, 'f', 2, 64),
			r.Date.UTC().Format(time.RFC3339),
			strconv.Itoa(len(r.Answers)),
		})
	}
	return writeTable(format, resultsSheet, resultExportHeaders, rows)
}

func questionToRow(q models.Question) []string {
	return []string{
		q.ID,
		string(q.Type),
		q.Type.Label(),
		q.Question,
		strings.Join(q.Options, ", "),
		q.Correct.String(),
		strconv.FormatFloat(q.Points, 'f', -1, 64),
	}
}

func checkFormat(format models.ExportFormat) error {
	switch format {
	case models.ExportCSV, models.ExportXLSX, "":
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func writeTable(format models.ExportFormat, sheet string, headers []string, rows [][]string) ([]byte, error) {
	switch format {
	case models.ExportCSV:
		return writeCSV(headers, rows)
	default:
		return writeExcel(sheet, headers, rows)
	}
}

func writeCSV(headers []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	if err := writer.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("failed to write CSV rows: %w", err)
	}
	return buf.Bytes(), nil
}

func writeExcel(sheet string, headers []string, rows [][]string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}

	if err := setRow(f, sheet, 1, headers); err != nil {
		return nil, err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write Excel row %d: %w", rowNum, err)
	}
	return nil
}
