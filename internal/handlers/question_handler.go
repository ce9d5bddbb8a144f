package handlers

import (
	"errors"
	"net/http"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type QuestionHandler struct {
	BaseHandler
	questionService     services.QuestionService
	importExportService services.ImportExportService
	validator           *validator.Validator
}

func NewQuestionHandler(
	questionService services.QuestionService,
	importExportService services.ImportExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:         NewBaseHandler(logger),
		questionService:     questionService,
		importExportService: importExportService,
		validator:           validator,
	}
}

// GetQuestionSet returns the current question set for taking the test
// @Summary Get question set
// @Description Answer keys are left out; submissions are graded by the server.
// @Tags questions
// @Produce json
// @Success 200 {object} models.StudentQuestionSet
// @Failure 502 {object} ErrorResponse
// @Router /questions [get]
func (h *QuestionHandler) GetQuestionSet(c *gin.Context) {
	set, err := h.questionService.GetQuestionSet(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, set.ForStudents())
}

// GetFullQuestionSet returns the current question set with answer keys
// @Summary Get question set for editing
// @Tags questions
// @Produce json
// @Success 200 {object} models.QuestionSet
// @Failure 502 {object} ErrorResponse
// @Router /questions/full [get]
func (h *QuestionHandler) GetFullQuestionSet(c *gin.Context) {
	set, err := h.questionService.GetQuestionSet(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, set)
}

// SaveQuestionSet replaces the whole question set
// @Summary Save question set
// @Description Validates and replaces every question. Nothing is saved when any question is invalid.
// @Tags questions
// @Accept json
// @Produce json
// @Param questions body services.SaveQuestionSetRequest true "Question set"
// @Success 200 {object} models.QuestionSet
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /questions [put]
func (h *QuestionHandler) SaveQuestionSet(c *gin.Context) {
	var req services.SaveQuestionSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Saving question set", "question_count", len(req.Questions))

	set, err := h.questionService.SaveQuestionSet(c.Request.Context(), req.Questions)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, set)
}

// ValidateQuestionSet checks a question set without saving it
// @Summary Validate question set
// @Tags questions
// @Accept json
// @Produce json
// @Param questions body services.SaveQuestionSetRequest true "Question set"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} ErrorResponse
// @Router /questions/validate [post]
func (h *QuestionHandler) ValidateQuestionSet(c *gin.Context) {
	var req services.SaveQuestionSetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	err := h.questionService.ValidateQuestionSet(req.Questions)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"valid": true, "errors": services.ValidationErrors{}})
		return
	}

	var details services.ValidationErrors
	if !errors.As(err, &details) {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": false, "errors": details})
}

// GetDefaultQuestion returns the blank skeleton for a question type
// @Summary Question skeleton
// @Tags questions
// @Produce json
// @Param type path string true "Question type"
// @Success 200 {object} models.Question
// @Failure 400 {object} ErrorResponse
// @Router /questions/defaults/{type} [get]
func (h *QuestionHandler) GetDefaultQuestion(c *gin.Context) {
	question, err := h.questionService.NewQuestion(models.QuestionType(c.Param("type")))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"question": question,
		"label":    question.Type.Label(),
	})
}

// DeleteQuestion removes one question from the set
// @Summary Delete question
// @Tags questions
// @Param id path string true "Question ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /questions/{id} [delete]
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting question", "question_id", id)

	if err := h.questionService.DeleteQuestion(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Question deleted successfully", gin.H{"id": id})
}

// ExportQuestions downloads the question set as a spreadsheet
// @Summary Export questions
// @Tags questions
// @Produce application/octet-stream
// @Param format query string false "xlsx or csv"
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Router /questions/export [get]
func (h *QuestionHandler) ExportQuestions(c *gin.Context) {
	format, ok := bindExportFormat(c, h.validator)
	if !ok {
		return
	}

	data, err := h.importExportService.ExportQuestions(c.Request.Context(), format)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	sendFile(c, "questions", string(format), data)
}

// ImportQuestions appends questions from an uploaded csv or xlsx file
// @Summary Import questions
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Spreadsheet with type, question, options, correct and points columns"
// @Success 201 {object} models.ImportSummary
// @Failure 400 {object} ErrorResponse
// @Router /questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "File is required",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Failed to open uploaded file", err)
		return
	}
	defer file.Close()

	h.LogRequest(c, "Importing questions", "filename", fileHeader.Filename, "size", fileHeader.Size)

	summary, err := h.importExportService.ImportQuestionsFromFile(c.Request.Context(), file, fileHeader.Filename)
	if err != nil {
		if summary != nil && services.IsValidation(err) {
			h.RespondWithError(c, http.StatusBadRequest, "Import rejected", err, summary)
			return
		}
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, summary)
}

// bindExportFormat reads ?format=, defaulting to xlsx.
func bindExportFormat(c *gin.Context, v *validator.Validator) (models.ExportFormat, bool) {
	var req models.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return "", false
	}
	if err := v.ValidateStruct(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unsupported export format",
			Details: err,
		})
		return "", false
	}
	if req.Format == "" {
		req.Format = models.ExportXLSX
	}
	return req.Format, true
}
