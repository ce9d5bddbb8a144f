package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/gin-gonic/gin"
)

type ResultHandler struct {
	BaseHandler
	resultService       services.ResultService
	importExportService services.ImportExportService
	validator           *validator.Validator
}

func NewResultHandler(
	resultService services.ResultService,
	importExportService services.ImportExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *ResultHandler {
	return &ResultHandler{
		BaseHandler:         NewBaseHandler(logger),
		resultService:       resultService,
		importExportService: importExportService,
		validator:           validator,
	}
}

// SubmitResult grades and stores a finished test
// @Summary Submit result
// @Description Scores the answers against the current question set. A score sent by the client is ignored.
// @Tags results
// @Accept json
// @Produce json
// @Param result body services.SubmitResultRequest true "Student name and answers keyed by question id"
// @Success 201 {object} services.SubmissionResponse
// @Failure 400 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /results [post]
func (h *ResultHandler) SubmitResult(c *gin.Context) {
	var req services.SubmitResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting result", "answer_count", len(req.Answers))

	resp, err := h.resultService.Submit(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListResults lists stored results, newest first by default
// @Summary List results
// @Tags results
// @Produce json
// @Param student_name query string false "Case-insensitive name filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Param sort_order query string false "asc or desc by date"
// @Success 200 {array} models.Result
// @Failure 400 {object} ErrorResponse
// @Router /results [get]
func (h *ResultHandler) ListResults(c *gin.Context) {
	filters, ok := h.bindFilters(c)
	if !ok {
		return
	}

	results, err := h.resultService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// GetResult retrieves a result by ID
// @Summary Get result
// @Tags results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} models.Result
// @Failure 404 {object} ErrorResponse
// @Router /results/{id} [get]
func (h *ResultHandler) GetResult(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	result, err := h.resultService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ReviewResult flags each question of the current set as right or wrong
// @Summary Review result
// @Tags results
// @Produce json
// @Param id path string true "Result ID"
// @Success 200 {object} services.ResultReview
// @Failure 404 {object} ErrorResponse
// @Router /results/{id}/review [get]
func (h *ResultHandler) ReviewResult(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	review, err := h.resultService.Review(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, review)
}

// DeleteResult removes a stored result
// @Summary Delete result
// @Tags results
// @Param id path string true "Result ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /results/{id} [delete]
func (h *ResultHandler) DeleteResult(c *gin.Context) {
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	h.LogRequest(c, "Deleting result", "result_id", id)

	if err := h.resultService.Delete(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Result deleted successfully", gin.H{"id": id})
}

// ExportResults downloads results as a spreadsheet
// @Summary Export results
// @Tags results
// @Produce application/octet-stream
// @Param format query string false "xlsx or csv"
// @Success 200 {file} file
// @Router /results/export [get]
func (h *ResultHandler) ExportResults(c *gin.Context) {
	filters, ok := h.bindFilters(c)
	if !ok {
		return
	}
	format, ok := bindExportFormat(c, h.validator)
	if !ok {
		return
	}

	data, err := h.importExportService.ExportResults(c.Request.Context(), filters, format)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	sendFile(c, "results", string(format), data)
}

func (h *ResultHandler) bindFilters(c *gin.Context) (repositories.ResultFilters, bool) {
	var filters repositories.ResultFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return filters, false
	}
	return filters, true
}
