package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type GradingHandler struct {
	BaseHandler
	resultService services.ResultService
}

func NewGradingHandler(resultService services.ResultService, logger utils.Logger) *GradingHandler {
	return &GradingHandler{
		BaseHandler:   NewBaseHandler(logger),
		resultService: resultService,
	}
}

// CalculateScore grades answers without storing a result
// @Summary Calculate score
// @Description Scores the answers against the given questions, or the current set when none are sent.
// @Tags grading
// @Accept json
// @Produce json
// @Param request body services.CalculateScoreRequest true "Questions and answers"
// @Success 200 {object} grading.Report
// @Failure 400 {object} ErrorResponse
// @Router /grading/calculate-score [post]
func (h *GradingHandler) CalculateScore(c *gin.Context) {
	var req services.CalculateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	report, err := h.resultService.CalculateScore(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
