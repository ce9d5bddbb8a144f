package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/SAP-F-2025/quiz-service/pkg/monitoring"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether the persistence store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouteOptions carries the cross-cutting middleware for SetupRoutes.
type RouteOptions struct {
	AdminAuth     gin.HandlerFunc
	SubmitLimiter gin.HandlerFunc
	Metrics       *monitoring.Metrics
	Store         Pinger
}

type HandlerManager struct {
	questionHandler *QuestionHandler
	resultHandler   *ResultHandler
	gradingHandler  *GradingHandler
}

func NewHandlerManager(
	questionService services.QuestionService,
	resultService services.ResultService,
	importExportService services.ImportExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		questionHandler: NewQuestionHandler(questionService, importExportService, validator, logger),
		resultHandler:   NewResultHandler(resultService, importExportService, validator, logger),
		gradingHandler:  NewGradingHandler(resultService, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, opts RouteOptions) {
	router.GET("/health", HealthCheck(opts.Store))
	router.GET("/metrics", opts.Metrics.PrometheusHandler())

	admin := opts.AdminAuth
	if admin == nil {
		admin = func(c *gin.Context) { c.Next() }
	}
	limiter := opts.SubmitLimiter
	if limiter == nil {
		limiter = func(c *gin.Context) { c.Next() }
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		questions := v1.Group("/questions")
		{
			questions.GET("", hm.questionHandler.GetQuestionSet)

			questions.GET("/full", admin, hm.questionHandler.GetFullQuestionSet)
			questions.PUT("", admin, hm.questionHandler.SaveQuestionSet)
			questions.POST("/validate", admin, hm.questionHandler.ValidateQuestionSet)
			questions.GET("/defaults/:type", admin, hm.questionHandler.GetDefaultQuestion)
			questions.GET("/export", admin, hm.questionHandler.ExportQuestions)
			questions.POST("/import", admin, hm.questionHandler.ImportQuestions)
			questions.DELETE("/:id", admin, hm.questionHandler.DeleteQuestion)
		}

		results := v1.Group("/results")
		{
			results.POST("", limiter, hm.resultHandler.SubmitResult)

			results.GET("", admin, hm.resultHandler.ListResults)
			results.GET("/export", admin, hm.resultHandler.ExportResults)
			results.GET("/:id", admin, hm.resultHandler.GetResult)
			results.GET("/:id/review", admin, hm.resultHandler.ReviewResult)
			results.DELETE("/:id", admin, hm.resultHandler.DeleteResult)
		}

		grading := v1.Group("/grading")
		{
			grading.POST("/calculate-score", hm.gradingHandler.CalculateScore)
		}
	}
}

// HealthCheck reports service health, including store reachability when a
// store is given.
func HealthCheck(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status":  "healthy",
			"service": "quiz-service",
		}
		if store == nil {
			c.JSON(http.StatusOK, body)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			body["status"] = "degraded"
			body["store"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["store"] = "ok"
		c.JSON(http.StatusOK, body)
	}
}
