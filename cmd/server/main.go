package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/handlers"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/reststore"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/SAP-F-2025/quiz-service/pkg"
	"github.com/SAP-F-2025/quiz-service/pkg/monitoring"
	"github.com/SAP-F-2025/quiz-service/pkg/security"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// store is the persistence backend selected by STORE_BACKEND.
type store interface {
	Questions() repositories.QuestionRepository
	Results() repositories.ResultRepository
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 1
	}

	logger := utils.NewLogger(utils.LogOptions{
		Environment: cfg.Environment,
		File:        cfg.LogFile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open store", "backend", cfg.Store.Backend, "error", err)
		return 1
	}
	defer st.Close()

	cacheService := cache.NewMemoryCache()
	if cfg.Cache.Enabled {
		client, err := pkg.NewRedisClient(ctx, cfg)
		if err != nil {
			logger.Error("Failed to connect to Redis", "error", err)
			return 1
		}
		defer client.Close()
		cacheService = cache.NewRedisCache(client, logger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(utils.ToSlogLogger(logger))
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		return 1
	}
	defer publisher.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := monitoring.New(registry)
	v := validator.New()

	questionService := services.NewQuestionService(st.Questions(), cacheService, publisher, v, metrics, logger,
		services.QuestionSetOptions{SetID: cfg.QuestionSetID, CacheTTL: cfg.Cache.TTL})
	resultService := services.NewResultService(st.Results(), questionService, publisher, v, metrics, logger)
	importExportService := services.NewImportExportService(questionService, resultService, v, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		utils.LoggerMiddleware(logger),
		utils.ContextLogger(logger),
		security.Secure(),
		security.CORS(cfg.CORSOrigins),
		metrics.MetricsMiddleware(),
	)

	var parser handlers.TokenParser
	if cfg.Casdoor.Enabled() {
		parser = handlers.NewCasdoorParser(cfg.Casdoor)
		logger.Info("Admin routes use Casdoor tokens", "endpoint", cfg.Casdoor.Endpoint)
	}

	var limiter gin.HandlerFunc
	if cfg.ResultRateLimit > 0 {
		limiter = security.NewRateLimiter(ctx, cfg.ResultRateLimit, cfg.ResultRateBurst).Middleware()
	}

	handlers.NewHandlerManager(questionService, resultService, importExportService, v, logger).
		SetupRoutes(router, handlers.RouteOptions{
			AdminAuth:     handlers.AdminAuth(parser, cfg.Admin, logger),
			SubmitLimiter: limiter,
			Metrics:       metrics,
			Store:         st,
		})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting quiz service", "port", cfg.Port, "environment", cfg.Environment,
			"store", cfg.Store.Backend, "question_set", cfg.QuestionSetID)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	code := 0
	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		logger.Error("Server error", "error", err)
		code = 1
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
		code = 1
	}
	return code
}

func openStore(ctx context.Context, cfg *config.Config, logger utils.Logger) (store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendPostgres:
		db, err := pkg.InitDatabase(cfg)
		if err != nil {
			return nil, err
		}
		st := postgres.New(db)
		if err := st.AutoMigrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	default:
		return reststore.New(reststore.Options{
			BaseURL: cfg.Store.URL,
			Timeout: cfg.Store.Timeout,
			Logger:  logger,
		}), nil
	}
}
