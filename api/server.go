// Package api exposes the fraud scoring pipeline over HTTP: scoring,
// drift checks, alert history, and retraining control.
package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	limiter "github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	_ "github.com/velora-tech/fraudsight/docs"
	"github.com/velora-tech/fraudsight/internal/alerting"
	"github.com/velora-tech/fraudsight/internal/datagen"
	"github.com/velora-tech/fraudsight/internal/inference"
	"github.com/velora-tech/fraudsight/internal/model"
	"github.com/velora-tech/fraudsight/internal/monitor"
	"github.com/velora-tech/fraudsight/internal/retraining"
	"github.com/velora-tech/fraudsight/pkg/errors"
)

// Config carries the HTTP settings the API layer needs.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateLimit    string // ulule/limiter format, e.g. "100-M"
}

// Deps are the pipeline services the handlers expose. Scorer and Alerts are
// expected in every deployment; the rest may be nil and their endpoints
// answer 503.
type Deps struct {
	Scorer    *inference.Scorer
	Monitor   *monitor.Service
	Alerts    *alerting.Manager
	Gate      *retraining.Gate
	Generator *datagen.Generator
	Registry  *model.Registry
}

// Server is the HTTP API server.
type Server struct {
	logger   *zap.Logger
	cfg      Config
	router   *gin.Engine
	validate *validator.Validate
	deps     Deps
	http     *http.Server
}

// NewServer builds the router with the standard middleware chain.
func NewServer(logger *zap.Logger, cfg Config, deps Deps) *Server {
	if cfg.RateLimit == "" {
		cfg.RateLimit = "100-M"
	}
	server := &Server{
		logger:   logger,
		cfg:      cfg,
		validate: validator.New(),
		deps:     deps,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	store := memory.NewStore()
	if rate, err := limiter.NewRateFromFormatted(cfg.RateLimit); err == nil {
		router.Use(ginlimiter.NewMiddleware(limiter.New(store, rate)))
	} else {
		logger.Warn("invalid rate limit format, limiter disabled", zap.String("rate_limit", cfg.RateLimit))
	}

	server.router = router
	server.registerRoutes()
	return server
}

// Router returns the gin engine, used by tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}
	s.logger.Info("starting API server", zap.String("addr", s.cfg.Addr))
	if err := s.http.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	s.logger.Info("shutting down API server")
	return s.http.Shutdown(ctx)
}

func (s *Server) registerRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.health)
		v1.GET("/metrics", gin.WrapH(promhttp.Handler()))
		v1.GET("/sample", s.sampleTransaction)
		v1.GET("/model", s.modelInfo)
		v1.GET("/predictions", s.recentPredictions)

		v1.POST("/predict", s.predict)
		v1.POST("/predict/batch", s.predictBatch)

		driftGroup := v1.Group("/drift")
		{
			driftGroup.POST("/check", s.driftCheck)
			driftGroup.GET("/summary", s.driftSummary)
		}

		v1.GET("/alerts", s.listAlerts)

		retrainGroup := v1.Group("/retraining")
		{
			retrainGroup.GET("/history", s.retrainingHistory)
			retrainGroup.POST("/trigger", s.triggerRetraining)
		}
	}

	s.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/docs/index.html")
	})
}

// writeError maps pipeline errors onto HTTP statuses. Internal errors are
// logged; client errors are only reflected back.
func (s *Server) writeError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("handler error", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (s *Server) unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " not configured"})
}
