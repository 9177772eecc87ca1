// Package http serves the gate over HTTP.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/gate"
	"github.com/fyrsmithlabs/roomgate/internal/logging"
)

// Processor runs an exchange through the gate. *gate.Service satisfies it.
type Processor interface {
	Process(ctx context.Context, text string, opts gate.Options) (gate.Decision, error)
}

// Server provides the HTTP endpoints for roomgate.
type Server struct {
	echo   *echo.Echo
	gate   Processor
	logger *logging.Logger
	config *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
	// RateLimit is requests per second per client IP; 0 disables it.
	RateLimit   float64
	RateBurst   int
	CORSOrigins []string
	// BodyLimit caps request bodies, e.g. "64K". Empty disables it.
	BodyLimit string
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Host:        "127.0.0.1",
		Port:        5000,
		RateLimit:   20,
		RateBurst:   40,
		CORSOrigins: []string{"*"},
		BodyLimit:   "64K",
	}
}

// NewServer creates a new HTTP server.
func NewServer(g Processor, logger *logging.Logger, cfg *Config) (*Server, error) {
	if g == nil {
		return nil, fmt.Errorf("gate cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	s := &Server{
		echo:   e,
		gate:   g,
		logger: logger,
		config: cfg,
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.requestLogger())
	e.Use(NewHTTPMetrics(logger.Underlying()).MetricsMiddleware())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		}))
	}
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	if cfg.RateLimit > 0 {
		e.Use(rateLimiter(cfg.RateLimit, cfg.RateBurst))
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST("/classify", s.handleClassify)
}

// ClassifyRequest is the request body for POST /classify.
type ClassifyRequest struct {
	Text string `json:"text"`
	// AutoPersist defaults to true when omitted.
	AutoPersist *bool `json:"auto_persist,omitempty"`
	// Threshold overrides the configured decision threshold.
	Threshold *float64       `json:"threshold,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ClassifyResponse is the response body for POST /classify.
type ClassifyResponse = gate.Decision

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleClassify runs the exchange through the gate.
func (s *Server) handleClassify(c echo.Context) error {
	ctx := c.Request().Context()

	var req ClassifyRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(ctx, "invalid classify request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}

	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No text provided"})
	}

	opts := gate.DefaultOptions()
	if req.AutoPersist != nil {
		opts.AutoPersist = *req.AutoPersist
	}
	if req.Threshold != nil {
		if err := classifier.ValidateThreshold(*req.Threshold); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "threshold must be between 0 and 1 (exclusive)"})
		}
		opts.Threshold = *req.Threshold
	}
	opts.Metadata = req.Metadata

	decision, err := s.gate.Process(ctx, req.Text, opts)
	if err != nil {
		return s.classifyError(c, err)
	}
	c.Set(decisionKey, string(decision.Decision))
	return c.JSON(http.StatusOK, decision)
}

func (s *Server) classifyError(c echo.Context, err error) error {
	if errors.Is(err, gate.ErrInvalidInput) {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	msg := "internal error"
	switch {
	case errors.Is(err, gate.ErrModelUnavailable):
		msg = "classifier model unavailable"
	case errors.Is(err, gate.ErrStoreCorruption):
		msg = "memory store corrupted"
	}
	s.logger.Error(c.Request().Context(), "classify failed", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
}

// requestLogger logs each request and puts the request id and surface on
// the request context.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			ctx := logging.WithSurface(req.Context(), logging.SurfaceHTTP)
			ctx = logging.WithRequestID(ctx, c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			s.logger.Info(ctx, "http request",
				zap.String("method", req.Method),
				zap.String("path", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

// rateLimiter limits each client IP with a token bucket.
func rateLimiter(perSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/health" || c.Path() == "/metrics"
		},
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, ErrorResponse{Error: "cannot identify client"})
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
		},
	})
}

// errorHandler renders echo errors (404, 405, 413, panics) as ErrorResponse.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, ErrorResponse{Error: msg})
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server and blocks until it stops.
// It returns nil after a clean Shutdown.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", s.Addr()))
	if err := s.echo.Start(s.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
