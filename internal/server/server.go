package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/semaphore"

	"github.com/FranksOps/sovgauge/internal/metrics"
	"github.com/FranksOps/sovgauge/internal/pipeline"
	"github.com/FranksOps/sovgauge/pkg/ratelimit"
)

// Runner executes one analysis run.
type Runner interface {
	Run(ctx context.Context, query string) (*pipeline.State, error)
}

// Service describes an external dependency whose daily budget gates requests.
type Service struct {
	Name   string // key prefix in the status payload, e.g. "gemini"
	Label  string // human name in error messages, e.g. "Gemini"
	Budget *ratelimit.Budget
}

// Config wires the server's collaborators.
type Config struct {
	Runner       Runner
	Inference    Service
	Search       Service
	DefaultQuery string
	Logger       *slog.Logger
}

// Server is the HTTP front door for analysis runs. Runs are serialized so
// two requests never interleave a budget's check and record.
type Server struct {
	echo         *echo.Echo
	runner       Runner
	inference    Service
	search       Service
	defaultQuery string
	runs         *semaphore.Weighted
	logger       *slog.Logger
}

type analyzeRequest struct {
	Query string `json:"query"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds a Server and registers its routes.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DefaultQuery == "" {
		cfg.DefaultQuery = "smart fan"
	}

	s := &Server{
		echo:         echo.New(),
		runner:       cfg.Runner,
		inference:    cfg.Inference,
		search:       cfg.Search,
		defaultQuery: cfg.DefaultQuery,
		runs:         semaphore.NewWeighted(1),
		logger:       logger.With("component", "server"),
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				s.logger.Info("request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				s.logger.Error("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/", s.handleStatus)
	e.POST("/analyze", s.handleAnalyze)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleStatus(c echo.Context) error {
	status := map[string]any{"service": "sovgauge"}
	for _, svc := range []Service{s.inference, s.search} {
		status[svc.Name+"_remaining"] = svc.Budget.Remaining()
	}
	return c.JSON(http.StatusOK, status)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	// An unreadable body is treated as an empty one.
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Debug("ignoring malformed analyze body", "err", err)
		req = analyzeRequest{}
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = s.defaultQuery
	}

	for _, svc := range []Service{s.inference, s.search} {
		if svc.Budget.DailyExhausted() {
			return c.JSON(http.StatusTooManyRequests, errorResponse{Error: svc.Label + " daily quota exhausted"})
		}
	}

	ctx := c.Request().Context()
	if err := s.runs.Acquire(ctx, 1); err != nil {
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "request canceled while queued"})
	}
	defer s.runs.Release(1)

	// Client disconnects do not cancel a started run.
	state, err := s.runner.Run(context.WithoutCancel(ctx), query)
	if err != nil {
		s.logger.Error("analysis failed", "query", query, "err", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "analysis failed"})
	}
	return c.JSON(http.StatusOK, state.Report())
}
