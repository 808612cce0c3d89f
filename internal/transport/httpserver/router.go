// Package httpserver provides HTTP server and routing.
package httpserver

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"best-stories-service/internal/domain"
	"best-stories-service/internal/transport/httpserver/dto"
	"best-stories-service/internal/transport/httpserver/handler"
	"best-stories-service/internal/transport/httpserver/middleware"
	"best-stories-service/internal/validator"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port      int
	BodyLimit int
	Debug     bool

	MetricsEnabled bool
	MetricsPath    string

	// RefreshCounts is used by the admin refresh endpoint when the request names none.
	RefreshCounts []int
}

// Server wraps Fiber app with handlers.
type Server struct {
	App    *fiber.App
	Logger *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	cfg ServerConfig,
	stories handler.StoriesService,
	admin handler.CacheAdmin,
	cache domain.Cache,
	v *validator.Validator,
	logger *zap.Logger,
) (*Server, error) {
	engine, err := newViews(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	app := fiber.New(fiber.Config{
		AppName:               "best-stories-service",
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          errorHandler(logger),
		Views:                 engine,
		DisableStartupMessage: !cfg.Debug,
	})

	// Health check middleware MUST be registered BEFORE other middleware
	// for Kubernetes probes to work even during high load
	app.Use(middleware.NewHealthCheck(cache))

	app.Use(requestid.New())
	app.Use(middleware.Recover(logger))
	app.Use(middleware.Logger(logger))
	app.Use(middleware.Metrics())
	app.Use(middleware.CORS())
	app.Use(compress.New())

	if cfg.MetricsEnabled {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(promhttp.Handler()))
	}

	storiesHandler := handler.NewBestStoriesHandler(stories, v, logger)
	adminHandler := handler.NewAdminHandler(admin, cfg.RefreshCounts, v, logger)
	dashboardHandler := handler.NewDashboardHandler(stories, v, logger)

	registerRoutes(app, storiesHandler, adminHandler, dashboardHandler)

	return &Server{
		App:    app,
		Logger: logger,
	}, nil
}

// registerRoutes sets up all API routes.
func registerRoutes(
	app *fiber.App,
	storiesHandler *handler.BestStoriesHandler,
	adminHandler *handler.AdminHandler,
	dashboardHandler *handler.DashboardHandler,
) {
	// Health checks are handled by middleware (/livez, /readyz)

	// Dashboard (HTML)
	app.Get("/dashboard", dashboardHandler.Render)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/dashboard")
	})

	v1 := app.Group("/api/v1")

	v1.Get("/beststories", storiesHandler.GetBestStories)

	admin := v1.Group("/admin")
	admin.Post("/cache/refresh", adminHandler.Refresh)
	admin.Delete("/cache", adminHandler.Clear)
}

// errorHandler returns a custom error handler that logs based on HTTP status code.
// 404s are logged at DEBUG level (expected client behavior), 4xx at WARN, 5xx at ERROR.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		switch {
		case code == fiber.StatusNotFound:
			logger.Debug("resource not found",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
		case code >= 500:
			logger.Error("server error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		default:
			logger.Warn("client error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		}

		return c.Status(code).JSON(dto.StatusProblem(code, err.Error()), dto.ProblemContentType)
	}
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	s.Logger.Info("starting HTTP server", zap.Int("port", port))

	return s.App.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.Logger.Info("shutting down HTTP server")

	return s.App.Shutdown()
}
