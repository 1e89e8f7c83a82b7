package http

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ev-tile-publisher/internal/config"
	"github.com/ev-tile-publisher/internal/delivery/http/handler"
	"github.com/ev-tile-publisher/internal/delivery/http/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"
)

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	// Handlers
	viewerHandler   *handler.ViewerHandler
	pipelineHandler *handler.PipelineHandler

	checksMu sync.RWMutex
	checks   map[string]HealthCheck
}

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

const healthCheckTimeout = 2 * time.Second

// NewServer - создание нового HTTP сервера
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	viewerHandler *handler.ViewerHandler,
	pipelineHandler *handler.PipelineHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "EV Tile Publisher",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:             app,
		config:          cfg,
		logger:          logger,
		viewerHandler:   viewerHandler,
		pipelineHandler: pipelineHandler,
		checks:          make(map[string]HealthCheck),
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// App exposes the fiber app for in-process requests.
func (s *Server) App() *fiber.App {
	return s.app
}

// AddHealthCheck registers a dependency probed by the health endpoint.
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checksMu.Lock()
	defer s.checksMu.Unlock()
	s.checks[name] = check
}

// HealthResponse is the health endpoint body. Checks maps each registered
// dependency to "ok" or its error.
type HealthResponse struct {
	Status string            `json:"status" example:"healthy"`
	Checks map[string]string `json:"checks"`
	Time   time.Time         `json:"time"`
}

// health godoc
// @Summary Service health
// @Description Reports "healthy" when every registered dependency check passes, otherwise 503 with the failing checks.
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/v1/health [get]
func (s *Server) health(c *fiber.Ctx) error {
	s.checksMu.RLock()
	checks := make(map[string]HealthCheck, len(s.checks))
	for name, check := range s.checks {
		checks[name] = check
	}
	s.checksMu.RUnlock()

	ctx, cancel := context.WithTimeout(c.UserContext(), healthCheckTimeout)
	defer cancel()

	results := make(map[string]string, len(checks))
	status, code := "healthy", fiber.StatusOK
	for name, check := range checks {
		if err := check(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			status, code = "unhealthy", fiber.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	return c.Status(code).JSON(HealthResponse{
		Status: status,
		Checks: results,
		Time:   time.Now(),
	})
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS())
	// archives are already compressed and must keep byte offsets intact
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), tilesPrefix)
		},
	}))
}

const tilesPrefix = "/tiles"

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	// Swagger documentation route
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	// Viewer assets
	s.app.Static("/static", s.config.Viewer.StaticDir)
	s.app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/static/index.html")
	})

	// Archives. The pmtiles protocol reads them with byte-range requests.
	s.app.Static(tilesPrefix, s.config.Pipeline.OutputDir, fiber.Static{
		ByteRange:     true,
		Browse:        false,
		CacheDuration: 10 * time.Second,
		MaxAge:        3600,
	})

	api := s.app.Group("/api/v1")

	// Health check
	api.Get("/health", s.health)

	// Viewer
	api.Get("/config", s.viewerHandler.GetConfig)
	api.Get("/legend", s.viewerHandler.GetLegend)

	sessions := api.Group("/sessions")
	sessions.Post("/", s.viewerHandler.CreateSession)
	sessions.Get("/:id", s.viewerHandler.GetSession)
	sessions.Delete("/:id", s.viewerHandler.DeleteSession)
	sessions.Post("/:id/region", s.viewerHandler.SetRegion)
	sessions.Post("/:id/stage", s.viewerHandler.SetStage)
	sessions.Post("/:id/basemap", s.viewerHandler.SetBasemap)
	sessions.Post("/:id/style-loaded", s.viewerHandler.StyleLoaded)
	sessions.Post("/:id/analysis", s.viewerHandler.SetAnalysis)
	sessions.Post("/:id/overlays/:overlay", s.viewerHandler.SetOverlay)
	sessions.Post("/:id/click", s.viewerHandler.Click)
	sessions.Post("/:id/rendered", s.viewerHandler.Rendered)

	// Pipeline
	api.Get("/archives", s.pipelineHandler.ListArchives)
	api.Get("/runs", s.pipelineHandler.ListRuns)
	api.Get("/runs/:id", s.pipelineHandler.GetRun)
	api.Post("/conversions", s.pipelineHandler.Enqueue)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - кастомный обработчик ошибок
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		errCode := "INTERNAL_SERVER_ERROR"

		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
			if code == fiber.StatusNotFound {
				errCode = "NOT_FOUND"
			}
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("HTTP Error",
				zap.String("path", c.Path()),
				zap.Int("status", code),
				zap.Error(err),
			)
		}

		return c.Status(code).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    errCode,
				"message": err.Error(),
			},
		})
	}
}
