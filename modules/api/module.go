package api

import (
	"context"
	"fmt"
	"time"

	"github.com/example/task-store/modules/activity"
	"github.com/example/task-store/modules/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Config configures the HTTP API.
type Config struct {
	Port           int
	AllowedOrigins string
	// BodyLimit caps request bodies, including CSV uploads. Zero keeps fiber's default.
	BodyLimit int
}

// APIModule is the driving adapter that exposes the task REST endpoints.
type APIModule struct {
	cfg            Config
	app            *fiber.App
	taskModule     *task.TaskModule
	activityModule *activity.ActivityModule
	tasks          TaskService
	feed           ActivityFeed
	logger         types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger types.Logger) *APIModule {
	if cfg.AllowedOrigins == "" {
		cfg.AllowedOrigins = "*"
	}
	return &APIModule{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies makes the framework start the task module first.
func (m *APIModule) Dependencies() []string {
	return []string{"task"}
}

// SetDependencyServiceContainer is a no-op; the task service is read in Start.
func (m *APIModule) SetDependencyServiceContainer(_ string, _ mono.ServiceContainer) {}

// SetTaskModule sets the task module dependency. Its service is resolved
// in Start, after the task module has started.
func (m *APIModule) SetTaskModule(taskModule *task.TaskModule) {
	m.taskModule = taskModule
}

// SetActivityModule sets the activity module dependency.
func (m *APIModule) SetActivityModule(activityModule *activity.ActivityModule) {
	m.activityModule = activityModule
}

// Start initializes and starts the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.taskModule == nil || m.taskModule.Service() == nil {
		return fmt.Errorf("task module not set or not started")
	}
	if m.activityModule == nil {
		return fmt.Errorf("activity module not set")
	}
	m.tasks = m.taskModule.Service()
	m.feed = m.activityModule

	m.buildApp()

	addr := fmt.Sprintf(":%d", m.cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			errCh <- err
		}
	}()

	// Wait briefly to catch immediate startup errors (port in use, permission denied)
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", addr)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (m *APIModule) Stop(ctx context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	if err := m.app.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.cfg.Port,
		},
	}
}

// buildApp creates the fiber app with middleware and routes.
func (m *APIModule) buildApp() {
	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		BodyLimit:             m.cfg.BodyLimit,
	})

	m.app.Use(recover.New())
	m.app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	m.app.Use(cors.New(cors.Config{
		AllowOrigins: m.cfg.AllowedOrigins,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	m.setupRoutes()
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
