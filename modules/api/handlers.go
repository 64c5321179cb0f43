package api

import (
	"bytes"
	"errors"

	domain "github.com/example/task-store/domain/task"
	"github.com/example/task-store/modules/task"
	"github.com/gofiber/fiber/v2"
)

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	m.app.Get("/health", m.healthHandler)
	m.app.Get("/activity", m.listActivity)

	tasks := m.app.Group("/tasks")
	tasks.Post("/", m.createTask)
	tasks.Get("/", m.listTasks)
	tasks.Post("/import", m.importTasks)
	tasks.Get("/export", m.exportTasks)
	tasks.Get("/:id", m.getTask)
	tasks.Put("/:id", m.updateTask)
	tasks.Delete("/:id", m.deleteTask)
	tasks.Patch("/:id/complete", m.toggleComplete)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status: "healthy",
		Details: map[string]any{
			"module": "api",
			"port":   m.cfg.Port,
		},
	})
}

// createTask handles POST /tasks.
func (m *APIModule) createTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	created, err := m.tasks.Create(c.UserContext(), task.CreateTaskRequest{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return m.writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// listTasks handles GET /tasks?search=.
func (m *APIModule) listTasks(c *fiber.Ctx) error {
	tasks, err := m.tasks.List(c.UserContext(), c.Query("search"))
	if err != nil {
		return m.writeError(c, err)
	}
	return c.JSON(tasks)
}

// getTask handles GET /tasks/:id.
func (m *APIModule) getTask(c *fiber.Ctx) error {
	found, err := m.tasks.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return m.writeError(c, err)
	}
	return c.JSON(found)
}

// updateTask handles PUT /tasks/:id.
func (m *APIModule) updateTask(c *fiber.Ctx) error {
	// An empty body is an update with no fields.
	var req UpdateTaskRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return invalidBody(c)
		}
	}

	_, err := m.tasks.Update(c.UserContext(), task.UpdateTaskRequest{
		ID:          c.Params("id"),
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return m.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// deleteTask handles DELETE /tasks/:id.
func (m *APIModule) deleteTask(c *fiber.Ctx) error {
	if err := m.tasks.Delete(c.UserContext(), c.Params("id")); err != nil {
		return m.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// toggleComplete handles PATCH /tasks/:id/complete.
func (m *APIModule) toggleComplete(c *fiber.Ctx) error {
	if _, err := m.tasks.ToggleComplete(c.UserContext(), c.Params("id")); err != nil {
		return m.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// importTasks handles POST /tasks/import. A multipart "file" field is
// imported when present, otherwise the configured CSV file is.
func (m *APIModule) importTasks(c *fiber.Ctx) error {
	var (
		result *task.ImportResult
		err    error
	)

	if header, ferr := c.FormFile("file"); ferr == nil {
		file, oerr := header.Open()
		if oerr != nil {
			return m.writeError(c, errors.Join(domain.ErrImport, oerr))
		}
		defer file.Close()
		result, err = m.tasks.ImportFrom(c.UserContext(), file)
	} else {
		result, err = m.tasks.Import(c.UserContext())
	}
	if err != nil {
		return m.writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(ImportResponse{
		Imported: result.Imported,
		Total:    result.Total,
	})
}

// exportTasks handles GET /tasks/export.
func (m *APIModule) exportTasks(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if err := m.tasks.Export(c.UserContext(), &buf); err != nil {
		return m.writeError(c, err)
	}

	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="tasks.csv"`)
	return c.Send(buf.Bytes())
}

// listActivity handles GET /activity.
func (m *APIModule) listActivity(c *fiber.Ctx) error {
	return c.JSON(m.feed.Entries())
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error:   "invalid_request",
		Message: "Invalid request body",
	})
}

// writeError maps service errors to HTTP responses.
func (m *APIModule) writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrTaskNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error:   "not_found",
			Message: "Task not found",
		})
	case errors.Is(err, domain.ErrImport):
		m.logger.Error("Import failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "import_failed",
			Message: err.Error(),
		})
	default:
		m.logger.Error("Request failed", "method", c.Method(), "path", c.Path(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
	}
}
