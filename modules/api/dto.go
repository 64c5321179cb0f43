package api

import (
	"context"
	"io"

	domain "github.com/example/task-store/domain/task"
	"github.com/example/task-store/modules/activity"
	"github.com/example/task-store/modules/task"
)

// TaskService is the part of the task service the HTTP layer calls.
type TaskService interface {
	Create(ctx context.Context, req task.CreateTaskRequest) (*domain.Task, error)
	List(ctx context.Context, search string) ([]domain.Task, error)
	Get(ctx context.Context, id string) (*domain.Task, error)
	Update(ctx context.Context, req task.UpdateTaskRequest) (*domain.Task, error)
	Delete(ctx context.Context, id string) error
	ToggleComplete(ctx context.Context, id string) (*domain.Task, error)
	Import(ctx context.Context) (*task.ImportResult, error)
	ImportFrom(ctx context.Context, r io.Reader) (*task.ImportResult, error)
	Export(ctx context.Context, w io.Writer) error
}

// ActivityFeed provides recent task activity.
type ActivityFeed interface {
	Entries() []activity.Entry
}

var _ TaskService = (*task.Service)(nil)
var _ ActivityFeed = (*activity.ActivityModule)(nil)

// CreateTaskRequest is the HTTP request for creating a task.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTaskRequest is the HTTP request for updating a task.
type UpdateTaskRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// ImportResponse is the HTTP response for a CSV import.
type ImportResponse struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}

// HealthResponse is the HTTP response for health check.
type HealthResponse struct {
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse is the HTTP response for errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
