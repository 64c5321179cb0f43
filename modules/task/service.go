package task

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	domain "github.com/example/task-store/domain/task"
	"github.com/example/task-store/events"
	"github.com/example/task-store/modules/recordstore"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Config configures the task service.
type Config struct {
	// ImportPath is the CSV file read by Import and rewritten afterwards.
	ImportPath string
	// Clock stamps created_at and completed_at. Defaults to domain.DefaultOffset.
	Clock domain.Clock
}

// Service implements the task operations on top of a record store port.
type Service struct {
	records    recordstore.RecordPort
	reader     recordstore.Reader
	importPath string
	now        domain.Clock
	eventBus   mono.EventBus
	logger     types.Logger
	imports    singleflight.Group
}

// NewService creates a task service.
func NewService(records recordstore.RecordPort, cfg Config, logger types.Logger) *Service {
	now := cfg.Clock
	if now == nil {
		now = domain.NewClock(domain.DefaultOffset)
	}
	return &Service{
		records:    records,
		importPath: cfg.ImportPath,
		now:        now,
		logger:     logger,
	}
}

// SetReader routes List, Export and the import rewrite through r instead of
// the select service. Bulk reads then skip the request-reply transport.
func (s *Service) SetReader(r recordstore.Reader) {
	s.reader = r
}

// SetEventBus enables event publishing. A nil bus disables it.
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.eventBus = bus
}

// Create validates and stores a new task.
func (s *Service) Create(ctx context.Context, req CreateTaskRequest) (*domain.Task, error) {
	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		return nil, fmt.Errorf("%w: title and description are required", domain.ErrValidation)
	}

	t := s.newTask(title, description)
	if _, err := s.records.Insert(ctx, domain.Table, toRecord(t)); err != nil {
		return nil, fmt.Errorf("failed to save task: %w", err)
	}

	s.publish("TaskCreated", t.ID, func() error {
		return events.TaskCreatedV1.Publish(s.eventBus, events.TaskCreatedEvent{
			TaskID:    t.ID,
			Title:     t.Title,
			CreatedAt: t.CreatedAt.Time,
		}, nil)
	})
	return t, nil
}

// List returns all tasks in creation order. A non-empty search keeps tasks
// whose title or description contains it, ignoring case.
func (s *Service) List(ctx context.Context, search string) ([]domain.Task, error) {
	var filter recordstore.Filter
	if search != "" {
		filter = recordstore.Filter{fieldTitle: search, fieldDescription: search}
	}

	var reader recordstore.Reader = s.records
	if s.reader != nil {
		reader = s.reader
	}
	records, err := reader.Select(ctx, domain.Table, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return fromRecords(records)
}

// Get returns the task with the given id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Task, error) {
	record, found, err := s.records.Find(ctx, domain.Table, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return fromRecord(record)
}

// Update overwrites the non-empty fields of req and returns the stored task.
func (s *Service) Update(ctx context.Context, req UpdateTaskRequest) (*domain.Task, error) {
	if _, err := s.Get(ctx, req.ID); err != nil {
		return nil, err
	}

	partial := recordstore.Record{}
	if title := strings.TrimSpace(req.Title); title != "" {
		partial[fieldTitle] = title
	}
	if description := strings.TrimSpace(req.Description); description != "" {
		partial[fieldDescription] = description
	}

	if err := s.update(ctx, req.ID, partial); err != nil {
		return nil, err
	}
	return s.Get(ctx, req.ID)
}

// Delete removes the task with the given id.
func (s *Service) Delete(ctx context.Context, id string) error {
	affected, err := s.records.Delete(ctx, domain.Table, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if !affected {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}

	s.publish("TaskDeleted", id, func() error {
		return events.TaskDeletedV1.Publish(s.eventBus, events.TaskDeletedEvent{
			TaskID:    id,
			DeletedAt: s.now(),
		}, nil)
	})
	return nil
}

// ToggleComplete marks an open task completed now, or reopens a completed one.
func (s *Service) ToggleComplete(ctx context.Context, id string) (*domain.Task, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	partial := recordstore.Record{fieldCompletedAt: nil}
	if !current.IsCompleted() {
		partial[fieldCompletedAt] = domain.NewTimestamp(now).String()
	}

	if err := s.update(ctx, id, partial); err != nil {
		return nil, err
	}

	if current.IsCompleted() {
		s.publish("TaskReopened", id, func() error {
			return events.TaskReopenedV1.Publish(s.eventBus, events.TaskReopenedEvent{
				TaskID:     id,
				ReopenedAt: now,
			}, nil)
		})
	} else {
		s.publish("TaskCompleted", id, func() error {
			return events.TaskCompletedV1.Publish(s.eventBus, events.TaskCompletedEvent{
				TaskID:      id,
				CompletedAt: now,
			}, nil)
		})
	}

	return s.Get(ctx, id)
}

// Import loads tasks from the configured CSV file, then rewrites that file
// with every task sorted by created_at. Concurrent calls share one run.
func (s *Service) Import(ctx context.Context) (*ImportResult, error) {
	v, err, shared := s.imports.Do(s.importPath, func() (any, error) {
		data, err := os.ReadFile(s.importPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrImport, err)
		}
		return s.importData(ctx, data)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Import shared with a concurrent call", "path", s.importPath)
	}
	return v.(*ImportResult), nil
}

// ImportFrom imports tasks from r instead of the configured file. The
// configured file is still rewritten with the full task list.
func (s *Service) ImportFrom(ctx context.Context, r io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrImport, err)
	}
	return s.importData(ctx, data)
}

// Export writes every task as CSV in creation order.
func (s *Service) Export(ctx context.Context, w io.Writer) error {
	tasks, err := s.List(ctx, "")
	if err != nil {
		return err
	}
	return writeCSV(w, tasks)
}

func (s *Service) importData(ctx context.Context, data []byte) (*ImportResult, error) {
	rows, err := readImportRows(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrImport, err)
	}

	for _, row := range rows {
		t := s.newTask(
			defaultIfBlank(row.Title, DefaultImportTitle),
			defaultIfBlank(row.Description, DefaultImportDescription),
		)
		if _, err := s.records.Insert(ctx, domain.Table, toRecord(t)); err != nil {
			return nil, fmt.Errorf("failed to save imported task: %w", err)
		}
	}

	all, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt.Time)
	})

	var buf bytes.Buffer
	if err := writeCSV(&buf, all); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrImport, err)
	}
	if err := recordstore.WriteFileAtomic(s.importPath, buf.Bytes(), 0o644); err != nil {
		return nil, fmt.Errorf("%w: rewrite %s: %w", domain.ErrImport, s.importPath, err)
	}

	result := &ImportResult{Imported: len(rows), Total: len(all)}
	s.logger.Info("Tasks imported", "imported", result.Imported, "total", result.Total, "path", s.importPath)

	s.publish("TasksImported", "", func() error {
		return events.TasksImportedV1.Publish(s.eventBus, events.TasksImportedEvent{
			Imported:   result.Imported,
			Total:      result.Total,
			ImportedAt: s.now(),
		}, nil)
	})
	return result, nil
}

func (s *Service) update(ctx context.Context, id string, partial recordstore.Record) error {
	affected, err := s.records.Update(ctx, domain.Table, id, partial)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	if !affected {
		return fmt.Errorf("%w: %s", domain.ErrTaskNotFound, id)
	}
	return nil
}

func (s *Service) newTask(title, description string) *domain.Task {
	now := domain.NewTimestamp(s.now())
	return &domain.Task{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// publish is best-effort: failures are logged and never fail the operation.
func (s *Service) publish(name, taskID string, fn func() error) {
	if s.eventBus == nil {
		return
	}
	if err := fn(); err != nil {
		s.logger.Warn("Failed to publish event", "event", name, "task_id", taskID, "error", err)
	}
}

func defaultIfBlank(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
