// Package activity keeps a bounded, in-memory feed of task events.
package activity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/task-store/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// DefaultLimit is the number of entries kept when no limit is configured.
const DefaultLimit = 100

// Entry is one recorded task event.
type Entry struct {
	Type      string    `json:"type"`
	TaskID    string    `json:"task_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ActivityModule subscribes to task events and keeps the most recent ones.
type ActivityModule struct {
	limit   int
	entries []Entry
	mu      sync.RWMutex
	logger  types.Logger
}

var _ mono.Module = (*ActivityModule)(nil)
var _ mono.EventConsumerModule = (*ActivityModule)(nil)

// NewModule creates an activity module keeping at most limit entries.
func NewModule(limit int, logger types.Logger) *ActivityModule {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &ActivityModule{
		limit:   limit,
		entries: make([]Entry, 0, limit),
		logger:  logger,
	}
}

func (m *ActivityModule) Name() string {
	return "activity"
}

func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCompletedV1, m.handleTaskCompleted, m); err != nil {
		return fmt.Errorf("failed to register TaskCompleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskReopenedV1, m.handleTaskReopened, m); err != nil {
		return fmt.Errorf("failed to register TaskReopened consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TasksImportedV1, m.handleTasksImported, m); err != nil {
		return fmt.Errorf("failed to register TasksImported consumer: %w", err)
	}

	m.logger.Info("Registered event consumers", "events", "TaskCreated, TaskCompleted, TaskReopened, TaskDeleted, TasksImported")
	return nil
}

func (m *ActivityModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.record("task_created", event.TaskID, fmt.Sprintf("Task '%s' created", event.Title), event.CreatedAt)
	return nil
}

func (m *ActivityModule) handleTaskCompleted(_ context.Context, event events.TaskCompletedEvent, _ *mono.Msg) error {
	m.record("task_completed", event.TaskID, fmt.Sprintf("Task %s completed", event.TaskID), event.CompletedAt)
	return nil
}

func (m *ActivityModule) handleTaskReopened(_ context.Context, event events.TaskReopenedEvent, _ *mono.Msg) error {
	m.record("task_reopened", event.TaskID, fmt.Sprintf("Task %s reopened", event.TaskID), event.ReopenedAt)
	return nil
}

func (m *ActivityModule) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	m.record("task_deleted", event.TaskID, fmt.Sprintf("Task %s deleted", event.TaskID), event.DeletedAt)
	return nil
}

func (m *ActivityModule) handleTasksImported(_ context.Context, event events.TasksImportedEvent, _ *mono.Msg) error {
	m.record("tasks_imported", "", fmt.Sprintf("Imported %d tasks (%d total)", event.Imported, event.Total), event.ImportedAt)
	return nil
}

func (m *ActivityModule) record(entryType, taskID, message string, at time.Time) {
	m.logger.Debug("Task activity", "type", entryType, "task_id", taskID)

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.entries) == m.limit {
		copy(m.entries, m.entries[1:])
		m.entries = m.entries[:m.limit-1]
	}
	m.entries = append(m.entries, Entry{
		Type:      entryType,
		TaskID:    taskID,
		Message:   message,
		Timestamp: at,
	})
}

// Entries returns a copy of the feed, oldest first.
func (m *ActivityModule) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Entry, len(m.entries))
	copy(result, m.entries)
	return result
}

func (m *ActivityModule) Start(_ context.Context) error {
	m.logger.Info("Module started - listening for task events", "limit", m.limit)
	return nil
}

func (m *ActivityModule) Stop(_ context.Context) error {
	m.logger.Info("Module stopped")
	return nil
}
