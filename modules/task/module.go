package task

import (
	"context"
	"fmt"

	"github.com/example/task-store/events"
	"github.com/example/task-store/modules/recordstore"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// TaskModule provides the task service (core domain). It reaches the record
// store through the recordstore module's request-reply services. When the
// store module is set, list reads go to its store directly.
type TaskModule struct {
	cfg         Config
	records     recordstore.RecordPort
	storeModule *recordstore.Module
	service     *Service
	eventBus mono.EventBus
	logger   types.Logger
}

var _ mono.Module = (*TaskModule)(nil)
var _ mono.DependentModule = (*TaskModule)(nil)
var _ mono.EventBusAwareModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)

// NewModule creates a new task module.
func NewModule(cfg Config, logger types.Logger) *TaskModule {
	return &TaskModule{
		cfg:    cfg,
		logger: logger,
	}
}

func (m *TaskModule) Name() string {
	return "task"
}

func (m *TaskModule) Dependencies() []string {
	return []string{"recordstore"}
}

func (m *TaskModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "recordstore" {
		m.records = recordstore.NewRecordAdapter(container)
	}
}

// SetStoreModule gives the module in-process read access to the record store.
func (m *TaskModule) SetStoreModule(storeModule *recordstore.Module) {
	m.storeModule = storeModule
}

func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskCompletedV1.ToBase(),
		events.TaskReopenedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
		events.TasksImportedV1.ToBase(),
	}
}

// Service returns the task service, or nil before Start.
func (m *TaskModule) Service() *Service {
	return m.service
}

func (m *TaskModule) Start(_ context.Context) error {
	if m.records == nil {
		return fmt.Errorf("recordstore dependency not set")
	}
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, events will not be published")
	}

	m.service = NewService(m.records, m.cfg, m.logger)
	m.service.SetEventBus(m.eventBus)
	if m.storeModule != nil && m.storeModule.Store() != nil {
		m.service.SetReader(m.storeModule.Store())
	}

	m.logger.Info("Module started", "depends_on", "recordstore", "import_path", m.cfg.ImportPath)
	return nil
}

func (m *TaskModule) Stop(_ context.Context) error {
	m.logger.Info("Module stopped")
	return nil
}
