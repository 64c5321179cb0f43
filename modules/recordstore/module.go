package recordstore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// DefaultSelectPageBytes bounds one select reply well below the 1 MB NATS
// message limit of the embedded server.
const DefaultSelectPageBytes = 256 * 1024

// Storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Config configures the record store module.
type Config struct {
	// Backend selects the snapshot persister: BackendJSON or BackendSQLite.
	Backend string
	// SnapshotPath is the JSON snapshot file (BackendJSON).
	SnapshotPath string
	// SQLitePath is the database file (BackendSQLite).
	SQLitePath string
	// Debug enables GORM query logging.
	Debug bool
	// Clock stamps updated_at. Defaults to time.Now.
	Clock func() time.Time
	// MirrorTable and Mirror enable the legacy per-write table mirror.
	MirrorTable string
	Mirror      Mirror
}

// Module owns the Store and exposes it to other modules as request-reply
// services: services.recordstore.{select,insert,find,update,delete}.
type Module struct {
	cfg       Config
	persister Persister
	store     *Store
	logger    types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*Module)(nil)
var _ mono.ServiceProviderModule = (*Module)(nil)
var _ mono.HealthCheckableModule = (*Module)(nil)

// NewModule creates a new record store module.
func NewModule(cfg Config, logger types.Logger) *Module {
	if cfg.Backend == "" {
		cfg.Backend = BackendJSON
	}
	return &Module{
		cfg:    cfg,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "recordstore"
}

// Store returns the underlying store, or nil before Start.
func (m *Module) Store() *Store {
	return m.store
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "select", json.Unmarshal, json.Marshal, m.selectRecords,
	); err != nil {
		return fmt.Errorf("failed to register select service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "insert", json.Unmarshal, json.Marshal, m.insertRecord,
	); err != nil {
		return fmt.Errorf("failed to register insert service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "find", json.Unmarshal, json.Marshal, m.findRecord,
	); err != nil {
		return fmt.Errorf("failed to register find service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update", json.Unmarshal, json.Marshal, m.updateRecord,
	); err != nil {
		return fmt.Errorf("failed to register update service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete", json.Unmarshal, json.Marshal, m.deleteRecord,
	); err != nil {
		return fmt.Errorf("failed to register delete service: %w", err)
	}

	m.logger.Info("Registered services", "services", "services.recordstore.{select,insert,find,update,delete}")
	return nil
}

// Start opens the persister and loads the snapshot. Dependent modules start
// only after this returns, so no request ever sees a half-loaded store.
func (m *Module) Start(ctx context.Context) error {
	persister, err := m.openPersister()
	if err != nil {
		return err
	}
	m.persister = persister

	opts := []Option{}
	if m.cfg.Clock != nil {
		opts = append(opts, WithClock(m.cfg.Clock))
	}
	if m.cfg.Mirror != nil {
		opts = append(opts, WithMirror(m.cfg.MirrorTable, m.cfg.Mirror))
	}

	store := NewStore(persister, m.logger, opts...)
	if err := store.Load(ctx); err != nil {
		return fmt.Errorf("failed to load record store: %w", err)
	}
	m.store = store

	m.logger.Info("Record store started", "backend", m.cfg.Backend, "tables", len(store.Stats()))
	return nil
}

// Stop releases the persister.
func (m *Module) Stop(_ context.Context) error {
	if closer, ok := m.persister.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return err
		}
	}
	m.logger.Info("Record store stopped")
	return nil
}

// Health reports the backend and per-table record counts.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "record store not loaded",
		}
	}

	if p, ok := m.persister.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			return mono.HealthStatus{
				Healthy: false,
				Message: fmt.Sprintf("database ping failed: %v", err),
			}
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"backend": m.cfg.Backend,
			"tables":  m.store.Stats(),
		},
	}
}

func (m *Module) openPersister() (Persister, error) {
	switch m.cfg.Backend {
	case BackendJSON:
		p := NewFilePersister(m.cfg.SnapshotPath)
		m.logger.Info("Using JSON snapshot", "path", p.Path())
		return p, nil
	case BackendSQLite:
		m.logger.Info("Connecting to SQLite database", "path", m.cfg.SQLitePath)
		return OpenSQLitePersister(m.cfg.SQLitePath, m.cfg.Debug)
	default:
		return nil, fmt.Errorf("unknown store backend %q", m.cfg.Backend)
	}
}

func (m *Module) selectRecords(ctx context.Context, req SelectRequest, _ *mono.Msg) (SelectResponse, error) {
	if m.store == nil {
		return SelectResponse{}, ErrNotStarted
	}
	records, err := m.store.Select(ctx, req.Table, req.Filter)
	if err != nil {
		return SelectResponse{}, err
	}
	return pageRecords(records, req.Offset, req.MaxBytes)
}

// pageRecords cuts records[offset:] into a page whose JSON encoding stays
// within maxBytes. A page always holds at least one record.
func pageRecords(records []Record, offset, maxBytes int) (SelectResponse, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultSelectPageBytes
	}
	if offset < 0 || offset > len(records) {
		offset = len(records)
	}

	page := make([]Record, 0)
	size := 0
	next := offset
	for next < len(records) {
		data, err := json.Marshal(records[next])
		if err != nil {
			return SelectResponse{}, fmt.Errorf("failed to encode record: %w", err)
		}
		if len(page) > 0 && size+len(data) > maxBytes {
			break
		}
		page = append(page, records[next])
		size += len(data)
		next++
	}

	return SelectResponse{
		Records:    page,
		Total:      len(records),
		NextOffset: next,
		More:       next < len(records),
	}, nil
}

func (m *Module) insertRecord(ctx context.Context, req InsertRequest, _ *mono.Msg) (InsertResponse, error) {
	if m.store == nil {
		return InsertResponse{}, ErrNotStarted
	}
	record, err := m.store.Insert(ctx, req.Table, req.Record)
	if err != nil {
		return InsertResponse{}, err
	}
	return InsertResponse{Record: record}, nil
}

func (m *Module) findRecord(ctx context.Context, req FindRequest, _ *mono.Msg) (FindResponse, error) {
	if m.store == nil {
		return FindResponse{}, ErrNotStarted
	}
	record, found, err := m.store.Find(ctx, req.Table, req.ID)
	if err != nil {
		return FindResponse{}, err
	}
	return FindResponse{Record: record, Found: found}, nil
}

func (m *Module) updateRecord(ctx context.Context, req UpdateRequest, _ *mono.Msg) (MutationResponse, error) {
	if m.store == nil {
		return MutationResponse{}, ErrNotStarted
	}
	affected, err := m.store.Update(ctx, req.Table, req.ID, req.Fields)
	if err != nil {
		return MutationResponse{}, err
	}
	return MutationResponse{Affected: affected}, nil
}

func (m *Module) deleteRecord(ctx context.Context, req DeleteRequest, _ *mono.Msg) (MutationResponse, error) {
	if m.store == nil {
		return MutationResponse{}, ErrNotStarted
	}
	affected, err := m.store.Delete(ctx, req.Table, req.ID)
	if err != nil {
		return MutationResponse{}, err
	}
	return MutationResponse{Affected: affected}, nil
}
