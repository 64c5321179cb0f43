package recordstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Mirror receives a copy of one table after every successful mutation.
type Mirror interface {
	Write(ctx context.Context, records []Record) error
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for updated_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithMirror writes table to m alongside every snapshot save.
func WithMirror(table string, m Mirror) Option {
	return func(s *Store) {
		s.mirrorTable = table
		s.mirror = m
	}
}

// Store is an in-memory multi-table record collection backed by a Persister.
// Mutations hold the write lock until the snapshot is saved, so writes are
// serialized and never lost to a concurrent save.
type Store struct {
	mu          sync.RWMutex
	tables      Tables
	persister   Persister
	mirror      Mirror
	mirrorTable string
	now         func() time.Time
	logger      types.Logger
}

var _ RecordPort = (*Store)(nil)

// NewStore creates an empty store. Call Load before serving requests.
func NewStore(persister Persister, logger types.Logger, opts ...Option) *Store {
	s := &Store{
		tables:    make(Tables),
		persister: persister,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the in-memory state with the persisted snapshot. When the
// snapshot is missing or unreadable the store starts empty and writes a
// fresh snapshot immediately.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables, err := s.persister.Load(ctx)
	if err == nil {
		if tables == nil {
			tables = make(Tables)
		}
		s.tables = tables
		s.logger.Info("Snapshot loaded", "tables", len(tables))
		return nil
	}

	if errors.Is(err, ErrSnapshotNotFound) {
		s.logger.Info("No snapshot found, starting empty")
	} else {
		s.logger.Warn("Failed to load snapshot, starting empty", "error", err)
	}

	s.tables = make(Tables)
	if err := s.persist(ctx); err != nil {
		return fmt.Errorf("failed to write initial snapshot: %w", err)
	}
	return nil
}

// Select returns copies of the records in table matching filter.
func (s *Store) Select(_ context.Context, table string, filter Filter) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.tables[table]
	result := make([]Record, 0, len(rows))
	for _, r := range rows {
		if filter.Match(r) {
			result = append(result, r.Clone())
		}
	}
	return result, nil
}

// Insert appends record to table and persists.
func (s *Store) Insert(ctx context.Context, table string, record Record) (Record, error) {
	id, ok := record.ID()
	if !ok {
		return nil, ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.tables[table]
	if indexOf(prev, id) >= 0 {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	s.tables[table] = append(prev, record.Clone())
	if err := s.persist(ctx); err != nil {
		if existed {
			s.tables[table] = prev
		} else {
			delete(s.tables, table)
		}
		return nil, err
	}
	return record, nil
}

// Find returns a copy of the record with the given id.
func (s *Store) Find(_ context.Context, table, id string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.tables[table]
	idx := indexOf(rows, id)
	if idx < 0 {
		return nil, false, nil
	}
	return rows[idx].Clone(), true, nil
}

// Update merges partial into the record with the given id, refreshes
// updated_at and persists. id and created_at cannot be changed. Reports
// false without persisting when the id is unknown.
func (s *Store) Update(ctx context.Context, table, id string, partial Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tables[table]
	idx := indexOf(rows, id)
	if idx < 0 {
		return false, nil
	}

	old := rows[idx]
	merged := old.Clone()
	for k, v := range partial {
		if k == FieldID || k == FieldCreatedAt {
			continue
		}
		merged[k] = v
	}
	merged[FieldUpdatedAt] = s.now().Format(time.RFC3339)

	rows[idx] = merged
	if err := s.persist(ctx); err != nil {
		rows[idx] = old
		return false, err
	}
	return true, nil
}

// Delete removes the record with the given id and persists. Reports false
// without persisting when the id is unknown.
func (s *Store) Delete(ctx context.Context, table, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows := s.tables[table]
	idx := indexOf(rows, id)
	if idx < 0 {
		return false, nil
	}

	next := make([]Record, 0, len(rows)-1)
	next = append(next, rows[:idx]...)
	next = append(next, rows[idx+1:]...)

	s.tables[table] = next
	if err := s.persist(ctx); err != nil {
		s.tables[table] = rows
		return false, err
	}
	return true, nil
}

// Count returns the number of records in table.
func (s *Store) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables[table])
}

// Stats returns record counts per table, for health reporting.
func (s *Store) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]int, len(s.tables))
	for name, rows := range s.tables {
		stats[name] = len(rows)
	}
	return stats
}

// persist saves the snapshot and, if configured, the mirror. Callers hold mu.
func (s *Store) persist(ctx context.Context) error {
	if s.mirror == nil {
		if err := s.persister.Save(ctx, s.tables); err != nil {
			s.logger.Error("Failed to save snapshot", "error", err)
			return fmt.Errorf("%w: %w", ErrPersist, err)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.persister.Save(gctx, s.tables)
	})
	g.Go(func() error {
		if err := s.mirror.Write(gctx, s.tables[s.mirrorTable]); err != nil {
			return fmt.Errorf("mirror %s: %w", s.mirrorTable, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to save snapshot", "error", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
