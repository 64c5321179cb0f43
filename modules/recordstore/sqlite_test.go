package recordstore

import (
	"context"
	"path/filepath"
	"testing"
)

// setupTestPersister opens a SQLite persister on a temporary database file.
func setupTestPersister(t *testing.T) *SQLitePersister {
	t.Helper()

	p, err := OpenSQLitePersister(filepath.Join(t.TempDir(), "records.db"), false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = p.Close()
	})
	return p
}

func TestSQLitePersister_LoadEmpty(t *testing.T) {
	p := setupTestPersister(t)

	_, err := p.Load(context.Background())
	if err != ErrSnapshotNotFound {
		t.Fatalf("Load() error = %v, want ErrSnapshotNotFound", err)
	}
}

func TestSQLitePersister_RoundTrip(t *testing.T) {
	p := setupTestPersister(t)
	ctx := context.Background()

	tables := Tables{
		"tasks": {
			{"id": "b", "title": "second inserted first", "completed_at": nil},
			{"id": "a", "title": "then this one"},
			{"id": "c", "title": "last"},
		},
		"notes": {
			{"id": "n1", "body": "hello"},
		},
	}
	if err := p.Save(ctx, tables); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(loaded) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(loaded))
	}

	wantOrder := []string{"b", "a", "c"}
	if len(loaded["tasks"]) != len(wantOrder) {
		t.Fatalf("expected %d tasks, got %d", len(wantOrder), len(loaded["tasks"]))
	}
	for i, want := range wantOrder {
		if got, _ := loaded["tasks"][i].ID(); got != want {
			t.Errorf("tasks[%d]: expected id %q, got %q", i, want, got)
		}
	}
	if v, ok := loaded["tasks"][0]["completed_at"]; !ok || v != nil {
		t.Errorf("expected completed_at to round-trip as null, got %v (present=%v)", v, ok)
	}
	if loaded["notes"][0].String("body") != "hello" {
		t.Errorf("expected note body %q, got %q", "hello", loaded["notes"][0].String("body"))
	}
}

func TestSQLitePersister_SaveReplaces(t *testing.T) {
	p := setupTestPersister(t)
	ctx := context.Background()

	if err := p.Save(ctx, Tables{"tasks": {{"id": "1"}, {"id": "2"}}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := p.Save(ctx, Tables{"tasks": {{"id": "2"}}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(loaded["tasks"]) != 1 {
		t.Fatalf("expected 1 task after replace, got %d", len(loaded["tasks"]))
	}
	if id, _ := loaded["tasks"][0].ID(); id != "2" {
		t.Errorf("expected remaining id %q, got %q", "2", id)
	}
}

func TestSQLitePersister_Ping(t *testing.T) {
	p := setupTestPersister(t)

	if err := p.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestSQLitePersister_BacksStore(t *testing.T) {
	p := setupTestPersister(t)
	ctx := context.Background()

	s := NewStore(p, &mockLogger{})
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := s.Insert(ctx, "tasks", Record{"id": "1", "title": "stored in sqlite"}); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	reloaded := NewStore(p, &mockLogger{})
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if reloaded.Count("tasks") != 1 {
		t.Errorf("expected 1 task after reload, got %d", reloaded.Count("tasks"))
	}
}

func TestSQLitePersister_EmptySnapshotIsNotMissing(t *testing.T) {
	p := setupTestPersister(t)
	ctx := context.Background()

	if err := p.Save(ctx, Tables{"tasks": {{"id": "1"}}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := p.Save(ctx, Tables{"tasks": {}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v, want an empty snapshot", err)
	}
	if len(loaded["tasks"]) != 0 {
		t.Errorf("expected no tasks, got %d", len(loaded["tasks"]))
	}
}
