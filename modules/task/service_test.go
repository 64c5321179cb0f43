package task

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/example/task-store/domain/task"
	"github.com/example/task-store/modules/recordstore"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gocarina/gocsv"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(msg string, args ...any)         {}
func (m *mockLogger) Info(msg string, args ...any)          {}
func (m *mockLogger) Warn(msg string, args ...any)          {}
func (m *mockLogger) Error(msg string, args ...any)         {}
func (m *mockLogger) With(args ...any) types.Logger         { return m }
func (m *mockLogger) WithError(err error) types.Logger      { return m }
func (m *mockLogger) WithModule(module string) types.Logger { return m }

// stepClock advances one second on every call so timestamps are ordered.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock() *stepClock {
	zone := time.FixedZone("UTC-3", -3*60*60)
	return &stepClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, zone)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type testEnv struct {
	service    *Service
	store      *recordstore.Store
	importPath string
	dir        string
}

func setupService(t *testing.T) *testEnv {
	t.Helper()

	dir := t.TempDir()
	clock := newStepClock()

	store := recordstore.NewStore(
		recordstore.NewFilePersister(filepath.Join(dir, "db.json")),
		&mockLogger{},
		recordstore.WithClock(clock.Now),
	)
	require.NoError(t, store.Load(context.Background()))

	importPath := filepath.Join(dir, "uploads", "tasks.csv")
	service := NewService(store, Config{ImportPath: importPath, Clock: clock.Now}, &mockLogger{})

	return &testEnv{service: service, store: store, importPath: importPath, dir: dir}
}

func (e *testEnv) create(t *testing.T, title, description string) *domain.Task {
	t.Helper()
	created, err := e.service.Create(context.Background(), CreateTaskRequest{Title: title, Description: description})
	require.NoError(t, err)
	return created
}

func (e *testEnv) writeImportFile(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(e.importPath), 0o755))
	require.NoError(t, os.WriteFile(e.importPath, []byte(content), 0o644))
}

func readCSVFile(t *testing.T, path string) []*csvTask {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rows []*csvTask
	require.NoError(t, gocsv.UnmarshalBytes(data, &rows))
	return rows
}

func TestService_Create(t *testing.T) {
	env := setupService(t)

	created := env.create(t, "Buy milk", "From the corner store")

	_, err := uuid.Parse(created.ID)
	assert.NoError(t, err, "id should be a uuid")
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, "From the corner store", created.Description)
	assert.Nil(t, created.CompletedAt)
	assert.True(t, created.CreatedAt.Equal(created.UpdatedAt.Time))
	assert.Equal(t, "2024-05-01T10:00:01-03:00", created.CreatedAt.String())

	stored, err := env.service.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, stored.Title)
	assert.Equal(t, created.CreatedAt.String(), stored.CreatedAt.String())
}

func TestService_CreateValidation(t *testing.T) {
	tests := []struct {
		name string
		req  CreateTaskRequest
	}{
		{name: "missing title", req: CreateTaskRequest{Description: "desc"}},
		{name: "missing description", req: CreateTaskRequest{Title: "title"}},
		{name: "blank title", req: CreateTaskRequest{Title: "   ", Description: "desc"}},
		{name: "both empty", req: CreateTaskRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)

			_, err := env.service.Create(context.Background(), tt.req)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, 0, env.store.Count(domain.Table))
		})
	}
}

func TestService_List(t *testing.T) {
	env := setupService(t)
	env.create(t, "Buy milk", "groceries")
	env.create(t, "Write report", "quarterly MILK numbers")
	env.create(t, "Walk dog", "park")

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{name: "no search returns all in order", search: "", want: []string{"Buy milk", "Write report", "Walk dog"}},
		{name: "matches title or description", search: "milk", want: []string{"Buy milk", "Write report"}},
		{name: "case-insensitive", search: "PARK", want: []string{"Walk dog"}},
		{name: "no match", search: "nothing", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := env.service.List(context.Background(), tt.search)
			require.NoError(t, err)

			titles := make([]string, 0, len(tasks))
			for _, task := range tasks {
				titles = append(titles, task.Title)
			}
			assert.Equal(t, tt.want, titles)
		})
	}
}

// writeOnlyPort serves every record operation except Select.
type writeOnlyPort struct {
	*recordstore.Store
}

func (p writeOnlyPort) Select(_ context.Context, _ string, _ recordstore.Filter) ([]recordstore.Record, error) {
	return nil, errors.New("select unavailable")
}

func TestService_SetReader(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	service := NewService(writeOnlyPort{env.store}, Config{ImportPath: env.importPath}, &mockLogger{})
	_, err := service.Create(ctx, CreateTaskRequest{Title: "Buy milk", Description: "2 liters"})
	require.NoError(t, err)

	_, err = service.List(ctx, "")
	require.Error(t, err)

	service.SetReader(env.store)

	tasks, err := service.List(ctx, "milk")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "Buy milk", tasks[0].Title)

	var buf bytes.Buffer
	require.NoError(t, service.Export(ctx, &buf))
	assert.Contains(t, buf.String(), "Buy milk")
}

func TestService_GetNotFound(t *testing.T) {
	env := setupService(t)

	_, err := env.service.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestService_Update(t *testing.T) {
	env := setupService(t)
	created := env.create(t, "Old title", "Old description")

	updated, err := env.service.Update(context.Background(), UpdateTaskRequest{ID: created.ID, Title: "New title"})
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "Old description", updated.Description)
	assert.Equal(t, created.CreatedAt.String(), updated.CreatedAt.String())
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt.Time), "updated_at should be refreshed")
}

func TestService_UpdateNotFound(t *testing.T) {
	env := setupService(t)

	_, err := env.service.Update(context.Background(), UpdateTaskRequest{ID: "missing", Title: "x"})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestService_Delete(t *testing.T) {
	env := setupService(t)
	keep := env.create(t, "Keep", "stays")
	drop := env.create(t, "Drop", "goes")

	require.NoError(t, env.service.Delete(context.Background(), drop.ID))

	tasks, err := env.service.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, keep.ID, tasks[0].ID)

	err = env.service.Delete(context.Background(), drop.ID)
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestService_ToggleComplete(t *testing.T) {
	env := setupService(t)
	created := env.create(t, "Toggle me", "twice")

	completed, err := env.service.ToggleComplete(context.Background(), created.ID)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletedAt)
	assert.True(t, completed.IsCompleted())
	assert.True(t, completed.CompletedAt.After(created.CreatedAt.Time))

	reopened, err := env.service.ToggleComplete(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)
	assert.True(t, reopened.UpdatedAt.After(completed.UpdatedAt.Time))

	_, err = env.service.ToggleComplete(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}

func TestService_Import(t *testing.T) {
	env := setupService(t)
	existing := env.create(t, "Existing", "already here")

	// A record created "earlier" but stored last must be sorted first.
	_, err := env.store.Insert(context.Background(), domain.Table, recordstore.Record{
		"id":           "legacy",
		"title":        "Legacy",
		"description":  "from an old import",
		"completed_at": nil,
		"created_at":   "2020-01-01T00:00:00-03:00",
		"updated_at":   "2020-01-01T00:00:00-03:00",
	})
	require.NoError(t, err)

	env.writeImportFile(t, "title,description,ignored\n"+
		"Buy milk,From the store,x\n"+
		"\n"+
		",Only description,\n"+
		"Only title,,\n")

	result, err := env.service.Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Imported: 3, Total: 5}, result)

	tasks, err := env.service.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, tasks, 5)
	assert.Equal(t, "Buy milk", tasks[2].Title)
	assert.Equal(t, DefaultImportTitle, tasks[3].Title)
	assert.Equal(t, "Only description", tasks[3].Description)
	assert.Equal(t, "Only title", tasks[4].Title)
	assert.Equal(t, DefaultImportDescription, tasks[4].Description)

	rows := readCSVFile(t, env.importPath)
	require.Len(t, rows, 5)
	assert.Equal(t, "legacy", rows[0].ID)
	assert.Equal(t, existing.ID, rows[1].ID)
	assert.Equal(t, "Buy milk", rows[2].Title)
	assert.Empty(t, rows[0].CompletedAt)
	for i := 1; i < len(rows); i++ {
		assert.LessOrEqual(t, rows[i-1].CreatedAt, rows[i].CreatedAt)
	}
}

func TestService_ImportReadsRewrittenFile(t *testing.T) {
	env := setupService(t)
	env.writeImportFile(t, "title,description\nOne,first\nTwo,second\n")

	first, err := env.service.Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Total)

	second, err := env.service.Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Imported: 2, Total: 4}, second)
}

func TestService_ImportEmptyFile(t *testing.T) {
	env := setupService(t)
	env.create(t, "Existing", "task")
	env.writeImportFile(t, "  \n")

	result, err := env.service.Import(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Imported: 0, Total: 1}, result)
	assert.Len(t, readCSVFile(t, env.importPath), 1)
}

func TestService_ImportErrors(t *testing.T) {
	tests := []struct {
		name    string
		content *string
	}{
		{name: "missing file", content: nil},
		{name: "malformed csv", content: ptr("title,description\n\"unterminated,desc\n")},
		{name: "ragged rows", content: ptr("title,description\na,b,c,d\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupService(t)
			if tt.content != nil {
				env.writeImportFile(t, *tt.content)
			}

			_, err := env.service.Import(context.Background())
			assert.ErrorIs(t, err, domain.ErrImport)
			assert.Equal(t, 0, env.store.Count(domain.Table), "nothing should be inserted")
		})
	}
}

func TestService_ImportFrom(t *testing.T) {
	env := setupService(t)

	result, err := env.service.ImportFrom(context.Background(), strings.NewReader("title,description\nUploaded,via form\n"))
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{Imported: 1, Total: 1}, result)

	rows := readCSVFile(t, env.importPath)
	require.Len(t, rows, 1)
	assert.Equal(t, "Uploaded", rows[0].Title)
}

func TestService_Export(t *testing.T) {
	env := setupService(t)
	first := env.create(t, "First", "one, with comma")
	second := env.create(t, "Second", "two")
	_, err := env.service.ToggleComplete(context.Background(), second.ID)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, env.service.Export(context.Background(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,title,description,completed_at,created_at,updated_at", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], first.ID+`,First,"one, with comma",,`))
	assert.True(t, strings.HasPrefix(lines[2], second.ID+",Second,two,2024-"))
}

func TestCSVMirror_Write(t *testing.T) {
	env := setupService(t)
	env.create(t, "Mirrored", "task")

	records, err := env.store.Select(context.Background(), domain.Table, nil)
	require.NoError(t, err)

	path := filepath.Join(env.dir, "mirror", "tasks.csv")
	require.NoError(t, NewCSVMirror(path).Write(context.Background(), records))

	rows := readCSVFile(t, path)
	require.Len(t, rows, 1)
	assert.Equal(t, "Mirrored", rows[0].Title)
}

func ptr(s string) *string {
	return &s
}
