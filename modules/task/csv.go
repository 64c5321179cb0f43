package task

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	domain "github.com/example/task-store/domain/task"
	"github.com/example/task-store/modules/recordstore"
	"github.com/gocarina/gocsv"
)

// csvTask is one row of the tabular task file.
type csvTask struct {
	ID          string `csv:"id"`
	Title       string `csv:"title"`
	Description string `csv:"description"`
	CompletedAt string `csv:"completed_at"`
	CreatedAt   string `csv:"created_at"`
	UpdatedAt   string `csv:"updated_at"`
}

// importRow holds the columns read during import; other columns are ignored.
type importRow struct {
	Title       string `csv:"title"`
	Description string `csv:"description"`
}

// writeCSV encodes tasks with a header row, in the given order.
func writeCSV(w io.Writer, tasks []domain.Task) error {
	rows := make([]*csvTask, 0, len(tasks))
	for _, t := range tasks {
		row := &csvTask{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			CreatedAt:   t.CreatedAt.String(),
			UpdatedAt:   t.UpdatedAt.String(),
		}
		if t.CompletedAt != nil {
			row.CompletedAt = t.CompletedAt.String()
		}
		rows = append(rows, row)
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to encode csv: %w", err)
	}
	return nil
}

// readImportRows decodes an import file. Blank files yield no rows.
func readImportRows(data []byte) ([]*importRow, error) {
	if strings.TrimSpace(string(data)) == "" {
		return []*importRow{}, nil
	}
	var rows []*importRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// CSVMirror rewrites a CSV file with the tasks table after every store write.
type CSVMirror struct {
	path string
}

var _ recordstore.Mirror = (*CSVMirror)(nil)

// NewCSVMirror creates a mirror writing to path.
func NewCSVMirror(path string) *CSVMirror {
	return &CSVMirror{path: path}
}

// Write replaces the mirror file with records.
func (m *CSVMirror) Write(_ context.Context, records []recordstore.Record) error {
	tasks, err := fromRecords(records)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := writeCSV(&buf, tasks); err != nil {
		return err
	}
	return recordstore.WriteFileAtomic(m.path, buf.Bytes(), 0o644)
}
