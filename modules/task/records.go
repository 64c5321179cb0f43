package task

import (
	"fmt"

	domain "github.com/example/task-store/domain/task"
	"github.com/example/task-store/modules/recordstore"
)

const (
	fieldTitle       = "title"
	fieldDescription = "description"
	fieldCompletedAt = "completed_at"
)

// toRecord converts a task into its stored form.
func toRecord(t *domain.Task) recordstore.Record {
	r := recordstore.Record{
		recordstore.FieldID:        t.ID,
		fieldTitle:                 t.Title,
		fieldDescription:           t.Description,
		fieldCompletedAt:           nil,
		recordstore.FieldCreatedAt: t.CreatedAt.String(),
		recordstore.FieldUpdatedAt: t.UpdatedAt.String(),
	}
	if t.CompletedAt != nil {
		r[fieldCompletedAt] = t.CompletedAt.String()
	}
	return r
}

// fromRecord converts a stored record back into a task.
func fromRecord(r recordstore.Record) (*domain.Task, error) {
	id, ok := r.ID()
	if !ok {
		return nil, fmt.Errorf("task record has no id")
	}

	createdAt, err := domain.ParseTimestamp(r.String(recordstore.FieldCreatedAt))
	if err != nil {
		return nil, fmt.Errorf("task %s: created_at: %w", id, err)
	}
	updatedAt, err := domain.ParseTimestamp(r.String(recordstore.FieldUpdatedAt))
	if err != nil {
		return nil, fmt.Errorf("task %s: updated_at: %w", id, err)
	}

	var completedAt *domain.Timestamp
	if s := r.String(fieldCompletedAt); s != "" {
		ts, err := domain.ParseTimestamp(s)
		if err != nil {
			return nil, fmt.Errorf("task %s: completed_at: %w", id, err)
		}
		completedAt = &ts
	}

	return &domain.Task{
		ID:          id,
		Title:       r.String(fieldTitle),
		Description: r.String(fieldDescription),
		CompletedAt: completedAt,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// fromRecords converts a slice of stored records, failing on the first bad one.
func fromRecords(records []recordstore.Record) ([]domain.Task, error) {
	tasks := make([]domain.Task, 0, len(records))
	for _, r := range records {
		t, err := fromRecord(r)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}
