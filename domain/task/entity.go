// Package task holds the task entity shared by the task, activity and api modules.
package task

// Table is the record store table tasks are kept in.
const Table = "tasks"

// Task is the core domain entity representing a todo item.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CompletedAt *Timestamp `json:"completed_at"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   Timestamp  `json:"updated_at"`
}

// IsCompleted reports whether the task has a completion timestamp.
func (t *Task) IsCompleted() bool {
	return t.CompletedAt != nil
}
