package task

// Defaults used by Import when a row leaves a field blank.
const (
	DefaultImportTitle       = "Untitled task"
	DefaultImportDescription = "No description"
)

// CreateTaskRequest is the request for creating a task.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateTaskRequest is the request for updating a task. Empty fields are
// left unchanged.
type UpdateTaskRequest struct {
	ID          string `json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// ImportResult summarizes a CSV import.
type ImportResult struct {
	Imported int `json:"imported"`
	Total    int `json:"total"`
}
