package task

import "errors"

// Sentinel errors for task operations.
var (
	// ErrValidation is returned when required task fields are missing.
	ErrValidation = errors.New("validation failed")

	// ErrTaskNotFound is returned when no task has the requested ID.
	ErrTaskNotFound = errors.New("task not found")

	// ErrImport is returned when the import source cannot be read or parsed.
	ErrImport = errors.New("import failed")
)
