package filerepo

import "errors"

// Errors returned by the repository and its tasks.
var (
	// ErrNoAdapter is returned by CreateTask when no upload adapter is
	// configured. Callers skip the file; the condition is reported once
	// by the repository log, not per file.
	ErrNoAdapter = errors.New("no upload adapter configured")

	// ErrTaskNotFound is returned when a task id resolves to nothing.
	ErrTaskNotFound = errors.New("task not found")

	// ErrAborted is returned from Read or Upload when the task was
	// aborted while the operation was in flight.
	ErrAborted = errors.New("task aborted")

	// ErrInvalidTransition is returned when an operation is called in a
	// status that does not permit it.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrRepositoryClosed is returned by CreateTask after Close.
	ErrRepositoryClosed = errors.New("repository closed")
)
