package filerepo

// Status is the lifecycle state of an upload task.
type Status int

const (
	// StatusIdle is the state of a freshly created task.
	StatusIdle Status = iota

	// StatusReading means the source is being materialized into memory.
	StatusReading

	// StatusUploading means the adapter upload is in flight.
	StatusUploading

	// StatusComplete means the upload resolved successfully. Terminal.
	StatusComplete

	// StatusError means the read or upload failed. Terminal.
	StatusError

	// StatusAborted means the task was cancelled before it concluded.
	// Terminal.
	StatusAborted
)

// String returns the status name used in events and anchor attributes.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusReading:
		return "reading"
	case StatusUploading:
		return "uploading"
	case StatusComplete:
		return "complete"
	case StatusError:
		return "error"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ParseStatus resolves a status name back to its value.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "idle":
		return StatusIdle, true
	case "reading":
		return StatusReading, true
	case "uploading":
		return StatusUploading, true
	case "complete":
		return StatusComplete, true
	case "error":
		return StatusError, true
	case "aborted":
		return StatusAborted, true
	default:
		return StatusIdle, false
	}
}

// Terminal reports whether the status concludes the task. Terminal tasks
// release their side-table entry and repository resources.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError || s == StatusAborted
}

// CanTransition reports whether a task may move from one status to
// another. The machine is linear with early exits:
//
//	idle → reading → uploading → complete
//	reading|uploading → error
//	any non-terminal → aborted
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusReading:
		return from == StatusIdle
	case StatusUploading:
		return from == StatusReading
	case StatusComplete:
		return from == StatusUploading
	case StatusError:
		return from == StatusReading || from == StatusUploading
	case StatusAborted:
		return true
	default:
		return false
	}
}
