package events

import (
	"github.com/dshills/filestorm/internal/event/topic"
)

// Upload event topics.
const (
	// TopicUploadTaskCreated is published when an upload task is opened.
	TopicUploadTaskCreated topic.Topic = "upload.task.created"

	// TopicUploadStatusChanged is published when an upload moves to a new status.
	TopicUploadStatusChanged topic.Topic = "upload.status.changed"

	// TopicUploadProgress is published when transfer progress changes.
	TopicUploadProgress topic.Topic = "upload.progress"

	// TopicUploadComplete is published when an upload resolves successfully.
	TopicUploadComplete topic.Topic = "upload.complete"

	// TopicUploadFailed is published when an upload fails with a declared error.
	TopicUploadFailed topic.Topic = "upload.failed"

	// TopicUploadAborted is published when an upload is aborted.
	TopicUploadAborted topic.Topic = "upload.aborted"
)

// UploadTaskCreated is the payload for TopicUploadTaskCreated.
type UploadTaskCreated struct {
	// UploadID is the task identifier.
	UploadID string

	// DocumentID identifies the host document.
	DocumentID string

	// Filename is the display name of the file.
	Filename string

	// MIME is the resolved MIME type, if known at creation time.
	MIME string
}

// UploadStatusChanged is the payload for TopicUploadStatusChanged.
type UploadStatusChanged struct {
	// UploadID is the task identifier.
	UploadID string

	// NodeID is the current anchor node, empty if the anchor was discarded.
	NodeID string

	// DocumentID identifies the host document.
	DocumentID string

	// Status is the new status name (reading, uploading, complete, error, aborted).
	Status string
}

// UploadProgress is the payload for TopicUploadProgress.
type UploadProgress struct {
	// UploadID is the task identifier.
	UploadID string

	// NodeID is the current anchor node.
	NodeID string

	// DocumentID identifies the host document.
	DocumentID string

	// Percent is the transfer progress in the range 0-100.
	Percent int
}

// UploadComplete is the payload for TopicUploadComplete.
type UploadComplete struct {
	// UploadID is the task identifier.
	UploadID string

	// NodeID is the anchor node at completion time.
	NodeID string

	// DocumentID identifies the host document.
	DocumentID string

	// Filename is the display name of the file.
	Filename string

	// MIME is the resolved MIME type.
	MIME string

	// Size is the file size in bytes.
	Size int64

	// URL is the resolved location of the uploaded file.
	URL string

	// Data is the raw adapter response payload.
	Data map[string]string
}

// UploadFailed is the payload for TopicUploadFailed.
type UploadFailed struct {
	// UploadID is the task identifier.
	UploadID string

	// NodeID is the anchor node at failure time, empty if already discarded.
	NodeID string

	// DocumentID identifies the host document.
	DocumentID string

	// Filename is the display name of the file.
	Filename string

	// Reason is the declared failure message.
	Reason string
}

// UploadAborted is the payload for TopicUploadAborted.
type UploadAborted struct {
	// UploadID is the task identifier.
	UploadID string

	// DocumentID identifies the host document.
	DocumentID string
}
