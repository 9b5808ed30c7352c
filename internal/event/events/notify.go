package events

import (
	"github.com/dshills/filestorm/internal/event/topic"
)

// Notification event topics.
const (
	// TopicNotifyWarning is published when a user-facing warning is raised.
	TopicNotifyWarning topic.Topic = "notify.warning"
)

// NotifyWarning is the payload for TopicNotifyWarning.
type NotifyWarning struct {
	// Title is the short warning headline.
	Title string

	// Message is the warning body.
	Message string

	// DocumentID identifies the host document, if the warning relates to one.
	DocumentID string
}
