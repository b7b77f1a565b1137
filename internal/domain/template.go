package domain

import "time"

// Template is a stored notification body with placeholder tokens.
type Template struct {
	ID   string
	Body string
}

// Usable reports whether the row can be cached: both fields present and not the sentinel.
func (t Template) Usable() bool {
	return !IsSentinel(t.ID) && !IsSentinel(t.Body)
}

// NotificationState is the terminal notification state of one dispatch.
type NotificationState string

const (
	NotificationNotified NotificationState = "NOTIFIED"
	NotificationSkipped  NotificationState = "NOTIFY_SKIPPED"
	NotificationFailed   NotificationState = "NOTIFY_FAILED"
)

func (s NotificationState) String() string { return string(s) }

// NotificationLog records how a persisted record's notification ended.
type NotificationLog struct {
	ID         string
	RecordID   string
	State      NotificationState
	Recipient  string
	TemplateID string
	Error      *string
	CreatedAt  time.Time
}
