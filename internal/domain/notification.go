package domain

import "time"

// NotificationType enumerates notification categories.
type NotificationType string

const (
	NotificationTaskAssigned   NotificationType = "TASK_ASSIGNED"
	NotificationTaskUpdated    NotificationType = "TASK_UPDATED"
	NotificationTaskCompleted  NotificationType = "TASK_COMPLETED"
	NotificationRequestUpdated NotificationType = "REQUEST_UPDATED"
	NotificationGeneral        NotificationType = "GENERAL"
)

// Notification is a one-way message to a single recipient. Records are
// write-once except for the read flag, which flips false to true and
// never back.
type Notification struct {
	ID               string
	RecipientID      string
	Type             NotificationType
	Title            string
	Message          string
	RelatedRequestID *string
	IsRead           bool
	CreatedAt        time.Time
}
