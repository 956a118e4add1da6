package events

import (
	"time"

	"github.com/civic-kit/municipal-services/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated          EventType = "request_created"
	EventRequestStatusChanged    EventType = "request_status_changed"
	EventRequestCancelled        EventType = "request_cancelled"
	EventAssignmentCreated       EventType = "assignment_created"
	EventAssignmentStatusChanged EventType = "assignment_status_changed"
	EventTaskProgressRecorded    EventType = "task_progress_recorded"
)

// Actor identifies the user behind an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by the engines after a
// successful commit.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	RequestID string      `json:"request_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	TicketNumber  string             `json:"ticket_number"`
	ServiceTypeID string             `json:"service_type_id"`
	RequestType   domain.RequestType `json:"request_type"`
	Priority      domain.Priority    `json:"priority"`
	Title         string             `json:"title"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	FromStatus *domain.RequestStatus `json:"from_status,omitempty"`
	ToStatus   domain.RequestStatus  `json:"to_status"`
	Reason     string                `json:"reason"`
}

// AssignmentCreatedPayload payload.
type AssignmentCreatedPayload struct {
	AssignmentID string          `json:"assignment_id"`
	AssignedToID string          `json:"assigned_to_id"`
	Priority     domain.Priority `json:"priority"`
}

// AssignmentStatusChangedPayload payload.
type AssignmentStatusChangedPayload struct {
	AssignmentID string                  `json:"assignment_id"`
	FromStatus   domain.AssignmentStatus `json:"from_status"`
	ToStatus     domain.AssignmentStatus `json:"to_status"`
}

// TaskProgressRecordedPayload payload.
type TaskProgressRecordedPayload struct {
	AssignmentID       string                  `json:"assignment_id"`
	Status             domain.AssignmentStatus `json:"status"`
	ProgressPercentage int                     `json:"progress_percentage"`
}
