package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssignmentStatus enumerates states for the technician work order.
type AssignmentStatus string

const (
	AssignmentStatusAssigned   AssignmentStatus = "ASSIGNED"
	AssignmentStatusAccepted   AssignmentStatus = "ACCEPTED"
	AssignmentStatusInProgress AssignmentStatus = "IN_PROGRESS"
	AssignmentStatusOnHold     AssignmentStatus = "ON_HOLD"
	AssignmentStatusCompleted  AssignmentStatus = "COMPLETED"
	AssignmentStatusCancelled  AssignmentStatus = "CANCELLED"
)

// Valid reports whether the status belongs to the closed enumeration.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentStatusAssigned, AssignmentStatusAccepted, AssignmentStatusInProgress,
		AssignmentStatusOnHold, AssignmentStatusCompleted, AssignmentStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected.
func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentStatusCompleted || s == AssignmentStatusCancelled
}

// TaskAssignment is the work order derived from a service request and
// bound to exactly one technician. At most one assignment exists per
// request.
type TaskAssignment struct {
	ID                  string
	RequestID           string
	AssignedByID        string
	AssignedToID        string
	Status              AssignmentStatus
	Priority            Priority
	AssignedAt          time.Time
	AcceptedAt          *time.Time
	StartedAt           *time.Time
	EstimatedCompletion *time.Time
	ActualCompletion    *time.Time
	Instructions        string
	Notes               string
	EstimatedHours      *decimal.Decimal
	ActualHours         *decimal.Decimal
	MaterialsNeeded     string
	MaterialsCost       *decimal.Decimal
}

// IsOverdue reports whether the estimated completion has passed while the
// assignment is still open.
func (a *TaskAssignment) IsOverdue(now time.Time) bool {
	if a.EstimatedCompletion == nil || a.Status.Terminal() {
		return false
	}
	return now.After(*a.EstimatedCompletion)
}

// TaskUpdate is a progress note on an assignment. Recording one also
// overwrites the parent assignment's status to Status.
type TaskUpdate struct {
	ID                 string
	AssignmentID       string
	UpdatedByID        string
	Status             AssignmentStatus
	ProgressPercentage int
	Description        string
	HoursWorked        *decimal.Decimal
	CreatedAt          time.Time
}
