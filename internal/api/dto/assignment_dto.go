package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/civic-kit/municipal-services/internal/domain"
)

// CreateAssignmentRequest payload.
type CreateAssignmentRequest struct {
	AssignedToID        string           `json:"assigned_to_id" validate:"required"`
	Priority            domain.Priority  `json:"priority"`
	EstimatedCompletion *time.Time       `json:"estimated_completion"`
	EstimatedHours      *decimal.Decimal `json:"estimated_hours"`
	Instructions        string           `json:"instructions"`
}

// ProgressRequest payload for technician progress reports.
type ProgressRequest struct {
	Status             domain.AssignmentStatus `json:"status" validate:"required"`
	ProgressPercentage int                     `json:"progress_percentage" validate:"min=0,max=100"`
	Description        string                  `json:"description" validate:"required"`
	HoursWorked        *decimal.Decimal        `json:"hours_worked"`
}

// CompleteRequest payload for closing an assignment.
type CompleteRequest struct {
	ActualHours   *decimal.Decimal `json:"actual_hours" validate:"required"`
	Notes         string           `json:"notes" validate:"required"`
	MaterialsUsed string           `json:"materials_used"`
	MaterialsCost *decimal.Decimal `json:"materials_cost"`
}

// AssignmentResponse represents a work order. Warning carries the
// soft-failure message when a lifecycle call was ignored.
type AssignmentResponse struct {
	ID                  string                  `json:"id"`
	RequestID           string                  `json:"request_id"`
	AssignedByID        string                  `json:"assigned_by_id"`
	AssignedToID        string                  `json:"assigned_to_id"`
	Status              domain.AssignmentStatus `json:"status"`
	Priority            domain.Priority         `json:"priority"`
	AssignedAt          time.Time               `json:"assigned_at"`
	AcceptedAt          *time.Time              `json:"accepted_at,omitempty"`
	StartedAt           *time.Time              `json:"started_at,omitempty"`
	EstimatedCompletion *time.Time              `json:"estimated_completion,omitempty"`
	ActualCompletion    *time.Time              `json:"actual_completion,omitempty"`
	Instructions        string                  `json:"instructions,omitempty"`
	Notes               string                  `json:"notes,omitempty"`
	EstimatedHours      *decimal.Decimal        `json:"estimated_hours,omitempty"`
	ActualHours         *decimal.Decimal        `json:"actual_hours,omitempty"`
	MaterialsNeeded     string                  `json:"materials_needed,omitempty"`
	MaterialsCost       *decimal.Decimal        `json:"materials_cost,omitempty"`
	IsOverdue           bool                    `json:"is_overdue"`
}

// TaskUpdateResponse represents one progress report.
type TaskUpdateResponse struct {
	ID                 string                  `json:"id"`
	AssignmentID       string                  `json:"assignment_id"`
	UpdatedByID        string                  `json:"updated_by_id"`
	Status             domain.AssignmentStatus `json:"status"`
	ProgressPercentage int                     `json:"progress_percentage"`
	Description        string                  `json:"description"`
	HoursWorked        *decimal.Decimal        `json:"hours_worked,omitempty"`
	CreatedAt          time.Time               `json:"created_at"`
}
