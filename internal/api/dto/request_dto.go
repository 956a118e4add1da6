package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/civic-kit/municipal-services/internal/domain"
)

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	ServiceTypeID string             `json:"service_type_id" validate:"required"`
	ServiceAreaID *string            `json:"service_area_id"`
	RequestType   domain.RequestType `json:"request_type" validate:"required"`
	Title         string             `json:"title" validate:"required,max=200"`
	Description   string             `json:"description" validate:"required"`
	Address       string             `json:"address" validate:"required"`
	Latitude      *decimal.Decimal   `json:"latitude"`
	Longitude     *decimal.Decimal   `json:"longitude"`
	Priority      domain.Priority    `json:"priority"`
	CitizenPhone  string             `json:"citizen_phone"`
	CitizenEmail  string             `json:"citizen_email" validate:"omitempty,email"`
	Notes         string             `json:"notes"`
}

// ChangeStatusRequest payload for the staff transition endpoint.
type ChangeStatusRequest struct {
	Status             domain.RequestStatus `json:"status" validate:"required"`
	Reason             string               `json:"reason" validate:"required"`
	AssignedToID       *string              `json:"assigned_to_id"`
	ExpectedCompletion *time.Time           `json:"expected_completion"`
}

// CommentRequest payload.
type CommentRequest struct {
	Comment    string `json:"comment" validate:"required"`
	IsInternal bool   `json:"is_internal"`
}

// RequestSummary response.
type RequestSummary struct {
	ID                 string               `json:"id"`
	TicketNumber       string               `json:"ticket_number"`
	Title              string               `json:"title"`
	RequestType        domain.RequestType   `json:"request_type"`
	Status             domain.RequestStatus `json:"status"`
	Priority           domain.Priority      `json:"priority"`
	ServiceTypeID      string               `json:"service_type_id"`
	ServiceAreaID      *string              `json:"service_area_id,omitempty"`
	Address            string               `json:"address"`
	CreatedAt          time.Time            `json:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at"`
	ExpectedCompletion *time.Time           `json:"expected_completion,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
	IsOverdue          bool                 `json:"is_overdue"`
}

// RequestDetailResponse provides the full request with its comments and
// audit trail.
type RequestDetailResponse struct {
	RequestSummary
	Description  string            `json:"description"`
	Latitude     *decimal.Decimal  `json:"latitude,omitempty"`
	Longitude    *decimal.Decimal  `json:"longitude,omitempty"`
	CitizenID    string            `json:"citizen_id"`
	CitizenPhone string            `json:"citizen_phone,omitempty"`
	CitizenEmail string            `json:"citizen_email,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	AssignedToID *string           `json:"assigned_to_id,omitempty"`
	Comments     []CommentResponse `json:"comments"`
	History      []HistoryResponse `json:"history"`
}

// CommentResponse represents a request comment.
type CommentResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Comment    string    `json:"comment"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"created_at"`
}

// HistoryResponse represents one audit-trail entry.
type HistoryResponse struct {
	ID          string                `json:"id"`
	FromStatus  *domain.RequestStatus `json:"from_status,omitempty"`
	ToStatus    domain.RequestStatus  `json:"to_status"`
	ChangedByID string                `json:"changed_by_id"`
	Reason      string                `json:"reason"`
	CreatedAt   time.Time             `json:"created_at"`
}
