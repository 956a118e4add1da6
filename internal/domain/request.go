package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus enumerates lifecycle states for service requests.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusInReview   RequestStatus = "IN_REVIEW"
	RequestStatusApproved   RequestStatus = "APPROVED"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusCompleted  RequestStatus = "COMPLETED"
	RequestStatusRejected   RequestStatus = "REJECTED"
	RequestStatusCancelled  RequestStatus = "CANCELLED"
)

// Valid reports whether the status belongs to the closed enumeration.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusInReview, RequestStatusApproved,
		RequestStatusInProgress, RequestStatusCompleted, RequestStatusRejected,
		RequestStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusCompleted || s == RequestStatusRejected || s == RequestStatusCancelled
}

// RequestType categorizes what the citizen is asking for.
type RequestType string

const (
	RequestTypeRepair      RequestType = "REPAIR"
	RequestTypeNewService  RequestType = "NEW_SERVICE"
	RequestTypeMaintenance RequestType = "MAINTENANCE"
	RequestTypeComplaint   RequestType = "COMPLAINT"
	RequestTypeInformation RequestType = "INFORMATION"
)

// Valid reports whether the request type belongs to the closed enumeration.
func (t RequestType) Valid() bool {
	switch t {
	case RequestTypeRepair, RequestTypeNewService, RequestTypeMaintenance,
		RequestTypeComplaint, RequestTypeInformation:
		return true
	}
	return false
}

// Priority enumerates urgency levels shared by requests and assignments.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Valid reports whether the priority belongs to the closed enumeration.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// ServiceRequest is the aggregate for a citizen-filed ticket.
type ServiceRequest struct {
	ID                 string
	TicketNumber       string
	CitizenID          string
	ServiceTypeID      string
	ServiceAreaID      *string
	RequestType        RequestType
	Title              string
	Description        string
	Address            string
	Latitude           *decimal.Decimal
	Longitude          *decimal.Decimal
	Status             RequestStatus
	Priority           Priority
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ExpectedCompletion *time.Time
	CompletedAt        *time.Time
	CitizenPhone       string
	CitizenEmail       string
	Notes              string
	AssignedToID       *string
	ReviewedByID       *string
	EstimatedCost      *decimal.Decimal
	ActualCost         *decimal.Decimal
}

// IsOverdue reports whether the expected completion date has passed while
// the request is still open. Comparison is by calendar date.
func (r *ServiceRequest) IsOverdue(now time.Time) bool {
	if r.ExpectedCompletion == nil || r.Status.Terminal() {
		return false
	}
	expected := r.ExpectedCompletion.Truncate(24 * time.Hour)
	return now.Truncate(24 * time.Hour).After(expected)
}

// CanBeEditedByCitizen reports whether the owning citizen may still edit.
func (r *ServiceRequest) CanBeEditedByCitizen() bool {
	return r.Status == RequestStatusPending || r.Status == RequestStatusInReview
}

// CanBeCancelledByCitizen reports whether the owning citizen may cancel.
func (r *ServiceRequest) CanBeCancelledByCitizen() bool {
	switch r.Status {
	case RequestStatusPending, RequestStatusInReview, RequestStatusApproved:
		return true
	}
	return false
}

// RequestStatusHistory is an immutable audit trail entry. FromStatus is
// nil only for the creation record.
type RequestStatusHistory struct {
	ID          string
	RequestID   string
	FromStatus  *RequestStatus
	ToStatus    RequestStatus
	ChangedByID string
	Reason      string
	CreatedAt   time.Time
}

// RequestComment is a remark on a request. Internal comments are visible
// to municipal staff only.
type RequestComment struct {
	ID         string
	RequestID  string
	UserID     string
	Comment    string
	IsInternal bool
	CreatedAt  time.Time
}

// RequestStats summarizes request counts for a dashboard.
type RequestStats struct {
	Total      int64 `json:"total"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
	Overdue    int64 `json:"overdue,omitempty"`
}
