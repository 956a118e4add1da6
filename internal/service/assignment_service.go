package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/civic-kit/municipal-services/internal/domain"
	"github.com/civic-kit/municipal-services/internal/events"
	"github.com/civic-kit/municipal-services/internal/repository"
	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

// Warnings returned when a lifecycle call arrives outside its window.
// These are soft failures: the call is ignored, the caller is told why,
// and nothing is persisted.
const (
	WarnCannotAccept = "task can no longer be accepted"
	WarnCannotStart  = "task cannot be started in its current state"
	WarnAlreadyDone  = "task is already closed"
)

// AssignmentService owns the technician work-order lifecycle:
// ASSIGNED -> ACCEPTED -> IN_PROGRESS -> COMPLETED, with ON_HOLD
// reachable through progress reports and CANCELLED from any non-terminal
// state. Creating an assignment also moves the parent request to
// IN_PROGRESS and fans out notifications, all in one transaction.
type AssignmentService struct {
	store      repository.Store
	tx         repository.TxManager
	dispatcher events.Dispatcher
}

// AssignmentDependencies bundles collaborators for the assignment service.
type AssignmentDependencies struct {
	Store      repository.Store
	Tx         repository.TxManager
	Dispatcher events.Dispatcher
}

// NewAssignmentService constructs the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	return &AssignmentService{
		store:      deps.Store,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
	}
}

// AssignmentCreateInput describes the manager's assignment payload.
type AssignmentCreateInput struct {
	AssignedToID        string
	Priority            domain.Priority
	EstimatedCompletion *time.Time
	EstimatedHours      *decimal.Decimal
	Instructions        string
}

// ProgressInput describes a technician progress report.
type ProgressInput struct {
	Status             domain.AssignmentStatus
	ProgressPercentage int
	Description        string
	HoursWorked        *decimal.Decimal
}

// CompleteInput describes the completion payload.
type CompleteInput struct {
	ActualHours   *decimal.Decimal
	Notes         string
	MaterialsUsed string
	MaterialsCost *decimal.Decimal
}

// Create assigns a request to a technician. In a single transaction it
// inserts the assignment, moves the request to IN_PROGRESS, appends the
// audit record and writes one notification to the technician and one to
// the citizen.
func (s *AssignmentService) Create(ctx context.Context, actor *domain.User, ticketNumber string, input AssignmentCreateInput) (*domain.TaskAssignment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	if !actor.CanAssignTasks() {
		return nil, apperrors.NewForbidden("insufficient role to assign tasks")
	}

	request, err := s.store.Requests.GetByTicketNumber(ctx, ticketNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"ticket_number": ticketNumber})
		}
		return nil, apperrors.MapError(err)
	}
	if request.Status.Terminal() {
		return nil, apperrors.NewStateError("request is closed", map[string]any{"status": request.Status})
	}

	assignee, err := s.store.Users.GetByID(ctx, input.AssignedToID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"user_id": input.AssignedToID})
		}
		return nil, apperrors.MapError(err)
	}
	if assignee.Role != domain.RoleTechnician || !assignee.Active {
		return nil, apperrors.NewValidationError("assignee must be an active technician", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = request.Priority
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	assignment := &domain.TaskAssignment{
		RequestID:           request.ID,
		AssignedByID:        actor.ID,
		AssignedToID:        assignee.ID,
		Status:              domain.AssignmentStatusAssigned,
		Priority:            priority,
		EstimatedCompletion: input.EstimatedCompletion,
		Instructions:        input.Instructions,
		EstimatedHours:      input.EstimatedHours,
	}

	fromStatus := request.Status
	request.Status = domain.RequestStatusInProgress
	request.AssignedToID = &assignee.ID

	err = s.tx.WithinTx(ctx, func(store repository.Store) error {
		if err := store.Assignments.Create(ctx, assignment); err != nil {
			return err
		}
		if err := store.Requests.Update(ctx, request); err != nil {
			return err
		}
		if fromStatus != request.Status {
			if err := store.History.Create(ctx, &domain.RequestStatusHistory{
				RequestID:   request.ID,
				FromStatus:  &fromStatus,
				ToStatus:    request.Status,
				ChangedByID: actor.ID,
				Reason:      "task assigned to " + assignee.Name,
			}); err != nil {
				return err
			}
		}
		for _, notification := range buildAssignmentNotifications(request, assignment, assignee) {
			if err := store.Notifications.Create(ctx, notification); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateAssignment) {
			return nil, apperrors.NewConflict("request already has an assignment", map[string]any{"ticket_number": ticketNumber})
		}
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventAssignmentCreated,
		RequestID: request.ID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.AssignmentCreatedPayload{
			AssignmentID: assignment.ID,
			AssignedToID: assignment.AssignedToID,
			Priority:     assignment.Priority,
		},
	})
	return assignment, nil
}

// Accept marks the assignment ACCEPTED and stamps accepted_at. Only the
// assigned technician may call it. Out of window the call is ignored and
// a warning is returned instead of an error.
func (s *AssignmentService) Accept(ctx context.Context, actor *domain.User, assignmentID string) (*domain.TaskAssignment, string, error) {
	assignment, err := s.getOwned(ctx, actor, assignmentID)
	if err != nil {
		return nil, "", err
	}
	if assignment.Status != domain.AssignmentStatusAssigned {
		return assignment, WarnCannotAccept, nil
	}

	fromStatus := assignment.Status
	now := time.Now()
	assignment.Status = domain.AssignmentStatusAccepted
	assignment.AcceptedAt = &now

	if err := s.store.Assignments.Update(ctx, assignment); err != nil {
		return nil, "", apperrors.MapError(err)
	}

	s.publishStatusChange(ctx, actor, assignment, fromStatus)
	return assignment, "", nil
}

// Start moves the assignment to IN_PROGRESS from ASSIGNED or ACCEPTED,
// stamping started_at. If the parent request is not yet IN_PROGRESS the
// cascade updates it and appends an audit record in the same
// transaction.
func (s *AssignmentService) Start(ctx context.Context, actor *domain.User, assignmentID string) (*domain.TaskAssignment, string, error) {
	assignment, err := s.getOwned(ctx, actor, assignmentID)
	if err != nil {
		return nil, "", err
	}
	if assignment.Status != domain.AssignmentStatusAssigned && assignment.Status != domain.AssignmentStatusAccepted {
		if assignment.Status.Terminal() {
			return assignment, WarnAlreadyDone, nil
		}
		return assignment, WarnCannotStart, nil
	}

	request, err := s.store.Requests.GetByID(ctx, assignment.RequestID)
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}

	fromStatus := assignment.Status
	now := time.Now()
	assignment.Status = domain.AssignmentStatusInProgress
	assignment.StartedAt = &now

	err = s.tx.WithinTx(ctx, func(store repository.Store) error {
		if err := store.Assignments.Update(ctx, assignment); err != nil {
			return err
		}
		if request.Status == domain.RequestStatusInProgress {
			return nil
		}
		requestFrom := request.Status
		request.Status = domain.RequestStatusInProgress
		if err := store.Requests.Update(ctx, request); err != nil {
			return err
		}
		return store.History.Create(ctx, &domain.RequestStatusHistory{
			RequestID:   request.ID,
			FromStatus:  &requestFrom,
			ToStatus:    request.Status,
			ChangedByID: actor.ID,
			Reason:      "work started",
		})
	})
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}

	s.publishStatusChange(ctx, actor, assignment, fromStatus)
	return assignment, "", nil
}

// RecordProgress appends a progress report and overwrites the assignment
// status to the reported one. Progress reports are authoritative status
// setters; closed assignments cannot be progressed.
func (s *AssignmentService) RecordProgress(ctx context.Context, actor *domain.User, assignmentID string, input ProgressInput) (*domain.TaskUpdate, error) {
	assignment, err := s.getOwned(ctx, actor, assignmentID)
	if err != nil {
		return nil, err
	}
	if !input.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": input.Status})
	}
	if input.ProgressPercentage < 0 || input.ProgressPercentage > 100 {
		return nil, apperrors.NewValidationError("progress percentage must be between 0 and 100", nil)
	}
	input.Description = strings.TrimSpace(input.Description)
	if input.Description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}
	if assignment.Status.Terminal() {
		return nil, apperrors.NewStateError("assignment is closed", map[string]any{"status": assignment.Status})
	}

	update := &domain.TaskUpdate{
		AssignmentID:       assignment.ID,
		UpdatedByID:        actor.ID,
		Status:             input.Status,
		ProgressPercentage: input.ProgressPercentage,
		Description:        input.Description,
		HoursWorked:        input.HoursWorked,
	}
	assignment.Status = input.Status

	err = s.tx.WithinTx(ctx, func(store repository.Store) error {
		if err := store.TaskUpdates.Create(ctx, update); err != nil {
			return err
		}
		return store.Assignments.Update(ctx, assignment)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventTaskProgressRecorded,
		RequestID: assignment.RequestID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.TaskProgressRecordedPayload{
			AssignmentID:       assignment.ID,
			Status:             assignment.Status,
			ProgressPercentage: input.ProgressPercentage,
		},
	})
	return update, nil
}

// Complete closes the assignment. Actual hours and completion notes are
// mandatory. The parent request moves to COMPLETED with completed_at
// stamped, in the same transaction.
func (s *AssignmentService) Complete(ctx context.Context, actor *domain.User, assignmentID string, input CompleteInput) (*domain.TaskAssignment, string, error) {
	assignment, err := s.getOwned(ctx, actor, assignmentID)
	if err != nil {
		return nil, "", err
	}
	if assignment.Status.Terminal() {
		return assignment, WarnAlreadyDone, nil
	}
	if input.ActualHours == nil || input.ActualHours.IsNegative() {
		return nil, "", apperrors.NewValidationError("actual hours are required and must not be negative", nil)
	}
	input.Notes = strings.TrimSpace(input.Notes)
	if input.Notes == "" {
		return nil, "", apperrors.NewValidationError("completion notes are required", nil)
	}

	request, err := s.store.Requests.GetByID(ctx, assignment.RequestID)
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}

	fromStatus := assignment.Status
	now := time.Now()
	assignment.Status = domain.AssignmentStatusCompleted
	assignment.ActualCompletion = &now
	assignment.ActualHours = input.ActualHours
	assignment.Notes = input.Notes
	if input.MaterialsUsed != "" {
		assignment.MaterialsNeeded = input.MaterialsUsed
	}
	if input.MaterialsCost != nil {
		assignment.MaterialsCost = input.MaterialsCost
	}

	err = s.tx.WithinTx(ctx, func(store repository.Store) error {
		if err := store.Assignments.Update(ctx, assignment); err != nil {
			return err
		}
		requestFrom := request.Status
		request.Status = domain.RequestStatusCompleted
		request.CompletedAt = &now
		if err := store.Requests.Update(ctx, request); err != nil {
			return err
		}
		if requestFrom == domain.RequestStatusCompleted {
			return nil
		}
		return store.History.Create(ctx, &domain.RequestStatusHistory{
			RequestID:   request.ID,
			FromStatus:  &requestFrom,
			ToStatus:    request.Status,
			ChangedByID: actor.ID,
			Reason:      "task completed",
		})
	})
	if err != nil {
		return nil, "", apperrors.MapError(err)
	}

	s.publishStatusChange(ctx, actor, assignment, fromStatus)
	return assignment, "", nil
}

// Cancel closes the assignment without completing it. Only the assigning
// manager side may cancel; terminal assignments are left untouched.
func (s *AssignmentService) Cancel(ctx context.Context, actor *domain.User, assignmentID string) (*domain.TaskAssignment, string, error) {
	if actor == nil {
		return nil, "", apperrors.NewUnauthorized("actor required")
	}
	if !actor.CanAssignTasks() {
		return nil, "", apperrors.NewForbidden("insufficient role to cancel tasks")
	}
	assignment, err := s.getByID(ctx, assignmentID)
	if err != nil {
		return nil, "", err
	}
	if assignment.Status.Terminal() {
		return assignment, WarnAlreadyDone, nil
	}

	fromStatus := assignment.Status
	assignment.Status = domain.AssignmentStatusCancelled
	if err := s.store.Assignments.Update(ctx, assignment); err != nil {
		return nil, "", apperrors.MapError(err)
	}

	s.publishStatusChange(ctx, actor, assignment, fromStatus)
	return assignment, "", nil
}

// List returns assignments visible to the actor. Technicians see only
// their own; managers and admins see all.
func (s *AssignmentService) List(ctx context.Context, actor *domain.User, filter repository.AssignmentFilter) ([]domain.TaskAssignment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	if !actor.IsStaff() {
		return nil, apperrors.NewForbidden("access denied")
	}
	if actor.Role == domain.RoleTechnician {
		technicianID := actor.ID
		filter.AssignedToID = &technicianID
	}
	assignments, err := s.store.Assignments.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return assignments, nil
}

// GetDetail returns an assignment with its progress reports, newest
// first.
func (s *AssignmentService) GetDetail(ctx context.Context, actor *domain.User, assignmentID string) (*domain.TaskAssignment, []domain.TaskUpdate, error) {
	if actor == nil {
		return nil, nil, apperrors.NewUnauthorized("actor required")
	}
	assignment, err := s.getByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	if actor.Role == domain.RoleTechnician && assignment.AssignedToID != actor.ID {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	if !actor.IsStaff() {
		return nil, nil, apperrors.NewForbidden("access denied")
	}
	updates, err := s.store.TaskUpdates.ListByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return assignment, updates, nil
}

func (s *AssignmentService) getByID(ctx context.Context, assignmentID string) (*domain.TaskAssignment, error) {
	assignment, err := s.store.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("assignment", map[string]any{"assignment_id": assignmentID})
		}
		return nil, apperrors.MapError(err)
	}
	return assignment, nil
}

// getOwned loads the assignment and enforces that the actor is its
// technician.
func (s *AssignmentService) getOwned(ctx context.Context, actor *domain.User, assignmentID string) (*domain.TaskAssignment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	assignment, err := s.getByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.AssignedToID != actor.ID {
		return nil, apperrors.NewForbidden("assignment belongs to another technician")
	}
	return assignment, nil
}

func (s *AssignmentService) publishStatusChange(ctx context.Context, actor *domain.User, assignment *domain.TaskAssignment, from domain.AssignmentStatus) {
	s.publish(ctx, events.Event{
		Type:      events.EventAssignmentStatusChanged,
		RequestID: assignment.RequestID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.AssignmentStatusChangedPayload{
			AssignmentID: assignment.ID,
			FromStatus:   from,
			ToStatus:     assignment.Status,
		},
	})
}

func (s *AssignmentService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
