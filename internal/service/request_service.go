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

// RequestService owns service-request creation, status transitions and
// the append-only audit trail. Transitions are audit-first: staff may
// move a request between any two statuses, but every transition needs a
// reason and is always recorded.
type RequestService struct {
	store      repository.Store
	tx         repository.TxManager
	dispatcher events.Dispatcher
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	Store      repository.Store
	Tx         repository.TxManager
	Dispatcher events.Dispatcher
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	return &RequestService{
		store:      deps.Store,
		tx:         deps.Tx,
		dispatcher: deps.Dispatcher,
	}
}

// RequestCreateInput describes the citizen's creation payload.
type RequestCreateInput struct {
	ServiceTypeID string
	ServiceAreaID *string
	RequestType   domain.RequestType
	Title         string
	Description   string
	Address       string
	Latitude      *decimal.Decimal
	Longitude     *decimal.Decimal
	Priority      domain.Priority
	CitizenPhone  string
	CitizenEmail  string
	Notes         string
}

// ChangeStatusInput describes a staff-driven status update.
type ChangeStatusInput struct {
	NewStatus          domain.RequestStatus
	Reason             string
	AssignedToID       *string
	ExpectedCompletion *time.Time
}

const reasonRequestCreated = "request created"
const reasonCancelledByCitizen = "cancelled by citizen"

// Create files a new service request on behalf of the citizen. The
// request starts PENDING and the creation history record (prior status
// null) is written in the same transaction.
func (s *RequestService) Create(ctx context.Context, citizen *domain.User, input RequestCreateInput) (*domain.ServiceRequest, error) {
	if citizen == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}

	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Address = strings.TrimSpace(input.Address)
	if input.Title == "" || input.Description == "" || input.Address == "" || input.ServiceTypeID == "" {
		return nil, apperrors.NewValidationError("title, description, address and service type are required", nil)
	}
	if !input.RequestType.Valid() {
		return nil, apperrors.NewValidationError("unknown request type", map[string]any{"request_type": input.RequestType})
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	serviceType, err := s.store.ServiceTypes.GetByID(ctx, input.ServiceTypeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service type", map[string]any{"service_type_id": input.ServiceTypeID})
		}
		return nil, apperrors.MapError(err)
	}
	if !serviceType.IsActive {
		return nil, apperrors.NewValidationError("service type is not available", nil)
	}
	if input.ServiceAreaID != nil {
		area, err := s.store.ServiceAreas.GetByID(ctx, *input.ServiceAreaID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("service area", map[string]any{"service_area_id": *input.ServiceAreaID})
			}
			return nil, apperrors.MapError(err)
		}
		if !area.IsActive {
			return nil, apperrors.NewValidationError("service area is not available", nil)
		}
	}

	phone := strings.TrimSpace(input.CitizenPhone)
	if phone == "" {
		phone = citizen.Phone
	}
	email := strings.TrimSpace(input.CitizenEmail)
	if email == "" {
		email = citizen.Email
	}

	request := &domain.ServiceRequest{
		TicketNumber:  generateTicketNumber(),
		CitizenID:     citizen.ID,
		ServiceTypeID: input.ServiceTypeID,
		ServiceAreaID: input.ServiceAreaID,
		RequestType:   input.RequestType,
		Title:         input.Title,
		Description:   input.Description,
		Address:       input.Address,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		Status:        domain.RequestStatusPending,
		Priority:      input.Priority,
		CitizenPhone:  phone,
		CitizenEmail:  email,
		Notes:         input.Notes,
	}

	err = s.tx.WithinTx(ctx, func(store repository.Store) error {
		if err := store.Requests.Create(ctx, request); err != nil {
			return err
		}
		return store.History.Create(ctx, &domain.RequestStatusHistory{
			RequestID:   request.ID,
			FromStatus:  nil,
			ToStatus:    request.Status,
			ChangedByID: citizen.ID,
			Reason:      reasonRequestCreated,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: request.ID,
		Actor:     events.Actor{UserID: citizen.ID, Role: citizen.Role},
		Payload: events.RequestCreatedPayload{
			TicketNumber:  request.TicketNumber,
			ServiceTypeID: request.ServiceTypeID,
			RequestType:   request.RequestType,
			Priority:      request.Priority,
			Title:         request.Title,
		},
	})
	return request, nil
}

// ChangeStatus applies a staff-driven status transition. Any status to
// any status is allowed, including a no-op to the same status; the
// transition is attributed to the acting user and always recorded.
func (s *RequestService) ChangeStatus(ctx context.Context, actor *domain.User, ticketNumber string, input ChangeStatusInput) (*domain.ServiceRequest, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	if !actor.CanUpdateRequestStatus() {
		return nil, apperrors.NewForbidden("insufficient role for status update")
	}
	if !input.NewStatus.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": input.NewStatus})
	}
	input.Reason = strings.TrimSpace(input.Reason)
	if input.Reason == "" {
		return nil, apperrors.NewValidationError("reason is required", nil)
	}

	request, err := s.getByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}

	if input.AssignedToID != nil {
		assignee, err := s.store.Users.GetByID(ctx, *input.AssignedToID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("user", map[string]any{"user_id": *input.AssignedToID})
			}
			return nil, apperrors.MapError(err)
		}
		if assignee.Role != domain.RoleTechnician && assignee.Role != domain.RoleManager {
			return nil, apperrors.NewValidationError("requests can only be assigned to technicians or managers", nil)
		}
	}

	fromStatus := request.Status
	request.Status = input.NewStatus
	if input.AssignedToID != nil {
		request.AssignedToID = input.AssignedToID
	}
	if input.ExpectedCompletion != nil {
		request.ExpectedCompletion = input.ExpectedCompletion
	}

	err = s.tx.WithinTx(ctx, func(store repository.Store) error {
		if err := store.Requests.Update(ctx, request); err != nil {
			return err
		}
		return store.History.Create(ctx, &domain.RequestStatusHistory{
			RequestID:   request.ID,
			FromStatus:  &fromStatus,
			ToStatus:    request.Status,
			ChangedByID: actor.ID,
			Reason:      input.Reason,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventRequestStatusChanged,
		RequestID: request.ID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.RequestStatusChangedPayload{
			FromStatus: &fromStatus,
			ToStatus:   request.Status,
			Reason:     input.Reason,
		},
	})
	return request, nil
}

// Cancel lets the owning citizen cancel a request that has not yet
// entered execution. CANCELLED is terminal.
func (s *RequestService) Cancel(ctx context.Context, actor *domain.User, ticketNumber string) (*domain.ServiceRequest, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}

	request, err := s.getByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if request.CitizenID != actor.ID {
		return nil, apperrors.NewForbidden("only the owning citizen may cancel")
	}
	if !request.CanBeCancelledByCitizen() {
		return nil, apperrors.NewStateError("request not cancellable", map[string]any{"status": request.Status})
	}

	fromStatus := request.Status
	request.Status = domain.RequestStatusCancelled

	err = s.tx.WithinTx(ctx, func(store repository.Store) error {
		if err := store.Requests.Update(ctx, request); err != nil {
			return err
		}
		return store.History.Create(ctx, &domain.RequestStatusHistory{
			RequestID:   request.ID,
			FromStatus:  &fromStatus,
			ToStatus:    request.Status,
			ChangedByID: actor.ID,
			Reason:      reasonCancelledByCitizen,
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:      events.EventRequestCancelled,
		RequestID: request.ID,
		Actor:     events.Actor{UserID: actor.ID, Role: actor.Role},
		Payload: events.RequestStatusChangedPayload{
			FromStatus: &fromStatus,
			ToStatus:   request.Status,
			Reason:     reasonCancelledByCitizen,
		},
	})
	return request, nil
}

// GetForActor fetches a request with its visible comments and history.
// Citizens see only their own requests and no internal comments.
func (s *RequestService) GetForActor(ctx context.Context, actor *domain.User, ticketNumber string) (*domain.ServiceRequest, []domain.RequestComment, []domain.RequestStatusHistory, error) {
	if actor == nil {
		return nil, nil, nil, apperrors.NewUnauthorized("actor required")
	}
	request, err := s.getByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, nil, nil, err
	}
	if !actor.IsStaff() && request.CitizenID != actor.ID {
		return nil, nil, nil, apperrors.NewForbidden("access denied")
	}

	comments, err := s.store.Comments.ListByRequest(ctx, request.ID, actor.IsStaff())
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	history, err := s.store.History.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, nil, nil, apperrors.MapError(err)
	}
	return request, comments, history, nil
}

// RequestListFilter describes listing filters.
type RequestListFilter struct {
	Statuses      []domain.RequestStatus
	Priorities    []domain.Priority
	ServiceTypeID *string
	ServiceAreaID *string
	SearchTerm    *string
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Limit         int
	Offset        int
}

// List returns requests visible to the actor. Citizens are scoped to
// their own requests.
func (s *RequestService) List(ctx context.Context, actor *domain.User, filter RequestListFilter) ([]domain.ServiceRequest, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	repoFilter := repository.RequestFilter{
		Statuses:      filter.Statuses,
		Priorities:    filter.Priorities,
		ServiceTypeID: filter.ServiceTypeID,
		ServiceAreaID: filter.ServiceAreaID,
		SearchTerm:    filter.SearchTerm,
		CreatedFrom:   filter.CreatedFrom,
		CreatedTo:     filter.CreatedTo,
		Limit:         filter.Limit,
		Offset:        filter.Offset,
	}
	if !actor.IsStaff() {
		citizenID := actor.ID
		repoFilter.CitizenID = &citizenID
	}
	requests, err := s.store.Requests.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return requests, nil
}

// AddComment appends a comment. Internal comments are staff-only and
// hidden from citizens.
func (s *RequestService) AddComment(ctx context.Context, actor *domain.User, ticketNumber, text string, isInternal bool) (*domain.RequestComment, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment is required", nil)
	}
	request, err := s.getByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() {
		if request.CitizenID != actor.ID {
			return nil, apperrors.NewForbidden("access denied")
		}
		if isInternal {
			return nil, apperrors.NewForbidden("citizens cannot post internal comments")
		}
	}

	comment := &domain.RequestComment{
		RequestID:  request.ID,
		UserID:     actor.ID,
		Comment:    text,
		IsInternal: isInternal,
	}
	if err := s.store.Comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	return comment, nil
}

// History returns the full audit trail for a request, staff only.
func (s *RequestService) History(ctx context.Context, actor *domain.User, ticketNumber string) ([]domain.RequestStatusHistory, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}
	request, err := s.getByTicket(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && request.CitizenID != actor.ID {
		return nil, apperrors.NewForbidden("access denied")
	}
	history, err := s.store.History.ListByRequest(ctx, request.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return history, nil
}

func (s *RequestService) getByTicket(ctx context.Context, ticketNumber string) (*domain.ServiceRequest, error) {
	request, err := s.store.Requests.GetByTicketNumber(ctx, ticketNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"ticket_number": ticketNumber})
		}
		return nil, apperrors.MapError(err)
	}
	return request, nil
}

func (s *RequestService) publish(ctx context.Context, event events.Event) {
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

// generateTicketNumber produces REQ-<YYYYMMDD>-<8 uppercase alnum>.
// The value is assigned once at creation and never recomputed.
func generateTicketNumber() string {
	datePart := time.Now().Format("20060102")
	uniquePart := strings.ToUpper(uuid.NewString()[:8])
	return "REQ-" + datePart + "-" + uniquePart
}
