package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/civic-kit/municipal-services/internal/domain"
	"github.com/civic-kit/municipal-services/internal/events"
	"github.com/civic-kit/municipal-services/internal/repository"
	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

// OutboundNotifier delivers a notification over an external channel.
// The default implementation only logs; delivery failures never affect
// the triggering operation.
type OutboundNotifier interface {
	Notify(ctx context.Context, recipientEmail string, notification domain.Notification) error
}

// LogNotifier is the inert email path: it records what would have been
// sent and succeeds.
type LogNotifier struct {
	logger *zap.Logger
	from   string
}

// NewLogNotifier builds the logging notifier. From is the configured
// sender address; empty disables outbound entirely.
func NewLogNotifier(logger *zap.Logger, from string) *LogNotifier {
	return &LogNotifier{logger: logger, from: from}
}

// Notify logs the outbound message instead of sending it.
func (n *LogNotifier) Notify(_ context.Context, recipientEmail string, notification domain.Notification) error {
	if n.from == "" {
		return nil
	}
	n.logger.Info("outbound notification",
		zap.String("from", n.from),
		zap.String("to", recipientEmail),
		zap.String("type", string(notification.Type)),
		zap.String("title", notification.Title),
	)
	return nil
}

// NotificationService serves the per-user notification feed and handles
// post-commit delivery over the outbound channel.
type NotificationService struct {
	store     repository.Store
	tx        repository.TxManager
	outbound  OutboundNotifier
	logger    *zap.Logger
	feedLimit int
}

// NotificationDependencies bundles collaborators for the notification
// service.
type NotificationDependencies struct {
	Store     repository.Store
	Tx        repository.TxManager
	Outbound  OutboundNotifier
	Logger    *zap.Logger
	FeedLimit int
}

// NewNotificationService constructs the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	limit := deps.FeedLimit
	if limit <= 0 {
		limit = 20
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		store:     deps.Store,
		tx:        deps.Tx,
		outbound:  deps.Outbound,
		logger:    logger,
		feedLimit: limit,
	}
}

// Feed returns the recipient's most recent notifications, newest first,
// and marks every unread one as read in the same transaction. The read
// flag only ever flips false to true.
func (s *NotificationService) Feed(ctx context.Context, actor *domain.User) ([]domain.Notification, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("actor required")
	}

	var feed []domain.Notification
	err := s.tx.WithinTx(ctx, func(store repository.Store) error {
		listed, err := store.Notifications.ListByRecipient(ctx, actor.ID, s.feedLimit)
		if err != nil {
			return err
		}
		var unread []string
		for i := range listed {
			if !listed[i].IsRead {
				unread = append(unread, listed[i].ID)
				listed[i].IsRead = true
			}
		}
		if err := store.Notifications.MarkRead(ctx, unread); err != nil {
			return err
		}
		feed = listed
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return feed, nil
}

// UnreadCount returns how many notifications the actor has not seen.
func (s *NotificationService) UnreadCount(ctx context.Context, actor *domain.User) (int64, error) {
	if actor == nil {
		return 0, apperrors.NewUnauthorized("actor required")
	}
	count, err := s.store.Notifications.CountUnread(ctx, actor.ID)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	return count, nil
}

// RegisterHandlers subscribes the post-commit delivery hooks. The
// notification rows themselves are written inside the engines'
// transactions; these handlers only drive the outbound channel and
// structured logging.
func (s *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventAssignmentCreated, s.handleAssignmentCreated)
	dispatcher.Subscribe(events.EventRequestStatusChanged, s.handleRequestStatusChanged)
	dispatcher.Subscribe(events.EventRequestCancelled, s.handleRequestStatusChanged)
}

func (s *NotificationService) handleAssignmentCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.AssignmentCreatedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("assignment notifications fanned out",
		zap.String("request_id", event.RequestID),
		zap.String("assignment_id", payload.AssignmentID),
		zap.String("assigned_to", payload.AssignedToID),
	)
	if s.outbound == nil {
		return nil
	}
	assignee, err := s.store.Users.GetByID(ctx, payload.AssignedToID)
	if err != nil {
		s.logger.Warn("outbound skipped, assignee lookup failed", zap.Error(err))
		return nil
	}
	return s.outbound.Notify(ctx, assignee.Email, domain.Notification{
		RecipientID:      assignee.ID,
		Type:             domain.NotificationTaskAssigned,
		Title:            "New task assigned",
		RelatedRequestID: &event.RequestID,
	})
}

func (s *NotificationService) handleRequestStatusChanged(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.RequestStatusChangedPayload)
	if !ok {
		return nil
	}
	s.logger.Info("request status changed",
		zap.String("request_id", event.RequestID),
		zap.String("to_status", string(payload.ToStatus)),
		zap.String("actor", event.Actor.UserID),
	)
	return nil
}

// buildAssignmentNotifications produces the fixed fan-out for a new
// assignment: one notification to the technician and one to the citizen,
// both linked to the parent request.
func buildAssignmentNotifications(request *domain.ServiceRequest, assignment *domain.TaskAssignment, assignee *domain.User) []*domain.Notification {
	requestID := request.ID
	return []*domain.Notification{
		{
			RecipientID: assignment.AssignedToID,
			Type:        domain.NotificationTaskAssigned,
			Title:       fmt.Sprintf("New task assigned: %s", request.TicketNumber),
			Message: fmt.Sprintf("You have been assigned the task: %s. Priority: %s.",
				request.Title, assignment.Priority),
			RelatedRequestID: &requestID,
		},
		{
			RecipientID: request.CitizenID,
			Type:        domain.NotificationTaskAssigned,
			Title:       fmt.Sprintf("Your request has been assigned: %s", request.TicketNumber),
			Message: fmt.Sprintf("Your request %q has been assigned to %s.",
				request.Title, assignee.Name),
			RelatedRequestID: &requestID,
		},
	}
}
