package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/civic-kit/municipal-services/internal/api/dto"
	"github.com/civic-kit/municipal-services/internal/auth"
	"github.com/civic-kit/municipal-services/internal/service"
	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

// NotificationsHandler serves the per-user notification feed.
type NotificationsHandler struct {
	service *service.NotificationService
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(notificationService *service.NotificationService) *NotificationsHandler {
	return &NotificationsHandler{service: notificationService}
}

// Feed GET /notifications. Fetching the feed marks its unread entries as
// read.
func (h *NotificationsHandler) Feed(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	feed, err := h.service.Feed(c.Context(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.NotificationResponse, 0, len(feed))
	for i := range feed {
		items = append(items, dto.NotificationResponse{
			ID:               feed[i].ID,
			Type:             feed[i].Type,
			Title:            feed[i].Title,
			Message:          feed[i].Message,
			RelatedRequestID: feed[i].RelatedRequestID,
			IsRead:           feed[i].IsRead,
			CreatedAt:        feed[i].CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// UnreadCount GET /notifications/unread.
func (h *NotificationsHandler) UnreadCount(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	count, err := h.service.UnreadCount(c.Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.UnreadCountResponse{Unread: count}})
}
