package dto

import (
	"time"

	"github.com/civic-kit/municipal-services/internal/domain"
)

// NotificationResponse represents one feed entry.
type NotificationResponse struct {
	ID               string                  `json:"id"`
	Type             domain.NotificationType `json:"type"`
	Title            string                  `json:"title"`
	Message          string                  `json:"message"`
	RelatedRequestID *string                 `json:"related_request_id,omitempty"`
	IsRead           bool                    `json:"is_read"`
	CreatedAt        time.Time               `json:"created_at"`
}

// UnreadCountResponse carries the unread badge counter.
type UnreadCountResponse struct {
	Unread int64 `json:"unread"`
}
