package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/talentgrid/interview-engine/internal/domain"
	"github.com/talentgrid/interview-engine/internal/repository"
)

// Inbox is the read-and-acknowledge surface of a recipient's notifications.
type Inbox interface {
	List(ctx context.Context, filter repository.NotificationFilter) ([]domain.Notification, int64, error)
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) error
}

type NotificationHandler struct {
	inbox Inbox
	now   func() time.Time
}

func NewNotificationHandler(inbox Inbox) (*NotificationHandler, error) {
	if inbox == nil {
		return nil, fmt.Errorf("notification inbox is required")
	}
	return &NotificationHandler{inbox: inbox, now: time.Now}, nil
}

func RegisterNotificationRoutes(router fiber.Router, inbox Inbox) error {
	h, err := NewNotificationHandler(inbox)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/notifications", h.ListNotifications)
	v1.Post("/notifications/:id/read", h.MarkRead)

	return nil
}

type channelDeliveryResponse struct {
	Channel       string     `json:"channel"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	NextRetryAt   *time.Time `json:"nextRetryAt,omitempty"`
	Error         *string    `json:"error,omitempty"`
}

type notificationResponse struct {
	ID            string                    `json:"id"`
	RecipientID   string                    `json:"recipientId"`
	RecipientType string                    `json:"recipientType"`
	BroadcastID   *string                   `json:"broadcastId,omitempty"`
	Type          string                    `json:"type"`
	Title         string                    `json:"title"`
	Message       string                    `json:"message"`
	Priority      string                    `json:"priority"`
	Data          map[string]string         `json:"data,omitempty"`
	Channels      []channelDeliveryResponse `json:"channels"`
	Status        string                    `json:"status"`
	ReadAt        *time.Time                `json:"readAt,omitempty"`
	ExpiresAt     *time.Time                `json:"expiresAt,omitempty"`
	CreatedAt     time.Time                 `json:"createdAt"`
	UpdatedAt     time.Time                 `json:"updatedAt"`
}

type listNotificationsResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

// ListNotifications returns the acting recipient's own inbox; the recipient
// is always taken from the identity headers, never from query parameters.
func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return toHTTPError(err)
	}

	filter, err := parseNotificationFilter(c, actor)
	if err != nil {
		return toHTTPError(err)
	}

	notifications, total, err := h.inbox.List(c.Context(), filter)
	if err != nil {
		return toHTTPError(err)
	}

	data := make([]notificationResponse, 0, len(notifications))
	for i := range notifications {
		data = append(data, toNotificationResponse(&notifications[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: data,
		Meta: listMeta{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Total:    total,
		},
	})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	actor, err := actorFromRequest(c)
	if err != nil {
		return toHTTPError(err)
	}

	id := strings.TrimSpace(c.Params("id"))
	readAt := h.now().UTC()
	if err := h.inbox.MarkRead(c.Context(), id, actor.ID, readAt); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"notificationId": id,
		"readAt":         readAt,
	})
}

func parseNotificationFilter(c *fiber.Ctx, actor domain.Actor) (repository.NotificationFilter, error) {
	recipientType := domain.RecipientUser
	if actor.Role == domain.RoleCompany {
		recipientType = domain.RecipientCompany
	}

	recipientID := actor.ID
	filter := repository.NotificationFilter{
		RecipientID:   &recipientID,
		RecipientType: &recipientType,
		Unread:        c.QueryBool("unread", false),
		Page:          c.QueryInt("page", defaultPage),
		PageSize:      c.QueryInt("pageSize", defaultPageSize),
	}

	if filter.Page < 1 {
		return repository.NotificationFilter{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if filter.PageSize < 1 || filter.PageSize > maxPageSize {
		return repository.NotificationFilter{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		notificationType, err := domain.ParseNotificationTypeFromString(raw)
		if err != nil {
			return repository.NotificationFilter{}, err
		}
		filter.Type = &notificationType
	}

	return filter, nil
}

func toNotificationResponse(n *domain.Notification) notificationResponse {
	if n == nil {
		return notificationResponse{}
	}

	channels := make([]channelDeliveryResponse, 0, len(n.Channels))
	for _, ch := range n.Channels {
		channels = append(channels, channelDeliveryResponse{
			Channel:       ch.Channel.String(),
			Status:        ch.Status.String(),
			Attempts:      ch.Attempts,
			LastAttemptAt: ch.LastAttemptAt,
			NextRetryAt:   ch.NextRetryAt,
			Error:         ch.ErrorMessage,
		})
	}

	return notificationResponse{
		ID:            n.ID,
		RecipientID:   n.RecipientID,
		RecipientType: n.RecipientType.String(),
		BroadcastID:   n.BroadcastID,
		Type:          n.Type.String(),
		Title:         n.Title,
		Message:       n.Message,
		Priority:      n.Priority.String(),
		Data:          n.Data,
		Channels:      channels,
		Status:        n.Status.String(),
		ReadAt:        n.ReadAt,
		ExpiresAt:     n.ExpiresAt,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}
}
