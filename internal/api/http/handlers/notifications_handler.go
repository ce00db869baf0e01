package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/notification"
)

// NotificationsHandler exposes the notification log.
type NotificationsHandler struct {
	dispatcher *notification.Dispatcher
	inbox      *notification.InAppTransport
}

// NewNotificationsHandler constructs handler.
func NewNotificationsHandler(dispatcher *notification.Dispatcher, inbox *notification.InAppTransport) *NotificationsHandler {
	return &NotificationsHandler{dispatcher: dispatcher, inbox: inbox}
}

// List GET /api/notifications?case_id=.
func (h *NotificationsHandler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.dispatcher.List(c.Query("case_id"))})
}

// Stats GET /api/notifications/stats.
func (h *NotificationsHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.dispatcher.Stats()})
}

// Inbox GET /api/notifications/inbox/:recipient.
func (h *NotificationsHandler) Inbox(c *fiber.Ctx) error {
	items := []domain.Notification{}
	if h.inbox != nil {
		if got := h.inbox.Inbox(c.Params("recipient")); got != nil {
			items = got
		}
	}
	return c.JSON(fiber.Map{"data": items})
}

// MarkDelivered POST /api/notifications/:id/delivered.
func (h *NotificationsHandler) MarkDelivered(c *fiber.Ctx) error {
	n, err := h.dispatcher.MarkDelivered(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": n})
}
