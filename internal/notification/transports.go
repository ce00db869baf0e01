package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
)

// EmailTransport logs outgoing email. Real SMTP delivery lives outside this service.
type EmailTransport struct {
	from   string
	logger *zap.Logger
}

// NewEmailTransport creates the email stub.
func NewEmailTransport(from string, logger *zap.Logger) *EmailTransport {
	return &EmailTransport{from: from, logger: logger}
}

// Deliver logs the message.
func (t *EmailTransport) Deliver(_ context.Context, n domain.Notification) error {
	if strings.TrimSpace(t.from) == "" {
		return errors.New("email sender not configured")
	}
	if !strings.Contains(n.Recipient, "@") {
		return fmt.Errorf("invalid email recipient %q", n.Recipient)
	}
	t.logger.Info("sendEmail",
		zap.String("from", t.from),
		zap.String("to", n.Recipient),
		zap.String("subject", n.Subject),
		zap.String("case_id", n.CaseID))
	return nil
}

// InAppTransport keeps an inbox per recipient for the dashboard to poll.
type InAppTransport struct {
	mu      sync.RWMutex
	inboxes map[string][]domain.Notification
	limit   int
}

// NewInAppTransport creates an inbox store keeping at most limit messages per recipient.
func NewInAppTransport(limit int) *InAppTransport {
	if limit <= 0 {
		limit = 100
	}
	return &InAppTransport{inboxes: make(map[string][]domain.Notification), limit: limit}
}

// Deliver appends n to the recipient's inbox.
func (t *InAppTransport) Deliver(_ context.Context, n domain.Notification) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	inbox := append(t.inboxes[n.Recipient], n)
	if len(inbox) > t.limit {
		inbox = inbox[len(inbox)-t.limit:]
	}
	t.inboxes[n.Recipient] = inbox
	return nil
}

// Inbox returns a copy of the recipient's messages, oldest first.
func (t *InAppTransport) Inbox(recipient string) []domain.Notification {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]domain.Notification(nil), t.inboxes[recipient]...)
}

type webhookPayload struct {
	ID        string `json:"id"`
	CaseID    string `json:"case_id,omitempty"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Priority  string `json:"priority"`
}

// WebhookTransport posts notifications as JSON. A circuit breaker stops hammering an
// endpoint that keeps failing; an open breaker fails the delivery immediately.
type WebhookTransport struct {
	url     string
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
}

// NewWebhookTransport creates the transport. A recipient that looks like a URL overrides url.
func NewWebhookTransport(url string, timeout time.Duration, logger *zap.Logger) *WebhookTransport {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "notification-webhook",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("webhook breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &WebhookTransport{url: url, timeout: timeout, breaker: breaker}
}

// Deliver posts n to the webhook endpoint.
func (t *WebhookTransport) Deliver(ctx context.Context, n domain.Notification) error {
	target := t.url
	if strings.HasPrefix(n.Recipient, "http://") || strings.HasPrefix(n.Recipient, "https://") {
		target = n.Recipient
	}
	if target == "" {
		return errors.New("webhook url not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := t.breaker.Execute(func() (interface{}, error) {
		agent := fiber.Post(target).Timeout(t.timeout).JSON(webhookPayload{
			ID:        n.ID,
			CaseID:    n.CaseID,
			Recipient: n.Recipient,
			Subject:   n.Subject,
			Body:      n.Body,
			Priority:  string(n.Priority),
		})
		code, _, errs := agent.Bytes()
		if len(errs) > 0 {
			return nil, errors.Join(errs...)
		}
		if code >= fiber.StatusBadRequest {
			return nil, fmt.Errorf("webhook responded %d", code)
		}
		return nil, nil
	})
	return err
}
