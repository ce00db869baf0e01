package domain

import "time"

// NotificationChannel identifies a delivery transport.
type NotificationChannel string

const (
	ChannelEmail   NotificationChannel = "email"
	ChannelInApp   NotificationChannel = "in_app"
	ChannelWebhook NotificationChannel = "webhook"
)

// NotificationPriority orders notifications for recipients.
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
	NotificationPriorityUrgent NotificationPriority = "urgent"
)

// NotificationStatus tracks delivery.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationSent      NotificationStatus = "sent"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
	NotificationCancelled NotificationStatus = "cancelled"
)

// NotificationTemplate is static reference data for rendering.
type NotificationTemplate struct {
	ID              string               `json:"id" yaml:"id"`
	Name            string               `json:"name" yaml:"name"`
	Channel         NotificationChannel  `json:"channel" yaml:"channel"`
	SubjectTemplate string               `json:"subject_template" yaml:"subject_template"`
	BodyTemplate    string               `json:"body_template" yaml:"body_template"`
	Variables       []string             `json:"variables" yaml:"variables"`
	Priority        NotificationPriority `json:"priority" yaml:"priority"`
	Enabled         bool                 `json:"enabled" yaml:"enabled"`
}

// Notification is a rendered message and its delivery state.
type Notification struct {
	ID           string               `json:"id"`
	TemplateID   string               `json:"template_id"`
	Channel      NotificationChannel  `json:"channel"`
	Recipient    string               `json:"recipient"`
	Subject      string               `json:"subject"`
	Body         string               `json:"body"`
	Priority     NotificationPriority `json:"priority"`
	Status       NotificationStatus   `json:"status"`
	CaseID       string               `json:"case_id,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	SentAt       *time.Time           `json:"sent_at,omitempty"`
	DeliveredAt  *time.Time           `json:"delivered_at,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
}
