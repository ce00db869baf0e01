package domain

import "time"

// TimelineEventType captures what happened in a timeline entry.
type TimelineEventType string

const (
	EventCaseCreated      TimelineEventType = "case_created"
	EventStatusChanged    TimelineEventType = "status_changed"
	EventAssigned         TimelineEventType = "assigned"
	EventEscalated        TimelineEventType = "escalated"
	EventNotificationSent TimelineEventType = "notification_sent"
	EventAutoResolved     TimelineEventType = "auto_resolved"
	EventCustomerReply    TimelineEventType = "customer_reply"
)

// SystemActor marks events raised by the service itself.
const SystemActor = "system"

// TimelineEvent is an immutable audit trail entry on a case.
type TimelineEvent struct {
	ID          string            `json:"id"`
	Type        TimelineEventType `json:"type"`
	Timestamp   time.Time         `json:"timestamp"`
	Actor       string            `json:"actor"`
	Description string            `json:"description"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

func (e TimelineEvent) clone() TimelineEvent {
	if e.Metadata == nil {
		return e
	}
	md := make(map[string]any, len(e.Metadata))
	for k, v := range e.Metadata {
		md[k] = v
	}
	e.Metadata = md
	return e
}
