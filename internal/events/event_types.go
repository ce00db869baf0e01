package events

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCaseCreated      EventType = "case_created"
	EventCaseUpdated      EventType = "case_updated"
	EventCaseEscalated    EventType = "case_escalated"
	EventWorkflowExecuted EventType = "workflow_executed"

	// EventAll subscribes a handler to every event. It cannot be published.
	EventAll EventType = "*"
)

// Event represents a change published after a case mutation is saved.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	CaseID    string      `json:"case_id"`
	Actor     string      `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CaseUpdatedPayload payload.
type CaseUpdatedPayload struct {
	Trigger   domain.Trigger    `json:"trigger"`
	Status    domain.CaseStatus `json:"status"`
	SLAStatus domain.SLAStatus  `json:"sla_status,omitempty"`
	Version   int64             `json:"version"`
}

// CaseEscalatedPayload payload.
type CaseEscalatedPayload struct {
	EscalatedTo string           `json:"escalated_to"`
	SLAStatus   domain.SLAStatus `json:"sla_status,omitempty"`
}

// WorkflowExecutedPayload payload.
type WorkflowExecutedPayload struct {
	Execution domain.WorkflowExecution `json:"execution"`
}
