package domain

import "time"

// Trigger is the event kind that activates rule evaluation.
type Trigger string

const (
	TriggerCaseCreated   Trigger = "case_created"
	TriggerCaseAssigned  Trigger = "case_assigned"
	TriggerStatusChanged Trigger = "status_changed"
	TriggerSLAAtRisk     Trigger = "sla_at_risk"
	TriggerSLABreached   Trigger = "sla_breached"
	TriggerTimeElapsed   Trigger = "time_elapsed"
	TriggerCustomerReply Trigger = "customer_reply"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	switch t {
	case TriggerCaseCreated, TriggerCaseAssigned, TriggerStatusChanged, TriggerSLAAtRisk,
		TriggerSLABreached, TriggerTimeElapsed, TriggerCustomerReply:
		return true
	}
	return false
}

// ActionType names an action kind in rule configuration.
type ActionType string

const (
	ActionAssignment   ActionType = "assignment"
	ActionStatusChange ActionType = "status_change"
	ActionEscalation   ActionType = "escalation"
	ActionNotification ActionType = "notification"
	ActionAutoResolve  ActionType = "auto_resolve"
)

// ActionSpec is the stored form of one rule action.
type ActionSpec struct {
	Type   ActionType     `json:"type" yaml:"type"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// WorkflowRule is a declarative conditions+actions pair bound to a trigger.
type WorkflowRule struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description,omitempty" yaml:"description,omitempty"`
	Trigger     Trigger        `json:"trigger" yaml:"trigger"`
	Conditions  map[string]any `json:"conditions" yaml:"conditions"`
	Actions     []ActionSpec   `json:"actions" yaml:"actions"`
	Enabled     bool           `json:"enabled" yaml:"enabled"`
}

// ExecutionStatus is the outcome of a fired rule.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
	ExecutionSkipped ExecutionStatus = "skipped"
)

// WorkflowExecution is the append-only audit record of one fired rule.
type WorkflowExecution struct {
	ID              string          `json:"id"`
	RuleID          string          `json:"rule_id"`
	RuleName        string          `json:"rule_name,omitempty"`
	CaseID          string          `json:"case_id"`
	Trigger         Trigger         `json:"trigger"`
	ExecutedAt      time.Time       `json:"executed_at"`
	Status          ExecutionStatus `json:"status"`
	ActionsExecuted []string        `json:"actions_executed"`
	ErrorMessage    string          `json:"error_message,omitempty"`
}
