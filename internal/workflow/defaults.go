package workflow

import (
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/notification"
)

// Rule ids of the built-in rule set.
const (
	RuleAutoAssignUrgent    = "auto_assign_urgent"
	RuleNotifyAtRisk        = "notify_at_risk"
	RuleEscalateBreached    = "escalate_breached_cases"
	RuleEscalateUnattended  = "escalate_unattended"
	RuleAutoResolveStale    = "auto_resolve_stale"
	RuleNotifyCustomerReply = "notify_customer_reply"
)

// DefaultRules is the rule set used when no rules are stored or configured.
func DefaultRules() []domain.WorkflowRule {
	return []domain.WorkflowRule{
		{
			ID:          RuleAutoAssignUrgent,
			Name:        "Auto-assign urgent cases",
			Description: "Urgent and critical cases are assigned from the roster on creation.",
			Trigger:     domain.TriggerCaseCreated,
			Conditions: map[string]any{
				FieldPriority:   []any{string(domain.CasePriorityUrgent), string(domain.CasePriorityCritical)},
				FieldAssignedTo: nil,
			},
			Actions: []domain.ActionSpec{
				{Type: domain.ActionAssignment, Params: map[string]any{"assignee": "auto"}},
				{Type: domain.ActionNotification, Params: map[string]any{
					"template_id": notification.TemplateCaseAssigned,
					"recipients":  []any{"assignee"},
				}},
			},
			Enabled: true,
		},
		{
			ID:          RuleNotifyAtRisk,
			Name:        "Notify assignee when SLA is at risk",
			Description: "Warn once per case when the resolution deadline gets close.",
			Trigger:     domain.TriggerSLAAtRisk,
			Conditions: map[string]any{
				FieldSLAStatus:      string(domain.SLAStatusAtRisk),
				FieldNotifiedAtRisk: false,
			},
			Actions: []domain.ActionSpec{
				{Type: domain.ActionNotification, Params: map[string]any{
					"template_id":           notification.TemplateSLAAtRisk,
					"recipients":            []any{"assignee"},
					"message":               "Please update the case before the deadline.",
					"mark_notified_at_risk": true,
				}},
			},
			Enabled: true,
		},
		{
			ID:          RuleEscalateBreached,
			Name:        "Escalate breached cases",
			Description: "Escalate once when the SLA is breached and tell the escalation contact.",
			Trigger:     domain.TriggerSLABreached,
			Conditions: map[string]any{
				FieldSLAStatus: string(domain.SLAStatusBreached),
				FieldEscalated: false,
			},
			Actions: []domain.ActionSpec{
				{Type: domain.ActionEscalation},
				{Type: domain.ActionNotification, Params: map[string]any{
					"template_id": notification.TemplateSLABreached,
					"recipients":  []any{"escalated_to"},
					"message":     "Immediate attention required.",
				}},
			},
			Enabled: true,
		},
		{
			ID:          RuleEscalateUnattended,
			Name:        "Escalate after escalation window",
			Description: "Escalate cases that passed their configured escalation time.",
			Trigger:     domain.TriggerTimeElapsed,
			Conditions: map[string]any{
				FieldEscalationTriggered: true,
				FieldEscalated:           false,
			},
			Actions: []domain.ActionSpec{
				{Type: domain.ActionEscalation},
				{Type: domain.ActionNotification, Params: map[string]any{
					"template_id": notification.TemplateCaseEscalated,
					"recipients":  []any{"escalated_to"},
				}},
			},
			Enabled: true,
		},
		{
			ID:          RuleAutoResolveStale,
			Name:        "Auto-resolve stale cases",
			Description: "Resolve cases that waited a week for a customer answer.",
			Trigger:     domain.TriggerTimeElapsed,
			Conditions: map[string]any{
				FieldStatus:            string(domain.CaseStatusAwaitingCustomer),
				FieldDaysSinceActivity: map[string]any{"gte": 7},
			},
			Actions: []domain.ActionSpec{
				{Type: domain.ActionAutoResolve, Params: map[string]any{"reason": "No customer response for 7 days"}},
				{Type: domain.ActionNotification, Params: map[string]any{
					"template_id": notification.TemplateCaseAutoResolve,
					"recipients":  []any{"requester", "assignee"},
					"message":     "No customer response for 7 days.",
				}},
			},
			Enabled: true,
		},
		{
			ID:         RuleNotifyCustomerReply,
			Name:       "Notify assignee on customer reply",
			Trigger:    domain.TriggerCustomerReply,
			Conditions: map[string]any{FieldAssignedTo: map[string]any{"not_null": true}},
			Actions: []domain.ActionSpec{
				{Type: domain.ActionNotification, Params: map[string]any{
					"template_id": notification.TemplateCustomerReplied,
					"recipients":  []any{"assignee"},
				}},
			},
			Enabled: true,
		},
	}
}
