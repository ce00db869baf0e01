package notification

import "github.com/spec-kit/case-service/internal/domain"

// Template ids referenced by the default workflow rules.
const (
	TemplateCaseAssigned    = "case_assigned"
	TemplateSLAAtRisk       = "sla_at_risk"
	TemplateSLABreached     = "sla_breached"
	TemplateCaseEscalated   = "case_escalated"
	TemplateCaseAutoResolve = "case_auto_resolved"
	TemplateCustomerReplied = "customer_replied"
)

// DefaultTemplates is the seed set used when the store has none.
func DefaultTemplates() []domain.NotificationTemplate {
	return []domain.NotificationTemplate{
		{
			ID:              TemplateCaseAssigned,
			Name:            "Case assigned",
			Channel:         domain.ChannelEmail,
			SubjectTemplate: "[{case_number}] assigned to you: {case_title}",
			BodyTemplate:    "Case {case_number} ({case_type}, {priority}) has been assigned to {assigned_to}. Resolution due {resolution_due}.",
			Variables:       []string{"case_number", "case_title", "case_type", "priority", "assigned_to", "resolution_due"},
			Priority:        domain.NotificationPriorityNormal,
			Enabled:         true,
		},
		{
			ID:              TemplateSLAAtRisk,
			Name:            "SLA at risk",
			Channel:         domain.ChannelInApp,
			SubjectTemplate: "SLA at risk: {case_number}",
			BodyTemplate:    "Case {case_number} is at risk of breaching its SLA. Resolution due {resolution_due} ({hours_remaining}h left). {message}",
			Variables:       []string{"case_number", "resolution_due", "hours_remaining", "message"},
			Priority:        domain.NotificationPriorityHigh,
			Enabled:         true,
		},
		{
			ID:              TemplateSLABreached,
			Name:            "SLA breached",
			Channel:         domain.ChannelEmail,
			SubjectTemplate: "SLA BREACHED: {case_number} {case_title}",
			BodyTemplate:    "Case {case_number} ({priority}) breached its resolution SLA due {resolution_due}. Escalated to {escalated_to}. {message}",
			Variables:       []string{"case_number", "case_title", "priority", "resolution_due", "escalated_to", "message"},
			Priority:        domain.NotificationPriorityUrgent,
			Enabled:         true,
		},
		{
			ID:              TemplateCaseEscalated,
			Name:            "Case escalated",
			Channel:         domain.ChannelWebhook,
			SubjectTemplate: "Case escalated: {case_number}",
			BodyTemplate:    "Case {case_number} was escalated to {escalated_to} by rule {rule_name}.",
			Variables:       []string{"case_number", "escalated_to", "rule_name"},
			Priority:        domain.NotificationPriorityHigh,
			Enabled:         true,
		},
		{
			ID:              TemplateCaseAutoResolve,
			Name:            "Case auto-resolved",
			Channel:         domain.ChannelEmail,
			SubjectTemplate: "[{case_number}] resolved",
			BodyTemplate:    "Case {case_number} was resolved automatically: {message}",
			Variables:       []string{"case_number", "message"},
			Priority:        domain.NotificationPriorityLow,
			Enabled:         true,
		},
		{
			ID:              TemplateCustomerReplied,
			Name:            "Customer replied",
			Channel:         domain.ChannelInApp,
			SubjectTemplate: "Customer replied on {case_number}",
			BodyTemplate:    "{requester} replied on case {case_number}: {message}",
			Variables:       []string{"case_number", "requester", "message"},
			Priority:        domain.NotificationPriorityNormal,
			Enabled:         true,
		},
	}
}
