package workflow

import (
	"time"

	"github.com/spec-kit/case-service/internal/domain"
)

// CaseView is the read-only projection rule conditions are evaluated against.
type CaseView struct {
	Priority            domain.CasePriority
	Status              domain.CaseStatus
	CaseType            string
	AssignedTo          *string
	SLAStatus           domain.SLAStatus
	ResponseStatus      domain.SLAStatus
	ResolutionStatus    domain.SLAStatus
	EscalationTriggered bool
	DaysSinceActivity   float64
	HoursSinceCreated   float64
	NotifiedAtRisk      bool
	Escalated           bool
}

// NewCaseView derives the view of c at now. SLA fields are empty when the case has no metrics.
func NewCaseView(c domain.Case, now time.Time) CaseView {
	v := CaseView{
		Priority:          c.Priority,
		Status:            c.Status,
		CaseType:          c.Type,
		AssignedTo:        c.AssignedTo,
		SLAStatus:         c.SLAStatus,
		DaysSinceActivity: now.Sub(c.LastActivityAt()).Hours() / 24,
		HoursSinceCreated: now.Sub(c.CreatedAt).Hours(),
		NotifiedAtRisk:    c.NotifiedAtRisk,
		Escalated:         c.Escalated,
	}
	if m := c.SLAMetrics; m != nil {
		v.ResponseStatus = m.ResponseStatus
		v.ResolutionStatus = m.ResolutionStatus
		v.EscalationTriggered = m.EscalationTriggered
	}
	return v
}

// field names accepted in rule conditions
const (
	FieldPriority            = "priority"
	FieldStatus              = "status"
	FieldCaseType            = "case_type"
	FieldAssignedTo          = "assigned_to"
	FieldSLAStatus           = "sla_status"
	FieldResponseStatus      = "response_status"
	FieldResolutionStatus    = "resolution_status"
	FieldEscalationTriggered = "escalation_triggered"
	FieldDaysSinceActivity   = "days_since_activity"
	FieldHoursSinceCreated   = "hours_since_created"
	FieldNotifiedAtRisk      = "notified_at_risk"
	FieldEscalated           = "escalated"
)

// Field returns the named value as a string, float64, bool or nil. The second result is
// false for unknown names.
func (v CaseView) Field(name string) (any, bool) {
	switch name {
	case FieldPriority:
		return string(v.Priority), true
	case FieldStatus:
		return string(v.Status), true
	case FieldCaseType:
		return v.CaseType, true
	case FieldAssignedTo:
		if v.AssignedTo == nil || *v.AssignedTo == "" {
			return nil, true
		}
		return *v.AssignedTo, true
	case FieldSLAStatus:
		return optionalStatus(v.SLAStatus), true
	case FieldResponseStatus:
		return optionalStatus(v.ResponseStatus), true
	case FieldResolutionStatus:
		return optionalStatus(v.ResolutionStatus), true
	case FieldEscalationTriggered:
		return v.EscalationTriggered, true
	case FieldDaysSinceActivity:
		return v.DaysSinceActivity, true
	case FieldHoursSinceCreated:
		return v.HoursSinceCreated, true
	case FieldNotifiedAtRisk:
		return v.NotifiedAtRisk, true
	case FieldEscalated:
		return v.Escalated, true
	}
	return nil, false
}

func optionalStatus(s domain.SLAStatus) any {
	if s == "" {
		return nil
	}
	return string(s)
}
