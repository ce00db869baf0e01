package domain

import "time"

// SLAStatus is the compliance state of a single deadline or of the case overall.
type SLAStatus string

const (
	SLAStatusOnTime   SLAStatus = "On Time"
	SLAStatusAtRisk   SLAStatus = "At Risk"
	SLAStatusBreached SLAStatus = "Breached"
)

// Severity orders statuses so the more urgent one can be picked.
func (s SLAStatus) Severity() int {
	switch s {
	case SLAStatusBreached:
		return 2
	case SLAStatusAtRisk:
		return 1
	default:
		return 0
	}
}

// SLAConfiguration is the commitment for one (case type, priority) pair.
type SLAConfiguration struct {
	CaseType            string       `json:"case_type" yaml:"case_type"`
	Priority            CasePriority `json:"priority" yaml:"priority"`
	ResponseTimeHours   float64      `json:"response_time_hours" yaml:"response_time_hours"`
	ResolutionTimeHours float64      `json:"resolution_time_hours" yaml:"resolution_time_hours"`
	EscalationTimeHours *float64     `json:"escalation_time_hours,omitempty" yaml:"escalation_time_hours,omitempty"`
	AutoEscalate        bool         `json:"auto_escalate" yaml:"auto_escalate"`
	NotifyOnRisk        bool         `json:"notify_on_risk" yaml:"notify_on_risk"`
	NotifyOnBreach      bool         `json:"notify_on_breach" yaml:"notify_on_breach"`
}

// SLAMetrics is derived on every evaluation and never stored on its own.
type SLAMetrics struct {
	CaseType                 string        `json:"case_type"`
	Priority                 CasePriority  `json:"priority"`
	ResponseDue              time.Time     `json:"response_due"`
	ResolutionDue            time.Time     `json:"resolution_due"`
	ResponseRemaining        time.Duration `json:"-"`
	ResolutionRemaining      time.Duration `json:"-"`
	ResponseHoursRemaining   float64       `json:"response_hours_remaining"`
	ResolutionHoursRemaining float64       `json:"resolution_hours_remaining"`
	ResponseStatus           SLAStatus     `json:"response_status"`
	ResolutionStatus         SLAStatus     `json:"resolution_status"`
	EscalationDue            *time.Time    `json:"escalation_due,omitempty"`
	EscalationTriggered      bool          `json:"escalation_triggered"`
	AutoEscalate             bool          `json:"auto_escalate"`
	NotifyOnRisk             bool          `json:"notify_on_risk"`
	NotifyOnBreach           bool          `json:"notify_on_breach"`
	ComputedAt               time.Time     `json:"computed_at"`
}
