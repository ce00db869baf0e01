package domain

import "time"

// CaseStatus enumerates lifecycle states for cases.
type CaseStatus string

const (
	CaseStatusNew              CaseStatus = "New"
	CaseStatusInProgress       CaseStatus = "In Progress"
	CaseStatusAwaitingCustomer CaseStatus = "Awaiting Customer"
	CaseStatusAwaitingVendor   CaseStatus = "Awaiting Vendor"
	CaseStatusResolved         CaseStatus = "Resolved"
	CaseStatusClosed           CaseStatus = "Closed"
)

// Valid reports whether s is a known status.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusNew, CaseStatusInProgress, CaseStatusAwaitingCustomer,
		CaseStatusAwaitingVendor, CaseStatusResolved, CaseStatusClosed:
		return true
	}
	return false
}

// Open reports whether the case still runs against its SLA.
func (s CaseStatus) Open() bool {
	return s != CaseStatusResolved && s != CaseStatusClosed
}

// CasePriority enumerates SLA urgency.
type CasePriority string

const (
	CasePriorityLow      CasePriority = "Low"
	CasePriorityMedium   CasePriority = "Medium"
	CasePriorityHigh     CasePriority = "High"
	CasePriorityUrgent   CasePriority = "Urgent"
	CasePriorityCritical CasePriority = "Critical"
)

// Valid reports whether p is a known priority.
func (p CasePriority) Valid() bool {
	switch p {
	case CasePriorityLow, CasePriorityMedium, CasePriorityHigh, CasePriorityUrgent, CasePriorityCritical:
		return true
	}
	return false
}

// CaseTypeGeneral is the fallback case type for SLA lookups.
const CaseTypeGeneral = "General"

// Case is the aggregate for support requests.
type Case struct {
	ID               string          `json:"id"`
	Number           string          `json:"case_number"`
	Type             string          `json:"case_type"`
	Priority         CasePriority    `json:"priority"`
	Status           CaseStatus      `json:"status"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	Requester        string          `json:"requester,omitempty"`
	Property         string          `json:"property,omitempty"`
	AssignedTo       *string         `json:"assigned_to"`
	Escalated        bool            `json:"escalated"`
	EscalationDate   *time.Time      `json:"escalation_date,omitempty"`
	EscalatedTo      *string         `json:"escalated_to,omitempty"`
	NotifiedAtRisk   bool            `json:"notified_at_risk"`
	ResolvedAt       *time.Time      `json:"resolved_at,omitempty"`
	ResolutionReason string          `json:"resolution_reason,omitempty"`
	SLAMetrics       *SLAMetrics     `json:"sla_metrics,omitempty"`
	SLAStatus        SLAStatus       `json:"sla_status,omitempty"`
	Timeline         []TimelineEvent `json:"timeline"`
	Version          int64           `json:"version"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Clone returns a copy that shares no mutable state with c.
func (c Case) Clone() Case {
	out := c
	out.AssignedTo = cloneString(c.AssignedTo)
	out.EscalatedTo = cloneString(c.EscalatedTo)
	out.EscalationDate = cloneTime(c.EscalationDate)
	out.ResolvedAt = cloneTime(c.ResolvedAt)
	if c.SLAMetrics != nil {
		m := *c.SLAMetrics
		m.EscalationDue = cloneTime(c.SLAMetrics.EscalationDue)
		out.SLAMetrics = &m
	}
	if c.Timeline != nil {
		out.Timeline = make([]TimelineEvent, len(c.Timeline))
		for i, ev := range c.Timeline {
			out.Timeline[i] = ev.clone()
		}
	}
	return out
}

// LastActivityAt is the timestamp of the newest timeline event, falling back to CreatedAt.
func (c Case) LastActivityAt() time.Time {
	last := c.CreatedAt
	for _, ev := range c.Timeline {
		if ev.Timestamp.After(last) {
			last = ev.Timestamp
		}
	}
	return last
}

// Assignee returns the assignee or "".
func (c Case) Assignee() string {
	if c.AssignedTo == nil {
		return ""
	}
	return *c.AssignedTo
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
