package sla

import "github.com/spec-kit/case-service/internal/domain"

// DefaultConfigurations is the seed table used when the store has no SLA configurations.
func DefaultConfigurations() []domain.SLAConfiguration {
	esc := func(h float64) *float64 { return &h }
	return []domain.SLAConfiguration{
		{CaseType: domain.CaseTypeGeneral, Priority: domain.CasePriorityLow, ResponseTimeHours: 48, ResolutionTimeHours: 168},
		{CaseType: domain.CaseTypeGeneral, Priority: domain.CasePriorityMedium, ResponseTimeHours: 24, ResolutionTimeHours: 72, NotifyOnBreach: true},
		{CaseType: domain.CaseTypeGeneral, Priority: domain.CasePriorityHigh, ResponseTimeHours: 8, ResolutionTimeHours: 48, NotifyOnRisk: true, NotifyOnBreach: true},
		{CaseType: domain.CaseTypeGeneral, Priority: domain.CasePriorityUrgent, ResponseTimeHours: 4, ResolutionTimeHours: 24, NotifyOnRisk: true, NotifyOnBreach: true},
		{CaseType: domain.CaseTypeGeneral, Priority: domain.CasePriorityCritical, ResponseTimeHours: 2, ResolutionTimeHours: 8, EscalationTimeHours: esc(6), AutoEscalate: true, NotifyOnRisk: true, NotifyOnBreach: true},

		{CaseType: "Maintenance", Priority: domain.CasePriorityLow, ResponseTimeHours: 48, ResolutionTimeHours: 240},
		{CaseType: "Maintenance", Priority: domain.CasePriorityMedium, ResponseTimeHours: 24, ResolutionTimeHours: 120, NotifyOnBreach: true},
		{CaseType: "Maintenance", Priority: domain.CasePriorityHigh, ResponseTimeHours: 8, ResolutionTimeHours: 48, NotifyOnRisk: true, NotifyOnBreach: true},
		{CaseType: "Maintenance", Priority: domain.CasePriorityUrgent, ResponseTimeHours: 2, ResolutionTimeHours: 12, EscalationTimeHours: esc(8), AutoEscalate: true, NotifyOnRisk: true, NotifyOnBreach: true},
		{CaseType: "Maintenance", Priority: domain.CasePriorityCritical, ResponseTimeHours: 1, ResolutionTimeHours: 6, EscalationTimeHours: esc(4), AutoEscalate: true, NotifyOnRisk: true, NotifyOnBreach: true},

		{CaseType: "Complaint", Priority: domain.CasePriorityLow, ResponseTimeHours: 24, ResolutionTimeHours: 120},
		{CaseType: "Complaint", Priority: domain.CasePriorityMedium, ResponseTimeHours: 12, ResolutionTimeHours: 72, NotifyOnBreach: true},
		{CaseType: "Complaint", Priority: domain.CasePriorityHigh, ResponseTimeHours: 4, ResolutionTimeHours: 24, NotifyOnRisk: true, NotifyOnBreach: true},
		{CaseType: "Complaint", Priority: domain.CasePriorityUrgent, ResponseTimeHours: 2, ResolutionTimeHours: 12, NotifyOnRisk: true, NotifyOnBreach: true},

		{CaseType: "Security", Priority: domain.CasePriorityMedium, ResponseTimeHours: 4, ResolutionTimeHours: 24, NotifyOnBreach: true},
		{CaseType: "Security", Priority: domain.CasePriorityHigh, ResponseTimeHours: 2, ResolutionTimeHours: 12, NotifyOnRisk: true, NotifyOnBreach: true},
		{CaseType: "Security", Priority: domain.CasePriorityUrgent, ResponseTimeHours: 1, ResolutionTimeHours: 8, NotifyOnRisk: true, NotifyOnBreach: true},
		{CaseType: "Security", Priority: domain.CasePriorityCritical, ResponseTimeHours: 1, ResolutionTimeHours: 4, AutoEscalate: true, NotifyOnRisk: true, NotifyOnBreach: true},

		{CaseType: "Billing", Priority: domain.CasePriorityMedium, ResponseTimeHours: 24, ResolutionTimeHours: 96},
		{CaseType: "Billing", Priority: domain.CasePriorityHigh, ResponseTimeHours: 8, ResolutionTimeHours: 48, NotifyOnBreach: true},

		{CaseType: "Lease", Priority: domain.CasePriorityMedium, ResponseTimeHours: 24, ResolutionTimeHours: 120},
	}
}
