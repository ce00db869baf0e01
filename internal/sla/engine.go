package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/case-service/internal/domain"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// AtRiskFraction is the share of the total window below which a deadline is At Risk.
const AtRiskFraction = 0.25

type configKey struct {
	caseType string
	priority domain.CasePriority
}

// Engine computes SLA metrics from an immutable configuration table.
type Engine struct {
	table map[configKey]domain.SLAConfiguration
}

// NewEngine indexes configs by (case type, priority). Later duplicates win.
func NewEngine(configs []domain.SLAConfiguration) *Engine {
	table := make(map[configKey]domain.SLAConfiguration, len(configs))
	for _, cfg := range configs {
		table[configKey{caseType: cfg.CaseType, priority: cfg.Priority}] = cfg
	}
	return &Engine{table: table}
}

// Lookup resolves the configuration for a case type and priority using the fallback chain
// (type, priority) → (General, priority) → (type, Medium) → (General, Medium).
func (e *Engine) Lookup(caseType string, priority domain.CasePriority) (domain.SLAConfiguration, bool) {
	candidates := [...]configKey{
		{caseType, priority},
		{domain.CaseTypeGeneral, priority},
		{caseType, domain.CasePriorityMedium},
		{domain.CaseTypeGeneral, domain.CasePriorityMedium},
	}
	for _, key := range candidates {
		if cfg, ok := e.table[key]; ok {
			return cfg, true
		}
	}
	return domain.SLAConfiguration{}, false
}

// Configurations returns a copy of the table contents.
func (e *Engine) Configurations() []domain.SLAConfiguration {
	out := make([]domain.SLAConfiguration, 0, len(e.table))
	for _, cfg := range e.table {
		out = append(out, cfg)
	}
	return out
}

// ComputeMetrics derives due dates, remaining time and status for c at now.
// It returns an error wrapping ErrConfigurationMissing when no configuration applies.
func (e *Engine) ComputeMetrics(c domain.Case, now time.Time) (domain.SLAMetrics, error) {
	cfg, ok := e.Lookup(c.Type, c.Priority)
	if !ok {
		return domain.SLAMetrics{}, fmt.Errorf("case type %q priority %q: %w", c.Type, c.Priority, apperrors.ErrConfigurationMissing)
	}

	responseWindow := hours(cfg.ResponseTimeHours)
	resolutionWindow := hours(cfg.ResolutionTimeHours)

	m := domain.SLAMetrics{
		CaseType:       cfg.CaseType,
		Priority:       cfg.Priority,
		ResponseDue:    c.CreatedAt.Add(responseWindow),
		ResolutionDue:  c.CreatedAt.Add(resolutionWindow),
		AutoEscalate:   cfg.AutoEscalate,
		NotifyOnRisk:   cfg.NotifyOnRisk,
		NotifyOnBreach: cfg.NotifyOnBreach,
		ComputedAt:     now,
	}
	m.ResponseRemaining = m.ResponseDue.Sub(now)
	m.ResolutionRemaining = m.ResolutionDue.Sub(now)
	m.ResponseHoursRemaining = m.ResponseRemaining.Hours()
	m.ResolutionHoursRemaining = m.ResolutionRemaining.Hours()
	m.ResponseStatus = Status(m.ResponseRemaining, responseWindow)
	m.ResolutionStatus = Status(m.ResolutionRemaining, resolutionWindow)

	if cfg.EscalationTimeHours != nil {
		due := c.CreatedAt.Add(hours(*cfg.EscalationTimeHours))
		m.EscalationDue = &due
		m.EscalationTriggered = now.After(due) && !c.Escalated
	}
	return m, nil
}

// Status classifies a deadline given the time left and the full window.
func Status(remaining, window time.Duration) domain.SLAStatus {
	if remaining < 0 {
		return domain.SLAStatusBreached
	}
	if float64(remaining) < AtRiskFraction*float64(window) {
		return domain.SLAStatusAtRisk
	}
	return domain.SLAStatusOnTime
}

// OverallStatus picks the case-level status. The resolution deadline is primary; the
// response deadline only counts while the case is still New and nobody has picked it up.
func OverallStatus(c domain.Case, m domain.SLAMetrics) domain.SLAStatus {
	awaitingResponse := c.Status == domain.CaseStatusNew && c.AssignedTo == nil
	if awaitingResponse && m.ResponseStatus.Severity() > m.ResolutionStatus.Severity() {
		return m.ResponseStatus
	}
	return m.ResolutionStatus
}

func hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}
