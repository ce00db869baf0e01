package sla

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/domain"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func TestComputeMetrics_ComplaintHighBoundaries(t *testing.T) {
	engine := NewEngine(DefaultConfigurations())
	c := domain.Case{ID: "c1", Type: "Complaint", Priority: domain.CasePriorityHigh, CreatedAt: t0}

	testCases := []struct {
		name    string
		elapsed time.Duration
		want    domain.SLAStatus
	}{
		{name: "fresh case", elapsed: 0, want: domain.SLAStatusOnTime},
		{name: "exactly six hours left", elapsed: 18 * time.Hour, want: domain.SLAStatusOnTime},
		{name: "just under six hours left", elapsed: 18*time.Hour + time.Second, want: domain.SLAStatusAtRisk},
		{name: "due now", elapsed: 24 * time.Hour, want: domain.SLAStatusAtRisk},
		{name: "one second late", elapsed: 24*time.Hour + time.Second, want: domain.SLAStatusBreached},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := engine.ComputeMetrics(c, t0.Add(tc.elapsed))
			require.NoError(t, err)
			assert.Equal(t, t0.Add(24*time.Hour), m.ResolutionDue)
			assert.Equal(t, t0.Add(4*time.Hour), m.ResponseDue)
			assert.Equal(t, tc.want, m.ResolutionStatus)
		})
	}
}

func TestComputeMetrics_Idempotent(t *testing.T) {
	engine := NewEngine(DefaultConfigurations())
	c := domain.Case{ID: "c1", Type: "Maintenance", Priority: domain.CasePriorityUrgent, CreatedAt: t0}
	now := t0.Add(9 * time.Hour)

	first, err := engine.ComputeMetrics(c, now)
	require.NoError(t, err)
	second, err := engine.ComputeMetrics(c, now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestLookup_FallbackChain(t *testing.T) {
	configs := []domain.SLAConfiguration{
		{CaseType: domain.CaseTypeGeneral, Priority: domain.CasePriorityHigh, ResponseTimeHours: 2, ResolutionTimeHours: 20},
		{CaseType: "Parking", Priority: domain.CasePriorityMedium, ResponseTimeHours: 3, ResolutionTimeHours: 30},
		{CaseType: domain.CaseTypeGeneral, Priority: domain.CasePriorityMedium, ResponseTimeHours: 4, ResolutionTimeHours: 40},
		{CaseType: "Parking", Priority: domain.CasePriorityUrgent, ResponseTimeHours: 1, ResolutionTimeHours: 10},
	}
	engine := NewEngine(configs)

	testCases := []struct {
		name       string
		caseType   string
		priority   domain.CasePriority
		wantResHrs float64
	}{
		{name: "exact match", caseType: "Parking", priority: domain.CasePriorityUrgent, wantResHrs: 10},
		{name: "general with same priority", caseType: "Parking", priority: domain.CasePriorityHigh, wantResHrs: 20},
		{name: "same type medium", caseType: "Parking", priority: domain.CasePriorityLow, wantResHrs: 30},
		{name: "general medium", caseType: "Noise", priority: domain.CasePriorityLow, wantResHrs: 40},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, ok := engine.Lookup(tc.caseType, tc.priority)
			require.True(t, ok)
			assert.Equal(t, tc.wantResHrs, cfg.ResolutionTimeHours)
		})
	}
}

func TestComputeMetrics_ConfigurationMissing(t *testing.T) {
	engine := NewEngine([]domain.SLAConfiguration{
		{CaseType: "Billing", Priority: domain.CasePriorityHigh, ResponseTimeHours: 1, ResolutionTimeHours: 2},
	})

	_, err := engine.ComputeMetrics(domain.Case{Type: "Lease", Priority: domain.CasePriorityLow, CreatedAt: t0}, t0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConfigurationMissing))
}

func TestComputeMetrics_EscalationFlag(t *testing.T) {
	engine := NewEngine(DefaultConfigurations())
	c := domain.Case{Type: "Maintenance", Priority: domain.CasePriorityCritical, CreatedAt: t0}

	m, err := engine.ComputeMetrics(c, t0.Add(4*time.Hour))
	require.NoError(t, err)
	assert.False(t, m.EscalationTriggered, "escalation window is exclusive")
	require.NotNil(t, m.EscalationDue)
	assert.Equal(t, t0.Add(4*time.Hour), *m.EscalationDue)

	m, err = engine.ComputeMetrics(c, t0.Add(4*time.Hour+time.Minute))
	require.NoError(t, err)
	assert.True(t, m.EscalationTriggered)

	c.Escalated = true
	m, err = engine.ComputeMetrics(c, t0.Add(5*time.Hour))
	require.NoError(t, err)
	assert.False(t, m.EscalationTriggered)
}

func TestComputeMetrics_SecurityCriticalTimeline(t *testing.T) {
	engine := NewEngine(DefaultConfigurations())
	c := domain.Case{Type: "Security", Priority: domain.CasePriorityCritical, CreatedAt: t0}

	m, err := engine.ComputeMetrics(c, t0.Add(3*time.Hour+30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.SLAStatusAtRisk, m.ResolutionStatus)
	assert.Equal(t, domain.SLAStatusBreached, m.ResponseStatus)
	assert.InDelta(t, 0.5, m.ResolutionHoursRemaining, 1e-9)

	m, err = engine.ComputeMetrics(c, t0.Add(4*time.Hour+time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.SLAStatusBreached, m.ResolutionStatus)
}

func TestOverallStatus(t *testing.T) {
	m := domain.SLAMetrics{ResponseStatus: domain.SLAStatusBreached, ResolutionStatus: domain.SLAStatusOnTime}
	assignee := "dana"

	assert.Equal(t, domain.SLAStatusBreached, OverallStatus(domain.Case{Status: domain.CaseStatusNew}, m))
	assert.Equal(t, domain.SLAStatusOnTime, OverallStatus(domain.Case{Status: domain.CaseStatusNew, AssignedTo: &assignee}, m))
	assert.Equal(t, domain.SLAStatusOnTime, OverallStatus(domain.Case{Status: domain.CaseStatusInProgress}, m))
}
