package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/domain"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

func TestConditions(t *testing.T) {
	assignee := "alice"
	view := CaseView{
		Priority:          domain.CasePriorityHigh,
		Status:            domain.CaseStatusAwaitingCustomer,
		CaseType:          "Complaint",
		SLAStatus:         domain.SLAStatusAtRisk,
		DaysSinceActivity: 8.5,
		Escalated:         false,
	}
	assigned := view
	assigned.AssignedTo = &assignee

	tests := []struct {
		name  string
		conds map[string]any
		view  CaseView
		want  bool
	}{
		{"membership hit", map[string]any{"priority": []any{"High", "Urgent"}}, view, true},
		{"membership miss", map[string]any{"priority": []string{"Low"}}, view, false},
		{"null holds", map[string]any{"assigned_to": nil}, view, true},
		{"null fails", map[string]any{"assigned_to": nil}, assigned, false},
		{"not null", map[string]any{"assigned_to": map[string]any{"not_null": true}}, assigned, true},
		{"not null on unset", map[string]any{"assigned_to": map[string]any{"not_null": true}}, view, false},
		{"string equality", map[string]any{"sla_status": "At Risk"}, view, true},
		{"bool equality", map[string]any{"escalated": false}, view, true},
		{"threshold float", map[string]any{"days_since_activity": map[string]any{"gte": 7.0}}, view, true},
		{"threshold int", map[string]any{"days_since_activity": map[string]any{"gte": 9}}, view, false},
		{"range", map[string]any{"days_since_activity": map[string]any{"gt": 8, "lt": 9}}, view, true},
		{"conjunction", map[string]any{"case_type": "Complaint", "escalated": true}, view, false},
		{"empty conditions", map[string]any{}, view, true},
		{"null status never equals", map[string]any{"response_status": "On Time"}, view, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conds, err := compileConditions(tt.conds)
			require.NoError(t, err)
			got, err := evaluateConditions(conds, tt.view)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConditions_EvaluationErrors(t *testing.T) {
	tests := map[string]map[string]any{
		"unknown field":     {"floor": 2},
		"string vs bool":    {"escalated": "yes"},
		"threshold on text": {"priority": map[string]any{"gte": 1}},
		"membership kinds":  {"escalated": []any{"true"}},
		"number vs string":  {"status": 3},
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			conds, err := compileConditions(raw)
			require.NoError(t, err)
			_, err = evaluateConditions(conds, CaseView{Status: domain.CaseStatusNew, Priority: domain.CasePriorityLow})
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrRuleEvaluation))
		})
	}
}

func TestConditions_CompileErrors(t *testing.T) {
	tests := map[string]map[string]any{
		"unknown operator":  {"days_since_activity": map[string]any{"about": 3}},
		"non numeric bound": {"days_since_activity": map[string]any{"gte": "seven"}},
		"not_null mixed":    {"assigned_to": map[string]any{"not_null": true, "gte": 1}},
		"not_null type":     {"assigned_to": map[string]any{"not_null": "yes"}},
		"empty object":      {"assigned_to": map[string]any{}},
		"nested list":       {"priority": []any{[]any{"High"}}},
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := compileConditions(raw)
			assert.Error(t, err)
		})
	}
}

func TestNewCaseView(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := domain.Case{
		Priority:  domain.CasePriorityMedium,
		Status:    domain.CaseStatusInProgress,
		CreatedAt: created,
		Timeline: []domain.TimelineEvent{
			{Type: domain.EventCaseCreated, Timestamp: created},
			{Type: domain.EventStatusChanged, Timestamp: created.Add(48 * time.Hour)},
		},
		SLAMetrics: &domain.SLAMetrics{EscalationTriggered: true, ResponseStatus: domain.SLAStatusBreached},
	}

	v := NewCaseView(c, created.Add(5*24*time.Hour))
	assert.InDelta(t, 3.0, v.DaysSinceActivity, 1e-9)
	assert.InDelta(t, 120.0, v.HoursSinceCreated, 1e-9)
	assert.True(t, v.EscalationTriggered)

	got, ok := v.Field(FieldResponseStatus)
	assert.True(t, ok)
	assert.Equal(t, "Breached", got)

	got, ok = v.Field(FieldSLAStatus)
	assert.True(t, ok)
	assert.Nil(t, got)
}
