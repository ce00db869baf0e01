package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/clock"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/notification"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

var t0 = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	requests []notification.SendRequest
	err      error
	// disabled mimics a missing or disabled template.
	disabled bool
}

func (f *fakeNotifier) Send(_ context.Context, req notification.SendRequest) (*domain.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.disabled {
		return nil, nil
	}
	f.requests = append(f.requests, req)
	return &domain.Notification{
		ID:         "n-" + req.Recipient,
		TemplateID: req.TemplateID,
		Recipient:  req.Recipient,
		Status:     domain.NotificationSent,
		CaseID:     req.CaseID,
	}, nil
}

type execLog struct {
	records []domain.WorkflowExecution
}

func (l *execLog) RecordExecution(_ context.Context, exec domain.WorkflowExecution) error {
	l.records = append(l.records, exec)
	return nil
}

func newTestEngine(t *testing.T, rules []domain.WorkflowRule) (*Engine, *fakeNotifier, *execLog) {
	t.Helper()
	notifier := &fakeNotifier{}
	log := &execLog{}
	e := NewEngine(Dependencies{
		Notifier:          notifier,
		Assigner:          NewRosterAssigner([]string{"alice", "bob"}, nil),
		Recorder:          log,
		EscalationContact: "duty-manager",
		Clock:             clock.NewFake(t0.Add(5 * time.Hour)),
	})
	require.NoError(t, e.ReplaceRules(rules))
	return e, notifier, log
}

func breachedCase() domain.Case {
	assignee := "alice"
	return domain.Case{
		ID:         "case-1",
		Number:     "CASE-00001",
		Type:       "Security",
		Priority:   domain.CasePriorityCritical,
		Status:     domain.CaseStatusInProgress,
		Title:      "Front door lock broken",
		AssignedTo: &assignee,
		SLAStatus:  domain.SLAStatusBreached,
		SLAMetrics: &domain.SLAMetrics{
			ResponseStatus:   domain.SLAStatusBreached,
			ResolutionStatus: domain.SLAStatusBreached,
			ResolutionDue:    t0.Add(4 * time.Hour),
		},
		CreatedAt: t0,
		UpdatedAt: t0,
	}
}

func TestEvaluate_EscalationIsIdempotent(t *testing.T) {
	e, notifier, log := newTestEngine(t, DefaultRules())

	updated, execs := e.Evaluate(context.Background(), breachedCase(), domain.TriggerSLABreached)
	require.Len(t, execs, 1)
	assert.Equal(t, RuleEscalateBreached, execs[0].RuleID)
	assert.Equal(t, domain.ExecutionSuccess, execs[0].Status)
	assert.Equal(t, []string{"escalation", "notification"}, execs[0].ActionsExecuted)
	assert.True(t, updated.Escalated)
	require.NotNil(t, updated.EscalatedTo)
	assert.Equal(t, "duty-manager", *updated.EscalatedTo)
	assert.NotNil(t, updated.EscalationDate)

	require.Len(t, notifier.requests, 1)
	assert.Equal(t, "duty-manager", notifier.requests[0].Recipient)
	assert.Equal(t, notification.TemplateSLABreached, notifier.requests[0].TemplateID)
	assert.Equal(t, "CASE-00001", notifier.requests[0].Variables["case_number"])

	require.Len(t, updated.Timeline, 2)
	assert.Equal(t, domain.EventEscalated, updated.Timeline[0].Type)
	assert.Equal(t, domain.EventNotificationSent, updated.Timeline[1].Type)
	assert.Equal(t, "workflow:"+RuleEscalateBreached, updated.Timeline[0].Actor)

	again, execs := e.Evaluate(context.Background(), updated, domain.TriggerSLABreached)
	assert.Empty(t, execs)
	assert.Len(t, again.Timeline, 2)
	assert.Len(t, log.records, 1)
}

func TestEvaluate_InputCaseIsNotMutated(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultRules())
	in := breachedCase()

	_, execs := e.Evaluate(context.Background(), in, domain.TriggerSLABreached)
	require.Len(t, execs, 1)
	assert.False(t, in.Escalated)
	assert.Empty(t, in.Timeline)
}

func TestEvaluate_FailingActionAbortsRuleOnly(t *testing.T) {
	rules := []domain.WorkflowRule{
		{
			ID:      "broken",
			Name:    "Broken status change",
			Trigger: domain.TriggerStatusChanged,
			Actions: []domain.ActionSpec{
				{Type: domain.ActionStatusChange, Params: map[string]any{"status": "Pending Review"}},
				{Type: domain.ActionNotification, Params: map[string]any{"template_id": "case_assigned", "recipients": []any{"assignee"}}},
			},
			Enabled: true,
		},
		{
			ID:      "escalate",
			Name:    "Escalate anyway",
			Trigger: domain.TriggerStatusChanged,
			Actions: []domain.ActionSpec{{Type: domain.ActionEscalation, Params: map[string]any{"escalate_to": "ops-lead"}}},
			Enabled: true,
		},
	}
	e, notifier, _ := newTestEngine(t, rules)

	updated, execs := e.Evaluate(context.Background(), breachedCase(), domain.TriggerStatusChanged)
	require.Len(t, execs, 2)

	assert.Equal(t, domain.ExecutionFailed, execs[0].Status)
	assert.Empty(t, execs[0].ActionsExecuted)
	assert.Contains(t, execs[0].ErrorMessage, "Pending Review")
	assert.Empty(t, notifier.requests)

	assert.Equal(t, domain.ExecutionSuccess, execs[1].Status)
	assert.True(t, updated.Escalated)
	assert.Equal(t, domain.CaseStatusInProgress, updated.Status)
}

func TestEvaluate_PartialActionsAreKept(t *testing.T) {
	rules := []domain.WorkflowRule{{
		ID:      "escalate-then-fail",
		Trigger: domain.TriggerSLABreached,
		Actions: []domain.ActionSpec{
			{Type: domain.ActionEscalation},
			{Type: domain.ActionNotification, Params: map[string]any{"template_id": "sla_breached", "recipients": []any{"assignee"}}},
		},
		Enabled: true,
	}}
	e, notifier, _ := newTestEngine(t, rules)
	notifier.err = errors.New("dispatcher offline")

	updated, execs := e.Evaluate(context.Background(), breachedCase(), domain.TriggerSLABreached)
	require.Len(t, execs, 1)
	assert.Equal(t, domain.ExecutionFailed, execs[0].Status)
	assert.Equal(t, []string{"escalation"}, execs[0].ActionsExecuted)
	assert.True(t, updated.Escalated)
	assert.Len(t, updated.Timeline, 1)
}

func TestEvaluate_NonMatchingAndUnevaluableRulesProduceNothing(t *testing.T) {
	rules := []domain.WorkflowRule{
		{
			ID:         "low-only",
			Trigger:    domain.TriggerCaseCreated,
			Conditions: map[string]any{"priority": []any{"Low"}},
			Actions:    []domain.ActionSpec{{Type: domain.ActionEscalation}},
			Enabled:    true,
		},
		{
			ID:         "unknown-field",
			Trigger:    domain.TriggerCaseCreated,
			Conditions: map[string]any{"building_floor": 3},
			Actions:    []domain.ActionSpec{{Type: domain.ActionEscalation}},
			Enabled:    true,
		},
		{
			ID:         "type-mismatch",
			Trigger:    domain.TriggerCaseCreated,
			Conditions: map[string]any{"priority": map[string]any{"gte": 2}},
			Actions:    []domain.ActionSpec{{Type: domain.ActionEscalation}},
			Enabled:    true,
		},
		{
			ID:      "disabled",
			Trigger: domain.TriggerCaseCreated,
			Actions: []domain.ActionSpec{{Type: domain.ActionEscalation}},
			Enabled: false,
		},
	}
	e, _, log := newTestEngine(t, rules)

	updated, execs := e.Evaluate(context.Background(), breachedCase(), domain.TriggerCaseCreated)
	assert.Empty(t, execs)
	assert.Empty(t, log.records)
	assert.False(t, updated.Escalated)
}

func TestEvaluate_RuleWithoutActionsIsSkipped(t *testing.T) {
	rules := []domain.WorkflowRule{{ID: "noop", Trigger: domain.TriggerCaseAssigned, Enabled: true}}
	e, _, _ := newTestEngine(t, rules)

	_, execs := e.Evaluate(context.Background(), breachedCase(), domain.TriggerCaseAssigned)
	require.Len(t, execs, 1)
	assert.Equal(t, domain.ExecutionSkipped, execs[0].Status)
	assert.Empty(t, execs[0].ActionsExecuted)
}

func TestEvaluate_AutoAssignUsesRoster(t *testing.T) {
	e, notifier, _ := newTestEngine(t, DefaultRules())
	c := domain.Case{
		ID:        "case-42",
		Number:    "CASE-00042",
		Type:      "Maintenance",
		Priority:  domain.CasePriorityUrgent,
		Status:    domain.CaseStatusNew,
		CreatedAt: t0,
	}

	updated, execs := e.Evaluate(context.Background(), c, domain.TriggerCaseCreated)
	require.Len(t, execs, 1)
	assert.Equal(t, domain.ExecutionSuccess, execs[0].Status)
	require.NotNil(t, updated.AssignedTo)

	want, err := NewRosterAssigner([]string{"alice", "bob"}, nil).Assign(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, want, *updated.AssignedTo)
	require.Len(t, notifier.requests, 1)
	assert.Equal(t, want, notifier.requests[0].Recipient)
}

func TestEvaluate_AtRiskNoticeIsSentOnce(t *testing.T) {
	e, notifier, _ := newTestEngine(t, DefaultRules())
	c := breachedCase()
	c.SLAStatus = domain.SLAStatusAtRisk

	updated, execs := e.Evaluate(context.Background(), c, domain.TriggerSLAAtRisk)
	require.Len(t, execs, 1)
	assert.True(t, updated.NotifiedAtRisk)
	require.Len(t, notifier.requests, 1)

	_, execs = e.Evaluate(context.Background(), updated, domain.TriggerSLAAtRisk)
	assert.Empty(t, execs, "at-risk notice is sent once")
}

func TestEvaluate_AutoResolveStaleCase(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultRules())
	c := breachedCase()
	c.Status = domain.CaseStatusAwaitingCustomer
	c.Requester = "tenant@example.com"
	c.CreatedAt = t0.Add(-10 * 24 * time.Hour)
	c.Escalated = true

	updated, execs := e.Evaluate(context.Background(), c, domain.TriggerTimeElapsed)
	require.Len(t, execs, 1)
	assert.Equal(t, RuleAutoResolveStale, execs[0].RuleID)
	assert.Equal(t, domain.CaseStatusResolved, updated.Status)
	assert.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, "No customer response for 7 days", updated.ResolutionReason)
}

func TestReplaceRules_InvalidSetKeepsCurrent(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultRules())

	err := e.ReplaceRules([]domain.WorkflowRule{{ID: "bad", Trigger: "on_full_moon", Enabled: true}})
	require.Error(t, err)
	err = e.ReplaceRules([]domain.WorkflowRule{{
		ID:      "bad-action",
		Trigger: domain.TriggerCaseCreated,
		Actions: []domain.ActionSpec{{Type: "teleport"}},
	}})
	require.Error(t, err)
	err = e.ReplaceRules([]domain.WorkflowRule{
		{ID: "dup", Trigger: domain.TriggerCaseCreated},
		{ID: "dup", Trigger: domain.TriggerCaseCreated},
	})
	require.Error(t, err)

	assert.Len(t, e.Rules(), len(DefaultRules()))
}

func TestSetEnabled(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultRules())

	rule, err := e.SetEnabled(RuleEscalateBreached, false)
	require.NoError(t, err)
	assert.False(t, rule.Enabled)

	_, execs := e.Evaluate(context.Background(), breachedCase(), domain.TriggerSLABreached)
	assert.Empty(t, execs)

	_, err = e.SetEnabled("missing", true)
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, 404, domainErr.HTTPStatus)
}

func TestNotifyAction_UnresolvedRecipients(t *testing.T) {
	rules := []domain.WorkflowRule{{
		ID:      "notify-assignee",
		Trigger: domain.TriggerCaseCreated,
		Actions: []domain.ActionSpec{{Type: domain.ActionNotification, Params: map[string]any{
			"template_id": "case_assigned",
			"recipients":  []any{"assignee"},
		}}},
		Enabled: true,
	}}
	c := breachedCase()
	c.AssignedTo = nil

	t.Run("falls back to escalation contact", func(t *testing.T) {
		e, notifier, _ := newTestEngine(t, rules)
		updated, execs := e.Evaluate(context.Background(), c, domain.TriggerCaseCreated)
		require.Len(t, execs, 1)
		assert.Equal(t, domain.ExecutionSuccess, execs[0].Status)
		require.Len(t, notifier.requests, 1)
		assert.Equal(t, "duty-manager", notifier.requests[0].Recipient)
		require.Len(t, updated.Timeline, 1)
		assert.Equal(t, domain.EventNotificationSent, updated.Timeline[0].Type)
	})

	t.Run("fails without a contact", func(t *testing.T) {
		notifier := &fakeNotifier{}
		e := NewEngine(Dependencies{Notifier: notifier, Clock: clock.NewFake(t0)})
		require.NoError(t, e.ReplaceRules(rules))

		_, execs := e.Evaluate(context.Background(), c, domain.TriggerCaseCreated)
		require.Len(t, execs, 1)
		assert.Equal(t, domain.ExecutionFailed, execs[0].Status)
		assert.Empty(t, notifier.requests)
	})
}

func TestNotifyAction_NothingSentLeavesCaseUntouched(t *testing.T) {
	e, notifier, _ := newTestEngine(t, DefaultRules())
	notifier.disabled = true
	c := breachedCase()
	c.SLAStatus = domain.SLAStatusAtRisk

	updated, execs := e.Evaluate(context.Background(), c, domain.TriggerSLAAtRisk)
	require.Len(t, execs, 1)
	assert.Equal(t, domain.ExecutionFailed, execs[0].Status)
	assert.Contains(t, execs[0].ErrorMessage, "nothing sent")
	assert.False(t, updated.NotifiedAtRisk)
	assert.Empty(t, updated.Timeline)
}

func TestRosterAssigner(t *testing.T) {
	a := NewRosterAssigner([]string{"alice"}, map[string][]string{"Security": {"sec-1", "sec-2"}})

	got, err := a.Assign(context.Background(), domain.Case{ID: "x", Type: "Billing"})
	require.NoError(t, err)
	assert.Equal(t, "alice", got)

	got, err = a.Assign(context.Background(), domain.Case{ID: "x", Type: "Security"})
	require.NoError(t, err)
	assert.Contains(t, []string{"sec-1", "sec-2"}, got)

	_, err = NewRosterAssigner(nil, nil).Assign(context.Background(), domain.Case{ID: "x"})
	assert.Error(t, err)
}
