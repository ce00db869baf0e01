package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/notification"
)

// Notifier is the dispatcher surface used by notification actions.
type Notifier interface {
	Send(ctx context.Context, req notification.SendRequest) (*domain.Notification, error)
}

// Assigner resolves "auto" assignments.
type Assigner interface {
	Assign(ctx context.Context, c domain.Case) (string, error)
}

// Env carries what an action may need beyond the case itself.
type Env struct {
	Now               time.Time
	Rule              domain.WorkflowRule
	Notifier          Notifier
	Assigner          Assigner
	EscalationContact string
}

func (e *Env) actor() string {
	return "workflow:" + e.Rule.ID
}

// Action is one step of a rule. The set of actions is closed to this package.
type Action interface {
	Type() domain.ActionType
	// Execute returns the mutated case and the timeline event describing the change.
	// c is owned by the action; on error the caller discards it.
	Execute(ctx context.Context, env *Env, c domain.Case) (domain.Case, domain.TimelineEvent, error)
	isAction()
}

// AssignAction sets the assignee. Assignee "auto" defers to the Assigner.
type AssignAction struct {
	Assignee string
}

// StatusChangeAction moves the case to Status.
type StatusChangeAction struct {
	Status domain.CaseStatus
}

// EscalateAction flags the case as escalated to EscalateTo, or to the configured contact.
type EscalateAction struct {
	EscalateTo string
}

// NotifyAction sends TemplateID to each recipient. The recipients "assignee",
// "escalated_to" and "requester" resolve against the case; when none resolves the
// escalation contact is notified instead.
type NotifyAction struct {
	TemplateID     string
	Recipients     []string
	Message        string
	Priority       *domain.NotificationPriority
	MarkAtRiskSent bool
}

// AutoResolveAction resolves the case with Reason.
type AutoResolveAction struct {
	Reason string
}

func (AssignAction) isAction()       {}
func (StatusChangeAction) isAction() {}
func (EscalateAction) isAction()     {}
func (NotifyAction) isAction()       {}
func (AutoResolveAction) isAction()  {}

func (AssignAction) Type() domain.ActionType       { return domain.ActionAssignment }
func (StatusChangeAction) Type() domain.ActionType { return domain.ActionStatusChange }
func (EscalateAction) Type() domain.ActionType     { return domain.ActionEscalation }
func (NotifyAction) Type() domain.ActionType       { return domain.ActionNotification }
func (AutoResolveAction) Type() domain.ActionType  { return domain.ActionAutoResolve }

const autoAssignee = "auto"

func (a AssignAction) Execute(ctx context.Context, env *Env, c domain.Case) (domain.Case, domain.TimelineEvent, error) {
	assignee := a.Assignee
	if assignee == autoAssignee {
		if env.Assigner == nil {
			return c, domain.TimelineEvent{}, errors.New("no assignment policy configured")
		}
		resolved, err := env.Assigner.Assign(ctx, c)
		if err != nil {
			return c, domain.TimelineEvent{}, fmt.Errorf("auto assign: %w", err)
		}
		assignee = resolved
	}
	if assignee == "" {
		return c, domain.TimelineEvent{}, errors.New("empty assignee")
	}

	previous := c.Assignee()
	c.AssignedTo = &assignee
	return c, domain.TimelineEvent{
		Type:        domain.EventAssigned,
		Description: fmt.Sprintf("Assigned to %s", assignee),
		Metadata:    map[string]any{"from": previous, "to": assignee},
	}, nil
}

func (a StatusChangeAction) Execute(_ context.Context, env *Env, c domain.Case) (domain.Case, domain.TimelineEvent, error) {
	if !a.Status.Valid() {
		return c, domain.TimelineEvent{}, fmt.Errorf("invalid status %q", a.Status)
	}
	if c.Status == a.Status {
		return c, domain.TimelineEvent{}, fmt.Errorf("case already in status %q", a.Status)
	}

	old := c.Status
	c.Status = a.Status
	if a.Status == domain.CaseStatusResolved && c.ResolvedAt == nil {
		now := env.Now
		c.ResolvedAt = &now
	}
	return c, domain.TimelineEvent{
		Type:        domain.EventStatusChanged,
		Description: fmt.Sprintf("Status changed from %s to %s", old, a.Status),
		Metadata:    map[string]any{"from": string(old), "to": string(a.Status)},
	}, nil
}

func (a EscalateAction) Execute(_ context.Context, env *Env, c domain.Case) (domain.Case, domain.TimelineEvent, error) {
	if c.Escalated {
		return c, domain.TimelineEvent{}, errors.New("case already escalated")
	}
	target := a.EscalateTo
	if target == "" {
		target = env.EscalationContact
	}
	if target == "" {
		return c, domain.TimelineEvent{}, errors.New("no escalation contact")
	}

	now := env.Now
	c.Escalated = true
	c.EscalationDate = &now
	c.EscalatedTo = &target

	md := map[string]any{"escalated_to": target}
	if c.SLAStatus != "" {
		md["sla_status"] = string(c.SLAStatus)
	}
	return c, domain.TimelineEvent{
		Type:        domain.EventEscalated,
		Description: fmt.Sprintf("Escalated to %s", target),
		Metadata:    md,
	}, nil
}

func (a NotifyAction) Execute(ctx context.Context, env *Env, c domain.Case) (domain.Case, domain.TimelineEvent, error) {
	if env.Notifier == nil {
		return c, domain.TimelineEvent{}, errors.New("notification dispatcher unavailable")
	}
	recipients := a.resolveRecipients(c)
	if len(recipients) == 0 && env.EscalationContact != "" {
		recipients = []string{env.EscalationContact}
	}
	if len(recipients) == 0 {
		return c, domain.TimelineEvent{}, fmt.Errorf("no recipients resolved from %v", a.Recipients)
	}

	vars := templateVariables(c, env, a.Message)
	ids := make([]string, 0, len(recipients))
	failed := 0
	for _, recipient := range recipients {
		n, err := env.Notifier.Send(ctx, notification.SendRequest{
			TemplateID:       a.TemplateID,
			Recipient:        recipient,
			Variables:        vars,
			CaseID:           c.ID,
			PriorityOverride: a.Priority,
		})
		if err != nil {
			return c, domain.TimelineEvent{}, fmt.Errorf("send %s to %s: %w", a.TemplateID, recipient, err)
		}
		if n == nil {
			continue
		}
		ids = append(ids, n.ID)
		if n.Status == domain.NotificationFailed {
			failed++
		}
	}

	if len(ids) == 0 {
		return c, domain.TimelineEvent{}, fmt.Errorf("template %s is unavailable, nothing sent", a.TemplateID)
	}
	if a.MarkAtRiskSent {
		c.NotifiedAtRisk = true
	}
	return c, domain.TimelineEvent{
		Type:        domain.EventNotificationSent,
		Description: fmt.Sprintf("Notification %s sent to %s", a.TemplateID, strings.Join(recipients, ", ")),
		Metadata: map[string]any{
			"template_id":      a.TemplateID,
			"recipients":       recipients,
			"notification_ids": ids,
			"failed":           failed,
		},
	}, nil
}

func (a NotifyAction) resolveRecipients(c domain.Case) []string {
	seen := make(map[string]struct{}, len(a.Recipients))
	out := make([]string, 0, len(a.Recipients))
	for _, r := range a.Recipients {
		switch r {
		case "assignee":
			r = c.Assignee()
		case "escalated_to":
			if c.EscalatedTo == nil {
				r = ""
			} else {
				r = *c.EscalatedTo
			}
		case "requester":
			r = c.Requester
		}
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

func (a AutoResolveAction) Execute(_ context.Context, env *Env, c domain.Case) (domain.Case, domain.TimelineEvent, error) {
	if !c.Status.Open() {
		return c, domain.TimelineEvent{}, fmt.Errorf("case already %s", c.Status)
	}
	reason := a.Reason
	if reason == "" {
		reason = "Automatically resolved by workflow"
	}

	old := c.Status
	now := env.Now
	c.Status = domain.CaseStatusResolved
	c.ResolvedAt = &now
	c.ResolutionReason = reason
	return c, domain.TimelineEvent{
		Type:        domain.EventAutoResolved,
		Description: reason,
		Metadata:    map[string]any{"from": string(old), "to": string(domain.CaseStatusResolved), "rule": env.Rule.Name},
	}, nil
}

func templateVariables(c domain.Case, env *Env, message string) map[string]string {
	vars := map[string]string{
		"case_id":     c.ID,
		"case_number": c.Number,
		"case_title":  c.Title,
		"case_type":   c.Type,
		"priority":    string(c.Priority),
		"status":      string(c.Status),
		"assigned_to": c.Assignee(),
		"requester":   c.Requester,
		"sla_status":  string(c.SLAStatus),
		"message":     message,
		"rule_name":   env.Rule.Name,
	}
	if c.EscalatedTo != nil {
		vars["escalated_to"] = *c.EscalatedTo
	}
	if m := c.SLAMetrics; m != nil {
		vars["resolution_due"] = m.ResolutionDue.Format(time.RFC3339)
		vars["response_due"] = m.ResponseDue.Format(time.RFC3339)
		vars["hours_remaining"] = strconv.FormatFloat(m.ResolutionHoursRemaining, 'f', 1, 64)
	}
	return vars
}

// compileAction validates an action spec and builds its typed form.
func compileAction(spec domain.ActionSpec) (Action, error) {
	p := params(spec.Params)
	switch spec.Type {
	case domain.ActionAssignment:
		assignee, err := p.requiredString("assignee")
		if err != nil {
			return nil, err
		}
		return AssignAction{Assignee: assignee}, nil
	case domain.ActionStatusChange:
		status, err := p.requiredString("status")
		if err != nil {
			return nil, err
		}
		return StatusChangeAction{Status: domain.CaseStatus(status)}, nil
	case domain.ActionEscalation:
		to, err := p.optionalString("escalate_to")
		if err != nil {
			return nil, err
		}
		return EscalateAction{EscalateTo: to}, nil
	case domain.ActionNotification:
		return compileNotify(p)
	case domain.ActionAutoResolve:
		reason, err := p.optionalString("reason")
		if err != nil {
			return nil, err
		}
		return AutoResolveAction{Reason: reason}, nil
	}
	return nil, fmt.Errorf("unknown action type %q", spec.Type)
}

func compileNotify(p params) (Action, error) {
	tpl, err := p.requiredString("template_id")
	if err != nil {
		return nil, err
	}
	recipients, err := p.stringList("recipients")
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, errors.New("notification needs recipients")
	}
	message, err := p.optionalString("message")
	if err != nil {
		return nil, err
	}
	a := NotifyAction{TemplateID: tpl, Recipients: recipients, Message: message}
	if raw, err := p.optionalString("priority"); err != nil {
		return nil, err
	} else if raw != "" {
		prio := domain.NotificationPriority(raw)
		a.Priority = &prio
	}
	if v, ok := p["mark_notified_at_risk"]; ok {
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("mark_notified_at_risk must be a boolean, got %T", v)
		}
		a.MarkAtRiskSent = b
	}
	return a, nil
}

type params map[string]any

func (p params) optionalString(key string) (string, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %q must be a string, got %T", key, v)
	}
	return s, nil
}

func (p params) requiredString(key string) (string, error) {
	s, err := p.optionalString(key)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("param %q is required", key)
	}
	return s, nil
}

func (p params) stringList(key string) ([]string, error) {
	switch v := p[key].(type) {
	case nil:
		return nil, nil
	case string:
		return []string{v}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("param %q must hold strings, got %T", key, item)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("param %q must be a list, got %T", key, v)
	}
}
