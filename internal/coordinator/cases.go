package coordinator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/sla"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// CreateCaseInput carries the fields a caller may set on a new case.
type CreateCaseInput struct {
	Type        string
	Priority    domain.CasePriority
	Title       string
	Description string
	Requester   string
	Property    string
	AssignedTo  string
	Actor       string
}

// AssignInput assigns a case. ExpectedVersion > 0 enables the optimistic version check.
type AssignInput struct {
	Assignee        string
	Actor           string
	ExpectedVersion int64
}

// StatusInput moves a case to another status.
type StatusInput struct {
	Status          domain.CaseStatus
	Reason          string
	Actor           string
	ExpectedVersion int64
}

// ReplyInput records a message from the customer.
type ReplyInput struct {
	Message         string
	Actor           string
	ExpectedVersion int64
}

// CaseFilter narrows ListCases. Zero fields match everything.
type CaseFilter struct {
	Status     domain.CaseStatus
	Priority   domain.CasePriority
	Type       string
	AssignedTo string
	SLAStatus  domain.SLAStatus
	Escalated  *bool
}

// CaseStats aggregates the case collection.
type CaseStats struct {
	Total       int                         `json:"total"`
	Open        int                         `json:"open"`
	Unassigned  int                         `json:"unassigned"`
	Escalated   int                         `json:"escalated"`
	ByStatus    map[domain.CaseStatus]int   `json:"by_status"`
	ByPriority  map[domain.CasePriority]int `json:"by_priority"`
	BySLAStatus map[string]int              `json:"by_sla_status"`
	GeneratedAt time.Time                   `json:"generated_at"`
}

// CheckResult summarizes one SLA sweep.
type CheckResult struct {
	Checked    int                        `json:"checked"`
	Updated    int                        `json:"updated"`
	Executions []domain.WorkflowExecution `json:"executions"`
}

const slaExempt = "not_applicable"

// CreateCase validates in, stores a new case and fires case_created rules.
func (co *Coordinator) CreateCase(ctx context.Context, in CreateCaseInput) (domain.Case, []domain.WorkflowExecution, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Case{}, nil, apperrors.NewValidationError("title is required", nil)
	}
	if !in.Priority.Valid() {
		return domain.Case{}, nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": in.Priority})
	}
	caseType := strings.TrimSpace(in.Type)
	if caseType == "" {
		caseType = domain.CaseTypeGeneral
	}
	actor := actorOrSystem(in.Actor)

	co.mu.Lock()
	defer co.mu.Unlock()

	cases, err := co.loadCases(ctx)
	if err != nil {
		return domain.Case{}, nil, err
	}

	now := co.clock.Now()
	c := domain.Case{
		ID:          uuid.NewString(),
		Number:      fmt.Sprintf("CASE-%05d", len(cases)+1),
		Type:        caseType,
		Priority:    in.Priority,
		Status:      domain.CaseStatusNew,
		Title:       title,
		Description: in.Description,
		Requester:   strings.TrimSpace(in.Requester),
		Property:    in.Property,
		CreatedAt:   now,
		UpdatedAt:   now,
		Timeline:    []domain.TimelineEvent{newEvent(domain.EventCaseCreated, now, actor, "Case created", nil)},
	}
	if assignee := strings.TrimSpace(in.AssignedTo); assignee != "" {
		c.AssignedTo = &assignee
		c.Timeline = append(c.Timeline, newEvent(domain.EventAssigned, now, actor,
			"Assigned to "+assignee, map[string]any{"assigned_to": assignee}))
	}

	created, execs, err := co.Apply(ctx, c, domain.TriggerCaseCreated, nil)
	if err != nil {
		return domain.Case{}, nil, err
	}
	created.Version = 1
	created.UpdatedAt = co.clock.Now()

	if err := co.saveCases(ctx, append(cases, created)); err != nil {
		return domain.Case{}, execs, err
	}
	co.logger.Info("case created",
		zap.String("case_id", created.ID),
		zap.String("case_number", created.Number),
		zap.String("sla_status", string(created.SLAStatus)),
		zap.Int("executions", len(execs)))
	co.publish(ctx, nil, created, domain.TriggerCaseCreated, actor, execs)
	return created, execs, nil
}

// AssignCase sets the assignee and fires case_assigned rules.
func (co *Coordinator) AssignCase(ctx context.Context, id string, in AssignInput) (domain.Case, []domain.WorkflowExecution, error) {
	assignee := strings.TrimSpace(in.Assignee)
	if assignee == "" {
		return domain.Case{}, nil, apperrors.NewValidationError("assignee is required", nil)
	}
	actor := actorOrSystem(in.Actor)
	return co.update(ctx, id, in.ExpectedVersion, domain.TriggerCaseAssigned, actor, func(c *domain.Case) error {
		previous := c.Assignee()
		if previous == assignee {
			return apperrors.NewConflict("case already assigned to "+assignee, map[string]any{"case_id": c.ID})
		}
		c.AssignedTo = &assignee
		c.Timeline = append(c.Timeline, newEvent(domain.EventAssigned, co.clock.Now(), actor,
			"Assigned to "+assignee, map[string]any{"assigned_to": assignee, "previous": previous}))
		return nil
	})
}

// ChangeStatus moves the case to in.Status and fires status_changed rules.
func (co *Coordinator) ChangeStatus(ctx context.Context, id string, in StatusInput) (domain.Case, []domain.WorkflowExecution, error) {
	if !in.Status.Valid() {
		return domain.Case{}, nil, apperrors.NewValidationError("invalid status", map[string]any{"status": in.Status})
	}
	actor := actorOrSystem(in.Actor)
	return co.update(ctx, id, in.ExpectedVersion, domain.TriggerStatusChanged, actor, func(c *domain.Case) error {
		if c.Status == in.Status {
			return apperrors.NewConflict("case already in status "+string(in.Status), map[string]any{"case_id": c.ID})
		}
		transition(c, in.Status, co.clock.Now(), actor, in.Reason)
		return nil
	})
}

// RecordCustomerReply logs a customer message. A case awaiting the customer goes back to
// In Progress. Fires customer_reply rules.
func (co *Coordinator) RecordCustomerReply(ctx context.Context, id string, in ReplyInput) (domain.Case, []domain.WorkflowExecution, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return domain.Case{}, nil, apperrors.NewValidationError("message is required", nil)
	}
	return co.update(ctx, id, in.ExpectedVersion, domain.TriggerCustomerReply, actorOrSystem(in.Actor), func(c *domain.Case) error {
		now := co.clock.Now()
		actor := in.Actor
		if actor == "" {
			actor = c.Requester
		}
		actor = actorOrSystem(actor)
		c.Timeline = append(c.Timeline, newEvent(domain.EventCustomerReply, now, actor,
			"Customer replied", map[string]any{"message": message}))
		if c.Status == domain.CaseStatusAwaitingCustomer {
			transition(c, domain.CaseStatusInProgress, now, actor, "customer replied")
		}
		return nil
	})
}

// CheckSLA re-evaluates every open case and fires sla_breached or sla_at_risk, then
// time_elapsed. The collection is saved once when anything changed.
func (co *Coordinator) CheckSLA(ctx context.Context) (CheckResult, error) {
	co.mu.Lock()
	defer co.mu.Unlock()

	cases, err := co.loadCases(ctx)
	if err != nil {
		return CheckResult{}, err
	}

	type change struct {
		before  domain.Case
		after   domain.Case
		trigger domain.Trigger
		execs   []domain.WorkflowExecution
	}
	var changes []change
	result := CheckResult{Executions: []domain.WorkflowExecution{}}
	now := co.clock.Now()

	for i, c := range cases {
		if !c.Status.Open() {
			continue
		}
		result.Checked++

		triggers := co.slaTriggers(c, now)
		current := c
		var fired []domain.WorkflowExecution
		for _, trigger := range triggers {
			next, execs, err := co.Apply(ctx, current, trigger, nil)
			if err != nil {
				return CheckResult{}, err
			}
			current = next
			fired = append(fired, execs...)
		}

		if !appliedActions(fired) && current.SLAStatus == c.SLAStatus {
			// Rules that fired without applying an action leave nothing to save.
			result.Executions = append(result.Executions, fired...)
			continue
		}
		current.Version = c.Version + 1
		current.UpdatedAt = now
		cases[i] = current
		changes = append(changes, change{before: c, after: current, trigger: triggers[0], execs: fired})
		result.Executions = append(result.Executions, fired...)
	}

	if len(changes) == 0 {
		return result, nil
	}
	if err := co.saveCases(ctx, cases); err != nil {
		return CheckResult{}, err
	}
	result.Updated = len(changes)
	co.logger.Info("sla check completed",
		zap.Int("checked", result.Checked),
		zap.Int("updated", result.Updated),
		zap.Int("executions", len(result.Executions)))
	for _, ch := range changes {
		before := ch.before
		co.publish(ctx, &before, ch.after, ch.trigger, domain.SystemActor, ch.execs)
	}
	return result, nil
}

func appliedActions(execs []domain.WorkflowExecution) bool {
	for _, exec := range execs {
		if len(exec.ActionsExecuted) > 0 {
			return true
		}
	}
	return false
}

// slaTriggers lists the triggers a periodic check fires for c. SLA-exempt cases only get
// time_elapsed.
func (co *Coordinator) slaTriggers(c domain.Case, now time.Time) []domain.Trigger {
	m, err := co.sla.ComputeMetrics(c, now)
	if err != nil {
		return []domain.Trigger{domain.TriggerTimeElapsed}
	}
	switch sla.OverallStatus(c, m) {
	case domain.SLAStatusBreached:
		return []domain.Trigger{domain.TriggerSLABreached, domain.TriggerTimeElapsed}
	case domain.SLAStatusAtRisk:
		return []domain.Trigger{domain.TriggerSLAAtRisk, domain.TriggerTimeElapsed}
	default:
		return []domain.Trigger{domain.TriggerTimeElapsed}
	}
}

// GetCase returns the case as last saved.
func (co *Coordinator) GetCase(ctx context.Context, id string) (domain.Case, error) {
	cases, err := co.loadCases(ctx)
	if err != nil {
		return domain.Case{}, err
	}
	idx := indexOf(cases, id)
	if idx < 0 {
		return domain.Case{}, apperrors.NewNotFound("case", map[string]any{"id": id})
	}
	return cases[idx], nil
}

// ListCases returns the matching cases, newest first.
func (co *Coordinator) ListCases(ctx context.Context, filter CaseFilter) ([]domain.Case, error) {
	cases, err := co.loadCases(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Case, 0, len(cases))
	for _, c := range cases {
		if filter.matches(c) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f CaseFilter) matches(c domain.Case) bool {
	switch {
	case f.Status != "" && c.Status != f.Status:
		return false
	case f.Priority != "" && c.Priority != f.Priority:
		return false
	case f.Type != "" && c.Type != f.Type:
		return false
	case f.AssignedTo != "" && c.Assignee() != f.AssignedTo:
		return false
	case f.SLAStatus != "" && c.SLAStatus != f.SLAStatus:
		return false
	case f.Escalated != nil && c.Escalated != *f.Escalated:
		return false
	}
	return true
}

// CaseStats returns aggregate counts, cached until the next case change or the TTL.
// Loads hold statsMu through the cache write, so a save's invalidation cannot land between
// the read and the write and leave a stale entry behind.
func (co *Coordinator) CaseStats(ctx context.Context) (CaseStats, error) {
	co.statsMu.Lock()
	defer co.statsMu.Unlock()

	load := func() (any, error) {
		cases, err := co.loadCases(ctx)
		if err != nil {
			return nil, err
		}
		stats := computeStats(cases, co.clock.Now())
		if err := co.mirror.Publish(ctx, statsCacheKey, stats, co.statsTTL); err != nil {
			co.logger.Warn("mirror case stats", zap.Error(err))
		}
		return stats, nil
	}

	var (
		v   any
		err error
	)
	if co.cache == nil {
		v, err = load()
	} else {
		v, err = co.cache.GetOrLoad(statsCacheKey, co.statsTTL, load)
	}
	if err != nil {
		return CaseStats{}, err
	}
	return v.(CaseStats), nil
}

func computeStats(cases []domain.Case, now time.Time) CaseStats {
	stats := CaseStats{
		Total:       len(cases),
		ByStatus:    make(map[domain.CaseStatus]int),
		ByPriority:  make(map[domain.CasePriority]int),
		BySLAStatus: make(map[string]int),
		GeneratedAt: now,
	}
	for _, c := range cases {
		stats.ByStatus[c.Status]++
		stats.ByPriority[c.Priority]++
		if c.Status.Open() {
			stats.Open++
			if c.AssignedTo == nil {
				stats.Unassigned++
			}
		}
		if c.Escalated {
			stats.Escalated++
		}
		key := string(c.SLAStatus)
		if key == "" {
			key = slaExempt
		}
		stats.BySLAStatus[key]++
	}
	return stats
}

// ListExecutions returns the audit records of the rules fired for a case.
func (co *Coordinator) ListExecutions(ctx context.Context, caseID string) ([]domain.WorkflowExecution, error) {
	if _, err := co.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	if co.executions == nil {
		return []domain.WorkflowExecution{}, nil
	}
	return co.executions.List(ctx, caseID)
}

func (co *Coordinator) update(ctx context.Context, id string, expectedVersion int64, trigger domain.Trigger, actor string, mutation Mutation) (domain.Case, []domain.WorkflowExecution, error) {
	co.mu.Lock()
	defer co.mu.Unlock()

	cases, err := co.loadCases(ctx)
	if err != nil {
		return domain.Case{}, nil, err
	}
	idx := indexOf(cases, id)
	if idx < 0 {
		return domain.Case{}, nil, apperrors.NewNotFound("case", map[string]any{"id": id})
	}
	before := cases[idx]
	if expectedVersion > 0 && before.Version != expectedVersion {
		return domain.Case{}, nil, apperrors.NewConflict("case was modified concurrently", map[string]any{
			"case_id":          id,
			"expected_version": expectedVersion,
			"current_version":  before.Version,
		})
	}

	updated, execs, err := co.Apply(ctx, before, trigger, mutation)
	if err != nil {
		return domain.Case{}, nil, err
	}
	updated.Version = before.Version + 1
	updated.UpdatedAt = co.clock.Now()
	cases[idx] = updated

	if err := co.saveCases(ctx, cases); err != nil {
		return domain.Case{}, execs, err
	}
	co.logger.Info("case updated",
		zap.String("case_id", id),
		zap.String("trigger", string(trigger)),
		zap.Int64("version", updated.Version),
		zap.Int("executions", len(execs)))
	co.publish(ctx, &before, updated, trigger, actor, execs)
	return updated, execs, nil
}

func (co *Coordinator) loadCases(ctx context.Context) ([]domain.Case, error) {
	return repository.LoadAll[domain.Case](ctx, co.store, repository.CollectionCases)
}

func (co *Coordinator) saveCases(ctx context.Context, cases []domain.Case) error {
	if err := repository.SaveAll(ctx, co.store, repository.CollectionCases, cases); err != nil {
		co.logger.Error("save cases", zap.Error(err))
		return err
	}
	co.invalidateStats(ctx)
	return nil
}

// transition sets the status and appends its single timeline event.
func transition(c *domain.Case, to domain.CaseStatus, now time.Time, actor, reason string) {
	from := c.Status
	c.Status = to
	switch {
	case to == domain.CaseStatusResolved:
		resolvedAt := now
		c.ResolvedAt = &resolvedAt
		c.ResolutionReason = reason
	case to.Open():
		c.ResolvedAt = nil
		c.ResolutionReason = ""
	}
	md := map[string]any{"from": string(from), "to": string(to)}
	if reason != "" {
		md["reason"] = reason
	}
	c.Timeline = append(c.Timeline, newEvent(domain.EventStatusChanged, now, actor,
		fmt.Sprintf("Status changed from %s to %s", from, to), md))
}

func newEvent(t domain.TimelineEventType, now time.Time, actor, description string, md map[string]any) domain.TimelineEvent {
	return domain.TimelineEvent{
		ID:          uuid.NewString(),
		Type:        t,
		Timestamp:   now,
		Actor:       actor,
		Description: description,
		Metadata:    md,
	}
}

func indexOf(cases []domain.Case, id string) int {
	for i := range cases {
		if cases[i].ID == id {
			return i
		}
	}
	return -1
}

func actorOrSystem(actor string) string {
	if actor = strings.TrimSpace(actor); actor == "" {
		return domain.SystemActor
	}
	return actor
}
