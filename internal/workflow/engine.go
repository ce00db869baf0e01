package workflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/clock"
	"github.com/spec-kit/case-service/internal/domain"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// ExecutionRecorder receives one record per fired rule.
type ExecutionRecorder interface {
	RecordExecution(ctx context.Context, exec domain.WorkflowExecution) error
}

// Dependencies bundles engine collaborators.
type Dependencies struct {
	Notifier          Notifier
	Assigner          Assigner
	Recorder          ExecutionRecorder
	EscalationContact string
	Clock             clock.Clock
	Logger            *zap.Logger
}

type compiledRule struct {
	rule       domain.WorkflowRule
	conditions []condition
	actions    []Action
}

// Engine evaluates workflow rules against cases.
type Engine struct {
	mu    sync.RWMutex
	rules []*compiledRule

	notifier          Notifier
	assigner          Assigner
	recorder          ExecutionRecorder
	escalationContact string
	clock             clock.Clock
	logger            *zap.Logger
}

// NewEngine creates an engine with no rules.
func NewEngine(deps Dependencies) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		notifier:          deps.Notifier,
		assigner:          deps.Assigner,
		recorder:          deps.Recorder,
		escalationContact: deps.EscalationContact,
		clock:             clock.OrReal(deps.Clock),
		logger:            logger,
	}
}

// ReplaceRules compiles rules and swaps them in. On any error the current set is kept.
func (e *Engine) ReplaceRules(rules []domain.WorkflowRule) error {
	compiled := make([]*compiledRule, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for _, r := range rules {
		if r.ID == "" {
			return fmt.Errorf("rule %q: missing id", r.Name)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("rule %s: duplicate id", r.ID)
		}
		seen[r.ID] = struct{}{}

		cr, err := compileRule(r)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.ID, err)
		}
		compiled = append(compiled, cr)
	}

	e.mu.Lock()
	e.rules = compiled
	e.mu.Unlock()
	e.logger.Info("workflow rules loaded", zap.Int("count", len(compiled)))
	return nil
}

func compileRule(r domain.WorkflowRule) (*compiledRule, error) {
	if !r.Trigger.Valid() {
		return nil, fmt.Errorf("unknown trigger %q", r.Trigger)
	}
	conds, err := compileConditions(r.Conditions)
	if err != nil {
		return nil, err
	}
	actions := make([]Action, 0, len(r.Actions))
	for i, spec := range r.Actions {
		a, err := compileAction(spec)
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i, err)
		}
		actions = append(actions, a)
	}
	return &compiledRule{rule: r, conditions: conds, actions: actions}, nil
}

// Rules returns the loaded rules in evaluation order.
func (e *Engine) Rules() []domain.WorkflowRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.WorkflowRule, len(e.rules))
	for i, cr := range e.rules {
		out[i] = cr.rule
	}
	return out
}

// SetEnabled toggles a rule without recompiling the set.
func (e *Engine) SetEnabled(id string, enabled bool) (domain.WorkflowRule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, cr := range e.rules {
		if cr.rule.ID != id {
			continue
		}
		next := *cr
		next.rule.Enabled = enabled
		e.rules[i] = &next
		return next.rule, nil
	}
	return domain.WorkflowRule{}, apperrors.NewNotFound("workflow rule", map[string]any{"rule_id": id})
}

func (e *Engine) candidates(trigger domain.Trigger) []*compiledRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*compiledRule, 0, len(e.rules))
	for _, cr := range e.rules {
		if cr.rule.Enabled && cr.rule.Trigger == trigger {
			out = append(out, cr)
		}
	}
	return out
}

// Evaluate runs every enabled rule bound to trigger against c, in declared order. Each rule
// sees the case as left by the rules before it. It returns the mutated case and one
// execution per fired rule; rules whose conditions fail or cannot be evaluated produce none.
func (e *Engine) Evaluate(ctx context.Context, c domain.Case, trigger domain.Trigger) (domain.Case, []domain.WorkflowExecution) {
	rules := e.candidates(trigger)
	if len(rules) == 0 {
		return c, nil
	}

	now := e.clock.Now()
	current := c.Clone()
	var executions []domain.WorkflowExecution

	for _, cr := range rules {
		matched, err := evaluateConditions(cr.conditions, NewCaseView(current, now))
		if err != nil {
			e.logger.Warn("rule condition evaluation failed",
				zap.String("rule_id", cr.rule.ID),
				zap.String("case_id", current.ID),
				zap.Error(err))
			continue
		}
		if !matched {
			continue
		}

		var exec domain.WorkflowExecution
		current, exec = e.execute(ctx, cr, current, trigger, now)
		executions = append(executions, exec)

		if e.recorder != nil {
			if err := e.recorder.RecordExecution(ctx, exec); err != nil {
				e.logger.Error("record workflow execution", zap.String("execution_id", exec.ID), zap.Error(err))
			}
		}
	}
	return current, executions
}

func (e *Engine) execute(ctx context.Context, cr *compiledRule, c domain.Case, trigger domain.Trigger, now time.Time) (domain.Case, domain.WorkflowExecution) {
	exec := domain.WorkflowExecution{
		ID:              uuid.NewString(),
		RuleID:          cr.rule.ID,
		RuleName:        cr.rule.Name,
		CaseID:          c.ID,
		Trigger:         trigger,
		ExecutedAt:      now,
		Status:          domain.ExecutionSuccess,
		ActionsExecuted: []string{},
	}
	if len(cr.actions) == 0 {
		exec.Status = domain.ExecutionSkipped
		return c, exec
	}

	env := &Env{
		Now:               now,
		Rule:              cr.rule,
		Notifier:          e.notifier,
		Assigner:          e.assigner,
		EscalationContact: e.escalationContact,
	}
	for i, action := range cr.actions {
		next, event, err := action.Execute(ctx, env, c.Clone())
		if err != nil {
			err = fmt.Errorf("%w: action %d (%s): %w", apperrors.ErrActionExecution, i, action.Type(), err)
			exec.Status = domain.ExecutionFailed
			exec.ErrorMessage = err.Error()
			e.logger.Warn("workflow action failed",
				zap.String("rule_id", cr.rule.ID),
				zap.String("case_id", c.ID),
				zap.Error(err))
			break
		}
		event.ID = uuid.NewString()
		event.Timestamp = now
		if event.Actor == "" {
			event.Actor = env.actor()
		}
		next.Timeline = append(next.Timeline, event)
		c = next
		exec.ActionsExecuted = append(exec.ActionsExecuted, string(action.Type()))
	}

	e.logger.Info("workflow rule fired",
		zap.String("rule_id", cr.rule.ID),
		zap.String("case_id", c.ID),
		zap.String("trigger", string(trigger)),
		zap.String("status", string(exec.Status)),
		zap.Strings("actions", exec.ActionsExecuted))
	return c, exec
}
