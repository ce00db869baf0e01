package coordinator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/cache"
	"github.com/spec-kit/case-service/internal/clock"
	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/observability"
	"github.com/spec-kit/case-service/internal/repository"
	"github.com/spec-kit/case-service/internal/sla"
	"github.com/spec-kit/case-service/internal/workflow"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// StatsCachePattern matches every cached aggregate that depends on case contents.
const StatsCachePattern = "case_stats*"

const statsCacheKey = "case_stats:all"

// Mutation changes a case before SLA and rules are evaluated.
type Mutation func(c *domain.Case) error

// Dependencies wires the coordinator. SLA, Workflow and Store are required.
type Dependencies struct {
	Store      repository.Store
	SLA        *sla.Engine
	Workflow   *workflow.Engine
	Cache      *cache.Cache
	Mirror     *cache.RedisMirror
	Events     events.Dispatcher
	Executions *repository.ExecutionLog
	Metrics    *observability.Metrics
	Clock      clock.Clock
	Logger     *zap.Logger
	StatsTTL   time.Duration
}

// Coordinator sequences a case change through the SLA engine, the rule engine and the
// cache, and serializes every read-modify-write of the case collection.
type Coordinator struct {
	mu sync.Mutex
	// statsMu orders stats loads against invalidations. Never acquire mu while holding it.
	statsMu sync.Mutex

	store      repository.Store
	sla        *sla.Engine
	workflow   *workflow.Engine
	cache      *cache.Cache
	mirror     *cache.RedisMirror
	events     events.Dispatcher
	executions *repository.ExecutionLog
	metrics    *observability.Metrics
	clock      clock.Clock
	logger     *zap.Logger
	statsTTL   time.Duration
}

func New(deps Dependencies) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:      deps.Store,
		sla:        deps.SLA,
		workflow:   deps.Workflow,
		cache:      deps.Cache,
		mirror:     deps.Mirror,
		events:     deps.Events,
		executions: deps.Executions,
		metrics:    deps.Metrics,
		clock:      clock.OrReal(deps.Clock),
		logger:     logger,
		statsTTL:   deps.StatsTTL,
	}
}

// Apply runs mutation on a copy of c, attaches fresh SLA metrics, evaluates the rules bound
// to trigger and invalidates dependent aggregates. The caller persists the returned case.
func (co *Coordinator) Apply(ctx context.Context, c domain.Case, trigger domain.Trigger, mutation Mutation) (domain.Case, []domain.WorkflowExecution, error) {
	updated := c.Clone()
	if mutation != nil {
		if err := mutation(&updated); err != nil {
			return c, nil, err
		}
	}

	now := co.clock.Now()
	co.refreshSLA(&updated, now)

	updated, execs := co.workflow.Evaluate(ctx, updated, trigger)
	if len(execs) > 0 {
		co.refreshSLA(&updated, now)
	}
	for _, exec := range execs {
		co.metrics.RecordExecution(exec.RuleID, string(exec.Status))
	}

	co.invalidateStats(ctx)
	return updated, execs, nil
}

// refreshSLA attaches metrics computed at now. A case without configuration is SLA-exempt.
func (co *Coordinator) refreshSLA(c *domain.Case, now time.Time) {
	m, err := co.sla.ComputeMetrics(*c, now)
	if err != nil {
		if !errors.Is(err, apperrors.ErrConfigurationMissing) {
			co.logger.Warn("compute sla metrics", zap.String("case_id", c.ID), zap.Error(err))
		}
		c.SLAMetrics = nil
		c.SLAStatus = ""
		co.metrics.RecordSLAEvaluation("")
		return
	}
	c.SLAMetrics = &m
	c.SLAStatus = sla.OverallStatus(*c, m)
	co.metrics.RecordSLAEvaluation(string(c.SLAStatus))
}

func (co *Coordinator) invalidateStats(ctx context.Context) {
	co.statsMu.Lock()
	defer co.statsMu.Unlock()
	if co.cache != nil {
		co.cache.InvalidatePattern(StatsCachePattern)
	}
	if _, err := co.mirror.InvalidatePattern(ctx, StatsCachePattern); err != nil {
		co.logger.Warn("invalidate mirrored stats", zap.Error(err))
	}
}

// publish emits events for a saved change. It runs after the save so subscribers only
// observe durable state.
func (co *Coordinator) publish(ctx context.Context, before *domain.Case, after domain.Case, trigger domain.Trigger, actor string, execs []domain.WorkflowExecution) {
	if co.events == nil {
		return
	}
	now := co.clock.Now()
	emit := func(t events.EventType, payload interface{}) {
		ev := events.Event{
			ID:        uuid.NewString(),
			Type:      t,
			CaseID:    after.ID,
			Actor:     actor,
			Timestamp: now,
			Payload:   payload,
		}
		if err := co.events.Publish(ctx, ev); err != nil {
			co.logger.Warn("publish event", zap.String("event_type", string(t)), zap.Error(err))
		}
	}

	updated := events.CaseUpdatedPayload{
		Trigger:   trigger,
		Status:    after.Status,
		SLAStatus: after.SLAStatus,
		Version:   after.Version,
	}
	if before == nil {
		emit(events.EventCaseCreated, updated)
	} else {
		emit(events.EventCaseUpdated, updated)
	}
	if after.Escalated && (before == nil || !before.Escalated) {
		emit(events.EventCaseEscalated, events.CaseEscalatedPayload{
			EscalatedTo: deref(after.EscalatedTo),
			SLAStatus:   after.SLAStatus,
		})
	}
	for _, exec := range execs {
		emit(events.EventWorkflowExecuted, events.WorkflowExecutedPayload{Execution: exec})
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
