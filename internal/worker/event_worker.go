package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/domain"
	"github.com/spec-kit/case-service/internal/events"
	"github.com/spec-kit/case-service/internal/observability"
)

// EventWorker logs case events for the audit stream and counts them.
type EventWorker struct {
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewEventWorker creates the worker. metrics may be nil.
func NewEventWorker(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) *EventWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventWorker{dispatcher: dispatcher, metrics: metrics, logger: logger}
}

// RegisterHandlers subscribes to events.
func (w *EventWorker) RegisterHandlers() {
	if w.dispatcher == nil {
		return
	}
	w.dispatcher.Subscribe(events.EventCaseCreated, w.handleCaseCreated)
	w.dispatcher.Subscribe(events.EventCaseUpdated, w.handleCaseUpdated)
	w.dispatcher.Subscribe(events.EventCaseEscalated, w.handleCaseEscalated)
	w.dispatcher.Subscribe(events.EventWorkflowExecuted, w.handleWorkflowExecuted)
	w.dispatcher.Subscribe(events.EventAll, w.count)
}

func (w *EventWorker) count(_ context.Context, event events.Event) error {
	w.metrics.RecordCaseEvent(string(event.Type))
	return nil
}

func (w *EventWorker) handleCaseCreated(_ context.Context, event events.Event) error {
	w.logger.Info("CaseCreated", zap.String("case_id", event.CaseID), zap.String("actor", event.Actor), zap.Any("payload", event.Payload))
	return nil
}

func (w *EventWorker) handleCaseUpdated(_ context.Context, event events.Event) error {
	w.logger.Debug("CaseUpdated", zap.String("case_id", event.CaseID), zap.String("actor", event.Actor), zap.Any("payload", event.Payload))
	return nil
}

func (w *EventWorker) handleCaseEscalated(_ context.Context, event events.Event) error {
	payload, _ := event.Payload.(events.CaseEscalatedPayload)
	w.logger.Warn("CaseEscalated",
		zap.String("case_id", event.CaseID),
		zap.String("escalated_to", payload.EscalatedTo),
		zap.String("sla_status", string(payload.SLAStatus)))
	return nil
}

func (w *EventWorker) handleWorkflowExecuted(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.WorkflowExecutedPayload)
	if !ok {
		return nil
	}
	exec := payload.Execution
	fields := []zap.Field{
		zap.String("case_id", event.CaseID),
		zap.String("rule_id", exec.RuleID),
		zap.String("trigger", string(exec.Trigger)),
		zap.Strings("actions", exec.ActionsExecuted),
	}
	if exec.Status == domain.ExecutionFailed {
		w.logger.Warn("WorkflowFailed", append(fields, zap.String("error", exec.ErrorMessage))...)
		return nil
	}
	w.logger.Info("WorkflowExecuted", fields...)
	return nil
}
