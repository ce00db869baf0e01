package repository

import (
	"context"
	"sync"

	"github.com/spec-kit/case-service/internal/domain"
)

// ExecutionLog appends workflow executions to their collection.
type ExecutionLog struct {
	store Store
	mu    sync.Mutex
}

// NewExecutionLog creates the log.
func NewExecutionLog(store Store) *ExecutionLog {
	return &ExecutionLog{store: store}
}

// RecordExecution appends exec. Records are never rewritten.
func (l *ExecutionLog) RecordExecution(ctx context.Context, exec domain.WorkflowExecution) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	all, err := LoadAll[domain.WorkflowExecution](ctx, l.store, CollectionWorkflowExecutions)
	if err != nil {
		return err
	}
	return SaveAll(ctx, l.store, CollectionWorkflowExecutions, append(all, exec))
}

// List returns the executions for caseID, or all of them when caseID is empty.
func (l *ExecutionLog) List(ctx context.Context, caseID string) ([]domain.WorkflowExecution, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all, err := LoadAll[domain.WorkflowExecution](ctx, l.store, CollectionWorkflowExecutions)
	if err != nil {
		return nil, err
	}
	if caseID == "" {
		return all, nil
	}
	out := make([]domain.WorkflowExecution, 0)
	for _, exec := range all {
		if exec.CaseID == caseID {
			out = append(out, exec)
		}
	}
	return out, nil
}

// NotificationLog upserts notifications by id.
type NotificationLog struct {
	store Store
	mu    sync.Mutex
}

// NewNotificationLog creates the log.
func NewNotificationLog(store Store) *NotificationLog {
	return &NotificationLog{store: store}
}

// RecordNotification stores n, replacing an earlier record with the same id.
func (l *NotificationLog) RecordNotification(ctx context.Context, n domain.Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	all, err := LoadAll[domain.Notification](ctx, l.store, CollectionNotifications)
	if err != nil {
		return err
	}
	replaced := false
	for i := range all {
		if all[i].ID == n.ID {
			all[i] = n
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, n)
	}
	return SaveAll(ctx, l.store, CollectionNotifications, all)
}

// All returns every stored notification.
func (l *NotificationLog) All(ctx context.Context) ([]domain.Notification, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LoadAll[domain.Notification](ctx, l.store, CollectionNotifications)
}
