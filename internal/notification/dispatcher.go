package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/case-service/internal/clock"
	"github.com/spec-kit/case-service/internal/domain"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// Transport delivers a rendered notification over one channel.
type Transport interface {
	Deliver(ctx context.Context, n domain.Notification) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, n domain.Notification) error

// Deliver calls f.
func (f TransportFunc) Deliver(ctx context.Context, n domain.Notification) error {
	return f(ctx, n)
}

// Recorder persists notifications after their status is final.
type Recorder interface {
	RecordNotification(ctx context.Context, n domain.Notification) error
}

// Recorders fans a notification out to every recorder and joins their errors.
type Recorders []Recorder

func (rs Recorders) RecordNotification(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, r := range rs {
		if r == nil {
			continue
		}
		if err := r.RecordNotification(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendRequest describes one dispatch.
type SendRequest struct {
	TemplateID       string
	Recipient        string
	Variables        map[string]string
	CaseID           string
	PriorityOverride *domain.NotificationPriority
}

// Stats aggregates the notification log.
type Stats struct {
	Total      int                                 `json:"total"`
	ByStatus   map[domain.NotificationStatus]int   `json:"by_status"`
	ByChannel  map[domain.NotificationChannel]int  `json:"by_channel"`
	ByPriority map[domain.NotificationPriority]int `json:"by_priority"`
}

// Dispatcher renders templates and hands notifications to channel transports.
type Dispatcher struct {
	mu         sync.RWMutex
	templates  map[string]domain.NotificationTemplate
	transports map[domain.NotificationChannel]Transport
	log        []domain.Notification
	index      map[string]int

	recorder Recorder
	clock    clock.Clock
	logger   *zap.Logger
}

// Dependencies bundles dispatcher collaborators.
type Dependencies struct {
	Templates  []domain.NotificationTemplate
	Transports map[domain.NotificationChannel]Transport
	Recorder   Recorder
	Clock      clock.Clock
	Logger     *zap.Logger
}

// NewDispatcher creates the dispatcher.
func NewDispatcher(deps Dependencies) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		templates:  make(map[string]domain.NotificationTemplate, len(deps.Templates)),
		transports: make(map[domain.NotificationChannel]Transport, len(deps.Transports)),
		index:      make(map[string]int),
		recorder:   deps.Recorder,
		clock:      clock.OrReal(deps.Clock),
		logger:     logger,
	}
	for _, tpl := range deps.Templates {
		d.templates[tpl.ID] = tpl
	}
	for ch, tr := range deps.Transports {
		d.transports[ch] = tr
	}
	return d
}

// RegisterTransport sets the transport for a channel.
func (d *Dispatcher) RegisterTransport(channel domain.NotificationChannel, transport Transport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.transports[channel] = transport
}

// Template returns the template with id.
func (d *Dispatcher) Template(id string) (domain.NotificationTemplate, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	tpl, ok := d.templates[id]
	return tpl, ok
}

// Send renders the template and delivers it. A missing or disabled template yields
// (nil, nil). Transport failures are recorded on the notification, not returned.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest) (*domain.Notification, error) {
	if strings.TrimSpace(req.Recipient) == "" {
		return nil, errors.New("notification recipient required")
	}

	d.mu.RLock()
	tpl, ok := d.templates[req.TemplateID]
	transport := d.transports[tpl.Channel]
	d.mu.RUnlock()

	if !ok {
		d.logger.Warn("notification template not found", zap.String("template_id", req.TemplateID))
		return nil, nil
	}
	if !tpl.Enabled {
		d.logger.Info("notification template disabled", zap.String("template_id", req.TemplateID))
		return nil, nil
	}

	priority := tpl.Priority
	if req.PriorityOverride != nil {
		priority = *req.PriorityOverride
	}
	if priority == "" {
		priority = domain.NotificationPriorityNormal
	}

	n := domain.Notification{
		ID:         uuid.NewString(),
		TemplateID: tpl.ID,
		Channel:    tpl.Channel,
		Recipient:  req.Recipient,
		Subject:    Render(tpl.SubjectTemplate, req.Variables),
		Body:       Render(tpl.BodyTemplate, req.Variables),
		Priority:   priority,
		Status:     domain.NotificationPending,
		CaseID:     req.CaseID,
		CreatedAt:  d.clock.Now(),
	}

	var err error
	if transport == nil {
		err = fmt.Errorf("no transport for channel %s", tpl.Channel)
	} else {
		err = transport.Deliver(ctx, n)
	}

	if err != nil {
		n.Status = domain.NotificationFailed
		n.ErrorMessage = err.Error()
		d.logger.Warn("notification delivery failed",
			zap.String("notification_id", n.ID),
			zap.String("channel", string(n.Channel)),
			zap.String("case_id", n.CaseID),
			zap.Error(fmt.Errorf("%w: %w", apperrors.ErrDispatch, err)))
	} else {
		sentAt := d.clock.Now()
		n.Status = domain.NotificationSent
		n.SentAt = &sentAt
		d.logger.Debug("notification sent",
			zap.String("notification_id", n.ID),
			zap.String("channel", string(n.Channel)),
			zap.String("recipient", n.Recipient))
	}

	d.append(n)
	if d.recorder != nil {
		if recErr := d.recorder.RecordNotification(ctx, n); recErr != nil {
			d.logger.Error("record notification", zap.String("notification_id", n.ID), zap.Error(recErr))
		}
	}
	return &n, nil
}

// MarkDelivered records a delivery receipt for a sent notification.
func (d *Dispatcher) MarkDelivered(ctx context.Context, id string) (domain.Notification, error) {
	now := d.clock.Now()
	n, err := d.transition(id, domain.NotificationSent, func(n *domain.Notification) {
		n.Status = domain.NotificationDelivered
		n.DeliveredAt = &now
	})
	if err != nil {
		return n, err
	}
	if d.recorder != nil {
		if err := d.recorder.RecordNotification(ctx, n); err != nil {
			d.logger.Error("record delivery receipt", zap.String("notification_id", id), zap.Error(err))
		}
	}
	return n, nil
}

// List returns notifications for caseID, or all of them when caseID is empty.
func (d *Dispatcher) List(caseID string) []domain.Notification {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]domain.Notification, 0, len(d.log))
	for _, n := range d.log {
		if caseID == "" || n.CaseID == caseID {
			out = append(out, n)
		}
	}
	return out
}

// Stats counts the log by status, channel and priority.
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := Stats{
		Total:      len(d.log),
		ByStatus:   make(map[domain.NotificationStatus]int),
		ByChannel:  make(map[domain.NotificationChannel]int),
		ByPriority: make(map[domain.NotificationPriority]int),
	}
	for _, n := range d.log {
		stats.ByStatus[n.Status]++
		stats.ByChannel[n.Channel]++
		stats.ByPriority[n.Priority]++
	}
	return stats
}

// Restore seeds the in-memory log from persisted notifications.
func (d *Dispatcher) Restore(notifications []domain.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, n := range notifications {
		d.index[n.ID] = len(d.log)
		d.log = append(d.log, n)
	}
}

func (d *Dispatcher) append(n domain.Notification) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.index[n.ID] = len(d.log)
	d.log = append(d.log, n)
}

func (d *Dispatcher) transition(id string, from domain.NotificationStatus, apply func(*domain.Notification)) (domain.Notification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	i, ok := d.index[id]
	if !ok {
		return domain.Notification{}, apperrors.NewNotFound("notification", map[string]any{"notification_id": id})
	}
	n := &d.log[i]
	if n.Status != from {
		return *n, apperrors.NewConflict("invalid notification status transition", map[string]any{
			"notification_id": id,
			"status":          n.Status,
		})
	}
	apply(n)
	return *n, nil
}
