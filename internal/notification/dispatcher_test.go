package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/case-service/internal/clock"
	"github.com/spec-kit/case-service/internal/domain"
)

type recordingTransport struct {
	delivered []domain.Notification
	err       error
}

func (r *recordingTransport) Deliver(_ context.Context, n domain.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.delivered = append(r.delivered, n)
	return nil
}

type memoryRecorder struct {
	records []domain.Notification
}

func (m *memoryRecorder) RecordNotification(_ context.Context, n domain.Notification) error {
	m.records = append(m.records, n)
	return nil
}

func newTestDispatcher(transport Transport) (*Dispatcher, *memoryRecorder) {
	rec := &memoryRecorder{}
	templates := append(DefaultTemplates(), domain.NotificationTemplate{
		ID:              "disabled",
		Channel:         domain.ChannelEmail,
		SubjectTemplate: "x",
		BodyTemplate:    "y",
		Enabled:         false,
	})
	d := NewDispatcher(Dependencies{
		Templates: templates,
		Transports: map[domain.NotificationChannel]Transport{
			domain.ChannelEmail: transport,
			domain.ChannelInApp: transport,
		},
		Recorder: rec,
		Clock:    clock.NewFake(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)),
	})
	return d, rec
}

func TestRender(t *testing.T) {
	vars := map[string]string{"case_number": "CASE-00001", "priority": "High"}
	out := Render("Case {case_number} is {priority}; owner {assigned_to}.", vars)
	assert.Equal(t, "Case CASE-00001 is High; owner .", out)
	assert.Equal(t, `{"raw": true}`, Render(`{"raw": true}`, vars))
}

func TestSend_Success(t *testing.T) {
	transport := &recordingTransport{}
	d, rec := newTestDispatcher(transport)

	n, err := d.Send(context.Background(), SendRequest{
		TemplateID: TemplateCaseAssigned,
		Recipient:  "dana@example.com",
		Variables:  map[string]string{"case_number": "CASE-00007", "case_title": "Leaking tap"},
		CaseID:     "case-7",
	})
	require.NoError(t, err)
	require.NotNil(t, n)

	assert.Equal(t, domain.NotificationSent, n.Status)
	assert.NotNil(t, n.SentAt)
	assert.Equal(t, "[CASE-00007] assigned to you: Leaking tap", n.Subject)
	assert.Equal(t, domain.NotificationPriorityNormal, n.Priority)
	assert.Len(t, transport.delivered, 1)
	assert.Len(t, rec.records, 1)
}

func TestSend_TransportFailureIsRecorded(t *testing.T) {
	d, _ := newTestDispatcher(&recordingTransport{err: errors.New("smtp down")})

	n, err := d.Send(context.Background(), SendRequest{TemplateID: TemplateSLABreached, Recipient: "ops@example.com"})
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, domain.NotificationFailed, n.Status)
	assert.Equal(t, "smtp down", n.ErrorMessage)
	assert.Nil(t, n.SentAt)
}

func TestSend_MissingOrDisabledTemplate(t *testing.T) {
	transport := &recordingTransport{}
	d, rec := newTestDispatcher(transport)

	for _, id := range []string{"nope", "disabled"} {
		n, err := d.Send(context.Background(), SendRequest{TemplateID: id, Recipient: "a@example.com"})
		require.NoError(t, err)
		assert.Nil(t, n)
	}
	assert.Empty(t, transport.delivered)
	assert.Empty(t, rec.records)
	assert.Equal(t, 0, d.Stats().Total)
}

func TestSend_NoTransportForChannel(t *testing.T) {
	d, _ := newTestDispatcher(&recordingTransport{})

	n, err := d.Send(context.Background(), SendRequest{TemplateID: TemplateCaseEscalated, Recipient: "ops"})
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationFailed, n.Status)
	assert.Contains(t, n.ErrorMessage, "webhook")
}

func TestSend_PriorityOverrideAndStats(t *testing.T) {
	d, _ := newTestDispatcher(&recordingTransport{})
	urgent := domain.NotificationPriorityUrgent

	_, err := d.Send(context.Background(), SendRequest{TemplateID: TemplateSLAAtRisk, Recipient: "dana", PriorityOverride: &urgent})
	require.NoError(t, err)
	_, err = d.Send(context.Background(), SendRequest{TemplateID: TemplateCaseEscalated, Recipient: "ops"})
	require.NoError(t, err)

	stats := d.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.ByStatus[domain.NotificationSent])
	assert.Equal(t, 1, stats.ByStatus[domain.NotificationFailed])
	assert.Equal(t, 1, stats.ByChannel[domain.ChannelInApp])
	assert.Equal(t, 1, stats.ByChannel[domain.ChannelWebhook])
	assert.Equal(t, 1, stats.ByPriority[domain.NotificationPriorityUrgent])
	assert.Equal(t, 1, stats.ByPriority[domain.NotificationPriorityHigh])
}

func TestSend_RequiresRecipient(t *testing.T) {
	d, _ := newTestDispatcher(&recordingTransport{})
	_, err := d.Send(context.Background(), SendRequest{TemplateID: TemplateCaseAssigned, Recipient: "  "})
	assert.Error(t, err)
}

func TestMarkDelivered(t *testing.T) {
	d, rec := newTestDispatcher(&recordingTransport{})
	n, err := d.Send(context.Background(), SendRequest{TemplateID: TemplateSLAAtRisk, Recipient: "dana", CaseID: "c1"})
	require.NoError(t, err)

	delivered, err := d.MarkDelivered(context.Background(), n.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)
	assert.Len(t, rec.records, 2)

	_, err = d.MarkDelivered(context.Background(), n.ID)
	assert.Error(t, err, "delivered is terminal")
	_, err = d.MarkDelivered(context.Background(), "unknown")
	assert.Error(t, err)

	assert.Len(t, d.List("c1"), 1)
	assert.Empty(t, d.List("c2"))
}

func TestInAppTransport_Inbox(t *testing.T) {
	tr := NewInAppTransport(2)
	for _, subject := range []string{"a", "b", "c"} {
		require.NoError(t, tr.Deliver(context.Background(), domain.Notification{Recipient: "dana", Subject: subject}))
	}
	inbox := tr.Inbox("dana")
	require.Len(t, inbox, 2)
	assert.Equal(t, "b", inbox[0].Subject)
	assert.Empty(t, tr.Inbox("nobody"))
}
