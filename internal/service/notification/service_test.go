package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/pkg/messaging"
	"github.com/jwalitptl/mediguard/pkg/messaging/memory"
	"github.com/jwalitptl/mediguard/pkg/metrics"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []model.Alert
	err  error
}

func (m *fakeMailer) SendAlert(_ context.Context, alert model.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, alert)
	return m.err
}

func (m *fakeMailer) SendCustom(context.Context, []string, string, string) error {
	return nil
}

func alertOf(tier model.Tier) model.Alert {
	return model.Alert{ID: uuid.New(), Level: tier, Message: "m", Medication: "Aspirin", Timestamp: time.Now()}
}

func TestAlertRaisedPublishesToBroker(t *testing.T) {
	broker := memory.NewBroker(4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := broker.Subscribe(ctx, "alerts")
	require.NoError(t, err)

	m, _ := metrics.New("test")
	svc := NewService(Config{Channel: "alerts"}, broker, nil, nil, m)

	alert := alertOf(model.TierFamily)
	svc.AlertRaised(ctx, alert)

	select {
	case raw := <-ch:
		var msg struct {
			Type    string      `json:"type"`
			Payload model.Alert `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, AlertRaisedType, msg.Type)
		assert.Equal(t, alert.ID, msg.Payload.ID)
		assert.Equal(t, model.TierFamily, msg.Payload.Level)
	case <-time.After(time.Second):
		t.Fatal("alert not published")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("broker", "success")))
}

func TestAlertRaisedEmailsSevereTiers(t *testing.T) {
	mailer := &fakeMailer{}
	m, _ := metrics.New("test")
	svc := NewService(Config{EmailMinTier: model.TierCaregiver}, nil, mailer, nil, m)

	svc.AlertRaised(context.Background(), alertOf(model.TierFamily))
	svc.AlertRaised(context.Background(), alertOf(model.TierCaregiver))
	svc.AlertRaised(context.Background(), alertOf(model.TierEmergency))
	svc.Wait()

	require.Len(t, mailer.sent, 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("email", "success")))
}

func TestAlertRaisedRecordsFailures(t *testing.T) {
	mailer := &fakeMailer{err: errors.New("smtp down")}
	broker := failingBroker{}
	m, _ := metrics.New("test")
	svc := NewService(Config{EmailMinTier: model.TierFamily}, broker, mailer, nil, m)

	svc.AlertRaised(context.Background(), alertOf(model.TierFamily))
	svc.Wait()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("broker", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NotificationsSent.WithLabelValues("email", "error")))
}

type failingBroker struct{}

func (failingBroker) Publish(context.Context, string, interface{}) error {
	return errors.New("broker down")
}

func (failingBroker) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("broker down")
}

func (failingBroker) Close() error { return nil }

var _ messaging.Broker = failingBroker{}
