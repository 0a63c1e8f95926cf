package notification

import (
	"context"
	"sync"
	"time"

	"github.com/jwalitptl/mediguard/internal/email"
	"github.com/jwalitptl/mediguard/internal/model"
	"github.com/jwalitptl/mediguard/pkg/logger"
	"github.com/jwalitptl/mediguard/pkg/messaging"
	"github.com/jwalitptl/mediguard/pkg/metrics"
)

const (
	// AlertRaisedType is the message type published for every new alert.
	AlertRaisedType = "alert.raised"

	channelBroker = "broker"
	channelEmail  = "email"
)

type Config struct {
	Channel      string
	EmailMinTier model.Tier
	EmailTimeout time.Duration
}

// Service fans recorded alerts out to the broker and, for severe enough
// tiers, to email. Email delivery runs in the background.
type Service struct {
	cfg     Config
	broker  messaging.Broker
	mailer  email.Service
	logger  *logger.Logger
	metrics *metrics.Metrics

	wg sync.WaitGroup
}

// NewService builds the notifier. broker and mailer may be nil.
func NewService(cfg Config, broker messaging.Broker, mailer email.Service, log *logger.Logger, m *metrics.Metrics) *Service {
	if cfg.Channel == "" {
		cfg.Channel = "mediguard.alerts"
	}
	if !cfg.EmailMinTier.Valid() {
		cfg.EmailMinTier = model.TierCaregiver
	}
	if cfg.EmailTimeout <= 0 {
		cfg.EmailTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		cfg:     cfg,
		broker:  broker,
		mailer:  mailer,
		logger:  log.WithComponent("notification"),
		metrics: m,
	}
}

func (s *Service) AlertRaised(ctx context.Context, alert model.Alert) {
	if s.broker != nil {
		msg := messaging.Message{Type: AlertRaisedType, Payload: alert}
		if err := s.broker.Publish(ctx, s.cfg.Channel, msg); err != nil {
			s.logger.Error(err, "failed to publish alert", "alert_id", alert.ID.String())
			s.record(channelBroker, "error")
		} else {
			s.record(channelBroker, "success")
		}
	}

	if s.mailer == nil || alert.Level.Rank() < s.cfg.EmailMinTier.Rank() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.EmailTimeout)
		defer cancel()
		if err := s.mailer.SendAlert(sendCtx, alert); err != nil {
			s.logger.Error(err, "failed to email alert", "alert_id", alert.ID.String(), "tier", string(alert.Level))
			s.record(channelEmail, "error")
			return
		}
		s.record(channelEmail, "success")
	}()
}

// Wait blocks until in-flight email deliveries finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) record(channel, status string) {
	if s.metrics != nil {
		s.metrics.NotificationsSent.WithLabelValues(channel, status).Inc()
	}
}
