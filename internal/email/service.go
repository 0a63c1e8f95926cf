package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/mediguard/internal/model"
)

type Service interface {
	SendAlert(ctx context.Context, alert model.Alert) error
	SendCustom(ctx context.Context, to []string, subject string, content string) error
}

// Config configures the SMTP sender.
type Config struct {
	Host               string
	Port               int
	Username           string
	Password           string
	From               string
	To                 []string
	InsecureSkipVerify bool
}

// dialer is the part of gomail.Dialer the service uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type service struct {
	cfg    Config
	dialer dialer
}

func NewService(cfg Config) Service {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return newService(cfg, d)
}

func newService(cfg Config, d dialer) *service {
	return &service{cfg: cfg, dialer: d}
}

func (s *service) SendAlert(ctx context.Context, alert model.Alert) error {
	subject := fmt.Sprintf("[MediGuard %s] %s", strings.ToUpper(string(alert.Level)), alert.Medication)
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", alert.Message)
	fmt.Fprintf(&b, "Tier:       %s\n", alert.Level)
	fmt.Fprintf(&b, "Medication: %s\n", alert.Medication)
	fmt.Fprintf(&b, "Time:       %s\n", alert.Timestamp.Format(model.EventTimeLayout))
	fmt.Fprintf(&b, "Alert ID:   %s\n", alert.ID)
	return s.SendCustom(ctx, s.cfg.To, subject, b.String())
}

func (s *service) SendCustom(ctx context.Context, to []string, subject string, content string) error {
	if len(to) == 0 {
		return fmt.Errorf("no recipients configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", to...)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", content)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
