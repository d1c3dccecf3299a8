// Package mailer provides transactional email delivery over SMTP with an
// in-process async send queue.
package mailer

import (
	"context"
	"fmt"
	"sync"

	"github.com/copiqat-backend/internal/config"
	"github.com/copiqat-backend/internal/logging"
	"gopkg.in/gomail.v2"
)

// Sender delivers a single message; satisfied by gomail's dialer and by
// test fakes.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Mailer composes and sends the platform's transactional emails. Send is
// synchronous; Enqueue hands the message to a background worker so request
// handlers that only need best-effort delivery don't block on SMTP.
type Mailer struct {
	sender Sender
	from   string
	logger *logging.Logger

	queue chan *gomail.Message
	wg    sync.WaitGroup
	once  sync.Once
}

// NewMailer creates a mailer from SMTP configuration
func NewMailer(cfg *config.SMTPConfig, logger *logging.Logger) *Mailer {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	return newMailer(dialer, cfg.From, logger)
}

// NewMailerWithSender creates a mailer with a custom sender; used by tests
func NewMailerWithSender(sender Sender, from string, logger *logging.Logger) *Mailer {
	return newMailer(sender, from, logger)
}

func newMailer(sender Sender, from string, logger *logging.Logger) *Mailer {
	m := &Mailer{
		sender: sender,
		from:   from,
		logger: logger,
		queue:  make(chan *gomail.Message, 64),
	}

	m.wg.Add(1)
	go m.worker()

	return m
}

func (m *Mailer) worker() {
	defer m.wg.Done()
	for msg := range m.queue {
		if err := m.sender.DialAndSend(msg); err != nil {
			m.logger.WithError(err).Error("Failed to send queued email")
		}
	}
}

// Close drains the queue and stops the worker
func (m *Mailer) Close() {
	m.once.Do(func() {
		close(m.queue)
	})
	m.wg.Wait()
}

func (m *Mailer) compose(to, subject, body string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	return msg
}

// SendActivationOTP sends the signup verification code synchronously.
// Registration surfaces a delivery failure to the caller, so this one
// does not go through the queue.
func (m *Mailer) SendActivationOTP(ctx context.Context, to, firstName, code string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nActivate your account by verifying your email with this OTP %s. It is valid for 10 minutes.",
		firstName, code)
	msg := m.compose(to, "Your OTP Code for account activation", body)

	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send activation email: %w", err)
	}
	return nil
}

// EnqueuePasswordResetOTP queues the password reset code for delivery
func (m *Mailer) EnqueuePasswordResetOTP(ctx context.Context, to, firstName, code string) {
	body := fmt.Sprintf(
		"Hi %s,\n\nFinish the password reset process by verifying your email with this OTP %s. It is valid for 10 minutes.",
		firstName, code)
	m.enqueue(m.compose(to, "Your OTP Code for password reset", body))
}

// EnqueueActivationOTP queues a re-requested activation code for delivery
func (m *Mailer) EnqueueActivationOTP(ctx context.Context, to, firstName, code string) {
	body := fmt.Sprintf(
		"Hi %s,\n\nActivate your account by verifying your email with this OTP %s. It is valid for 10 minutes.",
		firstName, code)
	m.enqueue(m.compose(to, "Your OTP Code for account activation", body))
}

func (m *Mailer) enqueue(msg *gomail.Message) {
	select {
	case m.queue <- msg:
	default:
		// A full queue means SMTP is badly backed up; dropping and
		// logging beats blocking the request path.
		m.logger.Error("Mail queue full, dropping message")
	}
}
