// Package notify delivers best-effort task notifications over email (SMTP)
// and the pub/sub topic (NATS). Both channels are guarded by circuit
// breakers and become no-ops when left unconfigured.
package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"

	"taskboard/backend/utils/config"
	"taskboard/backend/utils/logging"
	"taskboard/backend/utils/metrics"

	"github.com/sony/gobreaker"
)

const (
	ChannelEmail = "email"
	ChannelTopic = "topic"

	AssignmentSubject = "New Task Assigned to You"
	WelcomeSubject    = "Your task board account"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailSender struct {
	cfg     config.NotificationConfig
	breaker *gobreaker.CircuitBreaker
	send    sendFunc
}

func NewEmailSender(cfg config.NotificationConfig, breaker *gobreaker.CircuitBreaker) *EmailSender {
	return &EmailSender{cfg: cfg, breaker: breaker, send: smtp.SendMail}
}

func (s *EmailSender) Enabled() bool {
	return s != nil && s.cfg.EmailEnabled()
}

// Assignment is the data rendered into the task assignment email.
type Assignment struct {
	Email       string
	Username    string
	Description string
	Deadline    string
}

func AssignmentBody(a Assignment) string {
	name := a.Username
	if name == "" {
		name = "User"
	}
	return fmt.Sprintf("Hello %s,\n\nA new task '%s' has been assigned to you.\nDeadline: %s\n\nThank you.",
		name, a.Description, a.Deadline)
}

// SendTaskAssignment reports whether the email was handed to the SMTP
// server. Failures are logged and never returned.
func (s *EmailSender) SendTaskAssignment(ctx context.Context, a Assignment) bool {
	if !s.Enabled() {
		logging.Logger.Info("Event ID: EMAIL_DISABLED, Description: Sender address or SMTP host not configured. Skipping email.")
		return false
	}
	if a.Email == "" {
		logging.Logger.Warn("Event ID: EMAIL_NO_RECIPIENT, Description: Recipient email not provided. Skipping email.")
		return false
	}

	if err := s.deliver(ctx, a.Email, AssignmentSubject, AssignmentBody(a)); err != nil {
		logging.Logger.Errorf("Event ID: EMAIL_SEND_FAILED, Description: Failed to send task assignment email to %s: %v", a.Email, err)
		metrics.NotificationsTotal.WithLabelValues(ChannelEmail, metrics.Result(false)).Inc()
		return false
	}
	logging.Logger.Infof("Event ID: EMAIL_SENT, Description: Sent task assignment email to %s", a.Email)
	metrics.NotificationsTotal.WithLabelValues(ChannelEmail, metrics.Result(true)).Inc()
	return true
}

// SendWelcome delivers the temporary credential of a newly created account.
func (s *EmailSender) SendWelcome(ctx context.Context, email, username, temporaryPassword string) error {
	if !s.Enabled() {
		return fmt.Errorf("email channel not configured")
	}
	body := fmt.Sprintf("Hello %s,\n\nAn account has been created for you.\nUsername: %s\nTemporary password: %s\n\nYou will be asked to choose a new password when you first sign in.",
		username, username, temporaryPassword)
	return s.deliver(ctx, email, WelcomeSubject, body)
}

func (s *EmailSender) deliver(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	message := []byte("Subject: " + subject + "\r\n" +
		"From: " + s.cfg.SenderEmail + "\r\n" +
		"To: " + to + "\r\n" +
		"Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if s.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	}
	addr := net.JoinHostPort(s.cfg.SMTPHost, s.cfg.SMTPPort)

	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.send(addr, auth, s.cfg.SenderEmail, []string{to}, message)
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
