package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/lrms-portal/lrms-api/pkg/config"
)

// Sender delivers one-time verification codes to users.
type Sender interface {
	SendOTP(ctx context.Context, email, code string) error
}

// SMTPSender delivers codes through a plain SMTP relay.
type SMTPSender struct {
	cfg config.SMTPConfig
}

// NewSMTPSender builds an SMTP-backed sender.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

// SendOTP sends the verification code as a short plain-text message.
func (s *SMTPSender) SendOTP(ctx context.Context, email, code string) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	body := strings.Join([]string{
		"From: " + s.cfg.From,
		"To: " + email,
		"Subject: LRMS verification code",
		"",
		"Your verification code is " + code + ". It expires in a few minutes.",
	}, "\r\n")

	if err := smtp.SendMail(addr, auth, s.cfg.From, []string{email}, []byte(body)); err != nil {
		return fmt.Errorf("send otp mail: %w", err)
	}
	return nil
}

// LogSender writes codes to the application log instead of sending mail.
// Used in development when no SMTP relay is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender builds a log-backed sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// SendOTP logs the code at info level.
func (s *LogSender) SendOTP(ctx context.Context, email, code string) error {
	s.logger.Info("otp issued", zap.String("email", email), zap.String("code", code))
	return nil
}
