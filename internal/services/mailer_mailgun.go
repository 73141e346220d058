package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	pkglogger "github.com/ecotrajet/ecotrajet/pkg/logger"
	"github.com/mailgun/mailgun-go/v4"
)

// MailgunMailer sends email through the Mailgun HTTP API
type MailgunMailer struct {
	mg          *mailgun.MailgunImpl
	fromAddress string
	logger      *slog.Logger
}

func NewMailgunMailer(domain, apiKey, apiBase, fromAddress string, logger *slog.Logger) *MailgunMailer {
	mg := mailgun.NewMailgun(domain, apiKey)
	if apiBase != "" {
		mg.SetAPIBase(apiBase)
	}

	return &MailgunMailer{
		mg:          mg,
		fromAddress: fromAddress,
		logger:      logger,
	}
}

func (m *MailgunMailer) Send(ctx context.Context, msg EmailMessage) error {
	message := mailgun.NewMessage(m.fromAddress, msg.Subject, msg.TextBody, msg.To)
	message.SetHtml(msg.HTMLBody)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, id, err := m.mg.Send(ctx, message)
	if err != nil {
		m.logger.Error("failed to send email via Mailgun",
			slog.String("to", pkglogger.SanitizedEmail(msg.To)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent",
		slog.String("provider", "mailgun"),
		slog.String("to", pkglogger.SanitizedEmail(msg.To)),
		slog.String("message_id", id))

	return nil
}
