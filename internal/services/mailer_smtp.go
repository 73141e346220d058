package services

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/ecotrajet/ecotrajet/internal/config"
	pkglogger "github.com/ecotrajet/ecotrajet/pkg/logger"
	"github.com/knadh/smtppool"
)

// SMTPMailer sends email over a pooled set of SMTP connections
type SMTPMailer struct {
	pool        *smtppool.Pool
	fromAddress string
	logger      *slog.Logger
}

func NewSMTPMailer(cfg config.EmailConfig, logger *slog.Logger) (*SMTPMailer, error) {
	var auth smtp.Auth
	if cfg.SMTPUsername != "" || cfg.SMTPPassword != "" {
		auth = smtp.PlainAuth("", cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPHost)
	}

	var tlsConfig *tls.Config
	if cfg.SMTPTLS {
		tlsConfig = &tls.Config{ServerName: cfg.SMTPHost, MinVersion: tls.VersionTLS12}
	}

	pool, err := smtppool.New(smtppool.Opt{
		Host:            cfg.SMTPHost,
		Port:            cfg.SMTPPort,
		MaxConns:        cfg.SMTPMaxConns,
		IdleTimeout:     15 * time.Second,
		PoolWaitTimeout: 10 * time.Second,
		TLSConfig:       tlsConfig,
		Auth:            auth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create smtp pool: %w", err)
	}

	return &SMTPMailer{
		pool:        pool,
		fromAddress: cfg.From,
		logger:      logger,
	}, nil
}

// Send ignores ctx; the pool enforces its own wait timeout
func (m *SMTPMailer) Send(ctx context.Context, msg EmailMessage) error {
	err := m.pool.Send(smtppool.Email{
		From:    m.fromAddress,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    []byte(msg.TextBody),
		HTML:    []byte(msg.HTMLBody),
	})
	if err != nil {
		m.logger.Error("failed to send email via SMTP",
			slog.String("to", pkglogger.SanitizedEmail(msg.To)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent",
		slog.String("provider", "smtp"),
		slog.String("to", pkglogger.SanitizedEmail(msg.To)))
	return nil
}

func (m *SMTPMailer) Close() {
	m.pool.Close()
}
