package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ecotrajet/ecotrajet/internal/config"
	pkglogger "github.com/ecotrajet/ecotrajet/pkg/logger"
)

// EmailMessage is a single transactional email with HTML and plain-text bodies
type EmailMessage struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Mailer delivers transactional email. Implementations must be safe for concurrent use.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// NewMailer builds the mailer selected by EMAIL_PROVIDER
func NewMailer(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (Mailer, error) {
	switch cfg.Provider {
	case config.EmailProviderSES:
		return NewSESMailer(ctx, cfg.SESRegion, cfg.From, logger)
	case config.EmailProviderMailgun:
		return NewMailgunMailer(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunAPIBase, cfg.From, logger), nil
	case config.EmailProviderSMTP:
		return NewSMTPMailer(cfg, logger)
	case config.EmailProviderLog:
		return NewLogMailer(logger), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

// LogMailer writes messages to the log instead of sending them. Development only.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg EmailMessage) error {
	m.logger.InfoContext(ctx, "email not sent (log mailer)",
		slog.String("to", pkglogger.SanitizedEmail(msg.To)),
		slog.String("subject", msg.Subject),
		slog.String("body", msg.TextBody))
	return nil
}

// AccountLinks renders the frontend URLs embedded in account emails
type AccountLinks struct {
	FrontendURL string
}

func (l AccountLinks) VerifyEmail(uid, token string) string {
	return fmt.Sprintf("%s/verify-email/%s/%s/", l.FrontendURL, uid, token)
}

func (l AccountLinks) ResetPassword(uid, token string) string {
	return fmt.Sprintf("%s/reset-password/%s/%s/", l.FrontendURL, uid, token)
}

func verificationEmail(to, link string) EmailMessage {
	return EmailMessage{
		To:      to,
		Subject: "Verify Your Email",
		TextBody: fmt.Sprintf(`Welcome to EcoTrajet!

Click the link to verify your email: %s

If you did not create an account, you can ignore this email.
`, link),
		HTMLBody: fmt.Sprintf(emailLayout, "Verify Your Email",
			"Welcome to EcoTrajet! Please confirm your email address to activate your account.",
			link, "Verify Email Address", link,
			"If you did not create an account, you can ignore this email."),
	}
}

func passwordResetEmail(to, link string) EmailMessage {
	return EmailMessage{
		To:      to,
		Subject: "Password Reset Request",
		TextBody: fmt.Sprintf(`Click the link to reset your password: %s

If you did not request a password reset, you can ignore this email. Your password will not change.
`, link),
		HTMLBody: fmt.Sprintf(emailLayout, "Password Reset Request",
			"We received a request to reset the password of your EcoTrajet account.",
			link, "Reset Password", link,
			"If you did not request a password reset, you can ignore this email. Your password will not change."),
	}
}

// emailLayout args: title, intro, href, button label, raw link, footer note
const emailLayout = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #e8f5e9; padding: 20px; text-align: center; border-radius: 4px; }
        .button { display: inline-block; background-color: #2e7d32; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1>%s</h1></div>
        <p>%s</p>
        <p><a href="%s" class="button">%s</a></p>
        <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
        <div class="footer"><p>%s</p><p>This is an automated message. Please do not reply to this email.</p></div>
    </div>
</body>
</html>
`
