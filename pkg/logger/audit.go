package logger

import (
	"context"
	"log/slog"
)

// AuditEvent is one security-relevant authentication outcome
type AuditEvent struct {
	EventType     string
	UserID        string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
}

// AuditLogger writes audit records as "audit" messages tagged with audit_type.
// Failures are logged at warn level so they can be alerted on separately.
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

func (al *AuditLogger) emit(success bool, auditType, eventType string, attrs ...slog.Attr) {
	level := slog.LevelInfo
	if !success {
		level = slog.LevelWarn
	}
	base := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", eventType),
		slog.Bool("success", success),
	}
	al.logger.LogAttrs(context.Background(), level, "audit", append(base, attrs...)...)
}

// LogAuthAttempt records a login, lockout or logout outcome
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	var attrs []slog.Attr
	if event.UserID != "" {
		attrs = append(attrs, slog.String("user_id", event.UserID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	al.emit(event.Success, "auth", event.EventType, attrs...)
}

func (al *AuditLogger) LogPasswordChange(userID, ipAddress string, success bool) {
	attrs := []slog.Attr{slog.String("user_id", userID)}
	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}
	al.emit(success, "password", "password_change", attrs...)
}

// LogAccountAction records account lifecycle changes (registration, verification, role changes)
func (al *AuditLogger) LogAccountAction(eventType, userID, ipAddress string, metadata map[string]string) {
	attrs := []slog.Attr{slog.String("user_id", userID)}
	if ipAddress != "" {
		attrs = append(attrs, slog.String("ip_address", ipAddress))
	}
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	al.emit(true, "account", eventType, attrs...)
}
