package logging

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/you/accountsvc/domain"
)

// AuditLogger implements domain.AuditLogger by writing one structured
// record per event.
type AuditLogger struct {
	logger zerolog.Logger
}

// NewAuditLogger creates an audit logger on top of logger.
func NewAuditLogger(logger zerolog.Logger) *AuditLogger {
	return &AuditLogger{logger: logger.With().Str("component", "audit").Logger()}
}

// LogEvent implements domain.AuditLogger
func (a *AuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	if event == nil {
		return nil
	}

	e := a.logger.Info()
	if !event.Success {
		e = a.logger.Warn()
	}

	e = e.Str("event", string(event.EventType)).
		Bool("success", event.Success).
		Time("at", event.Timestamp)
	if event.AccountID != "" {
		e = e.Str("account_id", event.AccountID)
	}
	if event.Email != "" {
		e = e.Str("email", event.Email)
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", event.UserAgent)
	}
	if event.ErrorMsg != "" {
		e = e.Str("error", event.ErrorMsg)
	}
	if len(event.Metadata) > 0 {
		e = e.Fields(event.Metadata)
	}

	e.Msg("audit")
	return nil
}

var _ domain.AuditLogger = (*AuditLogger)(nil)
