package notifications

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/config"
)

// LogServiceImpl implements domain.NotificationService by logging the
// message instead of delivering it. Used when SMTP is not configured.
// Bodies carry OTP codes and reset tokens, so they are only written when
// revealBody is set.
type LogServiceImpl struct {
	logger     zerolog.Logger
	revealBody bool
}

// NewLogService creates a log-only notification service
func NewLogService(logger zerolog.Logger, revealBody bool) *LogServiceImpl {
	return &LogServiceImpl{
		logger:     logger.With().Str("component", "mail").Logger(),
		revealBody: revealBody,
	}
}

// Send implements domain.NotificationService
func (l *LogServiceImpl) Send(_ context.Context, to, subject, body string) error {
	e := l.logger.Info().
		Str("to", to).
		Str("subject", subject)
	if l.revealBody {
		e = e.Str("body", body)
	} else {
		e = e.Int("body_len", len(body))
	}
	e.Msg("[MOCK EMAIL] delivery skipped, smtp not configured")
	return nil
}

// NewNotificationService selects the SMTP sink when a host is configured
// and the log sink otherwise. development controls whether the log sink
// writes message bodies.
func NewNotificationService(cfg config.SMTPSettings, development bool, logger zerolog.Logger) domain.NotificationService {
	if cfg.Enabled() {
		return NewSMTPService(cfg)
	}
	logger.Warn().Msg("smtp host not configured, emails will only be logged")
	return NewLogService(logger, development)
}

var _ domain.NotificationService = (*LogServiceImpl)(nil)
