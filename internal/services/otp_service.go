package services

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/you/accountsvc/domain"
)

const (
	otpMin  = 100000
	otpSpan = 900000
)

// OTPServiceImpl implements domain.OTPService on top of an OTP repository
type OTPServiceImpl struct {
	repo   domain.OTPRepository
	config OTPConfig
	logger zerolog.Logger
	now    func() time.Time
}

type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
}

// NewOTPService creates a new OTP service
func NewOTPService(repo domain.OTPRepository, config OTPConfig, logger zerolog.Logger) *OTPServiceImpl {
	return NewOTPServiceWithClock(repo, config, logger, time.Now)
}

// NewOTPServiceWithClock creates an OTP service that reads time from now.
func NewOTPServiceWithClock(repo domain.OTPRepository, config OTPConfig, logger zerolog.Logger, now func() time.Time) *OTPServiceImpl {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	return &OTPServiceImpl{
		repo:   repo,
		config: config,
		logger: logger.With().Str("component", "otp").Logger(),
		now:    now,
	}
}

// Generate implements domain.OTPService. A new code replaces any code
// previously issued to the account.
func (s *OTPServiceImpl) Generate(ctx context.Context, accountID string) (*domain.OTPRecord, error) {
	code, err := generateSecureCode()
	if err != nil {
		return nil, domain.NewCryptoError(err)
	}

	now := s.now()
	record := &domain.OTPRecord{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.TTL),
	}

	if err := s.repo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store otp: %w", err)
	}

	s.logger.Debug().Str("account_id", accountID).Time("expires_at", record.ExpiresAt).Msg("otp issued")
	return record, nil
}

// Verify implements domain.OTPService. A matching, unexpired code is
// consumed; wrong codes count towards MaxAttempts, after which the code is
// destroyed.
func (s *OTPServiceImpl) Verify(ctx context.Context, accountID, code string) error {
	record, err := s.repo.Find(ctx, accountID)
	if err != nil {
		return err
	}

	now := s.now()
	if record.Expired(now) {
		if _, err := s.repo.DeleteIfID(ctx, accountID, record.ID); err != nil {
			s.logger.Warn().Err(err).Str("account_id", accountID).Msg("failed to remove expired otp")
		}
		return domain.ErrOTPExpired
	}

	if subtle.ConstantTimeCompare([]byte(record.Code), []byte(code)) != 1 {
		attempts, err := s.repo.IncrementAttempts(ctx, accountID, record.ExpiresAt.Sub(now))
		if err != nil {
			return fmt.Errorf("failed to count otp attempt: %w", err)
		}
		if attempts >= int64(s.config.MaxAttempts) {
			if _, err := s.repo.DeleteIfID(ctx, accountID, record.ID); err != nil {
				return fmt.Errorf("failed to revoke otp: %w", err)
			}
			s.logger.Info().Str("account_id", accountID).Int64("attempts", attempts).Msg("otp revoked after too many attempts")
			return domain.ErrOTPMaxAttempts
		}
		return domain.ErrOTPNotFound
	}

	consumed, err := s.repo.DeleteIfID(ctx, accountID, record.ID)
	if err != nil {
		return fmt.Errorf("failed to consume otp: %w", err)
	}
	if !consumed {
		// replaced or consumed by a concurrent request
		return domain.ErrOTPNotFound
	}
	return nil
}

// Discard implements domain.OTPService. It only removes the record with
// otpID, leaving a newer code in place.
func (s *OTPServiceImpl) Discard(ctx context.Context, accountID, otpID string) error {
	if _, err := s.repo.DeleteIfID(ctx, accountID, otpID); err != nil {
		return fmt.Errorf("failed to discard otp: %w", err)
	}
	return nil
}

// IsOTPRejection reports whether err is one of the OTP store's rejections.
func IsOTPRejection(err error) bool {
	return errors.Is(err, domain.ErrOTPNotFound) ||
		errors.Is(err, domain.ErrOTPExpired) ||
		errors.Is(err, domain.ErrOTPMaxAttempts)
}

// generateSecureCode returns a uniformly distributed six digit code
func generateSecureCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpSpan))
	if err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}
	return strconv.FormatInt(otpMin+n.Int64(), 10), nil
}

var _ domain.OTPService = (*OTPServiceImpl)(nil)
