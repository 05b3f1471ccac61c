package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/you/accountsvc/domain"
)

const resetTokenBytes = 32

// ResetTokenServiceImpl implements domain.ResetTokenService. Only the
// SHA-256 digest of a token is ever stored.
type ResetTokenServiceImpl struct {
	accounts domain.AccountRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewResetTokenService creates a new reset token service
func NewResetTokenService(accounts domain.AccountRepository, ttl time.Duration) *ResetTokenServiceImpl {
	return NewResetTokenServiceWithClock(accounts, ttl, time.Now)
}

// NewResetTokenServiceWithClock creates a reset token service that reads time from now.
func NewResetTokenServiceWithClock(accounts domain.AccountRepository, ttl time.Duration, now func() time.Time) *ResetTokenServiceImpl {
	return &ResetTokenServiceImpl{accounts: accounts, ttl: ttl, now: now}
}

// Generate implements domain.ResetTokenService
func (s *ResetTokenServiceImpl) Generate() (*domain.ResetToken, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, domain.NewCryptoError(err)
	}
	plaintext := hex.EncodeToString(buf)
	return &domain.ResetToken{
		Plaintext: plaintext,
		Hash:      s.Hash(plaintext),
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

// Hash implements domain.ResetTokenService
func (s *ResetTokenServiceImpl) Hash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// Validate implements domain.ResetTokenService. Unknown, cleared and
// lapsed tokens are indistinguishable to the caller.
func (s *ResetTokenServiceImpl) Validate(ctx context.Context, plaintext string) (*domain.Account, error) {
	plaintext = strings.TrimSpace(plaintext)
	if plaintext == "" {
		return nil, domain.ErrInvalidResetToken
	}

	account, err := s.accounts.FindByResetTokenHash(ctx, s.Hash(plaintext), s.now())
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidResetToken
		}
		return nil, fmt.Errorf("failed to look up reset token: %w", err)
	}
	return account, nil
}

// Clear implements domain.ResetTokenService
func (s *ResetTokenServiceImpl) Clear(ctx context.Context, account *domain.Account) error {
	if err := s.accounts.ClearPasswordReset(ctx, account.ID); err != nil {
		return err
	}
	account.PasswordResetTokenHash = nil
	account.PasswordResetExpiresAt = nil
	return nil
}

var _ domain.ResetTokenService = (*ResetTokenServiceImpl)(nil)
