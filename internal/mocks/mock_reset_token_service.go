package mocks

import (
	"context"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockResetTokenService implements domain.ResetTokenService interface for testing
type MockResetTokenService struct {
	GenerateFunc func() (*domain.ResetToken, error)
	HashFunc     func(plaintext string) string
	ValidateFunc func(ctx context.Context, plaintext string) (*domain.Account, error)
	ClearFunc    func(ctx context.Context, account *domain.Account) error
}

// NewMockResetTokenService creates a new MockResetTokenService with default behaviors
func NewMockResetTokenService() *MockResetTokenService {
	return &MockResetTokenService{}
}

// Generate returns a fresh reset token
func (m *MockResetTokenService) Generate() (*domain.ResetToken, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc()
	}
	return &domain.ResetToken{
		Plaintext: "reset_token",
		Hash:      "hashed_reset_token",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	}, nil
}

// Hash returns the digest of a plaintext token
func (m *MockResetTokenService) Hash(plaintext string) string {
	if m.HashFunc != nil {
		return m.HashFunc(plaintext)
	}
	return "hashed_" + plaintext
}

// Validate resolves a plaintext token to its account
func (m *MockResetTokenService) Validate(ctx context.Context, plaintext string) (*domain.Account, error) {
	if m.ValidateFunc != nil {
		return m.ValidateFunc(ctx, plaintext)
	}
	return nil, domain.ErrInvalidResetToken
}

// Clear removes the account's pending reset
func (m *MockResetTokenService) Clear(ctx context.Context, account *domain.Account) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx, account)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.ResetTokenService = (*MockResetTokenService)(nil)
