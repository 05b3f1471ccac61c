package mocks

import (
	"context"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockOTPService implements domain.OTPService interface for testing
type MockOTPService struct {
	GenerateFunc func(ctx context.Context, accountID string) (*domain.OTPRecord, error)
	VerifyFunc   func(ctx context.Context, accountID, code string) error
	DiscardFunc  func(ctx context.Context, accountID, otpID string) error
}

// NewMockOTPService creates a new MockOTPService with default behaviors
func NewMockOTPService() *MockOTPService {
	return &MockOTPService{}
}

// Generate issues a code for the account
func (m *MockOTPService) Generate(ctx context.Context, accountID string) (*domain.OTPRecord, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, accountID)
	}
	// Default behavior: return a fixed code
	now := time.Now()
	return &domain.OTPRecord{
		ID:        "otp_" + accountID,
		AccountID: accountID,
		Code:      "123456", // Mock OTP code for testing
		CreatedAt: now,
		ExpiresAt: now.Add(10 * time.Minute),
	}, nil
}

// Verify checks a code for the account
func (m *MockOTPService) Verify(ctx context.Context, accountID, code string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, accountID, code)
	}
	// Default behavior: accept "123456" as valid OTP
	if code != "123456" {
		return domain.ErrOTPNotFound
	}
	return nil
}

// Discard removes an issued code
func (m *MockOTPService) Discard(ctx context.Context, accountID, otpID string) error {
	if m.DiscardFunc != nil {
		return m.DiscardFunc(ctx, accountID, otpID)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.OTPService = (*MockOTPService)(nil)
