package mocks

import (
	"context"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockAccountService implements domain.AccountService interface for testing
type MockAccountService struct {
	SignupFunc         func(ctx context.Context, in domain.SignupInput) (*domain.AuthResult, error)
	VerifyEmailFunc    func(ctx context.Context, token, otp string) (*domain.Account, error)
	SigninFunc         func(ctx context.Context, email, password string) (*domain.AuthResult, error)
	SignoutFunc        func(ctx context.Context) *domain.SignoutInstruction
	ProtectFunc        func(ctx context.Context, token string) (*domain.Account, error)
	RestrictToFunc     func(account *domain.Account, roles ...string) error
	GetProfileFunc     func(ctx context.Context, accountID string) (*domain.Account, error)
	UpdateProfileFunc  func(ctx context.Context, account *domain.Account, fields map[string]any) (*domain.Account, error)
	DeleteProfileFunc  func(ctx context.Context, account *domain.Account) error
	UpdatePasswordFunc func(ctx context.Context, account *domain.Account, in domain.PasswordChangeInput) (*domain.AuthResult, error)
	ForgotPasswordFunc func(ctx context.Context, username string) error
	ResetPasswordFunc  func(ctx context.Context, token string, in domain.PasswordInput) (*domain.AuthResult, error)
}

// NewMockAccountService creates a new MockAccountService with default behaviors
func NewMockAccountService() *MockAccountService {
	return &MockAccountService{}
}

func (m *MockAccountService) Signup(ctx context.Context, in domain.SignupInput) (*domain.AuthResult, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, in)
	}
	return nil, domain.NewInternalError(nil)
}

func (m *MockAccountService) VerifyEmail(ctx context.Context, token, otp string) (*domain.Account, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, token, otp)
	}
	return nil, domain.ErrIncorrectOrExpiredOTP
}

func (m *MockAccountService) Signin(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	if m.SigninFunc != nil {
		return m.SigninFunc(ctx, email, password)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *MockAccountService) Signout(ctx context.Context) *domain.SignoutInstruction {
	if m.SignoutFunc != nil {
		return m.SignoutFunc(ctx)
	}
	return &domain.SignoutInstruction{Value: "loggedout", ExpiresAt: time.Now().Add(10 * time.Second)}
}

func (m *MockAccountService) Protect(ctx context.Context, token string) (*domain.Account, error) {
	if m.ProtectFunc != nil {
		return m.ProtectFunc(ctx, token)
	}
	return nil, domain.ErrNotAuthenticated
}

func (m *MockAccountService) RestrictTo(account *domain.Account, roles ...string) error {
	if m.RestrictToFunc != nil {
		return m.RestrictToFunc(account, roles...)
	}
	// Default behavior: allow when the account role is listed
	if account != nil {
		for _, r := range roles {
			if r == account.Role {
				return nil
			}
		}
	}
	return domain.ErrForbidden
}

func (m *MockAccountService) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, accountID)
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, account *domain.Account, fields map[string]any) (*domain.Account, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, account, fields)
	}
	return account, nil
}

func (m *MockAccountService) DeleteProfile(ctx context.Context, account *domain.Account) error {
	if m.DeleteProfileFunc != nil {
		return m.DeleteProfileFunc(ctx, account)
	}
	return nil
}

func (m *MockAccountService) UpdatePassword(ctx context.Context, account *domain.Account, in domain.PasswordChangeInput) (*domain.AuthResult, error) {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, account, in)
	}
	return nil, domain.ErrCurrentPasswordWrong
}

func (m *MockAccountService) ForgotPassword(ctx context.Context, username string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, username)
	}
	return nil
}

func (m *MockAccountService) ResetPassword(ctx context.Context, token string, in domain.PasswordInput) (*domain.AuthResult, error) {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, in)
	}
	return nil, domain.ErrInvalidResetToken
}

// Compile-time interface compliance verification
var _ domain.AccountService = (*MockAccountService)(nil)
