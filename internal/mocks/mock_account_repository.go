package mocks

import (
	"context"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockAccountRepository implements domain.AccountRepository interface for testing
type MockAccountRepository struct {
	CreateFunc               func(ctx context.Context, account *domain.Account) error
	FindByIDFunc             func(ctx context.Context, id string) (*domain.Account, error)
	FindByEmailFunc          func(ctx context.Context, email string) (*domain.Account, error)
	FindByUsernameFunc       func(ctx context.Context, username string) (*domain.Account, error)
	FindByResetTokenHashFunc func(ctx context.Context, hash string, now time.Time) (*domain.Account, error)
	UpdateFieldsFunc         func(ctx context.Context, id string, patch domain.AccountPatch) (*domain.Account, error)
	SetPasswordFunc          func(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetPasswordResetFunc     func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearPasswordResetFunc   func(ctx context.Context, id string) error
	DeleteFunc               func(ctx context.Context, id string) error
}

// NewMockAccountRepository creates a new MockAccountRepository with default behaviors
func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{}
}

// Create stores a new account
func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	// Default behavior: success
	return nil
}

// FindByID finds an account by id
func (m *MockAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	// Default behavior: not found
	return nil, domain.ErrAccountNotFound
}

// FindByEmail finds an account by email
func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, domain.ErrAccountNotFound
}

// FindByUsername finds an account by username
func (m *MockAccountRepository) FindByUsername(ctx context.Context, username string) (*domain.Account, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	return nil, domain.ErrAccountNotFound
}

// FindByResetTokenHash finds the account holding an unexpired reset digest
func (m *MockAccountRepository) FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*domain.Account, error) {
	if m.FindByResetTokenHashFunc != nil {
		return m.FindByResetTokenHashFunc(ctx, hash, now)
	}
	return nil, domain.ErrAccountNotFound
}

// UpdateFields applies a patch
func (m *MockAccountRepository) UpdateFields(ctx context.Context, id string, patch domain.AccountPatch) (*domain.Account, error) {
	if m.UpdateFieldsFunc != nil {
		return m.UpdateFieldsFunc(ctx, id, patch)
	}
	return nil, domain.ErrAccountNotFound
}

// SetPassword stores a new password digest
func (m *MockAccountRepository) SetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	if m.SetPasswordFunc != nil {
		return m.SetPasswordFunc(ctx, id, passwordHash, changedAt)
	}
	return nil
}

// SetPasswordReset stores a reset digest and expiry
func (m *MockAccountRepository) SetPasswordReset(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	if m.SetPasswordResetFunc != nil {
		return m.SetPasswordResetFunc(ctx, id, tokenHash, expiresAt)
	}
	return nil
}

// ClearPasswordReset removes the reset digest and expiry
func (m *MockAccountRepository) ClearPasswordReset(ctx context.Context, id string) error {
	if m.ClearPasswordResetFunc != nil {
		return m.ClearPasswordResetFunc(ctx, id)
	}
	return nil
}

// Delete removes an account
func (m *MockAccountRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AccountRepository = (*MockAccountRepository)(nil)
