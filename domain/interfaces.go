package domain

import (
	"context"
	"time"
)

// AccountRepository defines account data access operations
type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByResetTokenHash(ctx context.Context, hash string, now time.Time) (*Account, error)
	UpdateFields(ctx context.Context, id string, patch AccountPatch) (*Account, error)
	SetPassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetPasswordReset(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	ClearPasswordReset(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// OTPRepository defines OTP record storage. Records are keyed by account,
// so saving a new record replaces the previous one.
type OTPRepository interface {
	Save(ctx context.Context, record *OTPRecord) error
	Find(ctx context.Context, accountID string) (*OTPRecord, error)
	Delete(ctx context.Context, accountID string) error
	DeleteIfID(ctx context.Context, accountID, otpID string) (bool, error)
	IncrementAttempts(ctx context.Context, accountID string, ttl time.Duration) (int64, error)
}

// AccountService defines the account lifecycle
type AccountService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	VerifyEmail(ctx context.Context, token, otp string) (*Account, error)
	Signin(ctx context.Context, email, password string) (*AuthResult, error)
	Signout(ctx context.Context) *SignoutInstruction
	Protect(ctx context.Context, token string) (*Account, error)
	RestrictTo(account *Account, roles ...string) error
	GetProfile(ctx context.Context, accountID string) (*Account, error)
	UpdateProfile(ctx context.Context, account *Account, fields map[string]any) (*Account, error)
	DeleteProfile(ctx context.Context, account *Account) error
	UpdatePassword(ctx context.Context, account *Account, in PasswordChangeInput) (*AuthResult, error)
	ForgotPassword(ctx context.Context, username string) error
	ResetPassword(ctx context.Context, token string, in PasswordInput) (*AuthResult, error)
}

// OTPService defines OTP operations
type OTPService interface {
	Generate(ctx context.Context, accountID string) (*OTPRecord, error)
	Verify(ctx context.Context, accountID, code string) error
	Discard(ctx context.Context, accountID, otpID string) error
}

// ResetTokenService defines password reset token operations
type ResetTokenService interface {
	Generate() (*ResetToken, error)
	Hash(plaintext string) string
	Validate(ctx context.Context, plaintext string) (*Account, error)
	Clear(ctx context.Context, account *Account) error
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// TokenService defines session token operations
type TokenService interface {
	Issue(accountID string) (string, *TokenClaims, error)
	Verify(token string) (*TokenClaims, error)
}

// NotificationService delivers messages to an account holder
type NotificationService interface {
	Send(ctx context.Context, to, subject, body string) error
}

// PolicyService defines route authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
}
