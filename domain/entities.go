package domain

import (
	"strings"
	"time"
)

// Account roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account represents a registered user account.
// Credential material is tagged out of every JSON representation.
type Account struct {
	ID                     string     `json:"id"`
	Email                  string     `json:"email"`
	Username               *string    `json:"username,omitempty"`
	Name                   string     `json:"name,omitempty"`
	Role                   string     `json:"role"`
	PasswordHash           string     `json:"-"`
	Verified               bool       `json:"verified"`
	PasswordChangedAt      *time.Time `json:"-"`
	PasswordResetTokenHash *string    `json:"-"`
	PasswordResetExpiresAt *time.Time `json:"-"`
	CreatedAt              time.Time  `json:"createdAt"`
	UpdatedAt              time.Time  `json:"updatedAt"`
}

// ChangedPasswordAfter reports whether the password was changed after a
// session token issued at issuedAt, compared in milliseconds.
func (a *Account) ChangedPasswordAfter(issuedAt time.Time) bool {
	if a.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.UnixMilli() < a.PasswordChangedAt.UnixMilli()
}

// HasPendingReset reports whether a reset token is stored and not yet lapsed.
func (a *Account) HasPendingReset(now time.Time) bool {
	return a.PasswordResetTokenHash != nil && a.PasswordResetExpiresAt != nil &&
		a.PasswordResetExpiresAt.After(now)
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AccountPatch holds the optional per-field updates applied to an account.
// A nil field is left untouched.
type AccountPatch struct {
	Name     *string
	Email    *string
	Username *string
	Verified *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p AccountPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Username == nil && p.Verified == nil
}

// OTPRecord is a short-lived email verification code owned by an account.
type OTPRecord struct {
	ID        string
	AccountID string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the code is no longer accepted at now.
func (o *OTPRecord) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}

// ResetToken is a freshly generated password reset secret.
// Only Hash and ExpiresAt are ever persisted.
type ResetToken struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// TokenClaims represents the verified content of a session token
type TokenClaims struct {
	AccountID string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// AuthResult represents a granted session
type AuthResult struct {
	Account   *Account
	Token     string
	ExpiresAt time.Time
}

// SignoutInstruction tells the transport how to overwrite the session artifact.
type SignoutInstruction struct {
	Value     string
	ExpiresAt time.Time
}

// SignupInput represents registration data
type SignupInput struct {
	Email           string `validate:"required,email"`
	Password        string `validate:"required,min=8,max=16"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
	Username        string `validate:"omitempty,min=3,max=30,alphanum"`
	Name            string `validate:"omitempty,max=100"`
}

// Normalize trims input the way the store would before validation.
func (in *SignupInput) Normalize() {
	in.Email = NormalizeEmail(in.Email)
	in.Password = strings.TrimSpace(in.Password)
	in.PasswordConfirm = strings.TrimSpace(in.PasswordConfirm)
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
}

// PasswordInput represents a new password and its confirmation
type PasswordInput struct {
	Password        string `validate:"required,min=8,max=16"`
	PasswordConfirm string `validate:"required,eqfield=Password"`
}

// Normalize trims both values.
func (in *PasswordInput) Normalize() {
	in.Password = strings.TrimSpace(in.Password)
	in.PasswordConfirm = strings.TrimSpace(in.PasswordConfirm)
}

// PasswordChangeInput represents an authenticated password update
type PasswordChangeInput struct {
	CurrentPassword string
	PasswordInput
}

// ProfileInput holds the whitelisted profile fields for validation.
type ProfileInput struct {
	Email    string `validate:"omitempty,email"`
	Username string `validate:"omitempty,min=3,max=30,alphanum"`
	Name     string `validate:"omitempty,max=100"`
}
