package mocks

import (
	"strings"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockTokenService implements domain.TokenService interface for testing
type MockTokenService struct {
	IssueFunc  func(accountID string) (string, *domain.TokenClaims, error)
	VerifyFunc func(token string) (*domain.TokenClaims, error)
}

// NewMockTokenService creates a new MockTokenService with default behaviors
func NewMockTokenService() *MockTokenService {
	return &MockTokenService{}
}

// Issue issues a session token for the account
func (m *MockTokenService) Issue(accountID string) (string, *domain.TokenClaims, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(accountID)
	}
	// Default behavior: return a mock token carrying the account id
	now := time.Now().Truncate(time.Second)
	return "token_" + accountID, &domain.TokenClaims{
		AccountID: accountID,
		TokenID:   "jti_" + accountID,
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}, nil
}

// Verify validates a token and returns claims
func (m *MockTokenService) Verify(token string) (*domain.TokenClaims, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(token)
	}
	// Default behavior: accept tokens produced by the default Issue
	if !strings.HasPrefix(token, "token_") {
		return nil, domain.ErrTokenInvalid
	}
	now := time.Now().Truncate(time.Second)
	return &domain.TokenClaims{
		AccountID: strings.TrimPrefix(token, "token_"),
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}, nil
}

// Compile-time interface compliance verification
var _ domain.TokenService = (*MockTokenService)(nil)
