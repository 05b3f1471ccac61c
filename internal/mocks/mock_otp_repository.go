package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/you/accountsvc/domain"
)

// MockOTPRepository implements domain.OTPRepository interface for testing.
// Without overrides it behaves as an in-memory store keyed by account.
type MockOTPRepository struct {
	SaveFunc              func(ctx context.Context, record *domain.OTPRecord) error
	FindFunc              func(ctx context.Context, accountID string) (*domain.OTPRecord, error)
	DeleteFunc            func(ctx context.Context, accountID string) error
	DeleteIfIDFunc        func(ctx context.Context, accountID, otpID string) (bool, error)
	IncrementAttemptsFunc func(ctx context.Context, accountID string, ttl time.Duration) (int64, error)

	mu       sync.Mutex
	records  map[string]domain.OTPRecord
	attempts map[string]int64
}

// NewMockOTPRepository creates a new MockOTPRepository with default behaviors
func NewMockOTPRepository() *MockOTPRepository {
	return &MockOTPRepository{
		records:  make(map[string]domain.OTPRecord),
		attempts: make(map[string]int64),
	}
}

// Save stores a record, replacing any previous one for the account
func (m *MockOTPRepository) Save(ctx context.Context, record *domain.OTPRecord) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[record.AccountID] = *record
	delete(m.attempts, record.AccountID)
	return nil
}

// Find returns the account's record
func (m *MockOTPRepository) Find(ctx context.Context, accountID string) (*domain.OTPRecord, error) {
	if m.FindFunc != nil {
		return m.FindFunc(ctx, accountID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[accountID]
	if !ok {
		return nil, domain.ErrOTPNotFound
	}
	return &record, nil
}

// Delete removes the account's record
func (m *MockOTPRepository) Delete(ctx context.Context, accountID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, accountID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, accountID)
	delete(m.attempts, accountID)
	return nil
}

// DeleteIfID removes the account's record if it still has otpID
func (m *MockOTPRepository) DeleteIfID(ctx context.Context, accountID, otpID string) (bool, error) {
	if m.DeleteIfIDFunc != nil {
		return m.DeleteIfIDFunc(ctx, accountID, otpID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[accountID]
	if !ok || record.ID != otpID {
		return false, nil
	}
	delete(m.records, accountID)
	delete(m.attempts, accountID)
	return true, nil
}

// IncrementAttempts counts a failed attempt
func (m *MockOTPRepository) IncrementAttempts(ctx context.Context, accountID string, ttl time.Duration) (int64, error) {
	if m.IncrementAttemptsFunc != nil {
		return m.IncrementAttemptsFunc(ctx, accountID, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[accountID]++
	return m.attempts[accountID], nil
}

// Has reports whether a record is stored for the account (test helper)
func (m *MockOTPRepository) Has(accountID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[accountID]
	return ok
}

// Compile-time interface compliance verification
var _ domain.OTPRepository = (*MockOTPRepository)(nil)
