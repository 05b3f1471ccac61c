package mocks

import (
	"strings"
	"sync"

	"github.com/you/accountsvc/domain"
)

// fakeDigestPrefix marks digests produced by the default Hash.
const fakeDigestPrefix = "digest:"

// MockPasswordService implements domain.PasswordService with a reversible
// fake digest. Hashed records every plaintext passed to Hash.
type MockPasswordService struct {
	HashFunc   func(plaintext string) (string, error)
	VerifyFunc func(digest, plaintext string) bool

	mu     sync.Mutex
	hashed []string
}

// NewMockPasswordService creates a new MockPasswordService with default behaviors
func NewMockPasswordService() *MockPasswordService {
	return &MockPasswordService{}
}

// Hash implements domain.PasswordService
func (m *MockPasswordService) Hash(plaintext string) (string, error) {
	m.mu.Lock()
	m.hashed = append(m.hashed, plaintext)
	m.mu.Unlock()

	if m.HashFunc != nil {
		return m.HashFunc(plaintext)
	}
	return fakeDigestPrefix + plaintext, nil
}

// Verify implements domain.PasswordService
func (m *MockPasswordService) Verify(digest, plaintext string) bool {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(digest, plaintext)
	}
	return strings.HasPrefix(digest, fakeDigestPrefix) && strings.TrimPrefix(digest, fakeDigestPrefix) == plaintext
}

// Hashed returns the plaintexts passed to Hash, oldest first.
func (m *MockPasswordService) Hashed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.hashed...)
}

var _ domain.PasswordService = (*MockPasswordService)(nil)
