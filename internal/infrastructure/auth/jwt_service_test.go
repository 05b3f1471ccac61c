package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/you/accountsvc/domain"
)

const testSecret = "test-jwt-secret-for-account-service"

func TestJWTServiceImpl_IssueAndVerify(t *testing.T) {
	svc := NewJWTService(testSecret, "accountsvc", time.Hour)

	token, issued, err := svc.Issue("6c1f7c0e-8f8e-4a52-9a0b-0d6c6b9a1f11")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.AccountID != "6c1f7c0e-8f8e-4a52-9a0b-0d6c6b9a1f11" {
		t.Errorf("expected account id round trip, got %q", claims.AccountID)
	}
	if !claims.IssuedAt.Equal(issued.IssuedAt) {
		t.Errorf("expected issued at %v, got %v", issued.IssuedAt, claims.IssuedAt)
	}
	if !claims.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Errorf("expected expiry %v, got %v", issued.ExpiresAt, claims.ExpiresAt)
	}
	if validity := claims.ExpiresAt.Sub(claims.IssuedAt); validity > time.Hour || validity <= time.Hour-time.Second {
		t.Errorf("expected about one hour validity, got %v", validity)
	}
	if claims.TokenID == "" {
		t.Error("expected a token id")
	}
}

func TestJWTServiceImpl_UniqueTokens(t *testing.T) {
	svc := NewJWTService(testSecret, "accountsvc", time.Hour)

	first, _, err := svc.Issue("acc")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	second, _, err := svc.Issue("acc")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if first == second {
		t.Error("tokens issued in the same second should still differ")
	}
}

func TestJWTServiceImpl_VerifyFailures(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return issuedAt }
	issuer := NewJWTServiceWithClock(testSecret, "accountsvc", time.Hour, clock)

	valid, _, err := issuer.Issue("acc-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	tests := []struct {
		name          string
		verifier      domain.TokenService
		token         func() string
		expectedError error
	}{
		{
			name:          "expired token",
			verifier:      NewJWTServiceWithClock(testSecret, "accountsvc", time.Hour, func() time.Time { return issuedAt.Add(2 * time.Hour) }),
			token:         func() string { return valid },
			expectedError: domain.ErrTokenExpired,
		},
		{
			name:     "tampered payload",
			verifier: issuer,
			token: func() string {
				parts := strings.Split(valid, ".")
				forged, _, _ := NewJWTServiceWithClock("other-secret", "accountsvc", time.Hour, clock).Issue("acc-2")
				return parts[0] + "." + strings.Split(forged, ".")[1] + "." + parts[2]
			},
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name:          "wrong secret",
			verifier:      NewJWTServiceWithClock("another-secret", "accountsvc", time.Hour, clock),
			token:         func() string { return valid },
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name:          "wrong issuer",
			verifier:      NewJWTServiceWithClock(testSecret, "someone-else", time.Hour, clock),
			token:         func() string { return valid },
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name:          "garbage",
			verifier:      issuer,
			token:         func() string { return "not.a.token" },
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name:     "missing subject",
			verifier: issuer,
			token: func() string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
					Issuer:    "accountsvc",
					IssuedAt:  jwt.NewNumericDate(issuedAt),
					ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
				})
				s, _ := tok.SignedString([]byte(testSecret))
				return s
			},
			expectedError: domain.ErrTokenInvalid,
		},
		{
			name:     "none algorithm",
			verifier: issuer,
			token: func() string {
				tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
					Subject:   "acc-1",
					Issuer:    "accountsvc",
					IssuedAt:  jwt.NewNumericDate(issuedAt),
					ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
				})
				s, _ := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
				return s
			},
			expectedError: domain.ErrTokenInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tt.verifier.Verify(tt.token())
			if err == nil {
				t.Fatalf("expected error %v, got claims %+v", tt.expectedError, claims)
			}
			if !errors.Is(err, tt.expectedError) {
				t.Errorf("expected error %v, got %v", tt.expectedError, err)
			}
		})
	}
}

func TestJWTServiceImpl_MillisecondIssueTime(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 10, 0, 0, 234_567_000, time.UTC)
	svc := NewJWTServiceWithClock(testSecret, "accountsvc", time.Hour, func() time.Time { return issuedAt })

	token, issued, err := svc.Issue("acc-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	want := issuedAt.Truncate(time.Millisecond)
	if !issued.IssuedAt.Equal(want) {
		t.Errorf("expected issued at %v, got %v", want, issued.IssuedAt)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !claims.IssuedAt.Equal(want) {
		t.Errorf("expected millisecond issue time %v after verify, got %v", want, claims.IssuedAt)
	}
}

func TestJWTServiceImpl_RejectsMismatchedMillisecondClaim(t *testing.T) {
	issuedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := NewJWTServiceWithClock(testSecret, "accountsvc", time.Hour, func() time.Time { return issuedAt })

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "acc-1",
			Issuer:    "accountsvc",
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour)),
		},
		IssuedAtMilli: issuedAt.Add(-time.Hour).UnixMilli(),
	})
	s, err := tok.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.Verify(s); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("expected %v, got %v", domain.ErrTokenInvalid, err)
	}
}

func TestJWTServiceImpl_ExpiredAndInvalidAreDistinct(t *testing.T) {
	if errors.Is(domain.ErrTokenExpired, domain.ErrTokenInvalid) {
		t.Fatal("expired and invalid token errors must be distinguishable")
	}
}
