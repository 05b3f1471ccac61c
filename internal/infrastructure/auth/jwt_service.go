package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/you/accountsvc/domain"
)

// sessionClaims adds the issue time in milliseconds; the registered iat only
// carries whole seconds.
type sessionClaims struct {
	jwt.RegisteredClaims
	IssuedAtMilli int64 `json:"iat_ms,omitempty"`
}

// JWTServiceImpl implements domain.TokenService
type JWTServiceImpl struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewJWTService creates a new JWT service
func NewJWTService(secretKey string, issuer string, ttl time.Duration) domain.TokenService {
	return NewJWTServiceWithClock(secretKey, issuer, ttl, time.Now)
}

// NewJWTServiceWithClock creates a JWT service that reads time from now.
func NewJWTServiceWithClock(secretKey string, issuer string, ttl time.Duration, now func() time.Time) domain.TokenService {
	return &JWTServiceImpl{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		ttl:       ttl,
		now:       now,
	}
}

// generateJTI creates a unique JWT ID
func (j *JWTServiceImpl) generateJTI() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// Issue implements domain.TokenService
func (j *JWTServiceImpl) Issue(accountID string) (string, *domain.TokenClaims, error) {
	jti, err := j.generateJTI()
	if err != nil {
		return "", nil, domain.NewCryptoError(err)
	}

	now := j.now().Truncate(time.Millisecond)
	expiresAt := now.Truncate(time.Second).Add(j.ttl)
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
		IssuedAtMilli: now.UnixMilli(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secretKey)
	if err != nil {
		return "", nil, domain.NewCryptoError(err)
	}

	return signed, &domain.TokenClaims{
		AccountID: accountID,
		TokenID:   jti,
		IssuedAt:  time.UnixMilli(claims.IssuedAtMilli),
		ExpiresAt: expiresAt,
	}, nil
}

// Verify implements domain.TokenService. Expired tokens and tampered or
// malformed tokens fail with distinct errors.
func (j *JWTServiceImpl) Verify(tokenString string) (*domain.TokenClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenInvalid
		}
		return j.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(j.issuer),
		jwt.WithTimeFunc(j.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid.WithCause(err)
	}

	if !token.Valid {
		return nil, domain.ErrTokenInvalid
	}

	if claims.Subject == "" || claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return nil, domain.ErrTokenInvalid
	}

	issuedAt := claims.IssuedAt.Time
	if claims.IssuedAtMilli != 0 {
		// must fall within the signed iat second
		if claims.IssuedAtMilli/1000 != claims.IssuedAt.Unix() {
			return nil, domain.ErrTokenInvalid
		}
		issuedAt = time.UnixMilli(claims.IssuedAtMilli)
	}

	return &domain.TokenClaims{
		AccountID: claims.Subject,
		TokenID:   claims.ID,
		IssuedAt:  issuedAt,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
