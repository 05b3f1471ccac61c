package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/you/accountsvc/domain"
)

const (
	// SessionCookie carries the session token for browser clients.
	SessionCookie = "jwt"
	// SignedOutValue replaces the session cookie on signout.
	SignedOutValue = "loggedout"
)

// AuthMW guards routes with the account lifecycle's Protect and RestrictTo
type AuthMW struct {
	accounts domain.AccountService
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(accounts domain.AccountService) *AuthMW {
	return &AuthMW{accounts: accounts}
}

// Protect resolves the session token to an account and stores it on the
// context. Requests without a valid session are aborted.
func (mw *AuthMW) Protect() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, err := mw.accounts.Protect(c.Request.Context(), TokenFromRequest(c))
		if err != nil {
			abortWithError(c, err)
			return
		}
		SetAccount(c, account)
		c.Next()
	}
}

// RestrictTo only lets accounts holding one of roles through. It must run
// after Protect.
func (mw *AuthMW) RestrictTo(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		account, _ := CurrentAccount(c)
		if err := mw.accounts.RestrictTo(account, roles...); err != nil {
			abortWithError(c, err)
			return
		}
		c.Next()
	}
}

// TokenFromRequest returns the bearer token, falling back to the session
// cookie. A signed-out cookie counts as no token.
func TokenFromRequest(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}

	cookie, err := c.Cookie(SessionCookie)
	if err != nil || cookie == SignedOutValue {
		return ""
	}
	return cookie
}
