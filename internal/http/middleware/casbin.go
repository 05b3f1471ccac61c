package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/you/accountsvc/domain"
)

// CasbinMW checks the route policy for the authenticated account's role
type CasbinMW struct {
	policies domain.PolicyService
	audit    domain.AuditLogger
	logger   zerolog.Logger
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(policies domain.PolicyService, audit domain.AuditLogger, logger zerolog.Logger) *CasbinMW {
	return &CasbinMW{policies: policies, audit: audit, logger: logger}
}

// Enforce returns the casbin authorization middleware. Policies are written
// against route patterns, so the matched pattern is checked rather than
// the raw path.
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		account, ok := CurrentAccount(c)
		if !ok {
			abortWithError(c, domain.ErrNotAuthenticated)
			return
		}

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method

		allowed, err := mw.policies.CheckPermission(account.Role, path, method)
		if err != nil {
			abortWithError(c, domain.NewInternalError(fmt.Errorf("authorization check failed: %w", err)))
			return
		}

		if !allowed {
			mw.denied(c, account, path, method)
			abortWithError(c, domain.ErrForbidden)
			return
		}

		c.Next()
	}
}

func (mw *CasbinMW) denied(c *gin.Context, account *domain.Account, path, method string) {
	if mw.audit == nil {
		return
	}
	ctx := c.Request.Context()
	event := domain.NewAuditEvent(domain.AccessDeniedEvent, account.ID).
		WithEmail(account.Email).
		WithClientContext(ctx).
		WithError(domain.ErrForbidden).
		WithMetadata("path", path).
		WithMetadata("method", method).
		WithMetadata("role", account.Role)
	if err := mw.audit.LogEvent(ctx, event); err != nil {
		mw.logger.Warn().Err(err).Msg("failed to record access denial")
	}
}
