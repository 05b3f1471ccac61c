package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/you/accountsvc/domain"
)

const accountKey = "account"

// SetAccount stores the authenticated account on the gin context.
func SetAccount(c *gin.Context, account *domain.Account) {
	c.Set(accountKey, account)
}

// CurrentAccount returns the account stored by Protect.
func CurrentAccount(c *gin.Context) (*domain.Account, bool) {
	v, ok := c.Get(accountKey)
	if !ok {
		return nil, false
	}
	account, ok := v.(*domain.Account)
	return account, ok && account != nil
}

// ClientContext copies the caller's address and user agent onto the request
// context so services can attach them to audit events.
func ClientContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := domain.WithClientContext(c.Request.Context(), &domain.ClientContext{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}
