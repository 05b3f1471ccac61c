package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/middleware"
)

// CookieConfig controls the session cookie.
type CookieConfig struct {
	TTL    time.Duration
	Secure bool
}

// AccountHandlers handles account HTTP requests
type AccountHandlers struct {
	accounts domain.AccountService
	cookie   CookieConfig
	otpTTL   time.Duration
}

// NewAccountHandlers creates new account handlers. otpTTL is quoted in the
// signup response.
func NewAccountHandlers(accounts domain.AccountService, cookie CookieConfig, otpTTL time.Duration) *AccountHandlers {
	return &AccountHandlers{
		accounts: accounts,
		cookie:   cookie,
		otpTTL:   otpTTL,
	}
}

// SignupRequest represents registration request
type SignupRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
	Username        string `json:"username"`
	Name            string `json:"name"`
}

// SigninRequest represents signin request
type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyEmailRequest carries the emailed code, sent as a string or a number
type VerifyEmailRequest struct {
	OTP any `json:"otp"`
}

// PasswordRequest represents a new password and its confirmation
type PasswordRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

// UpdatePasswordRequest represents an authenticated password change
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	PasswordRequest
}

// ForgotPasswordRequest represents a password reset request
type ForgotPasswordRequest struct {
	Username string `json:"username"`
}

var errBadBody = domain.NewBadRequest("Request body must be valid JSON!")

// Signup handles account registration
func (h *AccountHandlers) Signup(c *gin.Context) {
	var req SignupRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.accounts.Signup(c.Request.Context(), domain.SignupInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Username:        req.Username,
		Name:            req.Name,
	})
	if result != nil {
		h.setSessionCookie(c, result.Token)
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status": "success",
		"user": gin.H{
			"email":    result.Account.Email,
			"verified": result.Account.Verified,
			"message": "OTP has been sent to your email which is valid for " +
				strconv.Itoa(int(h.otpTTL/time.Minute)) +
				"min from now! Please check your inbox and verify the otp on route /verifyEmail.",
		},
	})
}

// VerifyEmail handles email verification with the emailed code
func (h *AccountHandlers) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if !bindJSON(c, &req) {
		return
	}

	account, err := h.accounts.VerifyEmail(c.Request.Context(), middleware.TokenFromRequest(c), otpString(req.OTP))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"user": gin.H{
			"email":    account.Email,
			"verified": account.Verified,
		},
		"message": "User email has been verified successfully!",
	})
}

// Signin handles signin with email and password
func (h *AccountHandlers) Signin(c *gin.Context) {
	var req SigninRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.accounts.Signin(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendSession(c, http.StatusOK, result)
}

// Signout overwrites the session cookie
func (h *AccountHandlers) Signout(c *gin.Context) {
	instruction := h.accounts.Signout(c.Request.Context())
	h.writeCookie(c, instruction.Value, instruction.ExpiresAt)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// MyProfile returns the authenticated account
func (h *AccountHandlers) MyProfile(c *gin.Context) {
	current, ok := middleware.CurrentAccount(c)
	if !ok {
		_ = c.Error(domain.ErrNotAuthenticated)
		return
	}

	account, err := h.accounts.GetProfile(c.Request.Context(), current.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": account}})
}

// UpdateProfile applies name, email and username changes
func (h *AccountHandlers) UpdateProfile(c *gin.Context) {
	current, ok := middleware.CurrentAccount(c)
	if !ok {
		_ = c.Error(domain.ErrNotAuthenticated)
		return
	}

	var fields map[string]any
	if !bindJSON(c, &fields) {
		return
	}

	account, err := h.accounts.UpdateProfile(c.Request.Context(), current, fields)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": gin.H{"user": account}})
}

// DeleteProfile removes the authenticated account
func (h *AccountHandlers) DeleteProfile(c *gin.Context) {
	current, ok := middleware.CurrentAccount(c)
	if !ok {
		_ = c.Error(domain.ErrNotAuthenticated)
		return
	}

	if err := h.accounts.DeleteProfile(c.Request.Context(), current); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdatePassword changes the password of the authenticated account
func (h *AccountHandlers) UpdatePassword(c *gin.Context) {
	current, ok := middleware.CurrentAccount(c)
	if !ok {
		_ = c.Error(domain.ErrNotAuthenticated)
		return
	}

	var req UpdatePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.accounts.UpdatePassword(c.Request.Context(), current, domain.PasswordChangeInput{
		CurrentPassword: req.CurrentPassword,
		PasswordInput: domain.PasswordInput{
			Password:        req.Password,
			PasswordConfirm: req.PasswordConfirm,
		},
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendSession(c, http.StatusOK, result)
}

// ForgotPassword emails a reset token
func (h *AccountHandlers) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.accounts.ForgotPassword(c.Request.Context(), req.Username); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Token sent to email!"})
}

// ResetPassword sets a new password with an emailed token
func (h *AccountHandlers) ResetPassword(c *gin.Context) {
	var req PasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.accounts.ResetPassword(c.Request.Context(), c.Param("resetToken"), domain.PasswordInput{
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	h.sendSession(c, http.StatusOK, result)
}

func (h *AccountHandlers) sendSession(c *gin.Context, status int, result *domain.AuthResult) {
	h.setSessionCookie(c, result.Token)
	c.JSON(status, gin.H{
		"status": "success",
		"token":  result.Token,
		"data":   gin.H{"user": result.Account},
	})
}

func (h *AccountHandlers) setSessionCookie(c *gin.Context, token string) {
	h.writeCookie(c, token, time.Now().Add(h.cookie.TTL))
}

func (h *AccountHandlers) writeCookie(c *gin.Context, value string, expires time.Time) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// bindJSON decodes the body into v. An empty body leaves v untouched.
func bindJSON(c *gin.Context, v any) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(v); err != nil {
		_ = c.Error(errBadBody.WithCause(err))
		return false
	}
	return true
}

func otpString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
