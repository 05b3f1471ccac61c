package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/you/accountsvc/domain"
	"github.com/you/accountsvc/internal/http/middleware"
	"github.com/you/accountsvc/internal/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testAccount = &domain.Account{
	ID:           "6c1f7c0e-8f8e-4a52-9a0b-0d6c6b9a1f11",
	Email:        "a@x.com",
	Role:         domain.RoleUser,
	PasswordHash: "$2a$12$secret",
	Verified:     true,
}

// newTestRouter mounts the account handlers behind the error handler. The
// profile routes get testAccount as the authenticated account.
func newTestRouter(svc *mocks.MockAccountService) *gin.Engine {
	h := NewAccountHandlers(svc, CookieConfig{TTL: time.Hour, Secure: true}, 10*time.Minute)

	r := gin.New()
	r.Use(middleware.ErrorHandler(zerolog.Nop(), false))
	r.POST("/signup", h.Signup)
	r.POST("/signin", h.Signin)
	r.POST("/signout", h.Signout)
	r.POST("/verifyEmail", h.VerifyEmail)
	r.POST("/forgotPassword", h.ForgotPassword)
	r.POST("/resetPassword/:resetToken", h.ResetPassword)

	me := r.Group("", func(c *gin.Context) {
		middleware.SetAccount(c, testAccount)
		c.Next()
	})
	me.GET("/myProfile", h.MyProfile)
	me.PATCH("/updateProfile", h.UpdateProfile)
	me.DELETE("/deleteProfile", h.DeleteProfile)
	me.POST("/updatePassword", h.UpdatePassword)
	return r
}

func perform(r *gin.Engine, method, path, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for _, m := range mutate {
		m(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	return nil
}

func authResult(token string) *domain.AuthResult {
	return &domain.AuthResult{Account: testAccount, Token: token, ExpiresAt: time.Now().Add(time.Hour)}
}

func TestAccountHandlers_Signup(t *testing.T) {
	tests := []struct {
		name            string
		body            string
		signup          func(ctx context.Context, in domain.SignupInput) (*domain.AuthResult, error)
		expectedStatus  int
		expectedMessage string
		expectCookie    bool
	}{
		{
			name: "account created",
			body: `{"email":"a@x.com","password":"pass1234","passwordConfirm":"pass1234","username":"alice"}`,
			signup: func(ctx context.Context, in domain.SignupInput) (*domain.AuthResult, error) {
				if in.Email != "a@x.com" || in.PasswordConfirm != "pass1234" || in.Username != "alice" {
					return nil, errors.New("unexpected input")
				}
				return &domain.AuthResult{Account: &domain.Account{Email: "a@x.com"}, Token: "token_new"}, nil
			},
			expectedStatus: http.StatusCreated,
			expectCookie:   true,
		},
		{
			name: "validation failure",
			body: `{"email":"nope"}`,
			signup: func(ctx context.Context, in domain.SignupInput) (*domain.AuthResult, error) {
				return nil, domain.NewValidationError("Please provide a valid email address.")
			},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Invalid input data: Please provide a valid email address.",
		},
		{
			name: "duplicate email",
			body: `{"email":"a@x.com"}`,
			signup: func(ctx context.Context, in domain.SignupInput) (*domain.AuthResult, error) {
				return nil, domain.ErrEmailTaken
			},
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Email address already in use!",
		},
		{
			name: "email not delivered",
			body: `{"email":"a@x.com"}`,
			signup: func(ctx context.Context, in domain.SignupInput) (*domain.AuthResult, error) {
				return &domain.AuthResult{Account: &domain.Account{Email: "a@x.com"}, Token: "token_new"},
					domain.NewDeliveryError(errors.New("smtp down"))
			},
			expectedStatus:  http.StatusInternalServerError,
			expectedMessage: "There was an error sending the email. Try again later!",
			expectCookie:    true,
		},
		{
			name:            "malformed body",
			body:            `{"email":`,
			expectedStatus:  http.StatusBadRequest,
			expectedMessage: "Request body must be valid JSON!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockAccountService()
			svc.SignupFunc = tt.signup

			w := perform(newTestRouter(svc), http.MethodPost, "/signup", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decode(t, w)
			if tt.expectedMessage != "" {
				assert.Equal(t, tt.expectedMessage, body["message"])
			} else {
				assert.Equal(t, "success", body["status"])
				user := body["user"].(map[string]interface{})
				assert.Equal(t, "a@x.com", user["email"])
				assert.Equal(t, false, user["verified"])
				assert.Contains(t, user["message"], "valid for 10min from now!")
			}

			cookie := sessionCookie(w)
			if !tt.expectCookie {
				assert.Nil(t, cookie)
				return
			}
			require.NotNil(t, cookie)
			assert.Equal(t, "token_new", cookie.Value)
			assert.True(t, cookie.HttpOnly)
			assert.True(t, cookie.Secure)
		})
	}
}

func TestAccountHandlers_VerifyEmail(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedOTP    string
		expectedStatus int
	}{
		{name: "numeric code", body: `{"otp":123456}`, expectedOTP: "123456", expectedStatus: http.StatusOK},
		{name: "string code", body: `{"otp":" 123456 "}`, expectedOTP: "123456", expectedStatus: http.StatusOK},
		{name: "missing code", body: `{}`, expectedOTP: "", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockAccountService()
			svc.VerifyEmailFunc = func(ctx context.Context, token, otp string) (*domain.Account, error) {
				assert.Equal(t, "token_acc", token)
				assert.Equal(t, tt.expectedOTP, otp)
				if otp == "" {
					return nil, domain.NewBadRequest("Please provide the OTP that has been sent to you on your email!")
				}
				return &domain.Account{Email: "a@x.com", Verified: true}, nil
			}

			w := perform(newTestRouter(svc), http.MethodPost, "/verifyEmail", tt.body, func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: "token_acc"})
			})

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decode(t, w)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "User email has been verified successfully!", body["message"])
				assert.Equal(t, true, body["user"].(map[string]interface{})["verified"])
			}
		})
	}
}

func TestAccountHandlers_VerifyEmailRejected(t *testing.T) {
	svc := mocks.NewMockAccountService()

	w := perform(newTestRouter(svc), http.MethodPost, "/verifyEmail", `{"otp":"000000"}`)

	assert.Equal(t, http.StatusNotAcceptable, w.Code)
	assert.Equal(t, "Incorrect OTP or OTP has been expired!", decode(t, w)["message"])
}

func TestAccountHandlers_Signin(t *testing.T) {
	svc := mocks.NewMockAccountService()
	svc.SigninFunc = func(ctx context.Context, email, password string) (*domain.AuthResult, error) {
		if email == "a@x.com" && password == "pass1234" {
			return authResult("token_acc"), nil
		}
		return nil, domain.ErrInvalidCredentials
	}
	r := newTestRouter(svc)

	w := perform(r, http.MethodPost, "/signin", `{"email":"a@x.com","password":"pass1234"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "token_acc", body["token"])
	user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, "a@x.com", user["email"])
	assert.NotContains(t, w.Body.String(), "$2a$12$secret")
	require.NotNil(t, sessionCookie(w))

	w = perform(r, http.MethodPost, "/signin", `{"email":"a@x.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Incorrect email or password!", decode(t, w)["message"])
	assert.Nil(t, sessionCookie(w))
}

func TestAccountHandlers_Signout(t *testing.T) {
	w := perform(newTestRouter(mocks.NewMockAccountService()), http.MethodPost, "/signout", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "success", decode(t, w)["status"])
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, "loggedout", cookie.Value)
	assert.WithinDuration(t, time.Now().Add(10*time.Second), cookie.Expires, 2*time.Second)
}

func TestAccountHandlers_MyProfile(t *testing.T) {
	svc := mocks.NewMockAccountService()
	svc.GetProfileFunc = func(ctx context.Context, accountID string) (*domain.Account, error) {
		assert.Equal(t, testAccount.ID, accountID)
		return testAccount, nil
	}

	w := perform(newTestRouter(svc), http.MethodGet, "/myProfile", "")

	assert.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["data"].(map[string]interface{})["user"].(map[string]interface{})
	assert.Equal(t, testAccount.ID, user["id"])
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestAccountHandlers_UpdateProfile(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		update         func(ctx context.Context, account *domain.Account, fields map[string]any) (*domain.Account, error)
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "fields forwarded",
			body: `{"name":"Alice","role":"admin"}`,
			update: func(ctx context.Context, account *domain.Account, fields map[string]any) (*domain.Account, error) {
				assert.Equal(t, "Alice", fields["name"])
				assert.Equal(t, "admin", fields["role"])
				updated := *account
				updated.Name = "Alice"
				return &updated, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "password rejected",
			body: `{"password":"newpass123"}`,
			update: func(ctx context.Context, account *domain.Account, fields map[string]any) (*domain.Account, error) {
				return nil, domain.NewBadRequest("This route is not for password updates! Please use /updatePassword.")
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "This route is not for password updates! Please use /updatePassword.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockAccountService()
			svc.UpdateProfileFunc = tt.update

			w := perform(newTestRouter(svc), http.MethodPatch, "/updateProfile", tt.body)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decode(t, w)
			if tt.expectedMsg != "" {
				assert.Equal(t, tt.expectedMsg, body["message"])
				return
			}
			user := body["data"].(map[string]interface{})["user"].(map[string]interface{})
			assert.Equal(t, "Alice", user["name"])
		})
	}
}

func TestAccountHandlers_DeleteProfile(t *testing.T) {
	svc := mocks.NewMockAccountService()
	var deleted string
	svc.DeleteProfileFunc = func(ctx context.Context, account *domain.Account) error {
		deleted = account.ID
		return nil
	}

	w := perform(newTestRouter(svc), http.MethodDelete, "/deleteProfile", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, testAccount.ID, deleted)
	assert.Empty(t, w.Body.String())
}

func TestAccountHandlers_UpdatePassword(t *testing.T) {
	svc := mocks.NewMockAccountService()
	svc.UpdatePasswordFunc = func(ctx context.Context, account *domain.Account, in domain.PasswordChangeInput) (*domain.AuthResult, error) {
		if in.CurrentPassword != "pass1234" {
			return nil, domain.ErrCurrentPasswordWrong
		}
		assert.Equal(t, "newpass123", in.Password)
		assert.Equal(t, "newpass123", in.PasswordConfirm)
		return authResult("token_rotated"), nil
	}
	r := newTestRouter(svc)

	w := perform(r, http.MethodPost, "/updatePassword", `{"currentPassword":"pass1234","password":"newpass123","passwordConfirm":"newpass123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token_rotated", decode(t, w)["token"])
	require.NotNil(t, sessionCookie(w))
	assert.Equal(t, "token_rotated", sessionCookie(w).Value)

	w = perform(r, http.MethodPost, "/updatePassword", `{"currentPassword":"nope","password":"newpass123","passwordConfirm":"newpass123"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Your current password is wrong!", decode(t, w)["message"])
}

func TestAccountHandlers_ForgotPassword(t *testing.T) {
	tests := []struct {
		name           string
		forgot         func(ctx context.Context, username string) error
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "token sent",
			forgot:         func(ctx context.Context, username string) error { return nil },
			expectedStatus: http.StatusOK,
			expectedMsg:    "Token sent to email!",
		},
		{
			name:           "unknown user",
			forgot:         func(ctx context.Context, username string) error { return domain.ErrNoAccountWithUsername },
			expectedStatus: http.StatusNotFound,
			expectedMsg:    "There is no user with this username!",
		},
		{
			name: "delivery failure",
			forgot: func(ctx context.Context, username string) error {
				return domain.NewDeliveryError(errors.New("smtp down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedMsg:    "There was an error sending the email. Try again later!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := mocks.NewMockAccountService()
			svc.ForgotPasswordFunc = func(ctx context.Context, username string) error {
				assert.Equal(t, "alice", username)
				return tt.forgot(ctx, username)
			}

			w := perform(newTestRouter(svc), http.MethodPost, "/forgotPassword", `{"username":"alice"}`)

			assert.Equal(t, tt.expectedStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.expectedMsg, body["message"])
			assert.NotContains(t, body, "token")
		})
	}
}

func TestAccountHandlers_ResetPassword(t *testing.T) {
	svc := mocks.NewMockAccountService()
	svc.ResetPasswordFunc = func(ctx context.Context, token string, in domain.PasswordInput) (*domain.AuthResult, error) {
		if token != "abc123" {
			return nil, domain.ErrInvalidResetToken
		}
		return authResult("token_reset"), nil
	}
	r := newTestRouter(svc)

	w := perform(r, http.MethodPost, "/resetPassword/abc123", `{"password":"newpass123","passwordConfirm":"newpass123"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "token_reset", decode(t, w)["token"])

	w = perform(r, http.MethodPost, "/resetPassword/stale", `{"password":"newpass123","passwordConfirm":"newpass123"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Token is invalid or has expired!", decode(t, w)["message"])
}
