package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies an AppError
type ErrorKind string

const (
	KindValidation        ErrorKind = "ValidationError"
	KindDuplicateKey      ErrorKind = "DuplicateKeyError"
	KindCast              ErrorKind = "CastError"
	KindInvalidToken      ErrorKind = "InvalidToken"
	KindExpiredToken      ErrorKind = "ExpiredToken"
	KindIncorrectOTP      ErrorKind = "IncorrectOrExpiredOtp"
	KindInvalidResetToken ErrorKind = "InvalidOrExpiredResetToken"
	KindInvalidCreds      ErrorKind = "InvalidCredentials"
	KindNotAuthenticated  ErrorKind = "NotAuthenticated"
	KindPasswordChanged   ErrorKind = "PasswordChanged"
	KindForbidden         ErrorKind = "Forbidden"
	KindNotVerified       ErrorKind = "NotVerified"
	KindNotFound          ErrorKind = "NotFound"
	KindDelivery          ErrorKind = "DeliveryError"
	KindCrypto            ErrorKind = "CryptoError"
	KindInternal          ErrorKind = "InternalError"
)

// AppError is an error that carries an HTTP status classification and a
// message that is safe to show to the caller when the error is a client fault.
type AppError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches another AppError of the same kind and message, so sentinel
// values keep matching after being wrapped with a cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// IsClientFault reports whether the caller caused the error.
func (e *AppError) IsClientFault() bool { return e.Status < http.StatusInternalServerError }

// StatusText returns "fail" for client faults and "error" otherwise.
func (e *AppError) StatusText() string {
	if e.IsClientFault() {
		return "fail"
	}
	return "error"
}

// WithCause returns a copy of e wrapping err.
func (e *AppError) WithCause(err error) *AppError {
	cp := *e
	cp.Err = err
	return &cp
}

func newAppError(kind ErrorKind, status int, msg string) *AppError {
	return &AppError{Kind: kind, Status: status, Message: msg}
}

// Authentication errors
var (
	ErrInvalidCredentials    = newAppError(KindInvalidCreds, http.StatusUnauthorized, "Incorrect email or password!")
	ErrCurrentPasswordWrong  = newAppError(KindInvalidCreds, http.StatusUnauthorized, "Your current password is wrong!")
	ErrAccountNotVerified    = newAppError(KindNotVerified, http.StatusForbidden, "User email have not been verified yet! Please verify it first.")
	ErrNotAuthenticated      = newAppError(KindNotAuthenticated, http.StatusUnauthorized, "You are not logged in! Please login to get access.")
	ErrAccountNoLongerExists = newAppError(KindNotAuthenticated, http.StatusUnauthorized, "The user belonging to this token does no longer exist!")
	ErrPasswordChanged       = newAppError(KindPasswordChanged, http.StatusUnauthorized, "User recently changed password! Please login again.")
	ErrForbidden             = newAppError(KindForbidden, http.StatusForbidden, "You do not have permission to perform this action!")
)

// Token errors
var (
	ErrTokenInvalid      = newAppError(KindInvalidToken, http.StatusUnauthorized, "Invalid token! Please log in again.")
	ErrTokenExpired      = newAppError(KindExpiredToken, http.StatusUnauthorized, "Your token has expired! Please log in again.")
	ErrInvalidResetToken = newAppError(KindInvalidResetToken, http.StatusBadRequest, "Token is invalid or has expired!")
)

// OTP errors surfaced to callers
var (
	ErrIncorrectOrExpiredOTP = newAppError(KindIncorrectOTP, http.StatusNotAcceptable, "Incorrect OTP or OTP has been expired!")
)

// Account store errors
var (
	ErrAccountNotFound       = newAppError(KindNotFound, http.StatusNotFound, "No account found.")
	ErrNoAccountWithUsername = newAppError(KindNotFound, http.StatusNotFound, "There is no user with this username!")
	ErrEmailTaken            = newAppError(KindDuplicateKey, http.StatusBadRequest, "Email address already in use!")
	ErrUsernameTaken         = newAppError(KindDuplicateKey, http.StatusBadRequest, "Username is taken!")
	ErrEmailOrUsernameTaken  = newAppError(KindDuplicateKey, http.StatusBadRequest, "Email address or username already in use!")
)

// Delivery errors
var (
	ErrDelivery = newAppError(KindDelivery, http.StatusInternalServerError, "There was an error sending the email. Try again later!")
)

// OTP store errors. These stay internal to the OTP service and are
// collapsed into ErrIncorrectOrExpiredOTP by the account lifecycle.
var (
	ErrOTPNotFound    = errors.New("otp not found")
	ErrOTPExpired     = errors.New("otp has expired")
	ErrOTPMaxAttempts = errors.New("maximum otp attempts exceeded")
)

// NewValidationError joins field-level messages into one client-facing error.
func NewValidationError(messages ...string) *AppError {
	return newAppError(KindValidation, http.StatusBadRequest,
		fmt.Sprintf("Invalid input data: %s", strings.Join(messages, ". ")))
}

// NewBadRequest is a validation-class error with a message used verbatim.
func NewBadRequest(msg string) *AppError {
	return newAppError(KindValidation, http.StatusBadRequest, msg)
}

// NewDuplicateKeyError maps a unique-constraint violation on field to a
// user-facing error.
func NewDuplicateKeyError(field string, cause error) *AppError {
	switch field {
	case "email":
		return ErrEmailTaken.WithCause(cause)
	case "username":
		return ErrUsernameTaken.WithCause(cause)
	default:
		return ErrEmailOrUsernameTaken.WithCause(cause)
	}
}

// NewCastError reports a malformed identifier.
func NewCastError(path, value string) *AppError {
	return newAppError(KindCast, http.StatusBadRequest, fmt.Sprintf("Invalid %s: %s", path, value))
}

// NewDeliveryError wraps a notification sink failure.
func NewDeliveryError(cause error) *AppError {
	return ErrDelivery.WithCause(cause)
}

// NewCryptoError wraps a hashing or randomness failure.
func NewCryptoError(cause error) *AppError {
	return &AppError{Kind: KindCrypto, Status: http.StatusInternalServerError, Message: "credential processing failed", Err: cause}
}

// NewInternalError wraps an unanticipated failure.
func NewInternalError(cause error) *AppError {
	return &AppError{Kind: KindInternal, Status: http.StatusInternalServerError, Message: "internal error", Err: cause}
}

// NewRouteNotFound reports an unknown route.
func NewRouteNotFound(path string) *AppError {
	return newAppError(KindNotFound, http.StatusNotFound, fmt.Sprintf("Can't find %s on this server!", path))
}

// AsAppError converts any error to an AppError, classifying unknown errors as internal.
func AsAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewInternalError(err)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}
