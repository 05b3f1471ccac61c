package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/you/accountsvc/domain"
)

const (
	otpSubject   = "Verify Email"
	resetSubject = "passwordReset"

	signoutValue = "loggedout"
	signoutTTL   = 10 * time.Second
)

// AccountConfig holds the lifetimes quoted in outgoing messages.
type AccountConfig struct {
	OTPTTL   time.Duration
	ResetTTL time.Duration
}

// AccountServiceImpl implements domain.AccountService
type AccountServiceImpl struct {
	accounts  domain.AccountRepository
	passwords domain.PasswordService
	tokens    domain.TokenService
	otps      domain.OTPService
	resets    domain.ResetTokenService
	notifier  domain.NotificationService
	audit     domain.AuditLogger
	logger    zerolog.Logger
	config    AccountConfig
	now       func() time.Time
}

// NewAccountService creates a new account service
func NewAccountService(
	accounts domain.AccountRepository,
	passwords domain.PasswordService,
	tokens domain.TokenService,
	otps domain.OTPService,
	resets domain.ResetTokenService,
	notifier domain.NotificationService,
	audit domain.AuditLogger,
	logger zerolog.Logger,
	config AccountConfig,
) *AccountServiceImpl {
	return NewAccountServiceWithClock(accounts, passwords, tokens, otps, resets, notifier, audit, logger, config, time.Now)
}

// NewAccountServiceWithClock creates an account service that reads time from now.
func NewAccountServiceWithClock(
	accounts domain.AccountRepository,
	passwords domain.PasswordService,
	tokens domain.TokenService,
	otps domain.OTPService,
	resets domain.ResetTokenService,
	notifier domain.NotificationService,
	audit domain.AuditLogger,
	logger zerolog.Logger,
	config AccountConfig,
	now func() time.Time,
) *AccountServiceImpl {
	return &AccountServiceImpl{
		accounts:  accounts,
		passwords: passwords,
		tokens:    tokens,
		otps:      otps,
		resets:    resets,
		notifier:  notifier,
		audit:     audit,
		logger:    logger.With().Str("component", "accounts").Logger(),
		config:    config,
		now:       now,
	}
}

// Signup implements domain.AccountService. When the verification email
// cannot be delivered the code is discarded and a DeliveryError is returned
// together with the session, since the account itself was created.
func (s *AccountServiceImpl) Signup(ctx context.Context, in domain.SignupInput) (*domain.AuthResult, error) {
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, domain.NewCryptoError(err)
	}

	account := &domain.Account{
		Email:        in.Email,
		Name:         in.Name,
		Role:         domain.RoleUser,
		PasswordHash: hash,
	}
	if in.Username != "" {
		username := in.Username
		account.Username = &username
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	s.logEvent(ctx, domain.NewAuditEvent(domain.AccountSignupEvent, account.ID).WithEmail(account.Email))

	otp, err := s.otps.Generate(ctx, account.ID)
	if err != nil {
		s.abandonSignup(ctx, account, nil, err)
		return nil, err
	}

	result, err := s.issue(account)
	if err != nil {
		s.abandonSignup(ctx, account, otp, err)
		return nil, err
	}

	event := domain.NewAuditEvent(domain.EmailOTPRequestEvent, account.ID).WithEmail(account.Email)
	if err := s.notifier.Send(ctx, account.Email, otpSubject, s.otpBody(otp.Code)); err != nil {
		if discardErr := s.otps.Discard(ctx, account.ID, otp.ID); discardErr != nil {
			s.logger.Error().Err(discardErr).Str("account_id", account.ID).Msg("failed to discard undelivered otp")
		}
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("verification email not delivered")
		s.logEvent(ctx, event.WithError(err))
		return result, domain.NewDeliveryError(err)
	}
	s.logEvent(ctx, event)

	return result, nil
}

// VerifyEmail implements domain.AccountService
func (s *AccountServiceImpl) VerifyEmail(ctx context.Context, token, otp string) (*domain.Account, error) {
	otp = strings.TrimSpace(otp)
	if otp == "" {
		return nil, domain.NewBadRequest("Please provide the OTP that has been sent to you on your email!")
	}
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrNotAuthenticated
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	if err := s.otps.Verify(ctx, claims.AccountID, otp); err != nil {
		s.logEvent(ctx, domain.NewAuditEvent(domain.EmailVerifyFailEvent, claims.AccountID).WithError(err))
		if IsOTPRejection(err) {
			return nil, domain.ErrIncorrectOrExpiredOTP.WithCause(err)
		}
		return nil, err
	}

	verified := true
	account, err := s.accounts.UpdateFields(ctx, claims.AccountID, domain.AccountPatch{Verified: &verified})
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrAccountNoLongerExists
		}
		return nil, err
	}

	s.logEvent(ctx, domain.NewAuditEvent(domain.EmailVerifiedEvent, account.ID).WithEmail(account.Email))
	return account, nil
}

// Signin implements domain.AccountService. The verification state is only
// disclosed once the password has been accepted.
func (s *AccountServiceImpl) Signin(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.NewBadRequest("Please provide email and password!")
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			s.logEvent(ctx, domain.NewAuditEvent(domain.AccountSigninFailEvent, "").WithEmail(email).WithError(domain.ErrInvalidCredentials))
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.passwords.Verify(account.PasswordHash, password) {
		s.logEvent(ctx, domain.NewAuditEvent(domain.AccountSigninFailEvent, account.ID).WithEmail(email).WithError(domain.ErrInvalidCredentials))
		return nil, domain.ErrInvalidCredentials
	}

	if !account.Verified {
		s.logEvent(ctx, domain.NewAuditEvent(domain.AccountSigninFailEvent, account.ID).WithEmail(email).WithError(domain.ErrAccountNotVerified))
		return nil, domain.ErrAccountNotVerified
	}

	result, err := s.issue(account)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, domain.NewAuditEvent(domain.AccountSigninEvent, account.ID).WithEmail(email))
	return result, nil
}

// Signout implements domain.AccountService
func (s *AccountServiceImpl) Signout(ctx context.Context) *domain.SignoutInstruction {
	return &domain.SignoutInstruction{
		Value:     signoutValue,
		ExpiresAt: s.now().Add(signoutTTL),
	}
}

// Protect implements domain.AccountService
func (s *AccountServiceImpl) Protect(ctx context.Context, token string) (*domain.Account, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.ErrNotAuthenticated
	}

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) || domain.IsKind(err, domain.KindCast) {
			return nil, domain.ErrAccountNoLongerExists
		}
		return nil, err
	}

	if account.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, domain.ErrPasswordChanged
	}
	return account, nil
}

// RestrictTo implements domain.AccountService
func (s *AccountServiceImpl) RestrictTo(account *domain.Account, roles ...string) error {
	if account == nil {
		return domain.ErrNotAuthenticated
	}
	for _, role := range roles {
		if account.Role == role {
			return nil
		}
	}
	return domain.ErrForbidden
}

// GetProfile implements domain.AccountService
func (s *AccountServiceImpl) GetProfile(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, accountID)
}

// UpdateProfile implements domain.AccountService. Only name, email and
// username are applied; password fields are refused outright.
func (s *AccountServiceImpl) UpdateProfile(ctx context.Context, account *domain.Account, fields map[string]any) (*domain.Account, error) {
	if present(fields["password"]) || present(fields["passwordConfirm"]) {
		return nil, domain.NewBadRequest("This route is not for password updates! Please use /updatePassword.")
	}

	patch, err := profilePatch(fields)
	if err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.accounts.FindByID(ctx, account.ID)
	}

	updated, err := s.accounts.UpdateFields(ctx, account.ID, patch)
	if err != nil {
		return nil, err
	}

	event := domain.NewAuditEvent(domain.ProfileUpdatedEvent, updated.ID).WithEmail(updated.Email)
	for key := range fields {
		if _, ok := profileFields[key]; ok {
			event.WithMetadata(key, true)
		}
	}
	s.logEvent(ctx, event)
	return updated, nil
}

// DeleteProfile implements domain.AccountService
func (s *AccountServiceImpl) DeleteProfile(ctx context.Context, account *domain.Account) error {
	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		return err
	}
	s.logEvent(ctx, domain.NewAuditEvent(domain.ProfileDeletedEvent, account.ID).WithEmail(account.Email))
	return nil
}

// UpdatePassword implements domain.AccountService
func (s *AccountServiceImpl) UpdatePassword(ctx context.Context, account *domain.Account, in domain.PasswordChangeInput) (*domain.AuthResult, error) {
	if strings.TrimSpace(in.CurrentPassword) == "" {
		return nil, domain.NewBadRequest("Please provide your current password")
	}

	current, err := s.accounts.FindByID(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	if !s.passwords.Verify(current.PasswordHash, strings.TrimSpace(in.CurrentPassword)) {
		s.logEvent(ctx, domain.NewAuditEvent(domain.PasswordChangedEvent, current.ID).WithEmail(current.Email).WithError(domain.ErrCurrentPasswordWrong))
		return nil, domain.ErrCurrentPasswordWrong
	}

	if err := s.setPassword(ctx, current, in.PasswordInput); err != nil {
		return nil, err
	}

	result, err := s.issue(current)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, domain.NewAuditEvent(domain.PasswordChangedEvent, current.ID).WithEmail(current.Email))
	return result, nil
}

// ForgotPassword implements domain.AccountService. The reset token only
// ever leaves the service through the notification sink.
func (s *AccountServiceImpl) ForgotPassword(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.NewBadRequest("Please provide username!")
	}

	account, err := s.findForReset(ctx, username)
	if err != nil {
		return err
	}

	token, err := s.resets.Generate()
	if err != nil {
		return err
	}
	if err := s.accounts.SetPasswordReset(ctx, account.ID, token.Hash, token.ExpiresAt); err != nil {
		return err
	}

	event := domain.NewAuditEvent(domain.PasswordResetRequestedEvent, account.ID).WithEmail(account.Email)
	if err := s.notifier.Send(ctx, account.Email, resetSubject, s.resetBody(token.Plaintext)); err != nil {
		if clearErr := s.resets.Clear(ctx, account); clearErr != nil {
			s.logger.Error().Err(clearErr).Str("account_id", account.ID).Msg("failed to clear undelivered reset token")
		}
		s.logger.Error().Err(err).Str("account_id", account.ID).Msg("password reset email not delivered")
		s.logEvent(ctx, event.WithError(err))
		return domain.NewDeliveryError(err)
	}

	s.logEvent(ctx, event)
	return nil
}

// ResetPassword implements domain.AccountService
func (s *AccountServiceImpl) ResetPassword(ctx context.Context, token string, in domain.PasswordInput) (*domain.AuthResult, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.NewBadRequest("Please provide password reset token!")
	}

	account, err := s.resets.Validate(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := s.setPassword(ctx, account, in); err != nil {
		return nil, err
	}
	account.PasswordResetTokenHash = nil
	account.PasswordResetExpiresAt = nil

	result, err := s.issue(account)
	if err != nil {
		return nil, err
	}
	s.logEvent(ctx, domain.NewAuditEvent(domain.PasswordResetEvent, account.ID).WithEmail(account.Email))
	return result, nil
}

// abandonSignup removes an account whose signup could not complete, so the
// email and username are free to register again.
func (s *AccountServiceImpl) abandonSignup(ctx context.Context, account *domain.Account, otp *domain.OTPRecord, cause error) {
	log := s.logger.Error().Err(cause).Str("account_id", account.ID)
	if otp != nil {
		if err := s.otps.Discard(ctx, account.ID, otp.ID); err != nil {
			s.logger.Error().Err(err).Str("account_id", account.ID).Msg("failed to discard otp of abandoned signup")
		}
	}
	if err := s.accounts.Delete(ctx, account.ID); err != nil {
		log.AnErr("delete_error", err).Msg("signup incomplete, account left unverified")
		return
	}
	log.Msg("signup incomplete, account removed")
	s.logEvent(ctx, domain.NewAuditEvent(domain.ProfileDeletedEvent, account.ID).WithEmail(account.Email).WithError(cause))
}

func (s *AccountServiceImpl) findForReset(ctx context.Context, username string) (*domain.Account, error) {
	account, err := s.accounts.FindByUsername(ctx, username)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	if strings.Contains(username, "@") {
		account, err = s.accounts.FindByEmail(ctx, username)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
	}
	return nil, domain.ErrNoAccountWithUsername
}

// setPassword validates, hashes and stores a new password, updating account
// in place. The store clears any pending reset at the same time.
func (s *AccountServiceImpl) setPassword(ctx context.Context, account *domain.Account, in domain.PasswordInput) error {
	in.Normalize()
	if err := domain.Validate(in); err != nil {
		return err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return domain.NewCryptoError(err)
	}

	// sessions carry millisecond issue times; the token issued right after
	// this change shares the millisecond and stays valid
	changedAt := s.now().UTC().Truncate(time.Millisecond)
	if err := s.accounts.SetPassword(ctx, account.ID, hash, changedAt); err != nil {
		return err
	}

	account.PasswordHash = hash
	account.PasswordChangedAt = &changedAt
	return nil
}

func (s *AccountServiceImpl) issue(account *domain.Account) (*domain.AuthResult, error) {
	token, claims, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, err
	}
	return &domain.AuthResult{
		Account:   account,
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

func (s *AccountServiceImpl) otpBody(code string) string {
	return fmt.Sprintf("Your email verification OTP is %s (valid for %dmin from now.)", code, minutes(s.config.OTPTTL))
}

func (s *AccountServiceImpl) resetBody(token string) string {
	return fmt.Sprintf("Your password reset token (valid for only %d minutes) - %s", minutes(s.config.ResetTTL), token)
}

func (s *AccountServiceImpl) logEvent(ctx context.Context, event *domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, event.WithClientContext(ctx)); err != nil {
		s.logger.Warn().Err(err).Str("event", string(event.EventType)).Msg("failed to record audit event")
	}
}

var profileFields = map[string]struct{}{
	"name":     {},
	"email":    {},
	"username": {},
}

// profilePatch keeps the whitelisted fields and validates their values.
func profilePatch(fields map[string]any) (domain.AccountPatch, error) {
	var (
		patch    domain.AccountPatch
		input    domain.ProfileInput
		messages []string
	)

	for key, raw := range fields {
		if _, ok := profileFields[key]; !ok || raw == nil {
			continue
		}
		value, ok := raw.(string)
		if !ok {
			messages = append(messages, fmt.Sprintf("%s must be a string", key))
			continue
		}
		value = strings.TrimSpace(value)

		switch key {
		case "name":
			input.Name = value
			patch.Name = &value
		case "email":
			value = domain.NormalizeEmail(value)
			if value == "" {
				messages = append(messages, "Please provide an email.")
				continue
			}
			input.Email = value
			patch.Email = &value
		case "username":
			if value == "" {
				messages = append(messages, "Username must have at least 3 characters.")
				continue
			}
			input.Username = value
			patch.Username = &value
		}
	}

	if len(messages) > 0 {
		return domain.AccountPatch{}, domain.NewValidationError(messages...)
	}
	if err := domain.Validate(input); err != nil {
		return domain.AccountPatch{}, err
	}
	return patch, nil
}

// present reports whether a request field carries a value.
func present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	default:
		return true
	}
}

func minutes(d time.Duration) int {
	return int(d / time.Minute)
}

// Compile-time interface compliance verification
var _ domain.AccountService = (*AccountServiceImpl)(nil)
