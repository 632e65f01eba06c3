package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripplanner/api/internal/auth"
	"github.com/tripplanner/api/internal/domain"
	"github.com/tripplanner/api/internal/mail"
	"github.com/tripplanner/api/internal/repo"
)

// DefaultOTPTTL is how long an emailed passcode stays valid.
const DefaultOTPTTL = 10 * time.Minute

// OTPMailer delivers passcodes. *mail.Mailer satisfies it.
type OTPMailer interface {
	SendOTP(ctx context.Context, to, otp string, purpose mail.Purpose, validFor time.Duration) error
}

// TokenIssuer mints session tokens. *auth.Tokens satisfies it.
type TokenIssuer interface {
	Issue(userID uuid.UUID) (string, error)
}

// AuthService handles OTP-verified registration, login and password reset.
type AuthService struct {
	users  repo.UserRepo
	mailer OTPMailer
	tokens TokenIssuer
	log    *slog.Logger
	now    func() time.Time
	newOTP func() (string, error)
	otpTTL time.Duration
}

// NewAuthService constructs an AuthService.
func NewAuthService(users repo.UserRepo, mailer OTPMailer, tokens TokenIssuer, log *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		mailer: mailer,
		tokens: tokens,
		log:    log,
		now:    time.Now,
		newOTP: auth.NewOTP,
		otpTTL: DefaultOTPTTL,
	}
}

// Register creates a pending account, or refreshes one that was never
// verified, and emails a signup passcode. An email that already belongs to a
// verified user is rejected with domain.ErrValidation.
func (s *AuthService) Register(ctx context.Context, name, email, password string) error {
	name, email = strings.TrimSpace(name), normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return fmt.Errorf("%w: name, email and password are required", domain.ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("service.AuthService.Register: %w", err)
	}
	otp, expires, err := s.issueOTP()
	if err != nil {
		return fmt.Errorf("service.AuthService.Register: %w", err)
	}

	_, err = s.users.UpsertPending(ctx, domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		OTP:          &otp,
		OTPExpiresAt: &expires,
	})
	if err != nil {
		// The upsert skips verified rows, which surfaces as not found.
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: user already exists", domain.ErrValidation)
		}
		return fmt.Errorf("service.AuthService.Register: %w", err)
	}

	return s.deliver(ctx, email, otp, mail.PurposeSignup)
}

// ResendOTP replaces the passcode of a pending account and emails it again.
func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	u, err := s.lookup(ctx, email)
	if err != nil {
		return fmt.Errorf("service.AuthService.ResendOTP: %w", err)
	}
	if u.Verified {
		return fmt.Errorf("%w: user already verified", domain.ErrValidation)
	}

	otp, expires, err := s.issueOTP()
	if err != nil {
		return fmt.Errorf("service.AuthService.ResendOTP: %w", err)
	}
	if err := s.users.SetOTP(ctx, u.ID, otp, expires); err != nil {
		return fmt.Errorf("service.AuthService.ResendOTP: %w", err)
	}
	return s.deliver(ctx, email, otp, mail.PurposeResend)
}

// Verify completes registration when otp matches and has not expired.
// Any mismatch returns domain.ErrInvalidCredentials and leaves the user pending.
func (s *AuthService) Verify(ctx context.Context, email, otp string) (domain.Session, error) {
	email, otp = normalizeEmail(email), strings.TrimSpace(otp)
	if email == "" || otp == "" {
		return domain.Session{}, fmt.Errorf("%w: email and otp are required", domain.ErrValidation)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, fmt.Errorf("%w: invalid or expired OTP", domain.ErrInvalidCredentials)
		}
		return domain.Session{}, fmt.Errorf("service.AuthService.Verify: %w", err)
	}
	if u.Verified || !u.OTPMatches(otp, s.now()) {
		return domain.Session{}, fmt.Errorf("%w: invalid or expired OTP", domain.ErrInvalidCredentials)
	}

	u, err = s.users.MarkVerified(ctx, u.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("service.AuthService.Verify: %w", err)
	}
	return s.session(u)
}

// Login exchanges credentials for a session. Unknown email, unverified
// account and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.Session{}, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, fmt.Errorf("service.AuthService.Login: %w", err)
	}
	if err != nil || !u.Verified || !auth.CheckPassword(u.PasswordHash, password) {
		return domain.Session{}, fmt.Errorf("%w: invalid email or password", domain.ErrInvalidCredentials)
	}
	return s.session(u)
}

// RequestPasswordReset emails a reset passcode to a verified user.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if err := validateEmail(email); err != nil {
		return err
	}
	u, err := s.lookup(ctx, email)
	if err != nil {
		return fmt.Errorf("service.AuthService.RequestPasswordReset: %w", err)
	}
	if !u.Verified {
		return fmt.Errorf("%w: user is not verified", domain.ErrValidation)
	}

	otp, expires, err := s.issueOTP()
	if err != nil {
		return fmt.Errorf("service.AuthService.RequestPasswordReset: %w", err)
	}
	if err := s.users.SetOTP(ctx, u.ID, otp, expires); err != nil {
		return fmt.Errorf("service.AuthService.RequestPasswordReset: %w", err)
	}
	return s.deliver(ctx, email, otp, mail.PurposeReset)
}

// ResetPassword sets a new password when otp matches and has not expired.
// Only verified users can reset; a pending account's signup passcode is
// refused so that it cannot be spent here.
func (s *AuthService) ResetPassword(ctx context.Context, email, otp, newPassword string) error {
	email, otp = normalizeEmail(email), strings.TrimSpace(otp)
	if email == "" || otp == "" || newPassword == "" {
		return fmt.Errorf("%w: email, otp and new password are required", domain.ErrValidation)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired OTP", domain.ErrInvalidCredentials)
		}
		return fmt.Errorf("service.AuthService.ResetPassword: %w", err)
	}
	if !u.Verified || !u.OTPMatches(otp, s.now()) {
		return fmt.Errorf("%w: invalid or expired OTP", domain.ErrInvalidCredentials)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("service.AuthService.ResetPassword: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return fmt.Errorf("service.AuthService.ResetPassword: %w", err)
	}
	return nil
}

// Profile returns the caller's own account details.
func (s *AuthService) Profile(ctx context.Context, actor uuid.UUID) (domain.Profile, error) {
	u, err := s.users.GetByID(ctx, actor)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Profile{}, fmt.Errorf("service.AuthService.Profile: %w: user not found", err)
		}
		return domain.Profile{}, fmt.Errorf("service.AuthService.Profile: %w", err)
	}
	return u.Profile(), nil
}

func (s *AuthService) lookup(ctx context.Context, email string) (domain.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, fmt.Errorf("%w: user not found", err)
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *AuthService) issueOTP() (string, time.Time, error) {
	otp, err := s.newOTP()
	if err != nil {
		return "", time.Time{}, err
	}
	return otp, s.now().Add(s.otpTTL).UTC(), nil
}

// deliver sends the passcode. The stored OTP is kept on failure so that a
// resend can follow.
func (s *AuthService) deliver(ctx context.Context, email, otp string, purpose mail.Purpose) error {
	if err := s.mailer.SendOTP(ctx, email, otp, purpose, s.otpTTL); err != nil {
		s.log.ErrorContext(ctx, "otp email failed", "email", email, "error", err)
		if errors.Is(err, domain.ErrUpstreamMail) || errors.Is(err, domain.ErrUpstreamTimeout) {
			return fmt.Errorf("service.AuthService: %w", err)
		}
		return fmt.Errorf("service.AuthService: %w: %w", domain.ErrUpstreamMail, err)
	}
	return nil
}

func (s *AuthService) session(u domain.User) (domain.Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("service.AuthService: %w", err)
	}
	return domain.Session{Token: token, User: u.Profile()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateEmail accepts a bare address only. Display names and angle
// brackets parse fine but are not something a user types into a form.
func validateEmail(email string) error {
	addr, err := netmail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: invalid email address", domain.ErrValidation)
	}
	return nil
}
