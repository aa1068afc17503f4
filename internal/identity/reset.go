package identity

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// RequestPasswordReset generates a time-boxed numeric code, stores it on the
// user record and hands it to the mail collaborator. An unknown or inactive
// email still returns success so the endpoint cannot be used to enumerate
// accounts; the miss is logged internally.
func (s *Service) RequestPasswordReset(ctx context.Context, email, orgCode string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalidInput)
	}

	user, err := s.lookupScopedUser(ctx, email, orgCode)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if user == nil || !user.IsActive {
		s.log.Info("password reset requested for unknown email",
			zap.String("org_code", orgCode))
		return nil
	}

	code, err := s.resetCode()
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}
	expiresAt := s.now().Add(ResetCodeTTL)
	if err := s.store.Users(ctx).SetResetCode(ctx, user.ID, code, expiresAt); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	text := fmt.Sprintf("Your password reset code is: %s", code)
	html := fmt.Sprintf("<p>Your password reset code is: <b>%s</b></p>", code)
	if err := s.mailer.Send(ctx, user.Email, "Your password reset code", text, html); err != nil {
		return fmt.Errorf("send reset code: %w", err)
	}
	return nil
}

// ConfirmPasswordReset verifies the presented code and, within its 1-hour
// window, replaces the password and clears the code atomically. Wrong code
// and expired code return the identical ErrResetCodeInvalid.
func (s *Service) ConfirmPasswordReset(ctx context.Context, email, code, newPassword, orgCode string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return fmt.Errorf("%w: email and code are required", ErrInvalidInput)
	}
	if strings.TrimSpace(newPassword) == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}

	user, err := s.lookupScopedUser(ctx, email, orgCode)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if user == nil || !user.IsActive || !resetCodeMatches(user, code, s) {
		return ErrResetCodeInvalid
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.Users(ctx).ResetPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	return nil
}

func resetCodeMatches(user *User, code string, s *Service) bool {
	if user.PasswordResetCode == "" || user.PasswordResetExpiresAt.IsZero() {
		return false
	}
	if !s.now().Before(user.PasswordResetExpiresAt) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(user.PasswordResetCode), []byte(code)) == 1
}
