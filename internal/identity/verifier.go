package identity

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// ValidateUser authenticates an email/password pair. When orgCode names a
// tenant, the lookup is scoped to it; with no tenant or no scoped match the
// lookup falls back to the single global super-admin row for that email.
// Unknown user, inactive account and wrong password all surface as
// ErrInvalidCredentials so responses cannot be used as an enumeration oracle.
func (s *Service) ValidateUser(ctx context.Context, email, password, orgCode string) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.lookupScopedUser(ctx, email, orgCode)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if user == nil || !user.IsActive {
		s.log.Debug("login rejected", zap.String("reason", "no active user"))
		return nil, ErrInvalidCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		s.log.Debug("login rejected", zap.String("reason", "password mismatch"))
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// lookupScopedUser resolves the user the way the credential verifier and the
// password reset flow both need: tenant-scoped first, then the global
// super-admin fallback.
func (s *Service) lookupScopedUser(ctx context.Context, email, orgCode string) (*User, error) {
	orgCode = strings.TrimSpace(orgCode)
	if orgCode != "" {
		org, err := s.store.Organizations(ctx).FindByCode(ctx, orgCode)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if org != nil {
			user, err := s.store.Users(ctx).FindByEmail(ctx, email, org.ID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			if user != nil {
				return user, nil
			}
		}
	}
	return s.store.Users(ctx).FindSuperAdminByEmail(ctx, email)
}
