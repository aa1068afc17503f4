package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"kinship.dev/internal/obs"
)

// Login mints a token pair for an already-verified user and persists the
// refresh-token-bound session. One session row exists per (user, device);
// logging in again on the same device replaces it.
func (s *Service) Login(ctx context.Context, user *User, deviceID, userAgent, ipAddress string) (TokenPair, Principal, error) {
	deviceID = strings.TrimSpace(deviceID)
	if user == nil || deviceID == "" {
		return TokenPair{}, Principal{}, fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}

	principal, err := s.userPrincipal(ctx, user)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	pair, err := s.tokens.IssuePair(principal, deviceID)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}

	session := &Session{
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		DeviceID:     deviceID,
		UserAgent:    userAgent,
		IPAddress:    ipAddress,
		ExpiresAt:    pair.RefreshExpiresAt,
	}
	if err := s.store.Sessions(ctx).Upsert(ctx, session); err != nil {
		return TokenPair{}, Principal{}, fmt.Errorf("persist session: %w", err)
	}

	obs.CountLogin("success")
	return pair, principal, nil
}

// Refresh exchanges a refresh token for a new pair, rotating the stored
// session in place. A token that no longer matches the stored current value
// is treated as a reuse/theft signal: every session for that (user, device)
// is revoked before the caller sees a generic unauthorized error.
func (s *Service) Refresh(ctx context.Context, refreshToken, deviceID string) (TokenPair, Principal, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		obs.CountRefresh("invalid_token")
		return TokenPair{}, Principal{}, ErrUnauthorized
	}
	userID := claims.Subject
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		deviceID = claims.DeviceID
	}

	sessions := s.store.Sessions(ctx)
	session, err := sessions.Find(ctx, userID, refreshToken, deviceID)
	if errors.Is(err, ErrNotFound) {
		// The token was already consumed or forged. Revoke the whole device
		// session and force re-authentication.
		s.revokeDevice(ctx, userID, deviceID, "refresh token not in store")
		obs.CountRefresh("reuse_detected")
		return TokenPair{}, Principal{}, ErrUnauthorized
	}
	if err != nil {
		return TokenPair{}, Principal{}, err
	}

	if s.now().After(session.ExpiresAt) {
		if err := sessions.DeleteByID(ctx, session.ID); err != nil {
			return TokenPair{}, Principal{}, err
		}
		obs.CountRefresh("expired")
		return TokenPair{}, Principal{}, fmt.Errorf("%w: refresh token expired", ErrUnauthorized)
	}

	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return TokenPair{}, Principal{}, err
	}
	if user == nil || !user.IsActive {
		obs.CountRefresh("inactive_user")
		return TokenPair{}, Principal{}, ErrUnauthorized
	}

	// Authorization state is re-derived from the role store; nothing is
	// trusted from the old token beyond its signature and subject.
	principal, err := s.userPrincipal(ctx, user)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	pair, err := s.tokens.IssuePair(principal, deviceID)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}

	// Conditional overwrite keyed by the old token value. Losing this race
	// means a concurrent refresh already consumed the token, which is the
	// same reuse signal as a missing row.
	err = sessions.Rotate(ctx, userID, refreshToken, deviceID, pair.RefreshToken, pair.RefreshExpiresAt)
	if errors.Is(err, ErrNotFound) {
		s.revokeDevice(ctx, userID, deviceID, "rotation race lost")
		obs.CountRefresh("reuse_detected")
		return TokenPair{}, Principal{}, ErrUnauthorized
	}
	if err != nil {
		return TokenPair{}, Principal{}, err
	}

	obs.CountRefresh("rotated")
	return pair, principal, nil
}

// Logout deletes the session matching (userID, refreshToken[, deviceID]).
func (s *Service) Logout(ctx context.Context, userID, refreshToken, deviceID string) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(refreshToken) == "" {
		return fmt.Errorf("%w: user id and refresh token are required", ErrInvalidInput)
	}
	return s.store.Sessions(ctx).Delete(ctx, userID, refreshToken, deviceID)
}

// LogoutAll deletes every session for the user, across all devices.
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	return s.store.Sessions(ctx).DeleteByUser(ctx, userID)
}

// CleanupExpiredSessions removes sessions whose absolute expiry has passed.
// cmd/api runs it on a timer.
func (s *Service) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.store.Sessions(ctx).DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("expired sessions removed", zap.Int64("count", n))
	}
	return n, nil
}

func (s *Service) revokeDevice(ctx context.Context, userID, deviceID, reason string) {
	s.log.Warn("potential refresh token reuse detected",
		zap.String("user_id", userID),
		zap.String("device_id", deviceID),
		zap.String("reason", reason),
	)
	if err := s.store.Sessions(ctx).DeleteByDevice(ctx, userID, deviceID); err != nil {
		s.log.Error("device session revocation failed",
			zap.String("user_id", userID),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return
	}
	obs.CountSessionsRevoked()
}
