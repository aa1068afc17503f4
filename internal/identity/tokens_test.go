package identity

import (
	"errors"
	"testing"
	"time"
)

func testPrincipal() Principal {
	return Principal{
		Kind:           KindUser,
		Subject:        "user-1",
		OrganizationID: "org-1",
		Permissions:    permissionSet([]string{PermUserView, PermAccessCodeView}),
	}
}

func TestIssuePairAndVerify(t *testing.T) {
	svc, err := NewTokenService("access-secret", "refresh-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	pair, err := svc.IssuePair(testPrincipal(), "device-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens, got %+v", pair)
	}
	if !pair.RefreshExpiresAt.After(pair.AccessExpiresAt) {
		t.Fatalf("refresh expiry %v should outlive access expiry %v",
			pair.RefreshExpiresAt, pair.AccessExpiresAt)
	}

	access, err := svc.VerifyAccess(pair.AccessToken)
	if err != nil {
		t.Fatalf("VerifyAccess: %v", err)
	}
	if access.Subject != "user-1" || access.OrganizationID != "org-1" {
		t.Fatalf("unexpected access claims: %+v", access)
	}
	if access.PrincipalType != string(KindUser) {
		t.Fatalf("unexpected principal type: %s", access.PrincipalType)
	}
	if len(access.Permissions) != 2 {
		t.Fatalf("expected 2 permissions, got %v", access.Permissions)
	}

	refresh, err := svc.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh: %v", err)
	}
	if refresh.Subject != "user-1" || refresh.DeviceID != "device-1" {
		t.Fatalf("unexpected refresh claims: %+v", refresh)
	}
}

func TestIssuePairMintsDistinctTokenIDs(t *testing.T) {
	svc, err := NewTokenService("access-secret", "refresh-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	first, err := svc.IssuePair(testPrincipal(), "device-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	second, err := svc.IssuePair(testPrincipal(), "device-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if first.RefreshToken == second.RefreshToken {
		t.Fatalf("two pairs for the same principal share a refresh token")
	}
	if first.AccessToken == second.AccessToken {
		t.Fatalf("two pairs for the same principal share an access token")
	}
}

func TestTokensDoNotCrossVerify(t *testing.T) {
	svc, err := NewTokenService("access-secret", "refresh-secret")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	pair, err := svc.IssuePair(testPrincipal(), "device-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	if _, err := svc.VerifyAccess(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("refresh token passed access verification: %v", err)
	}
	if _, err := svc.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token passed refresh verification: %v", err)
	}
}

func TestVerifyAccessExpired(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	svc, err := NewTokenService("access-secret", "refresh-secret",
		WithAccessTTL(time.Minute), WithTokenClock(clock))
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	pair, err := svc.IssuePair(testPrincipal(), "device-1")
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	if _, err := svc.VerifyAccess(pair.AccessToken); err != nil {
		t.Fatalf("VerifyAccess before expiry: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := svc.VerifyAccess(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token after expiry, got %v", err)
	}
}

func TestNewTokenServiceRejectsSharedSecret(t *testing.T) {
	if _, err := NewTokenService("same", "same"); err == nil {
		t.Fatalf("expected error for identical secrets")
	}
	if _, err := NewTokenService("", "refresh"); err == nil {
		t.Fatalf("expected error for missing access secret")
	}
}
