package identity

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const defaultIssuer = "kinship"

// ErrInvalidToken indicates a token failed signature or claim validation.
var ErrInvalidToken = errors.New("identity: invalid token")

// AccessClaims is the payload of a short-lived access token. It snapshots the
// principal's permissions and tenancy flags for a single request window.
type AccessClaims struct {
	OrganizationID string   `json:"organizationId,omitempty"`
	IsSuperAdmin   bool     `json:"isSuperAdmin,omitempty"`
	Permissions    []string `json:"permissions"`
	PrincipalType  string   `json:"type"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token. It deliberately carries no
// permissions: refreshing must re-derive authorization state from the store,
// never replay stale claims.
type RefreshClaims struct {
	OrganizationID string `json:"organizationId,omitempty"`
	DeviceID       string `json:"deviceId"`
	jwt.RegisteredClaims
}

// TokenPair bundles a freshly minted access/refresh token pair.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// TokenService mints and verifies signed token pairs. Access and refresh
// tokens have independent secrets and lifetimes.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(t *TokenService) {
		if ttl > 0 {
			t.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(t *TokenService) {
		if ttl > 0 {
			t.refreshTTL = ttl
		}
	}
}

// WithTokenIssuer overrides the issuer claim.
func WithTokenIssuer(issuer string) TokenOption {
	return func(t *TokenService) {
		issuer = strings.TrimSpace(issuer)
		if issuer != "" {
			t.issuer = issuer
		}
	}
}

// WithTokenClock overrides the time source, for tests.
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(t *TokenService) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTokenService constructs a TokenService. Both secrets are required and
// must differ so a refresh token can never pass access-token verification.
func NewTokenService(accessSecret, refreshSecret string, opts ...TokenOption) (*TokenService, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	refreshSecret = strings.TrimSpace(refreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("identity: both token secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("identity: access and refresh secrets must differ")
	}
	t := &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     DefaultAccessTTL,
		refreshTTL:    DefaultRefreshTTL,
		issuer:        defaultIssuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// RefreshTTL returns the configured refresh token lifetime; the session store
// derives its absolute expiry from it.
func (t *TokenService) RefreshTTL() time.Duration { return t.refreshTTL }

// IssuePair mints a signed access/refresh pair for the principal on the given
// device. Each token carries its own random identifier and issue timestamp so
// two tokens minted within the same clock tick never collide.
func (t *TokenService) IssuePair(principal Principal, deviceID string) (TokenPair, error) {
	now := t.now().UTC()
	accessExp := now.Add(t.accessTTL)
	refreshExp := now.Add(t.refreshTTL)

	perms := principal.PermissionList()
	sort.Strings(perms)

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		OrganizationID: principal.OrganizationID,
		IsSuperAdmin:   principal.IsSuperAdmin,
		Permissions:    perms,
		PrincipalType:  string(principal.Kind),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   principal.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(accessExp),
			ID:        uuid.NewString(),
		},
	})
	accessToken, err := access.SignedString(t.accessSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, RefreshClaims{
		OrganizationID: principal.OrganizationID,
		DeviceID:       deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   principal.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			ID:        uuid.NewString(),
		},
	})
	refreshToken, err := refresh.SignedString(t.refreshSecret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token's signature and registered claims.
func (t *TokenService) VerifyAccess(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := t.verify(token, claims, t.accessSecret); err != nil {
		return nil, err
	}
	if claims.PrincipalType != string(KindUser) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token against the refresh secret. The
// token's own signature is the trust boundary for resolving the user id;
// session-store consultation happens afterwards.
func (t *TokenService) VerifyRefresh(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := t.verify(token, claims, t.refreshSecret); err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.DeviceID) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (t *TokenService) verify(token string, claims jwt.Claims, secret []byte) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (any, error) {
		if tok.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithTimeFunc(t.now))
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return ErrInvalidToken
	}
	return nil
}
