package identity

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Mailer delivers out-of-band messages. The concrete transport lives in
// internal/mail; the core only needs the send signature.
type Mailer interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Service implements the identity and session operations: credential
// verification, token issuance, session rotation, access-code validation,
// permission evaluation and password reset.
type Service struct {
	store  Store
	tokens *TokenService
	mailer Mailer
	log    *zap.Logger
	now    func() time.Time

	resetCode func() (string, error)
}

// Option configures Service behavior.
type Option func(*Service)

// WithMailer sets the delivery collaborator for password reset codes.
func WithMailer(m Mailer) Option {
	return func(s *Service) {
		if m != nil {
			s.mailer = m
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithResetCodeSource overrides reset code generation, for tests.
func WithResetCodeSource(fn func() (string, error)) Option {
	return func(s *Service) {
		if fn != nil {
			s.resetCode = fn
		}
	}
}

// NewService constructs the identity service.
func NewService(store Store, tokens *TokenService, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity: store is required")
	}
	if tokens == nil {
		return nil, errors.New("identity: token service is required")
	}
	s := &Service{
		store:     store,
		tokens:    tokens,
		mailer:    nopMailer{},
		log:       zap.NewNop(),
		now:       time.Now,
		resetCode: generateResetCode,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsureBuiltins makes sure the predefined permission catalog exists.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	return s.store.Permissions(ctx).Ensure(ctx, BuiltinPermissions)
}

// resolveOrganization resolves a tenant by id or code. Exactly one selector
// is expected; id wins when both are present.
func (s *Service) resolveOrganization(ctx context.Context, id, code string) (*Organization, error) {
	id = strings.TrimSpace(id)
	code = strings.TrimSpace(code)
	switch {
	case id != "":
		return s.store.Organizations(ctx).Find(ctx, id)
	case code != "":
		return s.store.Organizations(ctx).FindByCode(ctx, code)
	default:
		return nil, fmt.Errorf("%w: organization selector is required", ErrInvalidInput)
	}
}

// rolePermissionKeys flattens a role's permissions into RESOURCE__ACTION
// strings. An empty role id yields an empty set.
func (s *Service) rolePermissionKeys(ctx context.Context, roleID string) ([]string, error) {
	if strings.TrimSpace(roleID) == "" {
		return nil, nil
	}
	perms, err := s.store.Permissions(ctx).PermissionsForRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(perms))
	for _, p := range perms {
		keys = append(keys, p.Key)
	}
	return keys, nil
}

// userPrincipal builds a user principal with permissions freshly derived
// from the authoritative role store.
func (s *Service) userPrincipal(ctx context.Context, user *User) (Principal, error) {
	perms, err := s.rolePermissionKeys(ctx, user.RoleID)
	if err != nil {
		return Principal{}, err
	}
	return NewUserPrincipal(user, perms), nil
}

func generateResetCode() (string, error) {
	// 6-digit numeric code from a cryptographically secure source.
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

type nopMailer struct{}

func (nopMailer) Send(context.Context, string, string, string, string) error { return nil }
