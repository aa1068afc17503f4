package identity

import (
	"context"
	"errors"
	"fmt"
)

// Authorize decides whether the principal may perform an operation requiring
// every listed permission (AND semantics). An empty requirement list always
// allows. User principals are evaluated against their current permission set,
// re-fetched so live role changes take effect immediately; access-code
// principals keep the snapshot taken at validation time.
func (s *Service) Authorize(ctx context.Context, principal Principal, required []string) error {
	if len(required) == 0 {
		return nil
	}

	switch principal.Kind {
	case KindUser:
		if principal.IsSuperAdmin {
			return nil
		}
		user, err := s.store.Users(ctx).Find(ctx, principal.Subject)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: no user found", ErrForbidden)
			}
			return err
		}
		if user.RoleID == "" {
			return fmt.Errorf("%w: user has no role", ErrForbidden)
		}
		keys, err := s.rolePermissionKeys(ctx, user.RoleID)
		if err != nil {
			return err
		}
		return requireAll(permissionSet(keys), required)

	case KindAccessCode:
		return requireAll(principal.Permissions, required)

	default:
		return ErrForbidden
	}
}

func requireAll(granted map[string]struct{}, required []string) error {
	for _, perm := range required {
		if _, ok := granted[perm]; !ok {
			return fmt.Errorf("%w: insufficient permissions", ErrForbidden)
		}
	}
	return nil
}

// AuthenticateToken validates a bearer access token and yields the request
// principal. The permission snapshot inside the token rides along for
// logging; authorization re-fetches live state in Authorize.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Principal, error) {
	claims, err := s.tokens.VerifyAccess(token)
	if err != nil {
		return Principal{}, ErrUnauthorized
	}
	user, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthorized
		}
		return Principal{}, err
	}
	if !user.IsActive {
		return Principal{}, ErrUnauthorized
	}
	return Principal{
		Kind:           KindUser,
		Subject:        claims.Subject,
		OrganizationID: claims.OrganizationID,
		IsSuperAdmin:   claims.IsSuperAdmin,
		Permissions:    permissionSet(claims.Permissions),
	}, nil
}
