package identity

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ValidateAccessCode authenticates a presented plaintext code against the
// resolved organization's stored hashes. Hashed storage precludes an indexed
// lookup, so this is a linear scan bounded by the organization's active,
// unexpired codes. The returned principal snapshots the bound role's
// permissions at validation time.
func (s *Service) ValidateAccessCode(ctx context.Context, code, orgID, orgCode string) (Principal, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return Principal{}, fmt.Errorf("%w: access code is required", ErrInvalidInput)
	}
	org, err := s.resolveOrganization(ctx, orgID, orgCode)
	if err != nil {
		return Principal{}, err
	}

	candidates, err := s.store.AccessCodes(ctx).ListActiveByOrg(ctx, org.ID, s.now())
	if err != nil {
		return Principal{}, err
	}
	for _, candidate := range candidates {
		if VerifyPassword(candidate.HashedCode, code) != nil {
			continue
		}
		perms, err := s.rolePermissionKeys(ctx, candidate.RoleID)
		if err != nil {
			return Principal{}, err
		}
		return NewAccessCodePrincipal(candidate, perms), nil
	}
	return Principal{}, ErrUnauthorized
}

// CreateAccessCode stores a new code for the organization. The plaintext is
// hashed before it touches the store and is never returned again.
func (s *Service) CreateAccessCode(ctx context.Context, orgID, name, plaintext, roleID string, expireDate time.Time) (*AccessCode, error) {
	orgID = strings.TrimSpace(orgID)
	name = strings.TrimSpace(name)
	roleID = strings.TrimSpace(roleID)
	if orgID == "" || name == "" || roleID == "" {
		return nil, fmt.Errorf("%w: organization, name and role are required", ErrInvalidInput)
	}
	if strings.TrimSpace(plaintext) == "" {
		return nil, fmt.Errorf("%w: code value is required", ErrInvalidInput)
	}
	hashed, err := HashPassword(plaintext)
	if err != nil {
		return nil, err
	}
	code := &AccessCode{
		OrganizationID: orgID,
		Name:           name,
		HashedCode:     hashed,
		RoleID:         roleID,
		ExpireDate:     expireDate,
		IsActive:       true,
	}
	if err := s.store.AccessCodes(ctx).Create(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

// ListAccessCodes returns every code of the organization, active or not.
func (s *Service) ListAccessCodes(ctx context.Context, orgID string) ([]*AccessCode, error) {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return nil, fmt.Errorf("%w: organization id is required", ErrInvalidInput)
	}
	return s.store.AccessCodes(ctx).ListByOrg(ctx, orgID)
}

// DeactivateAccessCode revokes a code without deleting its row. Non
// super-admin actors can only reach codes inside their own organization; a
// code outside it is indistinguishable from a missing one.
func (s *Service) DeactivateAccessCode(ctx context.Context, actor Principal, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: access code id is required", ErrInvalidInput)
	}
	if !actor.IsSuperAdmin {
		codes, err := s.store.AccessCodes(ctx).ListByOrg(ctx, actor.OrganizationID)
		if err != nil {
			return err
		}
		found := false
		for _, c := range codes {
			if c.ID == id {
				found = true
				break
			}
		}
		if !found {
			return ErrNotFound
		}
	}
	return s.store.AccessCodes(ctx).Deactivate(ctx, id)
}
