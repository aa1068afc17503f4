package identity

import (
	"context"
	"fmt"
	"strings"
)

// DeleteRole removes a role. Owner roles anchor their organization and may
// only be deleted by a super-admin; the store surfaces ErrConflict when
// active users or access codes still depend on the role.
func (s *Service) DeleteRole(ctx context.Context, actor Principal, roleID string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	role, err := s.store.Roles(ctx).Find(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsOwner && !actor.IsSuperAdmin {
		return fmt.Errorf("%w: owner roles require super-admin rights", ErrForbidden)
	}
	return s.store.Roles(ctx).Delete(ctx, roleID)
}

// SetRolePermissions replaces a role's permission set in one transactional
// reconciliation; this is the only sanctioned way to change permissions a
// role already references.
func (s *Service) SetRolePermissions(ctx context.Context, roleID string, keys []string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role id is required", ErrInvalidInput)
	}
	deduped := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, key)
	}
	return s.store.Permissions(ctx).SetForRole(ctx, roleID, deduped)
}
