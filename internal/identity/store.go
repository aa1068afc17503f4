package identity

import (
	"context"
	"time"
)

// Store describes the persistence operations required by the identity
// subsystem. Implementations live in internal/store/pg; tests use in-memory
// fakes.
type Store interface {
	Organizations(ctx context.Context) OrganizationStore
	Users(ctx context.Context) UserStore
	Roles(ctx context.Context) RoleStore
	Permissions(ctx context.Context) PermissionStore
	AccessCodes(ctx context.Context) AccessCodeStore
	Sessions(ctx context.Context) SessionStore
}

// OrganizationStore resolves tenants.
type OrganizationStore interface {
	Find(ctx context.Context, id string) (*Organization, error)
	FindByCode(ctx context.Context, code string) (*Organization, error)
}

// UserStore manages user rows. Email lookups are tenant-scoped; the global
// super-admin rows (organization id empty, is_super_admin true) have their
// own lookup so the credential verifier can fall back to them.
type UserStore interface {
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email, organizationID string) (*User, error)
	FindSuperAdminByEmail(ctx context.Context, email string) (*User, error)
	SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error
	// ResetPassword stores the new hash and clears both reset-code fields in
	// a single statement.
	ResetPassword(ctx context.Context, userID, passwordHash string) error
}

// RoleStore manages roles.
type RoleStore interface {
	Find(ctx context.Context, id string) (*Role, error)
	Delete(ctx context.Context, id string) error
}

// PermissionStore manages the permission catalog and role bindings.
type PermissionStore interface {
	Ensure(ctx context.Context, perms []Permission) error
	PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error)
	SetForRole(ctx context.Context, roleID string, keys []string) error
}

// AccessCodeStore manages shared organizational credentials.
type AccessCodeStore interface {
	Create(ctx context.Context, code *AccessCode) error
	ListByOrg(ctx context.Context, organizationID string) ([]*AccessCode, error)
	// ListActiveByOrg returns the active, unexpired candidates the validator
	// scans. Hashed storage precludes a direct indexed lookup by code value.
	ListActiveByOrg(ctx context.Context, organizationID string, now time.Time) ([]*AccessCode, error)
	Deactivate(ctx context.Context, id string) error
}

// SessionStore is the single shared mutable resource the core manages.
// All calls operate on the persisted rows; nothing is cached in process.
type SessionStore interface {
	// Upsert inserts the session or replaces the existing row for the same
	// (user id, device id) pair.
	Upsert(ctx context.Context, s *Session) error
	Find(ctx context.Context, userID, refreshToken, deviceID string) (*Session, error)
	// Rotate overwrites refresh token and expiry in place, keyed by the old
	// token value. It returns ErrNotFound when no row matched, which callers
	// must treat as a lost race (the token was already consumed).
	Rotate(ctx context.Context, userID, oldToken, deviceID, newToken string, expiresAt time.Time) error
	DeleteByID(ctx context.Context, id string) error
	// Delete removes sessions matching (userID, refreshToken[, deviceID]).
	Delete(ctx context.Context, userID, refreshToken, deviceID string) error
	DeleteByDevice(ctx context.Context, userID, deviceID string) error
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
