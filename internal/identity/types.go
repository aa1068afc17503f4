package identity

import "time"

// Organization is the multi-tenancy boundary. Emails, roles and access codes
// are unique within one organization; Code is the short human-facing tenant
// selector presented at login.
type Organization struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a human account. OrganizationID is empty for the cross-tenant
// super-administrator rows, which additionally carry IsSuperAdmin.
type User struct {
	ID             string
	OrganizationID string
	Email          string
	PasswordHash   string
	IsActive       bool
	IsSuperAdmin   bool
	RoleID         string

	PasswordResetCode      string
	PasswordResetExpiresAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role groups permissions inside one organization. IsOwner marks the role
// created with the organization itself; owner roles with active dependents
// may only be deleted by a super-admin.
type Role struct {
	ID             string
	OrganizationID string
	Name           string
	IsOwner        bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Permission is a single resource/action capability. Key carries the
// flattened RESOURCE__ACTION form used in tokens and endpoint requirements.
type Permission struct {
	ID          string
	Key         string
	Description string
	CreatedAt   time.Time
}

// AccessCode is a shared, revocable credential bound to a role rather than a
// user. The plaintext code is never stored; HashedCode holds its bcrypt hash.
type AccessCode struct {
	ID             string
	OrganizationID string
	Name           string
	HashedCode     string
	RoleID         string
	ExpireDate     time.Time // zero means no expiry
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Session is one live refresh-token binding per (UserID, DeviceID). The row
// is created at login, its RefreshToken and ExpiresAt are overwritten in
// place on every successful rotation, and it is deleted on logout, expiry
// discovery or reuse detection.
type Session struct {
	ID           string
	UserID       string
	RefreshToken string
	DeviceID     string
	UserAgent    string
	IPAddress    string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
