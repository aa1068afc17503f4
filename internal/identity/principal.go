package identity

// PrincipalKind discriminates the two authenticated identity kinds.
type PrincipalKind string

const (
	KindUser       PrincipalKind = "user"
	KindAccessCode PrincipalKind = "accessCode"
)

// Principal is the tagged result of authentication, computed per request and
// never persisted. A user principal carries Subject/IsSuperAdmin; an
// access-code principal carries AccessCodeID and a permission snapshot taken
// at validation time. The two kinds share nothing beyond the permission set,
// so a tagged struct is used instead of an interface hierarchy.
type Principal struct {
	Kind           PrincipalKind
	Subject        string // user id when Kind == KindUser
	AccessCodeID   string // access code id when Kind == KindAccessCode
	OrganizationID string
	IsSuperAdmin   bool
	Permissions    map[string]struct{}
}

// NewUserPrincipal builds a user principal from a resolved user row and its
// flattened permission keys.
func NewUserPrincipal(user *User, perms []string) Principal {
	return Principal{
		Kind:           KindUser,
		Subject:        user.ID,
		OrganizationID: user.OrganizationID,
		IsSuperAdmin:   user.IsSuperAdmin,
		Permissions:    permissionSet(perms),
	}
}

// NewAccessCodePrincipal builds an access-code principal carrying the bound
// role's permissions as they were at validation time.
func NewAccessCodePrincipal(code *AccessCode, perms []string) Principal {
	return Principal{
		Kind:           KindAccessCode,
		AccessCodeID:   code.ID,
		OrganizationID: code.OrganizationID,
		Permissions:    permissionSet(perms),
	}
}

// HasPermission reports whether the principal holds the flattened key.
func (p Principal) HasPermission(key string) bool {
	_, ok := p.Permissions[key]
	return ok
}

// PermissionList returns the permission set as a slice, for token claims.
func (p Principal) PermissionList() []string {
	out := make([]string, 0, len(p.Permissions))
	for k := range p.Permissions {
		out = append(out, k)
	}
	return out
}

func permissionSet(perms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return set
}
