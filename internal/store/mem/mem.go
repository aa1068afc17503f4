// Package mem provides an in-memory identity.Store for tests; deployments
// use store/pg.
package mem

import (
	"context"
	"sync"
	"time"

	"kinship.dev/internal/identity"
	"kinship.dev/internal/ids"
)

type Store struct {
	mu sync.RWMutex

	orgs        map[string]identity.Organization
	users       map[string]identity.User
	roles       map[string]identity.Role
	perms       map[string]identity.Permission // by key
	rolePerms   map[string][]string            // role id -> permission keys
	accessCodes map[string]identity.AccessCode
	sessions    map[string]identity.Session
}

var _ identity.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		orgs:        make(map[string]identity.Organization),
		users:       make(map[string]identity.User),
		roles:       make(map[string]identity.Role),
		perms:       make(map[string]identity.Permission),
		rolePerms:   make(map[string][]string),
		accessCodes: make(map[string]identity.AccessCode),
		sessions:    make(map[string]identity.Session),
	}
}

func (s *Store) Organizations(context.Context) identity.OrganizationStore { return (*orgStore)(s) }
func (s *Store) Users(context.Context) identity.UserStore                 { return (*userStore)(s) }
func (s *Store) Roles(context.Context) identity.RoleStore                 { return (*roleStore)(s) }
func (s *Store) Permissions(context.Context) identity.PermissionStore     { return (*permStore)(s) }
func (s *Store) AccessCodes(context.Context) identity.AccessCodeStore     { return (*accessCodeStore)(s) }
func (s *Store) Sessions(context.Context) identity.SessionStore           { return (*sessionStore)(s) }

// Seeding helpers. Zero-value ids are filled in.

func (s *Store) PutOrganization(org identity.Organization) identity.Organization {
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == "" {
		org.ID = ids.New()
	}
	s.orgs[org.ID] = org
	return org
}

func (s *Store) PutUser(user identity.User) identity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = ids.New()
	}
	s.users[user.ID] = user
	return user
}

func (s *Store) PutRole(role identity.Role) identity.Role {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role.ID == "" {
		role.ID = ids.New()
	}
	s.roles[role.ID] = role
	return role
}

// SessionCount reports how many live session rows exist for the user.
func (s *Store) SessionCount(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			n++
		}
	}
	return n
}

// Organization store -------------------------------------------------------

type orgStore Store

func (s *orgStore) Find(_ context.Context, id string) (*identity.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return &org, nil
}

func (s *orgStore) FindByCode(_ context.Context, code string) (*identity.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, org := range s.orgs {
		if org.Code == code {
			out := org
			return &out, nil
		}
	}
	return nil, identity.ErrNotFound
}

// User store ---------------------------------------------------------------

type userStore Store

func (s *userStore) Find(_ context.Context, id string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return &user, nil
}

func (s *userStore) FindByEmail(_ context.Context, email, organizationID string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email && user.OrganizationID == organizationID {
			out := user
			return &out, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *userStore) FindSuperAdminByEmail(_ context.Context, email string) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email && user.OrganizationID == "" && user.IsSuperAdmin {
			out := user
			return &out, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *userStore) SetResetCode(_ context.Context, userID, code string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return identity.ErrNotFound
	}
	user.PasswordResetCode = code
	user.PasswordResetExpiresAt = expiresAt
	s.users[userID] = user
	return nil
}

func (s *userStore) ResetPassword(_ context.Context, userID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return identity.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.PasswordResetCode = ""
	user.PasswordResetExpiresAt = time.Time{}
	s.users[userID] = user
	return nil
}

// Role store ---------------------------------------------------------------

type roleStore Store

func (s *roleStore) Find(_ context.Context, id string) (*identity.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return &role, nil
}

func (s *roleStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return identity.ErrNotFound
	}
	// Mirrors the relational constraint: a role still referenced by users or
	// access codes cannot be removed.
	for _, user := range s.users {
		if user.RoleID == id {
			return identity.ErrConflict
		}
	}
	for _, code := range s.accessCodes {
		if code.RoleID == id {
			return identity.ErrConflict
		}
	}
	delete(s.roles, id)
	delete(s.rolePerms, id)
	return nil
}

// Permission store ---------------------------------------------------------

type permStore Store

func (s *permStore) Ensure(_ context.Context, perms []identity.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range perms {
		if _, ok := s.perms[p.Key]; ok {
			continue
		}
		if p.ID == "" {
			p.ID = ids.New()
		}
		s.perms[p.Key] = p
	}
	return nil
}

func (s *permStore) PermissionsForRole(_ context.Context, roleID string) ([]identity.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []identity.Permission
	for _, key := range s.rolePerms[roleID] {
		if p, ok := s.perms[key]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *permStore) SetForRole(_ context.Context, roleID string, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := s.perms[key]; !ok {
			return identity.ErrConflict
		}
		kept = append(kept, key)
	}
	s.rolePerms[roleID] = kept
	return nil
}

// Access code store --------------------------------------------------------

type accessCodeStore Store

func (s *accessCodeStore) Create(_ context.Context, code *identity.AccessCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if code.ID == "" {
		code.ID = ids.New()
	}
	code.CreatedAt = time.Now()
	s.accessCodes[code.ID] = *code
	return nil
}

func (s *accessCodeStore) ListByOrg(_ context.Context, organizationID string) ([]*identity.AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*identity.AccessCode
	for _, code := range s.accessCodes {
		if code.OrganizationID == organizationID {
			c := code
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *accessCodeStore) ListActiveByOrg(_ context.Context, organizationID string, now time.Time) ([]*identity.AccessCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*identity.AccessCode
	for _, code := range s.accessCodes {
		if code.OrganizationID != organizationID || !code.IsActive {
			continue
		}
		if !code.ExpireDate.IsZero() && !code.ExpireDate.After(now) {
			continue
		}
		c := code
		out = append(out, &c)
	}
	return out, nil
}

func (s *accessCodeStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.accessCodes[id]
	if !ok {
		return identity.ErrNotFound
	}
	code.IsActive = false
	s.accessCodes[id] = code
	return nil
}

// Session store ------------------------------------------------------------

type sessionStore Store

func (s *sessionStore) Upsert(_ context.Context, session *identity.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.sessions {
		if existing.UserID == session.UserID && existing.DeviceID == session.DeviceID {
			session.ID = id
			s.sessions[id] = *session
			return nil
		}
	}
	if session.ID == "" {
		session.ID = ids.New()
	}
	s.sessions[session.ID] = *session
	return nil
}

func (s *sessionStore) Find(_ context.Context, userID, refreshToken, deviceID string) (*identity.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		if sess.UserID == userID && sess.RefreshToken == refreshToken && sess.DeviceID == deviceID {
			out := sess
			return &out, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *sessionStore) Rotate(_ context.Context, userID, oldToken, deviceID, newToken string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID && sess.RefreshToken == oldToken && sess.DeviceID == deviceID {
			sess.RefreshToken = newToken
			sess.ExpiresAt = expiresAt
			s.sessions[id] = sess
			return nil
		}
	}
	return identity.ErrNotFound
}

func (s *sessionStore) DeleteByID(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *sessionStore) Delete(_ context.Context, userID, refreshToken, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID != userID || sess.RefreshToken != refreshToken {
			continue
		}
		if deviceID != "" && sess.DeviceID != deviceID {
			continue
		}
		delete(s.sessions, id)
	}
	return nil
}

func (s *sessionStore) DeleteByDevice(_ context.Context, userID, deviceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID && sess.DeviceID == deviceID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *sessionStore) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *sessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, sess := range s.sessions {
		if sess.ExpiresAt.Before(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}
