package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kinship.dev/internal/identity"
	"kinship.dev/internal/ids"
)

// Organization store -------------------------------------------------------

type orgStore struct{ db *sql.DB }

func (s *orgStore) Find(ctx context.Context, id string) (*identity.Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, code, name, created_at, updated_at from organizations where id=$1`, id)
	return scanOrganization(row)
}

func (s *orgStore) FindByCode(ctx context.Context, code string) (*identity.Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, code, name, created_at, updated_at from organizations where code=$1`, code)
	return scanOrganization(row)
}

func scanOrganization(row *sql.Row) (*identity.Organization, error) {
	var org identity.Organization
	err := row.Scan(&org.ID, &org.Code, &org.Name, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

const userColumns = `id, coalesce(organization_id, ''), email, password_hash,
	is_active, is_super_admin, coalesce(role_id, ''),
	coalesce(password_reset_code, ''), password_reset_expires_at,
	created_at, updated_at`

func (s *userStore) Find(ctx context.Context, id string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id=$1`, id)
	return scanUser(row)
}

func (s *userStore) FindByEmail(ctx context.Context, email, organizationID string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email=$1 and organization_id=$2`,
		email, organizationID)
	return scanUser(row)
}

func (s *userStore) FindSuperAdminByEmail(ctx context.Context, email string) (*identity.User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users
		 where email=$1 and organization_id is null and is_super_admin`, email)
	return scanUser(row)
}

func (s *userStore) SetResetCode(ctx context.Context, userID, code string, expiresAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_reset_code=$2, password_reset_expires_at=$3, updated_at=now()
		 where id=$1`, userID, code, expiresAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *userStore) ResetPassword(ctx context.Context, userID, passwordHash string) error {
	// Password swap and code clearing are one statement so a confirm can
	// never leave a half-reset row.
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash=$2, password_reset_code=null,
		 password_reset_expires_at=null, updated_at=now() where id=$1`,
		userID, passwordHash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanUser(row *sql.Row) (*identity.User, error) {
	var (
		u       identity.User
		resetAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.OrganizationID, &u.Email, &u.PasswordHash,
		&u.IsActive, &u.IsSuperAdmin, &u.RoleID,
		&u.PasswordResetCode, &resetAt, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if resetAt.Valid {
		u.PasswordResetExpiresAt = resetAt.Time
	}
	return &u, nil
}

// Role store ---------------------------------------------------------------

type roleStore struct{ db *sql.DB }

func (s *roleStore) Find(ctx context.Context, id string) (*identity.Role, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, organization_id, name, is_owner, created_at, updated_at from roles where id=$1`, id)
	var role identity.Role
	err := row.Scan(&role.ID, &role.OrganizationID, &role.Name, &role.IsOwner,
		&role.CreatedAt, &role.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *roleStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from roles where id=$1`, id)
	if err != nil {
		return translateConstraint(err)
	}
	return requireRow(res)
}

// Permission store ---------------------------------------------------------

type permissionStore struct{ db *sql.DB }

func (s *permissionStore) Ensure(ctx context.Context, perms []identity.Permission) error {
	for _, p := range perms {
		if p.ID == "" {
			p.ID = ids.New()
		}
		_, err := s.db.ExecContext(ctx,
			`insert into permissions(id, key, description) values($1,$2,$3)
			 on conflict (key) do nothing`,
			p.ID, p.Key, p.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *permissionStore) PermissionsForRole(ctx context.Context, roleID string) ([]identity.Permission, error) {
	rows, err := s.db.QueryContext(ctx,
		`select p.id, p.key, p.description, p.created_at from permissions p
		 join role_permissions rp on rp.permission_id=p.id where rp.role_id=$1`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []identity.Permission
	for rows.Next() {
		var p identity.Permission
		if err := rows.Scan(&p.ID, &p.Key, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func (s *permissionStore) SetForRole(ctx context.Context, roleID string, keys []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from role_permissions where role_id=$1`, roleID); err != nil {
		return err
	}
	for _, key := range keys {
		_, err := tx.ExecContext(ctx,
			`insert into role_permissions(role_id, permission_id)
			 select $1, id from permissions where key=$2`, roleID, key)
		if err != nil {
			return translateConstraint(err)
		}
	}
	return tx.Commit()
}

// Access code store --------------------------------------------------------

type accessCodeStore struct{ db *sql.DB }

const accessCodeColumns = `id, organization_id, name, hashed_code, role_id,
	expire_date, is_active, created_at, updated_at`

func (s *accessCodeStore) Create(ctx context.Context, code *identity.AccessCode) error {
	if code.ID == "" {
		code.ID = ids.New()
	}
	var expire any
	if !code.ExpireDate.IsZero() {
		expire = code.ExpireDate
	}
	_, err := s.db.ExecContext(ctx,
		`insert into access_codes(id, organization_id, name, hashed_code, role_id, expire_date, is_active)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		code.ID, code.OrganizationID, code.Name, code.HashedCode, code.RoleID, expire, code.IsActive)
	return translateConstraint(err)
}

func (s *accessCodeStore) ListByOrg(ctx context.Context, organizationID string) ([]*identity.AccessCode, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+accessCodeColumns+` from access_codes
		 where organization_id=$1 order by created_at`, organizationID)
	if err != nil {
		return nil, err
	}
	return collectAccessCodes(rows)
}

func (s *accessCodeStore) ListActiveByOrg(ctx context.Context, organizationID string, now time.Time) ([]*identity.AccessCode, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+accessCodeColumns+` from access_codes
		 where organization_id=$1 and is_active and (expire_date is null or expire_date > $2)
		 order by created_at`, organizationID, now)
	if err != nil {
		return nil, err
	}
	return collectAccessCodes(rows)
}

func (s *accessCodeStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`update access_codes set is_active=false, updated_at=now() where id=$1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func collectAccessCodes(rows *sql.Rows) ([]*identity.AccessCode, error) {
	defer rows.Close()
	var codes []*identity.AccessCode
	for rows.Next() {
		var (
			c      identity.AccessCode
			expire sql.NullTime
		)
		err := rows.Scan(&c.ID, &c.OrganizationID, &c.Name, &c.HashedCode, &c.RoleID,
			&expire, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
		if err != nil {
			return nil, err
		}
		if expire.Valid {
			c.ExpireDate = expire.Time
		}
		codes = append(codes, &c)
	}
	return codes, rows.Err()
}

// Session store ------------------------------------------------------------

type sessionStore struct{ db *sql.DB }

func (s *sessionStore) Upsert(ctx context.Context, session *identity.Session) error {
	if session.ID == "" {
		session.ID = ids.New()
	}
	// One row per (user, device); logging in again on the same device
	// replaces the existing binding.
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(id, user_id, refresh_token, device_id, user_agent, ip_address, expires_at)
		 values($1,$2,$3,$4,$5,$6,$7)
		 on conflict (user_id, device_id) do update
		 set refresh_token=excluded.refresh_token,
		     user_agent=excluded.user_agent,
		     ip_address=excluded.ip_address,
		     expires_at=excluded.expires_at,
		     updated_at=now()`,
		session.ID, session.UserID, session.RefreshToken, session.DeviceID,
		session.UserAgent, session.IPAddress, session.ExpiresAt)
	return translateConstraint(err)
}

func (s *sessionStore) Find(ctx context.Context, userID, refreshToken, deviceID string) (*identity.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, refresh_token, device_id, coalesce(user_agent, ''),
		        coalesce(ip_address, ''), expires_at, created_at, updated_at
		 from sessions where user_id=$1 and refresh_token=$2 and device_id=$3`,
		userID, refreshToken, deviceID)
	var sess identity.Session
	err := row.Scan(&sess.ID, &sess.UserID, &sess.RefreshToken, &sess.DeviceID,
		&sess.UserAgent, &sess.IPAddress, &sess.ExpiresAt, &sess.CreatedAt, &sess.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, identity.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *sessionStore) Rotate(ctx context.Context, userID, oldToken, deviceID, newToken string, expiresAt time.Time) error {
	// The update is keyed by the old token value: the read and the overwrite
	// are one conditional statement, so two concurrent refreshes presenting
	// the same token cannot both succeed.
	res, err := s.db.ExecContext(ctx,
		`update sessions set refresh_token=$4, expires_at=$5, updated_at=now()
		 where user_id=$1 and refresh_token=$2 and device_id=$3`,
		userID, oldToken, deviceID, newToken, expiresAt)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sessionStore) DeleteByID(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where id=$1`, id)
	return err
}

func (s *sessionStore) Delete(ctx context.Context, userID, refreshToken, deviceID string) error {
	if deviceID == "" {
		_, err := s.db.ExecContext(ctx,
			`delete from sessions where user_id=$1 and refresh_token=$2`, userID, refreshToken)
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`delete from sessions where user_id=$1 and refresh_token=$2 and device_id=$3`,
		userID, refreshToken, deviceID)
	return err
}

func (s *sessionStore) DeleteByDevice(ctx context.Context, userID, deviceID string) error {
	_, err := s.db.ExecContext(ctx,
		`delete from sessions where user_id=$1 and device_id=$2`, userID, deviceID)
	return err
}

func (s *sessionStore) DeleteByUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `delete from sessions where user_id=$1`, userID)
	return err
}

func (s *sessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from sessions where expires_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return identity.ErrNotFound
	}
	return nil
}
