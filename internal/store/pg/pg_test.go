package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"kinship.dev/internal/identity"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestSessionRotateUpdatesMatchingRow(t *testing.T) {
	store, mock := newMockStore(t)
	expires := time.Now().Add(7 * 24 * time.Hour)

	mock.ExpectExec("update sessions set refresh_token").
		WithArgs("user-1", "old-token", "device-1", "new-token", expires).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Sessions(context.Background()).Rotate(context.Background(),
		"user-1", "old-token", "device-1", "new-token", expires)
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionRotateConsumedTokenReportsNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	expires := time.Now().Add(7 * 24 * time.Hour)

	mock.ExpectExec("update sessions set refresh_token").
		WithArgs("user-1", "stale-token", "device-1", "new-token", expires).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Sessions(context.Background()).Rotate(context.Background(),
		"user-1", "stale-token", "device-1", "new-token", expires)
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for a token that no row holds, got %v", err)
	}
}

func TestSessionUpsertReplacesDeviceBinding(t *testing.T) {
	store, mock := newMockStore(t)
	expires := time.Now().Add(7 * 24 * time.Hour)

	mock.ExpectExec("insert into sessions.*on conflict \\(user_id, device_id\\) do update").
		WithArgs(sqlmock.AnyArg(), "user-1", "token-1", "device-1", "agent", "10.0.0.1", expires).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.Sessions(context.Background()).Upsert(context.Background(), &identity.Session{
		UserID:       "user-1",
		RefreshToken: "token-1",
		DeviceID:     "device-1",
		UserAgent:    "agent",
		IPAddress:    "10.0.0.1",
		ExpiresAt:    expires,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSessionFindMissReportsNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id, user_id, refresh_token, device_id").
		WithArgs("user-1", "unknown", "device-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Sessions(context.Background()).Find(context.Background(),
		"user-1", "unknown", "device-1")
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionDeleteExpiredReturnsCount(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectExec("delete from sessions where expires_at").
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.Sessions(context.Background()).DeleteExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deleted rows, got %d", n)
	}
}

func TestRoleDeleteTranslatesForeignKeyViolation(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("delete from roles where id").
		WithArgs("role-1").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := store.Roles(context.Background()).Delete(context.Background(), "role-1")
	if !errors.Is(err, identity.ErrConflict) {
		t.Fatalf("expected ErrConflict for a role still in use, got %v", err)
	}
}

func TestUserFindScansNullableColumns(t *testing.T) {
	store, mock := newMockStore(t)
	created := time.Now().Add(-time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "email", "password_hash",
		"is_active", "is_super_admin", "role_id",
		"password_reset_code", "password_reset_expires_at",
		"created_at", "updated_at",
	}).AddRow("user-1", "org-1", "ops@example.com", "$2a$10$hash",
		true, false, "role-1", "", nil, created, created)

	mock.ExpectQuery("select (.+) from users where id").
		WithArgs("user-1").
		WillReturnRows(rows)

	user, err := store.Users(context.Background()).Find(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if user.Email != "ops@example.com" || !user.IsActive {
		t.Fatalf("unexpected user: %+v", user)
	}
	if !user.PasswordResetExpiresAt.IsZero() {
		t.Fatalf("expected zero reset expiry, got %v", user.PasswordResetExpiresAt)
	}
}

func TestAccessCodeListActiveFiltersByTime(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()
	created := now.Add(-24 * time.Hour)

	rows := sqlmock.NewRows([]string{
		"id", "organization_id", "name", "hashed_code", "role_id",
		"expire_date", "is_active", "created_at", "updated_at",
	}).
		AddRow("code-1", "org-1", "front desk", "$2a$10$a", "role-1", nil, true, created, created).
		AddRow("code-2", "org-1", "kiosk", "$2a$10$b", "role-2", now.Add(time.Hour), true, created, created)

	mock.ExpectQuery("select (.+) from access_codes").
		WithArgs("org-1", now).
		WillReturnRows(rows)

	codes, err := store.AccessCodes(context.Background()).ListActiveByOrg(context.Background(), "org-1", now)
	if err != nil {
		t.Fatalf("ListActiveByOrg: %v", err)
	}
	if len(codes) != 2 {
		t.Fatalf("expected 2 codes, got %d", len(codes))
	}
	if !codes[0].ExpireDate.IsZero() {
		t.Fatalf("expected zero expire date for code without expiry, got %v", codes[0].ExpireDate)
	}
	if codes[1].ExpireDate.IsZero() {
		t.Fatalf("expected expire date on second code")
	}
}

func TestSetForRoleRunsInTransaction(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from role_permissions where role_id").
		WithArgs("role-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("insert into role_permissions").
		WithArgs("role-1", "ORGANIZATION__EDIT").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("insert into role_permissions").
		WithArgs("role-1", "USER__VIEW").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.Permissions(context.Background()).SetForRole(context.Background(),
		"role-1", []string{"ORGANIZATION__EDIT", "USER__VIEW"})
	if err != nil {
		t.Fatalf("SetForRole: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
