package mem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kinship.dev/internal/identity"
)

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	sessions := store.Sessions(ctx)

	expires := time.Now().Add(time.Hour)
	err := sessions.Upsert(ctx, &identity.Session{
		UserID:       "user-1",
		RefreshToken: "token-1",
		DeviceID:     "device-1",
		ExpiresAt:    expires,
	})
	require.NoError(t, err)
	require.Equal(t, 1, store.SessionCount("user-1"))

	// Upsert for the same device replaces, not appends.
	err = sessions.Upsert(ctx, &identity.Session{
		UserID:       "user-1",
		RefreshToken: "token-2",
		DeviceID:     "device-1",
		ExpiresAt:    expires,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, store.SessionCount("user-1"))

	_, err = sessions.Find(ctx, "user-1", "token-1", "device-1")
	assert.ErrorIs(t, err, identity.ErrNotFound)

	found, err := sessions.Find(ctx, "user-1", "token-2", "device-1")
	require.NoError(t, err)
	assert.Equal(t, "device-1", found.DeviceID)

	// Rotation is keyed by the old token value.
	err = sessions.Rotate(ctx, "user-1", "token-2", "device-1", "token-3", expires.Add(time.Hour))
	require.NoError(t, err)
	err = sessions.Rotate(ctx, "user-1", "token-2", "device-1", "token-4", expires)
	assert.ErrorIs(t, err, identity.ErrNotFound)

	require.NoError(t, sessions.DeleteByDevice(ctx, "user-1", "device-1"))
	assert.Equal(t, 0, store.SessionCount("user-1"))
}

func TestDeleteExpiredCountsRows(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	sessions := store.Sessions(ctx)
	now := time.Now()

	require.NoError(t, sessions.Upsert(ctx, &identity.Session{
		UserID: "user-1", RefreshToken: "a", DeviceID: "d1", ExpiresAt: now.Add(-time.Minute),
	}))
	require.NoError(t, sessions.Upsert(ctx, &identity.Session{
		UserID: "user-1", RefreshToken: "b", DeviceID: "d2", ExpiresAt: now.Add(time.Hour),
	}))

	n, err := sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, 1, store.SessionCount("user-1"))
}

func TestRoleDeleteConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	role := store.PutRole(identity.Role{Name: "staff"})
	store.PutUser(identity.User{Email: "a@b.c", RoleID: role.ID})

	err := store.Roles(ctx).Delete(ctx, role.ID)
	assert.ErrorIs(t, err, identity.ErrConflict)
}

func TestPermissionCatalog(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	perms := store.Permissions(ctx)

	require.NoError(t, perms.Ensure(ctx, identity.BuiltinPermissions))
	// Ensure is idempotent.
	require.NoError(t, perms.Ensure(ctx, identity.BuiltinPermissions))

	role := store.PutRole(identity.Role{Name: "staff"})
	require.NoError(t, perms.SetForRole(ctx, role.ID, []string{identity.PermUserView}))

	got, err := perms.PermissionsForRole(ctx, role.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, identity.PermUserView, got[0].Key)

	// Unknown keys are rejected rather than silently dropped.
	err = perms.SetForRole(ctx, role.ID, []string{"NOPE__NOPE"})
	assert.ErrorIs(t, err, identity.ErrConflict)
}
