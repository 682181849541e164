package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clonerp/internal/app"
	"clonerp/internal/models"
	"clonerp/internal/store"
)

func TestGates(t *testing.T) {
	member := &models.Session{Username: "alice", Role: models.RoleMember}
	admin := &models.Session{Username: "kaan", Role: models.RoleAdmin}

	assert.ErrorIs(t, RequireMember(nil), app.ErrUnauthorized)
	assert.NoError(t, RequireMember(member))
	assert.ErrorIs(t, RequireAdmin(nil), app.ErrUnauthorized)
	assert.ErrorIs(t, RequireAdmin(member), app.ErrUnauthorized)
	assert.NoError(t, RequireAdmin(admin))
}

func TestSetRole_AdminPromotesUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "", "pw"))
	admin := &models.Session{Username: "kaan", Role: models.RoleAdmin}

	require.NoError(t, svc.SetRole(ctx, admin, "alice", "admin"))
	assert.Equal(t, []string{"alice"}, svc.Admins())

	sess, _, err := svc.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, sess.Role)
}

func TestSetRole_NonAdminIsRejectedWithoutMutation(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "", "pw"))
	require.NoError(t, svc.Register(ctx, "bob", "", "pw"))

	var before store.Accounts
	st.Users.Read(func(doc store.Accounts) {
		before = make(store.Accounts, len(doc))
		for k, v := range doc {
			before[k] = v
		}
	})

	member := &models.Session{Username: "bob", Role: models.RoleMember}
	assert.ErrorIs(t, svc.SetRole(ctx, member, "bob", "admin"), app.ErrUnauthorized)
	assert.ErrorIs(t, svc.SetRole(ctx, nil, "alice", "admin"), app.ErrUnauthorized)

	st.Users.Read(func(doc store.Accounts) {
		assert.Equal(t, before, doc)
	})
	assert.Empty(t, svc.Admins())
}

func TestSetRole_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "", "pw"))
	admin := &models.Session{Username: "kaan", Role: models.RoleAdmin}

	assert.ErrorIs(t, svc.SetRole(ctx, admin, "ghost", "admin"), app.ErrNotFound)
	assert.ErrorIs(t, svc.SetRole(ctx, admin, "alice", "moderator"), app.ErrValidation)

	// the legacy member name is still accepted
	require.NoError(t, svc.SetRole(ctx, admin, "alice", "uye"))
	assert.Equal(t, models.RoleMember, svc.Users()[0].Role)
}

func TestUsers_SortedByName(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	for _, name := range []string{"zeynep", "ali", "mert"} {
		require.NoError(t, svc.Register(ctx, name, name+"@x.com", "pw"))
	}
	users := svc.Users()
	require.Len(t, users, 3)
	assert.Equal(t, "ali", users[0].Username)
	assert.Equal(t, "ali@x.com", users[0].Email)
	assert.Equal(t, "zeynep", users[2].Username)
}
