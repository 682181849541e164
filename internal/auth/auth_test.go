package auth

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"clonerp/internal/app"
	"clonerp/internal/models"
	"clonerp/internal/store"
	"clonerp/internal/testutil"
)

const testSecret = "test-secret"

func newTestService(t *testing.T) (*Service, *store.Store, *testutil.Clock) {
	t.Helper()
	st, _ := testutil.OpenStore(t)
	clock := testutil.NewClock()
	svc := NewService(st.Users, Options{
		Secret:          testSecret,
		SessionLifetime: time.Hour,
		BcryptCost:      bcrypt.MinCost,
		Logger:          zerolog.Nop(),
		Now:             clock.Now,
	})
	return svc, st, clock
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "a@x.com", "pw1"))

	sess, token, err := svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)
	assert.Equal(t, models.RoleMember, sess.Role)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, app.ErrInvalidCredential)
}

func TestRegister_StoresBcryptHash(t *testing.T) {
	svc, st, _ := newTestService(t)
	require.NoError(t, svc.Register(context.Background(), "alice", " a@x.com ", "pw1"))

	st.Users.Read(func(doc store.Accounts) {
		acc := doc["alice"]
		assert.Equal(t, "a@x.com", acc.Email)
		assert.NotEqual(t, "pw1", acc.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte("pw1")))
		assert.Equal(t, models.RoleMember, acc.Role)
	})
}

func TestRegister_Duplicate(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "", "pw1"))
	err := svc.Register(ctx, "alice", "other@x.com", "pw2")
	assert.ErrorIs(t, err, app.ErrDuplicateUser)

	// the first password still works
	_, _, err = svc.Login(ctx, "alice", "pw1")
	assert.NoError(t, err)
}

func TestRegister_UsernamesAreCaseSensitive(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "", "pw"))
	require.NoError(t, svc.Register(ctx, "Alice", "", "pw"))
	assert.Len(t, svc.Users(), 2)
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Register(ctx, "", "x@x.com", "pw"), app.ErrValidation)
	assert.ErrorIs(t, svc.Register(ctx, "   ", "x@x.com", "pw"), app.ErrValidation)
	assert.ErrorIs(t, svc.Register(ctx, "bob", "x@x.com", ""), app.ErrValidation)
	long := make([]byte, 80)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, svc.Register(ctx, "bob", "", string(long)), app.ErrValidation)
	assert.Empty(t, svc.Users())
}

func TestLogin_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, _, err := svc.Login(context.Background(), "ghost", "pw")
	assert.ErrorIs(t, err, app.ErrNotFound)
}

func TestAuthenticateAndLogout(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "", "pw1"))
	_, token, err := svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	sess, err := svc.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Username)

	svc.Logout(token)
	_, err = svc.Authenticate(token)
	assert.ErrorIs(t, err, app.ErrUnauthorized)

	// logging out twice is harmless
	svc.Logout(token)
	svc.Logout("garbage")
}

func TestAuthenticate_RejectsForgedToken(t *testing.T) {
	svc, _, clock := newTestService(t)
	other := NewSessions("another-secret", time.Hour, clock.Now)
	_, forged, err := other.Create("mallory", models.RoleAdmin)
	require.NoError(t, err)

	_, err = svc.Authenticate(forged)
	assert.ErrorIs(t, err, app.ErrUnauthorized)
	_, err = svc.Authenticate("")
	assert.ErrorIs(t, err, app.ErrUnauthorized)
}

func TestAuthenticate_Expiry(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	require.NoError(t, svc.Register(ctx, "alice", "", "pw1"))
	_, token, err := svc.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = svc.Authenticate(token)
	assert.ErrorIs(t, err, app.ErrUnauthorized)
}

func TestSessions_SweepOnCreate(t *testing.T) {
	clock := testutil.NewClock()
	s := NewSessions(testSecret, time.Minute, clock.Now)
	_, _, err := s.Create("a", models.RoleMember)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, _, err = s.Create("b", models.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestContextHelpers(t *testing.T) {
	_, ok := SessionFrom(context.Background())
	assert.False(t, ok)

	ctx := WithSession(context.Background(), &models.Session{Username: "alice"})
	sess, ok := SessionFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", sess.Username)
}
