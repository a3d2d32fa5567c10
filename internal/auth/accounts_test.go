package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gwi.com/aiclone/internal/common"
	"gwi.com/aiclone/internal/config"
	"gwi.com/aiclone/internal/store"
)

type fakeUsers struct {
	store.UserStore
	users map[string]*store.User
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	return f.users[username], nil
}

func newFakeUsers(t *testing.T, users ...*store.User) *fakeUsers {
	t.Helper()
	f := &fakeUsers{users: map[string]*store.User{}}
	for _, u := range users {
		f.users[u.Username] = u
	}
	return f
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := HashPassword(pw)
	require.NoError(t, err)
	return h
}

func TestPasswordHash(t *testing.T) {
	hash := mustHash(t, "hunter2")
	assert.NotEqual(t, "hunter2", hash)
	assert.True(t, CheckPasswordHash("hunter2", hash))
	assert.False(t, CheckPasswordHash("hunter3", hash))
}

func TestAuthenticator_BuiltinFirst(t *testing.T) {
	ctx := context.Background()
	builtin, err := NewBuiltinSource([]config.Account{{Username: "root", Password: "rootpw", Role: "superadmin"}})
	require.NoError(t, err)

	users := newFakeUsers(t, &store.User{
		ID: "u1", Username: "root", PasswordHash: mustHash(t, "dbpw"), Role: "user", IsActive: true,
	})
	a := NewAuthenticator(builtin, NewStoreSource(users))

	id, err := a.Authenticate(ctx, "root", "rootpw")
	require.NoError(t, err)
	assert.Equal(t, "superadmin", id.Role)

	// builtin mismatch falls through to the store
	id, err = a.Authenticate(ctx, "root", "dbpw")
	require.NoError(t, err)
	assert.Equal(t, "user", id.Role)
	assert.Equal(t, "u1", id.ID)
}

func TestAuthenticator_Rejects(t *testing.T) {
	ctx := context.Background()
	users := newFakeUsers(t,
		&store.User{Username: "alice", PasswordHash: mustHash(t, "pw"), Role: "user", IsActive: true},
		&store.User{Username: "mallory", PasswordHash: mustHash(t, "pw"), Role: "user", IsActive: false},
	)
	a := NewAuthenticator(NewStoreSource(users))

	_, err := a.Authenticate(ctx, "alice", "wrong")
	require.ErrorIs(t, err, common.ErrUnauthorized)
	assert.Equal(t, "Invalid username or password", common.Message(err))

	_, err = a.Authenticate(ctx, "nobody", "pw")
	require.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = a.Authenticate(ctx, "", "")
	require.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = a.Authenticate(ctx, "mallory", "pw")
	require.ErrorIs(t, err, common.ErrForbidden)
}
