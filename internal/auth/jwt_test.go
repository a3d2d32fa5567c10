package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gwi.com/aiclone/internal/common"
)

func TestIssueAndVerify(t *testing.T) {
	t.Parallel()
	issuer := NewTokenIssuer("secret", 30*time.Minute, 24*time.Hour)

	token, err := issuer.IssueToken("alice", "superadmin", 0)
	require.NoError(t, err)

	claims, err := issuer.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, "superadmin", claims.Role)
	assert.Equal(t, TokenTypeAccess, claims.Type)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()
	token, err := NewTokenIssuer("secret-a", time.Minute, time.Hour).IssueToken("alice", "user", 0)
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Minute, time.Hour).VerifyToken(token)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	t.Parallel()
	issuer := NewTokenIssuer("secret", time.Minute, time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := issuer.IssueToken("alice", "user", time.Minute)
	require.NoError(t, err)

	issuer.now = time.Now
	_, err = issuer.VerifyToken(token)
	require.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestVerify_Malformed(t *testing.T) {
	t.Parallel()
	_, err := NewTokenIssuer("secret", time.Minute, time.Hour).VerifyToken("not.a.token")
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestVerify_MissingSubject(t *testing.T) {
	t.Parallel()
	issuer := NewTokenIssuer("secret", time.Minute, time.Hour)
	token, err := issuer.IssueToken("", "user", 0)
	require.NoError(t, err)

	_, err = issuer.VerifyToken(token)
	require.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestResetToken(t *testing.T) {
	t.Parallel()
	issuer := NewTokenIssuer("secret", time.Minute, 24*time.Hour)
	token, err := issuer.IssueResetToken("bob@gmail.com")
	require.NoError(t, err)

	claims, err := issuer.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, TokenTypePasswordReset, claims.Type)
	assert.Equal(t, "bob@gmail.com", claims.Subject)
}

func TestExtractBearer(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{name: "ok", header: "Bearer abc", want: "abc"},
		{name: "lowercase scheme", header: "bearer abc", want: "abc"},
		{name: "empty", header: "", wantErr: true},
		{name: "no token", header: "Bearer ", wantErr: true},
		{name: "basic", header: "Basic abc", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearer(tt.header)
			if tt.wantErr {
				require.ErrorIs(t, err, common.ErrUnauthorized)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
