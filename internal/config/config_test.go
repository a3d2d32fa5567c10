package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.HTTPPort)
	assert.Equal(t, "mongo", cfg.StoreDriver)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 24*time.Hour, cfg.ResetTokenTTL)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxUploadBytes)
	require.Len(t, cfg.BuiltinAccounts, 3)
	assert.Equal(t, "superadmin", cfg.BuiltinAccounts[0].Role)
}

func TestFromEnv_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestFromEnv_UnknownDriver(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "postgres")

	_, err := FromEnv()
	require.Error(t, err)
}

func TestGetEnvAsDuration(t *testing.T) {
	t.Setenv("X_DUR", "90s")
	assert.Equal(t, 90*time.Second, getEnvAsDuration("X_DUR", time.Minute))

	t.Setenv("X_DUR", "3600")
	assert.Equal(t, time.Hour, getEnvAsDuration("X_DUR", time.Minute))

	t.Setenv("X_DUR", "soon")
	assert.Equal(t, time.Minute, getEnvAsDuration("X_DUR", time.Minute))
}

func TestParseAccounts(t *testing.T) {
	accs, err := ParseAccounts("a:pw:user; b:pw2:superadmin:b@x.io ;")
	require.NoError(t, err)
	require.Len(t, accs, 2)
	assert.Equal(t, Account{Username: "a", Password: "pw", Role: "user"}, accs[0])
	assert.Equal(t, "b@x.io", accs[1].Email)

	_, err = ParseAccounts("broken")
	require.Error(t, err)
}
