package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opentrusty/storegate/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("GATEWAY_LOOKUP_TIMEOUT", "")
	t.Setenv("SUPER_ADMIN_EMAILS", "")

	cfg := FromEnv()
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "/dashboard", cfg.Gateway.RoutePrefix)
	assert.Equal(t, 3*time.Second, cfg.Gateway.LookupTimeout)
	assert.Empty(t, cfg.Gateway.ReadOnlyOperations)
	assert.Nil(t, cfg.Admin.SuperAdminEmails)
	assert.Equal(t, "sb-access-token", cfg.Auth.CookieName)
}

// TestPurpose: Validates that configuration refuses to start without the secrets the gateway depends on.
// Scope: Unit Test
// Security: Secure defaults (CWE-1188)
// Expected: Missing JWT secret, short JWT secret, and missing postgres password each fail validation.
// Test Case ID: CFG-01
func TestValidate_RequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_PASSWORD", "")
	t.Setenv("STORE_DRIVER", "postgres")

	cfg := FromEnv()
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET is required")

	cfg.Auth.JWTSecret = "short"
	assert.ErrorContains(t, cfg.Validate(), "at least 32 bytes")

	cfg.Auth.JWTSecret = testSecret
	assert.ErrorContains(t, cfg.Validate(), "DB_PASSWORD is required")

	cfg.Store.Driver = DriverSQLite
	assert.NoError(t, cfg.Validate())
}

func TestValidate_TagRules(t *testing.T) {
	cfg := FromEnv()
	cfg.Auth.JWTSecret = testSecret
	cfg.Database.Password = "pw"
	cfg.Store.Driver = "mysql"
	cfg.Gateway.LookupTimeout = 0
	cfg.Admin.SuperAdminEmails = []string{"not-an-email"}

	err := cfg.Validate()
	require.Error(t, err)

	var verr *validation.Error
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "Store.Driver")
	assert.Contains(t, verr.Fields, "Gateway.LookupTimeout")
	assert.Contains(t, verr.Fields, "Admin.SuperAdminEmails[0]")
}

func TestFromEnv_Lists(t *testing.T) {
	t.Setenv("SUPER_ADMIN_EMAILS", " ops@example.com, ,Root@Example.com ")
	t.Setenv("GATEWAY_BASE_DOMAINS", "storegate.app,localhost")
	t.Setenv("GATEWAY_LOOKUP_TIMEOUT", "not-a-duration")

	cfg := FromEnv()
	assert.Equal(t, []string{"ops@example.com", "Root@Example.com"}, cfg.Admin.SuperAdminEmails)
	assert.Equal(t, []string{"storegate.app", "localhost"}, cfg.Gateway.BaseDomains)
	assert.Equal(t, 3*time.Second, cfg.Gateway.LookupTimeout)
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("JWT_SECRET="+testSecret+"\nSTORE_DRIVER=sqlite\nSQLITE_PATH=/tmp/dotenv.db\n"), 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// godotenv never overrides, so start from a clean slate and let
	// t.Setenv restore the previous values.
	for _, k := range []string{"JWT_SECRET", "STORE_DRIVER", "SQLITE_PATH"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/dotenv.db", cfg.Store.SQLitePath)
}
